package request

type UpdateRuleRequest struct {
	Type     string                 `json:"type"`
	Config   map[string]interface{} `json:"config"`
	IsActive *bool                  `json:"isActive"`
	Priority *int                   `json:"priority"`
}

type RunReconciliationRequest struct {
	Fix bool `json:"fix"`
}
