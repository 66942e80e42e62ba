package request

// SignupRequest приходит от платформы при создании участника.
// UserAgent/ClientIP/ReferralCode - сигналы браузера, пересланные бэкендом;
// если не переданы, берутся из самого запроса.
type SignupRequest struct {
	CreatorID    string `json:"creatorId" binding:"required"`
	MembershipID string `json:"membershipId" binding:"required"`
	DisplayName  string `json:"displayName"`
	UserAgent    string `json:"userAgent"`
	ClientIP     string `json:"clientIp"`
	ReferralCode string `json:"referralCode"`
}
