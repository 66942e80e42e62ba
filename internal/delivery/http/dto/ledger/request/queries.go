package request

type ListCommissionsQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type ListFlagsQuery struct {
	Decision string `form:"decision"`
	Stage    string `form:"stage"`
	Since    string `form:"since"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}
