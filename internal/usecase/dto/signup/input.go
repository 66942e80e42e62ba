package signupdto

type SignupInput struct {
	CreatorID    string
	MembershipID string
	DisplayName  string
	UserAgent    string
	ClientIP     string
	// CookieCode - значение реферальной куки, если браузер её прислал
	CookieCode string
}
