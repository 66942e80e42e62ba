package ledgerdto

type ListCommissionsInput struct {
	MemberID string
	Status   string
	Limit    int
	Offset   int
}
