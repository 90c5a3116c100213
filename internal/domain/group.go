package domain

// MemberRoleOwner is the Directory role name for group owners.
const MemberRoleOwner = "OWNER"

// Group is a directory group as seen by the groups audit.
type Group struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	DirectMembers int64  `json:"direct_members"`
}

// GroupPage is one page of a group listing.
type GroupPage struct {
	Groups        []Group
	NextPageToken string
}

// Member is one membership row of a group.
type Member struct {
	Email  string
	Role   string
	Type   string
	Status string
}

// MemberPage is one page of a member listing.
type MemberPage struct {
	Members       []Member
	NextPageToken string
}

// Group finding reasons.
const (
	FindingNoOwners    = "No owners"
	FindingCheckFailed = "Owner check failed"
)

// GroupFinding is a group flagged by the groups audit.
type GroupFinding struct {
	Group      Group  `json:"group"`
	OwnerCount int    `json:"owner_count"`
	Reason     string `json:"reason"`
}
