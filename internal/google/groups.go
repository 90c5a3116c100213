package google

import (
	"context"

	directory "google.golang.org/api/admin/directory/v1"

	"gw-audit/internal/domain"
)

// Groups implements domain.GroupProvider with the Admin SDK.
type Groups struct {
	svc *directory.Service
}

// NewGroups wraps an Admin SDK client.
func NewGroups(svc *directory.Service) *Groups {
	return &Groups{svc: svc}
}

// ListGroups returns one page of the customer's groups.
func (g *Groups) ListGroups(ctx context.Context, pageToken string) (domain.GroupPage, error) {
	call := g.svc.Groups.List().Customer(MyCustomer).MaxResults(200).OrderBy("email")
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return domain.GroupPage{}, apiError(err, "list groups")
	}
	page := domain.GroupPage{
		Groups:        make([]domain.Group, 0, len(resp.Groups)),
		NextPageToken: resp.NextPageToken,
	}
	for _, gr := range resp.Groups {
		page.Groups = append(page.Groups, domain.Group{
			ID:            gr.Id,
			Email:         gr.Email,
			Name:          gr.Name,
			DirectMembers: gr.DirectMembersCount,
		})
	}
	return page, nil
}

// ListMembers returns one page of groupKey's members holding role. An empty
// role lists every member.
func (g *Groups) ListMembers(ctx context.Context, groupKey, role, pageToken string) (domain.MemberPage, error) {
	call := g.svc.Members.List(groupKey).MaxResults(200)
	if role != "" {
		call = call.Roles(role)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return domain.MemberPage{}, apiError(err, "list members of "+groupKey)
	}
	page := domain.MemberPage{
		Members:       make([]domain.Member, 0, len(resp.Members)),
		NextPageToken: resp.NextPageToken,
	}
	for _, m := range resp.Members {
		page.Members = append(page.Members, domain.Member{
			Email:  m.Email,
			Role:   m.Role,
			Type:   m.Type,
			Status: m.Status,
		})
	}
	return page, nil
}

var _ domain.GroupProvider = (*Groups)(nil)
