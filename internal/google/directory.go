package google

import (
	"context"

	directory "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/googleapi"

	"gw-audit/internal/domain"
)

const userFields = "nextPageToken,users(id,primaryEmail,name/fullName,orgUnitPath,creationTime," +
	"suspended,isAdmin,isDelegatedAdmin,lastLoginTime)"

// Directory implements domain.DirectoryProvider with the Admin SDK.
type Directory struct {
	svc *directory.Service
}

// NewDirectory wraps an Admin SDK client.
func NewDirectory(svc *directory.Service) *Directory {
	return &Directory{svc: svc}
}

// ListUsers returns one page of users ordered by email.
func (d *Directory) ListUsers(ctx context.Context, pageToken string) (domain.UserPage, error) {
	call := d.svc.Users.List().
		Customer(MyCustomer).
		MaxResults(500).
		OrderBy("email").
		Fields(googleapi.Field(userFields))
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return domain.UserPage{}, apiError(err, "list users")
	}
	page := domain.UserPage{
		Users:         make([]domain.User, 0, len(resp.Users)),
		NextPageToken: resp.NextPageToken,
	}
	for _, u := range resp.Users {
		page.Users = append(page.Users, userFromAPI(u))
	}
	return page, nil
}

// GetUser fetches one user by email or ID.
func (d *Directory) GetUser(ctx context.Context, userKey string) (*domain.User, error) {
	u, err := d.svc.Users.Get(userKey).Context(ctx).Do()
	if err != nil {
		return nil, apiError(err, "get user "+userKey)
	}
	du := userFromAPI(u)
	return &du, nil
}

// SetSuspended changes the suspension flag of a user.
func (d *Directory) SetSuspended(ctx context.Context, userKey string, suspended bool) error {
	_, err := d.svc.Users.Patch(userKey, &directory.User{
		Suspended:       suspended,
		ForceSendFields: []string{"Suspended"},
	}).Context(ctx).Do()
	if err != nil {
		return apiError(err, "patch user "+userKey)
	}
	return nil
}

// CustomerID resolves the immutable ID of the admin's customer.
func (d *Directory) CustomerID(ctx context.Context) (string, error) {
	c, err := d.svc.Customers.Get(MyCustomer).Context(ctx).Do()
	if err != nil {
		return "", apiError(err, "get customer")
	}
	return c.Id, nil
}

func userFromAPI(u *directory.User) domain.User {
	du := domain.User{
		ID:               u.Id,
		Email:            u.PrimaryEmail,
		OrgUnitPath:      u.OrgUnitPath,
		Suspended:        u.Suspended,
		IsAdmin:          u.IsAdmin,
		IsDelegatedAdmin: u.IsDelegatedAdmin,
		LastLogin:        parseTime(u.LastLoginTime),
	}
	if u.Name != nil {
		du.FullName = u.Name.FullName
	}
	if created := parseTime(u.CreationTime); created != nil {
		du.CreatedAt = *created
	}
	return du
}

var _ domain.DirectoryProvider = (*Directory)(nil)
