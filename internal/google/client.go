// Package google adapts the Workspace Admin SDK, Reports, Licensing and Data
// Transfer APIs to the domain provider interfaces.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	directory "google.golang.org/api/admin/directory/v1"
	datatransfer "google.golang.org/api/admin/datatransfer/v1"
	reports "google.golang.org/api/admin/reports/v1"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/licensing/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"gw-audit/internal/domain"
)

// MyCustomer addresses the customer the delegated admin belongs to.
const MyCustomer = "my_customer"

// Scopes lists every OAuth scope the audits use. The service account needs
// all of them granted through domain-wide delegation.
var Scopes = []string{
	directory.AdminDirectoryUserScope,
	directory.AdminDirectoryGroupReadonlyScope,
	directory.AdminDirectoryGroupMemberReadonlyScope,
	directory.AdminDirectoryCustomerReadonlyScope,
	reports.AdminReportsAuditReadonlyScope,
	licensing.AppsLicensingScope,
	datatransfer.AdminDatatransferScope,
	sheets.SpreadsheetsScope,
	gmail.GmailSendScope,
}

// Credentials identify the service account key and the admin it
// impersonates.
type Credentials struct {
	KeyFile string
	Subject string
}

// ClientOptions builds API client options that impersonate Subject with the
// key in KeyFile.
func ClientOptions(ctx context.Context, creds Credentials, scopes ...string) ([]option.ClientOption, error) {
	if creds.KeyFile == "" {
		return nil, domain.ErrConfig("google.credentials_file", "is required")
	}
	if creds.Subject == "" {
		return nil, domain.ErrConfig("google.admin_subject", "is required for domain-wide delegation")
	}
	data, err := os.ReadFile(creds.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}
	if len(scopes) == 0 {
		scopes = Scopes
	}
	cfg, err := google.JWTConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	cfg.Subject = creds.Subject
	return []option.ClientOption{option.WithTokenSource(cfg.TokenSource(ctx))}, nil
}

// Services holds one client per API.
type Services struct {
	Directory *directory.Service
	Reports   *reports.Service
	Licensing *licensing.Service
	Transfer  *datatransfer.Service
	Sheets    *sheets.Service
	Gmail     *gmail.Service
}

// NewServices creates every API client with opts.
func NewServices(ctx context.Context, opts ...option.ClientOption) (*Services, error) {
	var (
		s   Services
		err error
	)
	if s.Directory, err = directory.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("directory client: %w", err)
	}
	if s.Reports, err = reports.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("reports client: %w", err)
	}
	if s.Licensing, err = licensing.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("licensing client: %w", err)
	}
	if s.Transfer, err = datatransfer.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("data transfer client: %w", err)
	}
	if s.Sheets, err = sheets.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	if s.Gmail, err = gmail.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("gmail client: %w", err)
	}
	return &s, nil
}

// parseTime parses an RFC 3339 API timestamp. The directory reports "never"
// as the Unix epoch; that and unparsable values yield nil.
func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil || !t.After(time.Unix(0, 0)) {
		return nil
	}
	t = t.UTC()
	return &t
}

// apiError maps a 404 to domain.NotFoundError and wraps everything else.
func apiError(err error, op string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return domain.ErrNotFound("%s: not found", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}
