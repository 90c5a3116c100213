// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"sync"
	"time"

	"gw-audit/internal/domain"
)

// === Directory Mock ===

// MockDirectory implements domain.DirectoryProvider for testing.
type MockDirectory struct {
	ListUsersFn    func(ctx context.Context, pageToken string) (domain.UserPage, error)
	GetUserFn      func(ctx context.Context, userKey string) (*domain.User, error)
	SetSuspendedFn func(ctx context.Context, userKey string, suspended bool) error
	CustomerIDFn   func(ctx context.Context) (string, error)

	mu        sync.Mutex
	Suspended []string // user keys passed to SetSuspended(true)
}

// ListUsers implements the interface method for testing.
func (m *MockDirectory) ListUsers(ctx context.Context, pageToken string) (domain.UserPage, error) {
	if m.ListUsersFn != nil {
		return m.ListUsersFn(ctx, pageToken)
	}
	panic("unexpected call to MockDirectory.ListUsers")
}

// GetUser implements the interface method for testing.
func (m *MockDirectory) GetUser(ctx context.Context, userKey string) (*domain.User, error) {
	if m.GetUserFn != nil {
		return m.GetUserFn(ctx, userKey)
	}
	panic("unexpected call to MockDirectory.GetUser")
}

// SetSuspended implements the interface method for testing.
func (m *MockDirectory) SetSuspended(ctx context.Context, userKey string, suspended bool) error {
	m.mu.Lock()
	if suspended {
		m.Suspended = append(m.Suspended, userKey)
	}
	m.mu.Unlock()
	if m.SetSuspendedFn != nil {
		return m.SetSuspendedFn(ctx, userKey, suspended)
	}
	return nil
}

// CustomerID implements the interface method for testing.
func (m *MockDirectory) CustomerID(ctx context.Context) (string, error) {
	if m.CustomerIDFn != nil {
		return m.CustomerIDFn(ctx)
	}
	return "C0123abc", nil
}

var _ domain.DirectoryProvider = (*MockDirectory)(nil)

// UsersDirectory returns a MockDirectory that serves users in pages of
// pageSize. A pageSize of zero serves everything in one page.
func UsersDirectory(pageSize int, users ...domain.User) *MockDirectory {
	return &MockDirectory{
		ListUsersFn: func(_ context.Context, pageToken string) (domain.UserPage, error) {
			items, next := page(users, pageSize, pageToken)
			return domain.UserPage{Users: items, NextPageToken: next}, nil
		},
		GetUserFn: func(_ context.Context, userKey string) (*domain.User, error) {
			for i := range users {
				if users[i].Email == userKey || users[i].ID == userKey {
					u := users[i]
					return &u, nil
				}
			}
			return nil, domain.ErrNotFound("user %s not found", userKey)
		},
	}
}

// === License Mock ===

// MockLicenses implements domain.LicenseProvider for testing.
type MockLicenses struct {
	ListAssignmentsFn  func(ctx context.Context, productID, customerID, pageToken string) (domain.LicensePage, error)
	RemoveAssignmentFn func(ctx context.Context, productID, skuID, userKey string) error
	InsertAssignmentFn func(ctx context.Context, productID, skuID, userKey string) error

	mu       sync.Mutex
	Removed  []string // "sku:user" pairs passed to RemoveAssignment
	Inserted []string // "sku:user" pairs passed to InsertAssignment
}

// ListAssignments implements the interface method for testing.
func (m *MockLicenses) ListAssignments(ctx context.Context, productID, customerID, pageToken string) (domain.LicensePage, error) {
	if m.ListAssignmentsFn != nil {
		return m.ListAssignmentsFn(ctx, productID, customerID, pageToken)
	}
	panic("unexpected call to MockLicenses.ListAssignments")
}

// RemoveAssignment implements the interface method for testing.
func (m *MockLicenses) RemoveAssignment(ctx context.Context, productID, skuID, userKey string) error {
	m.mu.Lock()
	m.Removed = append(m.Removed, skuID+":"+userKey)
	m.mu.Unlock()
	if m.RemoveAssignmentFn != nil {
		return m.RemoveAssignmentFn(ctx, productID, skuID, userKey)
	}
	return nil
}

// InsertAssignment implements the interface method for testing.
func (m *MockLicenses) InsertAssignment(ctx context.Context, productID, skuID, userKey string) error {
	m.mu.Lock()
	m.Inserted = append(m.Inserted, skuID+":"+userKey)
	m.mu.Unlock()
	if m.InsertAssignmentFn != nil {
		return m.InsertAssignmentFn(ctx, productID, skuID, userKey)
	}
	return nil
}

var _ domain.LicenseProvider = (*MockLicenses)(nil)

// AssignmentLicenses returns a MockLicenses that serves items in pages of
// pageSize.
func AssignmentLicenses(pageSize int, items ...domain.LicenseAssignment) *MockLicenses {
	return &MockLicenses{
		ListAssignmentsFn: func(_ context.Context, _, _, pageToken string) (domain.LicensePage, error) {
			got, next := page(items, pageSize, pageToken)
			return domain.LicensePage{Items: got, NextPageToken: next}, nil
		},
	}
}

// === Reports Mock ===

// MockReports implements domain.ReportsProvider for testing.
type MockReports struct {
	ListLoginEventsFn func(ctx context.Context, start, end time.Time, pageToken string) (domain.LoginEventPage, error)

	mu      sync.Mutex
	Windows [][2]time.Time // start and end of every call
}

// ListLoginEvents implements the interface method for testing.
func (m *MockReports) ListLoginEvents(ctx context.Context, start, end time.Time, pageToken string) (domain.LoginEventPage, error) {
	m.mu.Lock()
	m.Windows = append(m.Windows, [2]time.Time{start, end})
	m.mu.Unlock()
	if m.ListLoginEventsFn != nil {
		return m.ListLoginEventsFn(ctx, start, end, pageToken)
	}
	return domain.LoginEventPage{}, nil
}

// Calls returns the number of ListLoginEvents calls.
func (m *MockReports) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Windows)
}

var _ domain.ReportsProvider = (*MockReports)(nil)

// === Groups Mock ===

// MockGroups implements domain.GroupProvider for testing.
type MockGroups struct {
	ListGroupsFn  func(ctx context.Context, pageToken string) (domain.GroupPage, error)
	ListMembersFn func(ctx context.Context, groupKey, role, pageToken string) (domain.MemberPage, error)

	mu          sync.Mutex
	ListCalls   int
	MemberCalls []string // group keys passed to ListMembers
}

// ListGroups implements the interface method for testing.
func (m *MockGroups) ListGroups(ctx context.Context, pageToken string) (domain.GroupPage, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()
	if m.ListGroupsFn != nil {
		return m.ListGroupsFn(ctx, pageToken)
	}
	panic("unexpected call to MockGroups.ListGroups")
}

// ListMembers implements the interface method for testing.
func (m *MockGroups) ListMembers(ctx context.Context, groupKey, role, pageToken string) (domain.MemberPage, error) {
	m.mu.Lock()
	m.MemberCalls = append(m.MemberCalls, groupKey)
	m.mu.Unlock()
	if m.ListMembersFn != nil {
		return m.ListMembersFn(ctx, groupKey, role, pageToken)
	}
	panic("unexpected call to MockGroups.ListMembers")
}

var _ domain.GroupProvider = (*MockGroups)(nil)

// === Transfer Mock ===

// MockTransfers implements domain.TransferProvider for testing.
type MockTransfers struct {
	TransferDriveFn func(ctx context.Context, fromUserID, toUserID string) error

	mu    sync.Mutex
	Calls []string // "from->to" pairs
}

// TransferDrive implements the interface method for testing.
func (m *MockTransfers) TransferDrive(ctx context.Context, fromUserID, toUserID string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, fromUserID+"->"+toUserID)
	m.mu.Unlock()
	if m.TransferDriveFn != nil {
		return m.TransferDriveFn(ctx, fromUserID, toUserID)
	}
	return nil
}

var _ domain.TransferProvider = (*MockTransfers)(nil)

// === Output Mocks ===

// MockTableWriter implements domain.TableWriter and collects written tables.
type MockTableWriter struct {
	WriteTableFn func(ctx context.Context, t domain.Table) (string, error)

	mu     sync.Mutex
	Tables []domain.Table
}

// WriteTable implements the interface method for testing.
func (m *MockTableWriter) WriteTable(ctx context.Context, t domain.Table) (string, error) {
	m.mu.Lock()
	m.Tables = append(m.Tables, t)
	m.mu.Unlock()
	if m.WriteTableFn != nil {
		return m.WriteTableFn(ctx, t)
	}
	return "mem://" + t.Name, nil
}

// Table returns the last written table with the given name, or nil.
func (m *MockTableWriter) Table(name string) *domain.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Tables) - 1; i >= 0; i-- {
		if m.Tables[i].Name == name {
			t := m.Tables[i]
			return &t
		}
	}
	return nil
}

var _ domain.TableWriter = (*MockTableWriter)(nil)

// MockNotifier implements domain.Notifier and collects notifications.
type MockNotifier struct {
	NotifyFn func(ctx context.Context, n domain.Notification) error

	mu   sync.Mutex
	Sent []domain.Notification
}

// Notify implements the interface method for testing.
func (m *MockNotifier) Notify(ctx context.Context, n domain.Notification) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, n)
	m.mu.Unlock()
	if m.NotifyFn != nil {
		return m.NotifyFn(ctx, n)
	}
	return nil
}

var _ domain.Notifier = (*MockNotifier)(nil)

// === KV Mock ===

// MockKV implements domain.KVStore over a map. GetFn, SetFn and DeleteFn
// override the map behavior when set.
type MockKV struct {
	GetFn    func(ctx context.Context, key string) (string, bool, error)
	SetFn    func(ctx context.Context, key, value string) error
	DeleteFn func(ctx context.Context, keys ...string) error

	mu   sync.Mutex
	Data map[string]string
}

// Get implements the interface method for testing.
func (m *MockKV) Get(ctx context.Context, key string) (string, bool, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Data[key]
	return v, ok, nil
}

// Set implements the interface method for testing.
func (m *MockKV) Set(ctx context.Context, key, value string) error {
	if m.SetFn != nil {
		return m.SetFn(ctx, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Data == nil {
		m.Data = make(map[string]string)
	}
	m.Data[key] = value
	return nil
}

// Delete implements the interface method for testing.
func (m *MockKV) Delete(ctx context.Context, keys ...string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, keys...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.Data, k)
	}
	return nil
}

var _ domain.KVStore = (*MockKV)(nil)
