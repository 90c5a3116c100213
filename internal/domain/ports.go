package domain

import (
	"context"
	"time"
)

// DirectoryProvider reads and suspends directory users.
// Implemented by google.Directory.
type DirectoryProvider interface {
	ListUsers(ctx context.Context, pageToken string) (UserPage, error)
	GetUser(ctx context.Context, userKey string) (*User, error)
	SetSuspended(ctx context.Context, userKey string, suspended bool) error
	CustomerID(ctx context.Context) (string, error)
}

// LicenseProvider lists and changes license assignments.
// Implemented by google.Licensing.
type LicenseProvider interface {
	ListAssignments(ctx context.Context, productID, customerID, pageToken string) (LicensePage, error)
	RemoveAssignment(ctx context.Context, productID, skuID, userKey string) error
	InsertAssignment(ctx context.Context, productID, skuID, userKey string) error
}

// ReportsProvider lists successful logins from the audit log. The source only
// retains a bounded window of history.
// Implemented by google.Reports.
type ReportsProvider interface {
	ListLoginEvents(ctx context.Context, start, end time.Time, pageToken string) (LoginEventPage, error)
}

// GroupProvider lists groups and their members.
// Implemented by google.Groups.
type GroupProvider interface {
	ListGroups(ctx context.Context, pageToken string) (GroupPage, error)
	ListMembers(ctx context.Context, groupKey, role, pageToken string) (MemberPage, error)
}

// TransferProvider moves Drive ownership between users.
// Implemented by google.Transfers.
type TransferProvider interface {
	TransferDrive(ctx context.Context, fromUserID, toUserID string) error
}

// TableWriter persists a report table and returns where it was written.
type TableWriter interface {
	WriteTable(ctx context.Context, t Table) (string, error)
}

// Notifier delivers a run summary.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// KVStore is string-keyed persistence that survives between invocations.
// Implemented by kvstore.Memory, kvstore.File and repository.KVRepo.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}
