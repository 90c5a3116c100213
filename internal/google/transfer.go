package google

import (
	"context"
	"fmt"
	"sync"

	datatransfer "google.golang.org/api/admin/datatransfer/v1"

	"gw-audit/internal/domain"
)

const driveApplicationName = "Drive and Docs"

// Transfers implements domain.TransferProvider with the Data Transfer API.
type Transfers struct {
	svc *datatransfer.Service

	mu      sync.Mutex
	driveID int64
}

// NewTransfers wraps a Data Transfer client.
func NewTransfers(svc *datatransfer.Service) *Transfers {
	return &Transfers{svc: svc}
}

// TransferDrive starts moving every Drive file of fromUserID to toUserID. The
// transfer completes asynchronously on Google's side.
func (t *Transfers) TransferDrive(ctx context.Context, fromUserID, toUserID string) error {
	appID, err := t.driveApplicationID(ctx)
	if err != nil {
		return err
	}
	_, err = t.svc.Transfers.Insert(&datatransfer.DataTransfer{
		OldOwnerUserId: fromUserID,
		NewOwnerUserId: toUserID,
		ApplicationDataTransfers: []*datatransfer.ApplicationDataTransfer{{
			ApplicationId: appID,
			ApplicationTransferParams: []*datatransfer.ApplicationTransferParam{{
				Key:   "PRIVACY_LEVEL",
				Value: []string{"PRIVATE", "SHARED"},
			}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return apiError(err, "transfer drive of "+fromUserID)
	}
	return nil
}

func (t *Transfers) driveApplicationID(ctx context.Context) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.driveID != 0 {
		return t.driveID, nil
	}

	pageToken := ""
	for {
		call := t.svc.Applications.List().MaxResults(100)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return 0, apiError(err, "list transfer applications")
		}
		for _, app := range resp.Applications {
			if app.Name == driveApplicationName {
				t.driveID = app.Id
				return app.Id, nil
			}
		}
		if resp.NextPageToken == "" {
			return 0, fmt.Errorf("transfer application %q not available", driveApplicationName)
		}
		pageToken = resp.NextPageToken
	}
}

var _ domain.TransferProvider = (*Transfers)(nil)
