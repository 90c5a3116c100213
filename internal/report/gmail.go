package report

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/coder/quartz"
	"google.golang.org/api/gmail/v1"

	"gw-audit/internal/domain"
)

// Gmail sends notifications as the delegated admin through the Gmail API.
type Gmail struct {
	svc   *gmail.Service
	from  string
	clock quartz.Clock
}

// NewGmail creates a Gmail notifier. from must be the delegated subject or one
// of its send-as aliases.
func NewGmail(svc *gmail.Service, from string, clock quartz.Clock) *Gmail {
	return &Gmail{svc: svc, from: from, clock: clock}
}

// Notify sends n from the authenticated mailbox.
func (g *Gmail) Notify(ctx context.Context, n domain.Notification) error {
	if len(n.Recipients) == 0 {
		return nil
	}
	raw := composeMessage(g.from, n.Recipients, n.Subject, RenderText(n), g.clock.Now())
	_, err := g.svc.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("send gmail message: %w", err)
	}
	return nil
}

var _ domain.Notifier = (*Gmail)(nil)
