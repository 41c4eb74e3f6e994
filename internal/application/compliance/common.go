package compliance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// ---------------------------------------------------------------------------
// Outbound ports
// ---------------------------------------------------------------------------

// TxRunner executes fn inside a single database transaction.  Repositories
// called with the ctx passed to fn participate in that transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DocumentText is the parsed text of a stored document, provided by the
// document pipeline.
type DocumentText struct {
	ID   common.ID
	Name string
	Type string
	Text string
}

// DocumentSource fetches parsed document text from the document subsystem.
type DocumentSource interface {
	GetDocument(ctx context.Context, projectID common.ProjectID, documentID common.ID) (*DocumentText, error)
}

// Mailer delivers outbound email through the platform transport.  Send
// returns nil when the transport accepted the message.
type Mailer interface {
	Send(ctx context.Context, to, toName, subject, body string) error
}

// ScoreRefresher requests an asynchronous score recalculation for a project.
// Implementations publish to the score refresh topic; failures are logged and
// swallowed by callers because scoring is eventually consistent.
type ScoreRefresher interface {
	RequestRefresh(ctx context.Context, projectID common.ProjectID) error
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// humanizeEnum turns "BUSINESS_DAYS" into "business days".
func humanizeEnum(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", " "))
}

// titleizeEnum turns "CHANGE_ORDER" into "Change Order".
func titleizeEnum(s string) string {
	words := strings.Split(strings.ToLower(strings.ReplaceAll(s, "_", " ")), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// actorID converts an optional user ID into the audit log's actor pointer.
func actorID(userID *common.UserID) *string {
	if userID == nil {
		return nil
	}
	s := string(*userID)
	return &s
}

// daysRemaining returns whole days until deadline; negative means past due.
func daysRemaining(deadline, now time.Time) int {
	return int(deadline.Sub(now).Seconds() / 86400)
}

// daysRemainingLabel renders "EXPIRED", "1 day remaining", "5 days remaining".
func daysRemainingLabel(deadline, now time.Time) string {
	days := daysRemaining(deadline, now)
	if days < 0 {
		return "EXPIRED"
	}
	plural := "s"
	if days == 1 {
		plural = ""
	}
	return fmt.Sprintf("%d day%s remaining", days, plural)
}
