package compliance

import (
	"time"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
)

// Severity thresholds in days until the deadline.
const (
	criticalWithinDays = 3
	warningWithinDays  = 7
	infoWithinDays     = 14
)

// ClassifySeverity maps a deadline's status and time remaining to a severity
// band.  Rules are evaluated top-down:
//
//  1. COMPLETED, WAIVED, and NOTICE_SENT deadlines no longer escalate: LOW.
//  2. A deadline at or past due is EXPIRED.
//  3. Otherwise the fractional days remaining pick the band.
func ClassifySeverity(status domain.DeadlineStatus, deadline, now time.Time) domain.Severity {
	switch status {
	case domain.DeadlineCompleted, domain.DeadlineWaived, domain.DeadlineNoticeSent:
		return domain.SeverityLow
	}
	if !deadline.After(now) {
		return domain.SeverityExpired
	}

	daysLeft := deadline.Sub(now).Hours() / 24
	switch {
	case daysLeft <= criticalWithinDays:
		return domain.SeverityCritical
	case daysLeft <= warningWithinDays:
		return domain.SeverityWarning
	case daysLeft <= infoWithinDays:
		return domain.SeverityInfo
	default:
		return domain.SeverityLow
	}
}
