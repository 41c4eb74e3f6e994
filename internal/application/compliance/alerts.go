package compliance

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/domain/project"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

const (
	// emailSubjectPrefix brands outbound compliance email.
	emailSubjectPrefix = "[efilo] "

	// alertDateLayout renders deadline dates in alert emails.
	alertDateLayout = "Monday, January 02, 2006"

	// digestWindow is how far ahead the weekly summary looks.
	digestWindow = 14 * 24 * time.Hour

	// digestDeadlineLimit caps the upcoming-deadline list in the digest.
	digestDeadlineLimit = 10
)

// alertSeverities are the deadline severities that produce alerts.
var alertSeverities = []domain.Severity{
	domain.SeverityCritical,
	domain.SeverityWarning,
	domain.SeverityExpired,
}

// AlertRunResult summarizes one alert pass over a project.
type AlertRunResult struct {
	DeadlinesFlagged  int `json:"deadlinesFlagged"`
	NotificationsSent int `json:"notificationsSent"`
	EmailsSent        int `json:"emailsSent"`
}

// ---------------------------------------------------------------------------
// Alert service
// ---------------------------------------------------------------------------

// AlertService fans deadline alerts and the weekly digest out to project
// members with alert-bearing roles.
type AlertService interface {
	// CheckDeadlines alerts on every open or expired deadline at WARNING
	// severity or above.  In-app notifications go to all alert roles; email
	// goes out only for CRITICAL and EXPIRED deadlines.
	CheckDeadlines(ctx context.Context, projectID common.ProjectID) (*AlertRunResult, error)

	// WeeklySummary emails the compliance digest and posts it in-app.
	WeeklySummary(ctx context.Context, projectID common.ProjectID) error
}

type alertService struct {
	deadlines     domain.DeadlineRepository
	projects      project.Repository
	notifications project.NotificationRepository
	scores        ScoreService
	mailer        Mailer
	logger        logging.Logger
	now           func() time.Time
}

// NewAlertService constructs an AlertService.
func NewAlertService(
	deadlines domain.DeadlineRepository,
	projects project.Repository,
	notifications project.NotificationRepository,
	scores ScoreService,
	mailer Mailer,
	logger logging.Logger,
) AlertService {
	return &alertService{
		deadlines:     deadlines,
		projects:      projects,
		notifications: notifications,
		scores:        scores,
		mailer:        mailer,
		logger:        logger.Named("alerts"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *alertService) CheckDeadlines(ctx context.Context, projectID common.ProjectID) (*AlertRunResult, error) {
	flagged, _, err := s.deadlines.List(ctx, projectID, domain.DeadlineFilter{
		Statuses: []domain.DeadlineStatus{
			domain.DeadlineActive,
			domain.DeadlineNoticeDrafted,
			domain.DeadlineExpired,
		},
		Severities: alertSeverities,
	})
	if err != nil {
		return nil, err
	}

	result := &AlertRunResult{DeadlinesFlagged: len(flagged)}
	if len(flagged) == 0 {
		return result, nil
	}

	members, err := s.projects.ListMembersByRoles(ctx, projectID, project.AlertRoles)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, d := range flagged {
		title := fmt.Sprintf("%s: %s", d.Severity, d.ClauseTitle)
		message := fmt.Sprintf("Notice due %s — %s. %s",
			daysRemainingLabel(d.CalculatedDeadline, now),
			sectionRefOrNA(d.ClauseSectionRef), d.TriggerDescription)

		batch := make([]*project.Notification, 0, len(members))
		for _, m := range members {
			n := project.NewNotification(m.UserID, projectID,
				project.NotificationComplianceDeadline,
				notificationSeverity(d.Severity), title, message)
			resourceID := d.ID
			n.ResourceID = &resourceID
			batch = append(batch, n)
		}
		if len(batch) > 0 {
			if err := s.notifications.CreateBatch(ctx, batch); err != nil {
				return nil, err
			}
			result.NotificationsSent += len(batch)
		}

		if d.Severity != domain.SeverityCritical && d.Severity != domain.SeverityExpired {
			continue
		}
		body := fmt.Sprintf(
			"%s\n\nDeadline: %s\n\nLog in to efilo to draft and send the required notice.",
			message, d.CalculatedDeadline.Format(alertDateLayout))
		for _, m := range members {
			if err := s.mailer.Send(ctx, m.Email, m.Name, emailSubjectPrefix+title, body); err != nil {
				s.logger.Error("alert email failed",
					logging.String("deadline_id", string(d.ID)),
					logging.String("recipient", m.Email),
					logging.Err(err),
				)
				continue
			}
			result.EmailsSent++
		}
	}

	s.logger.Info("deadline alert pass complete",
		logging.String("project_id", string(projectID)),
		logging.Int("flagged", result.DeadlinesFlagged),
		logging.Int("notifications", result.NotificationsSent),
		logging.Int("emails", result.EmailsSent),
	)
	return result, nil
}

func (s *alertService) WeeklySummary(ctx context.Context, projectID common.ProjectID) error {
	proj, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	score, err := s.scores.Get(ctx, projectID)
	if err != nil {
		return err
	}

	now := s.now()
	upcoming, err := s.deadlines.ListOpenDueBefore(ctx, projectID, now.Add(digestWindow))
	if err != nil {
		return err
	}
	if len(upcoming) > digestDeadlineLimit {
		upcoming = upcoming[:digestDeadlineLimit]
	}

	body := buildWeeklySummary(proj.Name, score, upcoming, now)
	subject := emailSubjectPrefix + "Weekly Compliance Summary — " + proj.Name

	members, err := s.projects.ListMembersByRoles(ctx, projectID, project.AlertRoles)
	if err != nil {
		return err
	}

	batch := make([]*project.Notification, 0, len(members))
	for _, m := range members {
		if err := s.mailer.Send(ctx, m.Email, m.Name, subject, body); err != nil {
			s.logger.Error("digest email failed",
				logging.String("recipient", m.Email),
				logging.Err(err),
			)
		}
		batch = append(batch, project.NewNotification(m.UserID, projectID,
			project.NotificationComplianceDigest, "INFO",
			"Weekly Compliance Summary", body))
	}
	if len(batch) > 0 {
		if err := s.notifications.CreateBatch(ctx, batch); err != nil {
			return err
		}
	}

	s.logger.Info("weekly summary sent",
		logging.String("project_id", string(projectID)),
		logging.Int("recipients", len(members)),
		logging.Int("upcoming_deadlines", len(upcoming)),
	)
	return nil
}

// buildWeeklySummary renders the digest body.
func buildWeeklySummary(projectName string, score *domain.ComplianceScore, upcoming []*domain.DeadlineWithClause, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Weekly Compliance Summary — %s\n\n", projectName)
	b.WriteString("PERFORMANCE\n")

	pct := "N/A"
	if score.TotalCount > 0 {
		pct = fmt.Sprintf("%d%%", score.Score)
	}
	fmt.Fprintf(&b, "- Compliance Score: %s (%d/%d on time)\n",
		pct, score.OnTimeCount, score.TotalCount)
	fmt.Fprintf(&b, "- Current Streak: %d consecutive\n", score.CurrentStreak)
	fmt.Fprintf(&b, "- Claims Protected: $%s\n\n",
		formatThousands(score.ProtectedClaimsValueCents/100))

	b.WriteString("UPCOMING DEADLINES (Next 14 Days)\n")
	if len(upcoming) == 0 {
		b.WriteString("No upcoming deadlines.")
		return b.String()
	}

	lines := make([]string, 0, len(upcoming))
	for _, d := range upcoming {
		days := daysRemaining(d.CalculatedDeadline, now)
		sev := "INFO"
		switch {
		case days <= 3:
			sev = "CRITICAL"
		case days <= 7:
			sev = "WARNING"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s (%s) — %d days",
			sev, d.ClauseTitle, sectionRefOrNA(d.ClauseSectionRef), days))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

// notificationSeverity maps deadline severity onto notification severity.
func notificationSeverity(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical, domain.SeverityExpired:
		return "CRITICAL"
	case domain.SeverityWarning:
		return "WARNING"
	}
	return "INFO"
}

func sectionRefOrNA(ref *string) string {
	if ref != nil && *ref != "" {
		return *ref
	}
	return "N/A"
}

// formatThousands renders 150000 as "150,000".
func formatThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return s
	}
	var b strings.Builder
	for i, digit := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	return b.String()
}
