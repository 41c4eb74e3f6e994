package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres/repositories"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// NewScoreCmd creates the score command group.
func NewScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Recompute and snapshot compliance scores",
	}

	cmd.AddCommand(
		newScoreRecalculateCmd(),
		newScoreSnapshotCmd(),
		newScoreHistoryCmd(),
	)

	return cmd
}

// scoreView adapts a compliance score for table output.
type scoreView struct {
	*domain.ComplianceScore
}

func (v scoreView) TableHeaders() []string {
	return []string{"PROJECT", "SCORE", "ON-TIME", "TOTAL", "MISSED", "STREAK", "BEST"}
}

func (v scoreView) TableRows() [][]string {
	return [][]string{{
		string(v.ProjectID),
		strconv.Itoa(v.Score),
		strconv.Itoa(v.OnTimeCount),
		strconv.Itoa(v.TotalCount),
		strconv.Itoa(v.MissedCount),
		strconv.Itoa(v.CurrentStreak),
		strconv.Itoa(v.BestStreak),
	}}
}

func (v scoreView) String() string {
	return fmt.Sprintf("project=%s score=%d onTime=%d/%d streak=%d (best %d)",
		v.ProjectID, v.Score, v.OnTimeCount, v.TotalCount, v.CurrentStreak, v.BestStreak)
}

func newScoreRecalculateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalculate <project-id>",
		Short: "Recompute and persist a project's compliance score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			scores, closeFn, err := buildScoreService(cliCtx)
			if err != nil {
				return err
			}
			defer closeFn()

			score, err := scores.Calculate(cmd.Context(), common.ProjectID(args[0]))
			if err != nil {
				return err
			}

			return PrintResult(cmd, scoreView{score})
		},
	}
}

func newScoreSnapshotCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "snapshot <project-id>",
		Short: "Write a score history snapshot for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			periodType := domain.SnapshotPeriod(period)
			if !periodType.IsValid() {
				return errors.InvalidParam(fmt.Sprintf("unknown period %q (daily, weekly, monthly)", period))
			}

			scores, closeFn, err := buildScoreService(cliCtx)
			if err != nil {
				return err
			}
			defer closeFn()

			snapshot, err := scores.Snapshot(cmd.Context(), common.ProjectID(args[0]), periodType)
			if err != nil {
				return err
			}

			PrintSuccess(cmd, fmt.Sprintf("%s snapshot written for %s (score %d)",
				snapshot.PeriodType, snapshot.SnapshotDate.Format("2006-01-02"), snapshot.Score))
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", string(domain.PeriodDaily), "snapshot period (daily, weekly, monthly)")
	return cmd
}

// snapshotList adapts score history for table output.
type snapshotList []*domain.ScoreSnapshot

func (l snapshotList) TableHeaders() []string {
	return []string{"DATE", "PERIOD", "SCORE", "ON-TIME", "TOTAL", "STREAK"}
}

func (l snapshotList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{
			s.SnapshotDate.Format("2006-01-02"),
			string(s.PeriodType),
			strconv.Itoa(s.Score),
			strconv.Itoa(s.OnTimeCount),
			strconv.Itoa(s.TotalCount),
			strconv.Itoa(s.CurrentStreak),
		})
	}
	return rows
}

func newScoreHistoryCmd() *cobra.Command {
	var (
		period string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history <project-id>",
		Short: "List score history snapshots for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			scores, closeFn, err := buildScoreService(cliCtx)
			if err != nil {
				return err
			}
			defer closeFn()

			snapshots, err := scores.History(cmd.Context(), common.ProjectID(args[0]), period, limit)
			if err != nil {
				return err
			}
			if len(snapshots) == 0 {
				return PrintResult(cmd, "no snapshots recorded")
			}

			return PrintResult(cmd, snapshotList(snapshots))
		},
	}

	cmd.Flags().StringVar(&period, "period", "month", "history range (week, month, quarter, year)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum snapshots to return (0 uses the range default)")
	return cmd
}

// buildScoreService connects to the database and assembles the score service.
// The returned close function releases the connection.
func buildScoreService(cliCtx *CLIContext) (appcompliance.ScoreService, func(), error) {
	conn, err := openDatabase(cliCtx)
	if err != nil {
		return nil, nil, err
	}

	scoreRepo := repositories.NewPostgresScoreRepo(conn, cliCtx.Logger)
	noticeRepo := repositories.NewPostgresNoticeRepo(conn, cliCtx.Logger)
	deadlineRepo := repositories.NewPostgresDeadlineRepo(conn, cliCtx.Logger)
	scores := appcompliance.NewScoreService(scoreRepo, noticeRepo, deadlineRepo,
		cliCtx.Config.Compliance.ClaimsValuePerNoticeCents, cliCtx.Logger)

	return scores, func() { _ = conn.Close() }, nil
}
