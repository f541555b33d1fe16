package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hllutils/sessionmirror/pkg/models"
)

// logColumns is the fixed column list for session_logs bulk appends:
// session_id first, then one column per LogLine field in a stable order.
// Inserting over an explicit list means one missing field cannot shift
// values into the wrong column.
var logColumns = []string{
	"session_id",
	"event_time",
	"event_type",
	"player_name",
	"player_id",
	"player_team",
	"player_role",
	"player_combat_score",
	"player_offense_score",
	"player_defense_score",
	"player_support_score",
	"player2_name",
	"player2_id",
	"player2_team",
	"player2_role",
	"weapon",
	"old",
	"new",
	"team_name",
	"squad_name",
	"message",
}

func logRow(sessionID int64, l models.LogLine) []any {
	return []any{
		sessionID,
		l.EventTime,
		l.EventType,
		l.PlayerName,
		l.PlayerID,
		l.PlayerTeam,
		l.PlayerRole,
		l.PlayerCombatScore,
		l.PlayerOffenseScore,
		l.PlayerDefenseScore,
		l.PlayerSupportScore,
		l.Player2Name,
		l.Player2ID,
		l.Player2Team,
		l.Player2Role,
		l.Weapon,
		l.Old,
		l.New,
		l.TeamName,
		l.SquadName,
		l.Message,
	}
}

// InsertLogs bulk-appends a log batch in original order. Logs are immutable
// once produced, so there is no upsert path; replays rely on the session's
// logs being purged or the insert failing as a whole.
func (s *Store) InsertLogs(ctx context.Context, sessionID int64, logs []models.LogLine) error {
	if len(logs) == 0 {
		return nil
	}
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	rows := make([][]any, len(logs))
	for i, l := range logs {
		rows[i] = logRow(sessionID, l)
	}
	_, err = pool.CopyFrom(ctx, pgx.Identifier{"session_logs"}, logColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("insert %d logs for session %d: %w", len(logs), sessionID, err)
	}
	return nil
}

// LogFilter narrows a FetchLogs query. The zero value selects everything.
type LogFilter struct {
	FromTime   *time.Time
	ToTime     *time.Time
	Limit      int
	EventTypes []string
}

// FetchLogs returns a session's log lines ordered by event time.
func (s *Store) FetchLogs(ctx context.Context, sessionID int64, filter LogFilter) ([]models.LogLine, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	clauses := []string{"session_id = $1"}
	args := []any{sessionID}
	if filter.FromTime != nil {
		args = append(args, *filter.FromTime)
		clauses = append(clauses, fmt.Sprintf("event_time >= $%d", len(args)))
	}
	if filter.ToTime != nil {
		args = append(args, *filter.ToTime)
		clauses = append(clauses, fmt.Sprintf("event_time < $%d", len(args)))
	}
	if len(filter.EventTypes) > 0 {
		args = append(args, filter.EventTypes)
		clauses = append(clauses, fmt.Sprintf("event_type = ANY($%d)", len(args)))
	}

	query := "SELECT " + strings.Join(logColumns[1:], ", ") +
		" FROM session_logs WHERE " + strings.Join(clauses, " AND ") +
		" ORDER BY event_time ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch logs for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	var out []models.LogLine
	for rows.Next() {
		var l models.LogLine
		if err := rows.Scan(
			&l.EventTime,
			&l.EventType,
			&l.PlayerName,
			&l.PlayerID,
			&l.PlayerTeam,
			&l.PlayerRole,
			&l.PlayerCombatScore,
			&l.PlayerOffenseScore,
			&l.PlayerDefenseScore,
			&l.PlayerSupportScore,
			&l.Player2Name,
			&l.Player2ID,
			&l.Player2Team,
			&l.Player2Role,
			&l.Weapon,
			&l.Old,
			&l.New,
			&l.TeamName,
			&l.SquadName,
			&l.Message,
		); err != nil {
			return nil, fmt.Errorf("fetch logs for session %d: %w", sessionID, err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch logs for session %d: %w", sessionID, err)
	}
	return out, nil
}

// PurgeSessionLogs deletes every log row for a session and reports how many
// were removed.
func (s *Store) PurgeSessionLogs(ctx context.Context, sessionID int64) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	tag, err := pool.Exec(ctx, "DELETE FROM session_logs WHERE session_id = $1", sessionID)
	if err != nil {
		return 0, fmt.Errorf("purge logs for session %d: %w", sessionID, err)
	}
	return tag.RowsAffected(), nil
}

// CreatePartition issues the idempotent DDL for the monthly session_logs
// partition covering monthStart. Safe to run concurrently for the same
// month; the store accepts redundant IF NOT EXISTS creates.
func (s *Store) CreatePartition(ctx context.Context, monthStart time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	monthStart = models.MonthOf(monthStart)
	ddl := partitionDDL(monthStart)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create partition for %s: %w", monthStart.Format("2006-01"), err)
	}
	s.log.Info().Str("month", monthStart.Format("2006-01")).Msg("Ensured session_logs partition")
	return nil
}

func partitionDDL(monthStart time.Time) string {
	monthEnd := monthStart.AddDate(0, 1, 0)
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS session_logs_%s PARTITION OF session_logs FOR VALUES FROM ('%s') TO ('%s')",
		monthStart.Format("2006_01"),
		monthStart.Format("2006-01-02"),
		monthEnd.Format("2006-01-02"),
	)
}
