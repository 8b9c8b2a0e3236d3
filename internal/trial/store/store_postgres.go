package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"trialgate/internal/trial/models"
	"trialgate/pkg/platform/sentinel"
	"trialgate/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// PostgresStore persists trial records in PostgreSQL.
// This store is pure I/O; lifecycle rules belong in the service.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// -----------------------------------------------------------------------------
// Pending verifications
// -----------------------------------------------------------------------------

const pendingColumns = `user_id, display_name, country, email, source_ip, marketing_opt_in, step1_passed,
	phone, state, block_reason, manual_review, attempt_timestamps, created_at, updated_at`

func (s *PostgresStore) GetPending(ctx context.Context, id models.UserID) (*models.PendingVerification, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_verifications WHERE user_id = $1`
	p, err := scanPending(tx.Q(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get pending verification %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get pending verification: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpdatePending(ctx context.Context, id models.UserID, fn func(p *models.PendingVerification) error) (*models.PendingVerification, error) {
	var out *models.PendingVerification
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Q(ctx, s.db)
		query := `SELECT ` + pendingColumns + ` FROM pending_verifications WHERE user_id = $1 FOR UPDATE`
		current, err := scanPending(q.QueryRowContext(ctx, query, id))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			current = &models.PendingVerification{UserID: id}
		case err != nil:
			return fmt.Errorf("lock pending verification: %w", err)
		}
		if err := fn(current); err != nil {
			return err
		}
		current.UserID = id
		upsert := `
			INSERT INTO pending_verifications (` + pendingColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (user_id) DO UPDATE SET
				display_name = EXCLUDED.display_name,
				country = EXCLUDED.country,
				email = EXCLUDED.email,
				source_ip = EXCLUDED.source_ip,
				marketing_opt_in = EXCLUDED.marketing_opt_in,
				step1_passed = EXCLUDED.step1_passed,
				phone = EXCLUDED.phone,
				state = EXCLUDED.state,
				block_reason = EXCLUDED.block_reason,
				manual_review = EXCLUDED.manual_review,
				attempt_timestamps = EXCLUDED.attempt_timestamps,
				updated_at = EXCLUDED.updated_at
		`
		_, err = q.ExecContext(ctx, upsert,
			current.UserID,
			current.DisplayName,
			current.Country,
			current.Email,
			current.SourceIP,
			current.MarketingOptIn,
			current.Step1Passed,
			current.Phone,
			string(current.State),
			current.BlockReason,
			current.ManualReview,
			encodeTimes(current.AttemptTimestamps),
			current.CreatedAt,
			current.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert pending verification: %w", err)
		}
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) DeletePending(ctx context.Context, id models.UserID) error {
	if _, err := tx.Q(ctx, s.db).ExecContext(ctx, `DELETE FROM pending_verifications WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("delete pending verification: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx,
		`DELETE FROM pending_verifications WHERE updated_at < $1 AND state <> $2`,
		cutoff, string(models.StateCooldownBlocked),
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale pending verifications: %w", err)
	}
	return rowsAffected(res)
}

// -----------------------------------------------------------------------------
// Trials
// -----------------------------------------------------------------------------

const activeColumns = `user_id, join_time, total_hours, trial_end_at, signature`

func (s *PostgresStore) GetActive(ctx context.Context, id models.UserID) (*models.ActiveTrial, error) {
	query := `SELECT ` + activeColumns + ` FROM active_trials WHERE user_id = $1`
	t, err := scanActive(tx.Q(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get active trial %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get active trial: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.ActiveTrial, error) {
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, `SELECT `+activeColumns+` FROM active_trials ORDER BY trial_end_at`)
	if err != nil {
		return nil, fmt.Errorf("list active trials: %w", err)
	}
	defer rows.Close()

	var out []*models.ActiveTrial
	for rows.Next() {
		t, err := scanActive(rows)
		if err != nil {
			return nil, fmt.Errorf("scan active trial: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active trials: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) StartTrial(ctx context.Context, trial *models.ActiveTrial) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Q(ctx, s.db)
		_, err := q.ExecContext(ctx,
			`INSERT INTO active_trials (`+activeColumns+`) VALUES ($1, $2, $3, $4, $5)`,
			trial.UserID, trial.JoinTime, trial.TotalHours, trial.TrialEndAt, trial.Signature,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return fmt.Errorf("start trial %s: %w", trial.UserID, sentinel.ErrConflict)
			}
			return fmt.Errorf("insert active trial: %w", err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM pending_verifications WHERE user_id = $1`, trial.UserID); err != nil {
			return fmt.Errorf("clear pending verification: %w", err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM invites WHERE user_id = $1`, trial.UserID); err != nil {
			return fmt.Errorf("clear invite: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) FinalizeTrial(ctx context.Context, used *models.UsedTrial) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Q(ctx, s.db)
		res, err := q.ExecContext(ctx, `DELETE FROM active_trials WHERE user_id = $1`, used.UserID)
		if err != nil {
			return fmt.Errorf("delete active trial: %w", err)
		}
		if n, err := rowsAffected(res); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("finalize trial %s: %w", used.UserID, sentinel.ErrNotFound)
		}
		return s.insertUsed(ctx, q, used)
	})
}

func (s *PostgresStore) AppendUsed(ctx context.Context, used *models.UsedTrial) error {
	return s.insertUsed(ctx, tx.Q(ctx, s.db), used)
}

func (s *PostgresStore) insertUsed(ctx context.Context, q tx.Querier, used *models.UsedTrial) error {
	query := `
		INSERT INTO used_trials (user_id, ended_reason, ended_at, hours_used, hours_remaining, removal_pending, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var endedAt sql.NullTime
	if !used.EndedAt.IsZero() {
		endedAt = sql.NullTime{Time: used.EndedAt, Valid: true}
	}
	err := q.QueryRowContext(ctx, query,
		used.UserID,
		string(used.EndedReason),
		endedAt,
		used.HoursUsed,
		used.HoursRemaining,
		used.RemovalPending,
		used.CreatedAt,
	).Scan(&used.ID)
	if err != nil {
		return fmt.Errorf("insert used trial: %w", err)
	}
	return nil
}

const usedColumns = `id, user_id, ended_reason, ended_at, hours_used, hours_remaining, removal_pending, created_at`

func (s *PostgresStore) ListUsed(ctx context.Context, id models.UserID) ([]*models.UsedTrial, error) {
	return s.queryUsed(ctx, `SELECT `+usedColumns+` FROM used_trials WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, id)
}

func (s *PostgresStore) ListRemovalPending(ctx context.Context) ([]*models.UsedTrial, error) {
	return s.queryUsed(ctx, `SELECT `+usedColumns+` FROM used_trials WHERE removal_pending ORDER BY id`)
}

func (s *PostgresStore) queryUsed(ctx context.Context, query string, args ...any) ([]*models.UsedTrial, error) {
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list used trials: %w", err)
	}
	defer rows.Close()

	var out []*models.UsedTrial
	for rows.Next() {
		u, err := scanUsed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan used trial: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate used trials: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ClearRemovalPending(ctx context.Context, usedID int64) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `UPDATE used_trials SET removal_pending = FALSE WHERE id = $1`, usedID)
	if err != nil {
		return fmt.Errorf("clear removal pending: %w", err)
	}
	if n, err := rowsAffected(res); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("used trial %d: %w", usedID, sentinel.ErrNotFound)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Invites
// -----------------------------------------------------------------------------

func (s *PostgresStore) GetInvite(ctx context.Context, id models.UserID) (*models.Invite, error) {
	var inv models.Invite
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT user_id, link, created_at, expires_at FROM invites WHERE user_id = $1`, id,
	).Scan(&inv.UserID, &inv.Link, &inv.CreatedAt, &inv.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get invite %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get invite: %w", err)
	}
	return &inv, nil
}

func (s *PostgresStore) SaveInvite(ctx context.Context, invite *models.Invite) error {
	query := `
		INSERT INTO invites (user_id, link, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			link = EXCLUDED.link,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`
	if _, err := tx.Q(ctx, s.db).ExecContext(ctx, query, invite.UserID, invite.Link, invite.CreatedAt, invite.ExpiresAt); err != nil {
		return fmt.Errorf("save invite: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteInvite(ctx context.Context, id models.UserID) error {
	if _, err := tx.Q(ctx, s.db).ExecContext(ctx, `DELETE FROM invites WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteExpiredInvites(ctx context.Context, now time.Time) (int, error) {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `DELETE FROM invites WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired invites: %w", err)
	}
	return rowsAffected(res)
}

// -----------------------------------------------------------------------------
// Bans
// -----------------------------------------------------------------------------

func (s *PostgresStore) GetBan(ctx context.Context, id models.UserID) (*models.Ban, error) {
	var b models.Ban
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT user_id, reason, created_at FROM bans WHERE user_id = $1`, id,
	).Scan(&b.UserID, &b.Reason, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get ban %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get ban: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) SaveBan(ctx context.Context, ban *models.Ban) error {
	query := `
		INSERT INTO bans (user_id, reason, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET reason = EXCLUDED.reason
	`
	if _, err := tx.Q(ctx, s.db).ExecContext(ctx, query, ban.UserID, ban.Reason, ban.CreatedAt); err != nil {
		return fmt.Errorf("save ban: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteBan(ctx context.Context, id models.UserID) error {
	if _, err := tx.Q(ctx, s.db).ExecContext(ctx, `DELETE FROM bans WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("delete ban: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Scanning
// -----------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPending(row rowScanner) (*models.PendingVerification, error) {
	var (
		p        models.PendingVerification
		state    string
		attempts pq.Int64Array
	)
	err := row.Scan(
		&p.UserID,
		&p.DisplayName,
		&p.Country,
		&p.Email,
		&p.SourceIP,
		&p.MarketingOptIn,
		&p.Step1Passed,
		&p.Phone,
		&state,
		&p.BlockReason,
		&p.ManualReview,
		&attempts,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.State = models.State(state)
	p.AttemptTimestamps = decodeTimes(attempts)
	return &p, nil
}

func scanActive(row rowScanner) (*models.ActiveTrial, error) {
	var t models.ActiveTrial
	if err := row.Scan(&t.UserID, &t.JoinTime, &t.TotalHours, &t.TrialEndAt, &t.Signature); err != nil {
		return nil, err
	}
	t.JoinTime = t.JoinTime.UTC()
	t.TrialEndAt = t.TrialEndAt.UTC()
	return &t, nil
}

func scanUsed(row rowScanner) (*models.UsedTrial, error) {
	var (
		u         models.UsedTrial
		reason    string
		endedAt   sql.NullTime
		used      sql.NullFloat64
		remaining sql.NullFloat64
	)
	err := row.Scan(&u.ID, &u.UserID, &reason, &endedAt, &used, &remaining, &u.RemovalPending, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.EndedReason = models.EndedReason(reason)
	if endedAt.Valid {
		u.EndedAt = endedAt.Time.UTC()
	}
	if used.Valid {
		u.HoursUsed = &used.Float64
	}
	if remaining.Valid {
		u.HoursRemaining = &remaining.Float64
	}
	return &u, nil
}

// attempt timestamps are stored as unix milliseconds in a BIGINT[] column
func encodeTimes(ts []time.Time) pq.Int64Array {
	out := make(pq.Int64Array, len(ts))
	for i, t := range ts {
		out[i] = t.UnixMilli()
	}
	return out
}

func decodeTimes(ms pq.Int64Array) []time.Time {
	if len(ms) == 0 {
		return nil
	}
	out := make([]time.Time, len(ms))
	for i, v := range ms {
		out[i] = time.UnixMilli(v).UTC()
	}
	return out
}

func rowsAffected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
