package followup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ingressos-web/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("follow-up not found or already resolved")

// Recorder is what checkout needs to leave a follow-up behind.
type Recorder interface {
	Save(ctx context.Context, rec *Record) error
}

type Repository interface {
	Recorder
	ListOpen(ctx context.Context, limit int) ([]Record, error)
	Resolve(ctx context.Context, id string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	const q = `
	INSERT INTO checkout_followups (
		id,
		kind,
		session_id,
		payment_id,
		order_id,
		share_token_fp,
		detail
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at;
	`

	err := r.db.QueryRowContext(
		ctx,
		q,
		rec.ID,
		rec.Kind,
		rec.SessionID,
		rec.PaymentID,
		rec.OrderID,
		rec.ShareTokenFP,
		rec.Detail,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save follow-up: %w", err)
	}
	return nil
}

func (r *repository) ListOpen(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, session_id, payment_id, order_id, share_token_fp, detail, created_at
		FROM checkout_followups
		WHERE resolved_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list follow-ups: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.Kind, &rec.SessionID, &rec.PaymentID,
			&rec.OrderID, &rec.ShareTokenFP, &rec.Detail, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan follow-up: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repository) Resolve(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE checkout_followups SET resolved_at = NOW()
		WHERE id = $1 AND resolved_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("resolve follow-up: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LogRecorder is used when no database is configured. Records only reach
// the log.
type LogRecorder struct{}

func (LogRecorder) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	logger.FromCtx(ctx).Warn("checkout follow-up required",
		zap.String("followup_id", rec.ID),
		zap.String("kind", string(rec.Kind)),
		zap.String("payment_id", rec.PaymentID),
		zap.String("order_id", rec.OrderID),
		zap.String("share_token_fp", rec.ShareTokenFP),
		zap.String("detail", rec.Detail),
	)
	return nil
}
