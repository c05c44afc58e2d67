package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/practicehub/practicehub/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFrom(ctx, r.pool)
}

const msgCols = `id, sender_id, recipient_id, patient_id, thread_id, subject, body, priority, read_at, created_at`

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	var priority string
	err := row.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.PatientID, &m.ThreadID, &m.Subject, &m.Body,
		&priority, &m.ReadAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Priority = Priority(priority)
	return &m, nil
}

func (r *repoPG) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Message, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM message WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM message WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		msgCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	items, err := collect(rows)
	return items, total, err
}

func collect(rows pgx.Rows) ([]*Message, error) {
	defer rows.Close()
	var items []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, m *Message) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO message (id, sender_id, recipient_id, patient_id, thread_id, subject, body, priority)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		m.ID, m.SenderID, m.RecipientID, m.PatientID, m.ThreadID, m.Subject, m.Body, string(m.Priority),
	).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Message, error) {
	return scanMessage(r.conn(ctx).QueryRow(ctx, `SELECT `+msgCols+` FROM message WHERE id = $1`, id))
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM message WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) ListInbox(ctx context.Context, recipient uuid.UUID, unreadOnly bool, limit, offset int) ([]*Message, int, error) {
	where := `recipient_id = $1`
	if unreadOnly {
		where += ` AND read_at IS NULL`
	}
	return r.list(ctx, where, []interface{}{recipient}, limit, offset)
}

func (r *repoPG) ListSent(ctx context.Context, sender uuid.UUID, limit, offset int) ([]*Message, int, error) {
	return r.list(ctx, `sender_id = $1`, []interface{}{sender}, limit, offset)
}

func (r *repoPG) ListThread(ctx context.Context, threadID, user uuid.UUID) ([]*Message, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+msgCols+` FROM message
		WHERE thread_id = $1 AND (sender_id = $2 OR recipient_id = $2)
		ORDER BY created_at`, threadID, user)
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	return collect(rows)
}

func (r *repoPG) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE message SET read_at = COALESCE(read_at, $2) WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) UnreadCount(ctx context.Context, recipient uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM message WHERE recipient_id = $1 AND read_at IS NULL`, recipient).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return n, nil
}
