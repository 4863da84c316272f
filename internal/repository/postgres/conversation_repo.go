package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lynkr/lynkr/internal/domain"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) CreatePair(ctx context.Context, conv *domain.Conversation, userA, userB uuid.UUID) (*domain.Conversation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// The unique pair key makes this idempotent: when another caller won
	// the race, the insert is a no-op and the select below returns their
	// row.
	tag, err := tx.Exec(ctx, `
		INSERT INTO conversations (id, pair_key, created_at, updated_at, last_message_at)
		VALUES ($1, $2, $3, $3, $3)
		ON CONFLICT (pair_key) DO NOTHING`,
		conv.ID, conv.PairKey, conv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tag.RowsAffected() == 1 {
		_, err = tx.Exec(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
			VALUES ($1, $2, $4), ($1, $3, $4)`,
			conv.ID, userA, userB, conv.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
	}

	created, err := r.getByPairKey(ctx, tx, conv.PairKey)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *ConversationRepo) GetByPairKey(ctx context.Context, pairKey string) (*domain.Conversation, error) {
	return r.getByPairKey(ctx, r.pool, pairKey)
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	return r.scanConversation(ctx,
		"SELECT id, pair_key, created_at, updated_at, last_message_at FROM conversations WHERE id = $1", id)
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.pair_key, c.created_at, c.updated_at, c.last_message_at
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE p.user_id = $1
		ORDER BY c.last_message_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		if err := rows.Scan(&c.ID, &c.PairKey, &c.CreatedAt, &c.UpdatedAt, &c.LastMessageAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadParticipants(ctx, convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *ConversationRepo) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, readAt time.Time) error {
	// GREATEST keeps the watermark monotone under concurrent opens.
	_, err := r.pool.Exec(ctx, `
		UPDATE conversation_participants
		SET last_read_at = GREATEST(COALESCE(last_read_at, 'epoch'::timestamptz), $3)
		WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID, readAt,
	)
	return err
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *ConversationRepo) getByPairKey(ctx context.Context, q queryer, pairKey string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := q.QueryRow(ctx,
		"SELECT id, pair_key, created_at, updated_at, last_message_at FROM conversations WHERE pair_key = $1",
		pairKey,
	).Scan(&c.ID, &c.PairKey, &c.CreatedAt, &c.UpdatedAt, &c.LastMessageAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	parts, err := r.participantsFor(ctx, q, c.ID)
	if err != nil {
		return nil, err
	}
	c.Participants = parts
	return &c, nil
}

func (r *ConversationRepo) scanConversation(ctx context.Context, query string, arg any) (*domain.Conversation, error) {
	var c domain.Conversation
	err := r.pool.QueryRow(ctx, query, arg).Scan(&c.ID, &c.PairKey, &c.CreatedAt, &c.UpdatedAt, &c.LastMessageAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	parts, err := r.participantsFor(ctx, r.pool, c.ID)
	if err != nil {
		return nil, err
	}
	c.Participants = parts
	return &c, nil
}

func (r *ConversationRepo) loadParticipants(ctx context.Context, convs []domain.Conversation) error {
	if len(convs) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(convs))
	index := make(map[uuid.UUID]int, len(convs))
	for i := range convs {
		ids[i] = convs[i].ID
		index[convs[i].ID] = i
	}

	rows, err := r.pool.Query(ctx, `
		SELECT conversation_id, user_id, joined_at, last_read_at
		FROM conversation_participants
		WHERE conversation_id = ANY($1)
		ORDER BY joined_at`,
		ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.ConversationParticipant
		if err := rows.Scan(&p.ConversationID, &p.UserID, &p.JoinedAt, &p.LastReadAt); err != nil {
			return err
		}
		i := index[p.ConversationID]
		convs[i].Participants = append(convs[i].Participants, p)
	}
	return rows.Err()
}

func (r *ConversationRepo) participantsFor(ctx context.Context, q queryer, conversationID uuid.UUID) ([]domain.ConversationParticipant, error) {
	rows, err := q.Query(ctx, `
		SELECT conversation_id, user_id, joined_at, last_read_at
		FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY joined_at`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []domain.ConversationParticipant
	for rows.Next() {
		var p domain.ConversationParticipant
		if err := rows.Scan(&p.ConversationID, &p.UserID, &p.JoinedAt, &p.LastReadAt); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}
