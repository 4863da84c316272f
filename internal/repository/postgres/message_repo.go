package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lynkr/lynkr/internal/domain"
	"github.com/lynkr/lynkr/internal/repository"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// messageColumns hydrates each row with the sender profile and a shallow
// preview of the replied-to message.
const messageColumns = `
	m.id, m.conversation_id, m.sender_id, m.content, m.message_type,
	m.image_url, m.file_url, m.file_name, m.file_size,
	m.reply_to_message_id, m.client_key, m.is_deleted, m.created_at, m.updated_at,
	u.display_name, u.avatar_url, u.headline,
	rm.id, rm.content, rm.message_type, ru.display_name`

const messageJoins = `
	FROM messages m
	JOIN users u ON u.id = m.sender_id
	LEFT JOIN messages rm ON rm.id = m.reply_to_message_id
	LEFT JOIN users ru ON ru.id = rm.sender_id`

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, message_type,
			image_url, file_url, file_name, file_size, reply_to_message_id,
			client_key, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false, $12, $12)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.MessageType,
		msg.ImageURL, msg.FileURL, msg.FileName, msg.FileSize, msg.ReplyToMessageID,
		msg.ClientKey, msg.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "messages_client_key_idx" {
			return repository.ErrDuplicateClientKey
		}
		return err
	}

	// The accepted insert bumps the conversation's activity watermark in
	// the same transaction; GREATEST keeps it non-decreasing.
	_, err = tx.Exec(ctx, `
		UPDATE conversations
		SET last_message_at = GREATEST(last_message_at, $2), updated_at = $2
		WHERE id = $1`,
		msg.ConversationID, msg.CreatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	// No is_deleted filter: tombstoned rows are still fetched so update
	// events can carry the flag.
	row := r.pool.QueryRow(ctx, "SELECT"+messageColumns+messageJoins+" WHERE m.id = $1", id)
	return scanMessage(row)
}

func (r *MessageRepo) GetByClientKey(ctx context.Context, conversationID uuid.UUID, clientKey string) (*domain.Message, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT"+messageColumns+messageJoins+" WHERE m.conversation_id = $1 AND m.client_key = $2",
		conversationID, clientKey)
	return scanMessage(row)
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT"+messageColumns+messageJoins+`
		WHERE m.conversation_id = $1 AND NOT m.is_deleted
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2 OFFSET $3`,
		conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order (query returns DESC)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *MessageRepo) GetLastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT"+messageColumns+messageJoins+`
		WHERE m.conversation_id = $1 AND NOT m.is_deleted
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT 1`,
		conversationID)
	return scanMessage(row)
}

func (r *MessageRepo) GetLastSenderProfile(ctx context.Context, conversationID, excludeSender uuid.UUID) (*domain.Profile, error) {
	var p domain.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.display_name, u.avatar_url, u.headline
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = $1 AND m.sender_id <> $2 AND NOT m.is_deleted
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT 1`,
		conversationID, excludeSender,
	).Scan(&p.ID, &p.FullName, &p.AvatarURL, &p.Headline)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MessageRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE messages SET is_deleted = true, updated_at = now() WHERE id = $1", id)
	return err
}

func (r *MessageRepo) CountUnread(ctx context.Context, conversationID, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM messages m
		JOIN conversation_participants p
			ON p.conversation_id = m.conversation_id AND p.user_id = $2
		WHERE m.conversation_id = $1
			AND m.sender_id <> $2
			AND NOT m.is_deleted
			AND (p.last_read_at IS NULL OR m.created_at > p.last_read_at)`,
		conversationID, userID,
	).Scan(&count)
	return count, err
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		msg         domain.Message
		sender      domain.Profile
		replyID     *uuid.UUID
		replyBody   *string
		replyType   *string
		replyByName *string
	)

	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.MessageType,
		&msg.ImageURL, &msg.FileURL, &msg.FileName, &msg.FileSize,
		&msg.ReplyToMessageID, &msg.ClientKey, &msg.IsDeleted, &msg.CreatedAt, &msg.UpdatedAt,
		&sender.FullName, &sender.AvatarURL, &sender.Headline,
		&replyID, &replyBody, &replyType, &replyByName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sender.ID = msg.SenderID
	msg.Sender = &sender

	if replyID != nil {
		preview := &domain.MessagePreview{
			ID:          *replyID,
			Content:     replyBody,
			MessageType: domain.MessageTypeText,
		}
		if replyType != nil {
			preview.MessageType = domain.MessageType(*replyType)
		}
		if replyByName != nil {
			preview.SenderName = *replyByName
		}
		msg.ReplyToMessage = preview
	}

	return &msg, nil
}
