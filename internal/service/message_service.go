package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lynkr/lynkr/internal/domain"
	"github.com/lynkr/lynkr/internal/repository"
	"github.com/lynkr/lynkr/internal/storage"
)

var (
	ErrMessageNotFound       = errors.New("message not found")
	ErrNotMessageOwner       = errors.New("only the message sender can perform this action")
	ErrEmptyContent          = errors.New("message content is required")
	ErrMissingAttachment     = errors.New("attachment url is required for this message type")
	ErrInvalidMessageType    = errors.New("message type must be text, image or file")
	ErrAttachmentTooLarge    = errors.New("attachment exceeds the size limit")
	ErrUnsupportedAttachment = errors.New("attachment must be an image")
)

// MaxAttachmentSize is the upload cap checked before any store call.
const MaxAttachmentSize = 5 << 20 // 5 MiB

// Notifier broadcasts real-time change events to subscribers.
type Notifier interface {
	NotifyNewMessage(msg *domain.Message)
	NotifyMessageUpdated(msg *domain.Message)
	NotifyNewConversation(conv *domain.Conversation)
	NotifyConversationUpdated(conv *domain.Conversation)
}

type MessageService struct {
	messageRepo repository.MessageRepository
	convRepo    repository.ConversationRepository
	store       storage.ObjectStore
	notifier    Notifier
	now         func() time.Time
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	store storage.ObjectStore,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		convRepo:    convRepo,
		store:       store,
		now:         time.Now,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

type SendMessageInput struct {
	ConversationID   uuid.UUID  `json:"conversation_id"`
	Content          string     `json:"content"`
	MessageType      string     `json:"message_type"`
	ImageURL         *string    `json:"image_url,omitempty"`
	FileURL          *string    `json:"file_url,omitempty"`
	FileName         *string    `json:"file_name,omitempty"`
	FileSize         *int64     `json:"file_size,omitempty"`
	ReplyToMessageID *uuid.UUID `json:"reply_to_message_id,omitempty"`
	// ClientKey is an optional caller-generated idempotency key; a retried
	// send with the same key returns the already accepted message.
	ClientKey *string `json:"client_key,omitempty"`
}

// List returns non-deleted messages in chronological order. Page 0 is the
// newest `limit` messages; deeper offsets move backward in time.
func (s *MessageService) List(ctx context.Context, userID, conversationID uuid.UUID, limit, offset int) ([]domain.Message, error) {
	if err := s.checkParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := s.messageRepo.ListByConversation(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

func (s *MessageService) Send(ctx context.Context, userID uuid.UUID, input SendMessageInput) (*domain.Message, error) {
	if err := s.checkParticipant(ctx, userID, input.ConversationID); err != nil {
		return nil, err
	}

	msgType := domain.MessageType(input.MessageType)
	if input.MessageType == "" {
		msgType = domain.MessageTypeText
	}

	content := strings.TrimSpace(input.Content)

	// Rejected before anything touches the store.
	switch msgType {
	case domain.MessageTypeText:
		if content == "" {
			return nil, ErrEmptyContent
		}
	case domain.MessageTypeImage:
		if input.ImageURL == nil || *input.ImageURL == "" {
			return nil, ErrMissingAttachment
		}
	case domain.MessageTypeFile:
		if input.FileURL == nil || *input.FileURL == "" {
			return nil, ErrMissingAttachment
		}
	default:
		return nil, ErrInvalidMessageType
	}

	msg := &domain.Message{
		ID:               uuid.New(),
		ConversationID:   input.ConversationID,
		SenderID:         userID,
		MessageType:      msgType,
		ImageURL:         input.ImageURL,
		FileURL:          input.FileURL,
		FileName:         input.FileName,
		FileSize:         input.FileSize,
		ReplyToMessageID: input.ReplyToMessageID,
		ClientKey:        input.ClientKey,
		CreatedAt:        s.now().UTC(),
	}
	if content != "" {
		msg.Content = &content
	}

	err := s.messageRepo.Create(ctx, msg)
	if errors.Is(err, repository.ErrDuplicateClientKey) && input.ClientKey != nil {
		// Already accepted by an earlier attempt; hand back that row.
		existing, lookupErr := s.messageRepo.GetByClientKey(ctx, input.ConversationID, *input.ClientKey)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing != nil {
			return existing, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	full, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(full)
		// The insert bumped last_message_at, so conversation lists
		// re-sort; surface that as a conversation update.
		if conv, err := s.convRepo.GetByID(ctx, input.ConversationID); err == nil && conv != nil {
			s.notifier.NotifyConversationUpdated(conv)
		}
	}

	return full, nil
}

// Delete tombstones a message. Repeated calls are no-ops.
func (s *MessageService) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.SenderID != userID {
		return ErrNotMessageOwner
	}
	if msg.IsDeleted {
		return nil
	}

	if err := s.messageRepo.SoftDelete(ctx, messageID); err != nil {
		return err
	}

	if s.notifier != nil {
		// Soft deletion is an update carrying the flag, never a physical
		// removal event.
		if flagged, err := s.messageRepo.GetByID(ctx, messageID); err == nil && flagged != nil {
			s.notifier.NotifyMessageUpdated(flagged)
		}
	}

	return nil
}

type AttachmentUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadAttachment stores a message image and returns its public URL.
// Preconditions are enforced before any upload traffic.
func (s *MessageService) UploadAttachment(ctx context.Context, userID, conversationID uuid.UUID, upload AttachmentUpload) (string, error) {
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return "", ErrUnsupportedAttachment
	}
	if upload.Size > MaxAttachmentSize {
		return "", ErrAttachmentTooLarge
	}
	if err := s.checkParticipant(ctx, userID, conversationID); err != nil {
		return "", err
	}

	// Namespaced by sender, conversation and timestamp to avoid collisions.
	ext := strings.TrimPrefix(path.Ext(upload.FileName), ".")
	if ext == "" {
		ext = "bin"
	}
	objectPath := fmt.Sprintf("%s/%s/%d.%s", userID, conversationID, s.now().UnixMilli(), ext)

	if err := s.store.Upload(ctx, objectPath, upload.ContentType, upload.Data); err != nil {
		return "", fmt.Errorf("uploading attachment: %w", err)
	}

	return s.store.PublicURL(objectPath), nil
}

func (s *MessageService) checkParticipant(ctx context.Context, userID, conversationID uuid.UUID) error {
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return ErrNotParticipant
	}
	return nil
}
