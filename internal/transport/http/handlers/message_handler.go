package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/lynkr/lynkr/internal/service"
	"github.com/lynkr/lynkr/internal/transport/http/middleware"
	"github.com/lynkr/lynkr/pkg/validator"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// List returns a page of the conversation's messages in chronological
// order. Page 0 is the newest `limit` messages.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	offset := 0
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			offset = p * limit
		}
	}

	messages, err := h.messageService.List(r.Context(), userID, convID, limit, offset)
	if err != nil {
		writeConversationError(w, "list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	var input service.SendMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	input.ConversationID = convID

	if errs := validator.ValidateSendMessage(input.MessageType, input.Content, input.ImageURL, input.FileURL); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messageService.Send(r.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyContent):
			writeError(w, http.StatusBadRequest, "MISSING_CONTENT", "Message content is required")
		case errors.Is(err, service.ErrMissingAttachment):
			writeError(w, http.StatusBadRequest, "MISSING_ATTACHMENT", "Attachment URL is required for this message type")
		case errors.Is(err, service.ErrInvalidMessageType):
			writeError(w, http.StatusBadRequest, "INVALID_TYPE", "Message type must be text, image or file")
		default:
			writeConversationError(w, "send message", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// Delete tombstones the caller's own message.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	if err := h.messageService.Delete(r.Context(), userID, messageID); err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
		case errors.Is(err, service.ErrNotMessageOwner):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You can only delete your own messages")
		default:
			log.Printf("ERROR delete message: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadAttachment stores an image for later use in an image message and
// returns its public URL.
func (h *MessageHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	if err := r.ParseMultipartForm(service.MaxAttachmentSize); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "A file field is required")
		return
	}
	defer file.Close()

	url, err := h.messageService.UploadAttachment(r.Context(), userID, convID, service.AttachmentUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        file,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedAttachment):
			writeError(w, http.StatusBadRequest, "UNSUPPORTED_TYPE", "Only image uploads are allowed")
		case errors.Is(err, service.ErrAttachmentTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", "Attachment exceeds the 5 MB limit")
		default:
			writeConversationError(w, "upload attachment", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// writeConversationError maps the shared conversation access errors;
// anything unrecognized is logged and reported as internal.
func writeConversationError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
	case errors.Is(err, service.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a participant of this conversation")
	default:
		log.Printf("ERROR %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
	}
}
