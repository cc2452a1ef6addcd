package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/registry"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	reg     *registry.Registry
	archive *postgres.MessageArchive // nil — архив выключен
}

func NewHandler(reg *registry.Registry, archive *postgres.MessageArchive) *Handler {
	return &Handler{reg: reg, archive: archive}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrMessageNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAuthorized),
		errors.Is(err, domain.ErrDefaultRoom):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRoomFull),
		errors.Is(err, domain.ErrEditWindowExpired),
		errors.Is(err, domain.ErrWrongMessageType),
		errors.Is(err, domain.ErrNotInRoom),
		errors.Is(err, domain.ErrNoCurrentRoom):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrNameTaken),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrContentTooLong):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// POST /rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	room, err := h.reg.CreateRoom(req.Name, req.Description, UserIDFromCtx(r.Context()), req.IsPrivate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registry.RoomItem{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		IsPrivate:   room.IsPrivate,
		IsDefault:   room.IsDefault,
	})
}

// GET /rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RoomsListResponse{Items: h.reg.Rooms()})
}

// GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	room, members, err := h.reg.Room(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, registry.RoomItem{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		IsPrivate:   room.IsPrivate,
		IsDefault:   room.IsDefault,
		Members:     members,
	})
}

// DELETE /rooms/{id}
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.reg.DeleteRoom(UserIDFromCtx(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /rooms/{id}/messages?limit=&after=
// Без курсора отдаётся история из памяти; с курсором — глубокая выборка
// из архива (если он включён).
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	after := r.URL.Query().Get("after")

	if after != "" {
		if h.archive == nil {
			writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "message archive disabled"})
			return
		}
		h.archivedMessages(w, r, roomID, after, limit)
		return
	}

	items, err := h.reg.RoomMessages(roomID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Items: items})
}

func (h *Handler) archivedMessages(w http.ResponseWriter, r *http.Request, roomID, after string, limit int) {
	msgs, next, err := h.archive.History(r.Context(), roomID, after, limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.GetMessages archive:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	items := make([]registry.MessageItem, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, registry.MessageItem{
			ID:        m.ID,
			RoomID:    m.RoomID,
			UserID:    m.UserID,
			Username:  m.AuthorName,
			Content:   m.Content,
			Type:      m.Type,
			ReplyTo:   m.ReplyTo,
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Items: items, NextCursor: next})
}

// GET /rooms/{id}/participants
func (h *Handler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	items, err := h.reg.RoomParticipants(roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ParticipantsResponse{Items: items})
}

// POST /rooms/{id}/moderators
func (h *Handler) AddModerator(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	var req ModeratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	if err := h.reg.AddModerator(UserIDFromCtx(r.Context()), roomID, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

// DELETE /rooms/{id}/moderators/{userID}
func (h *Handler) RemoveModerator(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userID")
	if err := h.reg.RemoveModerator(UserIDFromCtx(r.Context()), roomID, userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// PATCH /messages/{id}
func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	msgID := chi.URLParam(r, "id")
	var req EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	msg, err := h.reg.EditMessage(UserIDFromCtx(r.Context()), msgID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, registry.MessageItem{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		Username:  msg.AuthorName,
		Content:   msg.Content,
		Type:      string(msg.Type),
		ReplyTo:   msg.ReplyTo,
		CreatedAt: msg.CreatedAt,
		EditedAt:  msg.EditedAt,
	})
}

// DELETE /messages/{id}
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	msgID := chi.URLParam(r, "id")
	if err := h.reg.DeleteMessage(UserIDFromCtx(r.Context()), msgID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /messages/{id}/reactions
func (h *Handler) AddReaction(w http.ResponseWriter, r *http.Request) {
	msgID := chi.URLParam(r, "id")
	var req ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	if err := h.reg.AddReaction(UserIDFromCtx(r.Context()), msgID, req.Emoji); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

// DELETE /messages/{id}/reactions/{emoji}
func (h *Handler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	msgID := chi.URLParam(r, "id")
	emoji := chi.URLParam(r, "emoji")
	if err := h.reg.RemoveReaction(UserIDFromCtx(r.Context()), msgID, emoji); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
