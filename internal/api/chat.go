package api

import (
	"net/http"
	"time"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/auth"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/chat"
)

// OpenConversationRequest is the payload for POST /v1/conversations. The caller is always a
// participant.
type OpenConversationRequest struct {
	Participants []string `json:"participants"`
}

// SendMessageRequest is the payload for POST /v1/conversations/{id}/messages.
type SendMessageRequest struct {
	Body string `json:"body"`
}

// MarkReadRequest is the payload for POST /v1/conversations/{id}/read. A missing read_at means
// now.
type MarkReadRequest struct {
	ReadAt time.Time `json:"read_at"`
}

// MessagesResponse lists conversation history, oldest first.
type MessagesResponse struct {
	Items []chat.Message `json:"items"`
}

// UnreadResponse carries per-conversation unread counts.
type UnreadResponse struct {
	Conversations map[string]int `json:"conversations"`
	Total         int            `json:"total"`
}

func (h *Handler) openConversation(w http.ResponseWriter, r *http.Request) {
	claims := authorize(w, r, auth.ScopeChat)
	if claims == nil {
		return
	}

	var req OpenConversationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	conversation, err := h.chat.Open(r.Context(), claims.TenantID, append(req.Participants, claims.Subject))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	claims := authorize(w, r, auth.ScopeChat)
	if claims == nil {
		return
	}

	var req SendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	message, err := h.chat.Send(r.Context(), claims.TenantID, r.PathValue("id"), claims.Subject, req.Body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	claims := authorize(w, r, auth.ScopeChat)
	if claims == nil {
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"), 50, 200)
	messages, err := h.chat.History(r.Context(), claims.TenantID, r.PathValue("id"), claims.Subject, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Items: messages})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	claims := authorize(w, r, auth.ScopeChat)
	if claims == nil {
		return
	}

	var req MarkReadRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	marker, err := h.chat.MarkRead(r.Context(), claims.TenantID, r.PathValue("id"), claims.Subject, req.ReadAt)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, marker)
}

func (h *Handler) unread(w http.ResponseWriter, r *http.Request) {
	claims := authorize(w, r, auth.ScopeChat)
	if claims == nil {
		return
	}

	counts, err := h.chat.Unread(r.Context(), claims.TenantID, claims.Subject)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadResponse{Conversations: counts, Total: chat.TotalUnread(counts)})
}
