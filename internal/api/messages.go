package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lockerroom/lockerroom-core/internal/events"
)

// postMessageRequest is the request body for POST /lobbies/{id}/messages.
type postMessageRequest struct {
	Content string `json:"content"`
}

// editMessageRequest is the request body for PATCH /messages/{id} and
// PATCH /messages/{id}/admin.
type editMessageRequest struct {
	Content string `json:"content"`
}

// deleteMessageRequest is the request body for DELETE /messages/{id}.
// The lobby id names which lobby's admin rights the caller is exercising.
type deleteMessageRequest struct {
	LobbyID string `json:"lobby_id"`
}

// handlePostMessage appends a message to the lobby named in the path.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	lobbyID := chi.URLParam(r, "id")
	msg, err := s.lobby.PostMessage(r.Context(), claims, lobbyID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.publishEvent(events.Event{
		Type:      events.EventMessagePosted,
		MessageID: msg.ID,
		LobbyID:   msg.LobbyID,
		UserID:    msg.UserID,
		Content:   msg.Content,
	})
	s.hub.Broadcast(lobbyChannel(msg.LobbyID), msg)

	writeJSON(w, http.StatusCreated, msg)
}

// handleViewMessages returns one page of the caller's lobby history.
// The lobby is resolved from the caller's own message history.
func (s *Server) handleViewMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "page must be an integer")
			return
		}
		page = parsed
	}

	result, err := s.lobby.ViewMessages(r.Context(), claims, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleEditMessage updates a message the caller authored.
func (s *Server) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	var req editMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	messageID := chi.URLParam(r, "id")
	msg, err := s.lobby.EditMessage(r.Context(), claims, messageID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.publishEvent(events.Event{
		Type:      events.EventMessageEdited,
		MessageID: msg.ID,
		LobbyID:   msg.LobbyID,
		UserID:    msg.UserID,
		Content:   msg.Content,
	})
	s.hub.Broadcast(lobbyChannel(msg.LobbyID), msg)

	writeJSON(w, http.StatusOK, msg)
}

// handleAdminEditMessage force-edits any message in a lobby the caller
// administers. The acting identity comes from the verified token.
func (s *Server) handleAdminEditMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	var req editMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	messageID := chi.URLParam(r, "id")
	msg, err := s.lobby.AdminEditMessage(r.Context(), claims, messageID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.logger.Info("admin edit", "message_id", msg.ID, "lobby_id", msg.LobbyID, "admin_user_id", claims.Subject)
	s.publishEvent(events.Event{
		Type:      events.EventMessageEdited,
		MessageID: msg.ID,
		LobbyID:   msg.LobbyID,
		UserID:    msg.UserID,
		Content:   msg.Content,
	})
	s.hub.Broadcast(lobbyChannel(msg.LobbyID), msg)

	writeJSON(w, http.StatusOK, msg)
}

// handleDeleteMessage removes a message as the admin of its lobby.
// Deleting an already-removed message succeeds.
func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	// The lobby id may travel in the body or, for clients that cannot
	// send a DELETE body, as a query parameter.
	var req deleteMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	lobbyID := req.LobbyID
	if lobbyID == "" {
		lobbyID = r.URL.Query().Get("lobby_id")
	}

	messageID := chi.URLParam(r, "id")
	if err := s.lobby.DeleteMessage(r.Context(), claims, messageID, lobbyID); err != nil {
		writeServiceError(w, err)
		return
	}

	s.publishEvent(events.Event{
		Type:      events.EventMessageDeleted,
		MessageID: messageID,
		LobbyID:   lobbyID,
	})
	s.hub.Broadcast(lobbyChannel(lobbyID), map[string]string{
		"event":      "deleted",
		"message_id": messageID,
		"lobby_id":   lobbyID,
	})

	w.WriteHeader(http.StatusNoContent)
}
