package api

import (
	"encoding/json"
	"net/http"
)

// createLobbyRequest is the request body for POST /lobbies.
type createLobbyRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// handleCreateLobby creates a lobby with the caller as its admin.
func (s *Server) handleCreateLobby(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	var req createLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	created, err := s.lobby.CreateLobby(r.Context(), claims, req.Name, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.logger.Info("lobby created", "lobby_id", created.ID, "admin_user_id", created.AdminUserID)
	writeJSON(w, http.StatusCreated, created)
}
