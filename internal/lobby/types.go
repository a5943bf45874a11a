package lobby

import (
	"errors"
	"time"
)

// Lobby is a named chat room with exactly one admin, fixed at creation.
// There is no ownership transfer and no membership list.
type Lobby struct {
	ID          string    `json:"lobby_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AdminUserID string    `json:"admin_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is a single chat message. Edits change content only; the id,
// author and lobby are fixed at creation.
type Message struct {
	ID        string    `json:"message_id"`
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	LobbyID   string    `json:"lobby_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PageSize is the fixed number of messages per page.
const PageSize = 10

// MessagePage is one page of a lobby's message history, newest first.
type MessagePage struct {
	Messages    []Message `json:"messages"`
	CurrentPage int       `json:"current_page"`
	TotalPages  int       `json:"total_pages"`
	PageSize    int       `json:"page_size"`
}

// Sentinel errors for lobby operations.
var (
	// ErrValidation indicates a required field is missing or empty.
	ErrValidation = errors.New("missing required fields")

	// ErrLobbyNotFound indicates the referenced lobby does not exist.
	ErrLobbyNotFound = errors.New("lobby not found")

	// ErrMessageNotFound covers both a missing message and a message the
	// caller does not own. The two cases are intentionally
	// indistinguishable so existence cannot be probed.
	ErrMessageNotFound = errors.New("message not found")

	// ErrNoLobbyMembership indicates the caller has never posted anywhere,
	// so no lobby can be resolved for them.
	ErrNoLobbyMembership = errors.New("user is not a member of any lobby")

	// ErrNotAdmin indicates the caller is not the admin of the lobby.
	ErrNotAdmin = errors.New("not the lobby admin")
)
