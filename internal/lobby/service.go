package lobby

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lockerroom/lockerroom-core/internal/auth"
)

// Service is the access-control decision point for lobbies and messages.
//
// Every operation takes the verified claims attached by the API gate and
// is a pure function of (identity, store snapshot, action). Operations
// that read state before mutating it run inside a single transaction.
type Service struct {
	db       *sql.DB
	users    auth.UserRepository
	lobbies  *SQLiteLobbyRepository
	messages *SQLiteMessageRepository
}

// NewService creates a lobby service over the given database handle.
func NewService(db *sql.DB, users auth.UserRepository) *Service {
	return &Service{
		db:       db,
		users:    users,
		lobbies:  NewLobbyRepository(db),
		messages: NewMessageRepository(db),
	}
}

// resolveUser loads the acting user's account from the claims' email.
// The lookup goes through the store rather than trusting the subject id
// alone, so a deleted account cannot keep acting through an old token.
func (s *Service) resolveUser(ctx context.Context, claims *auth.Claims) (*auth.User, error) {
	return s.users.GetByEmail(ctx, claims.Email)
}

// CreateLobby creates a new lobby with the caller as its fixed admin.
// Any authenticated user may create a lobby.
func (s *Service) CreateLobby(ctx context.Context, claims *auth.Claims, name, description string) (*Lobby, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	user, err := s.resolveUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	l := &Lobby{
		Name:        name,
		Description: description,
		AdminUserID: user.ID,
	}
	if err := s.lobbies.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// PostMessage appends a message to a lobby as the caller. There is no
// membership check: any authenticated user may post into any lobby by id.
func (s *Service) PostMessage(ctx context.Context, claims *auth.Claims, lobbyID, content string) (*Message, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if lobbyID == "" {
		return nil, fmt.Errorf("%w: lobby_id is required", ErrValidation)
	}

	user, err := s.resolveUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	// Existence check up front so an unknown lobby reads as not-found
	// rather than a foreign-key failure.
	if _, err := s.lobbies.AdminUserID(ctx, lobbyID); err != nil {
		return nil, err
	}

	m := &Message{
		Content: content,
		UserID:  user.ID,
		LobbyID: lobbyID,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ViewMessages returns one page of the caller's lobby history, newest
// first. The lobby is resolved from the caller's own authorship: the
// first lobby they have ever posted in. A caller who has never posted
// has no resolvable lobby.
func (s *Service) ViewMessages(ctx context.Context, claims *auth.Claims, page int) (*MessagePage, error) {
	user, err := s.resolveUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	lobbyID, err := s.messages.FirstLobbyForAuthor(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * PageSize

	messages, err := s.messages.ListByLobby(ctx, lobbyID, PageSize, offset)
	if err != nil {
		return nil, err
	}

	total, err := s.messages.CountByLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}

	return &MessagePage{
		Messages:    messages,
		CurrentPage: page,
		TotalPages:  (total + PageSize - 1) / PageSize,
		PageSize:    PageSize,
	}, nil
}

// EditMessage updates the content of a message the caller authored.
// A missing message and a message owned by someone else produce the
// same ErrMessageNotFound, so existence cannot be probed.
func (s *Service) EditMessage(ctx context.Context, claims *auth.Claims, messageID, content string) (*Message, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	user, err := s.resolveUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	messages := s.messages.withTx(tx)

	owner, err := messages.Owner(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if owner != user.ID {
		return nil, ErrMessageNotFound
	}

	if err := messages.UpdateContent(ctx, messageID, content); err != nil {
		return nil, err
	}

	updated, err := messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing edit: %w", err)
	}
	return updated, nil
}

// DeleteMessage removes a message from a lobby. Only the lobby's admin
// may delete; everyone else gets ErrNotAdmin. Deleting a message that is
// already gone succeeds without effect.
func (s *Service) DeleteMessage(ctx context.Context, claims *auth.Claims, messageID, lobbyID string) error {
	if messageID == "" || lobbyID == "" {
		return fmt.Errorf("%w: message_id and lobby_id are required", ErrValidation)
	}

	user, err := s.resolveUser(ctx, claims)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	admin, err := s.lobbies.withTx(tx).AdminUserID(ctx, lobbyID)
	if err != nil {
		return err
	}
	if admin != user.ID {
		return ErrNotAdmin
	}

	if _, err := s.messages.withTx(tx).Delete(ctx, messageID, lobbyID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// AdminEditMessage force-edits any message in a lobby the caller
// administers. The acting identity always comes from the verified token;
// the admin check compares it against the admin stored on the lobby that
// owns the message.
func (s *Service) AdminEditMessage(ctx context.Context, claims *auth.Claims, messageID, content string) (*Message, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	user, err := s.resolveUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	messages := s.messages.withTx(tx)

	admin, _, err := messages.AdminForMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if admin != user.ID {
		return nil, ErrNotAdmin
	}

	if err := messages.UpdateContent(ctx, messageID, content); err != nil {
		return nil, err
	}

	updated, err := messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing admin edit: %w", err)
	}
	return updated, nil
}
