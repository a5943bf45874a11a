package lobby

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageRepository defines the interface for message persistence.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, messageID string) (*Message, error)
	Owner(ctx context.Context, messageID string) (string, error)
	FirstLobbyForAuthor(ctx context.Context, userID string) (string, error)
	ListByLobby(ctx context.Context, lobbyID string, limit, offset int) ([]Message, error)
	CountByLobby(ctx context.Context, lobbyID string) (int, error)
	UpdateContent(ctx context.Context, messageID, content string) error
	Delete(ctx context.Context, messageID, lobbyID string) (bool, error)
	AdminForMessage(ctx context.Context, messageID string) (adminUserID, lobbyID string, err error)
}

// SQLiteMessageRepository implements MessageRepository using SQLite.
type SQLiteMessageRepository struct {
	q querier
}

// NewMessageRepository creates a new SQLite-backed message repository.
func NewMessageRepository(db *sql.DB) *SQLiteMessageRepository {
	return &SQLiteMessageRepository{q: db}
}

// withTx returns a copy of the repository bound to the given transaction.
func (r *SQLiteMessageRepository) withTx(tx *sql.Tx) *SQLiteMessageRepository {
	return &SQLiteMessageRepository{q: tx}
}

// Create inserts a new message. The ID is generated if empty.
func (r *SQLiteMessageRepository) Create(ctx context.Context, m *Message) error {
	if m.ID == "" {
		m.ID = "msg-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	m.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO messages (message_id, content, user_id, lobby_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Content, m.UserID, m.LobbyID, now,
	)
	if err != nil {
		return fmt.Errorf("creating message: %w", err)
	}
	return nil
}

// GetByID retrieves a message by its unique ID.
func (r *SQLiteMessageRepository) GetByID(ctx context.Context, messageID string) (*Message, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT message_id, content, user_id, lobby_id, created_at FROM messages WHERE message_id = ?",
		messageID,
	)
	return scanMessageRow(row)
}

// Owner returns the author's user id for a message.
func (r *SQLiteMessageRepository) Owner(ctx context.Context, messageID string) (string, error) {
	var userID string
	err := r.q.QueryRowContext(ctx,
		"SELECT user_id FROM messages WHERE message_id = ?", messageID,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrMessageNotFound
		}
		return "", fmt.Errorf("querying message owner: %w", err)
	}
	return userID, nil
}

// FirstLobbyForAuthor resolves the first (arbitrary) lobby among the
// user's authored messages. This is the single-lobby-per-user shim: it is
// not a membership set, just whichever lobby the query returns first.
func (r *SQLiteMessageRepository) FirstLobbyForAuthor(ctx context.Context, userID string) (string, error) {
	var lobbyID string
	err := r.q.QueryRowContext(ctx,
		"SELECT DISTINCT lobby_id FROM messages WHERE user_id = ? LIMIT 1", userID,
	).Scan(&lobbyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoLobbyMembership
		}
		return "", fmt.Errorf("resolving lobby for author: %w", err)
	}
	return lobbyID, nil
}

// ListByLobby returns one page of a lobby's messages, newest first.
// rowid breaks ties for messages created within the same second.
func (r *SQLiteMessageRepository) ListByLobby(ctx context.Context, lobbyID string, limit, offset int) ([]Message, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT message_id, content, user_id, lobby_id, created_at FROM messages
		 WHERE lobby_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		lobbyID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	if messages == nil {
		messages = []Message{}
	}
	return messages, nil
}

// CountByLobby returns the total number of messages in a lobby.
func (r *SQLiteMessageRepository) CountByLobby(ctx context.Context, lobbyID string) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE lobby_id = ?", lobbyID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return count, nil
}

// UpdateContent replaces a message's content. Authorisation is decided by
// the caller; this is the mutation half of a decide-then-write sequence.
func (r *SQLiteMessageRepository) UpdateContent(ctx context.Context, messageID, content string) error {
	result, err := r.q.ExecContext(ctx,
		"UPDATE messages SET content = ? WHERE message_id = ?", content, messageID,
	)
	if err != nil {
		return fmt.Errorf("updating message: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Delete removes a message scoped to a lobby. Returns whether a row was
// actually removed; deleting an already-absent message is not an error.
func (r *SQLiteMessageRepository) Delete(ctx context.Context, messageID, lobbyID string) (bool, error) {
	result, err := r.q.ExecContext(ctx,
		"DELETE FROM messages WHERE message_id = ? AND lobby_id = ?", messageID, lobbyID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting message: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return rows > 0, nil
}

// AdminForMessage resolves the admin of the lobby that owns a message.
func (r *SQLiteMessageRepository) AdminForMessage(ctx context.Context, messageID string) (string, string, error) {
	var adminUserID, lobbyID string
	err := r.q.QueryRowContext(ctx,
		`SELECT l.admin_user_id, l.lobby_id
		 FROM lobbies l
		 JOIN messages m ON m.lobby_id = l.lobby_id
		 WHERE m.message_id = ?`,
		messageID,
	).Scan(&adminUserID, &lobbyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrMessageNotFound
		}
		return "", "", fmt.Errorf("resolving lobby admin for message: %w", err)
	}
	return adminUserID, lobbyID, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(rows *sql.Rows) (*Message, error) {
	return scanMessageFrom(rows)
}

func scanMessageRow(row *sql.Row) (*Message, error) {
	return scanMessageFrom(row)
}

func scanMessageFrom(s scanner) (*Message, error) {
	var m Message
	var createdAt string

	err := s.Scan(&m.ID, &m.Content, &m.UserID, &m.LobbyID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &m, nil
}
