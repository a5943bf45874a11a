package lobby

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx,
// letting the same repository code run standalone or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// LobbyRepository defines the interface for lobby persistence.
type LobbyRepository interface {
	Create(ctx context.Context, l *Lobby) error
	GetByID(ctx context.Context, lobbyID string) (*Lobby, error)
	AdminUserID(ctx context.Context, lobbyID string) (string, error)
}

// SQLiteLobbyRepository implements LobbyRepository using SQLite.
type SQLiteLobbyRepository struct {
	q querier
}

// NewLobbyRepository creates a new SQLite-backed lobby repository.
func NewLobbyRepository(db *sql.DB) *SQLiteLobbyRepository {
	return &SQLiteLobbyRepository{q: db}
}

// withTx returns a copy of the repository bound to the given transaction.
func (r *SQLiteLobbyRepository) withTx(tx *sql.Tx) *SQLiteLobbyRepository {
	return &SQLiteLobbyRepository{q: tx}
}

// Create inserts a new lobby. The ID is generated if empty.
func (r *SQLiteLobbyRepository) Create(ctx context.Context, l *Lobby) error {
	if l.ID == "" {
		l.ID = "lob-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	l.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO lobbies (lobby_id, name, description, admin_user_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.Name, nullString(l.Description), l.AdminUserID, now,
	)
	if err != nil {
		return fmt.Errorf("creating lobby: %w", err)
	}
	return nil
}

// GetByID retrieves a lobby by its unique ID.
func (r *SQLiteLobbyRepository) GetByID(ctx context.Context, lobbyID string) (*Lobby, error) {
	var l Lobby
	var description sql.NullString
	var createdAt string

	err := r.q.QueryRowContext(ctx,
		"SELECT lobby_id, name, description, admin_user_id, created_at FROM lobbies WHERE lobby_id = ?",
		lobbyID,
	).Scan(&l.ID, &l.Name, &description, &l.AdminUserID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLobbyNotFound
		}
		return nil, fmt.Errorf("scanning lobby: %w", err)
	}

	if description.Valid {
		l.Description = description.String
	}
	l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &l, nil
}

// AdminUserID returns the admin of a lobby without loading the full row.
func (r *SQLiteLobbyRepository) AdminUserID(ctx context.Context, lobbyID string) (string, error) {
	var adminID string
	err := r.q.QueryRowContext(ctx,
		"SELECT admin_user_id FROM lobbies WHERE lobby_id = ?", lobbyID,
	).Scan(&adminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrLobbyNotFound
		}
		return "", fmt.Errorf("querying lobby admin: %w", err)
	}
	return adminID, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
