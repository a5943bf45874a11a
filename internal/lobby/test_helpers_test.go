package lobby

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lockerroom/lockerroom-core/internal/auth"
)

// testDB creates a temporary SQLite database with the full chat schema.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "lobby-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			nickname TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE lobbies (
			lobby_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			admin_user_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (admin_user_id) REFERENCES users(id)
		) STRICT;

		CREATE TABLE messages (
			message_id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			user_id TEXT NOT NULL,
			lobby_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (lobby_id) REFERENCES lobbies(lobby_id) ON DELETE CASCADE
		) STRICT;

		CREATE INDEX idx_messages_lobby_created ON messages(lobby_id, created_at);
		CREATE INDEX idx_messages_author ON messages(user_id);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	return db
}

// createUser inserts a user account and returns it.
func createUser(t *testing.T, db *sql.DB, email, nickname string) *auth.User {
	t.Helper()

	u := &auth.User{
		Email:        email,
		Nickname:     nickname,
		PasswordHash: "$2a$10$fakefakefakefakefakefakefakefakefakefakefakefakefakef",
	}
	if err := auth.NewUserRepository(db).Create(context.Background(), u); err != nil {
		t.Fatalf("creating user %s: %v", email, err)
	}
	return u
}

// claimsFor builds verified-token claims for a user, as the API gate would
// attach them to the request context.
func claimsFor(u *auth.User) *auth.Claims {
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: u.ID},
		Nickname:         u.Nickname,
		Email:            u.Email,
	}
}
