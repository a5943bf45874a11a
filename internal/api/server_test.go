package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lockerroom/lockerroom-core/internal/auth"
	"github.com/lockerroom/lockerroom-core/internal/infrastructure/config"
	"github.com/lockerroom/lockerroom-core/internal/infrastructure/logging"
	"github.com/lockerroom/lockerroom-core/internal/lobby"
)

const testSecret = "test-secret-0123456789abcdef-0123456789abcdef"

// newTestServer builds a server over a temporary SQLite database and
// returns it with an httptest listener.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	f, err := os.CreateTemp("", "api-test-*.db")
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
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	users := auth.NewUserRepository(db)

	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:     config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Security: config.SecurityConfig{
			JWT:        config.JWTConfig{Secret: testSecret, TokenTTLHours: 1},
			BcryptCost: auth.DefaultBcryptCost,
		},
		Logger:  logging.Default(),
		Users:   users,
		Lobby:   lobby.NewService(db, users),
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)
	return srv, ts
}

// doJSON issues a request with an optional bearer token and JSON body,
// returning the status code and decoded response body.
func doJSON(t *testing.T, method, url, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	data, _ := io.ReadAll(resp.Body) //nolint:errcheck // test helper
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("decoding response %q: %v", data, err)
		}
	}
	return resp.StatusCode, decoded
}

// registerUser registers an account and returns its token.
func registerUser(t *testing.T, baseURL, email, nickname string) string {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, baseURL+"/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"nickname": nickname,
		"password": "hunter22",
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %v", email, status, body)
	}
	token, _ := body["token"].(string) //nolint:errcheck // checked below
	if token == "" {
		t.Fatalf("register %s: no token in response", email)
	}
	return token
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestRegister(t *testing.T) {
	_, ts := newTestServer(t)
	url := ts.URL + "/api/v1/auth/register"

	status, body := doJSON(t, http.MethodPost, url, "", map[string]string{
		"email": "alice@example.com", "nickname": "alice", "password": "pw",
	})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %v)", status, body)
	}
	if body["token"] == "" {
		t.Error("response should carry a token")
	}
	user, _ := body["user"].(map[string]any) //nolint:errcheck // asserted below
	if user == nil || user["email"] != "alice@example.com" {
		t.Errorf("user = %v, want registered account", body["user"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("password hash must not appear in responses")
	}

	// Duplicate email
	status, _ = doJSON(t, http.MethodPost, url, "", map[string]string{
		"email": "alice@example.com", "nickname": "alice2", "password": "pw",
	})
	if status != http.StatusConflict {
		t.Errorf("duplicate email: status = %d, want 409", status)
	}

	// Invalid inputs
	for name, req := range map[string]map[string]string{
		"bad email":      {"email": "not-an-email", "nickname": "x", "password": "pw"},
		"empty nickname": {"email": "b@example.com", "nickname": "", "password": "pw"},
		"empty password": {"email": "c@example.com", "nickname": "c", "password": ""},
	} {
		status, _ = doJSON(t, http.MethodPost, url, "", req)
		if status != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, status)
		}
	}
}

func TestLogin(t *testing.T) {
	_, ts := newTestServer(t)
	registerUser(t, ts.URL, "alice@example.com", "alice")
	url := ts.URL + "/api/v1/auth/login"

	status, body := doJSON(t, http.MethodPost, url, "", map[string]string{
		"email": "alice@example.com", "password": "hunter22",
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %v)", status, body)
	}
	if body["token"] == "" {
		t.Error("login should return a token")
	}

	// Unknown account is 404, wrong password on a known account is 403.
	status, _ = doJSON(t, http.MethodPost, url, "", map[string]string{
		"email": "nobody@example.com", "password": "hunter22",
	})
	if status != http.StatusNotFound {
		t.Errorf("unknown email: status = %d, want 404", status)
	}

	status, _ = doJSON(t, http.MethodPost, url, "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	if status != http.StatusForbidden {
		t.Errorf("wrong password: status = %d, want 403", status)
	}
}

func TestAuthGate(t *testing.T) {
	_, ts := newTestServer(t)
	url := ts.URL + "/api/v1/lobbies/"

	// No credentials at all
	status, _ := doJSON(t, http.MethodPost, url, "", map[string]string{"name": "x"})
	if status != http.StatusUnauthorized {
		t.Errorf("missing token: status = %d, want 401", status)
	}

	// Present but unverifiable credentials
	status, _ = doJSON(t, http.MethodPost, url, "garbage-token", map[string]string{"name": "x"})
	if status != http.StatusForbidden {
		t.Errorf("invalid token: status = %d, want 403", status)
	}

	// Token signed with a different secret
	forged, err := auth.GenerateToken(&auth.User{ID: "usr-x", Email: "x@example.com", Nickname: "x"}, "another-secret-another-secret-another", 0)
	if err != nil {
		t.Fatalf("generating forged token: %v", err)
	}
	status, _ = doJSON(t, http.MethodPost, url, forged, map[string]string{"name": "x"})
	if status != http.StatusForbidden {
		t.Errorf("forged token: status = %d, want 403", status)
	}
}

func TestLobbyAndMessageFlow(t *testing.T) {
	_, ts := newTestServer(t)

	alice := registerUser(t, ts.URL, "alice@example.com", "alice")
	bob := registerUser(t, ts.URL, "bob@example.com", "bob")

	// Alice creates a lobby and becomes its admin.
	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/lobbies/", alice, map[string]string{
		"name": "Team", "description": "general chat",
	})
	if status != http.StatusCreated {
		t.Fatalf("create lobby: status = %d (body %v)", status, body)
	}
	lobbyID, _ := body["lobby_id"].(string) //nolint:errcheck // checked below
	if lobbyID == "" {
		t.Fatal("create lobby: no lobby_id in response")
	}

	// Bob can post without any membership step.
	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/lobbies/"+lobbyID+"/messages", bob, map[string]string{
		"content": "hello from bob",
	})
	if status != http.StatusCreated {
		t.Fatalf("post message: status = %d (body %v)", status, body)
	}
	bobMsgID, _ := body["message_id"].(string) //nolint:errcheck // checked below
	if bobMsgID == "" {
		t.Fatal("post message: no message_id in response")
	}

	// Posting into an unknown lobby is 404.
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/lobbies/lob-missing/messages", bob, map[string]string{
		"content": "void",
	})
	if status != http.StatusNotFound {
		t.Errorf("post to unknown lobby: status = %d, want 404", status)
	}

	// Bob edits his own message.
	status, body = doJSON(t, http.MethodPatch, ts.URL+"/api/v1/messages/"+bobMsgID+"/", bob, map[string]string{
		"content": "hello (edited)",
	})
	if status != http.StatusOK {
		t.Fatalf("edit own message: status = %d (body %v)", status, body)
	}
	if body["content"] != "hello (edited)" {
		t.Errorf("content = %v, want edited content", body["content"])
	}

	// Alice cannot edit bob's message through the owner route; the
	// response is indistinguishable from a missing message.
	status, _ = doJSON(t, http.MethodPatch, ts.URL+"/api/v1/messages/"+bobMsgID+"/", alice, map[string]string{
		"content": "hijacked",
	})
	if status != http.StatusNotFound {
		t.Errorf("edit foreign message: status = %d, want 404", status)
	}

	// Alice, as lobby admin, force-edits bob's message.
	status, body = doJSON(t, http.MethodPatch, ts.URL+"/api/v1/messages/"+bobMsgID+"/admin", alice, map[string]string{
		"content": "moderated",
	})
	if status != http.StatusOK {
		t.Fatalf("admin edit: status = %d (body %v)", status, body)
	}
	if body["user_id"] == "" || body["content"] != "moderated" {
		t.Errorf("admin edit result = %v", body)
	}

	// Bob is not the admin, so the same route refuses him.
	status, _ = doJSON(t, http.MethodPatch, ts.URL+"/api/v1/messages/"+bobMsgID+"/admin", bob, map[string]string{
		"content": "counter-moderated",
	})
	if status != http.StatusForbidden {
		t.Errorf("admin edit by non-admin: status = %d, want 403", status)
	}

	// Only the admin may delete; repeating the delete still succeeds.
	status, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/messages/"+bobMsgID+"/", bob, map[string]string{
		"lobby_id": lobbyID,
	})
	if status != http.StatusForbidden {
		t.Errorf("delete by non-admin: status = %d, want 403", status)
	}

	for i := 0; i < 2; i++ {
		status, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/messages/"+bobMsgID+"/", alice, map[string]string{
			"lobby_id": lobbyID,
		})
		if status != http.StatusNoContent {
			t.Errorf("delete attempt %d: status = %d, want 204", i+1, status)
		}
	}
}

func TestDeleteMessage_LobbyIDInQuery(t *testing.T) {
	// Some HTTP clients refuse to attach a body to DELETE; the lobby id
	// is then accepted as a query parameter instead.
	_, ts := newTestServer(t)

	alice := registerUser(t, ts.URL, "alice@example.com", "alice")

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/lobbies/", alice, map[string]string{"name": "Team"})
	if status != http.StatusCreated {
		t.Fatalf("create lobby: status = %d", status)
	}
	lobbyID, _ := body["lobby_id"].(string) //nolint:errcheck // created above

	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/lobbies/"+lobbyID+"/messages", alice, map[string]string{
		"content": "doomed",
	})
	if status != http.StatusCreated {
		t.Fatalf("post message: status = %d", status)
	}
	msgID, _ := body["message_id"].(string) //nolint:errcheck // created above

	status, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/messages/"+msgID+"/?lobby_id="+lobbyID, alice, nil)
	if status != http.StatusNoContent {
		t.Errorf("delete with query lobby_id: status = %d, want 204", status)
	}
}

func TestViewMessages(t *testing.T) {
	_, ts := newTestServer(t)

	alice := registerUser(t, ts.URL, "alice@example.com", "alice")

	// Viewing before ever posting: no lobby is resolvable.
	status, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/messages/", alice, nil)
	if status != http.StatusNotFound {
		t.Errorf("view with no history: status = %d, want 404", status)
	}

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/lobbies/", alice, map[string]string{"name": "Team"})
	if status != http.StatusCreated {
		t.Fatalf("create lobby: status = %d", status)
	}
	lobbyID := body["lobby_id"].(string) //nolint:errcheck // created above

	for i := 0; i < 12; i++ {
		status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/lobbies/"+lobbyID+"/messages", alice, map[string]string{
			"content": fmt.Sprintf("message %d", i),
		})
		if status != http.StatusCreated {
			t.Fatalf("post %d: status = %d", i, status)
		}
	}

	status, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/messages/?page=1", alice, nil)
	if status != http.StatusOK {
		t.Fatalf("view page 1: status = %d", status)
	}
	messages, _ := body["messages"].([]any) //nolint:errcheck // asserted below
	if len(messages) != 10 {
		t.Errorf("page 1 size = %d, want 10", len(messages))
	}
	if body["total_pages"] != float64(2) {
		t.Errorf("total_pages = %v, want 2", body["total_pages"])
	}

	// Newest first: the first entry is the last message posted.
	first, _ := messages[0].(map[string]any) //nolint:errcheck // shape asserted above
	if first["content"] != "message 11" {
		t.Errorf("first message = %v, want newest", first["content"])
	}

	status, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/messages/?page=2", alice, nil)
	if status != http.StatusOK {
		t.Fatalf("view page 2: status = %d", status)
	}
	messages, _ = body["messages"].([]any) //nolint:errcheck // asserted below
	if len(messages) != 2 {
		t.Errorf("page 2 size = %d, want 2", len(messages))
	}

	// Page zero is coerced to the first page, not an error.
	status, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/messages/?page=0", alice, nil)
	if status != http.StatusOK {
		t.Fatalf("view page 0: status = %d", status)
	}
	if body["current_page"] != float64(1) {
		t.Errorf("current_page = %v, want 1", body["current_page"])
	}
}

func TestWebSocketLiveStream(t *testing.T) {
	_, ts := newTestServer(t)

	alice := registerUser(t, ts.URL, "alice@example.com", "alice")

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/lobbies/", alice, map[string]string{"name": "Team"})
	if status != http.StatusCreated {
		t.Fatalf("create lobby: status = %d (body %v)", status, body)
	}
	lobbyID, _ := body["lobby_id"].(string) //nolint:errcheck // created above

	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/ws-ticket", alice, nil)
	if status != http.StatusOK {
		t.Fatalf("ws-ticket: status = %d (body %v)", status, body)
	}
	ticket, _ := body["ticket"].(string) //nolint:errcheck // issued above

	wsBase := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"

	// A dial with no ticket never reaches the hub.
	_, resp, err := websocket.DefaultDialer.Dial(wsBase, nil)
	if err == nil {
		t.Fatal("dial without ticket should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("dial without ticket: response = %v, want 401", resp)
	}

	// Ticket-only dial: no Authorization header on the handshake.
	conn, resp, err := websocket.DefaultDialer.Dial(wsBase+"?ticket="+ticket, nil)
	if err != nil {
		code := 0
		if resp != nil {
			code = resp.StatusCode
		}
		t.Fatalf("Dial() error = %v (status %d)", err, code)
	}
	defer conn.Close()

	// Subscribe to the lobby channel and wait for the acknowledgement.
	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{lobbyChannel(lobbyID)}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	//nolint:errcheck // Best-effort deadline; read error caught below
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("reading subscribe ack: %v", err)
	}
	if ack.Type != WSTypeResponse {
		t.Fatalf("ack type = %q, want %q", ack.Type, WSTypeResponse)
	}

	// A message posted over HTTP is broadcast to the subscriber.
	status, posted := doJSON(t, http.MethodPost, ts.URL+"/api/v1/lobbies/"+lobbyID+"/messages", alice, map[string]string{
		"content": "live",
	})
	if status != http.StatusCreated {
		t.Fatalf("post message: status = %d", status)
	}

	//nolint:errcheck // Best-effort deadline; read error caught below
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event WSMessage
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading broadcast: %v", err)
	}
	if event.Type != WSTypeEvent {
		t.Errorf("event type = %q, want %q", event.Type, WSTypeEvent)
	}
	if event.Channel != lobbyChannel(lobbyID) {
		t.Errorf("event channel = %q, want %q", event.Channel, lobbyChannel(lobbyID))
	}
	payload, _ := event.Payload.(map[string]any) //nolint:errcheck // shape asserted below
	if payload == nil || payload["content"] != "live" {
		t.Errorf("payload = %v, want posted message", event.Payload)
	}
	if payload["message_id"] != posted["message_id"] {
		t.Errorf("payload message_id = %v, want %v", payload["message_id"], posted["message_id"])
	}

	// Tickets are single use: redialling with the same ticket is refused.
	_, resp, err = websocket.DefaultDialer.Dial(wsBase+"?ticket="+ticket, nil)
	if err == nil {
		t.Fatal("second dial with a used ticket should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("reused ticket: response = %v, want 401", resp)
	}
}

func TestWSTicket(t *testing.T) {
	srv, ts := newTestServer(t)

	alice := registerUser(t, ts.URL, "alice@example.com", "alice")

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/ws-ticket", alice, nil)
	if status != http.StatusOK {
		t.Fatalf("ws-ticket: status = %d (body %v)", status, body)
	}
	ticket, _ := body["ticket"].(string) //nolint:errcheck // checked below
	if ticket == "" {
		t.Fatal("no ticket in response")
	}

	entry, ok := srv.tickets.consume(ticket)
	if !ok {
		t.Fatal("issued ticket should validate")
	}
	if entry.userID == "" {
		t.Error("ticket should carry the caller's identity")
	}

	// Single use
	if _, ok := srv.tickets.consume(ticket); ok {
		t.Error("ticket validated twice")
	}

	// Unauthenticated callers cannot mint tickets
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/ws-ticket", "", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("unauthenticated ws-ticket: status = %d, want 401", status)
	}
}
