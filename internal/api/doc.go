// Package api provides the HTTP REST API and WebSocket server for
// LockerRoom Core.
//
// It exposes registration, login, lobby, and message endpoints, plus a
// WebSocket feed of per-lobby message events. The server follows the
// standard component lifecycle:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// All protected routes require a Bearer token. A missing token yields
// 401; a present but unverifiable token yields 403.
package api
