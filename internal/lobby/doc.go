// Package lobby implements chat lobbies and the access-control rules
// that gate every mutation on them.
//
// The Service is the decision point: each operation takes the verified
// identity claims attached by the API gate, resolves the acting user,
// checks ownership or lobby-admin rights against a store snapshot, and
// performs the mutation. Read-decide-write sequences run inside a single
// SQLite transaction so a concurrent admin change cannot slip between
// the check and the write.
//
// Membership is deliberately implicit: any user may post into any lobby
// by id, and "their" lobby for reads is the first lobby found among the
// messages they have authored. This mirrors the behaviour the service
// replaces; an explicit membership relation is a known follow-up.
package lobby
