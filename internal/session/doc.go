// Package session holds the authoritative in-memory registry of
// collaborative editing sessions.
//
// A session is one shared document, one language tag, and a set of member
// connection ids. The store owns the full lifecycle: sessions are created
// with a fresh identifier and deleted atomically when their last member
// leaves, so an empty session is never observable. All state lives in
// process memory; nothing survives a restart.
package session
