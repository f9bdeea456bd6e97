// Package relay implements the real-time session relay for collaborative
// editing.
//
// It keeps WebSocket lifecycle, session membership, and full-document
// fan-out isolated from presentation concerns: editors converge by
// exchanging whole document and language values, last writer wins, and the
// session store remains the only source of truth for shared state.
package relay
