package server

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/pairpad/pairpad/internal/session"
)

// relay is the connection-event engine: it turns inbound participant frames
// into session store mutations and fans the results back out through the
// peer registry. The store serializes state access; emissions happen outside
// the store against a member snapshot and are fire-and-forget.
type relay struct {
	store *session.Store

	mu    sync.Mutex
	peers map[string]*wsPeer
}

func newRelay(store *session.Store) *relay {
	return &relay{
		store: store,
		peers: make(map[string]*wsPeer),
	}
}

// register makes a connection's peer reachable for broadcasts. It is called
// once at connection accept.
func (r *relay) register(connectionID string, peer *wsPeer) {
	r.mu.Lock()
	r.peers[connectionID] = peer
	r.mu.Unlock()
}

// release tears down everything the connection holds: its peer registration
// and every session membership, with a departure notice per surviving
// session. It runs on every connection exit path and is safe to run against
// memberships an explicit leave already removed.
func (r *relay) release(connectionID string) {
	r.mu.Lock()
	delete(r.peers, connectionID)
	r.mu.Unlock()

	for _, sessionID := range r.store.MemberSessions(connectionID) {
		r.depart(sessionID, connectionID)
	}
}

func (r *relay) lookup(connectionID string) *wsPeer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peers[connectionID]
}

// broadcast sends a frame to every current member of the session except the
// excluded connection. Writes to peers that are already gone are dropped
// silently.
func (r *relay) broadcast(sessionID, exclude string, frame wsFrame) {
	for _, connectionID := range r.store.Members(sessionID) {
		if connectionID == exclude {
			continue
		}
		peer := r.lookup(connectionID)
		if peer == nil {
			continue
		}
		_ = peer.writeFrame(frame)
	}
}

// depart removes the connection from one session and notifies the
// survivors. When the session empties it is deleted and no one is left to
// notify. A membership that is already gone produces no second broadcast.
func (r *relay) depart(sessionID, connectionID string) {
	removed, deleted := r.store.RemoveMember(sessionID, connectionID)
	if !removed {
		return
	}
	if deleted {
		log.Printf("relay: session %s deleted, last participant %s left", sessionID, connectionID)
		return
	}
	r.broadcast(sessionID, connectionID, wsFrame{
		Type:    "participantDeparted",
		Payload: mustJSON(participantDepartedPayload{ConnectionID: connectionID}),
	})
}

func (r *relay) createSession(connectionID string, peer *wsPeer) {
	sessionID, err := r.store.Create()
	if err != nil {
		log.Printf("relay: create session for connection %s: %v", connectionID, err)
		_ = peer.writeSessionError("session allocation failed")
		return
	}
	if _, err := r.store.AddMember(sessionID, connectionID); err != nil {
		log.Printf("relay: bind creator %s to session %s: %v", connectionID, sessionID, err)
		_ = peer.writeSessionError("session allocation failed")
		return
	}
	log.Printf("relay: session %s created by connection %s", sessionID, connectionID)

	_ = peer.writeFrame(wsFrame{
		Type:    "sessionCreated",
		Payload: mustJSON(sessionCreatedPayload{SessionID: sessionID}),
	})
}

func (r *relay) joinSession(connectionID string, peer *wsPeer, frame wsFrame) {
	var payload joinSessionPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = peer.writeSessionError("invalid join payload")
		return
	}

	alreadyMember, err := r.store.AddMember(payload.SessionID, connectionID)
	if errors.Is(err, session.ErrNotFound) {
		_ = peer.writeSessionError("session does not exist")
		return
	}
	if err != nil {
		log.Printf("relay: join session %s for connection %s: %v", payload.SessionID, connectionID, err)
		_ = peer.writeSessionError("session join failed")
		return
	}
	if alreadyMember {
		log.Printf("relay: connection %s is already in session %s", connectionID, payload.SessionID)
		return
	}

	snapshot, err := r.store.Snapshot(payload.SessionID)
	if err != nil {
		_ = peer.writeSessionError("session does not exist")
		return
	}
	log.Printf("relay: connection %s joined session %s", connectionID, payload.SessionID)

	// The joiner gets the shared values as of the join, in frame order:
	// membership ack first, then document, then language.
	_ = peer.writeFrame(wsFrame{
		Type:    "sessionJoined",
		Payload: mustJSON(sessionJoinedPayload{SessionID: snapshot.ID}),
	})
	_ = peer.writeFrame(wsFrame{
		Type:    "documentUpdated",
		Payload: mustJSON(documentUpdatedPayload{Document: snapshot.Document}),
	})
	_ = peer.writeFrame(wsFrame{
		Type:    "languageUpdated",
		Payload: mustJSON(languageUpdatedPayload{LanguageTag: snapshot.Language}),
	})
}

func (r *relay) mutateDocument(connectionID string, peer *wsPeer, frame wsFrame) {
	var payload mutateDocumentPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = peer.writeSessionError("invalid document payload")
		return
	}

	// Membership is not required to mutate: any connection addressing a
	// live session is honored, and last writer wins.
	if err := r.store.SetDocument(payload.SessionID, payload.Document); err != nil {
		_ = peer.writeSessionError("session does not exist")
		return
	}
	r.broadcast(payload.SessionID, connectionID, wsFrame{
		Type:    "documentUpdated",
		Payload: mustJSON(documentUpdatedPayload{Document: payload.Document}),
	})
}

func (r *relay) mutateLanguage(connectionID string, peer *wsPeer, frame wsFrame) {
	var payload mutateLanguagePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = peer.writeSessionError("invalid language payload")
		return
	}

	if err := r.store.SetLanguage(payload.SessionID, payload.LanguageTag); err != nil {
		_ = peer.writeSessionError("session does not exist")
		return
	}
	r.broadcast(payload.SessionID, connectionID, wsFrame{
		Type:    "languageUpdated",
		Payload: mustJSON(languageUpdatedPayload{LanguageTag: payload.LanguageTag}),
	})
}

func (r *relay) leaveSession(connectionID string, peer *wsPeer, frame wsFrame) {
	var payload leaveSessionPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = peer.writeSessionError("invalid leave payload")
		return
	}
	r.depart(payload.SessionID, connectionID)
}

func (r *relay) listSessions(peer *wsPeer) {
	sessionIDs := r.store.List()
	_ = peer.writeFrame(wsFrame{
		Type:    "sessionList",
		Payload: mustJSON(sessionListPayload{SessionIDs: sessionIDs}),
	})
}

func (r *relay) listMembers(peer *wsPeer, frame wsFrame) {
	var payload listMembersPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = peer.writeSessionError("invalid member list payload")
		return
	}

	if !r.store.Exists(payload.SessionID) {
		_ = peer.writeSessionError("session does not exist")
		return
	}
	_ = peer.writeFrame(wsFrame{
		Type: "memberList",
		Payload: mustJSON(memberListPayload{
			SessionID:     payload.SessionID,
			ConnectionIDs: r.store.Members(payload.SessionID),
		}),
	})
}
