package server

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pairpad/pairpad/internal/session"
)

// bufferPeer returns a peer whose frames land in a local buffer, so engine
// behavior can be checked without a live websocket.
func bufferPeer() (*wsPeer, *bytes.Buffer) {
	var buf bytes.Buffer
	return newWSPeer(json.NewEncoder(&buf)), &buf
}

func decodeFrames(t *testing.T, buf *bytes.Buffer) []wsTestFrame {
	t.Helper()
	var frames []wsTestFrame
	decoder := json.NewDecoder(buf)
	for decoder.More() {
		var frame wsTestFrame
		if err := decoder.Decode(&frame); err != nil {
			t.Fatalf("decode buffered frame: %v", err)
		}
		frames = append(frames, frame)
	}
	return frames
}

func newTestRelay(t *testing.T) (*relay, string) {
	t.Helper()
	engine := newRelay(session.NewStore())
	sessionID, err := engine.store.Create()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return engine, sessionID
}

func addPeer(t *testing.T, engine *relay, sessionID, connectionID string) *bytes.Buffer {
	t.Helper()
	peer, buf := bufferPeer()
	engine.register(connectionID, peer)
	if _, err := engine.store.AddMember(sessionID, connectionID); err != nil {
		t.Fatalf("add member %s: %v", connectionID, err)
	}
	return buf
}

func TestBroadcastExcludesSender(t *testing.T) {
	engine, sessionID := newTestRelay(t)
	senderBuf := addPeer(t, engine, sessionID, "conn-sender")
	receiverBuf := addPeer(t, engine, sessionID, "conn-receiver")

	engine.broadcast(sessionID, "conn-sender", wsFrame{
		Type:    "documentUpdated",
		Payload: mustJSON(documentUpdatedPayload{Document: "v1"}),
	})

	if frames := decodeFrames(t, senderBuf); len(frames) != 0 {
		t.Fatalf("sender received %d frames, want none", len(frames))
	}
	frames := decodeFrames(t, receiverBuf)
	if len(frames) != 1 || frames[0].Type != "documentUpdated" {
		t.Fatalf("receiver frames = %+v, want one documentUpdated", frames)
	}
}

func TestBroadcastSkipsUnregisteredMembers(t *testing.T) {
	engine, sessionID := newTestRelay(t)
	receiverBuf := addPeer(t, engine, sessionID, "conn-receiver")

	// A member whose peer is gone is simply dropped.
	if _, err := engine.store.AddMember(sessionID, "conn-ghost"); err != nil {
		t.Fatalf("add ghost member: %v", err)
	}

	engine.broadcast(sessionID, "", wsFrame{Type: "languageUpdated"})

	frames := decodeFrames(t, receiverBuf)
	if len(frames) != 1 {
		t.Fatalf("receiver frames = %+v, want exactly one", frames)
	}
}

func TestDepartBroadcastsOncePerMembership(t *testing.T) {
	engine, sessionID := newTestRelay(t)
	addPeer(t, engine, sessionID, "conn-leaver")
	survivorBuf := addPeer(t, engine, sessionID, "conn-survivor")

	engine.depart(sessionID, "conn-leaver")
	// A racing second removal (explicit leave plus disconnect) is a no-op.
	engine.depart(sessionID, "conn-leaver")

	frames := decodeFrames(t, survivorBuf)
	if len(frames) != 1 {
		t.Fatalf("survivor received %d frames, want exactly one departure", len(frames))
	}
	if frames[0].Type != "participantDeparted" {
		t.Fatalf("frame type = %q, want participantDeparted", frames[0].Type)
	}
	var payload wsTestDepartedPayload
	decodePayload(t, frames[0].Payload, &payload)
	if payload.ConnectionID != "conn-leaver" {
		t.Fatalf("departed connection = %q, want conn-leaver", payload.ConnectionID)
	}
}

func TestDepartLastMemberDeletesWithoutBroadcast(t *testing.T) {
	engine, sessionID := newTestRelay(t)
	buf := addPeer(t, engine, sessionID, "conn-only")

	engine.depart(sessionID, "conn-only")

	if engine.store.Exists(sessionID) {
		t.Fatal("session still exists after last member departed")
	}
	if frames := decodeFrames(t, buf); len(frames) != 0 {
		t.Fatalf("departing member received %d frames, want none", len(frames))
	}
}

func TestReleaseCleansEveryMembership(t *testing.T) {
	engine, first := newTestRelay(t)
	second, err := engine.store.Create()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	addPeer(t, engine, first, "conn-drop")
	if _, err := engine.store.AddMember(second, "conn-drop"); err != nil {
		t.Fatalf("add member: %v", err)
	}
	firstBuf := addPeer(t, engine, first, "conn-a")
	secondBuf := addPeer(t, engine, second, "conn-b")

	engine.release("conn-drop")

	for _, sessionID := range engine.store.MemberSessions("conn-drop") {
		t.Fatalf("connection still member of %q after release", sessionID)
	}
	if frames := decodeFrames(t, firstBuf); len(frames) != 1 || frames[0].Type != "participantDeparted" {
		t.Fatalf("first session survivor frames = %+v, want one departure", frames)
	}
	if frames := decodeFrames(t, secondBuf); len(frames) != 1 || frames[0].Type != "participantDeparted" {
		t.Fatalf("second session survivor frames = %+v, want one departure", frames)
	}
	if engine.lookup("conn-drop") != nil {
		t.Fatal("released connection still registered")
	}
}
