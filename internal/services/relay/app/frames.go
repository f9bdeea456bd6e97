package server

import (
	"encoding/json"
	"log"
)

// wsFrame is the JSON envelope for every message crossing the WebSocket in
// either direction.
type wsFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound payloads.

type joinSessionPayload struct {
	SessionID string `json:"session_id"`
}

type mutateDocumentPayload struct {
	SessionID string `json:"session_id"`
	Document  string `json:"document"`
}

type mutateLanguagePayload struct {
	SessionID   string `json:"session_id"`
	LanguageTag string `json:"language_tag"`
}

type leaveSessionPayload struct {
	SessionID string `json:"session_id"`
}

type listMembersPayload struct {
	SessionID string `json:"session_id"`
}

// Outbound payloads.

type sessionCreatedPayload struct {
	SessionID string `json:"session_id"`
}

type sessionJoinedPayload struct {
	SessionID string `json:"session_id"`
}

type documentUpdatedPayload struct {
	Document string `json:"document"`
}

type languageUpdatedPayload struct {
	LanguageTag string `json:"language_tag"`
}

type sessionErrorPayload struct {
	Message string `json:"message"`
}

type participantDepartedPayload struct {
	ConnectionID string `json:"connection_id"`
}

type sessionListPayload struct {
	SessionIDs []string `json:"session_ids"`
}

type memberListPayload struct {
	SessionID     string   `json:"session_id"`
	ConnectionIDs []string `json:"connection_ids"`
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("relay: failed to marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
