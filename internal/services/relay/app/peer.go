package server

import (
	"encoding/json"
	"sync"
)

// wsPeer serializes frame writes to one connection. The encoder mutex keeps
// unicast replies and cross-connection broadcasts from interleaving on the
// wire.
type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

func (p *wsPeer) writeSessionError(message string) error {
	return p.writeFrame(wsFrame{
		Type:    "sessionError",
		Payload: mustJSON(sessionErrorPayload{Message: message}),
	})
}
