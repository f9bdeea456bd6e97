package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/pairpad/pairpad/internal/platform/timeouts"
)

const defaultExecuteAPIURL = "https://emkc.org/api/v2/piston/execute"

type executeRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

type executeUpstreamRequest struct {
	Language string                `json:"language"`
	Version  string                `json:"version"`
	Files    []executeUpstreamFile `json:"files"`
}

type executeUpstreamFile struct {
	Content string `json:"content"`
}

// executeHandler proxies code snippets to the remote execution API. It is
// stateless request/response glue: it never touches the session store.
type executeHandler struct {
	upstreamURL string
	client      *http.Client
}

func newExecuteHandler(upstreamURL string) *executeHandler {
	upstreamURL = strings.TrimSpace(upstreamURL)
	if upstreamURL == "" {
		upstreamURL = defaultExecuteAPIURL
	}
	return &executeHandler{
		upstreamURL: upstreamURL,
		client: &http.Client{
			Timeout: timeouts.ExecuteRequest,
		},
	}
}

func (h *executeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid execute payload", http.StatusBadRequest)
		return
	}

	body, err := json.Marshal(executeUpstreamRequest{
		Language: req.Language,
		Version:  "*",
		Files:    []executeUpstreamFile{{Content: req.Code}},
	})
	if err != nil {
		h.internalError(w, err)
		return
	}

	upstreamReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.upstreamURL, bytes.NewReader(body))
	if err != nil {
		h.internalError(w, err)
		return
	}
	upstreamReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(upstreamReq)
	if err != nil {
		h.internalError(w, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.internalError(w, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Printf("relay: relay execute response: %v", err)
	}
}

func (h *executeHandler) internalError(w http.ResponseWriter, err error) {
	if err != nil {
		log.Printf("relay: execute proxy: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"Internal Server Error"}`))
}
