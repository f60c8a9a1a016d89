// Package mockgemini implements a minimal generateContent API surface for
// local development and tests. It speaks just enough of the Gemini REST shape
// for the genai SDK pointed at it via a base-URL override.
package mockgemini

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Call records a request made to the mock service.
type Call struct {
	Model string
	Body  []byte
}

// Response is one canned generation result.
type Response struct {
	Text string
	// Citations become grounding chunks, aligned by position. Empty entries
	// produce chunks without a web URI.
	Citations []string
}

// Server serves canned generateContent responses and can script rate-limit
// failures to exercise retry paths end to end.
type Server struct {
	mu sync.Mutex

	calls          []Call
	expectedAPIKey string

	// remaining429 is the number of requests to reject with a quota error
	// before serving canned responses again.
	remaining429 int

	perModel map[string]Response
	fallback Response
}

// New constructs a mock server with a generic default response.
func New() *Server {
	return &Server{
		perModel: make(map[string]Response),
		fallback: Response{Text: "mock response"},
	}
}

// RequireAPIKey enforces that requests carry the given key via the
// x-goog-api-key header or the key query parameter. Empty disables the check.
func (s *Server) RequireAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedAPIKey = strings.TrimSpace(key)
}

// SetResponse installs the canned response served for a model.
func (s *Server) SetResponse(model string, r Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perModel[model] = r
}

// SetDefaultResponse installs the response served for models without a
// dedicated entry.
func (s *Server) SetDefaultResponse(r Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = r
}

// FailWith429 makes the next n requests fail with a RESOURCE_EXHAUSTED quota
// error before normal service resumes.
func (s *Server) FailWith429(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining429 = n
}

// Calls returns a copy of the recorded requests.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return mux
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Path shape: /v1beta/models/{model}:generateContent
	idx := strings.Index(r.URL.Path, "/models/")
	if idx < 0 || !strings.HasSuffix(r.URL.Path, ":generateContent") {
		http.NotFound(w, r)
		return
	}
	model := strings.TrimSuffix(r.URL.Path[idx+len("/models/"):], ":generateContent")
	if model == "" {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Model: model, Body: body})

	if s.expectedAPIKey != "" && !s.authorized(r) {
		s.mu.Unlock()
		writeError(w, http.StatusForbidden, "PERMISSION_DENIED", "API key not valid")
		return
	}

	if s.remaining429 > 0 {
		s.remaining429--
		s.mu.Unlock()
		writeError(w, http.StatusTooManyRequests, "RESOURCE_EXHAUSTED", "Resource has been exhausted (e.g. check quota).")
		return
	}

	resp, ok := s.perModel[model]
	if !ok {
		resp = s.fallback
	}
	s.mu.Unlock()

	writeGeneration(w, resp)
}

func (s *Server) authorized(r *http.Request) bool {
	if strings.TrimSpace(r.Header.Get("x-goog-api-key")) == s.expectedAPIKey {
		return true
	}
	return r.URL.Query().Get("key") == s.expectedAPIKey
}

func writeError(w http.ResponseWriter, code int, status, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

func writeGeneration(w http.ResponseWriter, resp Response) {
	candidate := map[string]any{
		"content": map[string]any{
			"role": "model",
			"parts": []map[string]any{
				{"text": resp.Text},
			},
		},
		"finishReason": "STOP",
	}

	if len(resp.Citations) > 0 {
		chunks := make([]map[string]any, 0, len(resp.Citations))
		for i, uri := range resp.Citations {
			if strings.TrimSpace(uri) == "" {
				chunks = append(chunks, map[string]any{})
				continue
			}
			chunks = append(chunks, map[string]any{
				"web": map[string]any{
					"uri":   uri,
					"title": fmt.Sprintf("source-%d", i),
				},
			})
		}
		candidate["groundingMetadata"] = map[string]any{
			"groundingChunks": chunks,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{candidate},
	})
}
