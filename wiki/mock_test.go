package wiki

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
)

// recordedRequest is what the mock wiki saw for one call
type recordedRequest struct {
	Method      string
	Params      url.Values
	ContentType string
	Header      http.Header
	Cookies     []*http.Cookie
}

// mockWiki is a test server that records requests and answers through handler
type mockWiki struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

// newMockWiki starts a mock API server. The handler receives the merged
// query and body parameters, whether the body was urlencoded or multipart.
func newMockWiki(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, params url.Values)) *mockWiki {
	t.Helper()
	m := &mockWiki{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := requestParams(t, r)
		m.mu.Lock()
		m.requests = append(m.requests, recordedRequest{
			Method:      r.Method,
			Params:      params,
			ContentType: r.Header.Get("Content-Type"),
			Header:      r.Header.Clone(),
			Cookies:     r.Cookies(),
		})
		m.mu.Unlock()
		handler(w, r, params)
	}))
	t.Cleanup(m.Close)
	return m
}

func requestParams(t *testing.T, r *http.Request) url.Values {
	t.Helper()
	params := url.Values{}
	for k, vs := range r.URL.Query() {
		params[k] = vs
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return params
		}
		for k, vs := range r.MultipartForm.Value {
			params[k] = vs
		}
		return params
	}
	if err := r.ParseForm(); err != nil {
		t.Errorf("ParseForm: %v", err)
	}
	for k, vs := range r.PostForm {
		params[k] = vs
	}
	return params
}

func (m *mockWiki) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockWiki) last() recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return recordedRequest{}
	}
	return m.requests[len(m.requests)-1]
}

func (m *mockWiki) request(i int) recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestSession creates a session against endpoint with retries disabled
func newTestSession(t *testing.T, endpoint string) *Session {
	t.Helper()
	s, err := New(&Config{Endpoint: endpoint, MaxRetries: 0}, WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

// cookiePairs renders cookies as name=value for comparison
func cookiePairs(cookies []*http.Cookie) []string {
	out := make([]string, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, c.Name+"="+c.Value)
	}
	return out
}

// pageResponse builds a legacy query.pages payload with one page
func pageResponse(id, title, text string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"pages": map[string]interface{}{
				id: map[string]interface{}{
					"pageid": 1,
					"title":  title,
					"revisions": []interface{}{
						map[string]interface{}{"*": text},
					},
				},
			},
		},
	}
}
