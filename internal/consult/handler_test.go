package consult_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/mediconnect/internal/api"
	"github.com/notexe/mediconnect/internal/config"
	"github.com/notexe/mediconnect/internal/consult"
)

func testConfig(t *testing.T, upstreamURL string) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Provider = config.ProviderGroq
	cfg.Groq.APIKey = ""
	cfg.Groq.BaseURL = upstreamURL
	return cfg
}

func withKey(key string) consult.Option {
	return consult.WithLookupEnv(func(name string) (string, bool) {
		if name == "GROQ_API_KEY" && key != "" {
			return key, true
		}
		return "", false
	})
}

func upstream(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]string{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestHandler_Success(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Rest and hydrate.\n"}}]}`))
	}))
	defer srv.Close()

	h := consult.NewRouter(consult.NewHandler(testConfig(t, srv.URL), nil, withKey("gsk_test")), nil)
	rec, body := do(t, h, http.MethodPost, consult.ConsultPath, `{"query":"  I have a headache "}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Rest and hydrate.", body["reply"])
	assertCORS(t, rec)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	assert.Equal(t, "llama-3.1-8b-instant", received["model"])
	assert.InDelta(t, 0.4, received["temperature"], 1e-9)
	assert.EqualValues(t, 600, received["max_tokens"])
	messages := received["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, config.DefaultSystemPrompt, messages[0].(map[string]any)["content"])
	assert.Equal(t, "I have a headache", messages[1].(map[string]any)["content"])
}

func TestHandler_FallbackReply(t *testing.T) {
	srv := upstream(t, http.StatusOK, `{"choices":[]}`)
	h := consult.NewHandler(testConfig(t, srv.URL), nil, withKey("k"))

	rec, body := do(t, h, http.MethodPost, "/", `{"query":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, consult.FallbackReply, body["reply"])
}

func TestHandler_Options(t *testing.T) {
	h := consult.NewRouter(consult.NewHandler(testConfig(t, ""), nil), nil)

	for _, path := range []string{consult.ConsultPath, consult.NetlifyPath} {
		rec, _ := do(t, h, http.MethodOptions, path, "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
		assertCORS(t, rec)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := consult.NewHandler(testConfig(t, ""), nil, withKey("k"))

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec, body := do(t, h, method, "/", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "Method Not Allowed", body["error"])
		assertCORS(t, rec)
	}
}

func TestHandler_BadRequests(t *testing.T) {
	srv := upstream(t, http.StatusOK, `{"choices":[{"message":{"content":"unused"}}]}`)
	h := consult.NewHandler(testConfig(t, srv.URL), nil, withKey("k"))

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"empty object", `{}`, "Query is required"},
		{"empty body", ``, "Query is required"},
		{"whitespace query", `{"query":"   "}`, "Query is required"},
		{"non-string query", `{"query":42}`, "Query is required"},
		{"array body", `[]`, "Query is required"},
		{"malformed", `{"query":`, "Invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, h, http.MethodPost, "/", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantErr, body["error"])
			assertCORS(t, rec)
		})
	}
}

func TestHandler_MissingCredential(t *testing.T) {
	h := consult.NewHandler(testConfig(t, ""), nil, withKey(""))

	rec, body := do(t, h, http.MethodPost, "/", `{"query":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["error"], "Missing Groq API key")
	assert.Contains(t, body["error"], "GROQ_API_KEY")
	assertCORS(t, rec)
}

func TestHandler_UpstreamError(t *testing.T) {
	srv := upstream(t, http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached"}}`)
	h := consult.NewHandler(testConfig(t, srv.URL), nil, withKey("k"))

	rec, body := do(t, h, http.MethodPost, "/", `{"query":"hello"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Groq API error", body["error"])
	assert.Equal(t, "Rate limit reached", body["details"])
	assertCORS(t, rec)
}

type failingProvider struct{}

func (failingProvider) SendMessage(context.Context, api.MessageRequest) (*api.MessageResponse, error) {
	return nil, errors.New("connection refused")
}
func (failingProvider) Name() string { return "groq" }
func (failingProvider) Close() error { return nil }

func TestHandler_TransportError(t *testing.T) {
	h := consult.NewHandler(testConfig(t, ""), nil, withKey("k"),
		consult.WithProviderFactory(func(*config.ProviderConfig) (api.Provider, error) {
			return failingProvider{}, nil
		}))

	rec, body := do(t, h, http.MethodPost, "/", `{"query":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error while contacting Groq", body["error"])
	assert.Equal(t, "connection refused", body["details"])
}

type panickingProvider struct{ failingProvider }

func (panickingProvider) SendMessage(context.Context, api.MessageRequest) (*api.MessageResponse, error) {
	panic("boom")
}

func TestRouter_RecoversPanics(t *testing.T) {
	h := consult.NewRouter(consult.NewHandler(testConfig(t, ""), nil, withKey("k"),
		consult.WithProviderFactory(func(*config.ProviderConfig) (api.Provider, error) {
			return panickingProvider{}, nil
		})), nil)

	rec, body := do(t, h, http.MethodPost, consult.ConsultPath, `{"query":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", body["error"])
	assertCORS(t, rec)
}

func TestRouter_Health(t *testing.T) {
	h := consult.NewRouter(consult.NewHandler(testConfig(t, ""), nil), nil)

	req := httptest.NewRequest(http.MethodGet, consult.HealthPath, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
