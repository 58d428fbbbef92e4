package consult

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/notexe/mediconnect/internal/api"
	"github.com/notexe/mediconnect/internal/config"
	"github.com/notexe/mediconnect/internal/logger"
)

const maxBodyBytes = 1 << 20

// ProviderFactory builds the upstream provider for one request.
type ProviderFactory func(cfg *config.ProviderConfig) (api.Provider, error)

type replyBody struct {
	Reply string `json:"reply"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Handler is the consult proxy endpoint. It holds no per-request state.
type Handler struct {
	cfg         *config.Config
	lookupEnv   func(string) (string, bool)
	newProvider ProviderFactory
	logger      *zap.Logger
}

type Option func(*Handler)

// WithLookupEnv replaces os.LookupEnv for credential lookup.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(h *Handler) { h.lookupEnv = fn }
}

// WithProviderFactory replaces api.NewProvider.
func WithProviderFactory(fn ProviderFactory) Option {
	return func(h *Handler) { h.newProvider = fn }
}

func NewHandler(cfg *config.Config, log *zap.Logger, opts ...Option) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		cfg:         cfg,
		lookupEnv:   os.LookupEnv,
		newProvider: api.NewProvider,
		logger:      log.Named("consult"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.WithRequestID(r.Context(), h.logger)

	switch r.Method {
	case http.MethodOptions:
		setCORSHeaders(w)
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
		return
	}

	name := api.DisplayName(h.cfg.Provider)

	apiKey := h.cfg.LookupCredential(h.lookupEnv)
	if apiKey == "" && config.RequiresCredential(h.cfg.Provider) {
		candidates := config.CredentialCandidates(h.cfg.Provider)
		log.Error("upstream credential missing", zap.Strings("candidates", candidates))
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("Missing %s API key. Set %s in the server environment and restart.", name, candidates[0]), "")
		return
	}

	query, status, msg := readQuery(r)
	if status != 0 {
		writeError(w, status, msg, "")
		return
	}

	provider, err := h.newProvider(h.cfg.GetProviderConfig(apiKey))
	if err != nil {
		log.Error("failed to create provider", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error while contacting "+name, err.Error())
		return
	}
	defer provider.Close()

	reply, err := Ask(r.Context(), provider, h.cfg.Model, query)
	if err != nil {
		var upstream *api.UpstreamError
		if errors.As(err, &upstream) {
			log.Warn("upstream returned an error",
				zap.Int("status", upstream.StatusCode),
				zap.String("details", upstream.Details()))
			writeError(w, upstream.StatusCode, name+" API error", upstream.Details())
			return
		}
		log.Error("upstream request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error while contacting "+name, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, replyBody{Reply: reply})
}

// readQuery returns the trimmed query, or a non-zero status and message.
func readQuery(r *http.Request) (string, int, string) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return "", http.StatusBadRequest, "Invalid JSON body"
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		raw = []byte("{}")
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", http.StatusBadRequest, "Invalid JSON body"
	}

	fields, _ := body.(map[string]any)
	query, _ := fields["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return "", http.StatusBadRequest, "Query is required"
	}
	return query, 0, ""
}

func setCORSHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	setCORSHeaders(w)
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal server error"}`)
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}
