package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"donex/core"
	"donex/indexer"
	"donex/observability"
	"donex/observability/logging"
)

// Config tunes the transport.
type Config struct {
	Auth              AuthConfig
	RequestsPerMinute int
	Burst             int
	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers
	// identify the client for rate limiting.
	TrustedProxies    []string
	AllowedOrigins    []string
	MaxBodyBytes      int64
	ReadHeaderTimeout time.Duration
}

// DonationIndex is the read side of the event indexer.
type DonationIndex interface {
	ListDonations(ctx context.Context, filter indexer.DonationFilter) ([]indexer.Donation, error)
	LinkHistory(ctx context.Context, address string, limit int) ([]indexer.SocialLink, error)
}

type handlerFunc func(r *http.Request, sender string, params []json.RawMessage) (interface{}, error)

type method struct {
	module  string
	auth    bool
	handler handlerFunc
}

// Server exposes the host over JSON-RPC 2.0.
type Server struct {
	host    *core.Host
	index   DonationIndex
	hub     *Hub
	auth    *authenticator
	limiter *rateLimiter
	cfg     Config
	logger  *slog.Logger
	methods map[string]method
}

func NewServer(host *core.Host, cfg Config, logger *slog.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = maxRequestBytes
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	logger = logging.OrDefault(logger).With(slog.String("component", "rpc"))
	trusted, err := ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Warn("ignoring trusted proxies", slog.Any("error", err))
		trusted = nil
	}
	s := &Server{
		host:    host,
		hub:     NewHub(cfg.AllowedOrigins, logger),
		auth:    newAuthenticator(cfg.Auth),
		limiter: newRateLimiter(cfg.RequestsPerMinute, cfg.Burst, trusted),
		cfg:     cfg,
		logger:  logger,
	}
	s.methods = map[string]method{
		"donex_submitSocial":         {module: "donex", auth: true, handler: s.handleSubmitSocial},
		"donex_donate":               {module: "donex", auth: true, handler: s.handleDonate},
		"donex_execute":              {module: "donex", auth: true, handler: s.handleExecute},
		"donex_getAddressesBySocial": {module: "donex", handler: s.handleGetAddressesBySocial},
		"donex_getSocialsByAddress":  {module: "donex", handler: s.handleGetSocialsByAddress},
		"donex_getSocial":            {module: "donex", handler: s.handleGetSocial},
		"donex_getConfig":            {module: "donex", handler: s.handleGetConfig},
		"donex_query":                {module: "donex", handler: s.handleQuery},
		"donex_status":               {module: "donex", handler: s.handleStatus},
		"bank_getBalance":            {module: "bank", handler: s.handleGetBalance},
		"donex_listDonations":        {module: "indexer", handler: s.handleListDonations},
		"donex_linkHistory":          {module: "indexer", handler: s.handleLinkHistory},
	}
	return s
}

// SetIndex enables the indexer-backed methods.
func (s *Server) SetIndex(index DonationIndex) {
	s.index = index
}

// Hub returns the websocket event hub. Register it with the host emitter to
// stream committed events.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler builds the HTTP surface: JSON-RPC on POST /, health, metrics and
// the event stream.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(cors(s.cfg.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.hub.ServeHTTP)
	r.With(s.limiter.middleware).Post("/", s.handle)

	return otelhttp.NewHandler(r, "donex.rpc")
}

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("json-rpc server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("rpc: shutdown: %w", err)
		}
		return nil
	}
}

// handle decodes one JSON-RPC request and dispatches it.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	reader := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxBodyBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if strings.TrimSpace(req.Method) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	m, ok := s.methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}

	var sender string
	if m.auth {
		var authErr *RPCError
		sender, authErr = s.auth.sender(r)
		if authErr != nil {
			observability.ModuleMetrics().Observe(m.module, req.Method, authErr.Code, time.Since(started))
			writeError(w, authErr.status, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}

	result, err := m.handler(r, sender, req.Params)
	if err != nil {
		rpcErr := toRPCError(err)
		if rpcErr.status >= http.StatusInternalServerError && rpcErr.Code == codeServerError {
			s.logger.Error("rpc handler failed",
				slog.String("method", req.Method),
				slog.String("request_id", requestIDFrom(r.Context())),
				slog.String("error", err.Error()))
		}
		observability.ModuleMetrics().Observe(m.module, req.Method, rpcErr.Code, time.Since(started))
		writeError(w, rpcErr.status, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	observability.ModuleMetrics().Observe(m.module, req.Method, 0, time.Since(started))
	writeResult(w, req.ID, result)
}

type requestIDKey struct{}

const requestIDHeader = "X-Request-ID"

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func cors(allowed []string) func(http.Handler) http.Handler {
	allowAll := len(allowed) == 0
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		set[origin] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if _, ok := set[origin]; ok || allowAll {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
