package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wayfind/core/events"
	"wayfind/core/state"
	"wayfind/native/remint"
	"wayfind/observability"
	"wayfind/storage"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB

	// TokenEnv names the environment variable carrying the bearer token that
	// gates privileged methods.
	TokenEnv = "WAYFIND_RPC_TOKEN"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Server exposes the remint engine over JSON-RPC 2.0. Mutating methods run
// one at a time under the state mutex; a failed operation resets the trie to
// the last committed root so no partial effects survive.
type Server struct {
	engine *remint.Engine
	state  *state.Manager
	log    *events.Log
	buffer *events.Buffer
	meta   storage.Database
	logger *slog.Logger

	tokenSymbol string
	pool        [20]byte

	mu        sync.Mutex
	authToken string
	metrics   *observability.RPCMetrics
}

// NewServer constructs an RPC server around the supplied engine and state.
// The engine's emitter is redirected into a buffer so events only reach the
// persistent log after the operation's state changes commit. The bearer token
// for privileged methods is read from the environment.
func NewServer(engine *remint.Engine, manager *state.Manager, log *events.Log, meta storage.Database, tokenSymbol string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	buffer := events.NewBuffer()
	engine.SetEmitter(buffer)
	return &Server{
		engine:      engine,
		state:       manager,
		log:         log,
		buffer:      buffer,
		meta:        meta,
		logger:      logger,
		tokenSymbol: tokenSymbol,
		pool:        state.PoolAddress(),
		authToken:   strings.TrimSpace(os.Getenv(TokenEnv)),
		metrics:     observability.Metrics(),
	}
}

// Handler returns the HTTP handler serving JSON-RPC, the event stream and
// prometheus metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.HandleFunc("/ws/events", s.handleEventsWS)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start serves the handler on addr and blocks.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting JSON-RPC server", slog.String("addr", addr))
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req RPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", nil)
		return
	}

	handler, ok := s.routes()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method), nil)
		return
	}

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	handler(rec, r, &req)
	outcome := "ok"
	if rec.status >= http.StatusBadRequest {
		outcome = "error"
		s.metrics.ObserveError(req.Method, strconv.Itoa(rec.status))
	}
	s.metrics.ObserveRequest(req.Method, outcome, time.Since(start))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type handlerFunc func(http.ResponseWriter, *http.Request, *RPCRequest)

func (s *Server) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		"remint_initialize":       s.handleInitialize,
		"remint_burnForCredits":   s.handleBurnForCredits,
		"remint_registerCreator":  s.handleRegisterCreator,
		"remint_recordViews":      s.handleRecordViews,
		"remint_updateReputation": s.handleUpdateReputation,
		"remint_distributeReward": s.handleDistributeReward,
		"remint_claimRewards":     s.handleClaimRewards,
		"remint_getConfig":        s.handleGetConfig,
		"remint_getCredits":       s.handleGetCredits,
		"remint_getCreator":       s.handleGetCreator,
		"remint_getEvents":        s.handleGetEvents,
	}
}

// requireAuth gates privileged methods behind the configured bearer token.
func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "rpc auth token not configured"}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid bearer token"}
	}
	return nil
}

// execute runs a mutating operation as a single transaction: on success the
// trie is committed, the buffered events are flushed to the log and the new
// root persisted; on failure every in-memory mutation is discarded and no
// event reaches the log.
func (s *Server) execute(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Reset()
	if err := fn(); err != nil {
		if rollbackErr := s.state.Rollback(); rollbackErr != nil {
			s.logger.Error("state rollback failed", slog.Any("error", rollbackErr))
		}
		return err
	}
	root, err := s.state.Commit()
	if err != nil {
		if rollbackErr := s.state.Rollback(); rollbackErr != nil {
			s.logger.Error("state rollback failed", slog.Any("error", rollbackErr))
		}
		return err
	}
	if err := s.buffer.Flush(s.log); err != nil {
		return fmt.Errorf("flush events: %w", err)
	}
	if s.meta != nil {
		if err := state.SaveRoot(s.meta, root); err != nil {
			return err
		}
	}
	return nil
}

func errorStatus(err error) (int, int) {
	switch {
	case errors.Is(err, remint.ErrUnauthorized):
		return http.StatusForbidden, codeUnauthorized
	case errors.Is(err, remint.ErrInvalidAmount),
		errors.Is(err, remint.ErrInvalidScore),
		errors.Is(err, remint.ErrInvalidTier),
		errors.Is(err, remint.ErrCreatorExists),
		errors.Is(err, remint.ErrCreatorNotFound),
		errors.Is(err, remint.ErrInsufficientPool),
		errors.Is(err, remint.ErrWeeklyCapExceeded),
		errors.Is(err, remint.ErrNothingToClaim),
		errors.Is(err, remint.ErrOverflow),
		errors.Is(err, remint.ErrUnderflow),
		errors.Is(err, remint.ErrAlreadyInitialized),
		errors.Is(err, remint.ErrNotInitialized):
		return http.StatusBadRequest, codeServerError
	default:
		return http.StatusInternalServerError, codeServerError
	}
}

func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	status, code := errorStatus(err)
	writeError(w, status, id, code, err.Error(), nil)
}
