// Package ingress is the thin HTTP transport binding over
// internal/dispatcher's admission operations (spec.md §6 "External
// Interfaces"). It does no business logic: decode, call, encode.
package ingress

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ash20pk/breakchain-sub000/internal/dispatcher"
	"github.com/Ash20pk/breakchain-sub000/internal/dispatchererr"
)

// Server is the HTTP front door onto a Dispatcher.
type Server struct {
	d   *dispatcher.Dispatcher
	mux *http.ServeMux
	log log.Logger
}

// New builds a Server routing the operations of spec.md §6 plus a
// Prometheus scrape endpoint.
func New(d *dispatcher.Dispatcher) *Server {
	s := &Server{d: d, mux: http.NewServeMux(), log: log.New("component", "ingress")}
	s.mux.HandleFunc("/v1/jump", s.handleJump)
	s.mux.HandleFunc("/v1/gameover", s.handleGameOver)
	s.mux.HandleFunc("/v1/setplayer", s.handleSetPlayer)
	s.mux.HandleFunc("/v1/pending", s.handlePending)
	s.mux.HandleFunc("/v1/accounts", s.handleAccounts)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

// ServeHTTP implements http.Handler so Server can be passed directly to
// http.Server / httptest.NewServer. Every request is tagged with a
// request id, surfaced to the caller and to log lines for this request, so
// an admission call can be traced across the dispatcher without depending
// on the store-assigned intent id (which does not exist yet at decode
// time, and never exists at all for a rejected request).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.New().String()
	w.Header().Set("X-Request-Id", reqID)
	s.mux.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), reqID)))
}

type jumpRequest struct {
	Player     string `json:"player"`
	GameID     string `json:"game_id"`
	Score      string `json:"score"`
	Height     string `json:"height"`
	ClientTSMs string `json:"client_ts_ms"`
}

type gameOverRequest struct {
	Player     string `json:"player"`
	GameID     string `json:"game_id"`
	Score      string `json:"score"`
	ClientTSMs string `json:"client_ts_ms"`
}

type setPlayerRequest struct {
	Player     string `json:"player"`
	GameID     string `json:"game_id"`
	Username   string `json:"username"`
	ClientTSMs string `json:"client_ts_ms"`
}

type admitResponse struct {
	ID int64 `json:"id"`
}

func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req jumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	score, err := parseUint256(req.Score)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	height, err := parseUint256(req.Height)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ts, err := parseUint256(req.ClientTSMs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.d.SubmitJump(r.Context(), req.Player, req.GameID, score, height, ts)
	s.respondAdmit(w, r, id, err)
}

func (s *Server) handleGameOver(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req gameOverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	score, err := parseUint256(req.Score)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ts, err := parseUint256(req.ClientTSMs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.d.SubmitGameOver(r.Context(), req.Player, req.GameID, score, ts)
	s.respondAdmit(w, r, id, err)
}

func (s *Server) handleSetPlayer(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req setPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ts, err := parseUint256(req.ClientTSMs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.d.SubmitSetPlayer(r.Context(), req.Player, req.GameID, req.Username, ts)
	s.respondAdmit(w, r, id, err)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	n, err := s.d.PendingCount(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"pending": n})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.d.AccountStatus())
}

func (s *Server) respondAdmit(w http.ResponseWriter, r *http.Request, id int64, err error) {
	if err != nil {
		s.log.Warn("ingress: admission failed", "request_id", requestID(r.Context()), "err", err)
		if dispatchererr.Is(err, dispatchererr.StoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, admitResponse{ID: id})
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func parseUint256(s string) (*uint256.Int, error) {
	if s == "" {
		return uint256.NewInt(0), nil
	}
	n, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, &strconvError{s}
	}
	return n, nil
}

type strconvError struct{ s string }

func (e *strconvError) Error() string { return "invalid decimal integer: " + strconv.Quote(e.s) }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
