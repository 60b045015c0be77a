package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"StakeVault/internal/ingestion"
	"StakeVault/internal/observability"
	"StakeVault/internal/persistence"
	"StakeVault/internal/projection"
	"StakeVault/internal/query"
)

// HTTPServer serves the JSON query API, admin endpoints, health checks,
// and the Prometheus scrape endpoint.
type HTTPServer struct {
	httpServer *http.Server
	addr       string
	logger     zerolog.Logger
}

// HTTPDeps holds the dependencies the HTTP handlers need.
type HTTPDeps struct {
	DB            *sql.DB
	QueryService  *query.QueryService
	AdminIngest   *ingestion.AdminIngestService
	SnapshotMgr   *persistence.SnapshotManager
	HealthChecker *observability.HealthChecker
	Logger        zerolog.Logger
}

func NewHTTPServer(addr string, deps *HTTPDeps) *HTTPServer {
	mux := http.NewServeMux()

	h := &handlers{
		db:          deps.DB,
		qs:          deps.QueryService,
		adminIngest: deps.AdminIngest,
		snapMgr:     deps.SnapshotMgr,
		logger:      deps.Logger,
	}

	mux.HandleFunc("GET /v1/vault", h.getVaultTotals)
	mux.HandleFunc("GET /v1/subjects", h.getSubjects)
	mux.HandleFunc("GET /v1/users/{id}", h.getUserPosition)
	mux.HandleFunc("GET /v1/users/{id}/journals", h.getJournalHistory)
	mux.HandleFunc("GET /v1/payouts", h.getPayoutHistory)

	mux.HandleFunc("POST /v1/admin/commands/{type}", h.submitCommand)
	mux.HandleFunc("POST /v1/admin/projections/rebuild", h.rebuildProjections)
	mux.HandleFunc("GET /v1/admin/integrity", h.verifyIntegrity)
	mux.HandleFunc("GET /v1/admin/eventlog", h.getEventLogInfo)

	mux.Handle("GET /metrics", promhttp.Handler())
	if deps.HealthChecker != nil {
		mux.HandleFunc("GET /healthz", deps.HealthChecker.LivenessHandler)
		mux.HandleFunc("GET /readyz", deps.HealthChecker.ReadinessHandler)
	}

	return &HTTPServer{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		addr:   addr,
		logger: deps.Logger,
	}
}

// Start runs the HTTP server until the context is cancelled (blocking).
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", s.addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type handlers struct {
	db          *sql.DB
	qs          *query.QueryService
	adminIngest *ingestion.AdminIngestService
	snapMgr     *persistence.SnapshotManager
	logger      zerolog.Logger
}

func (h *handlers) getVaultTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.qs.GetVaultTotals(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (h *handlers) getSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.qs.GetSubjects(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subjects": subjects})
}

func (h *handlers) getUserPosition(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid user id: %w", err))
		return
	}

	pos, err := h.qs.GetUserPosition(r.Context(), userID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (h *handlers) getJournalHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid user id: %w", err))
		return
	}

	limit := queryInt(r, "limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var afterSeq *int64
	if after := queryInt64(r, "after", 0); after > 0 {
		afterSeq = &after
	}

	entries, err := h.qs.GetJournalHistory(r.Context(), userID, limit, afterSeq)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"journals": entries})
}

func (h *handlers) getPayoutHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	entries, err := h.qs.GetPayoutHistory(r.Context(), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"payouts": entries})
}

// submitCommand parses a raw command body and injects it into the
// processing pipeline. The body uses the same wire format as NATS
// commands; the caller supplies the next source sequence for the
// target partition.
func (h *handlers) submitCommand(w http.ResponseWriter, r *http.Request) {
	eventType := r.PathValue("type")

	body := http.MaxBytesReader(w, r.Body, 1<<20)
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}

	raw := ingestion.RawEvent{
		Subject:   "admin",
		Data:      data,
		Timestamp: time.Now(),
	}

	evt, err := ingestion.ParseRawCommand(raw, eventType)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("parse command: %w", err))
		return
	}

	if err := h.adminIngest.Inject(r.Context(), evt); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	h.logger.Info().
		Str("event_type", eventType).
		Str("idempotency_key", evt.IdempotencyKey()).
		Msg("admin command accepted")

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"accepted":        true,
		"idempotency_key": evt.IdempotencyKey(),
	})
}

func (h *handlers) rebuildProjections(w http.ResponseWriter, r *http.Request) {
	if err := projection.RebuildProjections(r.Context(), h.db); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rebuilt": true})
}

func (h *handlers) verifyIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := h.qs.VerifyIntegrity(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) getEventLogInfo(w http.ResponseWriter, r *http.Request) {
	latestSeq, err := h.snapMgr.GetLatestSequence(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"last_sequence": latestSeq})
}

func (h *handlers) writeError(w http.ResponseWriter, code int, err error) {
	if code >= 500 {
		h.logger.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryInt64(r *http.Request, name string, def int64) int64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
