package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"ran-analytics/internal/models"
	"ran-analytics/internal/monitor"
	"ran-analytics/internal/storage"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}
	if err := s.store.Ping(r.Context()); err != nil {
		health["status"] = "degraded"
		health["storage"] = err.Error()
		s.respondJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	s.respondJSON(w, http.StatusOK, health)
}

type ingestRequest struct {
	Kind      string    `json:"kind"`
	Value     *float64  `json:"value"`
	NodeID    uint32    `json:"node_id"`
	CellID    uint32    `json:"cell_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) ingestHandler(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	kind, err := models.ParseMetricKind(req.Kind)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Value == nil {
		s.respondError(w, http.StatusBadRequest, errors.New("value is required"))
		return
	}

	sample := models.Sample{
		Kind:      kind,
		Value:     *req.Value,
		NodeID:    req.NodeID,
		CellID:    req.CellID,
		Timestamp: req.Timestamp,
	}
	if err := s.monitor.Submit(sample); err != nil {
		if errors.Is(err, monitor.ErrQueueFull) {
			s.respondError(w, http.StatusServiceUnavailable, err)
			return
		}
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) statsHandler(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.monitor.Snapshot())
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindVar(w, r)
	if !ok {
		return
	}
	limit, err := intParam(r, "limit", s.opts.WindowSize)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	h, err := s.engine.GetHistory(kind)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if limit < len(h.Samples) {
		h.Samples = h.Samples[len(h.Samples)-limit:]
	}
	s.respondJSON(w, http.StatusOK, h)
}

func (s *Server) anomaliesHandler(w http.ResponseWriter, _ *http.Request) {
	items, count := s.engine.GetRecentAnomalies()
	s.respondJSON(w, http.StatusOK, map[string]any{"count": count, "anomalies": items})
}

func (s *Server) recommendationsHandler(w http.ResponseWriter, _ *http.Request) {
	items, count := s.engine.GetRecentRecommendations()
	s.respondJSON(w, http.StatusOK, map[string]any{"count": count, "recommendations": items})
}

func (s *Server) thresholdsHandler(w http.ResponseWriter, _ *http.Request) {
	table := s.engine.Thresholds()
	out := make(map[string]models.ThresholdConfig, len(table))
	for _, k := range models.AllMetricKinds() {
		out[k.String()] = table[k]
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) modelHandler(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Model())
}

func (s *Server) trainModelHandler(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindVar(w, r)
	if !ok {
		return
	}
	steps, err := s.engine.TrainModel(kind)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	s.logger.Info("model trained", zap.Stringer("kind", kind), zap.Int("steps", steps))
	s.respondJSON(w, http.StatusOK, map[string]any{"kind": kind, "steps": steps, "model": s.engine.Model()})
}

func (s *Server) storedMetricsHandler(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindVar(w, r)
	if !ok {
		return
	}
	from, to, err := timeRange(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	node, err := intParam(r, "node", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	q := storage.MetricQuery{Kind: kind, NodeID: uint32(node), From: from, To: to}
	samples, err := s.store.QueryMetrics(r.Context(), q)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	summary, err := s.store.MetricStats(r.Context(), q)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"kind": kind, "summary": summary, "samples": samples})
}

func (s *Server) storedAnomaliesHandler(w http.ResponseWriter, r *http.Request) {
	from, to, err := timeRange(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	q := storage.AnomalyQuery{Severity: models.SeverityNone, From: from, To: to}
	if v := r.URL.Query().Get("severity"); v != "" {
		if q.Severity, err = models.ParseSeverity(v); err != nil {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}
	}

	items, err := s.store.QueryAnomalies(r.Context(), q)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"count": len(items), "anomalies": items})
}

func (s *Server) storedRecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	from, to, err := timeRange(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	q := storage.RecommendationQuery{Kind: models.RecommendationNone, From: from, To: to}
	if v := r.URL.Query().Get("kind"); v != "" {
		if q.Kind, err = models.ParseRecommendationKind(v); err != nil {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}
	}

	items, err := s.store.QueryRecommendations(r.Context(), q)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"count": len(items), "recommendations": items})
}

func (s *Server) storedEventsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultEventLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	var events []models.Event
	if typ := r.URL.Query().Get("type"); typ != "" {
		events, err = s.store.QueryEvents(r.Context(), storage.EventQuery{Type: models.EventType(typ)})
		if len(events) > limit {
			events = events[len(events)-limit:]
		}
	} else {
		events, err = s.store.RecentEvents(r.Context(), limit)
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"count": len(events), "events": events})
}

func (s *Server) cachedSamplesHandler(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindVar(w, r)
	if !ok {
		return
	}
	limit, err := intParam(r, "limit", s.opts.WindowSize)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	samples, err := s.opts.Cache.RecentSamples(r.Context(), kind, int64(limit))
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"kind": kind, "count": len(samples), "samples": samples})
}

func (s *Server) cachedAnomaliesHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultEventLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	items, err := s.opts.Cache.RecentAnomalies(r.Context(), int64(limit))
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"count": len(items), "anomalies": items})
}

func (s *Server) cachedRecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultEventLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	items, err := s.opts.Cache.RecentRecommendations(r.Context(), int64(limit))
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"count": len(items), "recommendations": items})
}

func (s *Server) kindVar(w http.ResponseWriter, r *http.Request) (models.MetricKind, bool) {
	kind, err := models.ParseMetricKind(mux.Vars(r)["kind"])
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return 0, false
	}
	return kind, true
}

// intParam reads a positive integer query parameter, falling back to def
// when it is absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

// timeRange parses optional RFC3339 from/to parameters.
func timeRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			return from, to, fmt.Errorf("invalid from: %w", err)
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			return from, to, fmt.Errorf("invalid to: %w", err)
		}
	}
	return from, to, nil
}
