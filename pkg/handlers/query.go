package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/jsonutil"
	"github.com/askdb-io/askdb-engine/pkg/models"
	"github.com/askdb-io/askdb-engine/pkg/services"
)

// AskRequest is the body for POST /api/ask and /api/ask/stream.
type AskRequest struct {
	Question      string               `json:"question"`
	DatasourceIDs []string             `json:"datasource_ids"`
	History       []models.HistoryTurn `json:"history,omitempty"`
}

// RunSQLRequest is the body for POST /api/query.
type RunSQLRequest struct {
	SQL           string   `json:"sql"`
	DatasourceIDs []string `json:"datasource_ids"`
	Question      string   `json:"question,omitempty"`
}

// DrilldownRequest is the body for POST /api/drilldown. Value accepts a
// string or a number; chart click payloads send either.
type DrilldownRequest struct {
	ResultID      string          `json:"result_id"`
	Field         string          `json:"field"`
	Value         json.RawMessage `json:"value"`
	DatasourceIDs []string        `json:"datasource_ids"`
}

// QueryHandler exposes the ask pipeline over HTTP.
type QueryHandler struct {
	svc    services.QueryService
	logger *zap.Logger
}

func NewQueryHandler(svc services.QueryService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers the query routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ask", h.Ask)
	mux.HandleFunc("POST /api/ask/stream", h.AskStream)
	mux.HandleFunc("POST /api/query", h.RunSQL)
	mux.HandleFunc("POST /api/drilldown", h.Drilldown)
}

// Ask handles POST /api/ask.
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.svc.Ask(r.Context(), TenantID(r), services.AskRequest{
		Question:      req.Question,
		DatasourceIDs: req.DatasourceIDs,
		History:       req.History,
	})
	if err != nil {
		h.logger.Warn("Ask failed", zap.Error(err))
		h.writeErr(w, err)
		return
	}
	h.writeOK(w, resp)
}

// AskStream handles POST /api/ask/stream with Server-Sent Events: one
// data: line per engine event, terminated by the done event.
func (h *QueryHandler) AskStream(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("SSE not supported by response writer")
		_ = ErrorResponse(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events := make(chan models.Event, 100)
	go func() {
		defer close(events)
		h.svc.AskStream(r.Context(), TenantID(r), services.AskRequest{
			Question:      req.Question,
			DatasourceIDs: req.DatasourceIDs,
			History:       req.History,
		}, events)
	}()

	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("Failed to marshal event", zap.Error(err))
			continue
		}

		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()

		if event.Type == models.EventDone {
			break
		}
	}
}

// RunSQL handles POST /api/query.
func (h *QueryHandler) RunSQL(w http.ResponseWriter, r *http.Request) {
	var req RunSQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SQL == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "sql is required")
		return
	}

	result, err := h.svc.RunSQL(r.Context(), TenantID(r), req.SQL, req.DatasourceIDs, req.Question)
	if err != nil {
		h.logger.Warn("RunSQL failed", zap.Error(err))
		h.writeErr(w, err)
		return
	}
	h.writeOK(w, result)
}

// Drilldown handles POST /api/drilldown.
func (h *QueryHandler) Drilldown(w http.ResponseWriter, r *http.Request) {
	var req DrilldownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ResultID == "" || req.Field == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "result_id and field are required")
		return
	}

	value, err := jsonutil.FlexibleValue(req.Value)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid drill-down value")
		return
	}

	result, err := h.svc.Drilldown(r.Context(), TenantID(r), req.ResultID, req.Field, value, req.DatasourceIDs)
	if err != nil {
		h.logger.Warn("Drilldown failed",
			zap.String("result_id", req.ResultID),
			zap.String("field", req.Field),
			zap.Error(err))
		h.writeErr(w, err)
		return
	}
	h.writeOK(w, result)
}

func (h *QueryHandler) writeOK(w http.ResponseWriter, data any) {
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *QueryHandler) writeErr(w http.ResponseWriter, err error) {
	if werr := WriteAppError(w, err); werr != nil {
		h.logger.Error("Failed to write error response", zap.Error(werr))
	}
}
