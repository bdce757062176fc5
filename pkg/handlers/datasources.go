package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/models"
	"github.com/askdb-io/askdb-engine/pkg/registry"
)

// UpsertDatasourceRequest is the draft for creating or updating a source.
type UpsertDatasourceRequest struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Backend       string   `json:"backend"`
	Path          string   `json:"path,omitempty"`
	ConnectionURL string   `json:"connection_url,omitempty"`
	Tables        []string `json:"tables"`
	Enabled       *bool    `json:"enabled,omitempty"`
}

// DatasourceResponse is one datasource as surfaced over the API. The
// connection URL is never echoed back.
type DatasourceResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Backend     string   `json:"backend"`
	Tables      []string `json:"tables"`
	Enabled     bool     `json:"enabled"`
	IsBuiltIn   bool     `json:"is_built_in"`
}

// DatasourceHandler exposes registry CRUD.
type DatasourceHandler struct {
	registry registry.Service
	logger   *zap.Logger
}

func NewDatasourceHandler(reg registry.Service, logger *zap.Logger) *DatasourceHandler {
	return &DatasourceHandler{registry: reg, logger: logger}
}

// RegisterRoutes registers the datasource routes on the given mux.
func (h *DatasourceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/datasources", h.List)
	mux.HandleFunc("POST /api/datasources", h.Upsert)
	mux.HandleFunc("DELETE /api/datasources/{id}", h.Delete)
}

// List handles GET /api/datasources.
func (h *DatasourceHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.registry.ListSources(r.Context(), TenantID(r))
	if err != nil {
		h.logger.Error("Failed to list datasources", zap.Error(err))
		h.writeErr(w, err)
		return
	}

	out := make([]DatasourceResponse, 0, len(sources))
	for _, ds := range sources {
		out = append(out, toDatasourceResponse(ds))
	}
	h.writeOK(w, out)
}

// Upsert handles POST /api/datasources. The draft is verified against the
// live backend before anything persists.
func (h *DatasourceHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertDatasourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	draft := models.Datasource{
		ID:            req.ID,
		Name:          req.Name,
		Description:   req.Description,
		Backend:       models.BackendType(req.Backend),
		Path:          req.Path,
		ConnectionURL: req.ConnectionURL,
		Tables:        req.Tables,
		Enabled:       enabled,
	}

	saved, err := h.registry.UpsertSource(r.Context(), TenantID(r), draft)
	if err != nil {
		h.logger.Warn("Datasource upsert rejected",
			zap.String("id", req.ID),
			zap.Error(err))
		h.writeErr(w, err)
		return
	}
	h.writeOK(w, toDatasourceResponse(*saved))
}

// Delete handles DELETE /api/datasources/{id}.
func (h *DatasourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.registry.DeleteSource(r.Context(), TenantID(r), id); err != nil {
		h.logger.Warn("Datasource delete rejected",
			zap.String("id", id),
			zap.Error(err))
		h.writeErr(w, err)
		return
	}
	h.writeOK(w, map[string]string{"id": id})
}

func (h *DatasourceHandler) writeOK(w http.ResponseWriter, data any) {
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *DatasourceHandler) writeErr(w http.ResponseWriter, err error) {
	if werr := WriteAppError(w, err); werr != nil {
		h.logger.Error("Failed to write error response", zap.Error(werr))
	}
}

func toDatasourceResponse(ds models.Datasource) DatasourceResponse {
	return DatasourceResponse{
		ID:          ds.ID,
		Name:        ds.Name,
		Description: ds.Description,
		Backend:     string(ds.Backend),
		Tables:      ds.Tables,
		Enabled:     ds.Enabled,
		IsBuiltIn:   ds.IsBuiltIn,
	}
}
