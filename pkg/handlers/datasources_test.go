package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
	"github.com/askdb-io/askdb-engine/pkg/models"
)

// stubDatasourceRegistry is a minimal registry double for handler tests.
type stubDatasourceRegistry struct {
	sources    []models.Datasource
	upsertErr  error
	deleteErr  error
	lastTenant string
}

func (s *stubDatasourceRegistry) ListSources(_ context.Context, tenant string) ([]models.Datasource, error) {
	s.lastTenant = tenant
	return s.sources, nil
}

func (s *stubDatasourceRegistry) UpsertSource(_ context.Context, _ string, d models.Datasource) (*models.Datasource, error) {
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	return &d, nil
}

func (s *stubDatasourceRegistry) DeleteSource(_ context.Context, _ string, _ string) error {
	return s.deleteErr
}

func (s *stubDatasourceRegistry) ResolveTableRefs(_ context.Context, _ string, _ []string) ([]models.TableRef, error) {
	return nil, nil
}

func (s *stubDatasourceRegistry) AllowedTables(_ context.Context, _ string, _ []string) (map[string]struct{}, error) {
	return nil, nil
}

func newDatasourceServer(reg *stubDatasourceRegistry) *httptest.Server {
	mux := http.NewServeMux()
	NewDatasourceHandler(reg, zap.NewNop()).RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func TestListDatasourcesNeverEchoesConnectionURL(t *testing.T) {
	reg := &stubDatasourceRegistry{
		sources: []models.Datasource{
			{ID: "main", Name: "Main", Backend: models.BackendEmbedded, Tables: []string{"fire_alarm_record"}, Enabled: true, IsBuiltIn: true},
			{ID: "sales", Backend: models.BackendMySQL, ConnectionURL: "user:topsecret@tcp(h)/db", Tables: []string{"orders"}, Enabled: true},
		},
	}
	server := newDatasourceServer(reg)
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/datasources", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "acme", reg.lastTenant)

	var envelope struct {
		Success bool                 `json:"success"`
		Data    []DatasourceResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data, 2)
	assert.Equal(t, "main", envelope.Data[0].ID)
	assert.True(t, envelope.Data[0].IsBuiltIn)

	// Raw check: the secret must not appear anywhere in the payload.
	raw, _ := json.Marshal(envelope)
	assert.NotContains(t, string(raw), "topsecret")
}

func TestUpsertDatasourceValidation(t *testing.T) {
	reg := &stubDatasourceRegistry{
		upsertErr: fmt.Errorf("datasource id %q: %w", "1bad", apperrors.ErrValidation),
	}
	server := newDatasourceServer(reg)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/datasources", UpsertDatasourceRequest{
		ID: "1bad", Backend: "embedded", Tables: []string{"t"},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteBuiltinDatasourceForbidden(t *testing.T) {
	reg := &stubDatasourceRegistry{
		deleteErr: fmt.Errorf("built-in datasource %q: %w", "main", apperrors.ErrForbidden),
	}
	server := newDatasourceServer(reg)
	defer server.Close()

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/datasources/main", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUpsertDatasourceUnreachableRemote(t *testing.T) {
	reg := &stubDatasourceRegistry{
		upsertErr: fmt.Errorf("datasource %q: %w", "sales", apperrors.ErrConnection),
	}
	server := newDatasourceServer(reg)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/datasources", UpsertDatasourceRequest{
		ID: "sales", Backend: "mysql", ConnectionURL: "user:pw@tcp(h)/db", Tables: []string{"orders"},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var envelope ApiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.False(t, envelope.Success)
	assert.NotContains(t, envelope.Error, "pw@", "errors must not leak credentials")
}
