package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
	"github.com/askdb-io/askdb-engine/pkg/models"
)

// stubVerifier accepts or rejects every draft, recording calls.
type stubVerifier struct {
	err      error
	verified []string
}

func (v *stubVerifier) VerifyEmbedded(_ context.Context, ds models.Datasource) error {
	v.verified = append(v.verified, ds.ID)
	return v.err
}

func (v *stubVerifier) VerifyRemote(_ context.Context, ds models.Datasource) error {
	v.verified = append(v.verified, ds.ID)
	return v.err
}

var _ Verifier = (*stubVerifier)(nil)

func testBuiltins() []models.Datasource {
	return []models.Datasource{
		{
			ID:        "main",
			Name:      "主数据库",
			Backend:   models.BackendEmbedded,
			Path:      "main.db",
			Tables:    []string{"fire_alarm_record", "device_info"},
			Enabled:   true,
			IsBuiltIn: true,
		},
		{
			ID:        "alarm",
			Name:      "告警库",
			Backend:   models.BackendEmbedded,
			Path:      "alarm.db",
			Tables:    []string{"fire_alarm_record"},
			Enabled:   true,
			IsBuiltIn: true,
		},
	}
}

func newTestService(t *testing.T, verifier Verifier) (Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	if verifier == nil {
		verifier = &stubVerifier{}
	}
	svc := NewService(testBuiltins(), store, verifier, "main", zap.NewNop())
	return svc, store
}

func TestListSourcesMergeOrder(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	// Add two customs; they must come after built-ins in creation order.
	_, err := svc.UpsertSource(ctx, "t1", models.Datasource{
		ID: "sales", Backend: models.BackendMySQL, ConnectionURL: "u", Tables: []string{"orders"}, Enabled: true,
	})
	require.NoError(t, err)
	_, err = svc.UpsertSource(ctx, "t1", models.Datasource{
		ID: "billing", Backend: models.BackendPostgres, ConnectionURL: "u", Tables: []string{"invoices"}, Enabled: true,
	})
	require.NoError(t, err)

	sources, err := svc.ListSources(ctx, "t1")
	require.NoError(t, err)

	ids := make([]string, len(sources))
	for i, ds := range sources {
		ids[i] = ds.ID
	}
	assert.Equal(t, []string{"main", "alarm", "sales", "billing"}, ids)
}

func TestListSourcesBuiltinOverrideExtendsTables(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.UpsertSource(ctx, "t1", models.Datasource{
		ID:      "alarm",
		Name:    "renamed",
		Tables:  []string{"fire_alarm_record", "smoke_alarm_record"},
		Enabled: true,
	})
	require.NoError(t, err)

	sources, err := svc.ListSources(ctx, "t1")
	require.NoError(t, err)

	var alarm *models.Datasource
	for i := range sources {
		if sources[i].ID == "alarm" {
			alarm = &sources[i]
		}
	}
	require.NotNil(t, alarm)
	assert.True(t, alarm.IsBuiltIn)
	assert.Equal(t, "renamed", alarm.Name)
	// Built-in tables first, extension appended; backend stays embedded.
	assert.Equal(t, []string{"fire_alarm_record", "smoke_alarm_record"}, alarm.Tables)
	assert.Equal(t, models.BackendEmbedded, alarm.Backend)
	assert.Equal(t, "alarm.db", alarm.Path)
}

func TestUpsertSourceRejectsBadIdentifiers(t *testing.T) {
	svc, store := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.UpsertSource(ctx, "t1", models.Datasource{ID: "7days", Enabled: true})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.UpsertSource(ctx, "t1", models.Datasource{
		ID: "ok", Backend: models.BackendMySQL, Tables: []string{"bad-table"}, Enabled: true,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Nothing persisted.
	customs, err := store.List(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, customs)
}

func TestUpsertSourceNeverPartiallyPersists(t *testing.T) {
	verifier := &stubVerifier{err: errors.New("connect refused")}
	svc, store := newTestService(t, verifier)
	ctx := context.Background()

	_, err := svc.UpsertSource(ctx, "t1", models.Datasource{
		ID: "sales", Backend: models.BackendMySQL, ConnectionURL: "u", Tables: []string{"orders"}, Enabled: true,
	})
	require.Error(t, err)

	customs, err := store.List(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, customs)
}

func TestDeleteSourceRejectsBuiltins(t *testing.T) {
	svc, _ := newTestService(t, nil)

	err := svc.DeleteSource(context.Background(), "t1", "alarm")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestResolveTableRefsAliasing(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	refs, err := svc.ResolveTableRefs(ctx, "t1", []string{"main", "alarm"})
	require.NoError(t, err)

	aliases := make([]string, len(refs))
	for i, ref := range refs {
		aliases[i] = ref.Alias
	}
	// Primary tables keep bare names; everything else gets the prefix.
	assert.Equal(t, []string{"fire_alarm_record", "device_info", "alarm__fire_alarm_record"}, aliases)
}

func TestResolveTableRefsDeterministicAcrossCallOrder(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.ResolveTableRefs(ctx, "t1", []string{"main", "alarm"})
	require.NoError(t, err)
	second, err := svc.ResolveTableRefs(ctx, "t1", []string{"alarm", "main"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveTableRefsErrors(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.ResolveTableRefs(ctx, "t1", nil)
	assert.ErrorIs(t, err, apperrors.ErrNoDatasources)

	_, err = svc.ResolveTableRefs(ctx, "t1", []string{"ghost"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAllowedTables(t *testing.T) {
	svc, _ := newTestService(t, nil)

	allowed, err := svc.AllowedTables(context.Background(), "t1", []string{"alarm"})
	require.NoError(t, err)

	_, ok := allowed["alarm__fire_alarm_record"]
	assert.True(t, ok)
	assert.Len(t, allowed, 1)
}
