// Package registry resolves logical datasource identifiers to physical
// backends and per-query table allow-lists.
package registry

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
	"github.com/askdb-io/askdb-engine/pkg/models"
	enginesql "github.com/askdb-io/askdb-engine/pkg/sql"
)

// Service merges built-in datasources with tenant customs and computes the
// per-query table resolution used by the validator and execution engine.
type Service interface {
	// ListSources returns built-ins (fixed identities, fixed order) merged
	// with the tenant's custom records in creation order.
	ListSources(ctx context.Context, tenant string) ([]models.Datasource, error)

	// UpsertSource validates and verifies a draft before persisting it.
	// It never partially persists: verification failures leave the store
	// untouched.
	UpsertSource(ctx context.Context, tenant string, draft models.Datasource) (*models.Datasource, error)

	// DeleteSource removes a custom datasource. Built-in IDs are rejected
	// with apperrors.ErrForbidden.
	DeleteSource(ctx context.Context, tenant string, id string) error

	// ResolveTableRefs computes the uniquely-aliased table list for the
	// selected datasource IDs. Aliases are deterministic: same selection,
	// same refs.
	ResolveTableRefs(ctx context.Context, tenant string, datasourceIDs []string) ([]models.TableRef, error)

	// AllowedTables returns the per-query allow-list as a set of lowercased
	// aliases.
	AllowedTables(ctx context.Context, tenant string, datasourceIDs []string) (map[string]struct{}, error)
}

type service struct {
	builtins  []models.Datasource
	store     Store
	verifier  Verifier
	primaryID string
	logger    *zap.Logger
}

// NewService creates the registry service. primaryID names the datasource
// whose tables live in the engine's own embedded database and keep their
// bare names as aliases.
func NewService(builtins []models.Datasource, store Store, verifier Verifier, primaryID string, logger *zap.Logger) Service {
	return &service{
		builtins:  builtins,
		store:     store,
		verifier:  verifier,
		primaryID: primaryID,
		logger:    logger.Named("registry"),
	}
}

func (s *service) ListSources(ctx context.Context, tenant string) ([]models.Datasource, error) {
	customs, err := s.store.List(ctx, tenant)
	if err != nil {
		return nil, err
	}

	overrides := make(map[string]models.Datasource, len(customs))
	for _, c := range customs {
		overrides[c.ID] = c
	}

	// Built-ins first, in fixed order; a custom record with a built-in's ID
	// is an override, not a new source.
	merged := make([]models.Datasource, 0, len(s.builtins)+len(customs))
	for _, b := range s.builtins {
		if o, ok := overrides[b.ID]; ok {
			merged = append(merged, mergeBuiltin(b, o))
			delete(overrides, b.ID)
			continue
		}
		merged = append(merged, b)
	}
	// Overrides consumed above were removed from the map; what remains are
	// genuinely custom sources, appended in creation order.
	for _, c := range customs {
		if _, ok := overrides[c.ID]; ok {
			merged = append(merged, c)
		}
	}
	return merged, nil
}

// mergeBuiltin applies a tenant override to a built-in: the table list is
// extended (union, built-in tables first), name and enabled follow the
// override, and the physical backend stays the built-in's.
func mergeBuiltin(builtin, override models.Datasource) models.Datasource {
	merged := builtin
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Description != "" {
		merged.Description = override.Description
	}
	merged.Enabled = override.Enabled

	have := make(map[string]struct{}, len(builtin.Tables))
	for _, t := range builtin.Tables {
		have[t] = struct{}{}
	}
	for _, t := range override.Tables {
		if _, ok := have[t]; !ok {
			merged.Tables = append(merged.Tables, t)
		}
	}
	return merged
}

func (s *service) UpsertSource(ctx context.Context, tenant string, draft models.Datasource) (*models.Datasource, error) {
	if err := enginesql.ValidateIdentifier(draft.ID, "datasource id"); err != nil {
		return nil, err
	}
	for _, table := range draft.Tables {
		if err := enginesql.ValidateIdentifier(table, "table name"); err != nil {
			return nil, err
		}
	}

	if builtin := s.findBuiltin(draft.ID); builtin != nil {
		// Overrides extend a built-in; the built-in's backend wins, so
		// verification runs against it.
		draft.IsBuiltIn = true
		draft.Backend = builtin.Backend
		draft.Path = builtin.Path
		draft.ConnectionURL = builtin.ConnectionURL
	}

	if err := s.verify(ctx, draft); err != nil {
		return nil, err
	}

	if err := s.store.Upsert(ctx, tenant, draft); err != nil {
		return nil, err
	}

	s.logger.Info("datasource upserted",
		zap.String("tenant", tenant),
		zap.String("datasource", draft.ID),
		zap.Int("tables", len(draft.Tables)))
	return &draft, nil
}

func (s *service) verify(ctx context.Context, ds models.Datasource) error {
	if ds.Backend == models.BackendEmbedded {
		return s.verifier.VerifyEmbedded(ctx, ds)
	}
	return s.verifier.VerifyRemote(ctx, ds)
}

func (s *service) DeleteSource(ctx context.Context, tenant string, id string) error {
	if s.findBuiltin(id) != nil {
		return fmt.Errorf("%w: built-in datasource %q cannot be deleted", apperrors.ErrForbidden, id)
	}
	return s.store.Delete(ctx, tenant, id)
}

func (s *service) findBuiltin(id string) *models.Datasource {
	for i := range s.builtins {
		if s.builtins[i].ID == id {
			return &s.builtins[i]
		}
	}
	return nil
}

func (s *service) ResolveTableRefs(ctx context.Context, tenant string, datasourceIDs []string) ([]models.TableRef, error) {
	if len(datasourceIDs) == 0 {
		return nil, apperrors.ErrNoDatasources
	}

	merged, err := s.ListSources(ctx, tenant)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Datasource, len(merged))
	for _, ds := range merged {
		byID[ds.ID] = ds
	}

	selected := make(map[string]struct{}, len(datasourceIDs))
	for _, id := range datasourceIDs {
		ds, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: datasource %q", apperrors.ErrNotFound, id)
		}
		if !ds.Enabled {
			return nil, fmt.Errorf("%w: datasource %q is disabled", apperrors.ErrForbidden, id)
		}
		selected[id] = struct{}{}
	}

	// Walk the merged order, not the request order, so aliases are stable
	// regardless of how the caller ordered the selection.
	var refs []models.TableRef
	for _, ds := range merged {
		if _, ok := selected[ds.ID]; !ok {
			continue
		}
		for _, table := range ds.Tables {
			refs = append(refs, models.TableRef{
				Alias:         s.aliasFor(ds.ID, table),
				PhysicalTable: table,
				DatasourceID:  ds.ID,
				Backend:       ds.Backend,
			})
		}
	}
	return refs, nil
}

func (s *service) aliasFor(datasourceID, table string) string {
	if datasourceID == s.primaryID {
		return table
	}
	return datasourceID + "__" + table
}

func (s *service) AllowedTables(ctx context.Context, tenant string, datasourceIDs []string) (map[string]struct{}, error) {
	refs, err := s.ResolveTableRefs(ctx, tenant, datasourceIDs)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		allowed[strings.ToLower(ref.Alias)] = struct{}{}
	}
	return allowed, nil
}
