package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/registry"
)

// datasourceSummary is one datasource as MCP clients see it. Connection
// URLs never leave the server.
type datasourceSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Backend     string   `json:"backend"`
	Tables      []string `json:"tables"`
	Enabled     bool     `json:"enabled"`
	IsBuiltIn   bool     `json:"is_built_in"`
}

// RegisterDatasourceTools adds the datasource listing tool.
func RegisterDatasourceTools(s *server.MCPServer, reg registry.Service, logger *zap.Logger) {
	tool := mcp.NewTool(
		"list_datasources",
		mcp.WithDescription(
			"List the registered datasources with their queryable tables. "+
				"Use the IDs with the ask and run_sql tools.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sources, err := reg.ListSources(ctx, mcpTenant)
		if err != nil {
			logger.Warn("MCP list_datasources failed", zap.Error(err))
			return errorResult(err), nil
		}

		out := make([]datasourceSummary, 0, len(sources))
		for _, ds := range sources {
			out = append(out, datasourceSummary{
				ID:          ds.ID,
				Name:        ds.Name,
				Description: ds.Description,
				Backend:     string(ds.Backend),
				Tables:      ds.Tables,
				Enabled:     ds.Enabled,
				IsBuiltIn:   ds.IsBuiltIn,
			})
		}
		return jsonResult(out)
	})
}

// enabledSourceIDs lists the IDs of every enabled datasource, the default
// selection when a tool call names none.
func enabledSourceIDs(ctx context.Context, reg registry.Service) ([]string, error) {
	sources, err := reg.ListSources(ctx, mcpTenant)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, ds := range sources {
		if ds.Enabled {
			ids = append(ids, ds.ID)
		}
	}
	return ids, nil
}
