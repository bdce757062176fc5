// Package models defines the domain types shared across the engine.
package models

// BackendType discriminates how a datasource is physically reached.
type BackendType string

const (
	// BackendEmbedded is a DuckDB database file on local disk.
	BackendEmbedded BackendType = "embedded"
	// BackendPostgres is a remote PostgreSQL database.
	BackendPostgres BackendType = "postgres"
	// BackendMySQL is a remote MySQL database.
	BackendMySQL BackendType = "mysql"
	// BackendMSSQL is a remote SQL Server database.
	BackendMSSQL BackendType = "mssql"
)

// IsRemote reports whether the backend requires a network connection.
func (b BackendType) IsRemote() bool {
	return b == BackendPostgres || b == BackendMySQL || b == BackendMSSQL
}

// Datasource is a registered logical source of tables.
//
// Built-in datasources are identity anchors: a tenant may extend their table
// list, rename them, or toggle Enabled, but their IDs can never be deleted.
type Datasource struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Backend     BackendType `json:"backend" yaml:"backend"`
	// Path is the database file for embedded backends.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// ConnectionURL is the DSN for remote backends. Never logged raw.
	ConnectionURL string   `json:"connection_url,omitempty" yaml:"connection_url,omitempty"`
	Tables        []string `json:"tables" yaml:"tables"`
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	IsBuiltIn     bool     `json:"is_built_in" yaml:"-"`
}

// TableRef is a resolved, uniquely-aliased view of one physical table,
// recomputed per query and never persisted.
type TableRef struct {
	// Alias is the name the table carries inside the unified query schema.
	// Tables of the primary datasource keep their bare names; all others
	// get "{datasourceID}__{table}".
	Alias         string      `json:"alias"`
	PhysicalTable string      `json:"physical_table"`
	DatasourceID  string      `json:"datasource_id"`
	Backend       BackendType `json:"backend"`
}

// Column describes one introspected column of a physical table.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}
