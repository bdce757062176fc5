package datasource

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/askdb-io/askdb-engine/pkg/models"
)

// dialect captures the per-driver differences: driver registration name,
// identifier quoting, row limiting, and the information_schema column query.
type dialect struct {
	driverName string
	// columnsQuery selects (column_name, data_type) for one table, taking
	// the table name as the sole bind parameter.
	columnsQuery string
	quote        func(ident string) string
	limitSelect  func(columnList, table string, limit int) string
}

var postgresDialect = dialect{
	driverName: "pgx",
	columnsQuery: `SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = $1 AND table_schema = 'public'
		ORDER BY ordinal_position`,
	quote: quoteDouble,
	limitSelect: func(columnList, table string, limit int) string {
		return fmt.Sprintf("SELECT %s FROM %s LIMIT %d", columnList, table, limit)
	},
}

var mysqlDialect = dialect{
	driverName: "mysql",
	columnsQuery: `SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = ? AND table_schema = DATABASE()
		ORDER BY ordinal_position`,
	quote: func(ident string) string {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	},
	limitSelect: func(columnList, table string, limit int) string {
		return fmt.Sprintf("SELECT %s FROM %s LIMIT %d", columnList, table, limit)
	},
}

var mssqlDialect = dialect{
	driverName: "sqlserver",
	columnsQuery: `SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = @p1
		ORDER BY ordinal_position`,
	quote: func(ident string) string {
		return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
	},
	limitSelect: func(columnList, table string, limit int) string {
		return fmt.Sprintf("SELECT TOP %d %s FROM %s", limit, columnList, table)
	},
}

func quoteDouble(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// dialectFor maps a backend type to its dialect.
func dialectFor(backend models.BackendType) (dialect, error) {
	switch backend {
	case models.BackendPostgres:
		return postgresDialect, nil
	case models.BackendMySQL:
		return mysqlDialect, nil
	case models.BackendMSSQL:
		return mssqlDialect, nil
	default:
		return dialect{}, fmt.Errorf("no remote connector for backend %q", backend)
	}
}
