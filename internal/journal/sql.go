package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/microsoft/go-mssqldb"

	"statuspage-sync/internal/status"
)

type dialect struct {
	name       string
	driverName string
	schema     string
	insert     string
	recent     string
	prepareDSN func(dsn string) (string, error)
}

var mysqlDialect = dialect{
	name:       "mysql",
	driverName: "mysql",
	schema: `CREATE TABLE IF NOT EXISTS status_journal (
		id VARCHAR(36) PRIMARY KEY,
		component_id INT NOT NULL,
		component_name VARCHAR(255) NOT NULL,
		source VARCHAR(16) NOT NULL,
		status INT NOT NULL,
		ok BOOLEAN NOT NULL,
		error TEXT NULL,
		recorded_at DATETIME(6) NOT NULL,
		INDEX status_journal_name_idx (component_name, recorded_at)
	)`,
	insert: "INSERT INTO status_journal (id, component_id, component_name, source, status, ok, error, recorded_at) VALUES (?,?,?,?,?,?,?,?)",
	recent: "SELECT id, component_id, component_name, source, status, ok, COALESCE(error, ''), recorded_at FROM status_journal WHERE component_name = ? ORDER BY recorded_at DESC LIMIT ?",
	prepareDSN: mysqlDSN,
}

var sqlserverDialect = dialect{
	name:       "mssql",
	driverName: "sqlserver",
	schema: `IF OBJECT_ID(N'status_journal', N'U') IS NULL
	CREATE TABLE status_journal (
		id NVARCHAR(36) PRIMARY KEY,
		component_id INT NOT NULL,
		component_name NVARCHAR(255) NOT NULL,
		source NVARCHAR(16) NOT NULL,
		status INT NOT NULL,
		ok BIT NOT NULL,
		error NVARCHAR(MAX) NULL,
		recorded_at DATETIME2 NOT NULL
	)`,
	insert: "INSERT INTO status_journal (id, component_id, component_name, source, status, ok, error, recorded_at) VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8)",
	recent: "SELECT TOP (@p2) id, component_id, component_name, source, status, ok, COALESCE(error, ''), recorded_at FROM status_journal WHERE component_name = @p1 ORDER BY recorded_at DESC",
	prepareDSN: func(dsn string) (string, error) { return dsn, nil },
}

// mysqlDSN forces parseTime so recorded_at scans into time.Time.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

type sqlRecorder struct {
	db      *sql.DB
	dialect dialect
}

func openSQL(ctx context.Context, d dialect, dsn string) (*sqlRecorder, error) {
	prepared, err := d.prepareDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid %s journal dsn: %w", d.name, err)
	}
	db, err := sql.Open(d.driverName, prepared)
	if err != nil {
		return nil, fmt.Errorf("open %s journal: %w", d.name, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s journal: %w", d.name, err)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create %s journal table: %w", d.name, err)
	}
	return &sqlRecorder{db: db, dialect: d}, nil
}

func (r *sqlRecorder) Record(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx, r.dialect.insert,
		e.ID, e.ComponentID, e.ComponentName, e.Source, int(e.Status), e.OK, nullString(e.Error), e.At)
	if err != nil {
		return fmt.Errorf("insert %s journal entry: %w", r.dialect.name, err)
	}
	return nil
}

func (r *sqlRecorder) Recent(ctx context.Context, componentName string, limit int) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.recent, componentName, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query %s journal: %w", r.dialect.name, err)
	}
	defer rows.Close()
	results := []Entry{}
	for rows.Next() {
		var e Entry
		var code int
		if err := rows.Scan(&e.ID, &e.ComponentID, &e.ComponentName, &e.Source, &code, &e.OK, &e.Error, &e.At); err != nil {
			return nil, fmt.Errorf("scan %s journal entry: %w", r.dialect.name, err)
		}
		e.Status = status.Status(code)
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s journal: %w", r.dialect.name, err)
	}
	return results, nil
}

func (r *sqlRecorder) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
