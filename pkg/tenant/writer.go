// Package tenant writes normalized records into subscriber-owned databases.
// Connections are opened fresh for every write and closed immediately after:
// tenant databases are external systems with unknown lifetimes, and holding
// pooled connections to them ties our health to theirs.
package tenant

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jackc/pgx/v5"
	"github.com/solindex-labs/solindex/pkg/db/postgres"
	"github.com/solindex-labs/solindex/pkg/event"
	"github.com/solindex-labs/solindex/pkg/normalize"
	"github.com/solindex-labs/solindex/pkg/store"
	"go.uber.org/zap"
)

// DefaultConnectTimeout bounds the dial to a tenant database.
const DefaultConnectTimeout = 30 * time.Second

// Writer performs schema-ensured single-row inserts into tenant databases.
type Writer struct {
	Logger         *zap.Logger
	ConnectTimeout time.Duration
}

// NewWriter returns a Writer with the default connect timeout.
func NewWriter(logger *zap.Logger) *Writer {
	return &Writer{Logger: logger, ConnectTimeout: DefaultConnectTimeout}
}

// Write inserts one record into the job's destination table, creating the
// table first if it does not exist. Errors are classified: *ConnectionError
// for unreachable databases, *SchemaError for DDL failures, and
// *ConstraintError for duplicate signatures.
func (w *Writer) Write(ctx context.Context, job *store.Job, rec normalize.Record) error {
	cat := rec.EventCategory()
	if jobCat, ok := job.Category(); !ok || jobCat != cat {
		return fmt.Errorf("job %d subscribes to %s, got %s record", job.ID, job.Type, cat)
	}

	switch job.Engine() {
	case store.EngineOptionClickHouse:
		return w.writeClickHouse(ctx, job, cat, rec)
	default:
		return w.writePostgres(ctx, job, cat, rec)
	}
}

// Provision verifies that the job's database is reachable and that its
// destination table exists, creating the table when missing. Used when a job
// is registered, before any event flows to it.
func (w *Writer) Provision(ctx context.Context, job *store.Job) error {
	cat, ok := job.Category()
	if !ok {
		return fmt.Errorf("job %d has unsupported type %q", job.ID, job.Type)
	}

	switch job.Engine() {
	case store.EngineOptionClickHouse:
		conn, err := w.dialClickHouse(ctx, job)
		if err != nil {
			return err
		}
		defer conn.Close()
		return w.ensureClickHouseTable(ctx, conn, cat)
	default:
		conn, err := w.dialPostgres(ctx, job)
		if err != nil {
			return err
		}
		defer conn.Close(ctx)
		return w.ensurePostgresTable(ctx, conn, cat)
	}
}

func (w *Writer) connectTimeout() time.Duration {
	if w.ConnectTimeout > 0 {
		return w.ConnectTimeout
	}
	return DefaultConnectTimeout
}

func hostPort(job *store.Job) string {
	return net.JoinHostPort(job.DbHost, strconv.Itoa(job.DbPort))
}

// ---- PostgreSQL ----

func postgresDSN(job *store.Job) string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s",
		url.QueryEscape(job.DbUser),
		url.QueryEscape(job.DbPassword),
		hostPort(job),
		url.PathEscape(job.DbName),
	)
}

func (w *Writer) dialPostgres(ctx context.Context, job *store.Job) (*pgx.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, w.connectTimeout())
	defer cancel()

	conn, err := pgx.Connect(dialCtx, postgresDSN(job))
	if err != nil {
		return nil, connError(hostPort(job), err)
	}
	return conn, nil
}

func (w *Writer) ensurePostgresTable(ctx context.Context, conn *pgx.Conn, cat event.Category) error {
	table := cat.Table()
	if _, err := conn.Exec(ctx, PgCreateTableSQL(table, Columns(cat))); err != nil {
		return &SchemaError{Table: table, Err: err}
	}
	return nil
}

func (w *Writer) writePostgres(ctx context.Context, job *store.Job, cat event.Category, rec normalize.Record) error {
	conn, err := w.dialPostgres(ctx, job)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if closeErr := conn.Close(closeCtx); closeErr != nil {
			w.Logger.Warn("Failed to close tenant connection",
				zap.Int64("job_id", job.ID),
				zap.Error(closeErr))
		}
	}()

	if err := w.ensurePostgresTable(ctx, conn, cat); err != nil {
		return err
	}

	values, err := Values(rec)
	if err != nil {
		return err
	}

	table := cat.Table()
	if _, err := conn.Exec(ctx, PgInsertSQL(table, Columns(cat)), values...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return &ConstraintError{Table: table, Key: rec.NaturalKey(), Err: err}
		}
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// ---- ClickHouse ----

func (w *Writer) dialClickHouse(ctx context.Context, job *store.Job) (clickhouse.Conn, error) {
	addr := hostPort(job)
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: job.DbName,
			Username: job.DbUser,
			Password: job.DbPassword,
		},
		DialTimeout: w.connectTimeout(),
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, connError(addr, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, w.connectTimeout())
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		_ = conn.Close()
		return nil, connError(addr, err)
	}
	return conn, nil
}

func (w *Writer) ensureClickHouseTable(ctx context.Context, conn clickhouse.Conn, cat event.Category) error {
	table := cat.Table()
	if err := conn.Exec(ctx, ChCreateTableSQL(table, Columns(cat))); err != nil {
		return &SchemaError{Table: table, Err: err}
	}
	return nil
}

func (w *Writer) writeClickHouse(ctx context.Context, job *store.Job, cat event.Category, rec normalize.Record) error {
	conn, err := w.dialClickHouse(ctx, job)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			w.Logger.Warn("Failed to close tenant connection",
				zap.Int64("job_id", job.ID),
				zap.Error(closeErr))
		}
	}()

	if err := w.ensureClickHouseTable(ctx, conn, cat); err != nil {
		return err
	}

	values, err := Values(rec)
	if err != nil {
		return err
	}

	// ReplacingMergeTree absorbs duplicate signatures at merge time, so a
	// redelivered row is not an error here.
	table := cat.Table()
	if err := conn.Exec(ctx, ChInsertSQL(table, Columns(cat)), values...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}
