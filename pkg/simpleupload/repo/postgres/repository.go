package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simpleupload.Repository using one PostgreSQL table
// per media variant
type Repository struct {
	db    DBTX
	table string
	now   func() time.Time
}

// New creates a new PostgreSQL repository over the named table
func New(db DBTX, table string) *Repository {
	return &Repository{
		db:    db,
		table: pgx.Identifier{table}.Sanitize(),
		now:   time.Now,
	}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool, table string) *Repository {
	return New(pool, table)
}

// EnsureSchema creates the table when it does not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          UUID PRIMARY KEY,
			filename    TEXT NOT NULL,
			file_path   TEXT NOT NULL,
			upload_date TIMESTAMPTZ NOT NULL
		)`, r.table)

	if _, err := r.db.Exec(ctx, query); err != nil {
		return r.handlePostgresError("ensure schema", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return simpleupload.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry in %s: %w", operation, err)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) Create(ctx context.Context, filename, filePath string) (*simpleupload.Record, error) {
	record := &simpleupload.Record{
		ID:         uuid.NewString(),
		Filename:   filename,
		FilePath:   filePath,
		UploadDate: r.now().UTC().Truncate(time.Microsecond),
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, filename, file_path, upload_date)
		VALUES ($1, $2, $3, $4)`, r.table)

	if _, err := r.db.Exec(ctx, query, record.ID, record.Filename, record.FilePath, record.UploadDate); err != nil {
		return nil, r.handlePostgresError("create record", err)
	}

	return record, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*simpleupload.Record, error) {
	recordID, ok := parseID(id)
	if !ok {
		return nil, simpleupload.ErrNotFound
	}

	query := fmt.Sprintf(`
		SELECT id::text, filename, file_path, upload_date
		FROM %s WHERE id = $1`, r.table)

	record, err := scanRecord(r.db.QueryRow(ctx, query, recordID))
	if err != nil {
		return nil, r.handlePostgresError("get record", err)
	}
	return record, nil
}

func (r *Repository) Update(ctx context.Context, id string, update simpleupload.RecordUpdate) (*simpleupload.Record, error) {
	recordID, ok := parseID(id)
	if !ok {
		return nil, simpleupload.ErrNotFound
	}

	// COALESCE keeps columns whose update field is nil
	query := fmt.Sprintf(`
		UPDATE %s SET
			filename = COALESCE($2, filename),
			file_path = COALESCE($3, file_path)
		WHERE id = $1
		RETURNING id::text, filename, file_path, upload_date`, r.table)

	record, err := scanRecord(r.db.QueryRow(ctx, query, recordID, update.Filename, update.FilePath))
	if err != nil {
		return nil, r.handlePostgresError("update record", err)
	}
	return record, nil
}

func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	recordID, ok := parseID(id)
	if !ok {
		return simpleupload.ErrNotFound
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table)
	tag, err := r.db.Exec(ctx, query, recordID)
	if err != nil {
		return r.handlePostgresError("delete record", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleupload.ErrNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]*simpleupload.Record, error) {
	query := fmt.Sprintf(`
		SELECT id::text, filename, file_path, upload_date
		FROM %s ORDER BY upload_date, id`, r.table)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handlePostgresError("list records", err)
	}
	defer rows.Close()

	var records []*simpleupload.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list records", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*simpleupload.Record, error) {
	var record simpleupload.Record
	if err := row.Scan(&record.ID, &record.Filename, &record.FilePath, &record.UploadDate); err != nil {
		return nil, err
	}
	record.UploadDate = record.UploadDate.UTC()
	return &record, nil
}

// parseID canonicalizes an id; anything that is not a uuid cannot exist.
func parseID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}
