package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"rollcall/internal/registration/models"
	"rollcall/pkg/requestcontext"
)

// PostgresRecordStore persists records in PostgreSQL. BIGSERIAL gives the
// never-reused id guarantee; insertion order is id order. This store is pure
// I/O, merge semantics live in models.Update.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

// Migrate creates the records table when it does not exist yet.
func (s *PostgresRecordStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			id         BIGSERIAL PRIMARY KEY,
			full_name  TEXT NOT NULL,
			phone      TEXT,
			attrs      JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			created_by TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate records: %w", err)
	}
	return nil
}

func (s *PostgresRecordStore) Insert(ctx context.Context, sub models.Submission, createdBy string) (*models.Record, error) {
	attrs, err := marshalAttrs(sub.Attrs)
	if err != nil {
		return nil, fmt.Errorf("encode attrs: %w", err)
	}

	rec := &models.Record{
		FullName:  sub.FullName,
		Phone:     sub.Phone,
		CreatedAt: requestcontext.Now(ctx),
		CreatedBy: createdBy,
		Attrs:     sub.Attrs,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO records (full_name, phone, attrs, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, rec.FullName, nullable(rec.Phone), attrs, rec.CreatedAt, rec.CreatedBy).Scan(&rec.ID)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

func (s *PostgresRecordStore) Get(ctx context.Context, id int64) (*models.Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, `
		SELECT id, full_name, phone, attrs, created_at, created_by
		FROM records
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (s *PostgresRecordStore) Update(ctx context.Context, id int64, upd models.Update) (*models.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the row for the read-merge-write so concurrent updates serialize.
	rec, err := scanRecord(tx.QueryRowContext(ctx, `
		SELECT id, full_name, phone, attrs, created_at, created_by
		FROM records
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("load record for update: %w", err)
	}

	upd.Apply(rec)

	attrs, err := marshalAttrs(rec.Attrs)
	if err != nil {
		return nil, fmt.Errorf("encode attrs: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE records
		SET full_name = $2, phone = $3, attrs = $4
		WHERE id = $1
	`, rec.ID, rec.FullName, nullable(rec.Phone), attrs)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return rec, nil
}

func (s *PostgresRecordStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresRecordStore) All(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, phone, attrs, created_at, created_by
		FROM records
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		rec   models.Record
		phone sql.NullString
		attrs []byte
	)
	if err := row.Scan(&rec.ID, &rec.FullName, &phone, &attrs, &rec.CreatedAt, &rec.CreatedBy); err != nil {
		return nil, err
	}
	rec.Phone = phone.String
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &rec.Attrs); err != nil {
			return nil, fmt.Errorf("decode attrs: %w", err)
		}
	}
	if len(rec.Attrs) == 0 {
		rec.Attrs = nil
	}
	return &rec, nil
}

func marshalAttrs(attrs map[string]json.RawMessage) ([]byte, error) {
	if len(attrs) == 0 {
		return []byte(`{}`), nil
	}
	return json.Marshal(attrs)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
