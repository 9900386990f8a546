package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLStore implements Store on database/sql for Postgres and SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenPostgres connects with lib/pq and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &SQLStore{db: db, dialect: postgresDialect}, nil
}

// OpenSQLite opens a SQLite file. Writes are funneled through one connection.
func OpenSQLite(path string) (*SQLStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &SQLStore{db: db, dialect: sqliteDialect}, nil
}

func (s *SQLStore) Init(ctx context.Context) error {
	for _, pragma := range s.dialect.pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) CreateForm(ctx context.Context, form Form) (Form, error) {
	content, err := encodeContent(form.PlanContent)
	if err != nil {
		return Form{}, err
	}
	if form.Status == "" {
		form.Status = StatusDraft
	}
	now := time.Now().UTC()
	var id int64
	row := s.db.QueryRowContext(ctx, createFormQuery,
		form.NameOfDesigners, form.ImpactProjectName, form.Description, content, form.Status,
		now.UnixNano(), now.UnixNano())
	if err := row.Scan(&id); err != nil {
		return Form{}, fmt.Errorf("insert form: %w", err)
	}
	return s.GetForm(ctx, id)
}

func (s *SQLStore) GetForm(ctx context.Context, id int64) (Form, error) {
	return scanForm(s.db.QueryRowContext(ctx, selectFormColumns, id))
}

func (s *SQLStore) UpdateForm(ctx context.Context, id int64, mutate func(*Form) error) (Form, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Form{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	form, err := scanForm(tx.QueryRowContext(ctx, selectFormColumns+s.dialect.lockRow, id))
	if err != nil {
		return Form{}, err
	}
	if err := mutate(&form); err != nil {
		return Form{}, err
	}
	content, err := encodeContent(form.PlanContent)
	if err != nil {
		return Form{}, err
	}
	form.UpdatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx, updateFormQuery,
		form.NameOfDesigners, form.ImpactProjectName, form.Description, content, form.Status,
		form.UpdatedAt.UnixNano(), id); err != nil {
		return Form{}, fmt.Errorf("update form %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return Form{}, fmt.Errorf("commit form %d: %w", id, err)
	}
	return form, nil
}

func (s *SQLStore) SaveSyncLink(ctx context.Context, id int64, link SyncLink) error {
	var lastSync sql.NullInt64
	if link.LastSyncedAt != nil {
		lastSync = sql.NullInt64{Int64: link.LastSyncedAt.UnixNano(), Valid: true}
	}
	result, err := s.db.ExecContext(ctx, saveSyncLinkQuery,
		nullString(link.ExternalID), nullString(link.URL), link.Created, lastSync, id)
	if err != nil {
		return fmt.Errorf("save sync link %d: %w", id, err)
	}
	return requireRow(result, id)
}

func (s *SQLStore) TouchSyncLink(ctx context.Context, id int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx, touchSyncLinkQuery, at.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("touch sync link %d: %w", id, err)
	}
	return requireRow(result, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForm(row rowScanner) (Form, error) {
	var (
		form       Form
		content    []byte
		createdAt  int64
		updatedAt  int64
		externalID sql.NullString
		url        sql.NullString
		created    bool
		lastSync   sql.NullInt64
	)
	err := row.Scan(&form.ID, &form.NameOfDesigners, &form.ImpactProjectName, &form.Description,
		&content, &form.Status, &createdAt, &updatedAt, &externalID, &url, &created, &lastSync)
	if errors.Is(err, sql.ErrNoRows) {
		return Form{}, ErrNotFound
	}
	if err != nil {
		return Form{}, fmt.Errorf("scan form: %w", err)
	}
	form.CreatedAt = time.Unix(0, createdAt).UTC()
	form.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if form.PlanContent, err = decodeContent(content); err != nil {
		return Form{}, fmt.Errorf("form %d: %w", form.ID, err)
	}
	if externalID.Valid || created {
		link := &SyncLink{ExternalID: externalID.String, URL: url.String, Created: created}
		if lastSync.Valid {
			at := time.Unix(0, lastSync.Int64).UTC()
			link.LastSyncedAt = &at
		}
		form.Link = link
	}
	return form, nil
}

func encodeContent(content map[string]any) (string, error) {
	if content == nil {
		return "{}", nil
	}
	b, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("encode plan_content: %w", err)
	}
	return string(b), nil
}

// decodeContent keeps numbers as json.Number so they round trip unchanged.
func decodeContent(raw []byte) (map[string]any, error) {
	content := make(map[string]any)
	if len(bytes.TrimSpace(raw)) == 0 {
		return content, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&content); err != nil {
		return nil, fmt.Errorf("decode plan_content: %w", err)
	}
	if content == nil {
		content = make(map[string]any)
	}
	return content, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
