package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/artpar/recordbase/core/convention"
	"github.com/artpar/recordbase/core/query"
	"github.com/artpar/recordbase/core/schema"
)

// SQLiteStore implements Store with SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex

	// models maps model names to their derived definitions
	models map[string]convention.Derived

	// tables maps table names to model names
	tables map[string]string
}

// querier is the subset of *sql.DB and *sql.Tx the store uses.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type txKey struct{}

// NewSQLiteStore creates a new SQLite storage.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Set pragmas for performance
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return NewSQLiteStoreFromDB(db), nil
}

// NewSQLiteStoreFromDB creates a SQLite storage from an existing connection.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		models: make(map[string]convention.Derived),
		tables: make(map[string]string),
	}
}

// Register creates the table and indexes for a model.
func (s *SQLiteStore) Register(ctx context.Context, mod convention.Derived) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.models[mod.Name] = mod
	s.tables[mod.Table] = mod.Name

	createSQL := BuildCreateTableSQL(mod)
	if _, err := s.conn(ctx).ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", mod.Table, err)
	}

	for _, indexSQL := range BuildIndexSQL(mod) {
		if _, err := s.conn(ctx).ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}

// InTx runs fn inside a database transaction. The transaction commits when
// fn returns nil and rolls back otherwise. Nested calls join the outer
// transaction.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	return tx.Commit()
}

// Find returns the row with the given identity, or nil when absent.
func (s *SQLiteStore) Find(ctx context.Context, model string, id int64) (map[string]any, error) {
	mod, err := s.model(model)
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, mod, query.Select(mod.Table).Where(mod.Identity, id))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Select executes a select query.
func (s *SQLiteStore) Select(ctx context.Context, q query.Query) ([]map[string]any, error) {
	mod, err := s.modelForTable(q.Table)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, mod, q)
}

// Delete executes a delete query.
func (s *SQLiteStore) Delete(ctx context.Context, q query.Query) (int64, error) {
	if q.Kind != query.KindDelete {
		return 0, fmt.Errorf("delete: query kind is %s", q.Kind)
	}
	mod, err := s.modelForTable(q.Table)
	if err != nil {
		return 0, err
	}
	if err := checkFields(mod, q); err != nil {
		return 0, err
	}

	deleteSQL, _ := q.Build()
	result, err := s.conn(ctx).ExecContext(ctx, deleteSQL, convertArgs(mod, q)...)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}

	affected, _ := result.RowsAffected()
	return affected, nil
}

// Insert writes a new row.
func (s *SQLiteStore) Insert(ctx context.Context, model string, data map[string]any) (int64, error) {
	mod, err := s.model(model)
	if err != nil {
		return 0, err
	}

	var columns []string
	var placeholders []string
	var values []any

	for _, name := range columnNames(mod) {
		val, exists := data[name]
		if !exists || (name == mod.Identity && val == nil) {
			continue
		}
		columns = append(columns, name)
		placeholders = append(placeholders, "?")
		values = append(values, convertValue(val, mod.Rules[name]))
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", mod.Table)
	if len(columns) > 0 {
		insertSQL = fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			mod.Table,
			strings.Join(columns, ", "),
			strings.Join(placeholders, ", "),
		)
	}

	result, err := s.conn(ctx).ExecContext(ctx, insertSQL, values...)
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}

	if id, ok := ID(data[mod.Identity]); ok {
		return id, nil
	}
	return result.LastInsertId()
}

// Update writes data over an existing row. The identity is never changed.
func (s *SQLiteStore) Update(ctx context.Context, model string, id int64, data map[string]any) error {
	mod, err := s.model(model)
	if err != nil {
		return err
	}

	var sets []string
	var values []any

	for _, name := range columnNames(mod) {
		val, exists := data[name]
		if !exists || name == mod.Identity {
			continue
		}
		sets = append(sets, name+" = ?")
		values = append(values, convertValue(val, mod.Rules[name]))
	}

	if len(sets) == 0 {
		return nil // Nothing to update
	}
	values = append(values, id)

	updateSQL := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = ?",
		mod.Table,
		strings.Join(sets, ", "),
		mod.Identity,
	)

	result, err := s.conn(ctx).ExecContext(ctx, updateSQL, values...)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%s #%d: %w", model, id, ErrNotFound)
	}

	return nil
}

// HealthCheck pings the database.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

func (s *SQLiteStore) model(name string) (convention.Derived, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mod, ok := s.models[name]
	if !ok {
		return convention.Derived{}, fmt.Errorf("model %q not registered", name)
	}
	return mod, nil
}

func (s *SQLiteStore) modelForTable(table string) (convention.Derived, error) {
	s.mu.RLock()
	name, ok := s.tables[table]
	s.mu.RUnlock()

	if !ok {
		return convention.Derived{}, fmt.Errorf("table %q not registered", table)
	}
	return s.model(name)
}

func (s *SQLiteStore) query(ctx context.Context, mod convention.Derived, q query.Query) ([]map[string]any, error) {
	if q.Kind != query.KindSelect {
		return nil, fmt.Errorf("select: query kind is %s", q.Kind)
	}
	if err := checkFields(mod, q); err != nil {
		return nil, err
	}

	selectSQL, _ := q.Build()
	selectSQL += fmt.Sprintf(" ORDER BY %s.%s ASC", mod.Table, mod.Identity)

	rows, err := s.conn(ctx).QueryContext(ctx, selectSQL, convertArgs(mod, q)...)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		scanDest := make([]any, len(columns))
		for i := range values {
			scanDest[i] = &values[i]
		}

		if err := rows.Scan(scanDest...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = convertFromDB(values[i], mod.Rules[col])
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

// checkFields rejects predicates on columns the model does not have, so that
// only known identifiers are ever spliced into SQL.
func checkFields(mod convention.Derived, q query.Query) error {
	for _, f := range q.Fields() {
		if !mod.Rules.Has(f) {
			return fmt.Errorf("table %s has no column %q", mod.Table, f)
		}
	}
	return nil
}

func convertArgs(mod convention.Derived, q query.Query) []any {
	var out []any
	for _, p := range q.Predicates {
		rule := mod.Rules[p.Field]
		for _, v := range p.Values {
			out = append(out, convertValue(v, rule))
		}
	}
	return out
}

// convertValue converts a Go value to a database value.
func convertValue(val any, rule schema.Rule) any {
	if val == nil {
		return nil
	}

	switch v := val.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case string, []byte:
		return v
	}

	if rule.Type.Has(schema.TypeArray) || rule.Type.Has(schema.TypeObject) {
		if _, ok := query.Members(val); ok || isMap(val) {
			data, err := json.Marshal(val)
			if err == nil {
				return string(data)
			}
		}
	}

	return val
}

// convertFromDB converts a database value to a Go value.
func convertFromDB(val any, rule schema.Rule) any {
	if val == nil {
		return nil
	}

	if b, ok := val.([]byte); ok {
		val = string(b)
	}

	if rule.Type.Has(schema.TypeBoolean) && !rule.Type.Has(schema.TypeInteger) && !rule.Type.Has(schema.TypeNumber) {
		if n, ok := val.(int64); ok {
			return n != 0
		}
	}

	if s, ok := val.(string); ok && (rule.Type.Has(schema.TypeArray) || rule.Type.Has(schema.TypeObject)) {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			switch decoded.(type) {
			case []any, map[string]any:
				return decoded
			}
		}
	}

	return val
}

func isMap(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}
