// Package mysqlstore implements store.Store for MySQL 8 tables using
// REGEXP_LIKE for matching and FORCE INDEX for hints.
package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/dbsmedya/gopurge/internal/sqlutil"
	"github.com/dbsmedya/gopurge/internal/store"
	"github.com/dbsmedya/gopurge/internal/types"
)

// errKeyDoesNotExist is ER_KEY_DOES_NOT_EXITS, raised when FORCE INDEX names
// an unknown index.
const errKeyDoesNotExist = 1176

// Store runs purge operations against tables of one MySQL schema.
type Store struct {
	db       *sql.DB
	database string
}

var _ store.Store = (*Store)(nil)

// New creates a Store. database is the schema searched in information_schema.
func New(db *sql.DB, database string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if database == "" {
		return nil, fmt.Errorf("database name is required")
	}
	return &Store{db: db, database: database}, nil
}

// Name implements store.Store.
func (s *Store) Name() string {
	return "mysql/" + s.database
}

// CollectionExists implements store.Store.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?",
		s.database, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return n > 0, nil
}

// ListIndexes implements store.Store.
func (s *Store) ListIndexes(ctx context.Context, collection string) ([]store.IndexInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT INDEX_NAME, COLUMN_NAME FROM information_schema.STATISTICS "+
			"WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? ORDER BY INDEX_NAME, SEQ_IN_INDEX",
		s.database, collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	defer rows.Close()

	var indexes []store.IndexInfo
	pos := make(map[string]int)
	for rows.Next() {
		var name string
		var column sql.NullString
		if err := rows.Scan(&name, &column); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		i, ok := pos[name]
		if !ok {
			i = len(indexes)
			pos[name] = i
			indexes = append(indexes, store.IndexInfo{Name: name})
		}
		// Functional key parts have no column name.
		if column.Valid {
			indexes[i].Fields = append(indexes[i].Fields, column.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	return indexes, nil
}

// CreateIndex implements store.Store.
func (s *Store) CreateIndex(ctx context.Context, collection, field string, ascending bool) (string, error) {
	table, err := sqlutil.QuoteIdentifierSafe(collection)
	if err != nil {
		return "", err
	}
	column, err := sqlutil.QuoteIdentifierSafe(field)
	if err != nil {
		return "", err
	}

	name := sqlutil.IndexName(field)
	dir := ""
	if !ascending {
		dir = " DESC"
	}
	query := fmt.Sprintf("CREATE INDEX %s ON %s (%s%s)", sqlutil.QuoteIdentifier(name), table, column, dir)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return "", fmt.Errorf("failed to create index on %s.%s: %w", collection, field, err)
	}
	return name, nil
}

// Count implements store.Store.
func (s *Store) Count(ctx context.Context, collection string, q store.MatchQuery, hint *store.Hint) (int64, error) {
	from, where, args, err := clauses(collection, q, hint)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+from+" WHERE "+where, args...).Scan(&n); err != nil {
		return 0, classify("count", err)
	}
	return n, nil
}

// Find implements store.Store.
func (s *Store) Find(ctx context.Context, collection string, q store.MatchQuery, limit int64, hint *store.Hint) ([]string, error) {
	from, where, args, err := clauses(collection, q, hint)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", sqlutil.QuoteIdentifier(q.Field), from, where)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("find", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var v interface{}
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if id := types.ToDisplayString(v); id != "" {
			ids = append(ids, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classify("find", err)
	}
	return ids, nil
}

// DeleteMany implements store.Store. With a hint it uses the multi-table
// DELETE form, the only one that accepts an index hint.
func (s *Store) DeleteMany(ctx context.Context, collection string, q store.MatchQuery, hint *store.Hint) (int64, error) {
	from, where, args, err := clauses(collection, q, hint)
	if err != nil {
		return 0, err
	}

	var query string
	if hint != nil {
		query = fmt.Sprintf("DELETE %s FROM %s WHERE %s", sqlutil.QuoteIdentifier(collection), from, where)
	} else {
		query = fmt.Sprintf("DELETE FROM %s WHERE %s", from, where)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// clauses builds the FROM (with optional FORCE INDEX) and WHERE fragments.
func clauses(collection string, q store.MatchQuery, hint *store.Hint) (string, string, []interface{}, error) {
	table, err := sqlutil.QuoteIdentifierSafe(collection)
	if err != nil {
		return "", "", nil, err
	}
	column, err := sqlutil.QuoteIdentifierSafe(q.Field)
	if err != nil {
		return "", "", nil, err
	}

	from := table
	if hint != nil {
		index := hint.Index
		if index == "" {
			index = sqlutil.IndexName(hint.Field)
		}
		from += " FORCE INDEX (" + sqlutil.QuoteIdentifier(index) + ")"
	}

	where := fmt.Sprintf("REGEXP_LIKE(%s, ?, ?)", column)
	return from, where, []interface{}{q.Pattern, sqlutil.RegexpMatchType(q.CaseInsensitive)}, nil
}

func classify(op string, err error) error {
	if IsHintRejection(err) {
		return fmt.Errorf("%s: %w: %v", op, store.ErrHintRejected, err)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

// IsHintRejection reports whether err is MySQL refusing a FORCE INDEX.
func IsHintRejection(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == errKeyDoesNotExist
	}
	return err != nil && strings.Contains(err.Error(), "doesn't exist in table")
}
