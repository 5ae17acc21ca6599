package internal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/deckarep/golang-set"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/xo/dburl"
)

// SQLStore keeps rows in a database table. Every column is read as a string.
type SQLStore struct {
	DB      *sqlx.DB
	table   string
	columns []string
	// orderBy keeps pages stable between queries
	orderBy string
}

func (s *SQLStore) Name() string {
	return "table"
}

func (s *SQLStore) Init(url string, opts StoreOptions) error {
	if opts.Table == "" {
		return errors.New("no table specified")
	}

	u, err := dburl.Parse(url)
	if err != nil {
		return err
	}

	db, err := sqlx.Open(u.Driver, u.DSN)
	if err != nil {
		return err
	}

	s.DB = db
	s.table = opts.Table

	return nil
}

// Authenticate checks the connection and loads the column names of the table.
func (s *SQLStore) Authenticate(ctx context.Context) error {
	if err := s.DB.PingContext(ctx); err != nil {
		return err
	}

	rows, err := s.DB.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", s.quoteIdent(s.table)))
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	s.columns = columns

	if s.DB.DriverName() == "sqlite3" {
		s.orderBy = "rowid"
		return nil
	}

	keys, err := s.primaryKey(ctx)
	if err != nil {
		return err
	}

	quoted := []string{}
	for _, name := range orderColumns(keys, columns) {
		quoted = append(quoted, s.quoteIdent(name))
	}
	s.orderBy = strings.Join(quoted, ", ")

	return nil
}

// primaryKey lists the primary key columns of the table in key order.
func (s *SQLStore) primaryKey(ctx context.Context) ([]string, error) {
	var schema string
	switch s.DB.DriverName() {
	case "mysql":
		schema = "DATABASE()"
	case "sqlserver":
		schema = "SCHEMA_NAME()"
	default:
		schema = "current_schema()"
	}

	query := fmt.Sprintf(`SELECT kcu.column_name FROM information_schema.table_constraints tc
		INNER JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema AND tc.table_name = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = %s AND tc.table_name = ?
		ORDER BY kcu.ordinal_position`, schema)

	keys := []string{}
	if err := s.DB.SelectContext(ctx, &keys, s.DB.Rebind(query), s.table); err != nil {
		return nil, fmt.Errorf("read primary key: %w", err)
	}
	return keys, nil
}

// orderColumns prefers the primary key and falls back to every column.
func orderColumns(keys []string, columns []string) []string {
	if len(keys) > 0 {
		return keys
	}
	return columns
}

func (s *SQLStore) FetchRows(ctx context.Context, offset int, limit int) ([]Row, error) {
	quotedTable := s.quoteIdent(s.table)

	var query string
	switch s.DB.DriverName() {
	case "sqlserver":
		query = fmt.Sprintf("SELECT * FROM %s ORDER BY %s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", quotedTable, s.orderBy, offset, limit)
	default:
		// postgres, mysql and sqlite
		query = fmt.Sprintf("SELECT * FROM %s ORDER BY %s LIMIT %d OFFSET %d", quotedTable, s.orderBy, limit, offset)
	}

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	// read everything as string
	rawResult := make([][]byte, len(columnNames))
	dest := make([]interface{}, len(columnNames))
	for i := range rawResult {
		dest[i] = &rawResult[i]
	}

	result := []Row{}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		row := make(Row, len(columnNames))
		for i, raw := range rawResult {
			// NULL reads as empty
			row[columnNames[i]] = string(raw)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *SQLStore) AppendRows(ctx context.Context, rows []Row) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	known := mapset.NewSet()
	for _, name := range s.columns {
		known.Add(name)
	}

	for _, row := range rows {
		columns := make([]string, 0, len(row))
		for name := range row {
			if !known.Contains(name) {
				return fmt.Errorf("unknown column: %s", name)
			}
			columns = append(columns, name)
		}
		sort.Strings(columns)

		quoted := make([]string, len(columns))
		placeholders := make([]string, len(columns))
		values := make([]interface{}, len(columns))
		for i, name := range columns {
			quoted[i] = s.quoteIdent(name)
			placeholders[i] = "?"
			values[i] = row[name]
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.quoteIdent(s.table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), values...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}

// helpers

func (s *SQLStore) quoteIdent(name string) string {
	if s.DB.DriverName() == "mysql" {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return pq.QuoteIdentifier(name)
}
