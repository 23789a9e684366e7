package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"datalanding/dataset"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// QuerySource turns the result of a SQL query against PostgreSQL into a Dataset.
type QuerySource struct {
	db *sql.DB
}

// OpenQuerySource connects to PostgreSQL through the lib/pq driver and verifies the connection.
func OpenQuerySource(ctx context.Context, connectionString string) (*QuerySource, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}
	log.Debug("Connected to the database for queries")
	return &QuerySource{db: db}, nil
}

// NewQuerySource wraps an open database handle.
func NewQuerySource(db *sql.DB) *QuerySource {
	return &QuerySource{db: db}
}

// Close closes the database handle.
func (q *QuerySource) Close() error {
	return q.db.Close()
}

// Query runs query and collects all returned rows.
func (q *QuerySource) Query(ctx context.Context, query string, args ...any) (*dataset.Dataset, error) {
	log.Debug("Running query", zap.String("query", query))
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}
	columns := make([]dataset.Column, len(columnTypes))
	for j, columnType := range columnTypes {
		columns[j].Name = columnType.Name()
	}

	values := make([]any, len(columnTypes))
	pointers := make([]any, len(columnTypes))
	for j := range values {
		pointers[j] = &values[j]
	}
	for row := 0; rows.Next(); row++ {
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", row, err)
		}
		for j, v := range values {
			columns[j].Values = append(columns[j].Values, scalarValue(columnTypes[j].DatabaseTypeName(), v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read query result: %w", err)
	}
	ds, err := dataset.New(columns...)
	if err != nil {
		return nil, err
	}
	log.Info("Query returned rows", zap.Int("rows", ds.Len()), zap.Int("columns", ds.Width()))
	return ds, nil
}

// scalarValue converts driver values to dataset scalars. The driver returns text-like and NUMERIC values as bytes.
func scalarValue(databaseType string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	s := string(b)
	if strings.EqualFold(databaseType, "NUMERIC") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
