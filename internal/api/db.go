package api

import (
	"context"
	"database/sql"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// DBHandler exposes the DuckDB attribute store for read-only SQL.
type DBHandler struct {
	db *sql.DB
}

// NewDBHandler creates a new database handler. db may be nil.
func NewDBHandler(db *sql.DB) *DBHandler {
	return &DBHandler{db: db}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("db"))
	huma.Post(api, "/api/v1/query", h.Query, huma.OperationTags("db"))
}

// TablesBody lists the tables in the attribute store.
type TablesBody struct {
	Tables []string `json:"tables" doc:"List of table names"`
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*struct{ Body TablesBody }, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			tables = append(tables, name)
		}
	}
	return &struct{ Body TablesBody }{Body: TablesBody{Tables: tables}}, nil
}

// QueryRequest is a read-only SQL statement.
type QueryRequest struct {
	Query string `json:"query" required:"true" minLength:"1" doc:"SQL query to execute (SELECT, WITH, SHOW, DESCRIBE)" example:"SELECT level, count(*) FROM aquifer_features GROUP BY level"`
	Limit int    `json:"limit,omitempty" minimum:"1" maximum:"10000" default:"1000" doc:"Maximum rows returned"`
}

// QueryBody is the result of a query.
type QueryBody struct {
	Columns   []string         `json:"columns" doc:"Column names"`
	Rows      []map[string]any `json:"rows" doc:"Query results"`
	Count     int              `json:"count" doc:"Number of rows returned"`
	Truncated bool             `json:"truncated" doc:"Whether rows beyond the limit were dropped"`
}

var readOnlyPrefixes = []string{"select", "with", "show", "describe", "summarize", "from"}

// readOnly reports whether q starts with a statement that cannot modify the store.
func readOnly(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	for _, p := range readOnlyPrefixes {
		if strings.HasPrefix(q, p) {
			return !strings.Contains(strings.TrimSuffix(q, ";"), ";")
		}
	}
	return false
}

// Query executes a read-only SQL query against DuckDB.
func (h *DBHandler) Query(ctx context.Context, input *struct{ Body QueryRequest }) (*struct{ Body QueryBody }, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	if !readOnly(input.Body.Query) {
		return nil, huma.Error400BadRequest("Only single read-only statements are allowed")
	}
	limit := input.Body.Limit
	if limit <= 0 {
		limit = 1000
	}

	rows, err := h.db.QueryContext(ctx, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get columns", err)
	}

	body := QueryBody{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		if len(body.Rows) == limit {
			body.Truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			continue
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		body.Rows = append(body.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	body.Count = len(body.Rows)
	return &struct{ Body QueryBody }{Body: body}, nil
}
