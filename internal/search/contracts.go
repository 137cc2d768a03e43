package search

import (
	"context"
	"database/sql"
	"fmt"
)

// ContractsSource searches the contracts table. Contracts are the only source
// with domain filters beyond text matching: closed deals are excluded unless
// IncludeArchived, pre-2025 effective dates are excluded unless
// IncludeHistorical, and an optional exact status filter applies.
type ContractsSource struct {
	db *sql.DB
}

// NewContractsSource creates the contracts adapter.
func NewContractsSource(db *sql.DB) *ContractsSource {
	return &ContractsSource{db: db}
}

func (s *ContractsSource) Type() SourceType { return SourceContracts }

// contractFilterClauses builds the non-text predicates for a request. Split
// out so the filter semantics are testable without a database.
func contractFilterClauses(f Filters, argN int) (clauses []string, args []any) {
	if !f.IncludeArchived {
		clauses = append(clauses, "is_closed = false")
	}
	if !f.IncludeHistorical {
		clauses = append(clauses, "effective_date >= DATE '2025-01-01'")
	}
	if f.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", argN))
		args = append(args, f.Status)
	}
	return clauses, args
}

func (s *ContractsSource) Search(ctx context.Context, q Query, offset, limit int) ([]Hit, int, error) {
	where := `(name ILIKE $1 OR account_name ILIKE $1 OR opportunity_name ILIKE $1 OR sales_rep ILIKE $1)`
	args := []any{likePattern(q.Text)}

	clauses, filterArgs := contractFilterClauses(q.Filters, len(args)+1)
	for _, c := range clauses {
		where += " AND " + c
	}
	args = append(args, filterArgs...)

	var total int
	countSQL := `SELECT count(*) FROM contracts WHERE ` + where
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("contracts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT id, name, coalesce(account_name, ''), coalesce(opportunity_name, ''),
			coalesce(sales_rep, ''), coalesce(contract_value, 0), coalesce(status, '')
		FROM contracts
		WHERE %s
		ORDER BY updated_at DESC, id
		LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := s.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("contracts query: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var id, name, account, opportunity, rep, status string
		var value float64
		if err := rows.Scan(&id, &name, &account, &opportunity, &rep, &value, &status); err != nil {
			return nil, 0, fmt.Errorf("contracts scan: %w", err)
		}
		hits = append(hits, Hit{
			ID: id,
			Fields: []Field{
				{Name: "name", Display: "Contract Name", Value: name},
				{Name: "account_name", Display: "Account", Value: account},
				{Name: "opportunity_name", Display: "Opportunity", Value: opportunity},
				{Name: "sales_rep", Display: "Sales Rep", Value: rep},
			},
			Primary:   "name",
			Magnitude: value,
			URL:       "/contracts/" + id,
			Subtitle:  account,
			Metadata:  map[string]any{"status": status, "contractValue": value},
		})
	}
	return hits, total, rows.Err()
}
