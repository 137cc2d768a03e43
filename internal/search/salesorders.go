package search

import (
	"context"
	"database/sql"
	"fmt"
)

// SalesOrdersSource searches sales orders. Order totals feed the magnitude
// bonus the same way contract values do.
type SalesOrdersSource struct {
	db *sql.DB
}

// NewSalesOrdersSource creates the sales orders adapter.
func NewSalesOrdersSource(db *sql.DB) *SalesOrdersSource {
	return &SalesOrdersSource{db: db}
}

func (s *SalesOrdersSource) Type() SourceType { return SourceSalesOrders }

func (s *SalesOrdersSource) Search(ctx context.Context, q Query, offset, limit int) ([]Hit, int, error) {
	where := `(number ILIKE $1 OR account_name ILIKE $1 OR description ILIKE $1)`
	args := []any{likePattern(q.Text)}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM sales_orders WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sales orders count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT id, number, coalesce(account_name, ''), coalesce(description, ''),
			coalesce(total_amount, 0), coalesce(status, '')
		FROM sales_orders
		WHERE %s
		ORDER BY updated_at DESC, id
		LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := s.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sales orders query: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var id, number, account, description, status string
		var amount float64
		if err := rows.Scan(&id, &number, &account, &description, &amount, &status); err != nil {
			return nil, 0, fmt.Errorf("sales orders scan: %w", err)
		}
		hits = append(hits, Hit{
			ID: id,
			Fields: []Field{
				{Name: "number", Display: "Sales Order", Value: number},
				{Name: "account_name", Display: "Account", Value: account},
				{Name: "description", Display: "Description", Value: description},
			},
			Primary:   "number",
			Magnitude: amount,
			URL:       "/sales-orders/" + id,
			Subtitle:  account,
			Metadata:  map[string]any{"status": status, "totalAmount": amount},
		})
	}
	return hits, total, rows.Err()
}
