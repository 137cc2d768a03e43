package search

import (
	"context"
	"database/sql"
	"fmt"
)

// WorkOrdersSource searches field work orders.
type WorkOrdersSource struct {
	db *sql.DB
}

// NewWorkOrdersSource creates the work orders adapter.
func NewWorkOrdersSource(db *sql.DB) *WorkOrdersSource {
	return &WorkOrdersSource{db: db}
}

func (s *WorkOrdersSource) Type() SourceType { return SourceWorkOrders }

func (s *WorkOrdersSource) Search(ctx context.Context, q Query, offset, limit int) ([]Hit, int, error) {
	where := `(number ILIKE $1 OR customer_name ILIKE $1 OR description ILIKE $1)`
	args := []any{likePattern(q.Text)}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM work_orders WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("work orders count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT id, number, coalesce(customer_name, ''), coalesce(description, ''),
			coalesce(status, '')
		FROM work_orders
		WHERE %s
		ORDER BY updated_at DESC, id
		LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := s.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("work orders query: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var id, number, customer, description, status string
		if err := rows.Scan(&id, &number, &customer, &description, &status); err != nil {
			return nil, 0, fmt.Errorf("work orders scan: %w", err)
		}
		hits = append(hits, Hit{
			ID: id,
			Fields: []Field{
				{Name: "number", Display: "Work Order", Value: number},
				{Name: "customer_name", Display: "Customer", Value: customer},
				{Name: "description", Display: "Description", Value: description},
			},
			Primary:  "number",
			URL:      "/work-orders/" + id,
			Subtitle: customer,
			Metadata: map[string]any{"status": status},
		})
	}
	return hits, total, rows.Err()
}
