package search

import (
	"context"
	"database/sql"
	"fmt"
)

// TasksSource searches internal dashboard tasks.
type TasksSource struct {
	db *sql.DB
}

// NewTasksSource creates the tasks adapter.
func NewTasksSource(db *sql.DB) *TasksSource {
	return &TasksSource{db: db}
}

func (s *TasksSource) Type() SourceType { return SourceTasks }

func (s *TasksSource) Search(ctx context.Context, q Query, offset, limit int) ([]Hit, int, error) {
	where := `(title ILIKE $1 OR description ILIKE $1 OR assignee ILIKE $1)`
	args := []any{likePattern(q.Text)}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM tasks WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("tasks count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT id, title, coalesce(description, ''), coalesce(assignee, ''),
			coalesce(status, ''), coalesce(due_date::text, '')
		FROM tasks
		WHERE %s
		ORDER BY updated_at DESC, id
		LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := s.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("tasks query: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var id, title, description, assignee, status, dueDate string
		if err := rows.Scan(&id, &title, &description, &assignee, &status, &dueDate); err != nil {
			return nil, 0, fmt.Errorf("tasks scan: %w", err)
		}
		hits = append(hits, Hit{
			ID: id,
			Fields: []Field{
				{Name: "title", Display: "Task", Value: title},
				{Name: "description", Display: "Description", Value: description},
				{Name: "assignee", Display: "Assignee", Value: assignee},
			},
			Primary:  "title",
			URL:      "/tasks/" + id,
			Subtitle: assignee,
			Metadata: map[string]any{"status": status, "dueDate": dueDate},
		})
	}
	return hits, total, rows.Err()
}
