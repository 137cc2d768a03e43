package search

import (
	"context"

	"dealdesk/api/internal/taskcache"
)

// TaskLister supplies the cached external task set. Implemented by the
// Redis-backed taskcache store.
type TaskLister interface {
	ListTasks(ctx context.Context) ([]taskcache.Task, error)
}

// ExternalTasksSource searches tasks synced from Salesforce and Notion. The
// cache holds a bounded snapshot, so matching runs in-process through the
// shared pattern matcher, including its fuzzy fallback for short queries.
type ExternalTasksSource struct {
	cache TaskLister
}

// NewExternalTasksSource creates the external tasks adapter.
func NewExternalTasksSource(cache TaskLister) *ExternalTasksSource {
	return &ExternalTasksSource{cache: cache}
}

func (s *ExternalTasksSource) Type() SourceType { return SourceExternalTasks }

func (s *ExternalTasksSource) Search(ctx context.Context, q Query, offset, limit int) ([]Hit, int, error) {
	tasks, err := s.cache.ListTasks(ctx)
	if err != nil {
		return nil, 0, err
	}

	var matched []Hit
	for _, t := range tasks {
		if !Matches(t.Subject, q.Text) && !Matches(t.WhoName, q.Text) && !Matches(t.RelatedTo, q.Text) {
			continue
		}
		matched = append(matched, Hit{
			ID: t.ID,
			Fields: []Field{
				{Name: "subject", Display: "Subject", Value: t.Subject},
				{Name: "who_name", Display: "Contact", Value: t.WhoName},
				{Name: "related_to", Display: "Related To", Value: t.RelatedTo},
			},
			Primary:  "subject",
			URL:      t.URL,
			Subtitle: t.WhoName,
			Metadata: map[string]any{"origin": t.Origin, "status": t.Status, "dueDate": t.DueDate},
		})
	}

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
