package search

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// MinQueryLen is the shortest query the aggregator will dispatch. Shorter
// queries get an empty envelope with a message instead of an error so the
// palette never has to special-case them.
const MinQueryLen = 2

// DefaultSourceTimeout bounds each adapter call; a source that exceeds it is
// treated as failed and contributes zero results.
const DefaultSourceTimeout = 3 * time.Second

// Aggregator fans a query out to every source in scope, scores and snippets
// each hit, and assembles the combined envelope. It holds no per-request
// state and is safe for concurrent use.
type Aggregator struct {
	sources []Source
	timeout time.Duration
}

// NewAggregator creates an aggregator over the given sources. timeout <= 0
// selects DefaultSourceTimeout.
func NewAggregator(sources []Source, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	return &Aggregator{sources: sources, timeout: timeout}
}

// Aggregate executes one search request end to end. Adapter failures are
// isolated: a source that errors or times out reports zero hits and a zero
// total while the other sources return normally.
func (a *Aggregator) Aggregate(ctx context.Context, q Query) Envelope {
	q.Page = ClampPage(q.Page)
	q.Limit = ClampLimit(q.Limit)
	text := strings.TrimSpace(q.Text)

	if len([]rune(text)) < MinQueryLen {
		return a.emptyEnvelope(q, "query must be at least 2 characters")
	}
	q.Text = text

	active := make([]Source, 0, len(a.sources))
	for _, src := range a.sources {
		if q.InScope(src.Type()) {
			active = append(active, src)
		}
	}

	offset := PageOffset(q.Page, q.Limit)
	results := make(map[SourceType][]Result, len(active))
	totals := make(map[SourceType]int, len(active))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(len(active) + 1)
	for _, src := range active {
		src := src
		g.Go(func() error {
			srcCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			hits, total, err := src.Search(srcCtx, q, offset, q.Limit)
			if err != nil {
				log.Printf("search: source %s failed: %v", src.Type(), err)
				hits, total = nil, 0
			}

			scored := make([]Result, 0, len(hits))
			for _, h := range hits {
				scored = append(scored, enrich(src.Type(), h, q.Text))
			}
			// Stable keeps store order for equal scores.
			sort.SliceStable(scored, func(i, j int) bool {
				return scored[i].RelevanceScore > scored[j].RelevanceScore
			})

			mu.Lock()
			results[src.Type()] = scored
			totals[src.Type()] = total
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	grand := 0
	maxTotal := 0
	for _, src := range active {
		if results[src.Type()] == nil {
			results[src.Type()] = []Result{}
		}
		total := totals[src.Type()]
		grand += total
		if total > maxTotal {
			maxTotal = total
		}
	}

	totalPages := TotalPages(maxTotal, q.Limit)
	return Envelope{
		Query:      q.Text,
		Scope:      scopeOrAll(q.Scope),
		Results:    results,
		Totals:     totals,
		GrandTotal: grand,
		Pagination: Pagination{
			Page:       q.Page,
			Limit:      q.Limit,
			TotalPages: totalPages,
			HasMore:    q.Page < totalPages,
		},
	}
}

// enrich turns a raw hit into a scored result.
func enrich(t SourceType, h Hit, query string) Result {
	match := ExtractMatch(h, query)
	return Result{
		ID:             h.ID,
		Type:           t,
		Title:          h.FieldValue(h.Primary),
		Subtitle:       h.Subtitle,
		URL:            h.URL,
		MatchedField:   match.Field,
		MatchedText:    match.Text,
		RelevanceScore: Score(h, query),
		Metadata:       h.Metadata,
	}
}

// emptyEnvelope is the well-formed zero response used for too-short queries.
// No backing store is contacted.
func (a *Aggregator) emptyEnvelope(q Query, message string) Envelope {
	results := make(map[SourceType][]Result)
	totals := make(map[SourceType]int)
	for _, src := range a.sources {
		if q.InScope(src.Type()) {
			results[src.Type()] = []Result{}
			totals[src.Type()] = 0
		}
	}
	return Envelope{
		Query:      strings.TrimSpace(q.Text),
		Scope:      scopeOrAll(q.Scope),
		Message:    message,
		Results:    results,
		Totals:     totals,
		GrandTotal: 0,
		Pagination: Pagination{Page: q.Page, Limit: q.Limit, TotalPages: 0, HasMore: false},
	}
}

func scopeOrAll(scope string) string {
	if scope == "" {
		return ScopeAll
	}
	return scope
}
