package search

const (
	// DefaultLimit is the page size when the client does not send one.
	DefaultLimit = 20
	// MaxLimit caps the page size.
	MaxLimit = 100
)

// ClampPage normalizes a 1-based page number.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ClampLimit normalizes a page size to [1, MaxLimit], defaulting to
// DefaultLimit when unset.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// PageOffset converts a 1-based page number into a row offset. Every source
// in a request shares the same offset and limit.
func PageOffset(page, limit int) int {
	return (ClampPage(page) - 1) * ClampLimit(limit)
}

// TotalPages is ceil(total/limit). Pagination is governed by the largest
// single source because each source is paginated independently; the envelope
// documents this as an accepted approximation rather than a merged ranking.
func TotalPages(total, limit int) int {
	limit = ClampLimit(limit)
	if total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
