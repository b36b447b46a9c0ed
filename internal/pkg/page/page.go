package page

// Request is a 1-based page request after defaults and caps are applied.
type Request struct {
	Page  int
	Limit int
}

// Result describes the slice of a full result set that was returned.
type Result struct {
	Count       int
	Total       int
	Pages       int
	CurrentPage int
}

// Normalize applies defaults and the upper bound on limit.
func Normalize(page, limit, defaultLimit, maxLimit int) Request {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return Request{Page: page, Limit: limit}
}

// Slice returns the items of the requested page and the page metadata.
func Slice[T any](items []T, req Request) ([]T, Result) {
	total := len(items)
	pages := 0
	if req.Limit > 0 {
		pages = total / req.Limit
		if total%req.Limit != 0 {
			pages++
		}
	}
	// pages <= total, so the multiplication below cannot overflow
	start, end := total, total
	if req.Page >= 1 && req.Page-1 < pages {
		start = (req.Page - 1) * req.Limit
		end = min(start+req.Limit, total)
	}
	out := items[start:end]
	if out == nil {
		out = []T{}
	}
	return out, Result{Count: len(out), Total: total, Pages: pages, CurrentPage: req.Page}
}
