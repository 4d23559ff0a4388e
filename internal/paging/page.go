package paging

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Request is a normalized page/limit pair, page numbered from 1.
type Request struct {
	Page  int
	Limit int
}

// Normalize applies defaults for non-positive values and caps the limit.
func Normalize(page, limit int) Request {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Request{Page: page, Limit: limit}
}

func (r Request) Offset() int {
	return (r.Page - 1) * r.Limit
}

// Page is one page of items plus its metadata.
type Page[T any] struct {
	Items      []T
	Page       int
	Limit      int
	Total      int64
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// New builds page metadata around items already fetched with r.
func New[T any](items []T, r Request, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := int((total + int64(r.Limit) - 1) / int64(r.Limit))
	return Page[T]{
		Items:      items,
		Page:       r.Page,
		Limit:      r.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    r.Page < pages,
		HasPrev:    r.Page > 1,
	}
}

// Map converts the items of a page, keeping the metadata.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(p.Items))
	for _, it := range p.Items {
		out = append(out, fn(it))
	}
	return Page[U]{
		Items:      out,
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}
}
