package pagination

const (
	DefaultSize = 20
	MaxSize     = 100
)

// Pagination is a 0-based page request bound from query parameters.
type Pagination struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

// Normalize clamps page and size to their allowed ranges.
func (p Pagination) Normalize() Pagination {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultSize
	}
	if p.Size > MaxSize {
		p.Size = MaxSize
	}
	return p
}

func (p Pagination) Offset() int {
	n := p.Normalize()
	return n.Page * n.Size
}

func (p Pagination) Limit() int {
	return p.Normalize().Size
}

// Page is the list envelope returned by every list endpoint.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

func NewPage[T any](content []T, p Pagination, total int64) Page[T] {
	p = p.Normalize()
	if content == nil {
		content = []T{}
	}

	totalPages := int((total + int64(p.Size) - 1) / int64(p.Size))
	return Page[T]{
		Content:       content,
		Page:          p.Page,
		Size:          p.Size,
		TotalPages:    totalPages,
		TotalElements: total,
		First:         p.Page == 0,
		Last:          p.Page >= totalPages-1,
	}
}

// Map converts a page of one type into a page of another, keeping the counts.
func Map[T, R any](in Page[T], fn func(T) R) Page[R] {
	out := make([]R, 0, len(in.Content))
	for _, item := range in.Content {
		out = append(out, fn(item))
	}
	return Page[R]{
		Content:       out,
		Page:          in.Page,
		Size:          in.Size,
		TotalPages:    in.TotalPages,
		TotalElements: in.TotalElements,
		First:         in.First,
		Last:          in.Last,
	}
}
