package shared

// Pagination holds page parameters for list queries
type Pagination struct {
	Page     int
	PageSize int
}

// DefaultPageSize is used when a caller does not ask for a size
const DefaultPageSize = 20

// MaxPageSize caps page sizes requested by clients
const MaxPageSize = 200

// Normalize clamps the pagination to sane bounds
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the row offset for the page
func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}
