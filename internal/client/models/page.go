package models

// Page is one page of a paginated backend response.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Size          int   `json:"size"`
	Number        int   `json:"number"`
}

// Valid reports whether Number is inside [0, TotalPages) for non-empty results.
func (p *Page[T]) Valid() bool {
	if p.TotalPages <= 0 {
		return p.Number >= 0
	}
	return p.Number >= 0 && p.Number < p.TotalPages
}

func (p *Page[T]) HasNext() bool {
	return p.Number+1 < p.TotalPages
}
