package types

// Pagination describes one page of a larger collection.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination computes the page count as ceil(total/limit). A non-positive
// limit yields zero pages.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 && total > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: pages,
	}
}

// Envelope is the body every server reply is written as. Data and Pagination
// are omitted when unset; Error is a pointer so an empty message still encodes.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Error      *string     `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// APIResponse is the client-side view of Envelope with a typed payload.
type APIResponse[T any] struct {
	Success    bool        `json:"success"`
	Data       *T          `json:"data,omitempty"`
	Error      *string     `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// ErrorMessage returns the error text, or "" for success envelopes.
func (r *APIResponse[T]) ErrorMessage() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return *r.Error
}
