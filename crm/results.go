package crm

// SearchResult is one page from the search endpoint. Cursor carries the
// continuation token; its absence, not an empty Data slice, is what ends
// pagination.
type SearchResult struct {
	Data   []LeadRef `json:"data"`
	Cursor string    `json:"cursor"`
}

// HasMore reports whether another page follows this one.
func (r SearchResult) HasMore() bool {
	return r.Cursor != ""
}

// WriteResult is the outcome of a mutating call. OK is true for any
// success status even when the response body failed to decode: the write
// landed, only the echo was unreadable.
type WriteResult struct {
	OK     bool
	Status int
}

// DetailResult wraps a decoded read. Found is false when the body was
// empty or failed to decode; reads degrade to "no data" instead of
// failing the record.
type DetailResult[T any] struct {
	Found bool
	Value T
}
