package search

// Default result caps, matching the HTTP surface defaults.
const (
	DefaultTop     = 50
	DefaultOmniTop = 25
)

// Request is a single-table hybrid search request.
type Request struct {
	table        string
	text         string
	top          int
	filterString string
}

// RequestOption is a functional option for Request.
type RequestOption func(*Request)

// WithText sets the query text.
func WithText(text string) RequestOption {
	return func(r *Request) {
		r.text = text
	}
}

// WithTop sets the per-retriever result cap. Non-positive values fall back
// to the default.
func WithTop(top int) RequestOption {
	return func(r *Request) {
		r.top = top
	}
}

// WithFilterString sets the raw filter DSL string.
func WithFilterString(filters string) RequestOption {
	return func(r *Request) {
		r.filterString = filters
	}
}

// NewRequest creates a search request for a table.
func NewRequest(table string, opts ...RequestOption) Request {
	r := Request{table: table, top: DefaultTop}
	for _, opt := range opts {
		opt(&r)
	}
	if r.top < 1 {
		r.top = DefaultTop
	}
	return r
}

// Table returns the target table name.
func (r Request) Table() string { return r.table }

// Text returns the raw query text.
func (r Request) Text() string { return r.text }

// Top returns the per-retriever result cap.
func (r Request) Top() int { return r.top }

// FilterString returns the raw filter DSL string.
func (r Request) FilterString() string { return r.filterString }

// OmniRequest fans a search out over several tables.
type OmniRequest struct {
	tables       []string
	text         string
	top          int
	filterString string
}

// OmniRequestOption is a functional option for OmniRequest.
type OmniRequestOption func(*OmniRequest)

// WithTables restricts the fan-out to the named tables. Absent, every
// registered table is searched.
func WithTables(tables ...string) OmniRequestOption {
	return func(r *OmniRequest) {
		if tables != nil {
			r.tables = make([]string, len(tables))
			copy(r.tables, tables)
		}
	}
}

// WithOmniText sets the query text.
func WithOmniText(text string) OmniRequestOption {
	return func(r *OmniRequest) {
		r.text = text
	}
}

// WithOmniTop sets the per-table, per-retriever result cap.
func WithOmniTop(top int) OmniRequestOption {
	return func(r *OmniRequest) {
		r.top = top
	}
}

// WithOmniFilterString sets the raw filter DSL string, applied per table.
func WithOmniFilterString(filters string) OmniRequestOption {
	return func(r *OmniRequest) {
		r.filterString = filters
	}
}

// NewOmniRequest creates a multi-table search request.
func NewOmniRequest(opts ...OmniRequestOption) OmniRequest {
	r := OmniRequest{top: DefaultOmniTop}
	for _, opt := range opts {
		opt(&r)
	}
	if r.top < 1 {
		r.top = DefaultOmniTop
	}
	return r
}

// Tables returns the requested tables, nil meaning all registered.
func (r OmniRequest) Tables() []string {
	if r.tables == nil {
		return nil
	}
	result := make([]string, len(r.tables))
	copy(result, r.tables)
	return result
}

// Text returns the raw query text.
func (r OmniRequest) Text() string { return r.text }

// Top returns the per-table result cap.
func (r OmniRequest) Top() int { return r.top }

// FilterString returns the raw filter DSL string.
func (r OmniRequest) FilterString() string { return r.filterString }

// ToRequest narrows the omni request to one table.
func (r OmniRequest) ToRequest(table string) Request {
	return NewRequest(table,
		WithText(r.text),
		WithTop(r.top),
		WithFilterString(r.filterString),
	)
}
