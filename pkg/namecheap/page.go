package namecheap

// Outcome classifies a single page fetch. The client sets OutcomeSuccess or
// OutcomeServerError; the listing walk refines a successful page once its
// body has been parsed.
type Outcome int

const (
	// OutcomeSuccess means the server answered OK and the body may be parsed.
	OutcomeSuccess Outcome = iota

	// OutcomeMalformed means the body was not well-formed or lacked an
	// expected container.
	OutcomeMalformed

	// OutcomeServerError means the server answered with a non-OK status.
	OutcomeServerError

	// OutcomeEndOfData means the page carried no domain entries.
	OutcomeEndOfData
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeServerError:
		return "server_error"
	case OutcomeEndOfData:
		return "end_of_data"
	default:
		return "unknown"
	}
}

// PageResult is the transient result of fetching one page.
type PageResult struct {
	Page       int
	StatusCode int
	Body       []byte
	Outcome    Outcome
}

// PagingInfo holds the server's paging counters for one page.
type PagingInfo struct {
	TotalItems  int
	CurrentPage int
	PageSize    int
}

// Exhausted reports whether the listing holds nothing past this page.
func (p PagingInfo) Exhausted() bool {
	return p.CurrentPage*p.PageSize >= p.TotalItems
}
