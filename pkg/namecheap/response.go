package namecheap

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedDocument is returned when a response body cannot be understood.
// It is distinct from a well-formed response that simply holds no data.
var ErrMalformedDocument = errors.New("malformed response document")

// APIMessage is an error or warning reported inside an ApiResponse.
type APIMessage struct {
	Number  string
	Message string
}

// ListPage is the decoded content of one getList response.
type ListPage struct {
	// Status is the ApiResponse Status attribute ("OK" or "ERROR").
	Status string

	// Errors lists the API-level errors carried by the response.
	Errors []APIMessage

	// HasCommandResponse reports whether the CommandResponse container was present.
	HasCommandResponse bool

	// HasListResult reports whether DomainGetListResult was present inside it.
	HasListResult bool

	// Domains are the page's entries in document order.
	Domains []DomainRecord

	// Paging is nil when the response carried no Paging block.
	Paging *PagingInfo
}

type apiResponse struct {
	Status          string           `xml:"Status,attr"`
	Errors          []apiError       `xml:"http://api.namecheap.com/xml.response Errors>Error"`
	CommandResponse *commandResponse `xml:"http://api.namecheap.com/xml.response CommandResponse"`
}

type apiError struct {
	Number  string `xml:"Number,attr"`
	Message string `xml:",chardata"`
}

type commandResponse struct {
	Result *listResult  `xml:"http://api.namecheap.com/xml.response DomainGetListResult"`
	Paging *pagingBlock `xml:"http://api.namecheap.com/xml.response Paging"`
}

type listResult struct {
	Domains []domainEntry `xml:"http://api.namecheap.com/xml.response Domain"`
}

type domainEntry struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

type pagingBlock struct {
	TotalItems  *string `xml:"http://api.namecheap.com/xml.response TotalItems"`
	CurrentPage *string `xml:"http://api.namecheap.com/xml.response CurrentPage"`
	PageSize    *string `xml:"http://api.namecheap.com/xml.response PageSize"`
}

// ParseListPage decodes a getList response body.
//
// Missing containers are reported through the HasCommandResponse and
// HasListResult flags; only a body that is not a well-formed document, or a
// Paging block whose counters are missing or non-numeric, yields an error.
func ParseListPage(body []byte) (*ListPage, error) {
	var doc apiResponse
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	page := &ListPage{Status: doc.Status}
	for _, e := range doc.Errors {
		page.Errors = append(page.Errors, APIMessage{
			Number:  e.Number,
			Message: strings.TrimSpace(e.Message),
		})
	}

	if doc.CommandResponse == nil {
		return page, nil
	}
	page.HasCommandResponse = true

	if res := doc.CommandResponse.Result; res != nil {
		page.HasListResult = true
		page.Domains = make([]DomainRecord, 0, len(res.Domains))
		for _, entry := range res.Domains {
			page.Domains = append(page.Domains, NewDomainRecord(entry.lookup))
		}
	}

	if pb := doc.CommandResponse.Paging; pb != nil {
		info, err := pb.parse()
		if err != nil {
			return nil, err
		}
		page.Paging = info
	}

	return page, nil
}

// lookup finds an unqualified attribute by exact name.
func (d domainEntry) lookup(name string) (string, bool) {
	for _, a := range d.Attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (p *pagingBlock) parse() (*PagingInfo, error) {
	total, err := pagingCounter("TotalItems", p.TotalItems)
	if err != nil {
		return nil, err
	}
	current, err := pagingCounter("CurrentPage", p.CurrentPage)
	if err != nil {
		return nil, err
	}
	size, err := pagingCounter("PageSize", p.PageSize)
	if err != nil {
		return nil, err
	}

	return &PagingInfo{
		TotalItems:  total,
		CurrentPage: current,
		PageSize:    size,
	}, nil
}

func pagingCounter(name string, text *string) (int, error) {
	if text == nil {
		return 0, fmt.Errorf("%w: paging element %s missing", ErrMalformedDocument, name)
	}
	n, err := strconv.Atoi(strings.TrimSpace(*text))
	if err != nil {
		return 0, fmt.Errorf("%w: paging element %s: %v", ErrMalformedDocument, name, err)
	}
	return n, nil
}

// ErrorSummary joins the API error messages into one line for logging.
func (p *ListPage) ErrorSummary() string {
	if len(p.Errors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(p.Errors))
	for _, e := range p.Errors {
		if e.Number != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", e.Number, e.Message))
			continue
		}
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; ")
}
