// Package testutil provides testing utilities for the registrar API client.
package testutil

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockPageResponse defines the behavior for one mocked listing page.
type MockPageResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockNamecheap is a configurable mock of the XML API endpoint.
// Pages not configured answer with an empty DomainGetListResult.
type MockNamecheap struct {
	server *httptest.Server
	mu     sync.RWMutex
	pages  map[int]MockPageResponse
	raw    map[string]MockPageResponse

	// Tracking
	RequestCount int
	PagesServed  []int
	LastQuery    url.Values
}

// NewMockNamecheap creates a new mock API server.
func NewMockNamecheap() *MockNamecheap {
	mock := &MockNamecheap{
		pages: make(map[int]MockPageResponse),
		raw:   make(map[string]MockPageResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock endpoint URL.
func (m *MockNamecheap) URL() string {
	return m.server.URL + "/xml.response"
}

// Close shuts down the mock server.
func (m *MockNamecheap) Close() {
	m.server.Close()
}

// SetPage configures the response for a listing page.
func (m *MockNamecheap) SetPage(page int, resp MockPageResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page] = resp
}

// SetCommand configures the response for a request carrying no Page parameter.
func (m *MockNamecheap) SetCommand(command string, resp MockPageResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw[command] = resp
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockNamecheap) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPagesServed returns the page numbers requested, in order.
func (m *MockNamecheap) GetPagesServed() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.PagesServed...)
}

// GetLastQuery returns the query of the most recent request.
func (m *MockNamecheap) GetLastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

func (m *MockNamecheap) handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	m.mu.Lock()
	m.RequestCount++
	m.LastQuery = query

	var resp MockPageResponse
	var ok bool
	if pageStr := query.Get("Page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			m.mu.Unlock()
			http.Error(w, "bad page", http.StatusBadRequest)
			return
		}
		m.PagesServed = append(m.PagesServed, page)
		resp, ok = m.pages[page]
	} else {
		resp, ok = m.raw[query.Get("Command")]
	}
	m.mu.Unlock()

	if !ok {
		resp = NewOKResponse(ListPageXML(nil, nil))
	}

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// Paging holds the counters rendered into a Paging block.
type Paging struct {
	TotalItems  int
	CurrentPage int
	PageSize    int
}

// Domain renders a Domain element from the given attributes, sorted by name
// for stable output.
func Domain(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<Domain")
	for _, k := range keys {
		fmt.Fprintf(&b, ` %s="%s"`, k, html.EscapeString(attrs[k]))
	}
	b.WriteString("/>")
	return b.String()
}

// FullDomain renders a Domain element carrying every listed attribute.
func FullDomain(name, expires, isExpired string) string {
	return Domain(map[string]string{
		"ID":         "1",
		"Name":       name,
		"User":       "owner",
		"Created":    "01/01/2015",
		"Expires":    expires,
		"IsExpired":  isExpired,
		"IsLocked":   "false",
		"AutoRenew":  "true",
		"WhoisGuard": "ENABLED",
		"IsPremium":  "false",
		"IsOurDNS":   "true",
	})
}

// ListPageXML renders a successful getList response. A nil paging omits the
// Paging block.
func ListPageXML(domains []string, paging *Paging) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString(`<ApiResponse Status="OK" xmlns="http://api.namecheap.com/xml.response">`)
	b.WriteString(`<Errors /><Warnings /><RequestedCommand>namecheap.domains.getList</RequestedCommand>`)
	b.WriteString(`<CommandResponse Type="namecheap.domains.getList"><DomainGetListResult>`)
	for _, d := range domains {
		b.WriteString(d)
	}
	b.WriteString(`</DomainGetListResult>`)
	if paging != nil {
		fmt.Fprintf(&b, `<Paging><TotalItems>%d</TotalItems><CurrentPage>%d</CurrentPage><PageSize>%d</PageSize></Paging>`,
			paging.TotalItems, paging.CurrentPage, paging.PageSize)
	}
	b.WriteString(`</CommandResponse><Server>MOCK</Server><ExecutionTime>0.01</ExecutionTime></ApiResponse>`)
	return b.String()
}

// MissingListResultXML renders a response whose CommandResponse lacks
// DomainGetListResult.
func MissingListResultXML() string {
	return `<?xml version="1.0" encoding="utf-8"?>
<ApiResponse Status="OK" xmlns="http://api.namecheap.com/xml.response">
<CommandResponse Type="namecheap.domains.getList"/>
</ApiResponse>`
}

// APIErrorXML renders an ERROR response without CommandResponse.
func APIErrorXML(number, message string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<ApiResponse Status="ERROR" xmlns="http://api.namecheap.com/xml.response">
<Errors><Error Number="%s">%s</Error></Errors>
<Warnings />
<RequestedCommand>namecheap.domains.getlist</RequestedCommand>
</ApiResponse>`, number, html.EscapeString(message))
}

// NewOKResponse creates a 200 response with the given body.
func NewOKResponse(body string) MockPageResponse {
	return MockPageResponse{StatusCode: http.StatusOK, Body: body}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       "internal server error",
	}
}
