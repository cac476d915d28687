// Package report orders a domain portfolio by expiration urgency and renders
// it as a grid table.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/Sternrassler/namecheap-portfolio/pkg/namecheap"
	"github.com/olekukonko/tablewriter"
)

// ExpiryLayout is the server's date format (MM/DD/YYYY).
const ExpiryLayout = "01/02/2006"

// ErrInvalidExpiry is returned when an expiry date cannot be parsed for sorting.
var ErrInvalidExpiry = errors.New("invalid expiry date")

// Headers are the report columns in order.
var Headers = []string{
	"Index",
	"Domain Name",
	"Created",
	"Expires",
	"IsExpired",
	"IsLocked",
	"AutoRenew",
	"WhoisGuard",
	"IsPremium",
	"IsOurDNS",
}

// IsActive reports whether the record's IsExpired flag is exactly "false".
func IsActive(r namecheap.DomainRecord) bool {
	return r.IsExpired == "false"
}

// ActiveCount counts records that are not expired.
func ActiveCount(domains []namecheap.DomainRecord) int {
	n := 0
	for _, d := range domains {
		if IsActive(d) {
			n++
		}
	}
	return n
}

// Sort returns a copy of domains ordered expired-first, then by ascending
// expiry date. Records with equal keys keep their relative order.
func Sort(domains []namecheap.DomainRecord) ([]namecheap.DomainRecord, error) {
	type keyed struct {
		record  namecheap.DomainRecord
		active  bool
		expires time.Time
	}

	items := make([]keyed, 0, len(domains))
	for _, d := range domains {
		expires, err := time.Parse(ExpiryLayout, d.Expires)
		if err != nil {
			return nil, fmt.Errorf("%w for %q: %q", ErrInvalidExpiry, d.Name, d.Expires)
		}
		items = append(items, keyed{record: d, active: IsActive(d), expires: expires})
	}

	slices.SortStableFunc(items, func(a, b keyed) int {
		if a.active != b.active {
			if !a.active {
				return -1
			}
			return 1
		}
		return a.expires.Compare(b.expires)
	})

	sorted := make([]namecheap.DomainRecord, 0, len(items))
	for _, it := range items {
		sorted = append(sorted, it.record)
	}
	return sorted, nil
}

// Render sorts domains and writes the grid table followed by the active count.
func Render(w io.Writer, domains []namecheap.DomainRecord) error {
	sorted, err := Sort(domains)
	if err != nil {
		return err
	}

	var grid bytes.Buffer
	table := tablewriter.NewWriter(&grid)
	table.SetHeader(Headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetRowLine(true)

	for i, d := range sorted {
		table.Append(append([]string{strconv.Itoa(i + 1)}, d.Row()...))
	}
	table.Render()

	if _, err := w.Write(headerRule(grid.Bytes())); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	if _, err := fmt.Fprintf(w, "\nTotal active domains: %d\n", ActiveCount(domains)); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// headerRule redraws the border below the header row with '=' so the heading
// stands apart from the data rows.
func headerRule(grid []byte) []byte {
	lines := bytes.SplitAfter(grid, []byte("\n"))
	if len(lines) > 2 {
		lines[2] = bytes.ReplaceAll(lines[2], []byte("-"), []byte("="))
	}
	return bytes.Join(lines, nil)
}
