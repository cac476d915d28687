// Package namecheap holds the wire model of the registrar's XML API: domain
// records as listed by namecheap.domains.getList, per-page fetch results and
// the paging counters that drive pagination.
package namecheap

// NotAvailable is substituted for any domain attribute absent on the wire.
const NotAvailable = "N/A"

// Namespace is the XML namespace of every element in an API response.
const Namespace = "http://api.namecheap.com/xml.response"

// CommandDomainsGetList is the command identifier of the domain listing.
const CommandDomainsGetList = "namecheap.domains.getList"

// Domain entry attribute names, case-sensitive.
const (
	AttrName       = "Name"
	AttrCreated    = "Created"
	AttrExpires    = "Expires"
	AttrIsExpired  = "IsExpired"
	AttrIsLocked   = "IsLocked"
	AttrAutoRenew  = "AutoRenew"
	AttrWhoisGuard = "WhoisGuard"
	AttrIsPremium  = "IsPremium"
	AttrIsOurDNS   = "IsOurDNS"
)

// DomainRecord is one registered domain as returned by the server.
//
// Values are kept exactly as sent: dates in MM/DD/YYYY form and flags as the
// literal strings "true"/"false". Absent attributes hold NotAvailable.
type DomainRecord struct {
	Name       string `json:"name"`
	Created    string `json:"created"`
	Expires    string `json:"expires"`
	IsExpired  string `json:"is_expired"`
	IsLocked   string `json:"is_locked"`
	AutoRenew  string `json:"auto_renew"`
	WhoisGuard string `json:"whois_guard"`
	IsPremium  string `json:"is_premium"`
	IsOurDNS   string `json:"is_our_dns"`
}

// NewDomainRecord builds a record from an attribute lookup. lookup reports
// whether the attribute was present at all.
func NewDomainRecord(lookup func(name string) (string, bool)) DomainRecord {
	get := func(name string) string {
		if v, ok := lookup(name); ok {
			return v
		}
		return NotAvailable
	}

	return DomainRecord{
		Name:       get(AttrName),
		Created:    get(AttrCreated),
		Expires:    get(AttrExpires),
		IsExpired:  get(AttrIsExpired),
		IsLocked:   get(AttrIsLocked),
		AutoRenew:  get(AttrAutoRenew),
		WhoisGuard: get(AttrWhoisGuard),
		IsPremium:  get(AttrIsPremium),
		IsOurDNS:   get(AttrIsOurDNS),
	}
}

// Row returns the record's attributes in report column order.
func (r DomainRecord) Row() []string {
	return []string{
		r.Name,
		r.Created,
		r.Expires,
		r.IsExpired,
		r.IsLocked,
		r.AutoRenew,
		r.WhoisGuard,
		r.IsPremium,
		r.IsOurDNS,
	}
}
