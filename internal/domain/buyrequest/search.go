package buyrequest

import "strings"

// Sort orders for request listings.
type Sort string

const (
	SortByNewest    Sort = "newest"
	SortByUpdated   Sort = "updated"
	SortByPriceAsc  Sort = "price_asc"
	SortByPriceDesc Sort = "price_desc"
)

type SearchParams struct {
	Query         string
	Zone          string
	Status        Status
	Owner         OwnerID
	MinPriceCents int64
	MaxPriceCents int64
	Sort          Sort
	Limit         int
	Offset        int
}

type SearchResult struct {
	Items []*BuyRequest
	Total int
}

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// Normalized returns search params with bounds applied and text lowered.
func (p SearchParams) Normalized() SearchParams {
	out := p
	out.Query = strings.ToLower(strings.TrimSpace(p.Query))
	out.Zone = strings.TrimSpace(p.Zone)
	if out.Limit <= 0 {
		out.Limit = defaultSearchLimit
	}
	if out.Limit > maxSearchLimit {
		out.Limit = maxSearchLimit
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	if out.Sort == "" {
		out.Sort = SortByNewest
	}
	return out
}
