package offers

import (
	"context"
	"sort"

	"github.com/locomproapp/locompro/internal/app/queries"
	"github.com/locomproapp/locompro/internal/app/uow"
	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
)

const listOffersKey = "offers.list_for_request"

// OfferSort orders an offer listing. Recency uses UpdatedAt so a fresh
// counteroffer surfaces without rewriting CreatedAt.
type OfferSort string

const (
	SortByCreated  OfferSort = "created"
	SortByActivity OfferSort = "activity"
	SortByPrice    OfferSort = "price"
)

type ListOffersQuery struct {
	BuyRequestID string
	Sort         OfferSort
}

func (q ListOffersQuery) Key() string { return listOffersKey }

type ListOffersResult struct {
	Items []*domainoffer.Offer
}

type ListOffersHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListOffersHandler) Handle(ctx context.Context, q ListOffersQuery) (*ListOffersResult, error) {
	unit, managed, ctx, err := resolveUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if managed {
		defer unit.Rollback(ctx)
	}

	items, err := unit.Offers().ListByBuyRequest(ctx, domainbuyrequest.BuyRequestID(q.BuyRequestID))
	if err != nil {
		return nil, err
	}
	sortOffers(items, q.Sort)
	return &ListOffersResult{Items: items}, nil
}

func sortOffers(items []*domainoffer.Offer, by OfferSort) {
	sort.SliceStable(items, func(i, j int) bool {
		switch by {
		case SortByPrice:
			if items[i].PriceCents == items[j].PriceCents {
				return items[i].UpdatedAt.After(items[j].UpdatedAt)
			}
			return items[i].PriceCents < items[j].PriceCents
		case SortByCreated:
			return items[i].CreatedAt.After(items[j].CreatedAt)
		default:
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
	})
}

var _ queries.Handler[ListOffersQuery, *ListOffersResult] = (*ListOffersHandler)(nil)
