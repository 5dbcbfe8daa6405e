package buyrequests

import (
	"context"

	"github.com/locomproapp/locompro/internal/app/queries"
	"github.com/locomproapp/locompro/internal/app/uow"
	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
)

const (
	getKey    = "buyrequests.get"
	searchKey = "buyrequests.search"
)

type GetQuery struct {
	BuyRequestID string
}

func (q GetQuery) Key() string { return getKey }

type GetResult struct {
	Request *domainbuyrequest.BuyRequest
}

type GetHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetHandler) Handle(ctx context.Context, q GetQuery) (*GetResult, error) {
	unit, managed, ctx, err := resolveUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if managed {
		defer unit.Rollback(ctx)
	}
	request, err := unit.BuyRequests().ByID(ctx, domainbuyrequest.BuyRequestID(q.BuyRequestID))
	if err != nil {
		return nil, err
	}
	return &GetResult{Request: request}, nil
}

type SearchQuery struct {
	Params domainbuyrequest.SearchParams
}

func (q SearchQuery) Key() string { return searchKey }

type SearchResult struct {
	Items []*domainbuyrequest.BuyRequest
	Total int
}

type SearchHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SearchHandler) Handle(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	unit, managed, ctx, err := resolveUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if managed {
		defer unit.Rollback(ctx)
	}
	found, err := unit.BuyRequests().Search(ctx, q.Params)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Items: found.Items, Total: found.Total}, nil
}

var _ queries.Handler[GetQuery, *GetResult] = (*GetHandler)(nil)
var _ queries.Handler[SearchQuery, *SearchResult] = (*SearchHandler)(nil)
