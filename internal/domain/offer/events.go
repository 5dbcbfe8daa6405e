package offer

import (
	"time"

	"github.com/locomproapp/locompro/internal/domain/buyrequest"
)

type OfferSubmitted struct {
	OfferID      OfferID
	BuyRequestID buyrequest.BuyRequestID
	Seller       SellerID
	PriceCents   int64
	At           time.Time
}

func (e OfferSubmitted) EventName() string     { return "offer.submitted" }
func (e OfferSubmitted) AggregateID() string   { return string(e.OfferID) }
func (e OfferSubmitted) OccurredAt() time.Time { return e.At }

type OfferAccepted struct {
	OfferID      OfferID
	BuyRequestID buyrequest.BuyRequestID
	Seller       SellerID
	PriceCents   int64
	At           time.Time
}

func (e OfferAccepted) EventName() string     { return "offer.accepted" }
func (e OfferAccepted) AggregateID() string   { return string(e.OfferID) }
func (e OfferAccepted) OccurredAt() time.Time { return e.At }

type OfferRejected struct {
	OfferID      OfferID
	BuyRequestID buyrequest.BuyRequestID
	Reason       string
	At           time.Time
}

func (e OfferRejected) EventName() string     { return "offer.rejected" }
func (e OfferRejected) AggregateID() string   { return string(e.OfferID) }
func (e OfferRejected) OccurredAt() time.Time { return e.At }

type OfferFinalized struct {
	OfferID      OfferID
	BuyRequestID buyrequest.BuyRequestID
	At           time.Time
}

func (e OfferFinalized) EventName() string     { return "offer.finalized" }
func (e OfferFinalized) AggregateID() string   { return string(e.OfferID) }
func (e OfferFinalized) OccurredAt() time.Time { return e.At }

type OfferCountered struct {
	OfferID            OfferID
	BuyRequestID       buyrequest.BuyRequestID
	Seller             SellerID
	PreviousPriceCents int64
	PriceCents         int64
	At                 time.Time
}

func (e OfferCountered) EventName() string     { return "offer.countered" }
func (e OfferCountered) AggregateID() string   { return string(e.OfferID) }
func (e OfferCountered) OccurredAt() time.Time { return e.At }

type OfferWithdrawn struct {
	OfferID      OfferID
	BuyRequestID buyrequest.BuyRequestID
	Seller       SellerID
	At           time.Time
}

func (e OfferWithdrawn) EventName() string     { return "offer.withdrawn" }
func (e OfferWithdrawn) AggregateID() string   { return string(e.OfferID) }
func (e OfferWithdrawn) OccurredAt() time.Time { return e.At }
