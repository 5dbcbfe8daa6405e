package buyrequest

import "time"

type BuyRequestPublished struct {
	BuyRequestID BuyRequestID
	Owner        OwnerID
	Title        string
	Zone         string
	At           time.Time
}

func (e BuyRequestPublished) EventName() string     { return "buy_request.published" }
func (e BuyRequestPublished) AggregateID() string   { return string(e.BuyRequestID) }
func (e BuyRequestPublished) OccurredAt() time.Time { return e.At }

type BuyRequestClosed struct {
	BuyRequestID BuyRequestID
	At           time.Time
}

func (e BuyRequestClosed) EventName() string     { return "buy_request.closed" }
func (e BuyRequestClosed) AggregateID() string   { return string(e.BuyRequestID) }
func (e BuyRequestClosed) OccurredAt() time.Time { return e.At }
