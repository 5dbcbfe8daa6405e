package offer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/locomproapp/locompro/internal/domain/buyrequest"
	"github.com/locomproapp/locompro/internal/domain/shared/events"
)

var (
	ErrIDRequired      = errors.New("offer: id is required")
	ErrSellerRequired  = errors.New("offer: seller is required")
	ErrTitleRequired   = errors.New("offer: title is required")
	ErrInvalidPrice    = errors.New("offer: price must be positive")
	ErrImagesRequired  = errors.New("offer: at least one image is required")
	ErrTooManyImages   = errors.New("offer: at most five images are allowed")
	ErrInvalidDelivery = errors.New("offer: invalid delivery term")
	ErrInvalidState    = errors.New("offer: invalid status transition")
	ErrNotSeller       = errors.New("offer: actor is not the offer's seller")
	ErrOwnRequest      = errors.New("offer: cannot bid on your own buy request")
	ErrNotFound        = errors.New("offer: not found")
)

type OfferID string
type SellerID string

type Status string

const (
	// StatusPending is the initial status and the only one the buy-request
	// owner may act on.
	StatusPending Status = "PENDING"
	// StatusAccepted marks the single winning offer of a buy request.
	StatusAccepted Status = "ACCEPTED"
	// StatusRejected offers may return to pending through a counteroffer.
	StatusRejected Status = "REJECTED"
	// StatusFinalized marks pending siblings swept aside when another offer
	// on the same request was accepted.
	StatusFinalized Status = "FINALIZED"
)

// Delivery is how the seller hands the product over.
type Delivery string

const (
	DeliveryInPerson Delivery = "in_person"
	DeliveryMail     Delivery = "mail"
)

func (d Delivery) Valid() bool {
	return d == DeliveryInPerson || d == DeliveryMail
}

const maxImages = 5

// Offer is a seller's bid against a buy request. Status transitions are
// guarded here; persistence is expected to reject stale writes so concurrent
// actors cannot bypass the guards (see Repository).
type Offer struct {
	ID              OfferID
	BuyRequestID    buyrequest.BuyRequestID
	Seller          SellerID
	Title           string
	Description     string
	PriceCents      int64
	Images          []string
	Delivery        Delivery
	Zone            string
	Condition       string
	Status          Status
	RejectionReason string
	PriceHistory    []HistoryEntry
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	events.EventRecorder
}

// Repository persists offers. Save must perform a conditional write keyed on
// the loaded Version so that two actors racing on the same offer produce
// exactly one winner.
type Repository interface {
	ByID(ctx context.Context, id OfferID) (*Offer, error)
	Save(ctx context.Context, offer *Offer) error
	ListByBuyRequest(ctx context.Context, buyRequestID buyrequest.BuyRequestID) ([]*Offer, error)
	ListBySeller(ctx context.Context, sellerID SellerID) ([]*Offer, error)
	Delete(ctx context.Context, id OfferID) error
}

type CreateParams struct {
	ID           OfferID
	BuyRequestID buyrequest.BuyRequestID
	Seller       SellerID
	Title        string
	Description  string
	PriceCents   int64
	Images       []string
	Delivery     Delivery
	Zone         string
	Condition    string
	Now          time.Time
}

// NewOffer builds a pending offer and seeds its price history with the
// initial entry.
func NewOffer(params CreateParams) (*Offer, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Seller)) == "" {
		return nil, ErrSellerRequired
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if err := validatePrice(params.PriceCents); err != nil {
		return nil, err
	}
	if err := validateImages(params.Images); err != nil {
		return nil, err
	}
	if !params.Delivery.Valid() {
		return nil, ErrInvalidDelivery
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	o := &Offer{
		ID:           params.ID,
		BuyRequestID: params.BuyRequestID,
		Seller:       params.Seller,
		Title:        title,
		Description:  strings.TrimSpace(params.Description),
		PriceCents:   params.PriceCents,
		Images:       append([]string(nil), params.Images...),
		Delivery:     params.Delivery,
		Zone:         strings.TrimSpace(params.Zone),
		Condition:    strings.TrimSpace(params.Condition),
		Status:       StatusPending,
		PriceHistory: []HistoryEntry{{PriceCents: params.PriceCents, At: now, Type: HistoryInitial}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	o.Record(OfferSubmitted{OfferID: o.ID, BuyRequestID: o.BuyRequestID, Seller: o.Seller, PriceCents: o.PriceCents, At: now})
	return o, nil
}

// Accept moves a pending offer to accepted. Only the buy-request owner may
// trigger this; the ownership check lives with the caller because the owner
// is a property of the parent request, not of the offer.
func (o *Offer) Accept(now time.Time) error {
	if o.Status != StatusPending {
		return ErrInvalidState
	}
	o.Status = StatusAccepted
	o.touch(now)
	o.Record(OfferAccepted{OfferID: o.ID, BuyRequestID: o.BuyRequestID, Seller: o.Seller, PriceCents: o.PriceCents, At: o.UpdatedAt})
	return nil
}

// Reject moves a pending offer to rejected, storing the resolved reason. The
// price history is untouched; it only grows when a counteroffer changes the
// price.
func (o *Offer) Reject(reason Reason, detail string, now time.Time) error {
	resolved, err := ResolveReason(reason, detail)
	if err != nil {
		return err
	}
	if o.Status != StatusPending {
		return ErrInvalidState
	}
	o.Status = StatusRejected
	o.RejectionReason = resolved
	o.touch(now)
	o.Record(OfferRejected{OfferID: o.ID, BuyRequestID: o.BuyRequestID, Reason: resolved, At: o.UpdatedAt})
	return nil
}

// Finalize sweeps a pending offer aside because a sibling was accepted.
// Offers already rejected or accepted are never finalized.
func (o *Offer) Finalize(now time.Time) error {
	if o.Status != StatusPending {
		return ErrInvalidState
	}
	o.Status = StatusFinalized
	o.touch(now)
	o.Record(OfferFinalized{OfferID: o.ID, BuyRequestID: o.BuyRequestID, At: o.UpdatedAt})
	return nil
}

// Revision is the payload of a counteroffer.
type Revision struct {
	Title       string
	Description string
	PriceCents  int64
	Images      []string
	Delivery    Delivery
	Zone        string
	Condition   string
}

// Counteroffer turns a rejected offer back into a live pending bid. The prior
// price is appended to the history only when the revision actually changes
// it; the rejection reason is cleared. CreatedAt stays untouched — recency
// sorting relies on UpdatedAt.
func (o *Offer) Counteroffer(rev Revision, now time.Time) error {
	if o.Status != StatusRejected {
		return ErrInvalidState
	}
	title := strings.TrimSpace(rev.Title)
	if title == "" {
		return ErrTitleRequired
	}
	if err := validatePrice(rev.PriceCents); err != nil {
		return err
	}
	if err := validateImages(rev.Images); err != nil {
		return err
	}
	if !rev.Delivery.Valid() {
		return ErrInvalidDelivery
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	previousPrice := o.PriceCents
	if rev.PriceCents != previousPrice {
		o.PriceHistory = append(o.PriceHistory, HistoryEntry{PriceCents: previousPrice, At: now, Type: HistoryRejected})
	}
	o.Title = title
	o.Description = strings.TrimSpace(rev.Description)
	o.PriceCents = rev.PriceCents
	o.Images = append([]string(nil), rev.Images...)
	o.Delivery = rev.Delivery
	o.Zone = strings.TrimSpace(rev.Zone)
	o.Condition = strings.TrimSpace(rev.Condition)
	o.Status = StatusPending
	o.RejectionReason = ""
	o.UpdatedAt = now
	o.Record(OfferCountered{OfferID: o.ID, BuyRequestID: o.BuyRequestID, Seller: o.Seller, PreviousPriceCents: previousPrice, PriceCents: o.PriceCents, At: now})
	return nil
}

// DeletableBy reports whether the actor may delete the offer right now.
// Sellers can withdraw pending or rejected bids; accepted and finalized
// offers are part of a concluded negotiation and stay.
func (o *Offer) DeletableBy(actorID string) error {
	if string(o.Seller) != actorID || actorID == "" {
		return ErrNotSeller
	}
	if o.Status != StatusPending && o.Status != StatusRejected {
		return ErrInvalidState
	}
	return nil
}

// SoldBy reports whether the actor is the offer's seller.
func (o *Offer) SoldBy(actorID string) bool {
	return string(o.Seller) == actorID && actorID != ""
}

func (o *Offer) PrincipalImage() string {
	if len(o.Images) == 0 {
		return ""
	}
	return o.Images[0]
}

func (o *Offer) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	o.UpdatedAt = now.UTC()
}

func validatePrice(cents int64) error {
	if cents <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

func validateImages(images []string) error {
	if len(images) == 0 {
		return ErrImagesRequired
	}
	if len(images) > maxImages {
		return ErrTooManyImages
	}
	for _, img := range images {
		if strings.TrimSpace(img) == "" {
			return ErrImagesRequired
		}
	}
	return nil
}
