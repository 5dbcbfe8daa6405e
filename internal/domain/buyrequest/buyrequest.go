package buyrequest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/locomproapp/locompro/internal/domain/shared/events"
)

var (
	ErrIDRequired       = errors.New("buyrequest: id is required")
	ErrOwnerRequired    = errors.New("buyrequest: owner is required")
	ErrTitleRequired    = errors.New("buyrequest: title is required")
	ErrPriceRange       = errors.New("buyrequest: min price must be <= max price")
	ErrNegativePrice    = errors.New("buyrequest: prices must be non-negative")
	ErrInvalidCondition = errors.New("buyrequest: invalid condition")
	ErrNotActive        = errors.New("buyrequest: request is not active")
	ErrNotOwner         = errors.New("buyrequest: actor is not the owner")
	ErrNotFound         = errors.New("buyrequest: not found")
)

type BuyRequestID string
type OwnerID string

type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusClosed Status = "CLOSED"
)

// Condition is the acceptable product condition for a buy request.
type Condition string

const (
	ConditionNew  Condition = "new"
	ConditionUsed Condition = "used"
	ConditionAny  Condition = "any"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionUsed, ConditionAny:
		return true
	}
	return false
}

// BuyRequest is a buyer's public post describing a desired purchase. Sellers
// answer it with offers; accepting an offer closes the request.
type BuyRequest struct {
	ID            BuyRequestID
	Owner         OwnerID
	Title         string
	Description   string
	MinPriceCents int64
	MaxPriceCents int64
	Zone          string
	Condition     Condition
	Status        Status
	Images        []string
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BuyRequestID) (*BuyRequest, error)
	Save(ctx context.Context, request *BuyRequest) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
	Delete(ctx context.Context, id BuyRequestID) error
}

type CreateParams struct {
	ID            BuyRequestID
	Owner         OwnerID
	Title         string
	Description   string
	MinPriceCents int64
	MaxPriceCents int64
	Zone          string
	Condition     Condition
	Images        []string
	Now           time.Time
}

func NewBuyRequest(params CreateParams) (*BuyRequest, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Owner)) == "" {
		return nil, ErrOwnerRequired
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if err := validatePriceRange(params.MinPriceCents, params.MaxPriceCents); err != nil {
		return nil, err
	}
	condition := params.Condition
	if condition == "" {
		condition = ConditionAny
	}
	if !condition.Valid() {
		return nil, ErrInvalidCondition
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	request := &BuyRequest{
		ID:            params.ID,
		Owner:         params.Owner,
		Title:         title,
		Description:   strings.TrimSpace(params.Description),
		MinPriceCents: params.MinPriceCents,
		MaxPriceCents: params.MaxPriceCents,
		Zone:          strings.TrimSpace(params.Zone),
		Condition:     condition,
		Status:        StatusActive,
		Images:        append([]string(nil), params.Images...),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	request.Record(BuyRequestPublished{BuyRequestID: request.ID, Owner: request.Owner, Title: request.Title, Zone: request.Zone, At: now})
	return request, nil
}

// UpdateParams carries the owner-editable fields.
type UpdateParams struct {
	Title         string
	Description   string
	MinPriceCents int64
	MaxPriceCents int64
	Zone          string
	Condition     Condition
	Images        []string
}

// Update applies an owner edit. Closed requests cannot be edited.
func (r *BuyRequest) Update(params UpdateParams, now time.Time) error {
	if r.Status != StatusActive {
		return ErrNotActive
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return ErrTitleRequired
	}
	if err := validatePriceRange(params.MinPriceCents, params.MaxPriceCents); err != nil {
		return err
	}
	condition := params.Condition
	if condition == "" {
		condition = ConditionAny
	}
	if !condition.Valid() {
		return ErrInvalidCondition
	}
	r.Title = title
	r.Description = strings.TrimSpace(params.Description)
	r.MinPriceCents = params.MinPriceCents
	r.MaxPriceCents = params.MaxPriceCents
	r.Zone = strings.TrimSpace(params.Zone)
	r.Condition = condition
	r.Images = append([]string(nil), params.Images...)
	r.touch(now)
	return nil
}

// Close ends the search. It is invoked either directly by the owner or by the
// acceptance flow after an offer wins.
func (r *BuyRequest) Close(now time.Time) error {
	if r.Status != StatusActive {
		return ErrNotActive
	}
	r.Status = StatusClosed
	r.touch(now)
	r.Record(BuyRequestClosed{BuyRequestID: r.ID, At: r.UpdatedAt})
	return nil
}

// OwnedBy reports whether the given actor owns this request.
func (r *BuyRequest) OwnedBy(actorID string) bool {
	return string(r.Owner) == actorID && actorID != ""
}

func (r *BuyRequest) CoverImage() string {
	if len(r.Images) == 0 {
		return ""
	}
	return r.Images[0]
}

func (r *BuyRequest) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	r.UpdatedAt = now.UTC()
}

func validatePriceRange(minCents, maxCents int64) error {
	if minCents < 0 || maxCents < 0 {
		return ErrNegativePrice
	}
	if minCents > 0 && maxCents > 0 && minCents > maxCents {
		return ErrPriceRange
	}
	return nil
}
