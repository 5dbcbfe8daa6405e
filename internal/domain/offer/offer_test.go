package offer

import (
	"errors"
	"testing"
	"time"
)

func validParams() CreateParams {
	return CreateParams{
		ID:           "off-1",
		BuyRequestID: "req-1",
		Seller:       "seller-1",
		Title:        "iPhone 13 128GB",
		Description:  "Lightly used, battery at 91%",
		PriceCents:   45000_00,
		Images:       []string{"https://cdn.example/img1.jpg"},
		Delivery:     DeliveryInPerson,
		Zone:         "Palermo",
		Condition:    "used",
		Now:          time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func validRevision(price int64) Revision {
	return Revision{
		Title:      "iPhone 13 128GB",
		PriceCents: price,
		Images:     []string{"https://cdn.example/img1.jpg"},
		Delivery:   DeliveryMail,
	}
}

func TestNewOfferValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateParams)
		want   error
	}{
		{"missing id", func(p *CreateParams) { p.ID = " " }, ErrIDRequired},
		{"missing seller", func(p *CreateParams) { p.Seller = "" }, ErrSellerRequired},
		{"blank title", func(p *CreateParams) { p.Title = "   " }, ErrTitleRequired},
		{"zero price", func(p *CreateParams) { p.PriceCents = 0 }, ErrInvalidPrice},
		{"negative price", func(p *CreateParams) { p.PriceCents = -100 }, ErrInvalidPrice},
		{"no images", func(p *CreateParams) { p.Images = nil }, ErrImagesRequired},
		{"blank image url", func(p *CreateParams) { p.Images = []string{" "} }, ErrImagesRequired},
		{"too many images", func(p *CreateParams) {
			p.Images = []string{"a", "b", "c", "d", "e", "f"}
		}, ErrTooManyImages},
		{"bad delivery", func(p *CreateParams) { p.Delivery = "drone" }, ErrInvalidDelivery},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams()
			tc.mutate(&params)
			if _, err := NewOffer(params); !errors.Is(err, tc.want) {
				t.Fatalf("NewOffer() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNewOfferSeedsHistory(t *testing.T) {
	o, err := NewOffer(validParams())
	if err != nil {
		t.Fatalf("NewOffer() error = %v", err)
	}
	if o.Status != StatusPending {
		t.Fatalf("status = %s, want %s", o.Status, StatusPending)
	}
	if len(o.PriceHistory) != 1 {
		t.Fatalf("history length = %d, want 1", len(o.PriceHistory))
	}
	entry := o.PriceHistory[0]
	if entry.Type != HistoryInitial || entry.PriceCents != o.PriceCents {
		t.Fatalf("seed entry = %+v, want initial entry at %d", entry, o.PriceCents)
	}
	if evs := o.PendingEvents(); len(evs) != 1 {
		t.Fatalf("recorded events = %d, want 1", len(evs))
	}
}

func TestStatusTransitions(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		from    Status
		act     func(*Offer) error
		wantErr error
		wantTo  Status
	}{
		{"accept pending", StatusPending, func(o *Offer) error { return o.Accept(now) }, nil, StatusAccepted},
		{"accept accepted", StatusAccepted, func(o *Offer) error { return o.Accept(now) }, ErrInvalidState, StatusAccepted},
		{"accept rejected", StatusRejected, func(o *Offer) error { return o.Accept(now) }, ErrInvalidState, StatusRejected},
		{"accept finalized", StatusFinalized, func(o *Offer) error { return o.Accept(now) }, ErrInvalidState, StatusFinalized},
		{"reject pending", StatusPending, func(o *Offer) error { return o.Reject(ReasonPriceTooHigh, "", now) }, nil, StatusRejected},
		{"reject accepted", StatusAccepted, func(o *Offer) error { return o.Reject(ReasonPriceTooHigh, "", now) }, ErrInvalidState, StatusAccepted},
		{"reject finalized", StatusFinalized, func(o *Offer) error { return o.Reject(ReasonPriceTooHigh, "", now) }, ErrInvalidState, StatusFinalized},
		{"finalize pending", StatusPending, func(o *Offer) error { return o.Finalize(now) }, nil, StatusFinalized},
		{"finalize rejected", StatusRejected, func(o *Offer) error { return o.Finalize(now) }, ErrInvalidState, StatusRejected},
		{"finalize accepted", StatusAccepted, func(o *Offer) error { return o.Finalize(now) }, ErrInvalidState, StatusAccepted},
		{"counter rejected", StatusRejected, func(o *Offer) error { return o.Counteroffer(validRevision(40000_00), now) }, nil, StatusPending},
		{"counter pending", StatusPending, func(o *Offer) error { return o.Counteroffer(validRevision(40000_00), now) }, ErrInvalidState, StatusPending},
		{"counter accepted", StatusAccepted, func(o *Offer) error { return o.Counteroffer(validRevision(40000_00), now) }, ErrInvalidState, StatusAccepted},
		{"counter finalized", StatusFinalized, func(o *Offer) error { return o.Counteroffer(validRevision(40000_00), now) }, ErrInvalidState, StatusFinalized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, err := NewOffer(validParams())
			if err != nil {
				t.Fatalf("NewOffer() error = %v", err)
			}
			o.Status = tc.from
			if err := tc.act(o); !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
			if o.Status != tc.wantTo {
				t.Fatalf("status = %s, want %s", o.Status, tc.wantTo)
			}
		})
	}
}

func TestRejectStoresResolvedReason(t *testing.T) {
	now := time.Now().UTC()

	t.Run("enumerated reason keeps its label", func(t *testing.T) {
		o, _ := NewOffer(validParams())
		if err := o.Reject(ReasonDeliveryTooLong, "ignored", now); err != nil {
			t.Fatalf("Reject() error = %v", err)
		}
		if o.RejectionReason != string(ReasonDeliveryTooLong) {
			t.Fatalf("reason = %q, want %q", o.RejectionReason, ReasonDeliveryTooLong)
		}
	})

	t.Run("other stores the free text", func(t *testing.T) {
		o, _ := NewOffer(validParams())
		if err := o.Reject(ReasonOther, "already bought one", now); err != nil {
			t.Fatalf("Reject() error = %v", err)
		}
		if o.RejectionReason != "already bought one" {
			t.Fatalf("reason = %q", o.RejectionReason)
		}
	})

	t.Run("other without detail fails and keeps the offer pending", func(t *testing.T) {
		o, _ := NewOffer(validParams())
		if err := o.Reject(ReasonOther, "  ", now); !errors.Is(err, ErrReasonDetailRequired) {
			t.Fatalf("Reject() error = %v, want %v", err, ErrReasonDetailRequired)
		}
		if o.Status != StatusPending {
			t.Fatalf("status = %s, want pending untouched", o.Status)
		}
	})

	t.Run("unknown reason", func(t *testing.T) {
		o, _ := NewOffer(validParams())
		if err := o.Reject("Meh", "", now); !errors.Is(err, ErrReasonUnknown) {
			t.Fatalf("Reject() error = %v, want %v", err, ErrReasonUnknown)
		}
	})
}

func TestCounterofferHistory(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := created.Add(48 * time.Hour)

	t.Run("price change appends the replaced price", func(t *testing.T) {
		o, _ := NewOffer(validParams())
		if err := o.Reject(ReasonPriceTooHigh, "", created.Add(time.Hour)); err != nil {
			t.Fatalf("Reject() error = %v", err)
		}
		if err := o.Counteroffer(validRevision(40000_00), later); err != nil {
			t.Fatalf("Counteroffer() error = %v", err)
		}
		if len(o.PriceHistory) != 2 {
			t.Fatalf("history length = %d, want 2", len(o.PriceHistory))
		}
		replaced := o.PriceHistory[1]
		if replaced.Type != HistoryRejected || replaced.PriceCents != 45000_00 {
			t.Fatalf("appended entry = %+v, want rejected 4500000", replaced)
		}
		if o.PriceCents != 40000_00 {
			t.Fatalf("price = %d, want 4000000", o.PriceCents)
		}
		if o.RejectionReason != "" {
			t.Fatalf("rejection reason not cleared: %q", o.RejectionReason)
		}
	})

	t.Run("same price leaves the ledger alone", func(t *testing.T) {
		o, _ := NewOffer(validParams())
		_ = o.Reject(ReasonMissingInfo, "", created.Add(time.Hour))
		rev := validRevision(45000_00)
		rev.Description = "added more photos"
		if err := o.Counteroffer(rev, later); err != nil {
			t.Fatalf("Counteroffer() error = %v", err)
		}
		if len(o.PriceHistory) != 1 {
			t.Fatalf("history length = %d, want 1", len(o.PriceHistory))
		}
	})

	t.Run("created timestamp survives, updated moves", func(t *testing.T) {
		o, _ := NewOffer(validParams())
		_ = o.Reject(ReasonPriceTooHigh, "", created.Add(time.Hour))
		if err := o.Counteroffer(validRevision(30000_00), later); err != nil {
			t.Fatalf("Counteroffer() error = %v", err)
		}
		if !o.CreatedAt.Equal(created) {
			t.Fatalf("CreatedAt moved to %v", o.CreatedAt)
		}
		if !o.UpdatedAt.Equal(later) {
			t.Fatalf("UpdatedAt = %v, want %v", o.UpdatedAt, later)
		}
	})

	t.Run("invalid revision leaves the offer rejected", func(t *testing.T) {
		o, _ := NewOffer(validParams())
		_ = o.Reject(ReasonPriceTooHigh, "", created.Add(time.Hour))
		rev := validRevision(40000_00)
		rev.Images = nil
		if err := o.Counteroffer(rev, later); !errors.Is(err, ErrImagesRequired) {
			t.Fatalf("Counteroffer() error = %v, want %v", err, ErrImagesRequired)
		}
		if o.Status != StatusRejected {
			t.Fatalf("status = %s, want rejected untouched", o.Status)
		}
	})
}

func TestDeletableBy(t *testing.T) {
	cases := []struct {
		name   string
		status Status
		actor  string
		want   error
	}{
		{"seller pending", StatusPending, "seller-1", nil},
		{"seller rejected", StatusRejected, "seller-1", nil},
		{"seller accepted", StatusAccepted, "seller-1", ErrInvalidState},
		{"seller finalized", StatusFinalized, "seller-1", ErrInvalidState},
		{"stranger", StatusPending, "someone-else", ErrNotSeller},
		{"anonymous", StatusPending, "", ErrNotSeller},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, _ := NewOffer(validParams())
			o.Status = tc.status
			if err := o.DeletableBy(tc.actor); !errors.Is(err, tc.want) {
				t.Fatalf("DeletableBy(%q) = %v, want %v", tc.actor, err, tc.want)
			}
		})
	}
}

func TestResolveReason(t *testing.T) {
	cases := []struct {
		name    string
		reason  Reason
		detail  string
		want    string
		wantErr error
	}{
		{"plain", ReasonPoorCondition, "", string(ReasonPoorCondition), nil},
		{"padded input", Reason(" Price too high "), "", string(ReasonPriceTooHigh), nil},
		{"other with detail", ReasonOther, " changed my mind ", "changed my mind", nil},
		{"other without detail", ReasonOther, "", "", ErrReasonDetailRequired},
		{"empty", Reason(""), "", "", ErrReasonRequired},
		{"unknown", Reason("Too shiny"), "", "", ErrReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveReason(tc.reason, tc.detail)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ResolveReason() error = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("ResolveReason() = %q, want %q", got, tc.want)
			}
		})
	}
}
