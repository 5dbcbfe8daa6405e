package buyrequest

import (
	"errors"
	"testing"
	"time"
)

func validParams() CreateParams {
	return CreateParams{
		ID:            "req-1",
		Owner:         "buyer-1",
		Title:         "Looking for a standing desk",
		Description:   "120cm minimum, electric preferred",
		MinPriceCents: 50000_00,
		MaxPriceCents: 120000_00,
		Zone:          "Caballito",
		Condition:     ConditionAny,
		Now:           time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC),
	}
}

func TestNewBuyRequestValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateParams)
		want   error
	}{
		{"missing id", func(p *CreateParams) { p.ID = "" }, ErrIDRequired},
		{"missing owner", func(p *CreateParams) { p.Owner = "  " }, ErrOwnerRequired},
		{"blank title", func(p *CreateParams) { p.Title = " " }, ErrTitleRequired},
		{"negative min", func(p *CreateParams) { p.MinPriceCents = -1 }, ErrNegativePrice},
		{"negative max", func(p *CreateParams) { p.MaxPriceCents = -1 }, ErrNegativePrice},
		{"inverted range", func(p *CreateParams) {
			p.MinPriceCents = 200
			p.MaxPriceCents = 100
		}, ErrPriceRange},
		{"bogus condition", func(p *CreateParams) { p.Condition = "refurbished" }, ErrInvalidCondition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams()
			tc.mutate(&params)
			if _, err := NewBuyRequest(params); !errors.Is(err, tc.want) {
				t.Fatalf("NewBuyRequest() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNewBuyRequestDefaults(t *testing.T) {
	params := validParams()
	params.Condition = ""
	r, err := NewBuyRequest(params)
	if err != nil {
		t.Fatalf("NewBuyRequest() error = %v", err)
	}
	if r.Condition != ConditionAny {
		t.Fatalf("condition = %s, want %s", r.Condition, ConditionAny)
	}
	if r.Status != StatusActive {
		t.Fatalf("status = %s, want %s", r.Status, StatusActive)
	}
	if len(r.PendingEvents()) != 1 {
		t.Fatalf("recorded events = %d, want 1", len(r.PendingEvents()))
	}
}

func TestZeroBoundsSkipRangeCheck(t *testing.T) {
	// A zero bound means "no limit"; only two set bounds can conflict.
	params := validParams()
	params.MinPriceCents = 100000_00
	params.MaxPriceCents = 0
	if _, err := NewBuyRequest(params); err != nil {
		t.Fatalf("NewBuyRequest() error = %v", err)
	}
}

func TestUpdate(t *testing.T) {
	now := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	edit := UpdateParams{
		Title:         "Standing desk, 140cm",
		MinPriceCents: 60000_00,
		MaxPriceCents: 130000_00,
		Condition:     ConditionNew,
	}

	t.Run("active request accepts edits", func(t *testing.T) {
		r, _ := NewBuyRequest(validParams())
		if err := r.Update(edit, now); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if r.Title != edit.Title || r.Condition != ConditionNew {
			t.Fatalf("edit not applied: %+v", r)
		}
		if !r.UpdatedAt.Equal(now) {
			t.Fatalf("UpdatedAt = %v, want %v", r.UpdatedAt, now)
		}
	})

	t.Run("closed request refuses edits", func(t *testing.T) {
		r, _ := NewBuyRequest(validParams())
		if err := r.Close(now); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if err := r.Update(edit, now.Add(time.Hour)); !errors.Is(err, ErrNotActive) {
			t.Fatalf("Update() error = %v, want %v", err, ErrNotActive)
		}
	})

	t.Run("invalid edit leaves the request untouched", func(t *testing.T) {
		r, _ := NewBuyRequest(validParams())
		bad := edit
		bad.Title = "  "
		if err := r.Update(bad, now); !errors.Is(err, ErrTitleRequired) {
			t.Fatalf("Update() error = %v, want %v", err, ErrTitleRequired)
		}
		if r.Title != "Looking for a standing desk" {
			t.Fatalf("title mutated: %q", r.Title)
		}
	})
}

func TestClose(t *testing.T) {
	now := time.Date(2026, 2, 12, 8, 0, 0, 0, time.UTC)
	r, _ := NewBuyRequest(validParams())
	if err := r.Close(now); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if r.Status != StatusClosed {
		t.Fatalf("status = %s, want %s", r.Status, StatusClosed)
	}
	if err := r.Close(now.Add(time.Minute)); !errors.Is(err, ErrNotActive) {
		t.Fatalf("second Close() error = %v, want %v", err, ErrNotActive)
	}
}

func TestOwnedBy(t *testing.T) {
	r, _ := NewBuyRequest(validParams())
	if !r.OwnedBy("buyer-1") {
		t.Fatal("owner not recognized")
	}
	if r.OwnedBy("seller-1") {
		t.Fatal("stranger treated as owner")
	}
	if r.OwnedBy("") {
		t.Fatal("empty actor treated as owner")
	}
}
