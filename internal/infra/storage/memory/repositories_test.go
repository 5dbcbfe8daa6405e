package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainchat "github.com/locomproapp/locompro/internal/domain/chat"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
	"github.com/locomproapp/locompro/internal/domain/shared/storage"
)

func newRequest(t *testing.T, id string, created time.Time) *domainbuyrequest.BuyRequest {
	t.Helper()
	request, err := domainbuyrequest.NewBuyRequest(domainbuyrequest.CreateParams{
		ID:            domainbuyrequest.BuyRequestID(id),
		Owner:         "buyer-1",
		Title:         "Wanted: espresso machine",
		Description:   "Dual boiler preferred",
		MaxPriceCents: 80000_00,
		Zone:          "Palermo",
		Now:           created,
	})
	if err != nil {
		t.Fatalf("NewBuyRequest() error = %v", err)
	}
	return request
}

func TestBuyRequestSaveDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewBuyRequestRepository()
	created := newRequest(t, "req-1", time.Now())
	if err := repo.Save(ctx, created); err != nil {
		t.Fatalf("initial Save() error = %v", err)
	}

	first, err := repo.ByID(ctx, "req-1")
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	second, err := repo.ByID(ctx, "req-1")
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}

	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("first writer Save() error = %v", err)
	}
	if err := repo.Save(ctx, second); !errors.Is(err, storage.ErrConcurrentUpdate) {
		t.Fatalf("stale Save() error = %v, want %v", err, storage.ErrConcurrentUpdate)
	}
}

func TestOfferSaveDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewOfferRepository()
	created, err := domainoffer.NewOffer(domainoffer.CreateParams{
		ID:           "off-1",
		BuyRequestID: "req-1",
		Seller:       "seller-1",
		Title:        "Rancilio Silvia",
		PriceCents:   70000_00,
		Images:       []string{"https://cdn.example/machine.jpg"},
		Delivery:     domainoffer.DeliveryMail,
	})
	if err != nil {
		t.Fatalf("NewOffer() error = %v", err)
	}
	if err := repo.Save(ctx, created); err != nil {
		t.Fatalf("initial Save() error = %v", err)
	}

	first, _ := repo.ByID(ctx, "off-1")
	second, _ := repo.ByID(ctx, "off-1")
	if err := first.Accept(time.Now()); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("first writer Save() error = %v", err)
	}
	if err := repo.Save(ctx, second); !errors.Is(err, storage.ErrConcurrentUpdate) {
		t.Fatalf("stale Save() error = %v, want %v", err, storage.ErrConcurrentUpdate)
	}
}

func TestByIDReturnsACopy(t *testing.T) {
	ctx := context.Background()
	repo := NewBuyRequestRepository()
	if err := repo.Save(ctx, newRequest(t, "req-1", time.Now())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, _ := repo.ByID(ctx, "req-1")
	loaded.Title = "mutated"
	reloaded, _ := repo.ByID(ctx, "req-1")
	if reloaded.Title == "mutated" {
		t.Fatal("repository returned a shared pointer")
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewBuyRequestRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r := newRequest(t, fmt.Sprintf("req-%d", i), base.Add(time.Duration(i)*time.Hour))
		r.MaxPriceCents = int64(i+1) * 10000_00
		if i == 4 {
			r.Zone = "Almagro"
			r.Title = "Wanted: grinder"
		}
		if err := repo.Save(ctx, r); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	t.Run("newest first by default", func(t *testing.T) {
		res, err := repo.Search(ctx, domainbuyrequest.SearchParams{})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if res.Total != 5 || len(res.Items) != 5 {
			t.Fatalf("total = %d items = %d, want 5/5", res.Total, len(res.Items))
		}
		if res.Items[0].ID != "req-4" {
			t.Fatalf("first item = %s, want the newest", res.Items[0].ID)
		}
	})

	t.Run("zone filter is case-insensitive", func(t *testing.T) {
		res, _ := repo.Search(ctx, domainbuyrequest.SearchParams{Zone: "almagro"})
		if res.Total != 1 || res.Items[0].ID != "req-4" {
			t.Fatalf("zone search = %+v", res)
		}
	})

	t.Run("text query matches title", func(t *testing.T) {
		res, _ := repo.Search(ctx, domainbuyrequest.SearchParams{Query: "Grinder"})
		if res.Total != 1 {
			t.Fatalf("query total = %d, want 1", res.Total)
		}
	})

	t.Run("budget overlap", func(t *testing.T) {
		// Buyer budgets cap at MaxPriceCents; a seller-side floor above that
		// filters the request out.
		res, _ := repo.Search(ctx, domainbuyrequest.SearchParams{MinPriceCents: 35000_00})
		if res.Total != 2 {
			t.Fatalf("min price total = %d, want 2", res.Total)
		}
	})

	t.Run("price ascending with paging", func(t *testing.T) {
		res, _ := repo.Search(ctx, domainbuyrequest.SearchParams{
			Sort:   domainbuyrequest.SortByPriceAsc,
			Limit:  2,
			Offset: 1,
		})
		if res.Total != 5 || len(res.Items) != 2 {
			t.Fatalf("page = %d of %d, want 2 of 5", len(res.Items), res.Total)
		}
		if res.Items[0].MaxPriceCents != 20000_00 {
			t.Fatalf("page starts at %d", res.Items[0].MaxPriceCents)
		}
	})
}

func TestChatTripleIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepository()
	open := func(id string) *domainchat.Chat {
		c, err := domainchat.NewChat(domainchat.CreateParams{
			ID:           domainchat.ChatID(id),
			BuyRequestID: "req-1",
			BuyerID:      "buyer-1",
			SellerID:     "seller-1",
			OfferID:      "off-1",
		})
		if err != nil {
			t.Fatalf("NewChat() error = %v", err)
		}
		return c
	}
	if err := repo.Save(ctx, open("chat-1")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, open("chat-2")); !errors.Is(err, domainchat.ErrAlreadyExists) {
		t.Fatalf("duplicate Save() error = %v, want %v", err, domainchat.ErrAlreadyExists)
	}
	// Re-saving the same chat is an update, not a duplicate.
	if err := repo.Save(ctx, open("chat-1")); err != nil {
		t.Fatalf("re-Save() error = %v", err)
	}

	found, err := repo.FindByTriple(ctx, "req-1", "buyer-1", "seller-1")
	if err != nil {
		t.Fatalf("FindByTriple() error = %v", err)
	}
	if found.ID != "chat-1" {
		t.Fatalf("found = %s, want chat-1", found.ID)
	}
	if _, err := repo.FindByTriple(ctx, "req-1", "buyer-1", "seller-2"); !errors.Is(err, domainchat.ErrNotFound) {
		t.Fatalf("missing triple error = %v, want %v", err, domainchat.ErrNotFound)
	}
}

func TestListMessagesReturnsTailOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepository()
	thread, err := domainchat.NewChat(domainchat.CreateParams{
		ID:           "chat-1",
		BuyRequestID: "req-1",
		BuyerID:      "buyer-1",
		SellerID:     "seller-1",
		OfferID:      "off-1",
	})
	if err != nil {
		t.Fatalf("NewChat() error = %v", err)
	}
	if err := repo.Save(ctx, thread); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		msg, err := thread.NewMessage(fmt.Sprintf("msg-%d", i), "buyer-1", fmt.Sprintf("hello %d", i), base.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("NewMessage() error = %v", err)
		}
		if err := repo.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
	}

	msgs, err := repo.ListMessages(ctx, "chat-1", 3)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	if msgs[0].ID != "msg-2" || msgs[2].ID != "msg-4" {
		t.Fatalf("window = [%s..%s], want the newest three oldest-first", msgs[0].ID, msgs[2].ID)
	}
}
