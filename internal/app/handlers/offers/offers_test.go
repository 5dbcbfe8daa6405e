package offers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/locomproapp/locompro/internal/app/uow"
	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainchat "github.com/locomproapp/locompro/internal/domain/chat"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
	"github.com/locomproapp/locompro/internal/domain/shared/storage"
	"github.com/locomproapp/locompro/internal/infra/storage/memory"
)

type testEnv struct {
	factory  uow.UoWFactory
	outbox   *memory.Outbox
	requests *memory.BuyRequestRepository
	chats    *memory.ChatRepository
	offers   *memory.OfferRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	requests := memory.NewBuyRequestRepository()
	offers := memory.NewOfferRepository()
	chats := memory.NewChatRepository()
	return &testEnv{
		factory: memory.Factory{
			BuyRequestRepo: requests,
			OfferRepo:      offers,
			ChatRepo:       chats,
			ReviewRepo:     memory.NewReviewRepository(),
		},
		outbox:   memory.NewOutbox(),
		requests: requests,
		chats:    chats,
		offers:   offers,
	}
}

func (e *testEnv) unit(t *testing.T) uow.UnitOfWork {
	t.Helper()
	unit, err := e.factory.Begin(context.Background(), uow.TxOptions{})
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	return unit
}

func (e *testEnv) seedRequest(t *testing.T, id, owner string) *domainbuyrequest.BuyRequest {
	t.Helper()
	request, err := domainbuyrequest.NewBuyRequest(domainbuyrequest.CreateParams{
		ID:            domainbuyrequest.BuyRequestID(id),
		Owner:         domainbuyrequest.OwnerID(owner),
		Title:         "Looking for a mountain bike",
		MaxPriceCents: 300000_00,
		Zone:          "Belgrano",
	})
	if err != nil {
		t.Fatalf("NewBuyRequest() error = %v", err)
	}
	request.ClearEvents()
	unit := e.unit(t)
	if err := unit.BuyRequests().Save(context.Background(), request); err != nil {
		t.Fatalf("seed request save error = %v", err)
	}
	return request
}

func (e *testEnv) seedOffer(t *testing.T, id, requestID, seller string, price int64) *domainoffer.Offer {
	t.Helper()
	created, err := domainoffer.NewOffer(domainoffer.CreateParams{
		ID:           domainoffer.OfferID(id),
		BuyRequestID: domainbuyrequest.BuyRequestID(requestID),
		Seller:       domainoffer.SellerID(seller),
		Title:        "Trek Marlin 7",
		PriceCents:   price,
		Images:       []string{"https://cdn.example/bike.jpg"},
		Delivery:     domainoffer.DeliveryInPerson,
	})
	if err != nil {
		t.Fatalf("NewOffer() error = %v", err)
	}
	created.ClearEvents()
	unit := e.unit(t)
	if err := unit.Offers().Save(context.Background(), created); err != nil {
		t.Fatalf("seed offer save error = %v", err)
	}
	return created
}

func (e *testEnv) loadOffer(t *testing.T, id string) *domainoffer.Offer {
	t.Helper()
	got, err := e.offers.ByID(context.Background(), domainoffer.OfferID(id))
	if err != nil {
		t.Fatalf("ByID(%s) error = %v", id, err)
	}
	return got
}

func TestSubmitOffer(t *testing.T) {
	ctx := context.Background()

	submit := func(env *testEnv, cmd SubmitOfferCommand) (*SubmitOfferResult, error) {
		h := &SubmitOfferHandler{UoWFactory: env.factory, Outbox: env.outbox}
		return h.Handle(ctx, cmd)
	}
	baseCmd := SubmitOfferCommand{
		CommandID:    "off-1",
		BuyRequestID: "req-1",
		SellerID:     "seller-1",
		Title:        "Trek Marlin 7",
		PriceCents:   250000_00,
		Images:       []string{"https://cdn.example/bike.jpg"},
		Delivery:     string(domainoffer.DeliveryInPerson),
	}

	t.Run("creates a pending offer and records the event", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedRequest(t, "req-1", "buyer-1")
		res, err := submit(env, baseCmd)
		if err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		stored := env.loadOffer(t, res.OfferID)
		if stored.Status != domainoffer.StatusPending {
			t.Fatalf("status = %s, want pending", stored.Status)
		}
		records := env.outbox.Pending()
		if len(records) != 1 || records[0].Name != "offer.submitted" {
			t.Fatalf("outbox records = %+v, want one offer.submitted", records)
		}
	})

	t.Run("owner cannot bid on their own request", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedRequest(t, "req-1", "buyer-1")
		cmd := baseCmd
		cmd.SellerID = "buyer-1"
		if _, err := submit(env, cmd); !errors.Is(err, domainoffer.ErrOwnRequest) {
			t.Fatalf("Handle() error = %v, want %v", err, domainoffer.ErrOwnRequest)
		}
	})

	t.Run("closed request takes no offers", func(t *testing.T) {
		env := newTestEnv(t)
		request := env.seedRequest(t, "req-1", "buyer-1")
		if err := request.Close(time.Now()); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		unit := env.unit(t)
		if err := unit.BuyRequests().Save(ctx, request); err != nil {
			t.Fatalf("save closed request error = %v", err)
		}
		if _, err := submit(env, baseCmd); !errors.Is(err, domainbuyrequest.ErrNotActive) {
			t.Fatalf("Handle() error = %v, want %v", err, domainbuyrequest.ErrNotActive)
		}
	})

	t.Run("one live offer per seller per request", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedRequest(t, "req-1", "buyer-1")
		env.seedOffer(t, "off-existing", "req-1", "seller-1", 240000_00)
		cmd := baseCmd
		cmd.CommandID = "off-2"
		if _, err := submit(env, cmd); !errors.Is(err, ErrDuplicateOffer) {
			t.Fatalf("Handle() error = %v, want %v", err, ErrDuplicateOffer)
		}
	})

	t.Run("a finalized prior offer does not block a fresh one", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedRequest(t, "req-1", "buyer-1")
		prior := env.seedOffer(t, "off-existing", "req-1", "seller-1", 240000_00)
		if err := prior.Finalize(time.Now()); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		unit := env.unit(t)
		if err := unit.Offers().Save(ctx, prior); err != nil {
			t.Fatalf("save finalized offer error = %v", err)
		}
		cmd := baseCmd
		cmd.CommandID = "off-2"
		if _, err := submit(env, cmd); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
	})
}

func TestAcceptOffer(t *testing.T) {
	ctx := context.Background()

	accept := func(env *testEnv, cmd AcceptOfferCommand) (*AcceptOfferResult, error) {
		h := &AcceptOfferHandler{UoWFactory: env.factory, Outbox: env.outbox}
		return h.Handle(ctx, cmd)
	}

	t.Run("sweeps siblings, closes the request and opens a chat", func(t *testing.T) {
		env := newTestEnv(t)
		request := env.seedRequest(t, "req-1", "buyer-1")
		env.seedOffer(t, "off-win", "req-1", "seller-1", 250000_00)
		env.seedOffer(t, "off-lose", "req-1", "seller-2", 260000_00)
		rejected := env.seedOffer(t, "off-rejected", "req-1", "seller-3", 280000_00)
		if err := rejected.Reject(domainoffer.ReasonPriceTooHigh, "", time.Now()); err != nil {
			t.Fatalf("Reject() error = %v", err)
		}
		unit := env.unit(t)
		if err := unit.Offers().Save(ctx, rejected); err != nil {
			t.Fatalf("save rejected offer error = %v", err)
		}

		res, err := accept(env, AcceptOfferCommand{OfferID: "off-win", ActorID: "buyer-1"})
		if err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		if res.FinalizedOffers != 1 {
			t.Fatalf("finalized = %d, want 1", res.FinalizedOffers)
		}
		if res.ChatError != "" || res.ChatID == "" {
			t.Fatalf("chat result = %+v, want an open chat", res)
		}

		if got := env.loadOffer(t, "off-win"); got.Status != domainoffer.StatusAccepted {
			t.Fatalf("winner status = %s", got.Status)
		}
		if got := env.loadOffer(t, "off-lose"); got.Status != domainoffer.StatusFinalized {
			t.Fatalf("sibling status = %s, want finalized", got.Status)
		}
		if got := env.loadOffer(t, "off-rejected"); got.Status != domainoffer.StatusRejected {
			t.Fatalf("rejected sibling status = %s, want rejected untouched", got.Status)
		}

		reloaded, err := env.requests.ByID(ctx, request.ID)
		if err != nil {
			t.Fatalf("reload request error = %v", err)
		}
		if reloaded.Status != domainbuyrequest.StatusClosed {
			t.Fatalf("request status = %s, want closed", reloaded.Status)
		}

		thread, err := env.chats.FindByTriple(ctx, request.ID, "buyer-1", "seller-1")
		if err != nil {
			t.Fatalf("FindByTriple() error = %v", err)
		}
		if string(thread.ID) != res.ChatID {
			t.Fatalf("chat id = %s, result said %s", thread.ID, res.ChatID)
		}
	})

	t.Run("only the request owner may accept", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedRequest(t, "req-1", "buyer-1")
		env.seedOffer(t, "off-1", "req-1", "seller-1", 250000_00)
		if _, err := accept(env, AcceptOfferCommand{OfferID: "off-1", ActorID: "seller-2"}); !errors.Is(err, domainbuyrequest.ErrNotOwner) {
			t.Fatalf("Handle() error = %v, want %v", err, domainbuyrequest.ErrNotOwner)
		}
	})

	t.Run("accepting twice fails on the state guard", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedRequest(t, "req-1", "buyer-1")
		env.seedOffer(t, "off-1", "req-1", "seller-1", 250000_00)
		if _, err := accept(env, AcceptOfferCommand{OfferID: "off-1", ActorID: "buyer-1"}); err != nil {
			t.Fatalf("first accept error = %v", err)
		}
		if _, err := accept(env, AcceptOfferCommand{OfferID: "off-1", ActorID: "buyer-1"}); !errors.Is(err, domainoffer.ErrInvalidState) {
			t.Fatalf("second accept error = %v, want %v", err, domainoffer.ErrInvalidState)
		}
	})

	t.Run("racing accepts of different offers elect one winner", func(t *testing.T) {
		env := newTestEnv(t)
		request := env.seedRequest(t, "req-1", "buyer-1")
		const contenders = 4
		for i := 0; i < contenders; i++ {
			env.seedOffer(t, fmt.Sprintf("off-%d", i), "req-1", fmt.Sprintf("seller-%d", i), int64(250000_00+i))
		}

		// The request close is the arbiter write, so however the goroutines
		// interleave exactly one accept may land.
		start := make(chan struct{})
		errs := make([]error, contenders)
		var wg sync.WaitGroup
		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				h := &AcceptOfferHandler{UoWFactory: env.factory, Outbox: memory.NewOutbox()}
				_, errs[i] = h.Handle(ctx, AcceptOfferCommand{OfferID: fmt.Sprintf("off-%d", i), ActorID: "buyer-1"})
			}(i)
		}
		close(start)
		wg.Wait()

		wins := 0
		for i, err := range errs {
			if err == nil {
				wins++
				continue
			}
			if !errors.Is(err, storage.ErrConcurrentUpdate) &&
				!errors.Is(err, domainbuyrequest.ErrNotActive) &&
				!errors.Is(err, domainoffer.ErrInvalidState) {
				t.Fatalf("loser %d error = %v, want a state conflict", i, err)
			}
		}
		if wins != 1 {
			t.Fatalf("winners = %d, want exactly 1", wins)
		}

		accepted := 0
		for i := 0; i < contenders; i++ {
			switch got := env.loadOffer(t, fmt.Sprintf("off-%d", i)); got.Status {
			case domainoffer.StatusAccepted:
				accepted++
			case domainoffer.StatusFinalized, domainoffer.StatusPending:
			default:
				t.Fatalf("off-%d status = %s", i, got.Status)
			}
		}
		if accepted != 1 {
			t.Fatalf("accepted offers = %d, want exactly 1", accepted)
		}
		reloaded, err := env.requests.ByID(ctx, request.ID)
		if err != nil {
			t.Fatalf("reload request error = %v", err)
		}
		if reloaded.Status != domainbuyrequest.StatusClosed {
			t.Fatalf("request status = %s, want closed", reloaded.Status)
		}
	})

	t.Run("an existing chat for the triple is reused", func(t *testing.T) {
		env := newTestEnv(t)
		request := env.seedRequest(t, "req-1", "buyer-1")
		env.seedOffer(t, "off-1", "req-1", "seller-1", 250000_00)
		existing, err := domainchat.NewChat(domainchat.CreateParams{
			ID:           "chat-existing",
			BuyRequestID: request.ID,
			BuyerID:      "buyer-1",
			SellerID:     "seller-1",
			OfferID:      "off-1",
		})
		if err != nil {
			t.Fatalf("NewChat() error = %v", err)
		}
		existing.ClearEvents()
		unit := env.unit(t)
		if err := unit.Chats().Save(ctx, existing); err != nil {
			t.Fatalf("seed chat save error = %v", err)
		}

		res, err := accept(env, AcceptOfferCommand{OfferID: "off-1", ActorID: "buyer-1"})
		if err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		if res.ChatID != "chat-existing" {
			t.Fatalf("chat id = %s, want the pre-existing chat", res.ChatID)
		}
	})
}

func TestRejectThenCounter(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedRequest(t, "req-1", "buyer-1")
	env.seedOffer(t, "off-1", "req-1", "seller-1", 250000_00)

	rejectHandler := &RejectOfferHandler{UoWFactory: env.factory, Outbox: env.outbox}
	counterHandler := &CounterOfferHandler{UoWFactory: env.factory, Outbox: env.outbox}

	t.Run("only the owner rejects", func(t *testing.T) {
		cmd := RejectOfferCommand{OfferID: "off-1", ActorID: "seller-1", Reason: string(domainoffer.ReasonPriceTooHigh)}
		if _, err := rejectHandler.Handle(ctx, cmd); !errors.Is(err, domainbuyrequest.ErrNotOwner) {
			t.Fatalf("Handle() error = %v, want %v", err, domainbuyrequest.ErrNotOwner)
		}
	})

	res, err := rejectHandler.Handle(ctx, RejectOfferCommand{
		OfferID: "off-1",
		ActorID: "buyer-1",
		Reason:  string(domainoffer.ReasonOther),
		Detail:  "found it cheaper elsewhere",
	})
	if err != nil {
		t.Fatalf("reject error = %v", err)
	}
	if res.Reason != "found it cheaper elsewhere" {
		t.Fatalf("reason = %q", res.Reason)
	}

	t.Run("only the seller counters", func(t *testing.T) {
		cmd := CounterOfferCommand{
			OfferID:    "off-1",
			ActorID:    "buyer-1",
			Title:      "Trek Marlin 7",
			PriceCents: 230000_00,
			Images:     []string{"https://cdn.example/bike.jpg"},
			Delivery:   string(domainoffer.DeliveryInPerson),
		}
		if _, err := counterHandler.Handle(ctx, cmd); !errors.Is(err, domainoffer.ErrNotSeller) {
			t.Fatalf("Handle() error = %v, want %v", err, domainoffer.ErrNotSeller)
		}
	})

	counterRes, err := counterHandler.Handle(ctx, CounterOfferCommand{
		OfferID:    "off-1",
		ActorID:    "seller-1",
		Title:      "Trek Marlin 7, tuned",
		PriceCents: 230000_00,
		Images:     []string{"https://cdn.example/bike.jpg"},
		Delivery:   string(domainoffer.DeliveryInPerson),
	})
	if err != nil {
		t.Fatalf("counter error = %v", err)
	}
	if counterRes.PriceCents != 230000_00 || counterRes.HistoryLength != 2 {
		t.Fatalf("counter result = %+v, want price 23000000 and two ledger entries", counterRes)
	}

	stored := env.loadOffer(t, "off-1")
	if stored.Status != domainoffer.StatusPending {
		t.Fatalf("status = %s, want pending again", stored.Status)
	}
	if stored.RejectionReason != "" {
		t.Fatalf("rejection reason not cleared: %q", stored.RejectionReason)
	}
	if stored.PriceHistory[1].PriceCents != 250000_00 || stored.PriceHistory[1].Type != domainoffer.HistoryRejected {
		t.Fatalf("ledger entry = %+v, want the replaced 25000000", stored.PriceHistory[1])
	}
}
