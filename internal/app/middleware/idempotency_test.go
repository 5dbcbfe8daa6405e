package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/locomproapp/locompro/internal/app/commands"
	"github.com/locomproapp/locompro/internal/app/middleware"
	"github.com/locomproapp/locompro/internal/infra/storage/memory"
)

type pingCommand struct {
	Value           string
	IdempotencyKeyV string
}

func (c pingCommand) Key() string            { return "test.ping" }
func (c pingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c pingCommand) ResultPrototype() any   { return &pingResult{} }

type pingResult struct {
	Echo string `json:"echo"`
}

type pingHandler struct {
	calls int
	fail  error
}

func (h *pingHandler) Handle(ctx context.Context, cmd pingCommand) (*pingResult, error) {
	h.calls++
	if h.fail != nil {
		return nil, h.fail
	}
	return &pingResult{Echo: cmd.Value}, nil
}

func newIdempotentBus(handler *pingHandler) commands.Bus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, pingCommand{}.Key(), handler)
	return middleware.ChainCommands(bus, middleware.Idempotency(memory.NewIdempotencyStore(), nil))
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	ctx := context.Background()
	handler := &pingHandler{}
	bus := newIdempotentBus(handler)

	first, err := bus.Dispatch(ctx, pingCommand{Value: "hello", IdempotencyKeyV: "key-1"})
	if err != nil {
		t.Fatalf("first Dispatch() error = %v", err)
	}
	// The retry carries a different payload; the stored outcome must win.
	second, err := bus.Dispatch(ctx, pingCommand{Value: "changed", IdempotencyKeyV: "key-1"})
	if err != nil {
		t.Fatalf("second Dispatch() error = %v", err)
	}
	if handler.calls != 1 {
		t.Fatalf("handler calls = %d, want 1", handler.calls)
	}
	if first.(*pingResult).Echo != "hello" || second.(*pingResult).Echo != "hello" {
		t.Fatalf("results = %v / %v, want both echoing the original", first, second)
	}
}

func TestIdempotencySkipsCommandsWithoutKey(t *testing.T) {
	ctx := context.Background()
	handler := &pingHandler{}
	bus := newIdempotentBus(handler)

	for i := 0; i < 2; i++ {
		if _, err := bus.Dispatch(ctx, pingCommand{Value: "hello"}); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
	}
	if handler.calls != 2 {
		t.Fatalf("handler calls = %d, want 2", handler.calls)
	}
}

func TestIdempotencyReplaysFailures(t *testing.T) {
	ctx := context.Background()
	handler := &pingHandler{fail: errors.New("boom")}
	bus := newIdempotentBus(handler)

	if _, err := bus.Dispatch(ctx, pingCommand{IdempotencyKeyV: "key-1"}); err == nil {
		t.Fatal("first Dispatch() expected error")
	}
	handler.fail = nil
	if _, err := bus.Dispatch(ctx, pingCommand{IdempotencyKeyV: "key-1"}); err == nil || err.Error() != "boom" {
		t.Fatalf("second Dispatch() error = %v, want replayed boom", err)
	}
	if handler.calls != 1 {
		t.Fatalf("handler calls = %d, want 1", handler.calls)
	}
}

func TestIdempotencyDistinctKeysRunIndependently(t *testing.T) {
	ctx := context.Background()
	handler := &pingHandler{}
	bus := newIdempotentBus(handler)

	if _, err := bus.Dispatch(ctx, pingCommand{Value: "a", IdempotencyKeyV: "key-a"}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	res, err := bus.Dispatch(ctx, pingCommand{Value: "b", IdempotencyKeyV: "key-b"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if handler.calls != 2 {
		t.Fatalf("handler calls = %d, want 2", handler.calls)
	}
	if res.(*pingResult).Echo != "b" {
		t.Fatalf("result = %v, want fresh execution", res)
	}
}
