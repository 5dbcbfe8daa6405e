package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/locomproapp/locompro/internal/app/commands"
	"github.com/locomproapp/locompro/internal/app/middleware"
)

type guardedCommand struct {
	Target string
}

func (c guardedCommand) Key() string { return "test.guarded" }

func (c guardedCommand) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("%w: target", middleware.ErrMissingField)
	}
	return nil
}

type guardedHandler struct {
	calls int
}

func (h *guardedHandler) Handle(ctx context.Context, cmd guardedCommand) (*pingResult, error) {
	h.calls++
	return &pingResult{Echo: cmd.Target}, nil
}

func TestValidationRejectsBeforeHandler(t *testing.T) {
	handler := &guardedHandler{}
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, guardedCommand{}.Key(), handler)
	chained := middleware.ChainCommands(bus, middleware.Validation(middleware.SelfValidator{}))

	_, err := chained.Dispatch(context.Background(), guardedCommand{})
	if !errors.Is(err, middleware.ErrMissingField) {
		t.Fatalf("Dispatch() error = %v, want ErrMissingField", err)
	}
	if handler.calls != 0 {
		t.Fatalf("handler calls = %d, want 0", handler.calls)
	}

	res, err := chained.Dispatch(context.Background(), guardedCommand{Target: "ok"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if res.(*pingResult).Echo != "ok" {
		t.Fatalf("Echo = %q, want %q", res.(*pingResult).Echo, "ok")
	}
	if handler.calls != 1 {
		t.Fatalf("handler calls = %d, want 1", handler.calls)
	}
}

func TestValidationPassesThroughPlainCommands(t *testing.T) {
	handler := &pingHandler{}
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, pingCommand{}.Key(), handler)
	chained := middleware.ChainCommands(bus, middleware.Validation(middleware.SelfValidator{}))

	if _, err := chained.Dispatch(context.Background(), pingCommand{Value: "plain"}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if handler.calls != 1 {
		t.Fatalf("handler calls = %d, want 1", handler.calls)
	}
}
