package middleware

import (
	"context"
	"errors"

	"github.com/locomproapp/locompro/internal/app/commands"
	"github.com/locomproapp/locompro/internal/app/queries"
)

// ErrMissingField is wrapped by command Validate methods when a required
// field is empty, so the HTTP layer can map it uniformly.
var ErrMissingField = errors.New("required field missing")

type Validator interface {
	Validate(ctx context.Context, message any) error
}

// SelfValidating is implemented by commands that can check their own
// structural preconditions before any handler or storage work runs.
type SelfValidating interface {
	Validate() error
}

// SelfValidator runs the message's own Validate method when it has one.
// Messages without one pass through untouched.
type SelfValidator struct{}

func (SelfValidator) Validate(_ context.Context, message any) error {
	if sv, ok := message.(SelfValidating); ok {
		return sv.Validate()
	}
	return nil
}

func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := v.Validate(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := v.Validate(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
