package schedule

import (
	"context"

	"github.com/yanun0323/logs"

	"portwatch/pkg/exception"
)

// Handler executes the remote operation of one call kind.
type Handler interface {
	Execute(ctx context.Context, call Call) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, call Call) error

func (f HandlerFunc) Execute(ctx context.Context, call Call) error {
	return f(ctx, call)
}

// Task builds a handler from a typed fetch and its success callback.
//
// A payload failure is logged and the callback receives the zero value, the
// scheduler keeps running. Any other failure is returned and halts it.
func Task[T any](name string, fetch func(context.Context) (T, error), onSuccess func(context.Context, T)) HandlerFunc {
	return func(ctx context.Context, _ Call) error {
		result, err := fetch(ctx)
		if err != nil {
			if !exception.IsParse(err) {
				return err
			}
			logs.Errorf("%s: drop malformed response, err: %+v", name, err)
			var zero T
			result = zero
		}
		if onSuccess != nil {
			onSuccess(ctx, result)
		}
		return nil
	}
}
