// Package completion wraps the text model that turns a composed instruction
// into source code.
package completion

import (
	"context"
	"errors"
)

var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Completer performs one synchronous completion call.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a plain function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
