package circuitbreaker

import "context"

// Run executes fn under breaker protection and returns its result. This is
// a convenience wrapper for work that returns a value.
func Run[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	return result, err
}
