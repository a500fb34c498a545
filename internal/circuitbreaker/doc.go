// Package circuitbreaker implements the circuit breaker pattern as a
// resilience gate in front of unreliable downstream calls.
//
// A circuit breaker prevents cascading failures by rejecting calls to a
// dependency that keeps failing. It has three states:
//
//   - CLOSED: Normal operation, calls pass through
//   - OPEN: Dependency failing, calls rejected immediately
//   - HALF-OPEN: A bounded number of trial calls probe for recovery
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(circuitbreaker.Defaults())
//	cb, _ := registry.GetOrCreate("payment-service", nil)
//
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return client.Charge(ctx, amount)
//	})
//	if circuitbreaker.IsOpen(err) {
//	    // Fail fast, the dependency is known to be down.
//	}
package circuitbreaker
