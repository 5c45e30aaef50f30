/*
Package resilience provides a circuit breaker used to shed load.

The sandbox runner guards pool admission with a Breaker: when runs keep
timing out waiting for an execution slot, further runs are rejected at once
with ErrCircuitOpen until a cooldown passes and a probe run succeeds.

	breaker := resilience.New("sandbox-pool", resilience.Settings{
		Threshold: 5,
		Cooldown:  10 * time.Second,
		IsFailure: func(err error) bool { return errors.Is(err, sandbox.ErrTimeout) },
	})

	err := breaker.Guard(func() error {
		return pool.Acquire(ctx)
	})

States:

	Closed --[Threshold failures]-> Open --[Cooldown]-> Half-Open --[Probes successes]-> Closed
	                                  ^                     |
	                                  +------[failure]------+
*/
package resilience
