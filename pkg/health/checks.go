package health

import (
	"context"
	"runtime"
)

// Pinger is anything that can check its connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck is unhealthy when p cannot be reached.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) Check {
		if err := p.Ping(ctx); err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}
		return Check{Status: StatusHealthy, Message: "Connected"}
	}
}

// GraphStoreCheck pings the graph store and reports its size.
func GraphStoreCheck(p Pinger, counts func(ctx context.Context) (nodes, edges int64, err error)) CheckFunc {
	return func(ctx context.Context) Check {
		check := PingCheck(p)(ctx)
		if check.Status != StatusHealthy || counts == nil {
			return check
		}

		nodes, edges, err := counts(ctx)
		if err != nil {
			return Check{Status: StatusDegraded, Message: "Connected, counts unavailable: " + err.Error()}
		}
		check.Details = map[string]any{"nodes": nodes, "edges": edges}
		return check
	}
}

// QueueCheck is degraded once the pending job count reaches capacity.
func QueueCheck(pending func() int, capacity int) CheckFunc {
	return func(context.Context) Check {
		n := pending()
		check := Check{
			Status:  StatusHealthy,
			Message: "Accepting jobs",
			Details: map[string]any{"pending": n, "capacity": capacity},
		}
		if capacity > 0 && n >= capacity {
			check.Status = StatusDegraded
			check.Message = "Job queue saturated"
		}
		return check
	}
}

// MemoryCheck reports heap usage from the runtime.
func MemoryCheck() CheckFunc {
	return func(context.Context) Check {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		check := Check{
			Status:  StatusHealthy,
			Message: "Memory usage normal",
			Details: map[string]any{
				"alloc_bytes": m.Alloc,
				"sys_bytes":   m.Sys,
				"goroutines":  runtime.NumGoroutine(),
			},
		}
		if m.Sys > 0 && float64(m.Alloc)/float64(m.Sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		}
		return check
	}
}
