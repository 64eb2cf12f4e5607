package parallel

const defaultWorkerCap = 16

// Config controls worker pool sizing, fail-fast behavior, and the shared
// cost budget for one Executor.Run call.
type Config struct {
	// MaxWorkers is the exact worker pool size. 0 auto-detects
	// min(NumCPU*2, WorkerCap, task count).
	MaxWorkers int `json:"max_workers"`
	// WorkerCap bounds auto-detection.
	WorkerCap int `json:"worker_cap"`
	// FailFastNil distinguishes unset (default true) from explicit false.
	FailFastNil *bool `json:"fail_fast,omitempty"`
	// TotalBudgetUSD, if set, is a shared ceiling across every task in
	// the batch. Once spent reaches it, not-yet-admitted tasks are
	// denied with ErrBudgetExceeded rather than run.
	TotalBudgetUSD *float64 `json:"total_budget_usd,omitempty"`
}

// FailFast reports the configured fail-fast policy, defaulting to true.
func (c *Config) FailFast() bool {
	if c.FailFastNil == nil {
		return true
	}
	return *c.FailFastNil
}

// DefaultConfig returns auto-detected workers, a 16-worker cap, and
// fail-fast enabled.
func DefaultConfig() Config {
	failFast := true
	return Config{
		WorkerCap:   defaultWorkerCap,
		FailFastNil: &failFast,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.MaxWorkers > 0 {
		c.MaxWorkers = source.MaxWorkers
	}
	if source.WorkerCap > 0 {
		c.WorkerCap = source.WorkerCap
	}
	if source.FailFastNil != nil {
		c.FailFastNil = source.FailFastNil
	}
	if source.TotalBudgetUSD != nil {
		c.TotalBudgetUSD = source.TotalBudgetUSD
	}
}
