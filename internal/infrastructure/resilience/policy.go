package resilience

import "time"

// Config holds the executor-wide defaults. Breaker settings apply to every
// operation; the retry fields form the default RetryPolicy.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// RetryPolicy is the retry schedule of a single operation.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// RetryPolicy returns the default schedule described by c.
func (c Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    c.RetryMaxAttempts,
		InitialBackoff: c.RetryInitialBackoff,
		MaxBackoff:     c.RetryMaxBackoff,
		Multiplier:     c.RetryMultiplier,
	}
}

// Waits lists the backoff slept after each failed attempt except the last.
func (p RetryPolicy) Waits() []time.Duration {
	p = p.normalize(DefaultConfig().RetryPolicy())
	waits := make([]time.Duration, 0, p.MaxAttempts-1)
	backoff := p.InitialBackoff
	for i := 1; i < p.MaxAttempts; i++ {
		waits = append(waits, min(backoff, p.MaxBackoff))
		backoff = min(time.Duration(float64(backoff)*p.Multiplier), p.MaxBackoff)
	}
	return waits
}

// FitBudget trims p so its total backoff stays within half of budget, leaving
// the other half for the calls themselves. At least one attempt always remains.
// A non-positive budget returns p unchanged.
func (p RetryPolicy) FitBudget(budget time.Duration) RetryPolicy {
	if budget <= 0 {
		return p
	}
	p = p.normalize(DefaultConfig().RetryPolicy())
	allowance := budget / 2
	if p.MaxBackoff > allowance/2 {
		p.MaxBackoff = max(allowance/2, time.Millisecond)
		p.InitialBackoff = min(p.InitialBackoff, p.MaxBackoff)
	}

	attempts := 1
	var spent time.Duration
	for _, wait := range p.Waits() {
		if spent+wait > allowance {
			break
		}
		spent += wait
		attempts++
	}
	p.MaxAttempts = attempts
	return p
}

func (p RetryPolicy) normalize(def RetryPolicy) RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	p.MaxBackoff = max(p.MaxBackoff, p.InitialBackoff)
	if p.Multiplier < 1.0 {
		p.Multiplier = def.Multiplier
	}
	return p
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	retry := c.RetryPolicy().normalize(def.RetryPolicy())
	out.RetryMaxAttempts = retry.MaxAttempts
	out.RetryInitialBackoff = retry.InitialBackoff
	out.RetryMaxBackoff = retry.MaxBackoff
	out.RetryMultiplier = retry.Multiplier

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	return out
}
