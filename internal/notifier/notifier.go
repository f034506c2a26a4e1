// Package notifier delivers formatted messages through the chat transport
// with rate limiting and bounded retry.
package notifier

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	kit "deadlinebot/internal/transport"
	logx "deadlinebot/pkg/logx"
)

// Config controls outbound delivery.
type Config struct {
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
}

// Dispatcher sends messages synchronously: the caller learns whether the
// send ultimately succeeded, which the poll engine needs to decide whether
// a reminder counts as sent for ledger purposes.
type Dispatcher struct {
	cfg     Config
	adapter kit.Adapter
	target  kit.ChatTarget
	log     logx.Logger
	limiter *rate.Limiter
}

func New(cfg Config, adapter kit.Adapter, target kit.ChatTarget, log logx.Logger) *Dispatcher {
	// Defaults
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		cfg:     cfg,
		adapter: adapter,
		target:  target,
		log:     log,
		// Token bucket: burst = rate per sec, so short spikes don't block too hard.
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Send delivers text to the paired channel, retrying transient failures
// with exponential backoff up to the attempt cap. On exhaustion the last
// error is returned; the message is dropped, never requeued.
func (d *Dispatcher) Send(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	maxAttempts := 1 + d.cfg.RetryMax

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Rate limit (honor cancellation).
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}

		// Bound per-send call. Keep tight to avoid hanging the engine loop.
		callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := d.adapter.SendText(callCtx, d.target, text, &kit.SendOptions{DisablePreview: true})
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		d.log.Debug("send failed", logx.Err(err), logx.Int("attempt", attempt), logx.Int("max", maxAttempts))

		if attempt >= maxAttempts {
			break
		}

		delay := d.retryDelay(attempt)
		if delay <= 0 {
			continue
		}
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			if !t.Stop() {
				<-t.C
			}
			return ctx.Err()
		}
	}

	d.log.Warn("send retries exhausted; message dropped", logx.Err(lastErr), logx.Int("attempts", maxAttempts))
	return fmt.Errorf("dispatch after %d attempts: %w", maxAttempts, lastErr)
}

func (d *Dispatcher) retryDelay(attempt int) time.Duration {
	// attempt starts at 1 (first attempt), delay is for the NEXT attempt.
	base := d.cfg.RetryBase
	maxD := d.cfg.RetryMaxDelay

	// Exponential backoff: base * 2^(attempt-1)
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxD {
			delay = maxD
			break
		}
	}
	// Jitter 0.7..1.3
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	j := 0.7 + rng.Float64()*0.6
	delay = time.Duration(float64(delay) * j)
	if delay < 0 {
		return 0
	}
	if delay > maxD {
		delay = maxD
	}
	return delay
}
