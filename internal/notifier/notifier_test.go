package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	kit "deadlinebot/internal/transport"
	logx "deadlinebot/pkg/logx"
)

// fakeAdapter fails the first failN sends, then succeeds.
type fakeAdapter struct {
	failN int
	calls int
	sent  []string
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                         { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) error {
	f.calls++
	if f.calls <= f.failN {
		return errors.New("transient transport failure")
	}
	f.sent = append(f.sent, text)
	return nil
}

func testConfig() Config {
	return Config{
		RatePerSec:    1000,
		RetryMax:      2,
		RetryBase:     time.Millisecond,
		RetryMaxDelay: 5 * time.Millisecond,
	}
}

func TestSendRetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{failN: 2}
	d := New(testConfig(), ad, kit.ChatTarget{ChatID: 1}, logx.Nop())

	if err := d.Send(context.Background(), "reminder"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ad.calls != 3 {
		t.Fatalf("calls = %d, want 3 (two failures + success)", ad.calls)
	}
	if len(ad.sent) != 1 || ad.sent[0] != "reminder" {
		t.Fatalf("sent = %v", ad.sent)
	}
}

func TestSendExhaustionReturnsError(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{failN: 100}
	d := New(testConfig(), ad, kit.ChatTarget{ChatID: 1}, logx.Nop())

	err := d.Send(context.Background(), "reminder")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	// RetryMax=2 means 3 attempts total.
	if ad.calls != 3 {
		t.Fatalf("calls = %d, want 3", ad.calls)
	}
}

func TestSendEmptyIsNoop(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	d := New(testConfig(), ad, kit.ChatTarget{ChatID: 1}, logx.Nop())
	if err := d.Send(context.Background(), ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ad.calls != 0 {
		t.Fatalf("calls = %d, want 0", ad.calls)
	}
}

func TestSendHonorsCancellation(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{failN: 100}
	cfg := testConfig()
	cfg.RetryBase = time.Minute // force a long backoff wait
	cfg.RetryMaxDelay = time.Minute
	d := New(cfg, ad, kit.ChatTarget{ChatID: 1}, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := d.Send(ctx, "reminder")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
