package reminder

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"deadlinebot/internal/canvas"
	"deadlinebot/internal/ledger"
	kit "deadlinebot/internal/transport"
	logx "deadlinebot/pkg/logx"
)

// Sender delivers one outbound message; satisfied by notifier.Dispatcher.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Options fixes the engine's behavior at startup.
type Options struct {
	// Thresholds are reminder lead times, strictly descending.
	Thresholds []time.Duration

	// ChatID is the single paired chat. Inbound messages from any other
	// chat are ignored; 0 disables the filter (tests).
	ChatID int64

	PollInterval time.Duration
	Retention    time.Duration
	Staleness    time.Duration

	// RecordBeforeSend selects the ledger write ordering trade-off:
	// false (default) records after a confirmed send — a crash between
	// send and record can duplicate, but nothing is silently missed;
	// true records first — a failed send is lost, never duplicated.
	RecordBeforeSend bool

	// Digests are cron specs for scheduled digest messages.
	Digests []string
}

// Engine owns the snapshot and the ledger handle. One goroutine (Run)
// consumes ticks, digest triggers, and inbound chat updates from its
// channels, so a tick's fetch/evaluate/dispatch sequence never runs
// concurrently with itself or with command handling.
type Engine struct {
	opts   Options
	log    logx.Logger
	source canvas.Source
	ledger *ledger.Ledger
	sender Sender

	responder Responder

	now func() time.Time

	ticks   chan struct{}
	digests chan struct{}
	updates chan kit.Update

	// tickBusy is set for the duration of handleTick so cron ticks arriving
	// while one is in flight are dropped, not queued behind it.
	tickBusy atomic.Bool

	snap *Snapshot // owned by the Run goroutine
}

func NewEngine(opts Options, source canvas.Source, ldg *ledger.Ledger, sender Sender, log logx.Logger) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Minute
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{
		opts:      opts,
		log:       log,
		source:    source,
		ledger:    ldg,
		sender:    sender,
		responder: Responder{Staleness: opts.Staleness},
		now:       time.Now,
		// A tick is either queued or not: the buffer of one plus the
		// tickBusy flag means a tick arriving while the previous is queued
		// or in flight is skipped entirely rather than piling up.
		ticks:   make(chan struct{}, 1),
		digests: make(chan struct{}, 4),
		updates: make(chan kit.Update, 64),
	}
}

// Updates is the inbound channel the chat adapter forwards into.
func (e *Engine) Updates() chan kit.Update { return e.updates }

// Run drives the engine until ctx is cancelled. The first poll happens
// immediately; subsequent ticks follow the configured interval.
func (e *Engine) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", e.opts.PollInterval), e.enqueueTick); err != nil {
		return fmt.Errorf("schedule poll: %w", err)
	}
	for _, spec := range e.opts.Digests {
		if _, err := c.AddFunc(spec, e.enqueueDigest); err != nil {
			return fmt.Errorf("schedule digest %q: %w", spec, err)
		}
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	e.log.Info("engine started",
		logx.Duration("poll_interval", e.opts.PollInterval),
		logx.Int("thresholds", len(e.opts.Thresholds)),
		logx.Int("digests", len(e.opts.Digests)))

	// Prime the snapshot right away instead of waiting a full interval.
	e.enqueueTick()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.ticks:
			e.tickBusy.Store(true)
			e.handleTick(ctx)
			e.tickBusy.Store(false)
		case <-e.digests:
			e.handleDigest(ctx)
		case up := <-e.updates:
			e.handleUpdate(ctx, up)
		}
	}
}

func (e *Engine) enqueueTick() {
	if e.tickBusy.Load() {
		e.log.Warn("poll tick skipped; previous tick still in flight")
		return
	}
	select {
	case e.ticks <- struct{}{}:
	default:
		e.log.Warn("poll tick skipped; previous tick already queued")
	}
}

func (e *Engine) enqueueDigest() {
	select {
	case e.digests <- struct{}{}:
	default:
	}
}

// handleTick runs one fetch/evaluate/dispatch cycle. A fetch failure
// leaves the previous snapshot and the ledger untouched; the next
// scheduled tick absorbs it.
func (e *Engine) handleTick(ctx context.Context) {
	assignments, err := e.source.FetchUpcoming(ctx)
	if err != nil {
		e.log.Warn("assignment fetch failed; keeping previous snapshot", logx.Err(err))
		return
	}

	// Replace wholesale: no partial merge, no mutation after this point.
	e.snap = &Snapshot{FetchedAt: e.now(), Assignments: assignments}

	now := e.now()
	due := Evaluate(now, e.snap, e.opts.Thresholds, e.ledger.Has)
	for _, d := range due {
		e.fire(ctx, d)
	}

	if evicted := e.ledger.Evict(ctx, now, e.opts.Retention); evicted > 0 {
		e.log.Debug("ledger entries evicted", logx.Int("count", evicted))
	}

	e.log.Debug("poll tick complete",
		logx.Int("assignments", len(assignments)),
		logx.Int("fired", len(due)),
		logx.Int("ledger", e.ledger.Len()))
}

// fire dispatches one reminder, committing the ledger entry per the
// configured write ordering.
func (e *Engine) fire(ctx context.Context, d Due) {
	text := formatReminder(d.Assignment, d.Threshold)

	if e.opts.RecordBeforeSend {
		if err := e.ledger.Record(ctx, d.Assignment.ID, d.Threshold, d.Assignment.DueAt); err != nil {
			e.log.Warn("ledger record failed", logx.Err(err), logx.String("assignment", d.Assignment.ID))
		}
		if err := e.sender.Send(ctx, text); err != nil {
			// Recorded but never delivered: lost by policy.
			e.log.Warn("reminder send failed after ledger record; reminder lost",
				logx.Err(err),
				logx.String("assignment", d.Assignment.ID),
				logx.Duration("threshold", d.Threshold))
		}
		return
	}

	if err := e.sender.Send(ctx, text); err != nil {
		// Not recorded: the next tick retries this pair.
		e.log.Warn("reminder send failed; will retry next tick",
			logx.Err(err),
			logx.String("assignment", d.Assignment.ID),
			logx.Duration("threshold", d.Threshold))
		return
	}
	if err := e.ledger.Record(ctx, d.Assignment.ID, d.Threshold, d.Assignment.DueAt); err != nil {
		e.log.Warn("ledger record failed after send", logx.Err(err), logx.String("assignment", d.Assignment.ID))
	}
}

func (e *Engine) handleUpdate(ctx context.Context, up kit.Update) {
	if up.Message == nil {
		return
	}
	// One account/channel pairing: commands from any other chat (DMs,
	// other groups the bot was added to) are dropped, never answered.
	if e.opts.ChatID != 0 && up.Message.ChatID != e.opts.ChatID {
		e.log.Debug("ignoring message from unpaired chat",
			logx.Int64("chat_id", up.Message.ChatID))
		return
	}
	reply, ok := e.responder.Respond(e.now(), up.Message.Text, e.snap)
	if !ok {
		return
	}
	if err := e.sender.Send(ctx, reply); err != nil {
		e.log.Warn("command reply send failed", logx.Err(err), logx.String("text", up.Message.Text))
	}
}

// handleDigest sends the full upcoming list. An empty list suppresses
// the digest entirely rather than announcing nothing.
func (e *Engine) handleDigest(ctx context.Context) {
	now := e.now()
	if e.snap == nil {
		e.log.Debug("digest skipped; no snapshot yet")
		return
	}
	var upcoming []canvas.Assignment
	for _, a := range e.snap.Assignments {
		if a.DueAt.After(now) {
			upcoming = append(upcoming, a)
		}
	}
	if len(upcoming) == 0 {
		e.log.Debug("digest skipped; nothing upcoming")
		return
	}
	if err := e.sender.Send(ctx, formatDigest(upcoming)); err != nil {
		e.log.Warn("digest send failed", logx.Err(err))
	}
}
