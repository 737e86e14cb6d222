package scanner

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hksamms/samms-services/internal/attendance"
)

type State int

const (
	StateIdle State = iota
	StateProcessing
	StateCooldown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateCooldown:
		return "cooldown"
	}
	return "unknown"
}

type Outcome int

const (
	OutcomeAccepted  Outcome = iota // record submitted, cooldown started
	OutcomeBusy                     // processing or cooling down
	OutcomeDebounced                // too close to the previous accepted frame
	OutcomeRejected                 // payload did not validate
	OutcomeClosed                   // controller torn down
)

const (
	msgInvalidTitle = "Invalid QR"
	msgInvalid      = "This QR code is not valid or unreadable."
	msgRecorded     = "Attendance Recorded"
	msgFailedTitle  = "Failed"
	msgFailed       = "Something went wrong"
)

type Config struct {
	// Debounce is the minimum spacing between accepted frames. Zero disables
	// the guard for sources that deliver at human cadence.
	Debounce time.Duration
	Cooldown time.Duration
	// RequestTimeout bounds each check-in request.
	RequestTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Debounce:       500 * time.Millisecond,
		Cooldown:       10 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// Snapshot is the displayable state of a scan session.
type Snapshot struct {
	State           State
	Locked          bool
	Saving          bool
	LastProcessedAt time.Time
	LastPayload     *attendance.QRPayload
	// Seq grows with every state change. Listeners run outside the lock and
	// may see snapshots out of order; the highest Seq is the current one.
	Seq uint64
}

// Controller is one scan session. It turns decoded frames into at most one
// check-in per cooldown window.
type Controller struct {
	cfg       Config
	clock     Clock
	submitter Submitter
	reporter  Reporter
	randn     func(int) int

	mu              sync.Mutex
	state           State
	saving          bool
	lastProcessedAt time.Time
	lastPayload     *attendance.QRPayload
	cooldown        Timer
	gen             uint64
	closed          bool
	seq             uint64
	onChange        func(Snapshot)
}

type ControllerOption func(*Controller)

func WithClock(c Clock) ControllerOption {
	return func(ctl *Controller) { ctl.clock = c }
}

func WithRand(randn func(int) int) ControllerOption {
	return func(ctl *Controller) { ctl.randn = randn }
}

// WithStateListener is called after every state change, outside the lock.
func WithStateListener(f func(Snapshot)) ControllerOption {
	return func(ctl *Controller) { ctl.onChange = f }
}

func NewController(cfg Config, sub Submitter, rep Reporter, opts ...ControllerOption) *Controller {
	if rep == nil {
		rep = LogReporter{}
	}
	c := &Controller{
		cfg:       cfg,
		clock:     SystemClock,
		submitter: sub,
		reporter:  rep,
		randn:     rand.Intn,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:           c.state,
		Locked:          c.state != StateIdle,
		Saving:          c.saving,
		LastProcessedAt: c.lastProcessedAt,
		LastPayload:     c.lastPayload,
		Seq:             c.seq,
	}
}

func (c *Controller) changedLocked() Snapshot {
	c.seq++
	return c.snapshotLocked()
}

// HandleFrame processes one decoded frame. The busy and debounce guards are
// checked and the lock is taken before any blocking work starts.
func (c *Controller) HandleFrame(ctx context.Context, raw string) Outcome {
	now := c.clock.Now()

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return OutcomeClosed
	case c.state != StateIdle || c.saving:
		c.mu.Unlock()
		return OutcomeBusy
	case c.cfg.Debounce > 0 && !c.lastProcessedAt.IsZero() && now.Sub(c.lastProcessedAt) < c.cfg.Debounce:
		c.mu.Unlock()
		return OutcomeDebounced
	}
	c.lastProcessedAt = now
	c.state = StateProcessing
	c.saving = true
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)

	payload, err := attendance.ParseQRPayload(raw)
	if err != nil {
		log.Debugf("rejected frame %q: %v", raw, err)
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return OutcomeRejected
		}
		c.state = StateIdle
		c.saving = false
		snap = c.changedLocked()
		c.mu.Unlock()
		c.notify(snap)
		c.reporter.Report(Alert{Kind: AlertInvalid, Title: msgInvalidTitle, Message: msgInvalid})
		return OutcomeRejected
	}

	c.mu.Lock()
	c.lastPayload = &payload
	c.mu.Unlock()

	rec := attendance.NewCheckRecord(payload, now, c.randn)
	alert := c.submit(ctx, rec)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return OutcomeAccepted
	}
	c.saving = false
	c.state = StateCooldown
	c.gen++
	gen := c.gen
	c.cooldown = c.clock.AfterFunc(c.cfg.Cooldown, func() { c.release(gen) })
	snap = c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)

	c.reporter.Report(alert)
	return OutcomeAccepted
}

// submit posts the record. Cancelling ctx does not abort a request that has
// started; RequestTimeout bounds it instead.
func (c *Controller) submit(ctx context.Context, rec attendance.CheckRecord) Alert {
	ctx = context.WithoutCancel(ctx)
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	res, err := c.submitter.Submit(ctx, rec)
	switch {
	case err != nil:
		log.Errorf("check-in for %s failed: %v", rec.StudentID, err)
		return Alert{Kind: AlertFailure, Title: msgFailedTitle, Message: msgFailed}
	case !res.OK:
		msg := res.Message
		if msg == "" {
			msg = msgFailed
		}
		return Alert{Kind: AlertFailure, Title: msgFailedTitle, Message: msg}
	}
	if attendance.IsSynthetic(rec.StudentID) {
		log.Warnf("check-in stored with placeholder id %s", rec.StudentID)
	}
	return Alert{Kind: AlertSuccess, Title: msgRecorded, Message: rec.StudentName + " marked for check."}
}

func (c *Controller) release(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen || c.state != StateCooldown {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.lastPayload = nil
	c.lastProcessedAt = time.Time{}
	c.cooldown = nil
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Controller) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

// Close tears the session down. Pending timers are stopped and the result of
// an in-flight request is discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.cooldown != nil {
		c.cooldown.Stop()
		c.cooldown = nil
	}
}

// Run feeds frames from src until the source ends or ctx is done.
func (c *Controller) Run(ctx context.Context, src FrameSource) error {
	for {
		raw, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if c.HandleFrame(ctx, raw) == OutcomeClosed {
			return nil
		}
	}
}
