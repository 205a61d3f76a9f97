package monitor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"stockmon/internal/config"
	"stockmon/internal/notify"
	logx "stockmon/pkg/logx"
)

// Run executes the monitor in its configured mode and blocks until the mode
// completes or ctx is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	switch m.settings.Mode {
	case config.ModeSingleShot, "":
		_, err := m.RunCycle(ctx)
		return err
	case config.ModeBounded:
		return m.runBounded(ctx)
	case config.ModeUnbounded:
		return m.runUnbounded(ctx)
	default:
		return fmt.Errorf("unknown run mode %q", m.settings.Mode)
	}
}

// runBounded polls on the interval until the configured duration elapses.
// It announces the start before the first cycle and a summary at the end.
func (m *Monitor) runBounded(ctx context.Context) error {
	m.announce(ctx, "Stock monitor started",
		fmt.Sprintf("Watching %d product(s) every %s for %s.",
			len(m.settings.Products), m.settings.Interval, m.settings.Duration))

	var cycles, notified atomic.Int64
	stats := func(r CycleReport, err error) {
		cycles.Add(1)
		if err == nil && r.Notified {
			notified.Add(1)
		}
	}

	deadline, cancel := context.WithTimeout(ctx, m.settings.Duration)
	defer cancel()

	if err := m.loop(deadline, stats); err != nil {
		m.announceFailure(ctx, err)
		return err
	}

	// Duration elapsed (or the caller canceled): a normal ending.
	m.announce(ctx, "Stock monitor finished",
		fmt.Sprintf("Ran %d cycle(s); %d sent a notification.", cycles.Load(), notified.Load()))
	return nil
}

// runUnbounded polls until ctx is canceled or a cycle fails fatally.
// Under systemd it participates in sd_notify readiness and watchdog.
func (m *Monitor) runUnbounded(ctx context.Context) error {
	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		m.log.Warn("sd_notify failed", logx.Err(err))
	} else if sent {
		m.log.Debug("sd_notify ready")
	}
	defer func() { _, _ = daemon.SdNotify(false, daemon.SdNotifyStopping) }()

	kick := func(CycleReport, error) {
		_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
	}

	err := m.loop(ctx, kick)
	if err != nil && ctx.Err() == nil {
		m.announceFailure(context.Background(), err)
		return err
	}
	if ctx.Err() != nil {
		// Best effort: the run context is already gone.
		m.announce(context.Background(), "Stock monitor stopping",
			"Shutdown signal received.")
	}
	return nil
}

// loop runs one cycle immediately, then keeps polling on the interval until
// ctx ends. A busy gate skips a tick while the previous cycle still runs, so
// cycles never overlap. The first cycle error ends the loop.
func (m *Monitor) loop(ctx context.Context, after func(CycleReport, error)) error {
	fail := make(chan error, 1)
	var busy atomic.Bool

	tick := func() {
		if !busy.CompareAndSwap(false, true) {
			m.log.Warn("cycle still running; skipping tick")
			return
		}
		defer busy.Store(false)
		if ctx.Err() != nil {
			return
		}
		r, err := m.RunCycle(ctx)
		if after != nil {
			after(r, err)
		}
		if err != nil {
			select {
			case fail <- err:
			default:
			}
		}
	}

	tick()
	select {
	case err := <-fail:
		return err
	case <-ctx.Done():
		return nil
	default:
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))
	spec := fmt.Sprintf("@every %s", m.settings.Interval)
	if _, err := c.AddJob(spec, cron.FuncJob(tick)); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	select {
	case err := <-fail:
		return err
	case <-ctx.Done():
		return nil
	}
}

// announce sends an operational (non-stock) notification, best effort.
func (m *Monitor) announce(ctx context.Context, title, body string) {
	if m.dispatcher.Channels() == 0 {
		return
	}
	sendCtx, cancel := context.WithTimeout(withoutCancelIfDone(ctx), 30*time.Second)
	defer cancel()
	m.dispatcher.Dispatch(sendCtx, notify.Message{Title: title, Body: body})
}

func (m *Monitor) announceFailure(ctx context.Context, err error) {
	m.log.Error("monitor failed", logx.Err(err))
	m.announce(ctx, "Stock monitor error",
		fmt.Sprintf("Monitoring stopped on an unrecoverable error:\n%v", err))
}

// withoutCancelIfDone lets shutdown announcements go out even when the run
// context was what triggered them.
func withoutCancelIfDone(ctx context.Context) context.Context {
	if ctx.Err() != nil {
		return context.WithoutCancel(ctx)
	}
	return ctx
}
