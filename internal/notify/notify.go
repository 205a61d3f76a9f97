package notify

import (
	"context"
	"time"

	logx "stockmon/pkg/logx"

	"golang.org/x/time/rate"
)

// Channel is one delivery backend. Implementations do their own transport
// and auth; the dispatcher only cares whether the send succeeded.
type Channel interface {
	Name() string
	Send(ctx context.Context, title, body string) error
}

// Outcome is the per-channel result of one dispatch.
type Outcome struct {
	Channel string
	Err     error
}

// Dispatcher fans one message out to every configured channel.
//
// Channels are attempted independently: a failure is logged and returned,
// never allowed to block the remaining channels. There are no retries
// within a cycle; the next scheduled poll is the retry mechanism.
type Dispatcher struct {
	channels []Channel
	limiter  *rate.Limiter
	log      logx.Logger
}

func NewDispatcher(log logx.Logger, channels ...Channel) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		channels: channels,
		// A burst of transitions must not flood the backends.
		limiter: rate.NewLimiter(rate.Limit(3), 3),
		log:     log,
	}
}

func (d *Dispatcher) Channels() int { return len(d.channels) }

// Dispatch sends the message on every channel and reports each outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, m Message) []Outcome {
	if m.Empty() {
		return nil
	}
	outcomes := make([]Outcome, 0, len(d.channels))
	for _, ch := range d.channels {
		if err := d.limiter.Wait(ctx); err != nil {
			outcomes = append(outcomes, Outcome{Channel: ch.Name(), Err: err})
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := ch.Send(sendCtx, m.Title, m.Body)
		cancel()
		if err != nil {
			d.log.Warn("channel delivery failed",
				logx.String("channel", ch.Name()), logx.Err(err))
		} else {
			d.log.Info("notification delivered", logx.String("channel", ch.Name()))
		}
		outcomes = append(outcomes, Outcome{Channel: ch.Name(), Err: err})
	}
	return outcomes
}

// Delivered reports whether at least one channel accepted the message.
func Delivered(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Err == nil {
			return true
		}
	}
	return false
}
