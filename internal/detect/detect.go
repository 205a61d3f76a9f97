package detect

import (
	"time"

	"stockmon/internal/stockapi"
	"stockmon/internal/storage"
	logx "stockmon/pkg/logx"
)

// ProductSpec is the static description of one watched product.
// Immutable for the process lifetime; loaded once at startup.
type ProductSpec struct {
	ID   string
	Name string
	// MinStock is the quantity that counts as "in stock". Zero means 1.
	// Listings prone to single-unit test entries use a higher bar.
	MinStock int
}

// Threshold returns the effective minimum in-stock quantity.
func (p ProductSpec) Threshold() int {
	if p.MinStock <= 0 {
		return 1
	}
	return p.MinStock
}

// Kind classifies the change between two consecutive readings.
type Kind int

const (
	Unchanged Kind = iota
	FirstObservationInStock
	BecameInStock
	BecameOutOfStock
	ThresholdCrossedUp
	ThresholdCrossedDown
)

func (k Kind) String() string {
	switch k {
	case FirstObservationInStock:
		return "first-observation-in-stock"
	case BecameInStock:
		return "became-in-stock"
	case BecameOutOfStock:
		return "became-out-of-stock"
	case ThresholdCrossedUp:
		return "threshold-crossed-up"
	case ThresholdCrossedDown:
		return "threshold-crossed-down"
	default:
		return "unchanged"
	}
}

// Transition is the outcome of classifying one reading.
type Transition struct {
	Kind      Kind
	NewStock  int
	Threshold int
}

// GainedStock reports whether this is an in-stock style event, the only
// class subject to the notification suppression window.
func (t Transition) GainedStock() bool {
	switch t.Kind {
	case FirstObservationInStock, BecameInStock, ThresholdCrossedUp:
		return true
	default:
		return false
	}
}

// Notifiable reports whether the transition warrants an alert at all.
func (t Transition) Notifiable() bool { return t.Kind != Unchanged }

// Detector compares fresh readings against stored state.
//
// It is the only component that mutates stock state, and it never does so
// on a fetch error: a timeout must not masquerade as a stock-out.
type Detector struct {
	store storage.Store
	log   logx.Logger
}

func New(store storage.Store, log logx.Logger) *Detector {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Detector{store: store, log: log}
}

// Classify decides what, if anything, changed for the product and records
// the reading as the new last-known state.
func (d *Detector) Classify(spec ProductSpec, reading *stockapi.Reading) Transition {
	threshold := spec.Threshold()
	prior, seen := d.store.GetState(spec.ID)

	t := Transition{Kind: Unchanged, NewStock: reading.TotalStock, Threshold: threshold}

	hasStock := reading.TotalStock >= threshold
	switch {
	case !seen:
		// An uneventful first run stays quiet; only an immediately
		// in-stock product is worth announcing.
		if hasStock {
			t.Kind = FirstObservationInStock
		}
	case (prior >= threshold) == hasStock:
		// no change across the threshold
	case hasStock:
		if threshold > 1 {
			t.Kind = ThresholdCrossedUp
		} else {
			t.Kind = BecameInStock
		}
	default:
		if threshold > 1 {
			t.Kind = ThresholdCrossedDown
		} else {
			t.Kind = BecameOutOfStock
		}
	}

	if err := d.store.SetState(spec.ID, reading.TotalStock); err != nil {
		d.log.Warn("state write failed", logx.String("product", spec.ID), logx.Err(err))
	}

	if t.Kind != Unchanged {
		d.log.Info("stock transition",
			logx.String("product", spec.ID),
			logx.String("kind", t.Kind.String()),
			logx.Int("stock", reading.TotalStock),
			logx.Int("threshold", threshold))
	}
	return t
}

// ShouldNotify applies the suppression window to in-stock events. The state
// change itself is always real and already recorded; this only gates the
// outbound alert.
func (d *Detector) ShouldNotify(t Transition, key string, now time.Time, window time.Duration) bool {
	if !t.Notifiable() {
		return false
	}
	if !t.GainedStock() || window <= 0 {
		return true
	}
	last, ok := d.store.GetSuppressed(key)
	if !ok {
		return true
	}
	if now.Sub(last) < window {
		d.log.Debug("notification suppressed",
			logx.String("key", key),
			logx.Time("last_notified", last),
			logx.Duration("window", window))
		return false
	}
	return true
}

// SuppressionKey builds the cooldown key for a product, using variant color
// detail when the reading has it (distinct colors restock independently).
func SuppressionKey(productID, color string) string {
	if color == "" {
		return productID
	}
	return productID + "|" + color
}
