package monitor

import (
	"context"
	"fmt"
	"time"

	"stockmon/internal/detect"
	"stockmon/internal/notify"
	"stockmon/internal/stockapi"
	"stockmon/internal/storage"
	logx "stockmon/pkg/logx"
)

// CycleReport summarizes one full pass over the watched products.
type CycleReport struct {
	Started     time.Time
	Products    int
	FetchErrors int
	Transitions int
	Notified    bool
}

// RunCycle fetches every product once, sequentially, classifies the
// readings, sends one aggregated notification for the notifiable
// transitions, and appends the cycle to history.
//
// A panic inside the cycle is converted into an error so the scheduled
// modes can report it instead of crashing the process mid-loop.
func (m *Monitor) RunCycle(ctx context.Context) (report CycleReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()

	now := time.Now()
	report.Started = now
	report.Products = len(m.settings.Products)

	entry := storage.HistoryEntry{At: now}
	var events []notify.Event

	for _, spec := range m.settings.Products {
		result := storage.ProductResult{ID: spec.ID, Name: spec.Name}

		reading, ferr := m.fetcher.Fetch(ctx, spec.ID)
		if ferr != nil {
			// No new information: state stays untouched, only the
			// audit record carries the failure.
			report.FetchErrors++
			result.Error = ferr.Error()
			entry.Results = append(entry.Results, result)
			m.log.Warn("fetch failed", logx.String("product", spec.ID), logx.Err(ferr))
			continue
		}

		t := m.detector.Classify(spec, reading)
		if t.Notifiable() {
			report.Transitions++
		}

		result.HasStock = reading.TotalStock >= spec.Threshold()
		result.TotalStock = reading.TotalStock
		for _, v := range reading.Variants {
			result.Variants = append(result.Variants, storage.VariantResult{
				Model: v.Model,
				Color: v.Color,
				Stock: v.Stock,
				Price: v.Price,
			})
		}
		entry.Results = append(entry.Results, result)

		key := detect.SuppressionKey(spec.ID, stockedColor(reading))
		if m.detector.ShouldNotify(t, key, now, m.settings.SuppressionWindow) {
			events = append(events, notify.Event{Spec: spec, Transition: t, Reading: reading})
		}
	}

	if msg, ok := notify.Compose(events, m.settings.LinkTemplate); ok {
		outcomes := m.dispatcher.Dispatch(ctx, msg)
		if notify.Delivered(outcomes) {
			report.Notified = true
			// Cooldown starts only once something actually went out;
			// a fully failed dispatch leaves the next cycle free to retry.
			for _, ev := range events {
				if !ev.Transition.GainedStock() {
					continue
				}
				key := detect.SuppressionKey(ev.Spec.ID, stockedColor(ev.Reading))
				if err := m.store.MarkNotified(key, now); err != nil {
					m.log.Warn("suppression write failed",
						logx.String("key", key), logx.Err(err))
				}
			}
		}
	}

	if err := m.store.AppendHistory(entry); err != nil {
		m.log.Warn("history write failed", logx.Err(err))
	}

	m.log.Info("cycle complete",
		logx.Int("products", report.Products),
		logx.Int("fetch_errors", report.FetchErrors),
		logx.Int("transitions", report.Transitions),
		logx.Bool("notified", report.Notified),
		logx.Duration("took", time.Since(now)))
	return report, nil
}

// stockedColor picks the color used in the suppression key: the first
// variant with stock, since that is the one being announced.
func stockedColor(r *stockapi.Reading) string {
	if r == nil {
		return ""
	}
	for _, v := range r.Variants {
		if v.Stock > 0 {
			return v.Color
		}
	}
	return ""
}
