package notify

import (
	"fmt"
	"strings"

	"stockmon/internal/detect"
	"stockmon/internal/stockapi"
)

// Event pairs a detected transition with the reading that produced it.
type Event struct {
	Spec       detect.ProductSpec
	Transition detect.Transition
	Reading    *stockapi.Reading
}

// Message is one rendered notification.
type Message struct {
	Title string
	Body  string
}

func (m Message) Empty() bool { return m.Title == "" && m.Body == "" }

// Compose renders one aggregated message for a cycle's events. The bool is
// false when there is nothing to send.
func Compose(events []Event, linkTemplate string) (Message, bool) {
	if len(events) == 0 {
		return Message{}, false
	}

	gained, lost := 0, 0
	for _, ev := range events {
		if ev.Transition.GainedStock() {
			gained++
		} else {
			lost++
		}
	}

	var title string
	switch {
	case lost == 0:
		title = fmt.Sprintf("%d product(s) back in stock", gained)
	case gained == 0:
		title = fmt.Sprintf("%d product(s) out of stock", lost)
	default:
		title = fmt.Sprintf("%d stock change(s) detected", len(events))
	}

	var b strings.Builder
	b.WriteString("Stock monitor update\n")
	for _, ev := range events {
		b.WriteString("\n")
		fmt.Fprintf(&b, "Product: %s\n", ev.Spec.Name)
		fmt.Fprintf(&b, "Status: %s\n", ev.Transition.Kind.String())
		fmt.Fprintf(&b, "Stock: %d", ev.Transition.NewStock)
		if ev.Transition.Threshold > 1 {
			fmt.Fprintf(&b, " (threshold %d)", ev.Transition.Threshold)
		}
		b.WriteString("\n")
		if v, ok := bestVariant(ev.Reading); ok {
			if v.Model != "" {
				fmt.Fprintf(&b, "Model: %s\n", v.Model)
			}
			if v.Color != "" {
				fmt.Fprintf(&b, "Color: %s\n", v.Color)
			}
			if v.Price != "" {
				fmt.Fprintf(&b, "Price: %s\n", v.Price)
			}
		}
		fmt.Fprintf(&b, "Link: %s\n", buildLink(linkTemplate, ev.Spec.ID))
	}
	return Message{Title: title, Body: b.String()}, true
}

// bestVariant picks the variant worth showing: the first one with stock,
// else the first at all.
func bestVariant(r *stockapi.Reading) (stockapi.Variant, bool) {
	if r == nil || len(r.Variants) == 0 {
		return stockapi.Variant{}, false
	}
	for _, v := range r.Variants {
		if v.Stock > 0 {
			return v, true
		}
	}
	return r.Variants[0], true
}

func buildLink(template, productID string) string {
	return strings.ReplaceAll(template, "{id}", productID)
}
