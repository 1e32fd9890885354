// Package stats computes aggregate reports over a template's submissions.
//
// Aggregation is pure and synchronous: callers fetch a snapshot of forms
// first (id ascending, so that frequency ties break deterministically)
// and hand it in together with the template. Nothing here touches
// storage or performs authorization.
package stats

import (
	"github.com/orifhon74/customizable-forms/model"
)

// BoolCount tallies boolean answers. Null answers are excluded from both
// counters, so True+False need not add up to the total form count.
type BoolCount struct {
	True  int `json:"true"`
	False int `json:"false"`
}

// Report is the derived statistics for one template, computed fresh on
// every request and never persisted. Map keys are slot ids; only slots
// enabled on the template appear. Multi-line text slots carry no
// aggregate.
type Report struct {
	TotalForms    int                  `json:"total_forms"`
	Averages      map[string]*float64  `json:"averages"`
	CommonStrings map[string]*string   `json:"commonStrings"`
	CheckboxStats map[string]BoolCount `json:"checkboxStats"`
}

// Aggregate computes the statistics report for a template over its
// submissions. Every form must reference the template or the whole
// computation aborts with a PreconditionError; a stray record is a fault
// in the caller, not something to silently skip.
func Aggregate(t model.Template, forms []model.Form) (Report, error) {
	for _, f := range forms {
		if f.TemplateID != t.ID {
			return Report{}, model.Preconditionf(
				"form %d belongs to template %d, not %d", f.ID, f.TemplateID, t.ID)
		}
	}

	r := Report{
		TotalForms:    len(forms),
		Averages:      make(map[string]*float64),
		CommonStrings: make(map[string]*string),
		CheckboxStats: make(map[string]BoolCount),
	}

	for _, id := range t.EnabledSlots(model.SlotInt) {
		r.Averages[id] = average(forms, id)
	}
	for _, id := range t.EnabledSlots(model.SlotString) {
		r.CommonStrings[id] = mostCommon(forms, id)
	}
	for _, id := range t.EnabledSlots(model.SlotCheckbox) {
		r.CheckboxStats[id] = countBools(forms, id)
	}
	return r, nil
}

// average is the arithmetic mean of the valid numeric answers for a
// slot, or nil when there are none. Unanswered and malformed values are
// skipped, never counted as zero.
func average(forms []model.Form, slotID string) *float64 {
	var sum float64
	var n int
	for _, f := range forms {
		v, ok := model.NumericValue(f.Answers[slotID])
		if !ok {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// mostCommon is the most frequent non-empty answer string, exact match,
// case-sensitive. Ties break to the value first encountered in form
// order. Nil when no non-empty answers exist.
func mostCommon(forms []model.Form, slotID string) *string {
	counts := make(map[string]int)
	var order []string
	for _, f := range forms {
		s, ok := f.Answers[slotID].(string)
		if !ok || s == "" {
			continue
		}
		if counts[s] == 0 {
			order = append(order, s)
		}
		counts[s]++
	}

	var winner *string
	best := 0
	for i := range order {
		if counts[order[i]] > best {
			best = counts[order[i]]
			winner = &order[i]
		}
	}
	return winner
}

func countBools(forms []model.Form, slotID string) (c BoolCount) {
	for _, f := range forms {
		b, ok := f.Answers[slotID].(bool)
		if !ok {
			continue
		}
		if b {
			c.True++
		} else {
			c.False++
		}
	}
	return
}
