// Package reporting turns raw funnel counts into dashboard metrics.
package reporting

import (
	"math"
	"sort"

	"quizfunnel/api/models"
)

// Conversion rates are percentages rounded to two decimals.
type Conversion struct {
	VisitToQuizStart        float64 `json:"visitToQuizStart"`
	QuizStartToQuizComplete float64 `json:"quizStartToQuizComplete"`
	QuizCompleteToLead      float64 `json:"quizCompleteToLead"`
	LeadToCheckout          float64 `json:"leadToCheckout"`
	CheckoutToSale          float64 `json:"checkoutToSale"`
	VisitToSale             float64 `json:"visitToSale"`
}

type StepCount struct {
	Step  string `json:"step"`
	Count int64  `json:"count"`
}

type Metrics struct {
	Counts            models.FunnelCounts `json:"counts"`
	Conversion        Conversion          `json:"conversion"`
	AverageOrderValue float64             `json:"averageOrderValue"`
	TopAbandonments   []StepCount         `json:"topAbandonments"`
}

// Compute is pure: every ratio with a zero denominator is 0.
func Compute(c models.FunnelCounts) Metrics {
	m := Metrics{
		Counts: c,
		Conversion: Conversion{
			VisitToQuizStart:        Rate(c.QuizStarts, c.Visits),
			QuizStartToQuizComplete: Rate(c.QuizCompletes, c.QuizStarts),
			QuizCompleteToLead:      Rate(c.Leads, c.QuizCompletes),
			LeadToCheckout:          Rate(c.CheckoutClicks, c.Leads),
			CheckoutToSale:          Rate(c.Sales, c.CheckoutClicks),
			VisitToSale:             Rate(c.Sales, c.Visits),
		},
		TopAbandonments: rankSteps(c.AbandonmentsByStep),
	}
	if c.Sales > 0 {
		m.AverageOrderValue = round2(c.Revenue / float64(c.Sales))
	}
	return m
}

// Rate returns num/den as a percentage with two decimals, or 0 when den is not positive.
func Rate(num, den int64) float64 {
	if den <= 0 {
		return 0
	}
	return round2(float64(num) / float64(den) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// rankSteps orders by count descending, then step name.
func rankSteps(byStep map[string]int64) []StepCount {
	out := make([]StepCount, 0, len(byStep))
	for step, n := range byStep {
		out = append(out, StepCount{Step: step, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Step < out[j].Step
	})
	return out
}
