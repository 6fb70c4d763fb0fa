package reporting

import (
	"testing"

	"quizfunnel/api/models"

	"github.com/stretchr/testify/assert"
)

func TestRate(t *testing.T) {
	tests := []struct {
		num, den int64
		want     float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{10, 10, 100},
		{3, -1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rate(tt.num, tt.den), "%d/%d", tt.num, tt.den)
	}
}

func TestComputeEmptyCounts(t *testing.T) {
	m := Compute(models.FunnelCounts{})

	assert.Equal(t, Conversion{}, m.Conversion)
	assert.Zero(t, m.AverageOrderValue)
	assert.Empty(t, m.TopAbandonments)
}

func TestCompute(t *testing.T) {
	m := Compute(models.FunnelCounts{
		Visits:         200,
		QuizStarts:     120,
		QuizCompletes:  60,
		Leads:          30,
		CheckoutClicks: 12,
		Sales:          3,
		Revenue:        291,
		AbandonmentsByStep: map[string]int64{
			"question_3": 4,
			"form":       9,
			"question_1": 4,
		},
	})

	assert.Equal(t, 60.0, m.Conversion.VisitToQuizStart)
	assert.Equal(t, 50.0, m.Conversion.QuizStartToQuizComplete)
	assert.Equal(t, 50.0, m.Conversion.QuizCompleteToLead)
	assert.Equal(t, 40.0, m.Conversion.LeadToCheckout)
	assert.Equal(t, 25.0, m.Conversion.CheckoutToSale)
	assert.Equal(t, 1.5, m.Conversion.VisitToSale)
	assert.Equal(t, 97.0, m.AverageOrderValue)
	assert.Equal(t, []StepCount{
		{Step: "form", Count: 9},
		{Step: "question_1", Count: 4},
		{Step: "question_3", Count: 4},
	}, m.TopAbandonments)
}
