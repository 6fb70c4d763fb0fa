// Package diagnostic scores quiz answers into an urgency level.
package diagnostic

const (
	LevelHigh      = "high"
	LevelCritical  = "critical"
	LevelEmergency = "emergency"
)

const maxKeyFactors = 5

type Answer struct {
	QuestionID  int `json:"questionId"`
	OptionIndex int `json:"optionIndex"`
}

type Result struct {
	UrgencyLevel   string   `json:"urgencyLevel"`
	Score          int      `json:"score"`
	EmergencyScore int      `json:"emergencyScore"`
	CriticalScore  int      `json:"criticalScore"`
	HighScore      int      `json:"highScore"`
	KeyFactors     []string `json:"keyFactors"`
}

// Analyze sums the option weights of every answered question and applies the
// level thresholds. When a question is answered twice the last answer wins;
// unknown questions and out of range options are ignored.
func Analyze(answers []Answer) Result {
	chosen := make(map[int]int, len(answers))
	for _, a := range answers {
		chosen[a.QuestionID] = a.OptionIndex
	}
	return AnalyzeMap(chosen)
}

// AnalyzeMap is Analyze for a question id -> option index map.
func AnalyzeMap(chosen map[int]int) Result {
	res := Result{KeyFactors: []string{}}

	for _, q := range questions {
		idx, ok := chosen[q.ID]
		if !ok || idx < 0 || idx >= len(q.Options) {
			continue
		}
		opt := q.Options[idx]
		res.EmergencyScore += opt.Weight.Emergency
		res.CriticalScore += opt.Weight.Critical
		res.HighScore += opt.Weight.High
		if opt.Factor != "" && len(res.KeyFactors) < maxKeyFactors {
			res.KeyFactors = append(res.KeyFactors, opt.Factor)
		}
	}

	res.UrgencyLevel = level(res.EmergencyScore, res.CriticalScore, res.HighScore)
	res.Score = 3*res.EmergencyScore + 2*res.CriticalScore + res.HighScore
	return res
}

func level(emergency, critical, high int) string {
	switch {
	case emergency >= 8, emergency >= 5 && critical >= 3:
		return LevelEmergency
	case critical >= 6, emergency >= 3, critical >= 4 && high >= 4:
		return LevelCritical
	default:
		return LevelHigh
	}
}

func IsLevel(v string) bool {
	return v == LevelHigh || v == LevelCritical || v == LevelEmergency
}
