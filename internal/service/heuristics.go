package service

import (
	"errors"
	"fmt"

	"wellmind/internal/model"
)

var ErrInvalidResponse = errors.New("questionnaire response out of range")

// NeutralScore is returned for an instrument that was not collected or has the wrong length.
// It is a low-confidence placeholder, surfaced through HeuristicResult.Defaulted.
const NeutralScore = 0.5

type instrument struct {
	items   int
	maxItem int
}

var (
	pss  = instrument{items: 10, maxItem: 4} // max sum 40
	phq9 = instrument{items: 9, maxItem: 3}  // max sum 27
	gad7 = instrument{items: 7, maxItem: 3}  // max sum 21
)

func (in instrument) score(responses []int) (float64, bool) {
	if len(responses) != in.items {
		return NeutralScore, false
	}
	sum := 0
	for _, r := range responses {
		sum += r
	}
	return model.Clamp01(float64(sum) / float64(in.items*in.maxItem)), true
}

func (in instrument) validate(name string, responses []int) error {
	for i, r := range responses {
		if r < 0 || r > in.maxItem {
			return fmt.Errorf("%w: %s item %d = %d (want 0..%d)", ErrInvalidResponse, name, i+1, r, in.maxItem)
		}
	}
	return nil
}

// ValidateQuestionnaires rejects item values outside an instrument's scale.
// Missing or wrong-length instruments are allowed; they score as NeutralScore.
func ValidateQuestionnaires(q model.Questionnaires) error {
	if err := pss.validate("PSS", q.PSS); err != nil {
		return err
	}
	if err := phq9.validate("PHQ-9", q.PHQ9); err != nil {
		return err
	}
	return gad7.validate("GAD-7", q.GAD7)
}

// StressFromPSS normalises a 10-item Perceived Stress Scale (0..4 per item)
func StressFromPSS(responses []int) float64 {
	s, _ := pss.score(responses)
	return s
}

// DepressionFromPHQ9 normalises a PHQ-9 questionnaire (0..3 per item)
func DepressionFromPHQ9(responses []int) float64 {
	s, _ := phq9.score(responses)
	return s
}

// AnxietyFromGAD7 normalises a GAD-7 questionnaire (0..3 per item)
func AnxietyFromGAD7(responses []int) float64 {
	s, _ := gad7.score(responses)
	return s
}

// HeuristicResult is a locally computed score vector plus how much of it is real data
type HeuristicResult struct {
	Scores           model.ScoreVector
	DataQualityScore float64          // fraction of instruments that were usable
	Defaulted        []model.Category // dimensions that fell back to NeutralScore
}

// HeuristicScores computes all three dimensions from raw questionnaires
func HeuristicScores(q model.Questionnaires) HeuristicResult {
	var res HeuristicResult
	valid := 0

	stress, ok := pss.score(q.PSS)
	if ok {
		valid++
	} else {
		res.Defaulted = append(res.Defaulted, model.CategoryStress)
	}
	depression, ok := phq9.score(q.PHQ9)
	if ok {
		valid++
	} else {
		res.Defaulted = append(res.Defaulted, model.CategoryDepression)
	}
	anxiety, ok := gad7.score(q.GAD7)
	if ok {
		valid++
	} else {
		res.Defaulted = append(res.Defaulted, model.CategoryAnxiety)
	}

	res.Scores = model.NewScoreVector(stress, depression, anxiety)
	res.DataQualityScore = float64(valid) / 3
	return res
}
