package service

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"wellmind/internal/model"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func startedOutcome() model.InterventionOutcome {
	return NewOutcome("o1", "u1", "cbt-8w",
		model.ScoreVector{Stress: 0.8, Depression: 0.7, Anxiety: 0.6}, "STRESS_HIGH", t0)
}

func TestCompleteOutcome_EffectiveScenario(t *testing.T) {
	post := model.ScoreVector{Stress: 0.5, Depression: 0.5, Anxiety: 0.4}
	done, err := CompleteOutcome(startedOutcome(), post, "STRESS_MEDIUM", nil, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("CompleteOutcome: %v", err)
	}

	wantDelta := model.ScoreVector{Stress: -0.3, Depression: -0.2, Anxiety: -0.2}
	if diff := cmp.Diff(wantDelta, *done.Delta, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("delta mismatch (-want +got):\n%s", diff)
	}
	if math.Abs(*done.OverallImprovement-0.7/3) > 1e-9 {
		t.Errorf("improvement = %v, want 0.2333", *done.OverallImprovement)
	}
	if done.EffectivenessRating != model.Effective || done.ResponseType != model.ResponseGood {
		t.Errorf("rating = %s/%s, want EFFECTIVE/GOOD_RESPONSE", done.EffectivenessRating, done.ResponseType)
	}
	if done.Status != model.OutcomeCompleted || done.CompletedAt == nil {
		t.Errorf("status = %s completedAt = %v", done.Status, done.CompletedAt)
	}
	if !done.ClusterTransitionOccurred {
		t.Error("STRESS_HIGH -> STRESS_MEDIUM should flag a cluster transition")
	}
	if done.ExpectedImprovement != nil || done.MetExpectedOutcome != nil {
		t.Error("expectation fields set without an intervention definition")
	}
}

func TestCompleteOutcome_DoesNotMutateInput(t *testing.T) {
	o := startedOutcome()
	if _, err := CompleteOutcome(o, model.ScoreVector{}, "", nil, t0); err != nil {
		t.Fatal(err)
	}
	if o.Status != model.OutcomeInProgress || o.PostScores != nil {
		t.Errorf("input outcome was modified: %+v", o)
	}
}

func TestCompleteOutcome_Twice(t *testing.T) {
	post := model.ScoreVector{Stress: 0.5, Depression: 0.5, Anxiety: 0.4}
	first, err := CompleteOutcome(startedOutcome(), post, "", nil, t0)
	if err != nil {
		t.Fatal(err)
	}

	second, err := CompleteOutcome(first, post, "", nil, t0.Add(time.Minute))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Status != model.OutcomeCompleted {
		t.Errorf("conflict status = %s", conflict.Status)
	}
	if second.EffectivenessRating != first.EffectivenessRating || second.Status != model.OutcomeCompleted {
		t.Errorf("second call changed the outcome: %+v", second)
	}
	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Error("completion timestamp changed on the rejected call")
	}
}

func TestCompleteOutcome_Expectation(t *testing.T) {
	intervention := &model.Intervention{
		ExpectedStressReduction:     0.3,
		ExpectedDepressionReduction: 0.2,
		ExpectedAnxietyReduction:    0.1,
	}
	tests := []struct {
		name          string
		post          model.ScoreVector
		wantMet       bool
		wantDeviation float64
	}{
		// improvement 0.2 == expected
		{"met exactly", model.ScoreVector{Stress: 0.6, Depression: 0.5, Anxiety: 0.4}, true, 0},
		// improvement 0.1 = half of expected
		{"short of expectation", model.ScoreVector{Stress: 0.7, Depression: 0.6, Anxiety: 0.5}, false, -50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done, err := CompleteOutcome(startedOutcome(), tt.post, "", intervention, t0)
			if err != nil {
				t.Fatal(err)
			}
			if done.MetExpectedOutcome == nil || *done.MetExpectedOutcome != tt.wantMet {
				t.Errorf("met = %v, want %v", done.MetExpectedOutcome, tt.wantMet)
			}
			if math.Abs(*done.DeviationPercent-tt.wantDeviation) > 1e-6 {
				t.Errorf("deviation = %v, want %v", *done.DeviationPercent, tt.wantDeviation)
			}
		})
	}
}

func TestRateImprovement_Bands(t *testing.T) {
	tests := []struct {
		improvement float64
		want        model.EffectivenessRating
	}{
		{0.45, model.HighlyEffective},
		{0.30, model.HighlyEffective},
		{0.29, model.Effective},
		{0.15, model.Effective},
		{0.149, model.ModeratelyEffective},
		{0.05, model.ModeratelyEffective},
		{0.0, model.MinimallyEffective},
		{-0.05, model.MinimallyEffective},
		{-0.051, model.NotEffective},
	}
	for _, tt := range tests {
		if got := RateImprovement(tt.improvement); got != tt.want {
			t.Errorf("RateImprovement(%v) = %s, want %s", tt.improvement, got, tt.want)
		}
	}
}

func TestEffectiveness_EdgeRounding(t *testing.T) {
	// Subtraction noise must not push a 0.30 improvement out of its band
	_, improvement, rating := Effectiveness(
		model.ScoreVector{Stress: 0.8, Depression: 0.7, Anxiety: 0.6},
		model.ScoreVector{Stress: 0.5, Depression: 0.4, Anxiety: 0.3},
	)
	if rating != model.HighlyEffective {
		t.Errorf("improvement %v rated %s, want HIGHLY_EFFECTIVE", improvement, rating)
	}
}

func TestMarkDropout(t *testing.T) {
	dropped, err := MarkDropout(startedOutcome(), "moved away", 3, t0)
	if err != nil {
		t.Fatal(err)
	}
	if dropped.Status != model.OutcomeDroppedOut || dropped.DropoutWeek != 3 || dropped.EffectivenessRating != "" {
		t.Errorf("dropped = %+v", dropped)
	}

	if _, err := CompleteOutcome(dropped, model.ScoreVector{}, "", nil, t0); !isConflict(err) {
		t.Errorf("complete after dropout: expected ConflictError, got %v", err)
	}
	if _, err := MarkDropout(dropped, "again", 4, t0); !isConflict(err) {
		t.Errorf("dropout twice: expected ConflictError, got %v", err)
	}

	completed, _ := CompleteOutcome(startedOutcome(), model.ScoreVector{}, "", nil, t0)
	if _, err := MarkDropout(completed, "late", 8, t0); !isConflict(err) {
		t.Errorf("dropout after complete: expected ConflictError, got %v", err)
	}
}

func TestUpdateAdherence(t *testing.T) {
	o, err := UpdateAdherence(startedOutcome(), 3, 4, t0)
	if err != nil {
		t.Fatal(err)
	}
	if o.AdherencePercentage == nil || *o.AdherencePercentage != 75 {
		t.Errorf("adherence = %v, want 75", o.AdherencePercentage)
	}

	o, err = UpdateAdherence(o, 0, 0, t0)
	if err != nil {
		t.Fatal(err)
	}
	if o.AdherencePercentage != nil {
		t.Errorf("no scheduled sessions should leave adherence undefined, got %v", *o.AdherencePercentage)
	}

	if _, err := UpdateAdherence(o, -1, 2, t0); !errors.Is(err, ErrInvalidAdherence) {
		t.Errorf("expected ErrInvalidAdherence, got %v", err)
	}

	done, _ := CompleteOutcome(o, model.ScoreVector{}, "", nil, t0)
	if _, err := UpdateAdherence(done, 1, 1, t0); !isConflict(err) {
		t.Errorf("adherence after complete: expected ConflictError, got %v", err)
	}
}

func TestSimulatedOutcomeLifecycle(t *testing.T) {
	pre := model.ScoreVector{Stress: 0.6, Depression: 0.6, Anxiety: 0.6}
	post := model.ScoreVector{Stress: 0.5, Depression: 0.5, Anxiety: 0.5}
	sim := NewSimulatedOutcome("s1", "u1", "cbt-8w", pre, post, model.SimulationMeta{ConfidenceScore: 0.3, NoiseLevel: 0.05}, t0)

	if sim.Status != model.OutcomeSimulated || !sim.IsSimulated || sim.PostScores == nil {
		t.Fatalf("simulated outcome = %+v", sim)
	}
	if sim.EffectivenessRating != model.ModeratelyEffective || sim.Delta == nil {
		t.Errorf("simulated outcome should carry its effectiveness, got rating=%q delta=%v", sim.EffectivenessRating, sim.Delta)
	}
	if _, err := CompleteOutcome(sim, model.ScoreVector{Stress: 0.9}, "", nil, t0); !errors.Is(err, ErrSimulatedScores) {
		t.Errorf("completing with other post-scores: expected ErrSimulatedScores, got %v", err)
	}
	if _, err := MarkDropout(sim, "n/a", 1, t0); !isConflict(err) {
		t.Errorf("simulated outcomes cannot drop out, got %v", err)
	}

	done, err := CompleteOutcome(sim, post, "", nil, t0)
	if err != nil {
		t.Fatalf("complete simulated: %v", err)
	}
	if done.EffectivenessRating != model.ModeratelyEffective {
		t.Errorf("rating = %s", done.EffectivenessRating)
	}
}

func TestReviewAndArchive(t *testing.T) {
	if _, err := SubmitForReview(startedOutcome(), t0); !isConflict(err) {
		t.Errorf("review from IN_PROGRESS: expected ConflictError, got %v", err)
	}
	if _, err := Archive(startedOutcome(), t0); !isConflict(err) {
		t.Errorf("archive from IN_PROGRESS: expected ConflictError, got %v", err)
	}

	done, _ := CompleteOutcome(startedOutcome(), model.ScoreVector{}, "", nil, t0)
	pending, err := SubmitForReview(done, t0)
	if err != nil || pending.Status != model.OutcomePendingReview {
		t.Fatalf("SubmitForReview: %v %s", err, pending.Status)
	}
	archived, err := Archive(pending, t0.Add(time.Hour))
	if err != nil || archived.Status != model.OutcomeArchived || archived.ReviewedAt == nil {
		t.Fatalf("Archive: %v %+v", err, archived)
	}
	if archived.EffectivenessRating != done.EffectivenessRating {
		t.Error("archiving changed the rating")
	}
	if _, err := Archive(archived, t0); !isConflict(err) {
		t.Errorf("archive twice: expected ConflictError, got %v", err)
	}
}

func isConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
