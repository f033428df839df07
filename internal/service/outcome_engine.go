package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"wellmind/internal/model"
)

// Effectiveness thresholds on overall improvement (positive = better)
const (
	highlyEffectiveAt     = 0.30
	effectiveAt           = 0.15
	moderatelyEffectiveAt = 0.05
	minimallyEffectiveAt  = -0.05

	// metExpectedFraction of the expected improvement counts as meeting it
	metExpectedFraction = 0.8
)

var (
	ErrInvalidAdherence = errors.New("invalid adherence counts")
	ErrSimulatedScores  = errors.New("simulated outcome already carries post-scores")
)

// ConflictError reports an operation that the outcome's current status does not allow
type ConflictError struct {
	OutcomeID string
	Status    model.OutcomeStatus
	Op        string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("outcome %s: cannot %s from status %s", e.OutcomeID, e.Op, e.Status)
}

// NewOutcome starts tracking an observed intervention
func NewOutcome(id, userID, interventionID string, pre model.ScoreVector, preCluster string, now time.Time) model.InterventionOutcome {
	return model.InterventionOutcome{
		ID:             id,
		UserID:         userID,
		InterventionID: interventionID,
		Status:         model.OutcomeInProgress,
		PreScores:      pre,
		PreClusterID:   preCluster,
		StartedAt:      now,
		UpdatedAt:      now,
	}
}

// NewSimulatedOutcome creates a generated outcome already carrying both score sets
// and the effectiveness they imply
func NewSimulatedOutcome(id, userID, interventionID string, pre, post model.ScoreVector, sim model.SimulationMeta, now time.Time) model.InterventionOutcome {
	o := NewOutcome(id, userID, interventionID, pre, "", now)
	o.Status = model.OutcomeSimulated
	o.PostScores = &post
	o.IsSimulated = true
	o.Simulation = &sim

	delta, improvement, rating := Effectiveness(pre, post)
	o.Delta = &delta
	o.OverallImprovement = &improvement
	o.EffectivenessRating = rating
	o.ResponseType = ResponseTypeFor(rating)
	return o
}

// Effectiveness computes the delta, overall improvement and rating for a score pair
func Effectiveness(pre, post model.ScoreVector) (delta model.ScoreVector, improvement float64, rating model.EffectivenessRating) {
	delta = post.Sub(pre)
	improvement = (-delta.Stress - delta.Depression - delta.Anxiety) / 3
	// Round away float noise so band edges such as 0.30 classify as written
	improvement = math.Round(improvement*1e9) / 1e9
	return delta, improvement, RateImprovement(improvement)
}

// RateImprovement classifies an overall improvement into an effectiveness band
func RateImprovement(improvement float64) model.EffectivenessRating {
	switch {
	case improvement >= highlyEffectiveAt:
		return model.HighlyEffective
	case improvement >= effectiveAt:
		return model.Effective
	case improvement >= moderatelyEffectiveAt:
		return model.ModeratelyEffective
	case improvement >= minimallyEffectiveAt:
		return model.MinimallyEffective
	}
	return model.NotEffective
}

// ResponseTypeFor maps a rating to its response type
func ResponseTypeFor(r model.EffectivenessRating) model.ResponseType {
	switch r {
	case model.HighlyEffective:
		return model.ResponseStrong
	case model.Effective:
		return model.ResponseGood
	case model.ModeratelyEffective:
		return model.ResponsePartial
	case model.MinimallyEffective:
		return model.ResponseMinimal
	}
	return model.ResponseNone
}

// CompleteOutcome records post-scores and computes effectiveness.
// Allowed from IN_PROGRESS and SIMULATED; postCluster may be empty and intervention nil.
// A simulated outcome keeps its generated post-scores; any other post is rejected.
func CompleteOutcome(o model.InterventionOutcome, post model.ScoreVector, postCluster string, intervention *model.Intervention, now time.Time) (model.InterventionOutcome, error) {
	if o.Status != model.OutcomeInProgress && o.Status != model.OutcomeSimulated {
		return o, &ConflictError{OutcomeID: o.ID, Status: o.Status, Op: "complete"}
	}
	if o.Status == model.OutcomeSimulated && o.PostScores != nil && *o.PostScores != post {
		return o, fmt.Errorf("%w: outcome %s", ErrSimulatedScores, o.ID)
	}

	delta, improvement, rating := Effectiveness(o.PreScores, post)

	next := o
	next.PostScores = &post
	next.Delta = &delta
	next.OverallImprovement = &improvement
	next.EffectivenessRating = rating
	next.ResponseType = ResponseTypeFor(rating)
	next.ExpectedImprovement = nil
	next.DeviationPercent = nil
	next.MetExpectedOutcome = nil

	if expected := intervention.ExpectedImprovement(); expected > 0 {
		deviation := (improvement - expected) / expected * 100
		met := improvement >= metExpectedFraction*expected
		next.ExpectedImprovement = &expected
		next.DeviationPercent = &deviation
		next.MetExpectedOutcome = &met
	}

	next.PostClusterID = postCluster
	next.ClusterTransitionOccurred = next.PreClusterID != "" && next.PostClusterID != "" &&
		next.PreClusterID != next.PostClusterID

	next.Status = model.OutcomeCompleted
	next.CompletedAt = &now
	next.UpdatedAt = now
	return next, nil
}

// MarkDropout ends an in-progress outcome without computing effectiveness. Irreversible.
func MarkDropout(o model.InterventionOutcome, reason string, week int, now time.Time) (model.InterventionOutcome, error) {
	if o.Status != model.OutcomeInProgress {
		return o, &ConflictError{OutcomeID: o.ID, Status: o.Status, Op: "mark dropout"}
	}
	next := o
	next.Status = model.OutcomeDroppedOut
	next.DropoutReason = reason
	next.DropoutWeek = week
	next.DroppedAt = &now
	next.UpdatedAt = now
	return next, nil
}

// UpdateAdherence records session counts on an in-progress outcome.
// With no scheduled sessions the percentage stays undefined rather than zero.
func UpdateAdherence(o model.InterventionOutcome, completed, scheduled int, now time.Time) (model.InterventionOutcome, error) {
	if o.Status != model.OutcomeInProgress {
		return o, &ConflictError{OutcomeID: o.ID, Status: o.Status, Op: "update adherence"}
	}
	if completed < 0 || scheduled < 0 {
		return o, fmt.Errorf("%w: completed=%d scheduled=%d", ErrInvalidAdherence, completed, scheduled)
	}
	next := o
	next.SessionsCompleted = completed
	next.SessionsScheduled = scheduled
	next.AdherencePercentage = nil
	if scheduled > 0 {
		pct := 100 * float64(completed) / float64(scheduled)
		next.AdherencePercentage = &pct
	}
	next.UpdatedAt = now
	return next, nil
}

// SubmitForReview moves a completed outcome into the professional review queue
func SubmitForReview(o model.InterventionOutcome, now time.Time) (model.InterventionOutcome, error) {
	if o.Status != model.OutcomeCompleted {
		return o, &ConflictError{OutcomeID: o.ID, Status: o.Status, Op: "submit for review"}
	}
	next := o
	next.Status = model.OutcomePendingReview
	next.UpdatedAt = now
	return next, nil
}

// Archive retires a completed or reviewed outcome
func Archive(o model.InterventionOutcome, now time.Time) (model.InterventionOutcome, error) {
	if o.Status != model.OutcomeCompleted && o.Status != model.OutcomePendingReview {
		return o, &ConflictError{OutcomeID: o.ID, Status: o.Status, Op: "archive"}
	}
	next := o
	if o.Status == model.OutcomePendingReview {
		next.ReviewedAt = &now
	}
	next.Status = model.OutcomeArchived
	next.ArchivedAt = &now
	next.UpdatedAt = now
	return next, nil
}
