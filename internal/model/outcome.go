package model

import "time"

// OutcomeStatus is the lifecycle state of an InterventionOutcome
type OutcomeStatus string

const (
	OutcomeInProgress    OutcomeStatus = "IN_PROGRESS"
	OutcomeCompleted     OutcomeStatus = "COMPLETED"
	OutcomeDroppedOut    OutcomeStatus = "DROPPED_OUT"
	OutcomeSimulated     OutcomeStatus = "SIMULATED"
	OutcomePendingReview OutcomeStatus = "PENDING_REVIEW"
	OutcomeArchived      OutcomeStatus = "ARCHIVED"
)

// EffectivenessRating is the categorical judgment of an intervention's improvement
type EffectivenessRating string

const (
	HighlyEffective     EffectivenessRating = "HIGHLY_EFFECTIVE"
	Effective           EffectivenessRating = "EFFECTIVE"
	ModeratelyEffective EffectivenessRating = "MODERATELY_EFFECTIVE"
	MinimallyEffective  EffectivenessRating = "MINIMALLY_EFFECTIVE"
	NotEffective        EffectivenessRating = "NOT_EFFECTIVE"
)

// ResponseType mirrors EffectivenessRating one-to-one
type ResponseType string

const (
	ResponseStrong  ResponseType = "STRONG_RESPONSE"
	ResponseGood    ResponseType = "GOOD_RESPONSE"
	ResponsePartial ResponseType = "PARTIAL_RESPONSE"
	ResponseMinimal ResponseType = "MINIMAL_RESPONSE"
	ResponseNone    ResponseType = "NO_RESPONSE"
)

// Intervention is the definition an outcome is measured against
type Intervention struct {
	ID                          string  `json:"id" bson:"_id"`
	Name                        string  `json:"name" bson:"name"`
	Category                    string  `json:"category" bson:"category"`
	DurationWeeks               int     `json:"durationWeeks" bson:"durationWeeks"`
	ExpectedStressReduction     float64 `json:"expectedStressReduction" bson:"expectedStressReduction"`
	ExpectedDepressionReduction float64 `json:"expectedDepressionReduction" bson:"expectedDepressionReduction"`
	ExpectedAnxietyReduction    float64 `json:"expectedAnxietyReduction" bson:"expectedAnxietyReduction"`
}

// ExpectedImprovement is the mean of the expected per-dimension reductions
func (i *Intervention) ExpectedImprovement() float64 {
	if i == nil {
		return 0
	}
	return (i.ExpectedStressReduction + i.ExpectedDepressionReduction + i.ExpectedAnxietyReduction) / 3
}

// SimulationMeta describes an outcome that was generated rather than observed
type SimulationMeta struct {
	ConfidenceScore float64 `json:"confidenceScore" bson:"confidenceScore"`
	NoiseLevel      float64 `json:"noiseLevel" bson:"noiseLevel"`
	UsedFallback    bool    `json:"usedFallback" bson:"usedFallback"`
}

// InterventionOutcome tracks a user's scores across one intervention.
// Treat values as immutable: state changes go through the outcome engine,
// which returns an updated copy.
type InterventionOutcome struct {
	ID             string        `json:"id" bson:"_id"`
	UserID         string        `json:"userId" bson:"userId"`
	InterventionID string        `json:"interventionId" bson:"interventionId"`
	Status         OutcomeStatus `json:"status" bson:"status"`
	Version        int64         `json:"version" bson:"version"`

	PreScores  ScoreVector  `json:"preScores" bson:"preScores"`
	PostScores *ScoreVector `json:"postScores,omitempty" bson:"postScores,omitempty"`
	Delta      *ScoreVector `json:"delta,omitempty" bson:"delta,omitempty"`

	OverallImprovement  *float64            `json:"overallImprovement,omitempty" bson:"overallImprovement,omitempty"`
	EffectivenessRating EffectivenessRating `json:"effectivenessRating,omitempty" bson:"effectivenessRating,omitempty"`
	ResponseType        ResponseType        `json:"responseType,omitempty" bson:"responseType,omitempty"`
	ExpectedImprovement *float64            `json:"expectedImprovement,omitempty" bson:"expectedImprovement,omitempty"`
	DeviationPercent    *float64            `json:"deviationPercent,omitempty" bson:"deviationPercent,omitempty"`
	MetExpectedOutcome  *bool               `json:"metExpectedOutcome,omitempty" bson:"metExpectedOutcome,omitempty"`

	// Adherence
	SessionsCompleted   int      `json:"sessionsCompleted" bson:"sessionsCompleted"`
	SessionsScheduled   int      `json:"sessionsScheduled" bson:"sessionsScheduled"`
	AdherencePercentage *float64 `json:"adherencePercentage,omitempty" bson:"adherencePercentage,omitempty"`

	// Dropout
	DropoutReason string `json:"dropoutReason,omitempty" bson:"dropoutReason,omitempty"`
	DropoutWeek   int    `json:"dropoutWeek,omitempty" bson:"dropoutWeek,omitempty"`

	// Cluster movement (advisory)
	PreClusterID              string `json:"preClusterId,omitempty" bson:"preClusterId,omitempty"`
	PostClusterID             string `json:"postClusterId,omitempty" bson:"postClusterId,omitempty"`
	ClusterTransitionOccurred bool   `json:"clusterTransitionOccurred" bson:"clusterTransitionOccurred"`

	IsSimulated bool            `json:"isSimulated" bson:"isSimulated"`
	Simulation  *SimulationMeta `json:"simulation,omitempty" bson:"simulation,omitempty"`

	StartedAt   time.Time  `json:"startedAt" bson:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	DroppedAt   *time.Time `json:"droppedAt,omitempty" bson:"droppedAt,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty" bson:"reviewedAt,omitempty"`
	ArchivedAt  *time.Time `json:"archivedAt,omitempty" bson:"archivedAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// InterventionStats summarises observed (non-simulated) outcomes for one intervention
type InterventionStats struct {
	InterventionID  string   `json:"interventionId" bson:"_id"`
	Started         int      `json:"started" bson:"started"`
	Completed       int      `json:"completed" bson:"completed"`
	DroppedOut      int      `json:"droppedOut" bson:"droppedOut"`
	MetExpected     int      `json:"metExpected" bson:"metExpected"`
	MeanImprovement *float64 `json:"meanImprovement,omitempty" bson:"meanImprovement,omitempty"`
}
