package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wellmind/internal/cache"
	"wellmind/internal/logging"
	"wellmind/internal/model"
	"wellmind/internal/repository"
)

const maxUpdateAttempts = 3

var ErrConcurrentUpdate = errors.New("outcome kept changing, giving up")

// ClusterResolver assigns a score vector to a cluster
type ClusterResolver interface {
	GetCluster(ctx context.Context, scores model.ScoreVector) model.ClusterAssignmentResult
}

// Simulator produces simulated post-intervention scores
type Simulator interface {
	Simulate(ctx context.Context, req model.SimulationRequest) (model.SimulationResponse, bool)
}

// OutcomeService persists intervention outcomes and drives their state machine.
// Mutations on one outcome are serialised in process and guarded by an optimistic
// version check in the store, so concurrent complete and dropout end in one terminal state.
type OutcomeService struct {
	outcomes      repository.OutcomeRepo
	interventions repository.InterventionRepo
	clusters      ClusterResolver
	simulator     Simulator
	stats         cache.StatsCache
	locks         *keyedMutex
	log           *slog.Logger
	now           func() time.Time
}

// NewOutcomeService creates a new outcome service. stats may be nil.
func NewOutcomeService(
	outcomes repository.OutcomeRepo,
	interventions repository.InterventionRepo,
	clusters ClusterResolver,
	simulator Simulator,
	stats cache.StatsCache,
) *OutcomeService {
	return &OutcomeService{
		outcomes:      outcomes,
		interventions: interventions,
		clusters:      clusters,
		simulator:     simulator,
		stats:         stats,
		locks:         newKeyedMutex(),
		log:           logging.New("outcomes"),
		now:           time.Now,
	}
}

// RegisterIntervention creates or replaces an intervention definition
func (s *OutcomeService) RegisterIntervention(ctx context.Context, i *model.Intervention) error {
	if i.ID == "" {
		return fmt.Errorf("intervention id is required")
	}
	return s.interventions.Upsert(ctx, i)
}

// Start begins tracking an observed intervention for a user
func (s *OutcomeService) Start(ctx context.Context, userID, interventionID string, pre model.ScoreVector) (*model.InterventionOutcome, error) {
	o := NewOutcome(uuid.New().String(), userID, interventionID, pre, s.clusterOf(ctx, pre), s.now())
	if err := s.outcomes.Create(ctx, &o); err != nil {
		return nil, fmt.Errorf("failed to create outcome: %w", err)
	}
	s.invalidateStats(ctx)
	s.log.Info("outcome started", "outcome_id", o.ID, "user_id", userID, "intervention_id", interventionID)
	return &o, nil
}

// Simulate creates a SIMULATED outcome whose post-scores come from the synthetic backend
func (s *OutcomeService) Simulate(ctx context.Context, userID, interventionID string, pre model.ScoreVector, weeks int) (*model.InterventionOutcome, error) {
	resp, usedFallback := s.simulator.Simulate(ctx, model.SimulationRequest{
		InterventionID: interventionID,
		PreScores:      pre,
		Weeks:          weeks,
	})
	meta := model.SimulationMeta{
		ConfidenceScore: resp.ConfidenceScore,
		NoiseLevel:      resp.NoiseLevel,
		UsedFallback:    usedFallback,
	}

	o := NewSimulatedOutcome(uuid.New().String(), userID, interventionID, pre, *resp.PostScores, meta, s.now())
	o.PreClusterID = s.clusterOf(ctx, pre)
	if err := s.outcomes.Create(ctx, &o); err != nil {
		return nil, fmt.Errorf("failed to create simulated outcome: %w", err)
	}
	return &o, nil
}

// Get returns an outcome by id
func (s *OutcomeService) Get(ctx context.Context, id string) (*model.InterventionOutcome, error) {
	o, err := s.outcomes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListByUser returns every outcome for a user, newest first
func (s *OutcomeService) ListByUser(ctx context.Context, userID string) ([]*model.InterventionOutcome, error) {
	outcomes, err := s.outcomes.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if outcomes == nil {
		outcomes = []*model.InterventionOutcome{}
	}
	return outcomes, nil
}

// Complete records post-scores and computes effectiveness
func (s *OutcomeService) Complete(ctx context.Context, id string, post model.ScoreVector) (*model.InterventionOutcome, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, current, post)
}

// CompleteSimulation completes a SIMULATED outcome from the post-scores it was generated with
func (s *OutcomeService) CompleteSimulation(ctx context.Context, id string) (*model.InterventionOutcome, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != model.OutcomeSimulated || current.PostScores == nil {
		return nil, &ConflictError{OutcomeID: id, Status: current.Status, Op: "complete simulation"}
	}
	return s.complete(ctx, current, *current.PostScores)
}

func (s *OutcomeService) complete(ctx context.Context, current *model.InterventionOutcome, post model.ScoreVector) (*model.InterventionOutcome, error) {
	id := current.ID
	intervention, err := s.interventions.GetByID(ctx, current.InterventionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load intervention: %w", err)
	}
	postCluster := s.clusterOf(ctx, post)

	o, err := s.mutate(ctx, id, func(o model.InterventionOutcome, now time.Time) (model.InterventionOutcome, error) {
		return CompleteOutcome(o, post, postCluster, intervention, now)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("outcome completed",
		"outcome_id", o.ID,
		"rating", o.EffectivenessRating,
		"improvement", *o.OverallImprovement,
		"cluster_transition", o.ClusterTransitionOccurred,
	)
	return o, nil
}

// MarkDropout ends an in-progress outcome
func (s *OutcomeService) MarkDropout(ctx context.Context, id, reason string, week int) (*model.InterventionOutcome, error) {
	return s.mutate(ctx, id, func(o model.InterventionOutcome, now time.Time) (model.InterventionOutcome, error) {
		return MarkDropout(o, reason, week, now)
	})
}

// UpdateAdherence records session counts
func (s *OutcomeService) UpdateAdherence(ctx context.Context, id string, completed, scheduled int) (*model.InterventionOutcome, error) {
	return s.mutate(ctx, id, func(o model.InterventionOutcome, now time.Time) (model.InterventionOutcome, error) {
		return UpdateAdherence(o, completed, scheduled, now)
	})
}

// SubmitForReview queues a completed outcome for professional review
func (s *OutcomeService) SubmitForReview(ctx context.Context, id string) (*model.InterventionOutcome, error) {
	return s.mutate(ctx, id, SubmitForReview)
}

// Archive retires a completed or reviewed outcome
func (s *OutcomeService) Archive(ctx context.Context, id string) (*model.InterventionOutcome, error) {
	return s.mutate(ctx, id, Archive)
}

// mutate applies transition to the stored outcome under the per-outcome lock. A version
// conflict means another instance got there first; the transition is re-run on the fresh
// value, where the state machine rejects it if the outcome is now terminal.
func (s *OutcomeService) mutate(
	ctx context.Context,
	id string,
	transition func(model.InterventionOutcome, time.Time) (model.InterventionOutcome, error),
) (*model.InterventionOutcome, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		next, err := transition(*current, s.now())
		if err != nil {
			return nil, err
		}
		next.Version = current.Version + 1

		err = s.outcomes.Update(ctx, &next, current.Version)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.log.Debug("outcome version conflict, retrying", "outcome_id", id, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update outcome: %w", err)
		}
		if next.Status != current.Status {
			s.invalidateStats(ctx)
		}
		return &next, nil
	}
	return nil, ErrConcurrentUpdate
}

// InterventionStats returns per-intervention effectiveness over observed outcomes
func (s *OutcomeService) InterventionStats(ctx context.Context) ([]*model.InterventionStats, error) {
	if s.stats != nil {
		cached, err := s.stats.Get(ctx)
		if err != nil {
			s.log.Warn("failed to read cached stats", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	stats, err := s.outcomes.StatsByIntervention(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate outcomes: %w", err)
	}
	if stats == nil {
		stats = []*model.InterventionStats{}
	}
	if s.stats != nil {
		if err := s.stats.Set(ctx, stats); err != nil {
			s.log.Warn("failed to cache stats", "error", err)
		}
	}
	return stats, nil
}

func (s *OutcomeService) invalidateStats(ctx context.Context) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Invalidate(ctx); err != nil {
		s.log.Warn("failed to invalidate stats", "error", err)
	}
}

func (s *OutcomeService) clusterOf(ctx context.Context, scores model.ScoreVector) string {
	if s.clusters == nil {
		return ""
	}
	res := s.clusters.GetCluster(ctx, scores)
	if res.Unclassified {
		return ""
	}
	return res.ClusterIdentifier
}
