package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wellmind/internal/cache"
	"wellmind/internal/logging"
	"wellmind/internal/model"
	"wellmind/internal/repository"
)

// ScorePredictor produces a score vector for a feature bundle
type ScorePredictor interface {
	Predict(ctx context.Context, input model.AssessmentInput) (model.ScoreResult, bool)
}

// ClusterBackend assigns a score vector to a cluster remotely
type ClusterBackend interface {
	Assign(ctx context.Context, req model.ClusterRequest) (model.ClusterAssignmentResult, bool)
}

// ChatAnalyzer analyses a chat message
type ChatAnalyzer interface {
	Analyze(ctx context.Context, msg model.ChatMessage) (model.ChatAnalysis, bool)
}

// AssessmentService exposes scoring, clustering and chat analysis to the rest of the system
type AssessmentService struct {
	predictor   ScorePredictor
	clusterer   ClusterBackend
	chat        ChatAnalyzer
	assigner    *ClusterAssigner
	catalog     *CatalogStore
	states      cache.ClusterStateCache
	risk        cache.RiskBoardCache
	predictions repository.PredictionRepo
	crisis      *CrisisService
	log         *slog.Logger
	now         func() time.Time
}

// NewAssessmentService creates a new assessment service. risk may be nil.
func NewAssessmentService(
	predictor ScorePredictor,
	clusterer ClusterBackend,
	chat ChatAnalyzer,
	assigner *ClusterAssigner,
	catalog *CatalogStore,
	states cache.ClusterStateCache,
	risk cache.RiskBoardCache,
	predictions repository.PredictionRepo,
	crisis *CrisisService,
) *AssessmentService {
	return &AssessmentService{
		predictor:   predictor,
		clusterer:   clusterer,
		chat:        chat,
		assigner:    assigner,
		catalog:     catalog,
		states:      states,
		risk:        risk,
		predictions: predictions,
		crisis:      crisis,
		log:         logging.New("assessment"),
		now:         time.Now,
	}
}

// GetScores returns the score vector for input. A backend outage yields heuristic scores
// with UsedFallback set, never an error.
func (s *AssessmentService) GetScores(ctx context.Context, input model.AssessmentInput) model.ScoreResult {
	res, _ := s.predictor.Predict(ctx, input)
	return res
}

// GetCluster assigns scores to a cluster. Learned centroids are used locally when
// published; otherwise the clustering backend is asked, with the fixed scheme as fallback.
func (s *AssessmentService) GetCluster(ctx context.Context, scores model.ScoreVector) model.ClusterAssignmentResult {
	catalog := s.catalog.Load()
	if catalog.HasCentroids() {
		return s.assigner.Assign(scores, catalog)
	}
	res, _ := s.clusterer.Assign(ctx, model.ClusterRequest{Scores: scores})
	return res
}

// RecordCluster moves the user's current-cluster pointer and returns the transition when
// the cluster changed. Unclassified results leave the pointer where it was.
func (s *AssessmentService) RecordCluster(ctx context.Context, userID string, res model.ClusterAssignmentResult) (*model.ClusterTransition, error) {
	if res.Unclassified || res.ClusterIdentifier == "" {
		return nil, nil
	}

	now := s.now()
	before, changed, err := s.states.Advance(ctx, userID, res.ClusterIdentifier, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update cluster pointer: %w", err)
	}
	if !changed {
		return nil, nil
	}

	t := &model.ClusterTransition{
		ID:         uuid.New().String(),
		UserID:     userID,
		From:       before.Current,
		To:         res.ClusterIdentifier,
		Direction:  ClassifyTransition(before.Current, res.ClusterIdentifier),
		OccurredAt: now,
	}
	if err := s.predictions.SaveTransition(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save transition: %w", err)
	}
	s.log.Info("cluster transition", "user_id", userID, "from", t.From, "to", t.To, "direction", t.Direction)
	return t, nil
}

// Assess runs scoring and clustering for a user and persists the prediction record
func (s *AssessmentService) Assess(ctx context.Context, userID string, input model.AssessmentInput) (*model.PredictionRecord, error) {
	if err := ValidateQuestionnaires(input.Questionnaires); err != nil {
		return nil, err
	}

	score := s.GetScores(ctx, input)
	cluster := s.GetCluster(ctx, score.Scores)

	// The record goes first so a moved pointer always has a prediction behind it
	record := &model.PredictionRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		Score:     score,
		Cluster:   cluster,
		CreatedAt: s.now(),
	}
	if err := s.predictions.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save prediction: %w", err)
	}

	transition, err := s.RecordCluster(ctx, userID, cluster)
	if err != nil {
		return nil, err
	}
	if transition != nil {
		record.Transition = transition
		if err := s.predictions.AttachTransition(ctx, record.ID, transition); err != nil {
			s.log.Warn("failed to link transition to prediction", "prediction_id", record.ID, "error", err)
		}
	}
	if s.risk != nil {
		if err := s.risk.Update(ctx, userID, score.Scores.OverallRisk()); err != nil {
			s.log.Warn("failed to update risk board", "user_id", userID, "error", err)
		}
	}
	return record, nil
}

// AtRisk lists users by the overall risk of their latest assessment, highest first
func (s *AssessmentService) AtRisk(ctx context.Context, limit int) ([]cache.RiskEntry, error) {
	if s.risk == nil {
		return []cache.RiskEntry{}, nil
	}
	return s.risk.Top(ctx, limit)
}

// RiskRank is the user's 1-indexed position on the risk board, -1 when not ranked
func (s *AssessmentService) RiskRank(ctx context.Context, userID string) (int64, error) {
	if s.risk == nil {
		return -1, nil
	}
	return s.risk.Rank(ctx, userID)
}

// History returns a user's recent prediction records and every recorded transition
func (s *AssessmentService) History(ctx context.Context, userID string, limit int64) ([]*model.PredictionRecord, []*model.ClusterTransition, error) {
	records, err := s.predictions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, nil, err
	}
	transitions, err := s.predictions.ListTransitions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return records, transitions, nil
}

// CurrentCluster returns the user's current and previous cluster, nil if never assigned
func (s *AssessmentService) CurrentCluster(ctx context.Context, userID string) (*model.UserClusterState, error) {
	return s.states.Get(ctx, userID)
}

// AnalyzeChat sends a message to the chat backend and applies crisis escalation
func (s *AssessmentService) AnalyzeChat(ctx context.Context, turn model.ChatTurn, msg model.ChatMessage) (*model.ChatResult, error) {
	analysis, usedFallback := s.chat.Analyze(ctx, msg)

	signal, alert, err := s.crisis.Process(ctx, turn, analysis)
	if err != nil {
		return nil, err
	}
	return &model.ChatResult{
		Analysis:     analysis,
		Signal:       signal,
		Alert:        alert,
		UsedFallback: usedFallback,
	}, nil
}
