package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"wellmind/internal/config"
	"wellmind/internal/logging"
	"wellmind/internal/model"
)

// Fallback tuning
const (
	heuristicConfidence  = 0.5
	simulationNoise      = 0.05
	simulationConfidence = 0.3
)

var errMissingScores = errors.New("response without score vector")

const (
	warnPredictionDegraded = "prediction service unavailable: scores computed from questionnaire heuristics"
	warnChatDegraded       = "service degraded: chat analysis unavailable, crisis detection not performed"
	supportiveMessage      = "Thank you for sharing that with me. I'm having trouble responding fully right now, " +
		"but what you're feeling matters. If you are in danger or thinking about harming yourself, " +
		"please contact your local emergency number or a crisis line right away."
)

// PredictionClient talks to the risk-prediction backend
type PredictionClient struct {
	gw *Gateway
}

// NewPredictionClient wraps a gateway for the prediction backend
func NewPredictionClient(gw *Gateway) *PredictionClient {
	return &PredictionClient{gw: gw}
}

// Predict returns a score vector for the feature bundle, falling back to questionnaire heuristics
func (c *PredictionClient) Predict(ctx context.Context, input model.AssessmentInput) (model.ScoreResult, bool) {
	resp, usedFallback := callWithFallback(ctx, c.gw, "/predict", input,
		func(r model.PredictionResponse) error {
			if r.Scores == nil {
				return errMissingScores
			}
			if !r.Scores.Valid() {
				return fmt.Errorf("prediction scores out of range: %+v", r.Scores)
			}
			return nil
		},
		func(model.AssessmentInput) model.PredictionResponse { return model.PredictionResponse{} },
	)
	if usedFallback {
		return heuristicScoreResult(input.Questionnaires), true
	}
	return model.ScoreResult{
		Scores:            *resp.Scores,
		Confidence:        model.Clamp01(resp.Confidence),
		DataQualityScore:  1,
		FeatureImportance: resp.FeatureImportance,
	}, false
}

func heuristicScoreResult(q model.Questionnaires) model.ScoreResult {
	h := HeuristicScores(q)
	res := model.ScoreResult{
		Scores:           h.Scores,
		UsedFallback:     true,
		Confidence:       heuristicConfidence * h.DataQualityScore,
		DataQualityScore: h.DataQualityScore,
		Defaulted:        h.Defaulted,
		Warnings:         []string{warnPredictionDegraded},
	}
	for _, c := range h.Defaulted {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%s questionnaire missing or incomplete: defaulted to %.1f", c, NeutralScore))
	}
	return res
}

// ClusteringClient talks to the peer-clustering backend
type ClusteringClient struct {
	gw *Gateway
}

// NewClusteringClient wraps a gateway for the clustering backend
func NewClusteringClient(gw *Gateway) *ClusteringClient {
	return &ClusteringClient{gw: gw}
}

// Assign asks the backend for a cluster; the fallback is the fixed threshold scheme
func (c *ClusteringClient) Assign(ctx context.Context, req model.ClusterRequest) (model.ClusterAssignmentResult, bool) {
	resp, usedFallback := callWithFallback(ctx, c.gw, "/cluster", req,
		func(r model.ClusterResponse) error {
			if r.ClusterID == "" {
				return errors.New("clustering response without cluster id")
			}
			return nil
		},
		func(model.ClusterRequest) model.ClusterResponse { return model.ClusterResponse{} },
	)
	if usedFallback {
		return AssignFixed(req.Scores), true
	}

	res := model.ClusterAssignmentResult{
		ClusterIdentifier:     resp.ClusterID,
		DominantCategory:      DominantCategory(req.Scores),
		MembershipConfidence:  model.Clamp01(resp.Probabilities[resp.ClusterID]),
		Probabilities:         resp.Probabilities,
		RecommendedActivities: resp.RecommendedActivities,
	}
	if id, err := model.ParseClusterID(resp.ClusterID); err == nil {
		res.ClusterIdentifier = id.String()
		res.Cluster = &id
	}
	return res, false
}

// Centroids fetches the learned cluster definitions. ok is false when the backend
// could not supply them; callers keep whatever catalog they already have.
func (c *ClusteringClient) Centroids(ctx context.Context) (model.CentroidsResponse, bool) {
	var resp model.CentroidsResponse
	if err := c.gw.do(ctx, "GET", "/clusters/centroids", nil, &resp); err != nil {
		c.gw.log.Warn("centroid export failed", "error", err)
		return model.CentroidsResponse{}, false
	}
	return resp, true
}

// ChatClient talks to the chat/NLP backend
type ChatClient struct {
	gw *Gateway
}

// NewChatClient wraps a gateway for the chat backend
func NewChatClient(gw *Gateway) *ChatClient {
	return &ChatClient{gw: gw}
}

// Analyze returns sentiment, intent, crisis level and a reply for a message
func (c *ChatClient) Analyze(ctx context.Context, msg model.ChatMessage) (model.ChatAnalysis, bool) {
	return callWithFallback(ctx, c.gw, "/analyze", msg, nil,
		func(model.ChatMessage) model.ChatAnalysis {
			return model.ChatAnalysis{
				Intent:      "unknown",
				CrisisLevel: string(model.CrisisNone),
				Response:    supportiveMessage,
				Warning:     warnChatDegraded,
			}
		},
	)
}

// SyntheticClient talks to the synthetic-data / simulation backend
type SyntheticClient struct {
	gw *Gateway

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticClient wraps a gateway for the synthetic backend; seed drives the local fallback
func NewSyntheticClient(gw *Gateway, seed uint64) *SyntheticClient {
	return &SyntheticClient{
		gw:  gw,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Simulate returns simulated post-intervention scores
func (c *SyntheticClient) Simulate(ctx context.Context, req model.SimulationRequest) (model.SimulationResponse, bool) {
	return callWithFallback(ctx, c.gw, "/simulate", req,
		func(r model.SimulationResponse) error {
			if r.PostScores == nil {
				return errMissingScores
			}
			if !r.PostScores.Valid() {
				return fmt.Errorf("simulated scores out of range: %+v", r.PostScores)
			}
			return nil
		},
		func(r model.SimulationRequest) model.SimulationResponse {
			c.mu.Lock()
			defer c.mu.Unlock()
			post := perturb(c.rng, r.PreScores, simulationNoise)
			return model.SimulationResponse{
				PostScores:      &post,
				ConfidenceScore: simulationConfidence,
				NoiseLevel:      simulationNoise,
			}
		},
	)
}

// Generate returns synthetic assessment records around a baseline
func (c *SyntheticClient) Generate(ctx context.Context, req model.GenerationRequest) (model.GenerationResponse, bool) {
	return callWithFallback(ctx, c.gw, "/generate", req, nil,
		func(r model.GenerationRequest) model.GenerationResponse {
			rng := rand.New(rand.NewPCG(uint64(r.Seed), uint64(r.Seed)))
			if r.Seed == 0 {
				c.mu.Lock()
				rng = rand.New(rand.NewPCG(c.rng.Uint64(), c.rng.Uint64()))
				c.mu.Unlock()
			}
			records := make([]model.ScoreVector, 0, max(r.Count, 0))
			for i := 0; i < r.Count; i++ {
				records = append(records, perturb(rng, r.Baseline, simulationNoise))
			}
			return model.GenerationResponse{Records: records, NoiseLevel: simulationNoise}
		},
	)
}

// perturb adds bounded gaussian noise to every dimension
func perturb(rng *rand.Rand, v model.ScoreVector, noise float64) model.ScoreVector {
	jitter := func() float64 {
		d := rng.NormFloat64() * noise
		limit := 2 * noise
		if d > limit {
			d = limit
		} else if d < -limit {
			d = -limit
		}
		return d
	}
	return model.NewScoreVector(v.Stress+jitter(), v.Depression+jitter(), v.Anxiety+jitter())
}

// Backends is the set of gateways, one per remote service
type Backends struct {
	Prediction *PredictionClient
	Clustering *ClusteringClient
	Chat       *ChatClient
	Synthetic  *SyntheticClient

	log *slog.Logger
}

// NewBackends builds every gateway from configuration
func NewBackends(cfg config.BackendsConfig) *Backends {
	return &Backends{
		Prediction: NewPredictionClient(NewGateway(model.BackendPrediction, cfg.Prediction)),
		Clustering: NewClusteringClient(NewGateway(model.BackendClustering, cfg.Clustering)),
		Chat:       NewChatClient(NewGateway(model.BackendChat, cfg.Chat)),
		Synthetic:  NewSyntheticClient(NewGateway(model.BackendSynthetic, cfg.Synthetic), uint64(time.Now().UnixNano())),
		log:        logging.New("backends"),
	}
}

func (b *Backends) gateways() []*Gateway {
	return []*Gateway{b.Prediction.gw, b.Clustering.gw, b.Chat.gw, b.Synthetic.gw}
}

// CheckAll probes every backend in parallel and returns the aggregate report
func (b *Backends) CheckAll(ctx context.Context) model.HealthReport {
	var g errgroup.Group
	for _, gw := range b.gateways() {
		g.Go(func() error {
			gw.HealthCheck(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return b.Snapshot()
}

// Snapshot reports the last known health without probing
func (b *Backends) Snapshot() model.HealthReport {
	gws := b.gateways()
	healths := make([]model.BackendHealth, 0, len(gws))
	for _, gw := range gws {
		healths = append(healths, gw.Health())
	}
	return model.HealthReport{
		Status:    AggregateStatus(healths),
		Backends:  healths,
		CheckedAt: time.Now(),
	}
}

// AllHealthy reports whether every backend passed its last probe
func (b *Backends) AllHealthy() bool {
	return AggregateStatus(b.Snapshot().Backends) == model.StatusUp
}

// AnyHealthy reports whether at least one backend passed its last probe
func (b *Backends) AnyHealthy() bool {
	return AggregateStatus(b.Snapshot().Backends) != model.StatusDown
}

// AggregateStatus is UP when all are healthy, DOWN when none are, PARTIAL otherwise
func AggregateStatus(healths []model.BackendHealth) model.AggregateStatus {
	healthy := 0
	for _, h := range healths {
		if h.Healthy() {
			healthy++
		}
	}
	switch {
	case len(healths) > 0 && healthy == len(healths):
		return model.StatusUp
	case healthy == 0:
		return model.StatusDown
	}
	return model.StatusPartial
}

// Poll probes all backends every interval until ctx is done, handing each report to sink.
// Run it in its own goroutine; it never blocks request handling.
func (b *Backends) Poll(ctx context.Context, interval time.Duration, sink func(context.Context, model.HealthReport)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, interval)
			report := b.CheckAll(probeCtx)
			cancel()
			if report.Status != model.StatusUp {
				b.log.Warn("backends degraded", "status", report.Status)
			}
			if sink != nil {
				sink(ctx, report)
			}
		}
	}
}
