package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"wellmind/internal/model"
	"wellmind/internal/repository"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

type fakeOutcomeRepo struct {
	mu         sync.Mutex
	outcomes   map[string]model.InterventionOutcome
	updates    int
	statsCalls int
}

func newFakeOutcomeRepo() *fakeOutcomeRepo {
	return &fakeOutcomeRepo{outcomes: make(map[string]model.InterventionOutcome)}
}

func (r *fakeOutcomeRepo) Create(_ context.Context, o *model.InterventionOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.outcomes[o.ID]; ok {
		return errors.New("duplicate id")
	}
	r.outcomes[o.ID] = *o
	return nil
}

func (r *fakeOutcomeRepo) GetByID(_ context.Context, id string) (*model.InterventionOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.outcomes[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *fakeOutcomeRepo) Update(_ context.Context, o *model.InterventionOutcome, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.outcomes[o.ID]
	if !ok || cur.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	r.outcomes[o.ID] = *o
	r.updates++
	return nil
}

func (r *fakeOutcomeRepo) ListByUser(_ context.Context, userID string) ([]*model.InterventionOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.InterventionOutcome
	for _, o := range r.outcomes {
		if o.UserID == userID {
			o := o
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (r *fakeOutcomeRepo) StatsByIntervention(_ context.Context) ([]*model.InterventionStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statsCalls++
	byID := map[string]*model.InterventionStats{}
	sums := map[string]float64{}
	for _, o := range r.outcomes {
		if o.IsSimulated {
			continue
		}
		st, ok := byID[o.InterventionID]
		if !ok {
			st = &model.InterventionStats{InterventionID: o.InterventionID}
			byID[o.InterventionID] = st
		}
		st.Started++
		switch o.Status {
		case model.OutcomeCompleted, model.OutcomePendingReview, model.OutcomeArchived:
			st.Completed++
			sums[o.InterventionID] += *o.OverallImprovement
		case model.OutcomeDroppedOut:
			st.DroppedOut++
		}
		if o.MetExpectedOutcome != nil && *o.MetExpectedOutcome {
			st.MetExpected++
		}
	}
	out := make([]*model.InterventionStats, 0, len(byID))
	for id, st := range byID {
		if st.Completed > 0 {
			mean := sums[id] / float64(st.Completed)
			st.MeanImprovement = &mean
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InterventionID < out[j].InterventionID })
	return out, nil
}

type fakeInterventionRepo struct {
	mu    sync.Mutex
	items map[string]model.Intervention
}

func newFakeInterventionRepo(items ...model.Intervention) *fakeInterventionRepo {
	r := &fakeInterventionRepo{items: make(map[string]model.Intervention)}
	for _, i := range items {
		r.items[i.ID] = i
	}
	return r
}

func (r *fakeInterventionRepo) GetByID(_ context.Context, id string) (*model.Intervention, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &i, nil
}

func (r *fakeInterventionRepo) Upsert(_ context.Context, i *model.Intervention) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[i.ID] = *i
	return nil
}

type fakePredictionRepo struct {
	mu          sync.Mutex
	records     []*model.PredictionRecord
	transitions []*model.ClusterTransition
	failSave    bool
}

func (r *fakePredictionRepo) Save(_ context.Context, rec *model.PredictionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave {
		return errors.New("insert failed")
	}
	stored := *rec
	r.records = append(r.records, &stored)
	return nil
}

func (r *fakePredictionRepo) AttachTransition(_ context.Context, recordID string, t *model.ClusterTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == recordID {
			rec.Transition = t
			return nil
		}
	}
	return errors.New("no such record")
}

func (r *fakePredictionRepo) ListByUser(_ context.Context, userID string, limit int64) ([]*model.PredictionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PredictionRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].UserID == userID {
			out = append(out, r.records[i])
		}
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakePredictionRepo) SaveTransition(_ context.Context, t *model.ClusterTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
	return nil
}

func (r *fakePredictionRepo) ListTransitions(_ context.Context, userID string) ([]*model.ClusterTransition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ClusterTransition
	for _, t := range r.transitions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeAlertRepo struct {
	mu       sync.Mutex
	byID     map[string]*model.Alert
	byTurn   map[string]*model.Alert
	inserts  int
	failNext bool
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{byID: make(map[string]*model.Alert), byTurn: make(map[string]*model.Alert)}
}

func (r *fakeAlertRepo) InsertIfAbsent(_ context.Context, a *model.Alert) (*model.Alert, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return nil, false, errors.New("mongo unavailable")
	}
	if existing, ok := r.byTurn[a.TurnKey]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *a
	r.byID[a.ID] = &cp
	r.byTurn[a.TurnKey] = &cp
	r.inserts++
	out := cp
	return &out, true, nil
}

func (r *fakeAlertRepo) GetByID(_ context.Context, id string) (*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAlertRepo) GetByTurnKey(_ context.Context, key string) (*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byTurn[key]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAlertRepo) ListOpen(_ context.Context, limit int64) ([]*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Alert
	for _, a := range r.byID {
		if !a.Acknowledged {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeAlertRepo) Acknowledge(_ context.Context, id, professionalID string, at time.Time) (*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	a.Acknowledged = true
	a.AcknowledgedBy = professionalID
	a.AcknowledgedAt = &at
	cp := *a
	return &cp, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []*model.Alert
	acks   []*model.Alert
}

func (n *fakeNotifier) NotifyAlert(_ context.Context, a *model.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return nil
}

func (n *fakeNotifier) NotifyAcknowledged(_ context.Context, a *model.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.acks = append(n.acks, a)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

type fixedResolver struct{}

func (fixedResolver) GetCluster(_ context.Context, scores model.ScoreVector) model.ClusterAssignmentResult {
	return AssignFixed(scores)
}

type fakeSimulator struct {
	post model.ScoreVector
}

func (f fakeSimulator) Simulate(_ context.Context, req model.SimulationRequest) (model.SimulationResponse, bool) {
	return model.SimulationResponse{PostScores: &f.post, ConfidenceScore: 0.8, NoiseLevel: 0.02}, false
}
