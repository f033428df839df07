package service

import (
	"math"
	"testing"

	"wellmind/internal/model"
)

func TestDominantCategory(t *testing.T) {
	tests := []struct {
		name   string
		scores model.ScoreVector
		want   model.Category
	}{
		{"stress strictly highest", model.ScoreVector{Stress: 0.6, Depression: 0.5, Anxiety: 0.1}, model.CategoryStress},
		{"depression strictly highest", model.ScoreVector{Stress: 0.2, Depression: 0.21, Anxiety: 0.2}, model.CategoryDepression},
		{"anxiety strictly highest", model.ScoreVector{Stress: 0.9, Depression: 0.9, Anxiety: 0.95}, model.CategoryAnxiety},
		{"three-way tie goes to stress", model.ScoreVector{Stress: 0.5, Depression: 0.5, Anxiety: 0.5}, model.CategoryStress},
		{"depression-anxiety tie goes to depression", model.ScoreVector{Stress: 0.1, Depression: 0.7, Anxiety: 0.7}, model.CategoryDepression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DominantCategory(tt.scores); got != tt.want {
				t.Errorf("DominantCategory(%+v) = %s, want %s", tt.scores, got, tt.want)
			}
		})
	}
}

func TestAssignFixed_Bands(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.05, model.UnclassifiedID},
		{0.1, "ANXIETY_LOW"},
		{0.3, "ANXIETY_LOW"},
		{0.35, model.UnclassifiedID},
		{0.39, model.UnclassifiedID},
		{0.4, "ANXIETY_MEDIUM"},
		{0.7, "ANXIETY_MEDIUM"},
		{0.75, model.UnclassifiedID},
		{0.8, "ANXIETY_HIGH"},
		{1.0, "ANXIETY_HIGH"},
	}
	for _, tt := range tests {
		res := AssignFixed(model.ScoreVector{Anxiety: tt.score})
		if res.ClusterIdentifier != tt.want {
			t.Errorf("anxiety %.2f: identifier = %q, want %q", tt.score, res.ClusterIdentifier, tt.want)
		}
		if !res.IsFallback {
			t.Errorf("anxiety %.2f: fixed scheme result should be marked fallback", tt.score)
		}
		unclassified := tt.want == model.UnclassifiedID
		if res.Unclassified != unclassified {
			t.Errorf("anxiety %.2f: Unclassified = %v, want %v", tt.score, res.Unclassified, unclassified)
		}
		if unclassified && (res.Cluster != nil || res.MembershipConfidence != 0) {
			t.Errorf("anxiety %.2f: unclassified result carries a cluster or confidence: %+v", tt.score, res)
		}
	}
}

func TestAssignFixed_Confidence(t *testing.T) {
	res := AssignFixed(model.ScoreVector{Stress: 0.2, Depression: 0.9, Anxiety: 0.45})
	if res.Cluster == nil || res.Cluster.String() != "DEPRESSION_HIGH" {
		t.Fatalf("cluster = %v, want DEPRESSION_HIGH", res.Cluster)
	}
	want := (0.9 - 0.45) / 0.9
	if math.Abs(res.MembershipConfidence-want) > 1e-12 {
		t.Errorf("confidence = %v, want %v", res.MembershipConfidence, want)
	}
}

func learnedCatalog() *model.ClusterCatalog {
	stressHigh := model.ClusterID{Category: model.CategoryStress, Level: model.LevelHigh}
	return &model.ClusterCatalog{
		Version: 1,
		Definitions: []model.ClusterDefinition{
			{ID: "c0", Centroid: model.ScoreVector{Stress: 0.1, Depression: 0.1, Anxiety: 0.1}, Active: true},
			{ID: "c1", Canonical: &stressHigh, Centroid: model.ScoreVector{Stress: 0.9, Depression: 0.3, Anxiety: 0.4}, Active: true},
			{ID: "c2", Centroid: model.ScoreVector{Stress: 0.3, Depression: 0.8, Anxiety: 0.5}, Active: true},
			{ID: "retired", Centroid: model.ScoreVector{Stress: 0.5, Depression: 0.5, Anxiety: 0.5}, Active: false},
		},
	}
}

func TestAssignLearned_CentroidRoundTrip(t *testing.T) {
	a := NewClusterAssigner(0.01)
	catalog := learnedCatalog()

	for _, def := range catalog.Definitions {
		if !def.Active {
			continue
		}
		t.Run(def.ID, func(t *testing.T) {
			res := a.Assign(def.Centroid, catalog)
			if res.ClusterIdentifier != learnedIdentifier(def) {
				t.Errorf("identifier = %q, want %q", res.ClusterIdentifier, learnedIdentifier(def))
			}
			if res.IsBoundaryCase {
				t.Error("exact centroid match reported as boundary case")
			}
			if res.IsFallback {
				t.Error("learned assignment marked as fallback")
			}
			if res.MembershipConfidence < 0.999999 {
				t.Errorf("confidence = %v, want ~1", res.MembershipConfidence)
			}

			off := a.Assign(model.NewScoreVector(def.Centroid.Stress+0.05, def.Centroid.Depression, def.Centroid.Anxiety), catalog)
			if off.MembershipConfidence >= res.MembershipConfidence {
				t.Errorf("off-centroid confidence %v not below on-centroid %v", off.MembershipConfidence, res.MembershipConfidence)
			}
		})
	}
}

func TestAssignLearned_ProbabilitiesAndCanonical(t *testing.T) {
	a := NewClusterAssigner(0.01)
	res := a.Assign(model.ScoreVector{Stress: 0.85, Depression: 0.3, Anxiety: 0.4}, learnedCatalog())

	if res.ClusterIdentifier != "STRESS_HIGH" {
		t.Fatalf("identifier = %q, want STRESS_HIGH", res.ClusterIdentifier)
	}
	if res.Cluster == nil || res.Cluster.Level != model.LevelHigh {
		t.Errorf("canonical cluster = %v, want STRESS_HIGH", res.Cluster)
	}
	if _, ok := res.Probabilities["retired"]; ok {
		t.Error("inactive cluster appears in probabilities")
	}
	if len(res.Probabilities) != 3 {
		t.Errorf("got %d probabilities, want 3", len(res.Probabilities))
	}
	sum := 0.0
	for _, p := range res.Probabilities {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probabilities sum to %v", sum)
	}
}

func TestAssignLearned_BoundaryCase(t *testing.T) {
	catalog := &model.ClusterCatalog{
		Definitions: []model.ClusterDefinition{
			{ID: "a", Centroid: model.ScoreVector{Stress: 0.2, Depression: 0.5, Anxiety: 0.5}, Active: true},
			{ID: "b", Centroid: model.ScoreVector{Stress: 0.8, Depression: 0.5, Anxiety: 0.5}, Active: true},
		},
	}
	a := NewClusterAssigner(0.01)

	mid := a.Assign(model.ScoreVector{Stress: 0.5, Depression: 0.5, Anxiety: 0.5}, catalog)
	if !mid.IsBoundaryCase {
		t.Error("equidistant point should be a boundary case")
	}
	if mid.ClusterIdentifier != "a" {
		t.Errorf("tie should go to the first definition, got %q", mid.ClusterIdentifier)
	}

	near := a.Assign(model.ScoreVector{Stress: 0.25, Depression: 0.5, Anxiety: 0.5}, catalog)
	if near.IsBoundaryCase {
		t.Error("point near one centroid reported as boundary case")
	}
}

func TestAssign_EmptyCatalogUsesFixedScheme(t *testing.T) {
	a := NewClusterAssigner(0.01)
	res := a.Assign(model.ScoreVector{Stress: 0.5}, &model.ClusterCatalog{})
	if !res.IsFallback || res.ClusterIdentifier != "STRESS_MEDIUM" {
		t.Errorf("got %+v, want fixed-scheme STRESS_MEDIUM", res)
	}
}

func TestClassifyTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     model.TransitionDirection
	}{
		{"STRESS_HIGH", "STRESS_MEDIUM", model.TransitionImproving},
		{"STRESS_MEDIUM", "STRESS_LOW", model.TransitionImproving},
		{"ANXIETY_LOW", "ANXIETY_HIGH", model.TransitionWorsening},
		{"ANXIETY_LOW", "DEPRESSION_LOW", model.TransitionCategoryShift},
		{"DEPRESSION_HIGH", "STRESS_LOW", model.TransitionCategoryShift},
		{"c0", "c2", model.TransitionLateral},
		{"STRESS_LOW", "c2", model.TransitionLateral},
	}
	for _, tt := range tests {
		if got := ClassifyTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ClassifyTransition(%q, %q) = %s, want %s", tt.from, tt.to, got, tt.want)
		}
	}
}
