package service

import (
	"sort"

	"wellmind/internal/model"
)

// bandTolerance absorbs float noise at the closed band edges
const bandTolerance = 1e-9

// distanceFloor keeps inverse-distance weights finite when a score sits on a centroid
const distanceFloor = 1e-12

type band struct {
	level     model.Level
	low, high float64
}

// Fixed-scheme severity bands. Scores between bands are unclassified.
var fixedBands = []band{
	{model.LevelLow, 0.1, 0.3},
	{model.LevelMedium, 0.4, 0.7},
	{model.LevelHigh, 0.8, 1.0},
}

// LevelFor maps a score onto a fixed band; ok is false for scores in a gap
func LevelFor(score float64) (model.Level, bool) {
	for _, b := range fixedBands {
		if score >= b.low-bandTolerance && score <= b.high+bandTolerance {
			return b.level, true
		}
	}
	return "", false
}

// DominantCategory returns the highest-scoring dimension.
// Ties go to the earlier entry in model.Categories.
func DominantCategory(scores model.ScoreVector) model.Category {
	best := model.Categories[0]
	for _, c := range model.Categories[1:] {
		if scores.Get(c) > scores.Get(best) {
			best = c
		}
	}
	return best
}

// ClusterAssigner maps score vectors onto clusters
type ClusterAssigner struct {
	boundaryEpsilon float64
}

// NewClusterAssigner creates an assigner; boundaryEpsilon is the squared-distance gap
// under which the top two learned clusters are reported as a boundary case
func NewClusterAssigner(boundaryEpsilon float64) *ClusterAssigner {
	return &ClusterAssigner{boundaryEpsilon: boundaryEpsilon}
}

// Assign uses the learned scheme when the catalog has active centroids, else the fixed scheme
func (a *ClusterAssigner) Assign(scores model.ScoreVector, catalog *model.ClusterCatalog) model.ClusterAssignmentResult {
	if catalog.HasCentroids() {
		return a.assignLearned(scores, catalog)
	}
	return AssignFixed(scores)
}

// AssignFixed applies the fixed (category x severity) threshold scheme
func AssignFixed(scores model.ScoreVector) model.ClusterAssignmentResult {
	dominant := DominantCategory(scores)
	res := model.ClusterAssignmentResult{
		DominantCategory: dominant,
		IsFallback:       true,
	}

	level, ok := LevelFor(scores.Get(dominant))
	if !ok {
		res.ClusterIdentifier = model.UnclassifiedID
		res.Unclassified = true
		return res
	}

	id := model.ClusterID{Category: dominant, Level: level}
	res.ClusterIdentifier = id.String()
	res.Cluster = &id
	res.MembershipConfidence = dominanceMargin(scores, dominant)
	return res
}

// dominanceMargin is how far the dominant score stands above the runner-up, relative to itself
func dominanceMargin(scores model.ScoreVector, dominant model.Category) float64 {
	top := scores.Get(dominant)
	if top <= 0 {
		return 0
	}
	second := 0.0
	for _, c := range model.Categories {
		if c != dominant && scores.Get(c) > second {
			second = scores.Get(c)
		}
	}
	return model.Clamp01((top - second) / top)
}

type candidate struct {
	def  model.ClusterDefinition
	dist float64
}

func (a *ClusterAssigner) assignLearned(scores model.ScoreVector, catalog *model.ClusterCatalog) model.ClusterAssignmentResult {
	var cands []candidate
	for _, d := range catalog.Definitions {
		if d.Active {
			cands = append(cands, candidate{def: d, dist: scores.SquaredDistance(d.Centroid)})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })

	var total float64
	weights := make([]float64, len(cands))
	for i, c := range cands {
		weights[i] = 1 / (c.dist + distanceFloor)
		total += weights[i]
	}

	probs := make(map[string]float64, len(cands))
	for i, c := range cands {
		probs[learnedIdentifier(c.def)] += weights[i] / total
	}

	best := cands[0]
	res := model.ClusterAssignmentResult{
		ClusterIdentifier:    learnedIdentifier(best.def),
		DominantCategory:     DominantCategory(scores),
		MembershipConfidence: weights[0] / total,
		Probabilities:        probs,
	}
	if best.def.Canonical != nil && best.def.Canonical.Valid() {
		id := *best.def.Canonical
		res.Cluster = &id
	}
	if len(cands) > 1 && cands[1].dist-best.dist < a.boundaryEpsilon {
		res.IsBoundaryCase = true
	}
	return res
}

func learnedIdentifier(d model.ClusterDefinition) string {
	if d.Canonical != nil && d.Canonical.Valid() {
		return d.Canonical.String()
	}
	return d.ID
}

// ClassifyTransition derives the direction of a move between two cluster identifiers.
// Identifiers outside the canonical scheme cannot be ranked and are reported as lateral.
func ClassifyTransition(from, to string) model.TransitionDirection {
	f, errFrom := model.ParseClusterID(from)
	t, errTo := model.ParseClusterID(to)
	if errFrom != nil || errTo != nil {
		return model.TransitionLateral
	}
	if f.Category != t.Category {
		return model.TransitionCategoryShift
	}
	switch {
	case t.Level.Ordinal() < f.Level.Ordinal():
		return model.TransitionImproving
	case t.Level.Ordinal() > f.Level.Ordinal():
		return model.TransitionWorsening
	}
	return model.TransitionLateral
}
