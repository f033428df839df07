package model

import (
	"fmt"
	"math"
)

// ScoreVector is the (stress, depression, anxiety) triple produced by a risk assessment.
// Every dimension is bounded to [0, 1].
type ScoreVector struct {
	Stress     float64 `json:"stress" bson:"stress"`
	Depression float64 `json:"depression" bson:"depression"`
	Anxiety    float64 `json:"anxiety" bson:"anxiety"`
}

// NewScoreVector builds a vector with every dimension clamped to [0, 1]
func NewScoreVector(stress, depression, anxiety float64) ScoreVector {
	return ScoreVector{
		Stress:     Clamp01(stress),
		Depression: Clamp01(depression),
		Anxiety:    Clamp01(anxiety),
	}
}

// OverallRisk is the mean of the three dimensions
func (v ScoreVector) OverallRisk() float64 {
	return (v.Stress + v.Depression + v.Anxiety) / 3
}

// Get returns the score for a category
func (v ScoreVector) Get(c Category) float64 {
	switch c {
	case CategoryStress:
		return v.Stress
	case CategoryDepression:
		return v.Depression
	case CategoryAnxiety:
		return v.Anxiety
	}
	panic(fmt.Sprintf("model: unknown category %q", c))
}

// Sub returns v - o per dimension (not clamped; deltas may be negative)
func (v ScoreVector) Sub(o ScoreVector) ScoreVector {
	return ScoreVector{
		Stress:     v.Stress - o.Stress,
		Depression: v.Depression - o.Depression,
		Anxiety:    v.Anxiety - o.Anxiety,
	}
}

// SquaredDistance is the squared Euclidean distance between two vectors
func (v ScoreVector) SquaredDistance(o ScoreVector) float64 {
	d := v.Sub(o)
	return d.Stress*d.Stress + d.Depression*d.Depression + d.Anxiety*d.Anxiety
}

// Valid reports whether every dimension is a finite number inside [0, 1]
func (v ScoreVector) Valid() bool {
	for _, x := range []float64{v.Stress, v.Depression, v.Anxiety} {
		if math.IsNaN(x) || x < 0 || x > 1 {
			return false
		}
	}
	return true
}

// Clamp01 bounds x to [0, 1]; NaN maps to 0
func Clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
