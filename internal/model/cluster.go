package model

import (
	"fmt"
	"strings"
	"time"
)

// Category is the clinical dimension a cluster is organised around
type Category string

const (
	CategoryStress     Category = "STRESS"
	CategoryDepression Category = "DEPRESSION"
	CategoryAnxiety    Category = "ANXIETY"
)

// Categories lists every category in tie-break priority order
var Categories = []Category{CategoryStress, CategoryDepression, CategoryAnxiety}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryStress, CategoryDepression, CategoryAnxiety:
		return true
	}
	return false
}

// Level is the severity band inside a category
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Levels lists every level from least to most severe
var Levels = []Level{LevelLow, LevelMedium, LevelHigh}

// Ordinal ranks severity: LOW=1, MEDIUM=2, HIGH=3, anything else 0
func (l Level) Ordinal() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	}
	return 0
}

// Valid reports whether l is one of the known levels
func (l Level) Valid() bool {
	return l.Ordinal() > 0
}

// UnclassifiedID is the identifier reported when a score falls between the fixed bands
const UnclassifiedID = "UNCLASSIFIED"

// ClusterID is one of the nine canonical (category, level) clusters
type ClusterID struct {
	Category Category `json:"category" bson:"category"`
	Level    Level    `json:"level" bson:"level"`
}

// String renders the canonical "{category}_{level}" identifier
func (id ClusterID) String() string {
	return string(id.Category) + "_" + string(id.Level)
}

// Valid reports whether both halves of the identifier are known values
func (id ClusterID) Valid() bool {
	return id.Category.Valid() && id.Level.Valid()
}

// ParseClusterID parses a "{category}_{level}" identifier
func ParseClusterID(s string) (ClusterID, error) {
	cat, lvl, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(s)), "_")
	if !ok {
		return ClusterID{}, fmt.Errorf("invalid cluster identifier %q", s)
	}
	id := ClusterID{Category: Category(cat), Level: Level(lvl)}
	if !id.Valid() {
		return ClusterID{}, fmt.Errorf("invalid cluster identifier %q", s)
	}
	return id, nil
}

// CanonicalClusters returns the nine fixed-scheme identifiers
func CanonicalClusters() []ClusterID {
	ids := make([]ClusterID, 0, len(Categories)*len(Levels))
	for _, c := range Categories {
		for _, l := range Levels {
			ids = append(ids, ClusterID{Category: c, Level: l})
		}
	}
	return ids
}

// ClusterDefinition is one learned (GMM-style) cluster
type ClusterDefinition struct {
	ID         string      `json:"id" bson:"id"`
	Canonical  *ClusterID  `json:"canonical,omitempty" bson:"canonical,omitempty"` // optional mapping onto the fixed scheme
	Centroid   ScoreVector `json:"centroid" bson:"centroid"`
	Covariance []float64   `json:"covariance,omitempty" bson:"covariance,omitempty"` // diagonal
	Weight     float64     `json:"weight" bson:"weight"`
	Active     bool        `json:"active" bson:"active"`
}

// ClusterCatalog is an immutable snapshot of learned clusters.
// Never mutate a catalog after it has been published.
type ClusterCatalog struct {
	Version     int64               `json:"version"`
	Definitions []ClusterDefinition `json:"definitions"`
	TrainedAt   time.Time           `json:"trainedAt"`
}

// HasCentroids reports whether the learned scheme can be used
func (c *ClusterCatalog) HasCentroids() bool {
	if c == nil {
		return false
	}
	for _, d := range c.Definitions {
		if d.Active {
			return true
		}
	}
	return false
}

// ClusterAssignmentResult is the outcome of mapping a ScoreVector to a cluster
type ClusterAssignmentResult struct {
	ClusterIdentifier     string             `json:"clusterIdentifier" bson:"clusterIdentifier"`
	Cluster               *ClusterID         `json:"cluster,omitempty" bson:"cluster,omitempty"`
	DominantCategory      Category           `json:"dominantCategory,omitempty" bson:"dominantCategory,omitempty"`
	MembershipConfidence  float64            `json:"membershipConfidence" bson:"membershipConfidence"`
	Probabilities         map[string]float64 `json:"probabilities,omitempty" bson:"probabilities,omitempty"`
	IsFallback            bool               `json:"isFallback" bson:"isFallback"`
	IsBoundaryCase        bool               `json:"isBoundaryCase" bson:"isBoundaryCase"`
	Unclassified          bool               `json:"unclassified" bson:"unclassified"`
	RecommendedActivities []string           `json:"recommendedActivities,omitempty" bson:"recommendedActivities,omitempty"`
}

// TransitionDirection describes how a user's cluster moved
type TransitionDirection string

const (
	TransitionImproving     TransitionDirection = "IMPROVING"
	TransitionWorsening     TransitionDirection = "WORSENING"
	TransitionLateral       TransitionDirection = "LATERAL"
	TransitionCategoryShift TransitionDirection = "CATEGORY_SHIFT"
)

// ClusterTransition records a change of a user's current cluster
type ClusterTransition struct {
	ID         string              `json:"id" bson:"_id"`
	UserID     string              `json:"userId" bson:"userId"`
	From       string              `json:"from" bson:"from"`
	To         string              `json:"to" bson:"to"`
	Direction  TransitionDirection `json:"direction" bson:"direction"`
	OccurredAt time.Time           `json:"occurredAt" bson:"occurredAt"`
}

// UserClusterState is a user's current-cluster pointer plus the one before it
type UserClusterState struct {
	UserID    string    `json:"userId"`
	Current   string    `json:"current"`
	Previous  string    `json:"previous,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
