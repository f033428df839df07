package model

import "time"

// BackendName identifies one of the remote ML services
type BackendName string

const (
	BackendPrediction BackendName = "prediction"
	BackendClustering BackendName = "clustering"
	BackendChat       BackendName = "chat"
	BackendSynthetic  BackendName = "synthetic"
)

// BackendNames lists every backend the service talks to
var BackendNames = []BackendName{BackendPrediction, BackendClustering, BackendChat, BackendSynthetic}

// BackendHealth is transient per-backend health state
type BackendHealth struct {
	Name            BackendName `json:"name"`
	Enabled         bool        `json:"enabled"`
	LastCheckResult bool        `json:"lastCheckResult"`
	LastCheckedAt   time.Time   `json:"lastCheckedAt"`
	LatencyMS       int64       `json:"latencyMs"`
}

// Healthy reports whether the backend is enabled and passed its last probe
func (h BackendHealth) Healthy() bool {
	return h.Enabled && h.LastCheckResult
}

// AggregateStatus summarises the health of all backends
type AggregateStatus string

const (
	StatusUp      AggregateStatus = "UP"
	StatusPartial AggregateStatus = "PARTIAL"
	StatusDown    AggregateStatus = "DOWN"
)

// HealthReport is the aggregate view returned by health endpoints
type HealthReport struct {
	Status    AggregateStatus `json:"status"`
	Backends  []BackendHealth `json:"backends"`
	CheckedAt time.Time       `json:"checkedAt"`
}

// Questionnaires holds raw instrument responses. A nil slice means not collected.
type Questionnaires struct {
	PSS  []int `json:"pss,omitempty" bson:"pss,omitempty"`   // 10 items, 0..4
	PHQ9 []int `json:"phq9,omitempty" bson:"phq9,omitempty"` // 9 items, 0..3
	GAD7 []int `json:"gad7,omitempty" bson:"gad7,omitempty"` // 7 items, 0..3
}

// WearableSummary is a time-series summary from a wearable device
type WearableSummary struct {
	Date          string  `json:"date"`
	SleepHours    float64 `json:"sleepHours"`
	Steps         int     `json:"steps"`
	RestingHR     float64 `json:"restingHr"`
	HRVariability float64 `json:"hrVariability"`
}

// Demographics is the optional demographic part of a feature bundle
type Demographics struct {
	Age        int    `json:"age,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Occupation string `json:"occupation,omitempty"`
}

// AssessmentInput is the feature bundle sent to the prediction backend
type AssessmentInput struct {
	Questionnaires Questionnaires    `json:"questionnaires"`
	Wearables      []WearableSummary `json:"wearables,omitempty"`
	Demographics   *Demographics     `json:"demographics,omitempty"`
}

// PredictionResponse is returned by the prediction backend. Scores is nil when the
// reply carried no score vector.
type PredictionResponse struct {
	Scores            *ScoreVector       `json:"scores"`
	Confidence        float64            `json:"confidence"`
	FeatureImportance map[string]float64 `json:"featureImportance,omitempty"`
	ModelVersion      string             `json:"modelVersion,omitempty"`
}

// ScoreResult is what callers receive from getScores
type ScoreResult struct {
	Scores            ScoreVector        `json:"scores" bson:"scores"`
	UsedFallback      bool               `json:"usedFallback" bson:"usedFallback"`
	Confidence        float64            `json:"confidence" bson:"confidence"`
	DataQualityScore  float64            `json:"dataQualityScore" bson:"dataQualityScore"`
	Defaulted         []Category         `json:"defaulted,omitempty" bson:"defaulted,omitempty"`
	FeatureImportance map[string]float64 `json:"featureImportance,omitempty" bson:"featureImportance,omitempty"`
	Warnings          []string           `json:"warnings,omitempty" bson:"warnings,omitempty"`
}

// ClusterRequest is sent to the clustering backend
type ClusterRequest struct {
	Scores     ScoreVector `json:"scores"`
	Resilience *float64    `json:"resilience,omitempty"`
	Engagement *float64    `json:"engagement,omitempty"`
}

// ClusterResponse is returned by the clustering backend
type ClusterResponse struct {
	ClusterID             string             `json:"clusterId"`
	Probabilities         map[string]float64 `json:"probabilities"`
	RecommendedActivities []string           `json:"recommendedActivities,omitempty"`
}

// CentroidsResponse is returned by the clustering backend's centroid export
type CentroidsResponse struct {
	Clusters  []ClusterDefinition `json:"clusters"`
	TrainedAt time.Time           `json:"trainedAt"`
}

// ChatMessage is a user utterance plus the context the chat backend needs
type ChatMessage struct {
	Text    string   `json:"text"`
	Context []string `json:"context,omitempty"` // previous turns, oldest first
}

// ChatAnalysis is returned by the chat/NLP backend
type ChatAnalysis struct {
	Sentiment   float64  `json:"sentiment"` // -1..1
	Intent      string   `json:"intent"`
	CrisisLevel string   `json:"crisisLevel"`
	Indicators  []string `json:"indicators,omitempty"`
	Response    string   `json:"response"`
	Warning     string   `json:"warning,omitempty"`
}

// ChatResult is what callers receive after a chat turn is analysed
type ChatResult struct {
	Analysis     ChatAnalysis `json:"analysis"`
	Signal       CrisisSignal `json:"signal"`
	Alert        *Alert       `json:"alert,omitempty"`
	UsedFallback bool         `json:"usedFallback"`
}

// SimulationRequest asks the synthetic backend for simulated post-scores
type SimulationRequest struct {
	InterventionID string      `json:"interventionId"`
	PreScores      ScoreVector `json:"preScores"`
	Weeks          int         `json:"weeks,omitempty"`
}

// SimulationResponse is returned by the synthetic backend
type SimulationResponse struct {
	PostScores      *ScoreVector `json:"postScores"`
	ConfidenceScore float64      `json:"confidenceScore"`
	NoiseLevel      float64      `json:"noiseLevel"`
}

// GenerationRequest asks the synthetic backend for generated assessment records
type GenerationRequest struct {
	Count    int         `json:"count"`
	Baseline ScoreVector `json:"baseline"`
	Seed     int64       `json:"seed,omitempty"`
}

// GenerationResponse carries generated score vectors
type GenerationResponse struct {
	Records    []ScoreVector `json:"records"`
	NoiseLevel float64       `json:"noiseLevel"`
}

// PredictionRecord is a persisted scoring event
type PredictionRecord struct {
	ID         string                  `json:"id" bson:"_id"`
	UserID     string                  `json:"userId" bson:"userId"`
	Score      ScoreResult             `json:"score" bson:"score"`
	Cluster    ClusterAssignmentResult `json:"cluster" bson:"cluster"`
	Transition *ClusterTransition      `json:"transition,omitempty" bson:"transition,omitempty"`
	CreatedAt  time.Time               `json:"createdAt" bson:"createdAt"`
}
