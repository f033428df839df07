package model

import "time"

// CrisisLevel is the severity of a crisis signal in a chat turn
type CrisisLevel string

const (
	CrisisNone     CrisisLevel = "NONE"
	CrisisLow      CrisisLevel = "LOW"
	CrisisMedium   CrisisLevel = "MEDIUM"
	CrisisHigh     CrisisLevel = "HIGH"
	CrisisCritical CrisisLevel = "CRITICAL"
)

// Recommended actions attached to a crisis signal
const (
	ActionLogOnly                 = "log_only"
	ActionNotifyProfessional      = "notify_professional"
	ActionNotifyProfessionalAndEC = "notify_professional_and_emergency_contact"
)

// CrisisSignal is the policy decision for one chat turn
type CrisisSignal struct {
	Level             CrisisLevel `json:"level" bson:"level"`
	Indicators        []string    `json:"indicators" bson:"indicators"` // sorted, de-duplicated
	RecommendedAction string      `json:"recommendedAction" bson:"recommendedAction"`
	Escalate          bool        `json:"escalate" bson:"escalate"`
}

// ChatTurn identifies a single message within a conversation
type ChatTurn struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	TurnID         string `json:"turnId"`
}

// Alert is raised for delivery to the notification collaborator when a turn escalates
type Alert struct {
	ID                string      `json:"id" bson:"_id"`
	TurnKey           string      `json:"turnKey" bson:"turnKey"` // conversationId:turnId, unique
	UserID            string      `json:"userId" bson:"userId"`
	ConversationID    string      `json:"conversationId" bson:"conversationId"`
	TurnID            string      `json:"turnId" bson:"turnId"`
	IsCrisis          bool        `json:"isCrisis" bson:"isCrisis"`
	SeverityLevel     CrisisLevel `json:"severityLevel" bson:"severityLevel"`
	Indicators        []string    `json:"indicators" bson:"indicators"`
	RecommendedAction string      `json:"recommendedAction" bson:"recommendedAction"`
	Acknowledged      bool        `json:"acknowledged" bson:"acknowledged"`
	AcknowledgedBy    string      `json:"acknowledgedBy,omitempty" bson:"acknowledgedBy,omitempty"`
	AcknowledgedAt    *time.Time  `json:"acknowledgedAt,omitempty" bson:"acknowledgedAt,omitempty"`
	CreatedAt         time.Time   `json:"createdAt" bson:"createdAt"`
}

// TurnKey builds the idempotency key for a conversation turn
func TurnKey(conversationID, turnID string) string {
	return conversationID + ":" + turnID
}
