package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"wellmind/internal/cache"
	"wellmind/internal/logging"
	"wellmind/internal/model"
	"wellmind/internal/repository"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidTurn = errors.New("conversation and turn ids are required for escalation")
)

// ParseCrisisLevel normalises a backend crisis level. Unknown values read as NONE.
func ParseCrisisLevel(s string) model.CrisisLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return model.CrisisLow
	case "MEDIUM", "MODERATE":
		return model.CrisisMedium
	case "HIGH":
		return model.CrisisHigh
	case "CRITICAL", "SEVERE":
		return model.CrisisCritical
	}
	return model.CrisisNone
}

// EvaluateCrisis applies the escalation policy to a chat analysis.
// Detection belongs to the chat backend; this only decides what to do about it.
func EvaluateCrisis(analysis model.ChatAnalysis) model.CrisisSignal {
	level := ParseCrisisLevel(analysis.CrisisLevel)
	signal := model.CrisisSignal{
		Level:             level,
		Indicators:        normalizeIndicators(analysis.Indicators),
		RecommendedAction: model.ActionLogOnly,
	}
	switch level {
	case model.CrisisHigh:
		signal.RecommendedAction = model.ActionNotifyProfessional
		signal.Escalate = true
	case model.CrisisCritical:
		signal.RecommendedAction = model.ActionNotifyProfessionalAndEC
		signal.Escalate = true
	}
	return signal
}

func normalizeIndicators(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// CrisisService turns escalating signals into exactly one alert per conversation turn
type CrisisService struct {
	claims   cache.AlertCache
	alerts   repository.AlertRepo
	notifier AlertNotifier
	log      *slog.Logger
	now      func() time.Time
}

// NewCrisisService creates a crisis service. claims and notifier may be nil.
func NewCrisisService(claims cache.AlertCache, alerts repository.AlertRepo, notifier AlertNotifier) *CrisisService {
	return &CrisisService{
		claims:   claims,
		alerts:   alerts,
		notifier: notifier,
		log:      logging.New("crisis"),
		now:      time.Now,
	}
}

// Process evaluates the analysis for one turn. When it escalates, the alert for that turn
// is created on first sight and returned unchanged on every later evaluation; professionals
// are notified once.
func (s *CrisisService) Process(ctx context.Context, turn model.ChatTurn, analysis model.ChatAnalysis) (model.CrisisSignal, *model.Alert, error) {
	signal := EvaluateCrisis(analysis)
	if !signal.Escalate {
		if signal.Level != model.CrisisNone {
			s.log.Info("crisis signal logged", "user_id", turn.UserID, "level", signal.Level)
		}
		return signal, nil, nil
	}
	if turn.ConversationID == "" || turn.TurnID == "" {
		return signal, nil, ErrInvalidTurn
	}

	key := model.TurnKey(turn.ConversationID, turn.TurnID)
	claimed := true
	if s.claims != nil {
		ok, err := s.claims.Claim(ctx, key)
		if err != nil {
			s.log.Warn("alert claim unavailable, relying on store", "turn", key, "error", err)
		} else {
			claimed = ok
		}
	}

	if !claimed {
		existing, err := s.alerts.GetByTurnKey(ctx, key)
		if err != nil {
			return signal, nil, fmt.Errorf("failed to load alert: %w", err)
		}
		if existing != nil {
			return signal, existing, nil
		}
		// Claimed earlier but never stored; fall through and let the store decide
	}

	alert := &model.Alert{
		ID:                uuid.New().String(),
		TurnKey:           key,
		UserID:            turn.UserID,
		ConversationID:    turn.ConversationID,
		TurnID:            turn.TurnID,
		IsCrisis:          true,
		SeverityLevel:     signal.Level,
		Indicators:        signal.Indicators,
		RecommendedAction: signal.RecommendedAction,
		CreatedAt:         s.now(),
	}
	stored, created, err := s.alerts.InsertIfAbsent(ctx, alert)
	if err != nil {
		if claimed && s.claims != nil {
			if relErr := s.claims.Release(ctx, key); relErr != nil {
				s.log.Warn("failed to release alert claim", "turn", key, "error", relErr)
			}
		}
		return signal, nil, fmt.Errorf("failed to store alert: %w", err)
	}
	if !created {
		return signal, stored, nil
	}

	s.log.Warn("crisis escalated",
		"alert_id", stored.ID,
		"user_id", stored.UserID,
		"level", stored.SeverityLevel,
		"action", stored.RecommendedAction,
	)
	if s.notifier != nil {
		if err := s.notifier.NotifyAlert(ctx, stored); err != nil {
			s.log.Error("failed to notify professionals", "alert_id", stored.ID, "error", err)
		}
	}
	return signal, stored, nil
}

// Acknowledge marks an alert as handled by a professional
func (s *CrisisService) Acknowledge(ctx context.Context, alertID, professionalID string) (*model.Alert, error) {
	alert, err := s.alerts.Acknowledge(ctx, alertID, professionalID, s.now())
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, ErrNotFound
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyAcknowledged(ctx, alert); err != nil {
			s.log.Warn("failed to broadcast acknowledgement", "alert_id", alert.ID, "error", err)
		}
	}
	return alert, nil
}

// ListOpen returns unacknowledged alerts, newest first
func (s *CrisisService) ListOpen(ctx context.Context, limit int64) ([]*model.Alert, error) {
	alerts, err := s.alerts.ListOpen(ctx, limit)
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []*model.Alert{}
	}
	return alerts, nil
}
