package service

import (
	"context"

	"wellmind/internal/model"
)

// AlertNotifier delivers escalated crisis alerts to professionals (implemented by the ws hub)
type AlertNotifier interface {
	NotifyAlert(ctx context.Context, alert *model.Alert) error
	NotifyAcknowledged(ctx context.Context, alert *model.Alert) error
}
