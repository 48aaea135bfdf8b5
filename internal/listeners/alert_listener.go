package listeners

import (
	"CompanionGuard/pkg/crisis"
	"CompanionGuard/pkg/sse"

	"go.uber.org/zap"
)

// EventAlertPrefix 推送给专业人员面板的事件名前缀，后接警报状态
const EventAlertPrefix = "alert."

// AlertEvents returns a manager listener that pushes every stored alert
// version to the dashboards connected to hub. The payload is the alert
// record only, never the conversation text.
func AlertEvents(hub *sse.Hub, logger *zap.Logger) func(crisis.CrisisAlert) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(alert crisis.CrisisAlert) {
		ev, err := hub.PublishJSON(EventAlertPrefix+string(alert.Status()), "", alert)
		if err != nil {
			logger.Warn("publish alert event failed", zap.String("alert_id", alert.ID), zap.Error(err))
			return
		}
		logger.Debug("alert event published",
			zap.String("alert_id", alert.ID),
			zap.String("event", ev.Name),
			zap.Uint64("event_id", ev.ID),
		)
	}
}

// ImmediateAlerts calls fn for newly created immediate alerts only.
func ImmediateAlerts(fn func(crisis.CrisisAlert)) func(crisis.CrisisAlert) {
	return func(alert crisis.CrisisAlert) {
		if alert.Severity == crisis.SeverityImmediate && alert.Status() == crisis.StatusCreated {
			fn(alert)
		}
	}
}
