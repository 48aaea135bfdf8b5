package crisis

import (
	"strings"
	"time"
)

// AlertStatus is derived from which timestamps of an alert are set.
type AlertStatus string

const (
	StatusCreated  AlertStatus = "created"
	StatusNotified AlertStatus = "notified"
	StatusViewed   AlertStatus = "viewed"
	StatusResolved AlertStatus = "resolved"
)

// CrisisAlert 上报给专业人员的危机警报。值类型，状态迁移返回新值
type CrisisAlert struct {
	ID              string       `json:"id"`
	SubjectCode     string       `json:"subjectCode"`
	ConversationID  string       `json:"conversationId,omitempty"`
	Severity        RiskSeverity `json:"severity"`
	TriggerReason   string       `json:"triggerReason"`
	CreatedAt       time.Time    `json:"createdAt"`
	NotifiedAt      *time.Time   `json:"notifiedAt,omitempty"`
	ViewedAt        *time.Time   `json:"viewedAt,omitempty"`
	ResolvedAt      *time.Time   `json:"resolvedAt,omitempty"`
	ResolutionNotes *string      `json:"resolutionNotes,omitempty"`
}

// Status derives the lifecycle state from the timestamp fields.
func (a CrisisAlert) Status() AlertStatus {
	switch {
	case a.ResolvedAt != nil:
		return StatusResolved
	case a.ViewedAt != nil:
		return StatusViewed
	case a.NotifiedAt != nil:
		return StatusNotified
	default:
		return StatusCreated
	}
}

// NewAlert validates and builds a fresh alert. Distressed and none never
// raise an alert by themselves.
func NewAlert(id, subjectCode string, severity RiskSeverity, triggerReason string, now time.Time) (CrisisAlert, error) {
	if !severity.Alertable() {
		return CrisisAlert{}, ErrInvalidSeverity.WithContext("severity", severity.String())
	}
	if strings.TrimSpace(subjectCode) == "" {
		return CrisisAlert{}, ErrInvalidSubject.WithContext("alert_id", id)
	}
	return CrisisAlert{
		ID:            id,
		SubjectCode:   subjectCode,
		Severity:      severity,
		TriggerReason: triggerReason,
		CreatedAt:     now.UTC(),
	}, nil
}

// notBefore keeps lifecycle timestamps ordered when clocks disagree.
func notBefore(prev, at time.Time) time.Time {
	at = at.UTC()
	if at.Before(prev) {
		return prev
	}
	return at
}

// MarkNotified records the delivery confirmation time.
func (a CrisisAlert) MarkNotified(at time.Time) (CrisisAlert, error) {
	if a.NotifiedAt != nil {
		return a, ErrAlreadyNotified.WithContext("alert_id", a.ID)
	}
	t := notBefore(a.CreatedAt, at)
	a.NotifiedAt = &t
	return a, nil
}

// MarkViewed records that a professional opened the alert. A professional
// cannot view an alert that was never delivered.
func (a CrisisAlert) MarkViewed(at time.Time) (CrisisAlert, error) {
	if a.NotifiedAt == nil {
		return a, ErrNotYetNotified.WithContext("alert_id", a.ID)
	}
	if a.ViewedAt != nil {
		return a, ErrAlreadyViewed.WithContext("alert_id", a.ID)
	}
	t := notBefore(*a.NotifiedAt, at)
	a.ViewedAt = &t
	return a, nil
}

// Resolve closes the alert with the professional's notes.
func (a CrisisAlert) Resolve(at time.Time, notes string) (CrisisAlert, error) {
	if a.ViewedAt == nil {
		return a, ErrNotYetViewed.WithContext("alert_id", a.ID)
	}
	if a.ResolvedAt != nil {
		return a, ErrAlreadyResolved.WithContext("alert_id", a.ID)
	}
	t := notBefore(*a.ViewedAt, at)
	a.ResolvedAt = &t
	a.ResolutionNotes = &notes
	return a, nil
}

// DeliveryReceipt is what a notifier reports back after delivering an alert.
type DeliveryReceipt struct {
	DeliveredAt time.Time `json:"deliveredAt"`
	Channel     string    `json:"channel,omitempty"`
	Reference   string    `json:"reference,omitempty"`
}
