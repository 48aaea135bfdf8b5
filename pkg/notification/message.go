package notification

import (
	"fmt"

	"CompanionGuard/pkg/crisis"
)

// Message 推送给专业人员的警报摘要。不包含用户原文
type Message struct {
	AlertID        string `json:"alertId"`
	SubjectCode    string `json:"subjectCode"`
	ConversationID string `json:"conversationId,omitempty"`
	Severity       string `json:"severity"`
	Reason         string `json:"reason"`
	CreatedAt      string `json:"createdAt"`
	Title          string `json:"title"`
	Content        string `json:"content"`
}

// NewMessage renders the alert for delivery channels.
func NewMessage(alert crisis.CrisisAlert) Message {
	title := fmt.Sprintf("Crisis alert (%s): %s", alert.Severity, alert.SubjectCode)
	return Message{
		AlertID:        alert.ID,
		SubjectCode:    alert.SubjectCode,
		ConversationID: alert.ConversationID,
		Severity:       alert.Severity.String(),
		Reason:         alert.TriggerReason,
		CreatedAt:      alert.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Title:          title,
		Content:        fmt.Sprintf("%s. Open alert %s to review and acknowledge.", alert.TriggerReason, alert.ID),
	}
}
