package crisis

import (
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Message IDs of the tiered crisis responses in a go-i18n catalog.
const (
	MessageImmediate  = "crisis.response.immediate"
	MessageElevated   = "crisis.response.elevated"
	MessageDistressed = "crisis.response.distressed"
)

// Responses never interpolate user text so self-harm language is not echoed
// back.
var englishResponses = map[string]string{
	MessageImmediate: "I'm really concerned about what you're sharing, and I'm glad you told me. You don't have to go through this alone.\n\n" +
		"Please reach out now:\n" +
		"• Call or text 988 (Suicide & Crisis Lifeline) — free, confidential, 24/7\n" +
		"• Text HOME to 741741 (Crisis Text Line)\n" +
		"• Call 911 if you're in immediate danger\n\n" +
		"Would you like me to notify your therapist or emergency contact?",
	MessageElevated: "I hear that you're going through something really difficult right now. Your feelings are valid, and you don't have to face this alone.\n\n" +
		"If you need support right now: call or text 988 (Suicide & Crisis Lifeline) — it's free and available 24/7.\n\n" +
		"Would it help to talk about what's happening, or would you like to try a grounding exercise?",
	MessageDistressed: "That sounds really overwhelming. I'm here with you.\n\n" +
		"If things feel like too much, the 988 Lifeline is always available (call or text 988).\n\n" +
		"What would feel most helpful right now?",
}

func messageID(severity RiskSeverity) (string, bool) {
	switch severity {
	case SeverityImmediate:
		return MessageImmediate, true
	case SeverityElevated:
		return MessageElevated, true
	case SeverityDistressed:
		return MessageDistressed, true
	default:
		return "", false
	}
}

// Responder 分级回复生成器，英文文案内置，其他语言通过消息文件加载
type Responder struct {
	bundle *i18n.Bundle
}

// NewResponder creates a responder with the English catalog registered.
func NewResponder() *Responder {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	for id, text := range englishResponses {
		// ids are unique and constant, AddMessages cannot fail here
		_ = bundle.AddMessages(language.English, &i18n.Message{ID: id, Other: text})
	}
	return &Responder{bundle: bundle}
}

// LoadCatalog adds a translated catalog, e.g. the bytes of "es.json".
// The file name carries the language tag, as go-i18n expects.
func (r *Responder) LoadCatalog(data []byte, filename string) error {
	if _, err := r.bundle.ParseMessageFileBytes(data, filename); err != nil {
		return fmt.Errorf("load response catalog %s: %w", filename, err)
	}
	return nil
}

// Respond returns the English response for severity. It returns "" for
// SeverityNone and never raises an alert.
func (r *Responder) Respond(severity RiskSeverity) string {
	id, ok := messageID(severity)
	if !ok {
		return ""
	}
	return englishResponses[id]
}

// RespondIn returns the response in the first of langs the catalog has,
// falling back to English.
func (r *Responder) RespondIn(severity RiskSeverity, langs ...string) string {
	id, ok := messageID(severity)
	if !ok {
		return ""
	}
	localizer := i18n.NewLocalizer(r.bundle, langs...)
	text, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil || text == "" {
		return englishResponses[id]
	}
	return text
}

var defaultResponder = NewResponder()

// Respond returns the English response for severity.
func Respond(severity RiskSeverity) string {
	return defaultResponder.Respond(severity)
}

// ResourceChannel is how a crisis resource is reached.
type ResourceChannel string

const (
	ChannelHotline   ResourceChannel = "hotline"
	ChannelTextLine  ResourceChannel = "text_line"
	ChannelEmergency ResourceChannel = "emergency"
)

// Resource is one published crisis resource.
type Resource struct {
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Channel   ResourceChannel `json:"channel"`
	Always24h bool            `json:"always24h"`
	Notes     string          `json:"notes,omitempty"`
}

// DefaultResources returns the built-in resource directory.
func DefaultResources() []Resource {
	return []Resource{
		{Name: "988 Suicide & Crisis Lifeline", Phone: "988", Channel: ChannelHotline, Always24h: true,
			Notes: "Call or text 988. Free, confidential support."},
		{Name: "Crisis Text Line", Phone: "741741", Channel: ChannelTextLine, Always24h: true,
			Notes: "Text HOME to 741741"},
		{Name: "SAMHSA National Helpline", Phone: "1-800-662-4357", Channel: ChannelHotline, Always24h: true,
			Notes: "Treatment referral and information"},
		{Name: "Emergency Services", Phone: "911", Channel: ChannelEmergency, Always24h: true,
			Notes: "For immediate danger to yourself or others"},
	}
}
