package crisis

// Policy holds the tunable accumulator thresholds.
type Policy struct {
	// SupportThreshold is the number of crisis indicators in one conversation
	// at which crisis support is offered.
	SupportThreshold uint `json:"supportThreshold"`
	// EndingTurnLimit: suggest wrapping up once turnCount exceeds it.
	EndingTurnLimit uint `json:"endingTurnLimit"`
	// EndingTurnLimitAfterRest applies once memories were discussed and rest
	// was offered.
	EndingTurnLimitAfterRest uint `json:"endingTurnLimitAfterRest"`
}

// DefaultPolicy returns the thresholds the companion app shipped with. The
// support threshold of 2 has no clinical validation behind it.
func DefaultPolicy() Policy {
	return Policy{
		SupportThreshold:         2,
		EndingTurnLimit:          10,
		EndingTurnLimitAfterRest: 5,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.SupportThreshold == 0 {
		p.SupportThreshold = d.SupportThreshold
	}
	if p.EndingTurnLimit == 0 {
		p.EndingTurnLimit = d.EndingTurnLimit
	}
	if p.EndingTurnLimitAfterRest == 0 {
		p.EndingTurnLimitAfterRest = d.EndingTurnLimitAfterRest
	}
	return p
}

// ConversationContext carries the flags owned by the conversation
// orchestrator. The classifier never derives them.
type ConversationContext struct {
	MemoryDiscussionOccurred bool `json:"memoryDiscussionOccurred"`
	RestOffered              bool `json:"restOffered"`
}

// ConversationRiskState 单次会话内的风险累计状态，零值即会话开始时的状态
type ConversationRiskState struct {
	TurnCount               uint                `json:"turnCount"`
	CrisisIndicatorCount    uint                `json:"crisisIndicatorCount"`
	HighestSeverityObserved RiskSeverity        `json:"highestSeverityObserved"`
	Context                 ConversationContext `json:"context"`
	// AlertRaised marks that this conversation already produced an alert.
	AlertRaised bool `json:"alertRaised"`
}

// Observe folds one classification into the state and returns the new
// state. The input is not modified; callers persist the returned value and
// must serialize Observe calls per conversation.
func Observe(state ConversationRiskState, result ClassificationResult, cc ConversationContext) ConversationRiskState {
	next := state
	next.TurnCount++
	if result.Severity != SeverityNone {
		next.CrisisIndicatorCount++
	}
	next.HighestSeverityObserved = MaxSeverity(state.HighestSeverityObserved, result.Severity)
	next.Context = cc
	return next
}

// ShouldOfferCrisisSupport reports whether enough independent concerning
// messages were seen in this conversation.
func (s ConversationRiskState) ShouldOfferCrisisSupport(p Policy) bool {
	p = p.normalized()
	return s.CrisisIndicatorCount >= p.SupportThreshold
}

// ShouldSuggestEnding reports whether the companion should suggest wrapping
// up the conversation.
func (s ConversationRiskState) ShouldSuggestEnding(p Policy) bool {
	p = p.normalized()
	if s.TurnCount > p.EndingTurnLimit {
		return true
	}
	return s.Context.MemoryDiscussionOccurred && s.Context.RestOffered && s.TurnCount > p.EndingTurnLimitAfterRest
}

// Decision is the accumulator's derived output for one state.
type Decision struct {
	OfferCrisisSupport bool `json:"offerCrisisSupport"`
	SuggestEnding      bool `json:"suggestEnding"`
}

// Decide evaluates both derived decisions under p.
func (s ConversationRiskState) Decide(p Policy) Decision {
	return Decision{
		OfferCrisisSupport: s.ShouldOfferCrisisSupport(p),
		SuggestEnding:      s.ShouldSuggestEnding(p),
	}
}
