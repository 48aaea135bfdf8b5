package crisis

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"CompanionGuard/pkg/errors"

	"github.com/moby/locker"
	"go.uber.org/zap"
)

// StateStore keeps ConversationRiskState between messages. Load reports
// found=false for a conversation it has never seen.
type StateStore interface {
	Load(ctx context.Context, conversationID string) (state ConversationRiskState, found bool, err error)
	Save(ctx context.Context, conversationID string, state ConversationRiskState) error
	Delete(ctx context.Context, conversationID string) error
}

// MemoryStateStore is a StateStore kept in process memory.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]ConversationRiskState
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]ConversationRiskState)}
}

func (s *MemoryStateStore) Load(_ context.Context, id string) (ConversationRiskState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	return st, ok, nil
}

func (s *MemoryStateStore) Save(_ context.Context, id string, state ConversationRiskState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = state
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id)
	return nil
}

// ScreenRequest is one inbound user message.
type ScreenRequest struct {
	ConversationID string              `json:"conversationId"`
	SubjectCode    string              `json:"subjectCode"`
	Text           string              `json:"text"`
	Context        ConversationContext `json:"context"`
	Languages      []string            `json:"languages,omitempty"`
}

// ScreenOutcome is what the orchestrator gets back for one message.
type ScreenOutcome struct {
	Classification ClassificationResult  `json:"classification"`
	State          ConversationRiskState `json:"state"`
	Decision       Decision              `json:"decision"`
	Response       string                `json:"response,omitempty"`
	Alert          *CrisisAlert          `json:"alert,omitempty"`
}

// ScreenError is returned with a complete outcome when a side effect of
// screening failed. Alert is set when raising the alert failed, State when
// the conversation state was not persisted; in the latter case an alert
// raised by this message is not remembered and a later message may raise
// another one.
type ScreenError struct {
	Alert error
	State error
}

func (e *ScreenError) Error() string {
	var parts []string
	if e.Alert != nil {
		parts = append(parts, "raise alert: "+e.Alert.Error())
	}
	if e.State != nil {
		parts = append(parts, "save state: "+e.State.Error())
	}
	return strings.Join(parts, "; ")
}

func (e *ScreenError) Unwrap() []error {
	var errs []error
	if e.Alert != nil {
		errs = append(errs, e.Alert)
	}
	if e.State != nil {
		errs = append(errs, e.State)
	}
	return errs
}

// Pipeline runs classify → observe → respond → alert for each message.
type Pipeline struct {
	classifier *Classifier
	responder  *Responder
	policy     Policy
	states     StateStore
	alerts     *AlertManager
	logger     *zap.Logger
	recorder   Recorder
	locks      *locker.Locker // 按会话 id 串行
}

// PipelineConfig wires a Pipeline. Nil Classifier and Responder fall back to
// the compiled-in defaults; a nil Alerts disables escalation.
type PipelineConfig struct {
	Classifier *Classifier
	Responder  *Responder
	Policy     Policy
	States     StateStore
	Alerts     *AlertManager
	Logger     *zap.Logger
	Recorder   Recorder
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	p := &Pipeline{
		classifier: cfg.Classifier,
		responder:  cfg.Responder,
		policy:     cfg.Policy.normalized(),
		states:     cfg.States,
		alerts:     cfg.Alerts,
		logger:     cfg.Logger,
		recorder:   cfg.Recorder,
		locks:      locker.New(),
	}
	if p.classifier == nil {
		p.classifier = DefaultClassifier()
	}
	if p.responder == nil {
		p.responder = defaultResponder
	}
	if p.states == nil {
		p.states = NewMemoryStateStore()
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}
	return p
}

// Policy returns the accumulator thresholds in effect.
func (p *Pipeline) Policy() Policy { return p.policy }

// PatternVersion returns the version of the pattern table in use.
func (p *Pipeline) PatternVersion() string { return p.classifier.Version() }

// Screen processes one message. The response text is always filled for a
// concerning message; when raising the alert or saving the state fails the
// outcome comes back together with a *ScreenError.
func (p *Pipeline) Screen(ctx context.Context, req ScreenRequest) (ScreenOutcome, error) {
	if strings.TrimSpace(req.ConversationID) == "" {
		return ScreenOutcome{}, errors.WithCode(errors.CodeInvalidArgument, "conversation id is required")
	}

	p.locks.Lock(req.ConversationID)
	defer p.locks.Unlock(req.ConversationID)

	state, _, err := p.states.Load(ctx, req.ConversationID)
	if err != nil {
		return ScreenOutcome{}, errors.Wrapf(err, "load conversation %s", req.ConversationID)
	}

	result := p.classifier.Classify(req.Text)
	p.recorder.ObserveClassification(result)

	next := Observe(state, result, req.Context)
	decision := next.Decide(p.policy)
	if decision.OfferCrisisSupport && !state.ShouldOfferCrisisSupport(p.policy) {
		p.recorder.ObserveSupportOffer()
	}

	out := ScreenOutcome{Classification: result, Decision: decision}
	if result.Concerning() {
		out.Response = p.responder.RespondIn(result.Severity, req.Languages...)
	}

	var screenErr ScreenError
	if p.shouldAlert(next, result) {
		alert, err := p.raise(ctx, req, next, result)
		if err != nil {
			screenErr.Alert = err
		} else {
			next.AlertRaised = true
			out.Alert = &alert
		}
	}

	out.State = next
	if err := p.states.Save(ctx, req.ConversationID, next); err != nil {
		screenErr.State = errors.Wrapf(err, "save conversation %s", req.ConversationID)
		p.logger.Error("conversation state not saved",
			zap.String("conversation_id", req.ConversationID),
			zap.Bool("alert_raised", next.AlertRaised),
			zap.Error(err),
		)
	}

	p.logger.Info("message screened",
		zap.String("conversation_id", req.ConversationID),
		zap.String("severity", result.Severity.String()),
		zap.String("category", string(result.MatchedCategory)),
		zap.Uint("turn", next.TurnCount),
		zap.Uint("indicators", next.CrisisIndicatorCount),
		zap.Bool("offer_support", decision.OfferCrisisSupport),
	)
	if screenErr.Alert != nil || screenErr.State != nil {
		return out, &screenErr
	}
	return out, nil
}

// shouldAlert: support threshold crossed, the current message is itself
// elevated or immediate, and no alert was raised in this conversation yet.
func (p *Pipeline) shouldAlert(state ConversationRiskState, result ClassificationResult) bool {
	if p.alerts == nil || state.AlertRaised {
		return false
	}
	return state.ShouldOfferCrisisSupport(p.policy) && result.Severity.Alertable()
}

func (p *Pipeline) raise(ctx context.Context, req ScreenRequest, state ConversationRiskState, result ClassificationResult) (CrisisAlert, error) {
	reason := fmt.Sprintf("%s message (%s) after %d crisis indicators in %d turns",
		result.Severity, result.MatchedCategory, state.CrisisIndicatorCount, state.TurnCount)

	alert, err := p.alerts.CreateForConversation(ctx, req.ConversationID, req.SubjectCode, result.Severity, reason)
	if err != nil {
		return CrisisAlert{}, err
	}
	delivered, err := p.alerts.Dispatch(ctx, alert)
	if stderrors.Is(err, ErrAlreadyNotified) {
		// 投递回调先于回执到达，警报已是 notified
		if cur, gerr := p.alerts.Get(ctx, alert.ID); gerr == nil {
			return cur, nil
		}
		return alert, nil
	}
	if err != nil {
		// still created; delivery is the notifier's to retry
		p.logger.Warn("crisis alert left undelivered",
			zap.String("alert_id", alert.ID),
			zap.Error(err),
		)
		return alert, nil
	}
	return delivered, nil
}

// EndConversation discards the conversation's risk state.
func (p *Pipeline) EndConversation(ctx context.Context, conversationID string) error {
	p.locks.Lock(conversationID)
	defer p.locks.Unlock(conversationID)
	return p.states.Delete(ctx, conversationID)
}
