package crisis

// Recorder receives pipeline events for metrics. Implementations must be
// safe for concurrent use.
type Recorder interface {
	ObserveClassification(result ClassificationResult)
	ObserveSupportOffer()
	ObserveAlertCreated(severity RiskSeverity)
	ObserveTransition(transition string, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveClassification(ClassificationResult) {}
func (nopRecorder) ObserveSupportOffer()                       {}
func (nopRecorder) ObserveAlertCreated(RiskSeverity)           {}
func (nopRecorder) ObserveTransition(string, error)            {}

// Transition names reported to a Recorder.
const (
	TransitionCreate   = "create"
	TransitionNotify   = "notify"
	TransitionView     = "view"
	TransitionResolve  = "resolve"
	TransitionDispatch = "dispatch"
)
