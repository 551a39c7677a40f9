package domain

// Step is the active screen of the analysis wizard
type Step int

const (
	StepUpload Step = iota
	StepTrim
	StepVerify
	StepAwaitingConfirmation
	StepProcessing
	StepResults
	StepFailed
)

var stepNames = map[Step]string{
	StepUpload:               "upload",
	StepTrim:                 "trim",
	StepVerify:               "verify",
	StepAwaitingConfirmation: "awaiting_confirmation",
	StepProcessing:           "processing",
	StepResults:              "results",
	StepFailed:               "failed",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsPolling reports whether the wizard polls the backend while in this step.
// Awaiting confirmation and processing share one polling loop and only
// differ in the copy shown to the user.
func (s Step) IsPolling() bool {
	return s == StepAwaitingConfirmation || s == StepProcessing
}
