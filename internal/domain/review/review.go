// Package review defines quality verdicts and reviewer decisions.
package review

// Verdict is the outcome of the external quality/safety check.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictWarn Verdict = "warn"
	VerdictFail Verdict = "fail"
)

// Valid returns true if the verdict is a known value.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictPass, VerdictWarn, VerdictFail:
		return true
	default:
		return false
	}
}

// Decision is the reviewer's call on a round.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionRetry   Decision = "retry"
	DecisionFail    Decision = "fail"
)

// Outcome couples a decision with its rationale. The rationale is compared
// across consecutive rounds to detect missions stuck on ambiguous
// requirements.
type Outcome struct {
	Decision  Decision `json:"decision"`
	Rationale string   `json:"rationale"`
}

// CheckResult is the quality checker's report for one round's artifacts.
type CheckResult struct {
	Verdict  Verdict  `json:"verdict"`
	Findings []string `json:"findings,omitempty"`
}
