package app

import "github.com/ceotaagc-lang/Arbitage/internal/spread"

// FailureKind classifies why a cycle could not complete. The HTTP layer maps
// configuration and upstream failures to 500 and validation failures to 400.
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureUpstream      FailureKind = "upstream_error"
	FailureConfiguration FailureKind = "configuration_error"
	FailureValidation    FailureKind = "validation_error"
)

// Outcome is the result of one evaluation or trade cycle.
type Outcome struct {
	Token         string
	Pair          string
	Opportunity   *spread.Result
	CurrentPrices map[string]float64
	Executed      bool
	Manual        bool
	OrderID       string
	Failure       FailureKind
	Err           error
}

func (o Outcome) Failed() bool {
	return o.Failure != FailureNone
}

func (o Outcome) errorText() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
