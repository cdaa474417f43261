package validation

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowboard/pkg/domain"
)

// Reasons reported for button values.
const (
	ReasonInvalidEmail  = "Invalid email"
	ReasonInvalidPhone  = "Invalid phone"
	ReasonInvalidURL    = "Invalid URL"
	ReasonInvalidAction = "Invalid action type"
)

// Result is the outcome of one check.
type Result struct {
	NodeID string `json:"nodeId,omitempty"`
	Field  string `json:"field,omitempty"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Valid is the passing result.
func Valid() Result { return Result{Valid: true} }

// Invalid builds a failing result with reason.
func Invalid(reason string) Result { return Result{Valid: false, Reason: reason} }

func (r Result) String() string {
	if r.Valid {
		return "valid"
	}
	var b strings.Builder
	if r.NodeID != "" {
		b.WriteString(r.NodeID)
		b.WriteString(": ")
	}
	if r.Field != "" {
		b.WriteString(r.Field)
		b.WriteString(": ")
	}
	b.WriteString(r.Reason)
	return b.String()
}

// Error blocks a save or a mutation. It lists every offending field.
type Error struct {
	Results []Result `json:"errors"`
}

func (e *Error) Error() string {
	if len(e.Results) == 1 {
		return fmt.Sprintf("%s: %s", domain.ErrValidationFailed, e.Results[0])
	}
	msgs := make([]string, len(e.Results))
	for i, r := range e.Results {
		msgs[i] = r.String()
	}
	return fmt.Sprintf("%s: %d errors: %s", domain.ErrValidationFailed, len(e.Results), strings.Join(msgs, "; "))
}

// Unwrap makes errors.Is(err, domain.ErrValidationFailed) hold.
func (e *Error) Unwrap() error { return domain.ErrValidationFailed }

// Fields returns the offending field names in result order.
func (e *Error) Fields() []string {
	out := make([]string, len(e.Results))
	for i, r := range e.Results {
		out[i] = r.Field
	}
	return out
}

// AsError returns an *Error for a non-empty result list, nil otherwise.
func AsError(results []Result) error {
	if len(results) == 0 {
		return nil
	}
	return &Error{Results: results}
}
