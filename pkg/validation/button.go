package validation

import (
	"regexp"
	"strings"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/schema"
	"github.com/go-playground/validator/v10"
)

var (
	// localpart@domain.tld, no whitespace.
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// Optional +, optional parenthesised groups of 1-4 digits, then 1-9 trailing digits.
	phonePattern = regexp.MustCompile(`^[+]?[(]?[0-9]{1,4}[)]?[-\s.]?[(]?[0-9]{1,4}[)]?[-\s.]?[0-9]{1,9}$`)

	validate *validator.Validate
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("flow_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("flow_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(stripSpace(fl.Field().String()))
	})
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

var formatRules = map[string]struct {
	tag    string
	reason string
}{
	schema.FormatEmail: {tag: "flow_email", reason: ReasonInvalidEmail},
	schema.FormatPhone: {tag: "flow_phone", reason: ReasonInvalidPhone},
	schema.FormatURL:   {tag: "url", reason: ReasonInvalidURL},
}

// CheckFormat validates a non-empty value against a named format.
// Empty values and unknown formats are valid.
func CheckFormat(format, value string) Result {
	if value == "" {
		return Valid()
	}
	rule, ok := formatRules[format]
	if !ok {
		return Valid()
	}
	if err := validate.Var(value, rule.tag); err != nil {
		return Invalid(rule.reason)
	}
	return Valid()
}

// ValidateButton checks a button's value for its action type.
// An empty value is always valid so that incomplete buttons can exist mid-edit.
// connect_to_node values are node ids resolved through edges and are not checked.
func ValidateButton(actionType domain.ActionType, actionValue string) Result {
	switch actionType {
	case domain.ActionSendEmail:
		return CheckFormat(schema.FormatEmail, actionValue)
	case domain.ActionCallNumber:
		return CheckFormat(schema.FormatPhone, actionValue)
	case domain.ActionOpenURL:
		return CheckFormat(schema.FormatURL, actionValue)
	case domain.ActionConnectToNode:
		return Valid()
	default:
		return Invalid(ReasonInvalidAction)
	}
}
