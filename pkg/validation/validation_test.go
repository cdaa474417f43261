package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateButton(t *testing.T) {
	tests := []struct {
		name   string
		action domain.ActionType
		value  string
		want   Result
	}{
		{"email ok", domain.ActionSendEmail, "a@b.com", Valid()},
		{"email bad", domain.ActionSendEmail, "not-an-email", Invalid(ReasonInvalidEmail)},
		{"email with space", domain.ActionSendEmail, "a b@c.com", Invalid(ReasonInvalidEmail)},
		{"url ok", domain.ActionOpenURL, "https://example.com", Valid()},
		{"url bad", domain.ActionOpenURL, "ftp:/bad", Invalid(ReasonInvalidURL)},
		{"phone international", domain.ActionCallNumber, "+1 555 123 4567", Valid()},
		{"phone local", domain.ActionCallNumber, "(555) 123-4567", Valid()},
		{"phone letters", domain.ActionCallNumber, "call me", Invalid(ReasonInvalidPhone)},
		{"connect is never checked", domain.ActionConnectToNode, "anything at all", Valid()},
		{"empty email", domain.ActionSendEmail, "", Valid()},
		{"empty url", domain.ActionOpenURL, "", Valid()},
		{"empty phone", domain.ActionCallNumber, "", Valid()},
		{"unknown action", domain.ActionType("teleport"), "x", Invalid(ReasonInvalidAction)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateButton(tt.action, tt.value))
		})
	}
}

func messageNode(id string, cfg *domain.MessageConfig) domain.Node {
	return domain.Node{ID: id, Kind: domain.KindMessage, Label: "Message", Config: cfg}
}

func TestValidateNode_HeaderTooLong(t *testing.T) {
	node := messageNode("message-1", &domain.MessageConfig{
		HeaderText: strings.Repeat("h", 61),
	})

	results := ValidateNode(node)
	require.Len(t, results, 1)
	assert.False(t, results[0].Valid)
	assert.Equal(t, "message-1", results[0].NodeID)
	assert.Equal(t, domain.FieldHeaderText, results[0].Field)
}

func TestValidateNode_HeaderAtLimit(t *testing.T) {
	node := messageNode("message-1", &domain.MessageConfig{
		HeaderText:      strings.Repeat("é", 60),
		ButtonListTitle: strings.Repeat("t", 20),
	})
	assert.Empty(t, ValidateNode(node))
}

func TestValidateNode_ButtonPaths(t *testing.T) {
	node := messageNode("message-1", &domain.MessageConfig{
		Sections: []domain.ButtonSection{
			{ID: "s0", Buttons: []domain.ButtonConfig{
				{ID: "b0", Label: "ok", ActionType: domain.ActionOpenURL, ActionValue: "https://example.com"},
			}},
			{ID: "s1", Buttons: []domain.ButtonConfig{
				{ID: "b1", Label: "mail", ActionType: domain.ActionSendEmail, ActionValue: "nope"},
				{ID: "b2", Label: "odd", ActionType: "teleport"},
			}},
		},
	})

	results := ValidateNode(node)
	require.Len(t, results, 2)
	assert.Equal(t, "sections[1].buttons[0].actionValue", results[0].Field)
	assert.Equal(t, ReasonInvalidEmail, results[0].Reason)
	assert.Equal(t, "sections[1].buttons[1].actionType", results[1].Field)
}

func TestCheckLimits_Counts(t *testing.T) {
	buttons := make([]domain.ButtonConfig, domain.MaxButtonsPerSection+1)
	for i := range buttons {
		buttons[i] = domain.ButtonConfig{ActionType: domain.ActionConnectToNode}
	}
	sections := make([]domain.ButtonSection, domain.MaxSections+1)
	sections[0].Buttons = buttons

	node := messageNode("m", &domain.MessageConfig{Sections: sections})
	results := NewEngine(nil).CheckLimits(node)

	fields := make([]string, len(results))
	for i, r := range results {
		fields[i] = r.Field
	}
	assert.ElementsMatch(t, []string{"sections", "sections[0].buttons"}, fields)
}

func TestCheckLimits_IgnoresButtonValues(t *testing.T) {
	node := messageNode("m", &domain.MessageConfig{
		Sections: []domain.ButtonSection{{Buttons: []domain.ButtonConfig{
			{ActionType: domain.ActionSendEmail, ActionValue: "half-typed@"},
		}}},
	})
	assert.Empty(t, NewEngine(nil).CheckLimits(node))
	assert.Len(t, ValidateNode(node), 1)
}

func TestValidateNode_OtherKinds(t *testing.T) {
	api := domain.Node{ID: "api", Kind: domain.KindAPILibrary, Config: &domain.APILibraryConfig{
		Method: "FETCH", Endpoint: "not a url",
	}}
	results := ValidateNode(api)
	fields := []string{}
	for _, r := range results {
		fields = append(fields, r.Field)
	}
	assert.ElementsMatch(t, []string{"method", "endpoint"}, fields)

	lm := domain.Node{ID: "lm", Kind: domain.KindLanguageModel, Config: &domain.LanguageModelConfig{Temperature: 3}}
	require.Len(t, ValidateNode(lm), 1)
	assert.Equal(t, "temperature", ValidateNode(lm)[0].Field)

	mismatched := domain.Node{ID: "x", Kind: domain.KindInput, Config: &domain.EngineConfig{}}
	assert.Len(t, ValidateNode(mismatched), 1)
}

func TestAsError(t *testing.T) {
	assert.NoError(t, AsError(nil))

	err := AsError([]Result{
		{NodeID: "a", Field: "headerText", Reason: "too long"},
		{NodeID: "b", Field: "footer", Reason: "bad"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidationFailed))

	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"headerText", "footer"}, verr.Fields())
	assert.Contains(t, err.Error(), "a: headerText: too long")
}
