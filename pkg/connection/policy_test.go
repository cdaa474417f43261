package connection

import (
	"testing"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func messageNode(buttons ...domain.ActionType) domain.Node {
	section := domain.ButtonSection{ID: "s0"}
	for i, a := range buttons {
		section.Buttons = append(section.Buttons, domain.ButtonConfig{
			ID:         "b" + string(rune('0'+i)),
			ActionType: a,
		})
	}
	return domain.Node{
		ID:     "message-1",
		Kind:   domain.KindMessage,
		Config: &domain.MessageConfig{Sections: []domain.ButtonSection{section}},
	}
}

func TestOutputHandles_ConnectButtonOnly(t *testing.T) {
	n := messageNode(domain.ActionConnectToNode, domain.ActionCallNumber)
	assert.Equal(t, []string{"section-0-button-0"}, OutputHandles(n))
	assert.False(t, HasGenericOutput(n))
}

func TestOutputHandles_GenericWithoutConnectButtons(t *testing.T) {
	n := messageNode(domain.ActionCallNumber)
	assert.Equal(t, []string{HandleOutput}, OutputHandles(n))
	assert.True(t, HasGenericOutput(n))
}

func TestOutputHandles_FollowSectionAndButtonIndex(t *testing.T) {
	n := domain.Node{
		Kind: domain.KindMessage,
		Config: &domain.MessageConfig{Sections: []domain.ButtonSection{
			{Buttons: []domain.ButtonConfig{{ActionType: domain.ActionOpenURL}}},
			{Buttons: []domain.ButtonConfig{
				{ActionType: domain.ActionConnectToNode},
				{ActionType: domain.ActionSendEmail},
				{ActionType: domain.ActionConnectToNode},
			}},
		}},
	}
	assert.Equal(t, []string{"section-1-button-0", "section-1-button-2"}, OutputHandles(n))
}

func TestOutputHandles_RecomputedOnConfigChange(t *testing.T) {
	n := messageNode(domain.ActionCallNumber)
	assert.Equal(t, []string{HandleOutput}, OutputHandles(n))

	n.Config.(*domain.MessageConfig).Sections[0].Buttons[0].ActionType = domain.ActionConnectToNode
	assert.Equal(t, []string{"section-0-button-0"}, OutputHandles(n))
}

func TestInputHandles(t *testing.T) {
	for _, kind := range domain.Kinds() {
		n := domain.Node{Kind: kind}
		if kind == domain.KindLanguageModel {
			assert.Equal(t, []string{HandleInput, HandleKnowledgeBase}, InputHandles(n))
			continue
		}
		assert.Equal(t, []string{HandleInput}, InputHandles(n), kind)
	}
}

func TestParseButtonHandle(t *testing.T) {
	s, b, ok := ParseButtonHandle(ButtonHandle(2, 3))
	assert.True(t, ok)
	assert.Equal(t, 2, s)
	assert.Equal(t, 3, b)

	for _, bad := range []string{"output", "section-x-button-1", "section-1-button-", "section--1-button-0"} {
		_, _, ok := ParseButtonHandle(bad)
		assert.False(t, ok, bad)
	}
}

func TestCheck(t *testing.T) {
	src := messageNode(domain.ActionConnectToNode)
	llm := domain.Node{ID: "languageModel-1", Kind: domain.KindLanguageModel}
	engine := domain.Node{ID: "engine-1", Kind: domain.KindEngine}

	assert.NoError(t, Check(src, llm, "section-0-button-0", HandleKnowledgeBase))
	assert.ErrorIs(t, Check(src, llm, HandleOutput, HandleInput), domain.ErrInvalidEndpoint)
	assert.ErrorIs(t, Check(src, engine, "section-0-button-0", HandleKnowledgeBase), domain.ErrInvalidEndpoint)
}

func TestEdgeKindFor(t *testing.T) {
	assert.Equal(t, domain.EdgeKnowledgeBase, EdgeKindFor(HandleKnowledgeBase))
	assert.Equal(t, domain.EdgeDefault, EdgeKindFor(HandleInput))
}
