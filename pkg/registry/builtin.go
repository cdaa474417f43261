package registry

import (
	"sync"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/schema"
)

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry holding the six built-in kinds.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = NewBuiltin()
	})
	return defaultReg
}

// NewBuiltin creates a fresh registry populated with the built-in kinds.
func NewBuiltin() *Registry {
	r := NewRegistry()
	for _, e := range builtinEntries() {
		// Built-in entries are always complete.
		_ = r.Register(e)
	}
	return r
}

func builtinEntries() []Entry {
	return []Entry{
		{
			Kind:         domain.KindMessage,
			DefaultLabel: "Message",
			New:          func() domain.Config { return &domain.MessageConfig{} },
			Default: func() domain.Config {
				return &domain.MessageConfig{Message: "", Sections: []domain.ButtonSection{}}
			},
			Schema: schema.Schema{
				{Name: domain.FieldMessage, Type: schema.String()},
				{Name: domain.FieldHeaderText, Type: schema.String(), MaxLen: domain.MaxHeaderTextLen},
				{Name: domain.FieldButtonListTitle, Type: schema.String(), MaxLen: domain.MaxButtonListTitle},
				{Name: domain.FieldFooter, Type: schema.String()},
				{Name: domain.FieldSections, Type: schema.Slice(schema.Object()), MaxItems: domain.MaxSections},
			},
		},
		{
			Kind:         domain.KindLanguageModel,
			DefaultLabel: "Language Model",
			New:          func() domain.Config { return &domain.LanguageModelConfig{} },
			Default: func() domain.Config {
				return &domain.LanguageModelConfig{Temperature: 0.7}
			},
			Schema: schema.Schema{
				{Name: "model", Type: schema.String()},
				{Name: "systemPrompt", Type: schema.String()},
				{Name: "temperature", Type: schema.Float(), Min: schema.Bound(0), Max: schema.Bound(2)},
				{Name: "maxTokens", Type: schema.Int(), Min: schema.Bound(0)},
			},
		},
		{
			Kind:         domain.KindInput,
			DefaultLabel: "User Input",
			New:          func() domain.Config { return &domain.InputConfig{} },
			Default: func() domain.Config {
				return &domain.InputConfig{InputType: domain.InputText}
			},
			Schema: schema.Schema{
				{Name: "prompt", Type: schema.String()},
				{Name: "variableName", Type: schema.String(), MaxLen: 64},
				{Name: "inputType", Type: schema.String(), OneOf: []string{
					domain.InputText, domain.InputNumber, domain.InputEmail, domain.InputPhone,
				}},
			},
		},
		{
			Kind:         domain.KindAPILibrary,
			DefaultLabel: "API Call",
			New:          func() domain.Config { return &domain.APILibraryConfig{} },
			Default: func() domain.Config {
				return &domain.APILibraryConfig{Method: "GET"}
			},
			Schema: schema.Schema{
				{Name: "apiId", Type: schema.String()},
				{Name: "method", Type: schema.String(), OneOf: []string{"GET", "POST", "PUT", "PATCH", "DELETE"}},
				{Name: "endpoint", Type: schema.String(), Format: schema.FormatURL},
				{Name: "responseVariable", Type: schema.String(), MaxLen: 64},
			},
		},
		{
			Kind:         domain.KindKnowledgeBase,
			DefaultLabel: "Knowledge Base",
			New:          func() domain.Config { return &domain.KnowledgeBaseConfig{} },
			Default: func() domain.Config {
				return &domain.KnowledgeBaseConfig{TopK: 3}
			},
			Schema: schema.Schema{
				{Name: "knowledgeBaseId", Type: schema.String()},
				{Name: "topK", Type: schema.Int(), Min: schema.Bound(1), Max: schema.Bound(20)},
			},
		},
		{
			Kind:         domain.KindEngine,
			DefaultLabel: "Engine",
			New:          func() domain.Config { return &domain.EngineConfig{} },
			Default:      func() domain.Config { return &domain.EngineConfig{} },
			Schema: schema.Schema{
				{Name: "instructions", Type: schema.String()},
			},
		},
	}
}
