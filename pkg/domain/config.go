package domain

// Config is the kind-specific payload of a node.
// It is a closed union: only the variants declared in this package implement it,
// so a type switch over them is exhaustive.
type Config interface {
	// Kind returns the NodeKind this payload belongs to.
	Kind() NodeKind
	// Clone returns a deep copy.
	Clone() Config

	sealed()
}

// ButtonContainer is implemented by configs that carry interactive button sections.
type ButtonContainer interface {
	Config
	ButtonSections() []ButtonSection
}

// LanguageModelConfig configures a language-model call.
type LanguageModelConfig struct {
	Model        string  `json:"model,omitempty" mapstructure:"model"`
	SystemPrompt string  `json:"systemPrompt,omitempty" mapstructure:"systemPrompt"`
	Temperature  float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens    int     `json:"maxTokens,omitempty" mapstructure:"maxTokens"`
}

func (*LanguageModelConfig) Kind() NodeKind { return KindLanguageModel }
func (c *LanguageModelConfig) Clone() Config {
	cp := *c
	return &cp
}
func (*LanguageModelConfig) sealed() {}

// Input types accepted by an input node.
const (
	InputText   = "text"
	InputNumber = "number"
	InputEmail  = "email"
	InputPhone  = "phone"
)

// InputConfig configures a user-input prompt.
type InputConfig struct {
	Prompt       string `json:"prompt,omitempty" mapstructure:"prompt"`
	VariableName string `json:"variableName,omitempty" mapstructure:"variableName"`
	InputType    string `json:"inputType" mapstructure:"inputType"`
}

func (*InputConfig) Kind() NodeKind { return KindInput }
func (c *InputConfig) Clone() Config {
	cp := *c
	return &cp
}
func (*InputConfig) sealed() {}

// APILibraryConfig configures a call to a stored API-library record.
type APILibraryConfig struct {
	APIID            string `json:"apiId,omitempty" mapstructure:"apiId"`
	Method           string `json:"method" mapstructure:"method"`
	Endpoint         string `json:"endpoint,omitempty" mapstructure:"endpoint"`
	ResponseVariable string `json:"responseVariable,omitempty" mapstructure:"responseVariable"`
}

func (*APILibraryConfig) Kind() NodeKind { return KindAPILibrary }
func (c *APILibraryConfig) Clone() Config {
	cp := *c
	return &cp
}
func (*APILibraryConfig) sealed() {}

// KnowledgeBaseConfig configures a knowledge-base lookup.
type KnowledgeBaseConfig struct {
	KnowledgeBaseID string `json:"knowledgeBaseId,omitempty" mapstructure:"knowledgeBaseId"`
	TopK            int    `json:"topK" mapstructure:"topK"`
}

func (*KnowledgeBaseConfig) Kind() NodeKind { return KindKnowledgeBase }
func (c *KnowledgeBaseConfig) Clone() Config {
	cp := *c
	return &cp
}
func (*KnowledgeBaseConfig) sealed() {}

// EngineConfig configures the terminal engine node.
type EngineConfig struct {
	Instructions string `json:"instructions,omitempty" mapstructure:"instructions"`
}

func (*EngineConfig) Kind() NodeKind { return KindEngine }
func (c *EngineConfig) Clone() Config {
	cp := *c
	return &cp
}
func (*EngineConfig) sealed() {}
