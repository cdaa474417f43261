package domain

// Container limits enforced on message nodes at mutation time.
const (
	MaxSections          = 10
	MaxButtonsPerSection = 10
	MaxHeaderTextLen     = 60
	MaxButtonListTitle   = 20
)

// Field names shared by the registry, the validation engine and the wire format.
const (
	FieldMessage         = "message"
	FieldHeaderText      = "headerText"
	FieldButtonListTitle = "buttonListTitle"
	FieldFooter          = "footer"
	FieldSections        = "sections"
	FieldLabel           = "label"
	FieldIsMinimized     = "isMinimized"
)
