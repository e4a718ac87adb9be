package errors

// Error code constants organized by phase
// E001-E099: Structure errors
// E100-E199: Metadata errors
// E200-E299: Expression errors
// E300-E399: Emit errors
// E500-E599: I/O errors

const (
	// Structure errors (E001-E099)
	ErrAnnotationNotAdjacent   = "E001"
	ErrMultiRefGuide           = "E002"
	ErrGuideNotAlone           = "E003"
	ErrSeparatorWithoutEntity  = "E004"
	ErrDocumentationBeforeAnno = "E005"

	// Metadata errors (E100-E199)
	ErrMalformedMetadata    = "E100"
	ErrMetadataNotMapping   = "E101"
	ErrMalformedFrontMatter = "E102"
	ErrInvalidSpecialField  = "E103"

	// Expression errors (E200-E299)
	ErrInvalidReference     = "E200"
	ErrInvalidExample       = "E201"
	ErrInvalidParent        = "E202"
	ErrInvalidLazyReference = "E203"

	// Emit errors (E300-E399)
	ErrUnsupportedValue = "E300"
	ErrUnresolvedTarget = "E301"
	ErrEmitFailed       = "E302"

	// I/O errors (E500-E599)
	ErrDocumentUnreadable = "E500"
)

// ErrorMessages maps error codes to their default messages
var ErrorMessages = map[string]string{
	ErrAnnotationNotAdjacent:   "multiple annotations must follow each other immediately",
	ErrMultiRefGuide:           "multiple annotations only supported for entities",
	ErrGuideNotAlone:           "multiple annotations not supported for guides",
	ErrSeparatorWithoutEntity:  "separator without entity",
	ErrDocumentationBeforeAnno: "documentation before annotation",

	ErrMalformedMetadata:    "malformed metadata block",
	ErrMetadataNotMapping:   "metadata block must be a mapping",
	ErrMalformedFrontMatter: "malformed front matter",
	ErrInvalidSpecialField:  "special field must have exactly one ~ key",

	ErrInvalidReference:     "invalid reference expression",
	ErrInvalidExample:       "invalid example source",
	ErrInvalidParent:        "invalid guide parent expression",
	ErrInvalidLazyReference: "invalid deferred reference",

	ErrUnsupportedValue: "unsupported metadata value",
	ErrUnresolvedTarget: "unresolved emit target",
	ErrEmitFailed:       "emit failed",

	ErrDocumentUnreadable: "document could not be read",
}

// GetErrorMessage returns the default message for an error code
func GetErrorMessage(code string) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "Unknown error"
}

// GetPhaseForCode returns the phase name for an error code
func GetPhaseForCode(code string) string {
	if len(code) != 4 || code[0] != 'E' {
		return "unknown"
	}

	switch {
	case code >= "E001" && code <= "E099":
		return PhaseStructure
	case code >= "E100" && code <= "E199":
		return PhaseMetadata
	case code >= "E200" && code <= "E299":
		return PhaseExpression
	case code >= "E300" && code <= "E399":
		return PhaseEmit
	case code >= "E500" && code <= "E599":
		return PhaseIO
	default:
		return "unknown"
	}
}
