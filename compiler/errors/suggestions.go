package errors

import (
	"strings"
)

// suggestFix generates hints based on error code
func suggestFix(err CompilerError) *FixSuggestion {
	switch err.Code {
	case ErrAnnotationNotAdjacent:
		return suggestSeparator(err)
	case ErrSeparatorWithoutEntity:
		return &FixSuggestion{
			Description: "A '---' line closes the metadata of an '@annotate:' or '@guide:' directive; add a directive above it or remove it",
			Confidence:  0.8,
		}
	case ErrDocumentationBeforeAnno:
		return &FixSuggestion{
			Description: "Documentation must follow a directive; start the document with '@annotate: <symbol>' or '@guide: <title>'",
			NewCode:     "@annotate: Symbol\n---\n" + strings.TrimSpace(err.Context.Excerpt()),
			Confidence:  0.6,
		}
	case ErrMultiRefGuide, ErrGuideNotAlone:
		return &FixSuggestion{
			Description: "Guides cannot share a metadata block; close the previous annotation with '---' and documentation first",
			Confidence:  0.7,
		}
	case ErrMalformedMetadata:
		return suggestMetadataIndent(err)
	case ErrInvalidSpecialField:
		return &FixSuggestion{
			Description: "Deferred references are written as a mapping with a single '~' key",
			NewCode:     "belongsTo:\n  ~ref: Parent.symbol",
			Confidence:  0.9,
		}
	case ErrUnsupportedValue:
		return &FixSuggestion{
			Description: "Empty and null values cannot be emitted; quote the value or remove the key",
			Confidence:  0.7,
		}
	default:
		return nil
	}
}

// suggestSeparator proposes the '---' line that was probably forgotten
// between a metadata block and the next directive.
func suggestSeparator(err CompilerError) *FixSuggestion {
	line := strings.TrimSpace(err.Context.Excerpt())
	if line == "" {
		return &FixSuggestion{
			Description: "Close the previous metadata block with a '---' separator",
			Confidence:  0.8,
		}
	}

	return &FixSuggestion{
		Description: "Close the previous metadata block with a '---' separator before starting a new annotation",
		OldCode:     line,
		NewCode:     "---\n" + line,
		Confidence:  0.85,
	}
}

// suggestMetadataIndent points out tabs, which YAML never allows for indentation.
func suggestMetadataIndent(err CompilerError) *FixSuggestion {
	line := err.Context.Excerpt()
	if !strings.HasPrefix(line, "\t") {
		return nil
	}

	return &FixSuggestion{
		Description: "Metadata is YAML: indent with spaces, not tabs",
		OldCode:     line,
		NewCode:     strings.ReplaceAll(line, "\t", "  "),
		Confidence:  0.9,
	}
}
