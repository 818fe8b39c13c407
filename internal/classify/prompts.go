package classify

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/categories.md
var categoryPromptRaw string

// categoryPromptTemplate is the parsed classification prompt, shared by all
// backends so primary and fallback honor the same contract. Parsed once at
// package init; reused on every Classify call.
var categoryPromptTemplate = template.Must(template.New("categories").Parse(categoryPromptRaw))

// maxPromptDescription caps how much of the description is sent to a model.
// Community postings can run to many kilobytes of boilerplate; the opening
// section carries the signal.
const maxPromptDescription = 2000
