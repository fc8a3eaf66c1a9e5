package prompts

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SkillSummary is one catalog line of the discovery prompt.
type SkillSummary struct {
	Name        string
	Description string
}

// DiscoveryContext feeds templates/discovery.tmpl.
type DiscoveryContext struct {
	Task     string
	Skills   []SkillSummary
	Examples string
	None     string
}

// NewDiscoveryContext builds the discovery context. Up to three skill names
// are quoted as answer examples.
func NewDiscoveryContext(task string, skills []SkillSummary) DiscoveryContext {
	examples := make([]string, 0, 3)
	for _, s := range skills {
		if len(examples) == 3 {
			break
		}
		examples = append(examples, `"`+s.Name+`"`)
	}
	return DiscoveryContext{
		Task:     task,
		Skills:   skills,
		Examples: strings.Join(examples, ", "),
		None:     NoneAnswer,
	}
}

// GenerateContext feeds templates/generate.tmpl.
type GenerateContext struct {
	SkillName    string
	Instructions string
	Task         string
	Language     string
}

// RetryFailedContext feeds templates/retry_failed.tmpl.
type RetryFailedContext struct {
	Code     string
	Error    string
	Language string
	Fence    string
}

// RetryErrorContext feeds templates/retry_error.tmpl. MissingCode selects
// the "code block only" directive instead of a plain retry request.
type RetryErrorContext struct {
	Error       string
	MissingCode bool
	Fence       string
}

// Discovery renders the skill discovery prompt.
func Discovery(ctx DiscoveryContext) (string, error) {
	return defaultRenderer.RenderPrompt(DiscoveryTemplate, ctx)
}

// Generate renders the base code generation prompt.
func Generate(ctx GenerateContext) (string, error) {
	return defaultRenderer.RenderPrompt(GenerateTemplate, ctx)
}

// RetryFailed renders the section appended after a script exits non-zero.
func RetryFailed(ctx RetryFailedContext) (string, error) {
	return defaultRenderer.RenderPrompt(RetryFailedTemplate, ctx)
}

// RetryError renders the section appended after an attempt that never ran.
func RetryError(ctx RetryErrorContext) (string, error) {
	return defaultRenderer.RenderPrompt(RetryErrorTemplate, ctx)
}

// LanguageName turns a fence tag such as "python" into its display name.
func LanguageName(fence string) string {
	switch strings.ToLower(fence) {
	case "", "python", "py":
		return "Python"
	case "javascript", "js":
		return "JavaScript"
	case "typescript", "ts":
		return "TypeScript"
	case "sh", "bash", "shell":
		return "Shell"
	}
	r, size := utf8.DecodeRuneInString(fence)
	return string(unicode.ToUpper(r)) + fence[size:]
}
