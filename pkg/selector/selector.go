// Package selector picks the skill for a task by showing the oracle only the
// metadata catalog: names and truncated descriptions, never instructions.
package selector

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillet/pkg/llm"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/prompts"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/telemetry"
	"github.com/jingkaihe/skillet/pkg/textutil"
)

// DescriptionLimit is how many characters of each description the
// discovery prompt carries.
const DescriptionLimit = 150

// Selector asks the oracle which skill fits a task.
type Selector struct {
	oracle llm.Oracle
}

// New creates a selector backed by oracle.
func New(oracle llm.Oracle) *Selector {
	return &Selector{oracle: oracle}
}

// Select returns the chosen skill, or nil when the catalog is empty, the
// oracle answers NONE or names nothing in the catalog, or the oracle call
// fails.
func (s *Selector) Select(ctx context.Context, task string, catalog []skills.Metadata) *skills.Metadata {
	log := logger.G(ctx)
	if len(catalog) == 0 {
		log.Info("no skills available, skipping discovery")
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "selector.select", attribute.Int("skills.count", len(catalog)))
	defer span.End()

	summaries := make([]prompts.SkillSummary, 0, len(catalog))
	for _, md := range catalog {
		summaries = append(summaries, prompts.SkillSummary{
			Name:        md.Name,
			Description: textutil.Truncate(textutil.Sanitize(md.Description), DescriptionLimit),
		})
	}

	prompt, err := prompts.Discovery(prompts.NewDiscoveryContext(textutil.Sanitize(task), summaries))
	if err != nil {
		log.WithError(err).Error("failed to render discovery prompt")
		return nil
	}
	log.Debugf("discovery prompt:\n%s", prompt)

	log.WithField("candidates", len(catalog)).Info("asking oracle to select a skill")
	response, err := s.oracle.Complete(ctx, prompt)
	if err != nil {
		telemetry.RecordError(ctx, err)
		log.WithError(err).Error("skill discovery failed, continuing without a skill")
		return nil
	}

	answer := Normalize(response)
	log.WithField("answer", answer).Info("oracle discovery answer")
	span.SetAttributes(attribute.String("selector.answer", answer))

	selected := Match(answer, catalog)
	if selected == nil {
		log.Info("no skill matched the task")
		return nil
	}

	log.WithField("skill", selected.Name).Info("skill selected")
	span.SetAttributes(attribute.String("skill.name", selected.Name))
	return selected
}

const (
	wrapperChars  = "\"'`*"
	trailingPunct = ".,;:!?"
)

// Normalize reduces a raw oracle answer to a lower-case candidate name.
func Normalize(response string) string {
	answer := strings.TrimSpace(response)
	for {
		trimmed := strings.TrimSpace(strings.Trim(answer, wrapperChars))
		trimmed = strings.TrimSpace(strings.TrimRight(trimmed, trailingPunct))
		if trimmed == answer {
			break
		}
		answer = trimmed
	}
	return strings.ToLower(answer)
}

// Match resolves a normalized answer against the catalog. An exact
// case-insensitive name match anywhere in the catalog wins; otherwise the
// first skill whose name contains the answer is chosen.
func Match(answer string, catalog []skills.Metadata) *skills.Metadata {
	if answer == "" || answer == strings.ToLower(prompts.NoneAnswer) {
		return nil
	}

	for _, md := range catalog {
		if strings.ToLower(md.Name) == answer {
			selected := md
			return &selected
		}
	}

	for _, md := range catalog {
		if strings.Contains(strings.ToLower(md.Name), answer) {
			selected := md
			return &selected
		}
	}

	return nil
}
