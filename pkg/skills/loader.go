package skills

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/textutil"
)

// referencePattern matches mandatory references such as "Read [`forms.md`]".
var referencePattern = regexp.MustCompile("Read \\[`([^`\\n]+\\.md)`\\]")

const attachmentHeader = "\n\n=== ATTACHED DOC: %s ===\n"

// Loader reads instructions and resources of a selected skill on demand.
type Loader struct {
	resourceDirs []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithResourceDirs overrides the subdirectories enumerated by ListResources.
func WithResourceDirs(dirs ...string) LoaderOption {
	return func(l *Loader) {
		l.resourceDirs = dirs
	}
}

// NewLoader creates a Loader. By default resources live under scripts/,
// references/ and assets/.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		resourceDirs: []string{"scripts", "references", "assets"},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Hydrate turns a catalog entry into a fully loaded skill.
func (l *Loader) Hydrate(ctx context.Context, md Metadata) (*Skill, error) {
	if _, err := os.Stat(filepath.Join(md.Path, skillFileName)); err != nil {
		return nil, errors.Wrapf(ErrInstructionsMissing, "skill %s", md.Name)
	}

	instructions, err := l.LoadInstructions(ctx, md.Path)
	if err != nil {
		return nil, err
	}

	return &Skill{Metadata: md, Instructions: instructions}, nil
}

// LoadInstructions returns SKILL.md followed by every document it references
// as mandatory reading, each under an "ATTACHED DOC" header. A missing
// SKILL.md yields an empty string.
func (l *Loader) LoadInstructions(ctx context.Context, skillPath string) (string, error) {
	body, docs, err := l.load(ctx, skillPath)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(body)
	for _, doc := range docs {
		sb.WriteString(formatAttachment(doc))
	}
	return sb.String(), nil
}

// Attachments returns the documents LoadInstructions would merge, in
// discovery order.
func (l *Loader) Attachments(ctx context.Context, skillPath string) ([]AttachedDocument, error) {
	_, docs, err := l.load(ctx, skillPath)
	return docs, err
}

func (l *Loader) load(ctx context.Context, skillPath string) (string, []AttachedDocument, error) {
	log := logger.G(ctx).WithField("skill_path", skillPath)

	skillFile := filepath.Join(skillPath, skillFileName)
	raw, err := os.ReadFile(skillFile)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("instruction file does not exist")
			return "", nil, nil
		}
		return "", nil, errors.Wrapf(err, "failed to read %s", skillFile)
	}

	body := textutil.Sanitize(string(raw))
	refs := FindReferences(body)
	log.WithField("references", refs).Debug("scanned instruction references")

	var docs []AttachedDocument
	for _, name := range refs {
		docPath, ok := resolveWithin(skillPath, name)
		if !ok {
			log.WithField("document", name).Warn("referenced document escapes skill directory, skipping")
			continue
		}

		content, err := os.ReadFile(docPath)
		if err != nil {
			if os.IsNotExist(err) {
				log.WithField("document", docPath).Warn("referenced document not found, skipping")
				continue
			}
			return "", nil, errors.Wrapf(err, "failed to read attached document %s", name)
		}

		docs = append(docs, AttachedDocument{Name: name, Content: textutil.Sanitize(string(content))})
		log.WithField("document", name).WithField("chars", len(content)).Info("attached referenced document")
	}

	log.WithField("chars", len(body)).WithField("attachments", len(docs)).Info("instructions loaded")
	return body, docs, nil
}

// FindReferences returns the documents named by mandatory-reference markers in
// order of first appearance, without duplicates and without SKILL.md itself.
func FindReferences(body string) []string {
	seen := map[string]bool{skillFileName: true}
	var refs []string
	for _, m := range referencePattern.FindAllStringSubmatch(body, -1) {
		name := m[1]
		if seen[name] || filepath.Clean(name) == skillFileName {
			continue
		}
		seen[name] = true
		refs = append(refs, name)
	}
	return refs
}

func formatAttachment(doc AttachedDocument) string {
	return fmt.Sprintf(attachmentHeader, doc.Name) + doc.Content
}

// resolveWithin joins rel onto dir and reports whether the result stays
// inside dir.
func resolveWithin(dir, rel string) (string, bool) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", false
	}
	joined := filepath.Join(dir, rel)
	r, err := filepath.Rel(dir, joined)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return joined, true
}
