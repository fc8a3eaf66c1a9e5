package skills

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/textutil"
)

// Catalog is the metadata-only view of every skill found under a skills root.
type Catalog struct {
	Root   string
	Skills []Metadata
	// Skipped aggregates the reasons individual skills were left out. It is
	// informational; a catalog with skipped skills is still usable.
	Skipped *multierror.Error
}

// Len returns the number of skills in the catalog.
func (c Catalog) Len() int {
	return len(c.Skills)
}

// Names returns skill names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c.Skills))
	for _, s := range c.Skills {
		names = append(names, s.Name)
	}
	return names
}

// Find returns the skill with exactly the given name.
func (c Catalog) Find(name string) (Metadata, bool) {
	for _, s := range c.Skills {
		if s.Name == name {
			return s, true
		}
	}
	return Metadata{}, false
}

// ResolveRoot returns the skills directory for rootDir. rootDir may be the
// skills directory itself or its parent.
func ResolveRoot(rootDir string) string {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		abs = filepath.Clean(rootDir)
	}
	if filepath.Base(abs) == skillsDirName {
		return abs
	}
	return filepath.Join(abs, skillsDirName)
}

// LoadAll scans the immediate subdirectories of the skills root and reads the
// frontmatter of each SKILL.md. A missing or empty root yields an empty
// catalog. Skills that fail to parse are logged and skipped.
func LoadAll(ctx context.Context, rootDir string) Catalog {
	log := logger.G(ctx)
	catalog := Catalog{Root: ResolveRoot(rootDir)}

	entries, err := os.ReadDir(catalog.Root)
	if err != nil {
		log.WithError(err).WithField("skills_root", catalog.Root).Warn("skills root not readable, no skills available")
		return catalog
	}

	for _, entry := range entries {
		entryPath := filepath.Join(catalog.Root, entry.Name())

		// os.Stat follows symlinks so linked skill directories are included
		info, err := os.Stat(entryPath)
		if err != nil || !info.IsDir() {
			continue
		}

		skillFile := filepath.Join(entryPath, skillFileName)
		if _, err := os.Stat(skillFile); err != nil {
			continue
		}

		md, err := readMetadata(skillFile)
		if err != nil {
			log.WithError(err).WithField("skill_file", skillFile).Error("failed to extract skill metadata, skipping")
			catalog.Skipped = multierror.Append(catalog.Skipped, errors.Wrapf(err, "skill %s", entry.Name()))
			continue
		}
		md.Path = entryPath
		catalog.Skills = append(catalog.Skills, md)
	}

	log.WithField("count", len(catalog.Skills)).Info("loaded skill metadata")
	return catalog
}

// FilterByAllowlist keeps only the skills whose names match an allowlist
// entry. Entries are glob patterns ("pdf*", "{docx,xlsx}"); an entry that is
// not a valid pattern matches its literal name. An empty allowlist keeps
// everything.
func FilterByAllowlist(catalog Catalog, allowed []string) Catalog {
	if len(allowed) == 0 {
		return catalog
	}

	matchers := make([]func(string) bool, 0, len(allowed))
	for _, pattern := range allowed {
		if g, err := glob.Compile(pattern); err == nil {
			matchers = append(matchers, g.Match)
			continue
		}
		literal := pattern
		matchers = append(matchers, func(name string) bool { return name == literal })
	}

	filtered := Catalog{Root: catalog.Root, Skipped: catalog.Skipped}
	for _, s := range catalog.Skills {
		for _, match := range matchers {
			if match(s.Name) {
				filtered.Skills = append(filtered.Skills, s)
				break
			}
		}
	}
	return filtered
}

func readMetadata(path string) (Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "failed to read skill file")
	}

	// invalid bytes are dropped before YAML sees them
	fields, err := parseFrontmatter([]byte(textutil.Sanitize(string(content))))
	if err != nil {
		return Metadata{}, err
	}

	md := Metadata{
		Name:        UnknownName,
		Description: "",
	}
	if v, ok := fields["name"]; ok && v != nil {
		md.Name = textutil.Sanitize(scalarString(v))
	}
	if v, ok := fields["description"]; ok && v != nil {
		md.Description = textutil.Sanitize(scalarString(v))
	}
	return md, nil
}

// parseFrontmatter returns the YAML header of a SKILL.md document. The header
// must open on the first line and be closed by a second delimiter line.
func parseFrontmatter(content []byte) (map[string]interface{}, error) {
	if !hasFrontmatter(string(content)) {
		return nil, errors.New("missing frontmatter")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	fields, err := meta.TryGet(pctx)
	if err != nil {
		return nil, errors.Wrap(err, "malformed frontmatter")
	}
	if len(fields) == 0 {
		return nil, errors.New("empty frontmatter")
	}
	return fields, nil
}

func hasFrontmatter(content string) bool {
	lines := strings.Split(content, "\n")
	if len(lines) < 2 || !isDelimiter(lines[0]) {
		return false
	}
	for _, line := range lines[1:] {
		if isDelimiter(line) {
			return true
		}
	}
	return false
}

func isDelimiter(line string) bool {
	line = strings.TrimSpace(line)
	return len(line) >= 3 && strings.Trim(line, "-") == ""
}

func scalarString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
