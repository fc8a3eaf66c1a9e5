// Package skills implements progressive disclosure over a directory of skills.
// Each skill is a directory holding a SKILL.md file whose YAML frontmatter
// names and describes it. Only that frontmatter is read when the catalog is
// built; the instruction body, its attached documents and any bundled
// resources are read later, once a skill has actually been selected.
package skills

import "github.com/pkg/errors"

const (
	skillFileName = "SKILL.md"
	skillsDirName = "skills"

	// UnknownName is used when the frontmatter carries no name.
	UnknownName = "unknown"
)

// ErrInstructionsMissing is returned by Hydrate when the skill's SKILL.md is
// no longer present on disk.
var ErrInstructionsMissing = errors.New("skill instructions not found")

// Metadata is the lightweight record loaded for every skill at startup.
type Metadata struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Path        string `json:"path" yaml:"path"` // skill directory
}

// Skill is a selected skill whose instructions have been loaded.
type Skill struct {
	Metadata
	Instructions string
}

// Loaded reports whether the instruction text has been hydrated.
func (s *Skill) Loaded() bool {
	return s != nil && s.Instructions != ""
}

// AttachedDocument is a sibling document pulled into the instructions by a
// mandatory reference in SKILL.md.
type AttachedDocument struct {
	Name    string
	Content string
}
