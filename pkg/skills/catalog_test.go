package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, root, dir, content string) string {
	t.Helper()
	skillDir := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644))
	return skillDir
}

func TestResolveRoot(t *testing.T) {
	tmpDir := t.TempDir()

	assert.Equal(t, filepath.Join(tmpDir, "skills"), ResolveRoot(tmpDir))
	assert.Equal(t, filepath.Join(tmpDir, "skills"), ResolveRoot(filepath.Join(tmpDir, "skills")))
}

func TestLoadAll(t *testing.T) {
	tmpDir := t.TempDir()
	skillsDir := filepath.Join(tmpDir, "skills")

	pdfDir := writeSkill(t, skillsDir, "pdf", `---
name: pdf
description: Create and edit PDF documents
---

# PDF

Use reportlab.
`)
	writeSkill(t, skillsDir, "docx", `---
name: docx
description: Word documents
license: Proprietary
---
# DOCX
`)

	t.Run("from parent directory", func(t *testing.T) {
		catalog := LoadAll(context.Background(), tmpDir)
		require.Equal(t, 2, catalog.Len())
		assert.Equal(t, []string{"docx", "pdf"}, catalog.Names())

		pdf, ok := catalog.Find("pdf")
		require.True(t, ok)
		assert.Equal(t, "Create and edit PDF documents", pdf.Description)
		assert.Equal(t, pdfDir, pdf.Path)
		assert.Nil(t, catalog.Skipped)
	})

	t.Run("from skills directory", func(t *testing.T) {
		catalog := LoadAll(context.Background(), skillsDir)
		assert.Equal(t, 2, catalog.Len())
		assert.Equal(t, skillsDir, catalog.Root)
	})
}

func TestLoadAllMissingOrEmptyRoot(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		catalog := LoadAll(context.Background(), filepath.Join(t.TempDir(), "nope"))
		assert.Equal(t, 0, catalog.Len())
		assert.Nil(t, catalog.Skipped)
	})

	t.Run("empty root", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "skills"), 0o755))
		catalog := LoadAll(context.Background(), tmpDir)
		assert.Equal(t, 0, catalog.Len())
	})
}

func TestLoadAllDefaults(t *testing.T) {
	skillsDir := filepath.Join(t.TempDir(), "skills")
	writeSkill(t, skillsDir, "nameless", `---
license: MIT
---
body
`)
	writeSkill(t, skillsDir, "numeric", `---
name: 42
---
body
`)

	catalog := LoadAll(context.Background(), skillsDir)
	require.Equal(t, 2, catalog.Len())

	nameless := catalog.Skills[0]
	assert.Equal(t, UnknownName, nameless.Name)
	assert.Equal(t, "", nameless.Description)

	numeric := catalog.Skills[1]
	assert.Equal(t, "42", numeric.Name)
	assert.Equal(t, "", numeric.Description)
}

func TestLoadAllSkipsBrokenSkills(t *testing.T) {
	skillsDir := filepath.Join(t.TempDir(), "skills")

	writeSkill(t, skillsDir, "good", `---
name: good
description: fine
---
`)
	writeSkill(t, skillsDir, "no-header", "# Just a body\n\nNo frontmatter here.\n")
	writeSkill(t, skillsDir, "unterminated", "---\nname: broken\ndescription: never closed\n")
	writeSkill(t, skillsDir, "bad-yaml", "---\nname: [unclosed\n---\nbody\n")
	writeSkill(t, skillsDir, "empty-header", "---\n---\nbody\n")

	// a directory without SKILL.md is ignored silently
	require.NoError(t, os.MkdirAll(filepath.Join(skillsDir, "assets-only"), 0o755))
	// plain files at the root are not skills
	require.NoError(t, os.WriteFile(filepath.Join(skillsDir, "README.md"), []byte("readme"), 0o644))

	catalog := LoadAll(context.Background(), skillsDir)

	assert.Equal(t, []string{"good"}, catalog.Names())
	require.NotNil(t, catalog.Skipped)
	assert.Len(t, catalog.Skipped.Errors, 4)
}

func TestLoadAllSanitizesMetadata(t *testing.T) {
	skillsDir := filepath.Join(t.TempDir(), "skills")
	writeSkill(t, skillsDir, "odd", "---\nname: odd\ndescription: \"bad \xed\xa0\x80bytes\"\n---\nbody\n")

	catalog := LoadAll(context.Background(), skillsDir)
	require.Equal(t, 1, catalog.Len())
	assert.Equal(t, "bad bytes", catalog.Skills[0].Description)
}

func TestLoadAllFollowsSymlinks(t *testing.T) {
	tmpDir := t.TempDir()
	skillsDir := filepath.Join(tmpDir, "skills")
	require.NoError(t, os.MkdirAll(skillsDir, 0o755))

	actual := writeSkill(t, filepath.Join(tmpDir, "elsewhere"), "linked", `---
name: linked
description: reached through a symlink
---
`)
	require.NoError(t, os.Symlink(actual, filepath.Join(skillsDir, "linked")))
	require.NoError(t, os.Symlink("/non/existent/path", filepath.Join(skillsDir, "broken")))

	catalog := LoadAll(context.Background(), skillsDir)
	assert.Equal(t, []string{"linked"}, catalog.Names())
}

func TestFilterByAllowlist(t *testing.T) {
	catalog := Catalog{Skills: []Metadata{{Name: "a"}, {Name: "b"}, {Name: "c"}}}

	assert.Equal(t, catalog, FilterByAllowlist(catalog, nil))
	assert.Equal(t, []string{"a", "c"}, FilterByAllowlist(catalog, []string{"c", "a", "zz"}).Names())
}

func TestFilterByAllowlistPatterns(t *testing.T) {
	catalog := Catalog{Skills: []Metadata{{Name: "pdf"}, {Name: "pdf-forms"}, {Name: "docx"}, {Name: "xlsx"}, {Name: "[odd"}}}

	tests := []struct {
		name    string
		allowed []string
		want    []string
	}{
		{"prefix", []string{"pdf*"}, []string{"pdf", "pdf-forms"}},
		{"alternatives", []string{"{docx,xlsx}"}, []string{"docx", "xlsx"}},
		{"single character", []string{"?lsx"}, []string{"xlsx"}},
		{"invalid pattern matches literally", []string{"[odd"}, []string{"[odd"}},
		{"no match", []string{"pptx*"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterByAllowlist(catalog, tt.allowed).Names())
		})
	}
}
