package skills

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pptxSkill = "---\nname: pptx\ndescription: Presentations\n---\n\n# PPTX\n\n" +
	"**MANDATORY**: Read [`html2pptx.md`] before writing any code.\n" +
	"Then Read [`ooxml.md`] for editing.\n" +
	"Again, Read [`html2pptx.md`] if unsure.\n" +
	"Also Read [`missing.md`] and Read [`SKILL.md`].\n"

func setupPptx(t *testing.T) string {
	t.Helper()
	dir := writeSkill(t, t.TempDir(), "pptx", pptxSkill)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "html2pptx.md"), []byte("# html2pptx guide"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ooxml.md"), []byte("# ooxml guide"), 0o644))
	return dir
}

func TestFindReferences(t *testing.T) {
	refs := FindReferences(pptxSkill)
	assert.Equal(t, []string{"html2pptx.md", "ooxml.md", "missing.md"}, refs)

	assert.Empty(t, FindReferences("no markers here, just `file.md`"))
	assert.Equal(t, []string{"a.md", "b.md"}, FindReferences("Read [`a.md`] and Read [`b.md`](b.md) on one line"))
}

func TestLoadInstructions(t *testing.T) {
	dir := setupPptx(t)
	loader := NewLoader()

	instructions, err := loader.LoadInstructions(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(instructions, pptxSkill))
	assert.Equal(t, 1, strings.Count(instructions, "=== ATTACHED DOC: html2pptx.md ==="))
	assert.Equal(t, 1, strings.Count(instructions, "=== ATTACHED DOC: ooxml.md ==="))
	assert.NotContains(t, instructions, "=== ATTACHED DOC: missing.md ===")
	assert.NotContains(t, instructions, "=== ATTACHED DOC: SKILL.md ===")
	assert.True(t, strings.HasSuffix(instructions,
		"\n\n=== ATTACHED DOC: html2pptx.md ===\n# html2pptx guide\n\n=== ATTACHED DOC: ooxml.md ===\n# ooxml guide"))
}

func TestLoadInstructionsIsIdempotent(t *testing.T) {
	dir := setupPptx(t)
	loader := NewLoader()

	first, err := loader.LoadInstructions(context.Background(), dir)
	require.NoError(t, err)
	second, err := loader.LoadInstructions(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoadInstructionsMissingFile(t *testing.T) {
	instructions, err := NewLoader().LoadInstructions(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", instructions)
}

func TestLoadInstructionsRejectsEscapingReferences(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.md"), []byte("secret"), 0o644))
	dir := writeSkill(t, root, "sneaky", "Read [`../secret.md`] first.\n")

	instructions, err := NewLoader().LoadInstructions(context.Background(), dir)
	require.NoError(t, err)
	assert.NotContains(t, instructions, "ATTACHED DOC")
}

func TestAttachments(t *testing.T) {
	dir := setupPptx(t)

	docs, err := NewLoader().Attachments(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, AttachedDocument{Name: "html2pptx.md", Content: "# html2pptx guide"}, docs[0])
	assert.Equal(t, "ooxml.md", docs[1].Name)
}

func TestHydrate(t *testing.T) {
	dir := setupPptx(t)
	loader := NewLoader()
	md := Metadata{Name: "pptx", Description: "Presentations", Path: dir}

	skill, err := loader.Hydrate(context.Background(), md)
	require.NoError(t, err)
	assert.Equal(t, md, skill.Metadata)
	assert.True(t, skill.Loaded())
	assert.Contains(t, skill.Instructions, "# ooxml guide")

	require.NoError(t, os.Remove(filepath.Join(dir, "SKILL.md")))
	_, err = loader.Hydrate(context.Background(), md)
	assert.True(t, errors.Is(err, ErrInstructionsMissing))
}

func TestResources(t *testing.T) {
	dir := setupPptx(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts", "lib"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "thumbnail.py"), []byte("print('hi')"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "lib", "util.py"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "logo.svg"), []byte("<svg/>"), 0o644))

	loader := NewLoader()
	ctx := context.Background()

	t.Run("load existing", func(t *testing.T) {
		assert.Equal(t, "print('hi')", loader.LoadResource(ctx, dir, "scripts/thumbnail.py"))
		assert.True(t, ResourceExists(dir, "scripts/thumbnail.py"))
	})

	t.Run("empty file versus missing file", func(t *testing.T) {
		assert.Equal(t, "", loader.LoadResource(ctx, dir, "scripts/lib/util.py"))
		assert.True(t, ResourceExists(dir, "scripts/lib/util.py"))

		assert.Equal(t, "", loader.LoadResource(ctx, dir, "scripts/nope.py"))
		assert.False(t, ResourceExists(dir, "scripts/nope.py"))
	})

	t.Run("directories and escapes are not resources", func(t *testing.T) {
		assert.False(t, ResourceExists(dir, "scripts"))
		assert.False(t, ResourceExists(dir, "../outside.md"))
		assert.Equal(t, "", loader.LoadResource(ctx, dir, "/etc/hostname"))
	})

	t.Run("list", func(t *testing.T) {
		resources, err := loader.ListResources(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"assets/logo.svg", "scripts/lib/util.py", "scripts/thumbnail.py"}, resources)
	})
}
