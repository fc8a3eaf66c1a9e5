package skills

import (
	"context"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
)

// LoadResource reads a file bundled with a skill, such as a script or a
// reference sheet. It returns "" when the file does not exist; since bundled
// files may legitimately be empty, use ResourceExists to tell the two apart.
func (l *Loader) LoadResource(ctx context.Context, skillPath, relPath string) string {
	log := logger.G(ctx).WithField("resource", relPath)

	full, ok := resolveWithin(skillPath, relPath)
	if !ok {
		log.Warn("resource path escapes skill directory")
		return ""
	}

	content, err := os.ReadFile(full)
	if err != nil {
		log.WithError(err).Warn("resource not found")
		return ""
	}

	log.Info("loaded resource")
	return string(content)
}

// ResourceExists reports whether relPath names a regular file inside the
// skill directory.
func ResourceExists(skillPath, relPath string) bool {
	full, ok := resolveWithin(skillPath, relPath)
	if !ok {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

// ListResources enumerates the files under the skill's resource directories,
// relative to the skill directory and sorted.
func (l *Loader) ListResources(skillPath string) ([]string, error) {
	fsys := os.DirFS(skillPath)

	var out []string
	for _, dir := range l.resourceDirs {
		matches, err := doublestar.Glob(fsys, dir+"/**", doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list resources under %s", dir)
		}
		out = append(out, matches...)
	}

	sort.Strings(out)
	return out, nil
}
