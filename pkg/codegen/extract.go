package codegen

import (
	"regexp"
	"strings"
	"sync"
)

var (
	untaggedFence = regexp.MustCompile("(?s)```\n(.*)```")

	taggedMu     sync.Mutex
	taggedFences = map[string]*regexp.Regexp{}
)

func taggedFence(language string) *regexp.Regexp {
	taggedMu.Lock()
	defer taggedMu.Unlock()

	if re, ok := taggedFences[language]; ok {
		return re
	}
	re := regexp.MustCompile("(?s)```" + regexp.QuoteMeta(language) + "\n(.*)```")
	taggedFences[language] = re
	return re
}

// ExtractCode pulls the code out of a fenced block tagged with language,
// falling back to an untagged block. The match runs to the last closing
// fence in the response. The code is trimmed of surrounding whitespace.
func ExtractCode(response, language string) (string, bool) {
	if language != "" {
		if m := taggedFence(language).FindStringSubmatch(response); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	if m := untaggedFence.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}
