package version

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, BuildTime, info.BuildTime)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestInfoString(t *testing.T) {
	info := Info{Version: "0.3.0", GitCommit: "abc123", BuildTime: "2026-10-01", GoVersion: "go1.25.1", Platform: "linux/amd64"}

	assert.Equal(t,
		"Version: 0.3.0, GitCommit: abc123, BuildTime: 2026-10-01, GoVersion: go1.25.1, Platform: linux/amd64",
		info.String())
}

func TestInfoJSON(t *testing.T) {
	info := Info{Version: "0.3.0", GitCommit: "abc123"}

	out, err := info.JSON()
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "0.3.0", decoded["version"])
	assert.Equal(t, "abc123", decoded["gitCommit"])
	assert.Contains(t, out, "\n  \"version\"")
}
