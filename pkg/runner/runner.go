// Package runner executes generated scripts as child processes with the
// skill's bundled helpers on the interpreter's module search path.
package runner

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/osutil"
)

// Defaults applied by New for zero-valued Config fields.
const (
	DefaultInterpreter   = "python3"
	DefaultScriptPath    = "temp_skill_script.py"
	DefaultSearchPathVar = "PYTHONPATH"
)

// DefaultTimeout is the configured execution limit when none is set. New
// leaves a zero Timeout alone, since zero means unbounded.
const DefaultTimeout = 5 * time.Minute

// DefaultSearchDirs are the skill-relative directories put on the search
// path when they exist.
var DefaultSearchDirs = []string{".", "ooxml", "scripts", filepath.Join("ooxml", "ooxml")}

// Config configures script execution.
type Config struct {
	Interpreter   string        `mapstructure:"interpreter"`
	ScriptPath    string        `mapstructure:"script_path"`
	SearchPathVar string        `mapstructure:"search_path_var"`
	SearchDirs    []string      `mapstructure:"search_dirs"`
	// Timeout bounds each run; zero leaves the child unbounded.
	Timeout time.Duration `mapstructure:"timeout"`
	// Dir is the child's working directory; empty inherits ours.
	Dir string `mapstructure:"dir"`
}

// Execution is the outcome of one script run that got as far as starting.
type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	TimedOut bool          `json:"timed_out,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the script exited 0 within its time limit.
func (e Execution) Succeeded() bool {
	return e.ExitCode == 0 && !e.TimedOut
}

// Runner writes and runs the generated script.
type Runner struct {
	config Config
}

// New creates a runner, filling unset fields with the defaults.
func New(config Config) *Runner {
	if config.Interpreter == "" {
		config.Interpreter = DefaultInterpreter
	}
	if config.ScriptPath == "" {
		config.ScriptPath = DefaultScriptPath
	}
	if config.SearchPathVar == "" {
		config.SearchPathVar = DefaultSearchPathVar
	}
	if config.SearchDirs == nil {
		config.SearchDirs = DefaultSearchDirs
	}
	if config.Timeout < 0 {
		config.Timeout = 0
	}
	if !filepath.IsAbs(config.ScriptPath) {
		base := config.Dir
		if base == "" {
			base, _ = os.Getwd()
		}
		config.ScriptPath = filepath.Join(base, config.ScriptPath)
	}
	return &Runner{config: config}
}

// Config returns the effective configuration.
func (r *Runner) Config() Config {
	return r.config
}

// ScriptPath is the absolute path the script is written to.
func (r *Runner) ScriptPath() string {
	return r.config.ScriptPath
}

// WriteScript replaces the script file with code.
func (r *Runner) WriteScript(code string) error {
	if err := lockedfile.Write(r.config.ScriptPath, strings.NewReader(code), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write script %s", r.config.ScriptPath)
	}
	return nil
}

// SearchPath lists, in order, the absolute candidate directories under
// skillPath that exist.
func (r *Runner) SearchPath(skillPath string) []string {
	if skillPath == "" {
		return nil
	}

	seen := make(map[string]bool)
	var dirs []string
	for _, rel := range r.config.SearchDirs {
		abs, err := filepath.Abs(filepath.Join(skillPath, rel))
		if err != nil || seen[abs] {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			continue
		}
		seen[abs] = true
		dirs = append(dirs, abs)
	}
	return dirs
}

// Environment returns the inherited environment with the skill's search
// directories prepended to the search-path variable. The inherited value is
// kept after the new entries. With no existing candidates the environment is
// returned unchanged.
func (r *Runner) Environment(skillPath string) []string {
	env := os.Environ()
	dirs := r.SearchPath(skillPath)
	if len(dirs) == 0 {
		return env
	}

	prefix := r.config.SearchPathVar + "="
	inherited := ""
	index := -1
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			inherited = strings.TrimPrefix(kv, prefix)
			index = i
		}
	}

	if inherited != "" {
		dirs = append(dirs, inherited)
	}
	entry := prefix + strings.Join(dirs, string(os.PathListSeparator))

	if index >= 0 {
		env[index] = entry
		return env
	}
	return append(env, entry)
}

// Run executes the script with the interpreter. A non-zero exit or a
// timeout is reported through the Execution; an error means the process
// could not run at all or ctx was cancelled.
func (r *Runner) Run(ctx context.Context, skillPath string) (Execution, error) {
	log := logger.G(ctx).WithField("script", r.config.ScriptPath)

	runCtx := ctx
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.config.Interpreter, r.config.ScriptPath)
	cmd.Dir = r.config.Dir
	cmd.Env = r.Environment(skillPath)
	osutil.SetProcessGroup(cmd)
	osutil.SetProcessGroupKill(cmd)
	cmd.WaitDelay = osutil.GracefulShutdownDelay + time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.WithField("interpreter", r.config.Interpreter).
		WithField("search_path", r.SearchPath(skillPath)).
		Info("executing script")

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Execution{}, errors.Wrapf(err, "failed to start %s", r.config.Interpreter)
	}

	err := cmd.Wait()
	execution := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() != nil {
		return execution, errors.Wrap(ctx.Err(), "script execution cancelled")
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		execution.TimedOut = true
		execution.ExitCode = -1
		if cmd.ProcessState != nil && cmd.ProcessState.ExitCode() >= 0 {
			execution.ExitCode = cmd.ProcessState.ExitCode()
		}
		log.WithField("timeout", r.config.Timeout).Warn("script timed out")
		return execution, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return execution, errors.Wrap(err, "failed to wait for script")
		}
		execution.ExitCode = exitErr.ExitCode()
	}

	log.WithField("exit_code", execution.ExitCode).
		WithField("duration", execution.Duration).
		Info("script finished")
	return execution, nil
}
