// Package jobscript turns stage commands into executable batch scripts.
package jobscript

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"text/template"

	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/model"
)

const scriptTemplate = `#!/bin/bash
# {{ .Name }} {{ .ID }}
set -euo pipefail
{{ range .Modules }}module load {{ . }}
{{ end }}
{{ .Command }}
`

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Job is a rendered, submittable stage
type Job struct {
	Name         string
	ID           string
	Command      string
	Resources    model.Resources
	Dependencies []model.JobHandle
	Modules      []string
	KillOnError  bool
	Script       string
	Log          string
}

// Writer renders job scripts into a log directory, prefixing every file
// with the run index. File names are unique within one writer even when
// sanitised identifiers coincide.
type Writer struct {
	Dir      string
	RunIndex int
	// DryRun tags every file so a later real run with the same index
	// never overwrites it
	DryRun bool
	tmpl   *template.Template

	mu   sync.Mutex
	used map[string]bool
}

// NewWriter creates a writer for dir and run index n.
func NewWriter(dir string, n int) *Writer {
	return &Writer{
		Dir:      dir,
		RunIndex: n,
		tmpl:     template.Must(template.New("job").Parse(scriptTemplate)),
	}
}

// SanitizeID makes a sample or patient identifier safe for file names.
func SanitizeID(id string) string {
	id = unsafeChars.ReplaceAllString(id, "_")
	return strings.Trim(id, "_")
}

// MakeJob writes the script of one stage and returns its descriptor.
func (w *Writer) MakeJob(name, id, command string, resources model.Resources, dependencies []model.JobHandle, modules []string, killOnError bool) (*Job, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("job %s/%s has an empty command", name, id)
	}

	base := w.claim(fmt.Sprintf("%s_%s_%s", w.prefix(), SanitizeID(name), SanitizeID(id)))
	job := &Job{
		Name:         name,
		ID:           id,
		Command:      command,
		Resources:    resources,
		Dependencies: append([]model.JobHandle(nil), dependencies...),
		Modules:      append([]string(nil), modules...),
		KillOnError:  killOnError,
		Script:       filepath.Join(w.Dir, base+".sh"),
		Log:          filepath.Join(w.Dir, base+".log"),
	}

	var buf strings.Builder
	if err := w.template().Execute(&buf, job); err != nil {
		return nil, cerror.WrapError(cerror.ErrScriptWrite, err, job.Script)
	}
	if err := os.WriteFile(job.Script, []byte(buf.String()), 0o755); err != nil {
		return nil, cerror.WrapError(cerror.ErrScriptWrite, err, job.Script)
	}
	return job, nil
}

// MakeFanIn writes a job that runs once its dependencies have ended,
// whatever their outcome.
func (w *Writer) MakeFanIn(name, id, command string, resources model.Resources, dependencies []model.JobHandle, modules []string) (*Job, error) {
	return w.MakeJob(name, id, command, resources, dependencies, modules, false)
}

func (w *Writer) prefix() string {
	if w.DryRun {
		return fmt.Sprintf("%d_dryrun", w.RunIndex)
	}
	return fmt.Sprintf("%d", w.RunIndex)
}

// claim returns base, or base with a numeric suffix when another job of
// this writer already took it.
func (w *Writer) claim(base string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.used == nil {
		w.used = make(map[string]bool)
	}
	name := base
	for n := 2; w.used[name]; n++ {
		name = fmt.Sprintf("%s.%d", base, n)
	}
	w.used[name] = true
	return name
}

func (w *Writer) template() *template.Template {
	if w.tmpl == nil {
		w.tmpl = template.Must(template.New("job").Parse(scriptTemplate))
	}
	return w.tmpl
}
