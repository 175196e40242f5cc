package scheduler

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sourceplane/varcall/internal/jobscript"
	"github.com/sourceplane/varcall/internal/model"
)

var lsfJobID = regexp.MustCompile(`Job <(\d+)> is submitted`)

// LSF drives bsub and bjobs
type LSF struct{}

func (LSF) Name() string          { return "lsf" }
func (LSF) SubmitCommand() string { return "bsub" }
func (LSF) StatusCommand() string { return "bjobs" }

func (l LSF) SubmitArgs(job *jobscript.Job, extra []string) []string {
	args := []string{
		"-J", job.Name + "_" + jobscript.SanitizeID(job.ID),
		"-o", job.Log,
	}
	if job.Resources.CPUs > 0 {
		args = append(args, "-n", fmt.Sprint(job.Resources.CPUs))
	}
	if job.Resources.MemMB > 0 {
		args = append(args,
			"-M", fmt.Sprint(job.Resources.MemMB),
			"-R", fmt.Sprintf("rusage[mem=%d]", job.Resources.MemMB))
	}
	if job.Resources.Time > 0 {
		args = append(args, "-W", lsfTime(job.Resources.Time))
	}
	args = append(args, l.EncodeDependencies(job.Dependencies, job.KillOnError)...)
	args = append(args, extra...)
	return append(args, job.Script)
}

// EncodeDependencies uses done() for kill-on-error jobs and ended() for
// fan-in jobs.
func (LSF) EncodeDependencies(handles []model.JobHandle, killOnError bool) []string {
	if len(handles) == 0 {
		return nil
	}
	cond := "done"
	if !killOnError {
		cond = "ended"
	}
	parts := make([]string, len(handles))
	for i, h := range handles {
		parts[i] = fmt.Sprintf("%s(%s)", cond, h)
	}
	args := []string{"-w", strings.Join(parts, " && ")}
	if killOnError {
		// jobs whose dependency can never be met are removed from the queue
		args = append(args, "-ti")
	}
	return args
}

func (LSF) ParseJobID(out []byte) (model.JobHandle, error) {
	m := lsfJobID.FindSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("unexpected bsub output %q", strings.TrimSpace(string(out)))
	}
	return model.JobHandle(m[1]), nil
}

func (LSF) StatusArgs(handle model.JobHandle) []string {
	return []string{"-noheader", "-o", "stat", string(handle)}
}

func (LSF) ParseState(out []byte) model.JobState {
	switch firstField(out) {
	case "PEND", "PSUSP", "WAIT":
		return model.StatePending
	case "RUN", "USUSP", "SSUSP", "PROV":
		return model.StateRunning
	case "DONE":
		return model.StateCompleted
	case "EXIT":
		return model.StateFailed
	default:
		return model.StateUnknown
	}
}

func (LSF) MetricsCommand(handles []model.JobHandle, out string) string {
	return fmt.Sprintf("bjobs -a -o \"jobid job_name stat exit_code run_time max_mem cpu_used\" %s > %s",
		joinHandles(handles, " "), out)
}

// lsfTime formats d as HH:MM, rounding up to the minute.
func lsfTime(d time.Duration) string {
	minutes := int64((d + time.Minute - 1) / time.Minute)
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}
