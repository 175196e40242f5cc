package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/sourceplane/varcall/internal/jobscript"
	"github.com/sourceplane/varcall/internal/model"
)

// Slurm drives sbatch and sacct
type Slurm struct{}

func (Slurm) Name() string          { return "slurm" }
func (Slurm) SubmitCommand() string { return "sbatch" }
func (Slurm) StatusCommand() string { return "sacct" }

func (s Slurm) SubmitArgs(job *jobscript.Job, extra []string) []string {
	args := []string{
		"--parsable",
		"--job-name=" + job.Name + "_" + jobscript.SanitizeID(job.ID),
		"--output=" + job.Log,
	}
	if job.Resources.CPUs > 0 {
		args = append(args, fmt.Sprintf("--cpus-per-task=%d", job.Resources.CPUs))
	}
	if job.Resources.MemMB > 0 {
		args = append(args, fmt.Sprintf("--mem=%dM", job.Resources.MemMB))
	}
	if job.Resources.Time > 0 {
		args = append(args, "--time="+slurmTime(job.Resources.Time))
	}
	args = append(args, s.EncodeDependencies(job.Dependencies, job.KillOnError)...)
	args = append(args, extra...)
	return append(args, job.Script)
}

// EncodeDependencies uses afterok for kill-on-error jobs, cancelling them
// when a dependency fails, and afterany for fan-in jobs.
func (Slurm) EncodeDependencies(handles []model.JobHandle, killOnError bool) []string {
	if len(handles) == 0 {
		return nil
	}
	if killOnError {
		return []string{"--dependency=afterok:" + joinHandles(handles, ":"), "--kill-on-invalid-dep=yes"}
	}
	return []string{"--dependency=afterany:" + joinHandles(handles, ":")}
}

// ParseJobID reads "<id>" or "<id>;<cluster>" as printed by --parsable.
func (Slurm) ParseJobID(out []byte) (model.JobHandle, error) {
	id := firstField(out)
	if i := strings.Index(id, ";"); i >= 0 {
		id = id[:i]
	}
	if id == "" || strings.Trim(id, "0123456789_") != "" {
		return "", fmt.Errorf("unexpected sbatch output %q", strings.TrimSpace(string(out)))
	}
	return model.JobHandle(id), nil
}

func (Slurm) StatusArgs(handle model.JobHandle) []string {
	return []string{"-j", string(handle), "-X", "-n", "-o", "State"}
}

func (Slurm) ParseState(out []byte) model.JobState {
	state := strings.TrimRight(firstField(out), "+")
	switch state {
	case "PENDING", "CONFIGURING", "REQUEUED", "REQUEUE_HOLD", "REQUEUE_FED", "RESIZING", "SUSPENDED":
		return model.StatePending
	case "RUNNING", "COMPLETING", "STAGE_OUT", "SIGNALING":
		return model.StateRunning
	case "COMPLETED":
		return model.StateCompleted
	case "FAILED", "CANCELLED", "TIMEOUT", "OUT_OF_MEMORY", "NODE_FAIL", "PREEMPTED", "BOOT_FAIL", "DEADLINE", "REVOKED":
		return model.StateFailed
	default:
		return model.StateUnknown
	}
}

func (Slurm) MetricsCommand(handles []model.JobHandle, out string) string {
	return fmt.Sprintf("sacct -j %s --format=JobID,JobName%%40,State,ExitCode,Elapsed,MaxRSS,ReqMem,AllocCPUS > %s",
		joinHandles(handles, ","), out)
}

// slurmTime formats d as D-HH:MM:SS.
func slurmTime(d time.Duration) string {
	d = d.Round(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%d-%02d:%02d:%02d", days, h, m, s)
}
