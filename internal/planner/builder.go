package planner

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/sourceplane/varcall/internal/command"
	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/jobscript"
	"github.com/sourceplane/varcall/internal/model"
	"github.com/sourceplane/varcall/internal/oracle"
	"github.com/sourceplane/varcall/internal/scheduler"
	"go.uber.org/zap"
)

// Builder turns a manifest into submitted jobs, skipping every phase whose
// output is already published
type Builder struct {
	Pipeline  *Pipeline
	Config    *model.ToolConfig
	OutDir    string
	Scheduler scheduler.Scheduler
	Writer    *jobscript.Writer
	Oracle    *oracle.Oracle
	// Remove adds a per-patient cleanup of intermediate files
	Remove bool
	Logger *zap.Logger
}

func (b *Builder) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

func (b *Builder) oracle() *oracle.Oracle {
	if b.Oracle == nil {
		return oracle.New()
	}
	return b.Oracle
}

// Prepare submits the reference indexing job when the pipeline needs it and
// the index is missing. It returns the handles every sample must wait for.
func (b *Builder) Prepare(ctx context.Context, state *model.RunState) ([]model.JobHandle, error) {
	if !b.Pipeline.Prepare {
		return nil, nil
	}

	fasta := b.Config.Reference.Fasta
	index := command.ReferenceIndex(fasta)
	if missing, size := b.oracle().Check(index); !missing {
		b.logger().Info("reference already indexed",
			zap.String("index", index),
			zap.String("size", humanize.Bytes(uint64(size))))
		state.Record(model.StageRecord{
			Name:     "prepare_reference",
			Phase:    "prepare",
			Outcome:  model.OutcomeSkipped,
			Sentinel: index,
		})
		return nil, nil
	}

	cmd, err := command.PrepareReference(prepareParams(b.Config))
	if err != nil {
		return nil, err
	}
	res, err := b.resources("prepare_reference")
	if err != nil {
		return nil, err
	}
	job, err := b.Writer.MakeJob("prepare_reference", "reference", cmd, res, nil,
		b.Config.ModulesFor("samtools", "gatk"), true)
	if err != nil {
		return nil, err
	}
	handle, err := b.Scheduler.Submit(ctx, job)
	if err != nil {
		return nil, err
	}
	state.Record(model.StageRecord{
		Name:        "prepare_reference",
		Phase:       "prepare",
		Outcome:     model.OutcomeSubmitted,
		Handle:      handle,
		Sentinel:    index,
		Script:      job.Script,
		KillOnError: true,
	})
	return []model.JobHandle{handle}, nil
}

// Build walks patients in lexicographic order and records every stage
// decision into state. Any error aborts the whole run.
func (b *Builder) Build(ctx context.Context, state *model.RunState, manifest model.SampleManifest, initial []model.JobHandle) error {
	for _, pid := range manifest.PatientIDs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.buildPatient(ctx, state, pid, manifest[pid], initial); err != nil {
			return fmt.Errorf("failed to build jobs for patient %s: %w", pid, err)
		}
	}
	return nil
}

func (b *Builder) buildPatient(ctx context.Context, state *model.RunState, pid string, patient model.Patient, initial []model.JobHandle) error {
	normals := patient.Normals(pid)
	tumours := patient.Tumours(pid)
	if b.Pipeline.RequiresNormal && len(normals) == 0 && len(tumours) > 0 {
		return cerror.ErrMissingNormal.GenWithStackByArgs(pid, b.Pipeline.Name)
	}

	var matched *model.Sample
	var anchor model.JobHandle
	for i := range normals {
		handles, err := b.buildSample(ctx, state, Context{
			Config: b.Config,
			OutDir: b.OutDir,
			Sample: normals[i],
		}, b.Pipeline.NormalPhases, initial, "")
		if err != nil {
			return err
		}
		if i == 0 {
			matched = &normals[0]
			if len(b.Pipeline.NormalPhases) > 0 {
				anchor = handles[b.Pipeline.NormalPhases[0].Name]
			}
		}
	}

	if len(tumours) > 0 && len(b.Pipeline.TumourPhases) == 0 {
		b.logger().Info("pipeline has no tumour phases, skipping tumour samples",
			zap.String("patient", pid), zap.Int("tumours", len(tumours)))
	}
	for i := range tumours {
		if _, err := b.buildSample(ctx, state, Context{
			Config: b.Config,
			OutDir: b.OutDir,
			Sample: tumours[i],
			Normal: matched,
		}, b.Pipeline.TumourPhases, initial, anchor); err != nil {
			return err
		}
	}

	return b.finalizePatient(ctx, state, pid)
}

// buildSample runs the phases of one sample and returns the publish handle
// of every submitted phase.
func (b *Builder) buildSample(ctx context.Context, state *model.RunState, c Context, phases []Phase, initial []model.JobHandle, anchor model.JobHandle) (map[string]model.JobHandle, error) {
	handles := make(map[string]model.JobHandle)
	prior := initial
	for _, phase := range phases {
		output := phase.Output(c)
		sentinel := oracle.Sentinel(output)
		if !b.oracle().IsMissing(sentinel) {
			_, size := b.oracle().Check(output)
			b.logger().Info("output already published, skipping",
				zap.String("patient", c.Sample.Patient),
				zap.String("sample", c.Sample.ID),
				zap.String("phase", phase.Name),
				zap.String("output", output),
				zap.String("size", humanize.Bytes(uint64(size))))
			state.Record(model.StageRecord{
				Name:     phase.Name,
				Phase:    phase.Name,
				Patient:  c.Sample.Patient,
				Sample:   c.Sample.ID,
				Outcome:  model.OutcomeSkipped,
				Sentinel: sentinel,
			})
			continue
		}

		deps := model.NewHandleSet(prior...)
		if phase.NeedsNormal {
			deps.Add(anchor)
		}
		specs, err := phase.Stages(c)
		if err != nil {
			return nil, err
		}
		handle, err := b.submitPhase(ctx, state, c, phase, specs, deps.Slice(), output, sentinel)
		if err != nil {
			return nil, err
		}
		handles[phase.Name] = handle
		prior = []model.JobHandle{handle}
	}
	return handles, nil
}

// submitPhase chains the phase's stages and a final publish stage. The
// publish handle stands for the whole phase.
func (b *Builder) submitPhase(ctx context.Context, state *model.RunState, c Context, phase Phase, specs []StageSpec, deps []model.JobHandle, output, sentinel string) (model.JobHandle, error) {
	id := c.Sample.Patient + "_" + c.Sample.ID
	mkdir := "mkdir -p " + filepath.Dir(command.Tentative(output)) + "\n"

	prev := deps
	for _, s := range specs {
		handle, script, err := b.submit(ctx, s.Name, s.paramsKey(), id, mkdir+s.Command, prev, s.Tools, true)
		if err != nil {
			return "", err
		}
		state.Record(model.StageRecord{
			Name:         s.Name,
			Phase:        phase.Name,
			Patient:      c.Sample.Patient,
			Sample:       c.Sample.ID,
			Outcome:      model.OutcomeSubmitted,
			Handle:       handle,
			Dependencies: prev,
			Script:       script,
			KillOnError:  true,
		})
		prev = []model.JobHandle{handle}
	}

	publish, err := command.Publish(command.PublishParams{Output: output, Sentinel: sentinel})
	if err != nil {
		return "", err
	}
	name := "publish_" + phase.Name
	handle, script, err := b.submit(ctx, name, "publish", id, publish, prev, nil, true)
	if err != nil {
		return "", err
	}
	state.Record(model.StageRecord{
		Name:         name,
		Phase:        phase.Name,
		Patient:      c.Sample.Patient,
		Sample:       c.Sample.ID,
		Outcome:      model.OutcomeSubmitted,
		Handle:       handle,
		Dependencies: prev,
		Sentinel:     sentinel,
		Script:       script,
		KillOnError:  true,
	})
	return handle, nil
}

// finalizePatient adds the fan-in stages of a patient: collation over every
// stage job of the patient and, when requested, cleanup of intermediates.
// Both run whatever the outcome of their dependencies.
func (b *Builder) finalizePatient(ctx context.Context, state *model.RunState, pid string) error {
	patientDir := filepath.Join(b.OutDir, pid)
	stageJobs := state.PatientSet(pid).Slice()

	if b.Pipeline.Collate {
		if err := b.collate(ctx, state, pid, patientDir, stageJobs); err != nil {
			return err
		}
	}

	if !b.Remove {
		return nil
	}
	if len(stageJobs) == 0 {
		b.logger().Debug("nothing submitted for patient, no cleanup needed", zap.String("patient", pid))
		return nil
	}
	cmd, err := command.Cleanup(command.CleanupParams{PatientDir: patientDir})
	if err != nil {
		return err
	}
	handle, script, err := b.submit(ctx, "cleanup", "cleanup", pid, cmd, stageJobs, nil, false)
	if err != nil {
		return err
	}
	state.Record(model.StageRecord{
		Name:         "cleanup",
		Phase:        "finalize",
		Patient:      pid,
		Outcome:      model.OutcomeSubmitted,
		Handle:       handle,
		Dependencies: stageJobs,
		Script:       script,
		FanIn:        true,
	})
	return nil
}

// CollateOutput is the published summary of a patient.
func CollateOutput(outDir, pid string) string {
	return filepath.Join(outDir, pid, pid+"_collated.tsv")
}

func (b *Builder) collate(ctx context.Context, state *model.RunState, pid, patientDir string, stageJobs []model.JobHandle) error {
	output := CollateOutput(b.OutDir, pid)
	sentinel := oracle.Sentinel(output)
	if !b.oracle().IsMissing(sentinel) && len(stageJobs) == 0 {
		state.Record(model.StageRecord{
			Name:     "collate",
			Phase:    "finalize",
			Patient:  pid,
			Outcome:  model.OutcomeSkipped,
			Sentinel: sentinel,
			FanIn:    true,
		})
		return nil
	}

	cmd, err := command.Collate(command.CollateParams{
		Script:     b.Config.CollateScript,
		Patient:    pid,
		PatientDir: patientDir,
		Output:     command.Tentative(output),
	})
	if err != nil {
		return err
	}
	cmd = "mkdir -p " + filepath.Join(patientDir, command.TmpDir) + "\n" + cmd
	handle, script, err := b.submit(ctx, "collate", "collate", pid, cmd, stageJobs, []string{"r"}, false)
	if err != nil {
		return err
	}
	state.Record(model.StageRecord{
		Name:         "collate",
		Phase:        "finalize",
		Patient:      pid,
		Outcome:      model.OutcomeSubmitted,
		Handle:       handle,
		Dependencies: stageJobs,
		Script:       script,
		FanIn:        true,
	})

	publish, err := command.Publish(command.PublishParams{Output: output, Sentinel: sentinel})
	if err != nil {
		return err
	}
	deps := []model.JobHandle{handle}
	pubHandle, pubScript, err := b.submit(ctx, "publish_collate", "publish", pid, publish, deps, nil, true)
	if err != nil {
		return err
	}
	state.Record(model.StageRecord{
		Name:         "publish_collate",
		Phase:        "finalize",
		Patient:      pid,
		Outcome:      model.OutcomeSubmitted,
		Handle:       pubHandle,
		Dependencies: deps,
		Sentinel:     sentinel,
		Script:       pubScript,
		KillOnError:  true,
		FanIn:        true,
	})
	return nil
}

func (b *Builder) submit(ctx context.Context, name, paramsKey, id, cmd string, deps []model.JobHandle, tools []string, killOnError bool) (model.JobHandle, string, error) {
	res, err := b.resources(paramsKey)
	if err != nil {
		return "", "", err
	}
	job, err := b.Writer.MakeJob(name, id, cmd, res, deps, b.Config.ModulesFor(tools...), killOnError)
	if err != nil {
		return "", "", err
	}
	handle, err := b.Scheduler.Submit(ctx, job)
	if err != nil {
		return "", "", err
	}
	return handle, job.Script, nil
}

func (b *Builder) resources(key string) (model.Resources, error) {
	params, ok := StageParams(b.Config, key)
	if !ok {
		return model.Resources{}, cerror.ErrMissingParameter.GenWithStackByArgs("stages", key)
	}
	res, err := params.Resources()
	if err != nil {
		return model.Resources{}, cerror.WrapError(cerror.ErrConfigInvalid, err, "stages."+key)
	}
	return res, nil
}

// SubmitMetrics adds the run level job dumping scheduler accounting of every
// job submitted so far to out. It returns "" when nothing was submitted.
func (b *Builder) SubmitMetrics(ctx context.Context, state *model.RunState, out string) (model.JobHandle, error) {
	handles := state.AllJobs.Slice()
	if len(handles) == 0 {
		return "", nil
	}
	cmd := b.Scheduler.MetricsCommand(handles, out)
	handle, script, err := b.submit(ctx, "metrics", "metrics", "run", cmd, handles, nil, false)
	if err != nil {
		return "", err
	}
	state.Record(model.StageRecord{
		Name:         "metrics",
		Phase:        "metrics",
		Outcome:      model.OutcomeSubmitted,
		Handle:       handle,
		Dependencies: handles,
		Script:       script,
		FanIn:        true,
	})
	return handle, nil
}
