package main

import (
	"github.com/sourceplane/varcall/internal/planner"
	"github.com/spf13/cobra"
)

// registerPipelineCommands adds one subcommand per registered pipeline.
func registerPipelineCommands(root *cobra.Command) {
	for _, p := range planner.Pipelines() {
		name := p.Name
		cmd := &cobra.Command{
			Use:   name,
			Short: p.Description,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPipeline(cmd.Context(), name)
			},
		}
		root.AddCommand(cmd)

		cmd.Flags().StringVarP(&toolFile, "tool", "t", "", "Tool config file (yaml)")
		cmd.Flags().StringVarP(&dataFile, "data", "d", "", "Sample manifest file (yaml)")
		cmd.Flags().StringVarP(&outDir, "out_dir", "o", "", "Output directory")
		cmd.Flags().StringVarP(&cluster, "cluster", "c", "slurm", "Scheduler backend (slurm/lsf)")
		cmd.Flags().BoolVar(&removeTmp, "remove", false, "Submit a cleanup of intermediate files per patient")
		cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build and write job scripts without submitting")
		cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return right after submission")
		cmd.Flags().StringVarP(&planFormat, "format", "f", "json", "Run plan format (json/yaml)")
		cmd.Flags().StringVarP(&viewPlan, "view", "v", "", "View plan (dag/dependencies/patient=ID)")
		cmd.MarkFlagRequired("tool")
		cmd.MarkFlagRequired("data")
		cmd.MarkFlagRequired("out_dir")
	}
}
