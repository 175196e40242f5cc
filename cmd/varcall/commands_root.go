package main

import "github.com/spf13/cobra"

var (
	toolFile     string
	dataFile     string
	outDir       string
	cluster      string
	removeTmp    bool
	dryRun       bool
	noWait       bool
	planFormat   string
	viewPlan     string
	planView     string
	logLevel     string
	pipelineName string
	patientID    string
	longFormat   bool
)

var rootCmd = &cobra.Command{
	Use:           "varcall",
	Short:         "Variant calling pipelines on HPC batch schedulers",
	Long:          "varcall builds the job graph of a variant calling pipeline for every sample of a manifest and submits it to Slurm or LSF, skipping outputs that are already published",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug/info/warn/error)")

	registerPipelineCommands(rootCmd)
	registerValidateCommand(rootCmd)
	registerStatusCommand(rootCmd)
	registerPipelinesCommand(rootCmd)
	registerPlanCommand(rootCmd)
}
