package main

import "github.com/spf13/cobra"

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a tool config and sample manifest",
	Long:  "Validate the tool config against the schema and, with --pipeline, against every stage the pipeline needs. The manifest is checked when --data is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateFiles()
	},
}

func registerValidateCommand(root *cobra.Command) {
	root.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&toolFile, "tool", "t", "", "Tool config file (yaml)")
	validateCmd.Flags().StringVarP(&dataFile, "data", "d", "", "Sample manifest file (yaml)")
	validateCmd.Flags().StringVarP(&pipelineName, "pipeline", "p", "", "Pipeline to validate the config for (default: all)")
	validateCmd.MarkFlagRequired("tool")
}
