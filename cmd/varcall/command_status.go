package main

import "github.com/spf13/cobra"

var statusCmd = &cobra.Command{
	Use:   "status <pipeline>",
	Short: "Show which outputs of a manifest are already published",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(args[0])
	},
}

func registerStatusCommand(root *cobra.Command) {
	root.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&toolFile, "tool", "t", "", "Tool config file (yaml)")
	statusCmd.Flags().StringVarP(&dataFile, "data", "d", "", "Sample manifest file (yaml)")
	statusCmd.Flags().StringVarP(&outDir, "out_dir", "o", "", "Output directory")
	statusCmd.Flags().StringVar(&patientID, "patient", "", "Show a single patient")
	statusCmd.Flags().BoolVarP(&longFormat, "long", "l", false, "Show every phase")
	statusCmd.MarkFlagRequired("tool")
	statusCmd.MarkFlagRequired("data")
	statusCmd.MarkFlagRequired("out_dir")
}
