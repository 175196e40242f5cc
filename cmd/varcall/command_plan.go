package main

import "github.com/spf13/cobra"

var planCmd = &cobra.Command{
	Use:   "plan <plan-file>",
	Short: "Show a run plan written by a previous invocation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showPlan(args[0])
	},
}

func registerPlanCommand(root *cobra.Command) {
	root.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&planView, "view", "v", "dag", "View plan (dag/dependencies/patient=ID/debug)")
}
