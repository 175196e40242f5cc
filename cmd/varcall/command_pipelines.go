package main

import "github.com/spf13/cobra"

var pipelinesCmd = &cobra.Command{
	Use:     "pipelines [pipeline]",
	Aliases: []string{"pipeline"},
	Short:   "List available pipelines",
	Long:    "List the registered pipelines. Use 'varcall pipelines <name>' for its phases and the stage keys it reads from the tool config.",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listPipelines(args)
	},
}

func registerPipelinesCommand(root *cobra.Command) {
	root.AddCommand(pipelinesCmd)
}
