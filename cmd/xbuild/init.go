package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xbuild/internal/hostfs"
)

var initCmd = &cobra.Command{
	Use:   "init [project-dir]",
	Short: "Create a project.toml skeleton",
	Long: `Create a project.toml declaring the java nature and a default output
folder. The directory is created when missing; an existing project.toml is
never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		path, err := hostfs.WriteSkeleton(dir)
		if err != nil {
			return err
		}
		quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
		}
		return nil
	},
}
