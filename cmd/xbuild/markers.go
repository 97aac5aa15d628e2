package main

import (
	"strings"

	"github.com/spf13/cobra"

	"xbuild/internal/diag"
)

var markersCmd = &cobra.Command{
	Use:   "markers [flags] [project-dir]",
	Short: "List the markers recorded by previous builds",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typeFilter, err := cmd.Flags().GetString("type")
		if err != nil {
			return err
		}
		all, err := cmd.Flags().GetBool("all-types")
		if err != nil {
			return err
		}
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		s, err := openSession(cmd, dir, false)
		if err != nil {
			return err
		}
		if typeFilter == "" && !all {
			typeFilter = s.cfg.MarkerType
		}
		printMarkers(cmd.OutOrStdout(), projectMarkers(s.store, s.project.Name(), typeFilter))
		return nil
	},
}

// projectMarkers returns the stored markers under /<project>/, restricted to
// typ unless it is empty.
func projectMarkers(store *diag.Store, project, typ string) []diag.Marker {
	prefix := "/" + project + "/"
	var out []diag.Marker
	for _, m := range store.All() {
		if !strings.HasPrefix(m.Resource, prefix) {
			continue
		}
		if typ != "" && m.Type != typ {
			continue
		}
		out = append(out, m)
	}
	return out
}

func init() {
	markersCmd.Flags().String("type", "", "marker type to list (defaults to [markers].type)")
	markersCmd.Flags().Bool("all-types", false, "list markers of every type")
}
