package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"xbuild/internal/version"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show xbuild build metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		payload := versionPayload{
			Tool:      "xbuild",
			Version:   version.Current(),
			GitCommit: strings.TrimSpace(version.GitCommit),
			BuildDate: strings.TrimSpace(version.BuildDate),
		}
		out := cmd.OutOrStdout()
		switch strings.ToLower(format) {
		case "pretty":
			fmt.Fprintf(out, "xbuild %s\n", version.Pretty(payload.Version))
			if payload.GitCommit != "" {
				fmt.Fprintf(out, "commit: %s\n", payload.GitCommit)
			}
			if payload.BuildDate != "" {
				fmt.Fprintf(out, "built:  %s\n", payload.BuildDate)
			}
			return nil
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		}
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	},
}

func init() {
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}
