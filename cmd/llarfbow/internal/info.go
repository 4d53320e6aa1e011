package internal

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/llarfbow/formula"
	"github.com/goplus/llarfbow/internal/vcs"
	"github.com/goplus/llarfbow/recipes/fbow"
)

var infoUpstream bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the package metadata",
	Long:  `Info prints the recipe description, its dependencies and the metadata consumers see.`,
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoUpstream, "upstream", false, "Also query the upstream HEAD commit")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	r := fbow.New()
	deps := &formula.ModuleDeps{}
	r.Requirements(deps)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "name:        %s\n", r.Name())
	fmt.Fprintf(w, "license:     %s\n", fbow.License)
	fmt.Fprintf(w, "url:         %s\n", fbow.URL)
	fmt.Fprintf(w, "description: %s\n", fbow.Description)
	if infoUpstream {
		head, err := vcs.NewGit().Head(cmd.Context(), fbow.URL)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "upstream:    %s\n", head)
	}
	for _, d := range deps.Deps() {
		fmt.Fprintf(w, "requires:    %s\n", d)
	}
	data, err := json.MarshalIndent(r.Info(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
