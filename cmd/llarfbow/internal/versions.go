package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goplus/llarfbow/internal/conandata"
	"github.com/goplus/llarfbow/internal/vcs"
	"github.com/goplus/llarfbow/recipes/fbow"
)

var (
	dataFile         string
	versionsLatest   bool
	versionsUpstream bool
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the packaged versions",
	Long:  `Versions lists the versions declared in conandata.yml, oldest first.`,
	Args:  cobra.NoArgs,
	RunE:  runVersions,
}

func init() {
	versionsCmd.Flags().BoolVar(&versionsLatest, "latest", false, "Print the latest version only")
	versionsCmd.Flags().BoolVar(&versionsUpstream, "upstream", false, "List upstream tags not packaged yet")
	rootCmd.PersistentFlags().StringVar(&dataFile, "data", "conandata.yml", "Package data file")
	rootCmd.AddCommand(versionsCmd)
}

func runVersions(cmd *cobra.Command, args []string) error {
	data, err := conandata.Parse(dataFile, nil)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if versionsLatest {
		_, err = fmt.Fprintln(w, data.Latest())
		return err
	}
	if versionsUpstream {
		return printUpstream(cmd, data)
	}
	for _, v := range data.Versions() {
		src, _ := data.Source(v)
		fmt.Fprintf(w, "%s\t%d patch(es)\t%s\n", v, len(data.PatchesOf(v)), src.URL[0])
	}
	return nil
}

func printUpstream(cmd *cobra.Command, data *conandata.Data) error {
	tags, err := vcs.NewGit().Tags(cmd.Context(), fbow.URL)
	if err != nil {
		return err
	}
	conandata.SortVersions(tags)
	w := cmd.OutOrStdout()
	for _, tag := range tags {
		if _, ok := data.Sources[strings.TrimPrefix(tag, "v")]; ok {
			continue
		}
		if _, ok := data.Sources[tag]; ok {
			continue
		}
		fmt.Fprintln(w, tag)
	}
	return nil
}
