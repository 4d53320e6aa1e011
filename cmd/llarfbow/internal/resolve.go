package internal

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goplus/llarfbow/formula"
	"github.com/goplus/llarfbow/recipes/fbow"
)

var (
	resolveSourceDir string
	resolveFormat    string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the CMake variables of a configuration",
	Long:  `Resolve prints, in order, the CMake variables fbow is configured with for the selected platform.`,
	Args:  cobra.NoArgs,
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveSourceDir, "source-dir", ".", "Source tree holding the exported toolchain files")
	resolveCmd.Flags().StringVar(&resolveFormat, "format", "list", "Output format: list or cmake")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	plat, opts, bt, err := loadConfig()
	if err != nil {
		return err
	}
	vars := fbow.New().Generate(resolveSourceDir, plat, opts, bt)
	return printVars(cmd.OutOrStdout(), vars, resolveFormat)
}

func printVars(w io.Writer, vars *formula.VarSet, format string) error {
	var line string
	switch format {
	case "list":
		line = "%s=%s\n"
	case "cmake":
		line = "-D%s=%s\n"
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	for _, v := range vars.Entries() {
		if _, err := fmt.Fprintf(w, line, v.Name, cmakeValue(v.Value)); err != nil {
			return err
		}
	}
	return nil
}

func cmakeValue(v formula.Value) string {
	if !v.IsBool() {
		return v.String()
	}
	if v.BoolValue() {
		return "ON"
	}
	return "OFF"
}
