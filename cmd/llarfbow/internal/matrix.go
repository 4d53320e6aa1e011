package internal

import (
	"fmt"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/goplus/llarfbow/formula"
)

var matrixAll bool

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Print the matrix string of a configuration",
	Long: `Matrix prints the key identifying the selected configuration in the build cache.
With --all it lists the keys of every os and option variant for the selected
arch and build type.`,
	Args: cobra.NoArgs,
	RunE: runMatrix,
}

func init() {
	matrixCmd.Flags().BoolVar(&matrixAll, "all", false, "List every os and option variant")
	rootCmd.AddCommand(matrixCmd)
}

func runMatrix(cmd *cobra.Command, args []string) error {
	plat, opts, bt, err := loadConfig()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if !matrixAll {
		m := formula.MatrixOf(plat, opts, bt)
		_, err = fmt.Fprintln(w, m.String())
		return err
	}
	n := 0
	for _, target := range formula.AllOS {
		p := formula.Platform{OS: target, Arch: plat.Arch}
		if target == formula.Linux {
			p.Compiler = plat.Compiler
		}
		for _, m := range formula.VariantsOf(p, bt) {
			for _, key := range m.Combinations() {
				if _, err := fmt.Fprintln(w, key); err != nil {
					return err
				}
			}
			n += m.CombinationCount()
		}
	}
	log.Infof("%d configurations", n)
	return nil
}
