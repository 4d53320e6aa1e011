package internal

import (
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/goplus/llarfbow/formula"
	"github.com/goplus/llarfbow/internal/profile"
)

var (
	verbose     bool
	profilePath string
	settings    []string
	options     []string
)

var rootCmd = &cobra.Command{
	Use:   "llarfbow",
	Short: "llarfbow packages the fbow bag-of-words library",
	Long: `llarfbow resolves the build configuration of fbow for a target platform
and runs the packaging pipeline: fetch, patch, configure, build and install.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetOutputLevel(log.Ldebug)
		} else {
			log.SetOutputLevel(log.Linfo)
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	pf.StringVar(&profilePath, "profile", "", "Profile file (TOML) selecting settings and options")
	pf.StringArrayVarP(&settings, "settings", "s", nil, "Override a setting, e.g. -s os=Linux")
	pf.StringArrayVarP(&options, "options", "o", nil, "Override an option, e.g. -o shared=True")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}

// loadProfile reads --profile and applies the -s and -o overrides.
func loadProfile() (profile.Profile, error) {
	p := profile.Default()
	if profilePath != "" {
		var err error
		if p, err = profile.Load(profilePath); err != nil {
			return p, err
		}
	}
	for _, kv := range settings {
		if err := p.SetSetting(kv); err != nil {
			return p, err
		}
	}
	for _, kv := range options {
		if err := p.SetOption(kv); err != nil {
			return p, err
		}
	}
	return p, nil
}

// loadConfig returns the validated target configuration.
func loadConfig() (formula.Platform, formula.Options, formula.BuildType, error) {
	p, err := loadProfile()
	if err != nil {
		return formula.Platform{}, formula.Options{}, "", err
	}
	return p.Resolve()
}
