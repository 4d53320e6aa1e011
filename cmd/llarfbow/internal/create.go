package internal

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goplus/llarfbow/internal/build"
	"github.com/goplus/llarfbow/internal/conandata"
	"github.com/goplus/llarfbow/recipes/fbow"
)

var (
	createOutput    string
	createForce     bool
	createWorkspace string
	createRecipeDir string
	createGenerator string
	createDeps      []string
)

var createCmd = &cobra.Command{
	Use:   "create [version]",
	Short: "Build and install fbow",
	Long: `Create fetches, patches, builds and installs one version of fbow
(the latest one by default) for the selected configuration.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	f := createCmd.Flags()
	f.StringVar(&createOutput, "output", "", "Output path (directory or .zip file)")
	f.BoolVar(&createForce, "force", false, "Rebuild even if a cached result exists")
	f.StringVar(&createWorkspace, "workspace", "", "Workspace directory (default: user cache dir)")
	f.StringVar(&createRecipeDir, "recipe-dir", ".", "Directory holding exported files and patches")
	f.StringVarP(&createGenerator, "generator", "G", "", "CMake generator, e.g. Ninja")
	f.StringArrayVar(&createDeps, "dep", nil, "Install root of a dependency, e.g. --dep opencv=/opt/opencv")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	prof, err := loadProfile()
	if err != nil {
		return err
	}
	plat, opts, bt, err := prof.Resolve()
	if err != nil {
		return err
	}
	data, err := conandata.Parse(dataFile, nil)
	if err != nil {
		return err
	}
	version := data.Latest()
	if len(args) == 1 {
		version = args[0]
	}
	locator, err := parseDeps(createDeps)
	if err != nil {
		return err
	}

	// Resolve output path to absolute before build
	if createOutput != "" {
		abs, err := filepath.Abs(createOutput)
		if err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
		createOutput = abs
	}

	buildOpts := build.Options{
		Recipe:       fbow.New(),
		Data:         data,
		RecipeDir:    createRecipeDir,
		WorkspaceDir: createWorkspace,
		Locator:      locator,
		Generator:    createGenerator,
		Env:          prof.BuildEnv,
	}
	// Build tool output is silenced unless verbose.
	if verbose {
		buildOpts.Stdout = cmd.ErrOrStderr()
		buildOpts.Stderr = cmd.ErrOrStderr()
	}
	builder, err := build.NewBuilder(buildOpts)
	if err != nil {
		return fmt.Errorf("failed to create builder: %w", err)
	}

	res, err := builder.Build(cmd.Context(), build.Request{
		Version:   version,
		Platform:  plat,
		Options:   opts,
		BuildType: bt,
		Force:     createForce,
	})
	if err != nil {
		return fmt.Errorf("failed to build %s@%s: %w", fbow.Name, version, err)
	}

	meta, err := json.MarshalIndent(res.Info, "", "  ")
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, string(meta))
	fmt.Fprintln(w, res.OutputDir)

	if createOutput != "" {
		if err := outputResult(res.OutputDir, createOutput); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// parseDeps turns "path=root" or "path/version=root" pairs into a locator.
func parseDeps(pairs []string) (build.StaticLocator, error) {
	l := make(build.StaticLocator, len(pairs))
	for _, kv := range pairs {
		ref, root, ok := strings.Cut(kv, "=")
		if !ok || ref == "" || root == "" {
			return nil, fmt.Errorf("invalid --dep %q: want path=root", kv)
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		l[ref] = abs
	}
	return l, nil
}

// outputResult writes the build output to dest.
// If dest ends with ".zip", creates a zip archive; otherwise copies the directory.
func outputResult(srcDir, dest string) error {
	if strings.HasSuffix(dest, ".zip") {
		return zipDir(srcDir, dest)
	}
	return os.CopyFS(dest, os.DirFS(srcDir))
}

// zipDir creates a zip archive at dest from the contents of srcDir.
func zipDir(srcDir, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	defer w.Close()

	return filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		writer, err := w.CreateHeader(header)
		if err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(writer, file)
		return err
	})
}
