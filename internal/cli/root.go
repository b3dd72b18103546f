// Package cli implements the pkgpack command line.
package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meigma/pkgpack"
	"github.com/meigma/pkgpack/internal/archive"
	"github.com/meigma/pkgpack/internal/logging"
)

const (
	cmdName     = "pkgpack"
	cmdDesc     = `Create a distributable tarball from a package source tree.`
	cmdExamples = `  # Pack the package in the current directory.
  pkgpack

  # Pack another directory into a chosen file.
  pkgpack ./packages/app --filename dist/app.tgz

  # List the files that would be packed.
  pkgpack --dry-run`
)

// RootArgs holds the parsed command line.
type RootArgs struct {
	LogLevel         string
	LogFormat        string
	Filename         string
	DryRun           bool
	CompressionLevel int
	Concurrency      int

	logger *slog.Logger
	envErr error
}

// NewRootArgs returns RootArgs with no flags parsed.
func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

// AddFlags registers every flag on cmd.
func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "info", fmt.Sprintf("Log level, one of: %s", logging.Levels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", logging.Formats))

	cmd.Flags().
		StringVarP(&ra.Filename, "filename", "f", "", "Output file, default <name>-<version>.tgz in the package directory")
	cmd.Flags().
		BoolVar(&ra.DryRun, "dry-run", false, "List the selected files without writing a tarball")
	cmd.Flags().
		IntVar(&ra.CompressionLevel, "compression-level", archive.DefaultCompressionLevel, "Gzip level, -2 (huffman only) to 9 (best)")
	cmd.Flags().
		IntVar(&ra.Concurrency, "concurrency", 0, "Directories read at once, 0 picks a default")

	var err error

	err = cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(logging.Formats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(logging.Levels, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}
}

// NewRootCmd builds the pkgpack command.
func NewRootCmd() *cobra.Command {
	args := NewRootArgs()

	cmd := &cobra.Command{
		Use:               cmdName + " [dir]",
		Short:             cmdDesc,
		Example:           cmdExamples,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging(args),
		RunE:              run(args),
	}

	args.AddFlags(cmd)
	args.envErr = bindEnvVars(cmd)

	return cmd
}

func setupLogging(ra *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if ra.envErr != nil {
			return fmt.Errorf("read environment: %w", ra.envErr)
		}
		logHandler, err := logging.NewHandler(cmd.ErrOrStderr(), ra.LogLevel, ra.LogFormat)
		if err != nil {
			return fmt.Errorf("create log handler: %w", err)
		}

		ra.logger = slog.New(logHandler)

		return nil
	}
}

func run(ra *RootArgs) func(cmd *cobra.Command, posArgs []string) error {
	return func(cmd *cobra.Command, posArgs []string) error {
		dir := "."
		if len(posArgs) == 1 {
			dir = posArgs[0]
		}

		opts := []pkgpack.Option{
			pkgpack.WithLogger(ra.logger),
			pkgpack.WithConcurrency(ra.Concurrency),
			pkgpack.WithCompressionLevel(ra.CompressionLevel),
		}
		if ra.Filename != "" {
			// Relative output paths follow the working directory, not the package.
			abs, err := filepath.Abs(ra.Filename)
			if err != nil {
				return fmt.Errorf("resolve filename: %w", err)
			}
			opts = append(opts, pkgpack.WithFilename(abs))
		}
		p := pkgpack.New(opts...)

		out := cmd.OutOrStdout()
		if ra.DryRun {
			sel, err := p.Select(cmd.Context(), dir)
			if err != nil {
				return err
			}
			for _, path := range sel.Keep {
				fmt.Fprintln(out, path)
			}
			return nil
		}

		art, err := p.WriteFile(cmd.Context(), dir)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, art.Path)
		return nil
	}
}
