package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/mkincludes/internal/version"
	"github.com/arthur-debert/mkincludes/pkg/config"
	"github.com/arthur-debert/mkincludes/pkg/errors"
	"github.com/arthur-debert/mkincludes/pkg/filesystem"
	"github.com/arthur-debert/mkincludes/pkg/logging"
	"github.com/arthur-debert/mkincludes/pkg/mirror"
	"github.com/arthur-debert/mkincludes/pkg/pipeline"
	"github.com/arthur-debert/mkincludes/pkg/report"
)

// Usage is printed when the positional arguments are wrong.
const Usage = "Usage: mkincludes <path/to/CMakeLists.txt> <file extension> <root dir> <subdir>"

// UsageError signals a wrong invocation; the caller prints Usage.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return e.Reason
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return &UsageError{Reason: fmt.Sprintf("expected %d arguments, got %d", n, len(args))}
		}
		return nil
	}
}

type rootOptions struct {
	verbosity  int
	dryRun     bool
	configFile string
	logToFile  bool
	noUserConf bool
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	var opts rootOptions

	rootCmd := &cobra.Command{
		Use:   "mkincludes <path/to/CMakeLists.txt> <file extension> <root dir> <subdir>",
		Short: "Mirror header groups from a build file into an include tree",
		Long: `mkincludes scans a CMakeLists.txt for set(...) and add_executable(...) groups,
collects the files with the given extension listed in each group, and links
them into Sources/<root dir>/<group>[/<subdir>] with relative symlinks.

Pass "" as <subdir> to link directly under the group directory.`,
		Example: `  # Expose every header of the kj sets under Sources/KJ
  mkincludes c++/src/kj/CMakeLists.txt h KJ ""

  # Preview the links for capnp headers in a capnp/ subdirectory
  mkincludes --dry-run c++/src/capnp/CMakeLists.txt h CapnProto capnp`,
		Version: version.String(),
		Args:    exactArgs(4),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logFile := ""
			if opts.logToFile {
				logFile = logging.DefaultLogFilePath()
			}
			logging.SetupLogger(opts.verbosity, logFile)
			log.Debug().Str("command", cmd.Name()).Strs("args", args).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMirror(cmd.OutOrStdout(), opts, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "Preview links without creating anything")
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Tool configuration file (TOML)")
	rootCmd.PersistentFlags().BoolVar(&opts.logToFile, "log-file", false, "Also append logs to $XDG_STATE_HOME/mkincludes/mkincludes.log")
	rootCmd.PersistentFlags().BoolVar(&opts.noUserConf, "no-user-config", false, "Ignore $XDG_CONFIG_HOME/mkincludes/config.toml")

	return rootCmd
}

func runMirror(out io.Writer, opts rootOptions, args []string) error {
	buildFile, rootDir, subdir := args[0], args[2], args[3]
	ext := strings.TrimPrefix(args[1], ".")

	workDir, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot determine working directory")
	}

	cfg, err := config.Load(config.LoadOptions{
		WorkDir:        workDir,
		ExplicitFile:   opts.configFile,
		SkipUserConfig: opts.noUserConf,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("buildFile", buildFile).
		Str("extension", ext).
		Str("root", rootDir).
		Str("subdir", subdir).
		Strs("configFiles", cfg.Files).
		Msg("Mirroring includes")

	_, err = pipeline.Run(filesystem.NewOS(), pipeline.Options{
		BuildFile:   buildFile,
		Extension:   ext,
		IncludeRoot: pipeline.IncludeRoot(workDir, cfg.SourcesDir, rootDir),
		Subdir:      subdir,
		Keywords:    cfg.Keywords,
		Exclude:     cfg.Exclude,
		Remap:       mirror.NewRemapTable(cfg.RemapPairs()),
		DryRun:      opts.dryRun,
	}, report.New(out))
	return err
}

// Execute runs the command line and returns the process exit status.
// Only a wrong invocation or a run that could not start is non-zero;
// individual link failures are reported on stdout and still exit 0.
func Execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		var usageErr *UsageError
		if errors.As(err, &usageErr) {
			_, _ = fmt.Fprintln(stdout, Usage)
			return 1
		}
		errorStyle := lipgloss.NewRenderer(stderr).NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
		_, _ = fmt.Fprintln(stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		return 1
	}
	return 0
}
