package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/go-drift/reactbind/cmd/reactbind/internal/scenario"
	"github.com/go-drift/reactbind/cmd/reactbind/internal/watcher"
	"github.com/go-drift/reactbind/internal/log"
	"github.com/go-drift/reactbind/pkg/core"
	"github.com/go-drift/reactbind/pkg/errors"
)

// errFailed is returned when at least one scenario fails.
var errFailed = errors.New("scenarios failed")

var watchFlag bool

var runCmd = &cobra.Command{
	Use:   "run [file...]",
	Short: "Run scenarios",
	Long: `Run scenario files and report the outcome of every step.

Without arguments, the patterns listed under "scenarios" in reactbind.yaml
are used. With --watch, files are re-run whenever they change.

Examples:
  reactbind run scenarios/counter.yaml
  reactbind run --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := resolveFiles(args, cfg.Scenarios)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		opts := runtimeOptions()

		err = runFiles(cmd.Context(), out, files, cfg.Verbose, opts)
		if !watchFlag {
			return err
		}
		return watch(cmd.Context(), out, files, opts)
	},
}

func init() {
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "re-run scenarios when their files change")
	rootCmd.AddCommand(runCmd)
}

// resolveFiles expands args, or the configured patterns when args is
// empty, into a sorted list of files.
func resolveFiles(args, patterns []string) ([]string, error) {
	if len(args) == 0 {
		args = patterns
	}
	var files []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 && !hasMeta(arg) {
			matches = []string{arg}
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	files = slices.Compact(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenario files found (patterns: %v)", args)
	}
	return files, nil
}

func hasMeta(pattern string) bool {
	return slices.ContainsFunc([]rune(pattern), func(r rune) bool {
		return r == '*' || r == '?' || r == '['
	})
}

// runFiles runs every file and writes one report each. It returns
// errFailed when any file fails to load, compile or pass.
func runFiles(ctx context.Context, out io.Writer, files []string, verbose bool, opts []core.Option) error {
	failed := 0
	for _, path := range files {
		report, err := runFile(ctx, path, opts)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s %s\n", failStyle.Render("ERROR"), err)
			continue
		}
		if !report.Passed() {
			failed++
		}
		fmt.Fprint(out, renderReport(report, verbose))
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errFailed, failed, len(files))
	}
	return nil
}

func runFile(ctx context.Context, path string, opts []core.Option) (*scenario.Report, error) {
	s, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}
	prog, err := scenario.Compile(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog.Run(ctx, opts...), nil
}

func watch(ctx context.Context, out io.Writer, files []string, opts []core.Option) error {
	w, err := watcher.New(files, cfg.Watch.Debounce)
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	fmt.Fprintln(out, dimStyle.Render("watching for changes (Ctrl+C to stop)..."))
	for {
		select {
		case <-ctx.Done():
			return nil
		case changed := <-changes:
			log.Debug(log.CatScenario, "files changed", "files", changed)
			if err := runFiles(ctx, out, changed, cfg.Verbose, opts); err != nil && !errors.Is(err, errFailed) {
				return err
			}
		}
	}
}
