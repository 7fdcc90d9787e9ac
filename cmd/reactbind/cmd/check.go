package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/go-drift/reactbind/cmd/reactbind/internal/scenario"
)

var checkCmd = &cobra.Command{
	Use:   "check [file...]",
	Short: "Validate and compile scenarios without running them",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := resolveFiles(args, cfg.Scenarios)
		if err != nil {
			return err
		}
		return checkFiles(cmd.OutOrStdout(), files)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func checkFiles(out io.Writer, files []string) error {
	failed := 0
	for _, path := range files {
		s, err := scenario.Load(path)
		if err == nil {
			_, err = scenario.Compile(s)
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s %s\n", failStyle.Render("ERROR"), err)
			continue
		}
		fmt.Fprintf(out, "%s %s %s\n", passStyle.Render("OK"), s.Name,
			dimStyle.Render(fmt.Sprintf("(%d components, %d steps)", len(s.Components), len(s.Steps))))
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errFailed, failed, len(files))
	}
	return nil
}
