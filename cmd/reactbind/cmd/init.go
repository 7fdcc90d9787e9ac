package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/go-drift/reactbind/cmd/reactbind/internal/config"
)

const exampleScenario = `version: v1
name: counter
components:
  Counter:
    state:
      count: 0
    props:
      label: clicks
    render: 'sprintf("%v: %v", props.label, get("count"))'
steps:
  - mount: {id: c, type: Counter}
  - set: {id: c, name: count, value: 1}
  - pump: {cycles: 1}
  - expect: {id: c, render: "clicks: 1", renders: 2}
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create reactbind.yaml and an example scenario",
	Long: `Create reactbind.yaml with default settings and scenarios/counter.yaml
in the Go module root, or the current directory outside a module.`,
	// init runs before a config file exists.
	PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
	PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		return initProject(cmd, dir)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initProject(cmd *cobra.Command, dir string) error {
	out := cmd.OutOrStdout()
	name := filepath.Base(dir)
	if p, err := config.ResolveProject(dir); err == nil {
		dir, name = p.Root, p.Name
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if err := config.WriteDefault(cfgPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", passStyle.Render("created"), cfgPath)

	example := filepath.Join(dir, "scenarios", "counter.yaml")
	if _, err := os.Stat(example); err == nil {
		fmt.Fprintf(out, "%s %s\n", dimStyle.Render("exists"), example)
	} else {
		if err := os.MkdirAll(filepath.Dir(example), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(example, []byte(exampleScenario), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", passStyle.Render("created"), example)
	}

	fmt.Fprintf(out, "\nreactbind is set up for %s. Try:\n  reactbind run\n", name)
	return nil
}
