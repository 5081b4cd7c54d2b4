package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-go/petal/internal/errors"
	"github.com/petal-go/petal/pkg/dom"
)

func renderCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "render [template]",
		Short: "Print the bound initial HTML",
		Long: `Parse a template, bind its directives, and print the resulting
HTML to stdout. With no argument the template comes from petal.json.

Useful for checking what the first response of a page looks like,
including binding IDs and evaluated p-data state.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				path = cfg.TemplatePath()
			}
			return runRender(path)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to petal.json (default ./petal.json)")

	return cmd
}

func runRender(path string) error {
	html, err := os.ReadFile(path)
	if err != nil {
		return errors.New("E201").WithDetail(path).Wrap(err)
	}

	doc, err := dom.ParseString(string(html))
	if err != nil {
		return errors.New("E202").Wrap(err)
	}
	defer doc.Close()

	if err := doc.Bind(); err != nil {
		return err
	}
	return doc.Render(os.Stdout)
}
