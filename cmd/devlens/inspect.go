package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/devlens/dom"
	"github.com/hazyhaar/devlens/inspect"
	"github.com/hazyhaar/devlens/selector"
)

func newInspectCmd() *cobra.Command {
	var (
		htmlPath string
		sel      string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Re-locate elements in an HTML document by CSS selector",
		Long: `Parse an HTML document, match a CSS selector against it, and print the
element descriptor for each match as JSON. Useful for checking where a
stored annotation's selector lands after the page changed.`,
		Example: `  devlens inspect --html page.html --selector '#login-button'
  curl -s http://localhost:3000 | devlens inspect --selector 'nav > a.active' --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sel == "" {
				return fmt.Errorf("--selector is required")
			}

			var src io.Reader = os.Stdin
			if htmlPath != "" && htmlPath != "-" {
				f, err := os.Open(htmlPath)
				if err != nil {
					return fmt.Errorf("open %s: %w", htmlPath, err)
				}
				defer f.Close()
				src = f
			}

			doc, err := dom.Parse(src)
			if err != nil {
				return fmt.Errorf("parse document: %w", err)
			}

			matches := selector.Match(doc, sel)
			if len(matches) == 0 {
				return fmt.Errorf("no element matches %q", sel)
			}
			if !all {
				matches = matches[:1]
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			for _, el := range matches {
				if err := enc.Encode(inspect.Describe(el, nil)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&htmlPath, "html", "", "HTML file to inspect (default: stdin)")
	cmd.Flags().StringVar(&sel, "selector", "", "CSS selector to locate")
	cmd.Flags().BoolVar(&all, "all", false, "print every match instead of the first")

	return cmd
}
