// Package main is a command-line tool for XML bot documents.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/xmlcord/xmlcord/config"
	"github.com/xmlcord/xmlcord/interpreters"
	"github.com/xmlcord/xmlcord/markup"
	"github.com/xmlcord/xmlcord/tools"
	"github.com/xmlcord/xmlcord/util"
)

func main() {
	if err := NewRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// writeCloser doesn't close.
type writeCloser struct {
	io.Writer
}

func (w writeCloser) Close() error {
	return nil
}

// NewRootCmd makes the command tree.  Output goes to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	var (
		logLevel string
		scripts  string
	)

	root := &cobra.Command{
		Use:           "xmlcordtool",
		Short:         "Inspect XML bot documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "debug, info, warn, or error")

	root.AddCommand(&cobra.Command{
		Use:   "normalize DOC",
		Short: "Print the normalized document as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := markup.LoadMap(args[0])
			if err != nil {
				return err
			}
			bs, err := yaml.Marshal(m)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(bs)
			return err
		},
	})

	check := &cobra.Command{
		Use:   "check DOC",
		Short: "Synthesize the document and report problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, warnings, err := config.Load(args[0])
			if err != nil {
				return err
			}
			runner, have := interpreters.Standard()[scripts]
			if !have {
				return fmt.Errorf("unknown script runner '%s'", scripts)
			}
			logger := util.NewLogger(logLevel, "text", cmd.ErrOrStderr())
			report, dangling, err := tools.Check(context.Background(), doc, runner, logger)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, x := range warnings {
				fmt.Fprintf(w, "warning %v\n", x)
			}
			for _, x := range report.Warnings {
				fmt.Fprintf(w, "warning %v\n", x)
			}
			for _, n := range dangling {
				fmt.Fprintf(w, "undeclared %s\n", n)
			}
			for _, x := range report.Errors {
				fmt.Fprintf(w, "error %v\n", x)
			}
			for _, name := range report.Registered {
				fmt.Fprintf(w, "ok %s\n", name)
			}
			return report.Err()
		},
	}
	check.Flags().StringVar(&scripts, "scripts", interpreters.DefaultName, "Script runner")
	root.AddCommand(check)

	var cssFiles []string
	html := &cobra.Command{
		Use:   "html DOC",
		Short: "Render the document as an HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tools.ReadAndRenderDocPage(args[0], cssFiles, cmd.OutOrStdout())
		},
	}
	html.Flags().StringSliceVar(&cssFiles, "css", nil, "CSS files to link")
	root.AddCommand(html)

	root.AddCommand(&cobra.Command{
		Use:   "dot DOC",
		Short: "Write a Graphviz graph of the document's references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _, err := config.Load(args[0])
			if err != nil {
				return err
			}
			return tools.Dot(doc, writeCloser{cmd.OutOrStdout()})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "png DOC BASENAME",
		Short: "Write BASENAME.dot and BASENAME.png (needs Graphviz)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _, err := config.Load(args[0])
			if err != nil {
				return err
			}
			filename, err := tools.PNG(doc, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), filename)
			return nil
		},
	})

	var mermaidOpts tools.MermaidOpts
	mermaid := &cobra.Command{
		Use:   "mermaid DOC",
		Short: "Write a Mermaid graph of the document's references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _, err := config.Load(args[0])
			if err != nil {
				return err
			}
			return tools.Mermaid(doc, writeCloser{cmd.OutOrStdout()}, &mermaidOpts)
		},
	}
	mermaid.Flags().BoolVar(&mermaidOpts.ShowActions, "actions", true, "Label edges with actions")
	mermaid.Flags().StringVar(&mermaidOpts.HandlerFill, "fill", "#bcf2db", "Fill for commands, events, and tasks")
	mermaid.Flags().StringVar(&mermaidOpts.HandlerClass, "class", "", "CSS class for commands, events, and tasks")
	root.AddCommand(mermaid)

	return root
}
