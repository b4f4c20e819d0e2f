// Package cli implements the liquidpage command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/v3gtb/liquidpage/internal/logging"
	"github.com/v3gtb/liquidpage/output"
	"github.com/v3gtb/liquidpage/render"
)

// Version is injected during build.
var Version = "dev"

type rootOptions struct {
	source          string
	configFile      string
	document        string
	output          string
	pages           bool
	strictVariables bool
	strictFilters   bool
	maxIterations   uint64
	logLevel        string
	logFormat       string
	verbose         bool
}

// NewRootCommand returns the liquidpage command. Rendered text sent to "-"
// goes to stdout; logs go to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "liquidpage",
		Short: "Render one page of a Jekyll-style site with strict Liquid",
		Long: `liquidpage renders a single content document of a static site.

The document's front matter and the site configuration (_config.yml,
_config.yaml or _config.hcl in the source directory) form the template
scope. Undefined variables and unknown filters are errors unless strict
mode is turned off.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, opts, stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.source, "source", "s", "", "site source directory (default: the config file's source, or .)")
	f.StringVarP(&opts.configFile, "config", "c", "", "site config file (default: _config.yml, _config.yaml or _config.hcl in the source)")
	f.StringVarP(&opts.document, "document", "d", render.DefaultDocument, "document to render, relative to the source")
	f.StringVarP(&opts.output, "output", "o", render.DefaultOutput, `destination of the rendered text; "-" writes to stdout`)
	f.BoolVar(&opts.pages, "pages", false, "scan the site so that site.pages lists its documents")
	f.BoolVar(&opts.strictVariables, "strict-variables", true, "fail on undefined variables")
	f.BoolVar(&opts.strictFilters, "strict-filters", true, "fail on unknown filters")
	f.Uint64Var(&opts.maxIterations, "max-iterations", 0, "maximum loop iterations of one render (0 means unlimited)")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "show the template excerpt of render errors")

	cmd.AddCommand(newVersionCommand(stdout))
	return cmd
}

func runRender(cmd *cobra.Command, opts *rootOptions, stdout, stderr io.Writer) error {
	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(opts.logLevel),
		Format: logging.ParseFormat(opts.logFormat),
		Output: stderr,
	})

	cfg := render.Config{
		Source:     opts.source,
		ConfigFile: opts.configFile,
		Document:   opts.document,
		Output:     opts.output,
		Pages:      opts.pages,
	}
	if cmd.Flags().Changed("strict-variables") {
		cfg.StrictVariables = &opts.strictVariables
	}
	if cmd.Flags().Changed("strict-filters") {
		cfg.StrictFilters = &opts.strictFilters
	}

	p := &render.Pipeline{
		Logger: logger,
		Renderer: render.Renderer{
			MaxIterations: opts.maxIterations,
			Debug:         opts.verbose,
		},
		Sink: output.Sink{Stdout: stdout},
	}
	return p.Run(cfg)
}

// Run executes the command line with args and returns the exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			fmt.Fprintf(stderr, "Error: %+v\n", err)
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// Execute runs the command line with the process arguments and exits
// with its status.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}
