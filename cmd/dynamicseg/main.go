package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/DynamicSeg/internal/presenter"
	"github.com/AaronLay10/DynamicSeg/internal/version"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(normalizeArgs(os.Args[1:]))

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, presenter.ErrAborted) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts runOptions

	rootCmd := &cobra.Command{
		Use:     "dynamicseg",
		Short:   "Dynamic event segmentation experiment",
		Version: version.Version,
		Long: `dynamicseg presents instruction screens and movie clips, records
participant boundary marks and writes every onset, offset and mark to
output/<participant>/ as it happens.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(cmd.Context(), opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.order, "segmentation_order", "", `segmentation order, e.g. "[(0,0),(1,0),(1,1),(1,0)]" (short form -so)`)
	flags.StringVarP(&opts.output, "output", "o", "", "output file name inside output/<participant>/")
	flags.StringVarP(&opts.participant, "participant", "p", "", "participant number (prompted if empty)")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "experiment config file")

	rootCmd.AddCommand(exportCmd(&opts.configPath))
	rootCmd.AddCommand(portsCmd())
	return rootCmd
}

// normalizeArgs maps the two-letter "-so" short form, which pflag cannot
// express, to --segmentation_order.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		switch {
		case a == "-so":
			out = append(out, "--segmentation_order")
		case len(a) > 4 && a[:4] == "-so=":
			out = append(out, "--segmentation_order="+a[4:])
		default:
			out = append(out, a)
		}
	}
	return out
}
