package main

import (
	"github.com/spf13/cobra"

	bimquery "github.com/kailas-cloud/bimquery/pkg/sdk"
)

// sdkFlags are the engine options shared by the one-shot commands.
type sdkFlags struct {
	classes []string
	maxMB   int
	verbose bool
}

func (f *sdkFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.classes, "classes", nil, "IFC classes to index (default: built-in list)")
	cmd.Flags().IntVar(&f.maxMB, "max-model-mb", 512, "largest accepted model in MiB")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "print indexing progress")
}

func (f *sdkFlags) options(cmd *cobra.Command) []bimquery.Option {
	opts := []bimquery.Option{bimquery.WithMaxModelBytes(int64(f.maxMB) << 20)}
	if len(f.classes) > 0 {
		opts = append(opts, bimquery.WithClasses(f.classes...))
	}
	if f.verbose {
		errOut := cmd.ErrOrStderr()
		opts = append(opts, bimquery.WithProgress(func(msg string) {
			faint.Fprintln(errOut, msg)
		}))
	}
	return opts
}

func inspectCmd() *cobra.Command {
	var (
		flags  sdkFlags
		schema bool
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <model.ifc>",
		Short: "Index a model and print its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := bimquery.New(flags.options(cmd)...)
			if err != nil {
				return err
			}
			info, err := client.LoadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printModel(out, info)
			if !schema {
				return nil
			}
			sum, err := client.Schema(cmd.Context(), strict)
			if err != nil {
				return err
			}
			printSchema(out, sum)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&schema, "schema", false, "print the model vocabulary")
	cmd.Flags().BoolVar(&strict, "strict", false, "with --schema, list only names present in the model")
	return cmd
}
