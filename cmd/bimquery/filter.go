package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	bimquery "github.com/kailas-cloud/bimquery/pkg/sdk"
)

func filterCmd() *cobra.Command {
	var (
		flags    sdkFlags
		spec     string
		specFile string
		csvOut   bool
	)
	cmd := &cobra.Command{
		Use:   "filter <model.ifc>",
		Short: "Select elements with a JSON filter specification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := []byte(spec)
			if specFile != "" {
				b, err := os.ReadFile(specFile)
				if err != nil {
					return fmt.Errorf("read spec: %w", err)
				}
				data = b
			}
			if len(data) == 0 {
				return errors.New("one of --spec or --spec-file is required")
			}

			client, err := bimquery.New(flags.options(cmd)...)
			if err != nil {
				return err
			}
			if _, err := client.LoadFile(cmd.Context(), args[0]); err != nil {
				return err
			}
			res, err := client.FilterJSON(cmd.Context(), data)
			if err != nil {
				return err
			}
			if csvOut {
				_, err = client.Export(cmd.Context(), cmd.OutOrStdout())
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Example = `  bimquery filter house.ifc --spec '{"classes":["IFCWALL"],"conditions":[{"field":"pset:Pset_WallCommon:IsExternal","op":"equals","value":true}]}'`
	flags.register(cmd)
	cmd.Flags().StringVar(&spec, "spec", "", "filter specification as JSON")
	cmd.Flags().StringVar(&specFile, "spec-file", "", "read the specification from a file")
	cmd.Flags().BoolVar(&csvOut, "csv", false, "write the matches as CSV")
	cmd.MarkFlagsMutuallyExclusive("spec", "spec-file")
	return cmd
}
