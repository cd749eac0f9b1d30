package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	bimquery "github.com/kailas-cloud/bimquery/pkg/sdk"
)

func askCmd() *cobra.Command {
	var (
		flags   sdkFlags
		apiKey  string
		model   string
		baseURL string
		strict  bool
		csvOut  bool
	)
	cmd := &cobra.Command{
		Use:     "ask <model.ifc> <prompt...>",
		Short:   "Select elements with a natural-language prompt",
		Example: `  bimquery ask house.ifc "external walls on level 2"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options(cmd)
			opts = append(opts, bimquery.WithOpenAI(apiKey, model))
			if baseURL != "" {
				opts = append(opts, bimquery.WithOpenAIBaseURL(baseURL))
			}
			client, err := bimquery.New(opts...)
			if err != nil {
				return err
			}
			if _, err := client.LoadFile(cmd.Context(), args[0]); err != nil {
				return err
			}

			res, err := client.Ask(cmd.Context(), strings.Join(args[1:], " "), strict)
			if err != nil {
				return err
			}
			if csvOut {
				_, err = client.Export(cmd.Context(), cmd.OutOrStdout())
				return err
			}
			out := cmd.OutOrStdout()
			cyan.Fprintln(out, "Plan:")
			printSpec(out, res.Spec)
			printResult(out, res)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&apiKey, "api-key", os.Getenv("OPENAI_API_KEY"), "OpenAI-compatible API key")
	cmd.Flags().StringVar(&model, "llm-model", "gpt-4o-mini", "chat model used for planning")
	cmd.Flags().StringVar(&baseURL, "base-url", os.Getenv("OPENAI_BASE_URL"), "OpenAI-compatible endpoint")
	cmd.Flags().BoolVar(&strict, "strict", false, "plan against names present in the model only")
	cmd.Flags().BoolVar(&csvOut, "csv", false, "write the matches as CSV")
	return cmd
}
