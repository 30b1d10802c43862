package main

import (
	"context"
	"fmt"
	"io"

	"github.com/TFMV/reconcile/config"
	"github.com/TFMV/reconcile/logger"
	"github.com/TFMV/reconcile/pkg/core"
	"github.com/TFMV/reconcile/pkg/schema"
	"github.com/spf13/cobra"
)

func newSchemaCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Check column compatibility without comparing rows",
		Long: `The schema command fetches every configured table from both sources of
every pair and reports columns missing on either side and columns whose data
types differ. The ignore list applies. No report files are written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			in := config.LoadInputs(cfg.Input)
			for _, err := range in.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "configuration error: %v\n", err)
			}

			provider, closeProvider, err := newProvider(cfg.Source, logger.GetLogger())
			if err != nil {
				return err
			}
			defer closeProvider()

			return checkSchemas(cmd.Context(), provider, in, cmd.OutOrStdout())
		},
	}
}

// checkSchemas prints schema findings for every table and pair. It returns an
// error when any finding or fetch failure was reported.
func checkSchemas(ctx context.Context, provider core.SnapshotProvider, in config.Inputs, w io.Writer) error {
	validator := schema.NewValidator(logger.GetLogger())
	problems := 0

	for _, pair := range in.Pairs {
		for _, table := range in.Tables {
			a, errA := provider.Fetch(ctx, pair.A, table)
			b, errB := provider.Fetch(ctx, pair.B, table)
			if errA != nil || errB != nil {
				for _, err := range []error{errA, errB} {
					if err != nil {
						fmt.Fprintf(w, "%s: %v\n", pair, err)
						problems++
					}
				}
				continue
			}

			result := validator.Validate(table,
				schema.ReduceColumns(a, in.Ignore, true),
				schema.ReduceColumns(b, in.Ignore, true),
				pair.A.Label, pair.B.Label)
			if result.Clean() {
				fmt.Fprintf(w, "%s: %s OK\n", pair, table)
				continue
			}
			for _, f := range result.Warnings {
				fmt.Fprintf(w, "%s: %s\n", pair, f.Message)
				problems++
			}
		}
	}

	if problems > 0 {
		return fmt.Errorf("%d schema problem(s) found", problems)
	}
	return nil
}
