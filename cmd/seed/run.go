package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Create the admin user and insert the seed books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context())
		},
	}
}

func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	svc, release, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer release()

	report, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	v, err := svc.Verify(ctx)
	if err != nil {
		return err
	}
	a.logger.Info().
		Stringer("namespace", a.plan.Target).
		Int64("total", v.Count).
		Msg("total books in collection")
	if v.Duplicates > 0 {
		a.logger.Warn().
			Int("duplicates", v.Duplicates).
			Msg("collection holds repeated seed books")
	}

	renderReport(a.out, a.plan, report, v)
	return nil
}
