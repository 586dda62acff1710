package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errMismatch = errors.New("collection does not match plan")

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Compare the seeded collection with the plan",
		Long: `Reads the target collection back and prints its documents. Exits with
an error when the collection is not exactly the plan's books in order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.verify(cmd.Context())
		},
	}
}

func (a *app) verify(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	svc, release, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer release()

	v, err := svc.Verify(ctx)
	if err != nil {
		return err
	}

	renderBooks(a.out, a.plan.Target.String(), v.Books)
	renderVerification(a.out, v)
	if !v.Matches {
		return fmt.Errorf("%w: %d documents, %d expected, %d duplicates",
			errMismatch, v.Count, v.Expected, v.Duplicates)
	}
	return nil
}
