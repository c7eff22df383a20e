package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quintave/quintave/internal/access"
	"github.com/quintave/quintave/internal/cli"
	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/engine"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a user's access state and buckets",
		RunE:  runStatus,
	}

	cmd.Flags().String("user", "", "open id of the user to inspect")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	openID, _ := cmd.Flags().GetString("user")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStorage(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	user, err := store.GetUserByOpenID(ctx, openID)
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("no user with open id %q", openID)
	}
	if err != nil {
		return err
	}

	eng := engine.New(store,
		engine.WithLogger(logger),
		engine.WithPolicy(access.Policy{TrialDays: cfg.Purchase.TrialDays}))

	summary, err := eng.BucketSummary(ctx, user.ID)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), cli.RenderAccount(user, eng.AccessStatus(user), summary))
	return nil
}
