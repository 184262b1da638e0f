// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/models"
	"github.com/tomtom215/instakpi/internal/publish"
	"github.com/tomtom215/instakpi/internal/seed"
	"github.com/tomtom215/instakpi/internal/sync"
	"github.com/tomtom215/instakpi/internal/token"
)

func newCycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "Run one reconciliation cycle and exit",
		Long: `Runs every category once against the Graph API and exits. With
NATS_ENABLED=true the updates are published so running servers forward
them to their dashboards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := openApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			// No embedded server or relay for a one-shot run.
			natsCfg := cfg.NATS
			natsCfg.EmbeddedServer = false
			var channels []publish.Channel
			if natsCfg.Enabled {
				ch, err := publish.NewNATSChannel(ctx, &natsCfg, natsCfg.URL, "cli")
				if err != nil {
					return err
				}
				defer func() { _ = ch.Close() }()
				channels = append(channels, ch)
			}

			engine := newEngine(cfg, a, publish.NewFanout(channels...))
			manager := sync.NewManager(engine, sync.NewSnapshotSource(cfg.Graph.AccountID, a.tokens), &cfg.Sync)
			if err := manager.TriggerSync(ctx); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cycle completed at %s\n", manager.LastSyncTime().Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
}

func newRefreshTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-token",
		Short: "Exchange the access token for a new long-lived one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			refresher := token.NewRefresher(token.NewClient(&cfg.Graph), a.secrets, &cfg.Graph, &cfg.Token)
			if err := refresher.Refresh(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Token refreshed and stored under %s (%s)\n", cfg.Token.Key, cfg.Token.SecretStore)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var grow bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the TEST_1..TEST_5 posts, or grow their engagement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return runSeed(cmd.Context(), seed.New(a.store), grow, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&grow, "grow", false, "add random engagement to already seeded posts")
	return cmd
}

// runSeed seeds or grows the test posts and prints one line per post.
func runSeed(ctx context.Context, s *seed.Seeder, grow bool, out io.Writer) error {
	var (
		posts []*models.Post
		err   error
	)
	if grow {
		posts, err = s.Grow(ctx)
	} else {
		posts, err = s.Seed(ctx)
	}
	if err != nil {
		return err
	}

	for _, p := range posts {
		fmt.Fprintf(out, "%-8s likes=%-6d comments=%-5d reach=%d\n",
			p.PostID, deref(p.Likes), deref(p.Comments), deref(p.Reach))
	}
	if grow && len(posts) == 0 {
		logging.Warn().Msg("No seeded posts found; run 'instakpi seed' first")
	}
	return nil
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "instakpi %s\n", version)
		},
	}
}
