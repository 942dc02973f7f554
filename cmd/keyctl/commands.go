package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
	"github.com/romanzzaa/md5-predictor-bot/internal/infrastructure/storage"
	"github.com/romanzzaa/md5-predictor-bot/internal/license"
)

type openFunc func(ctx context.Context) (domain.StateRepository, io.Closer, error)

func newRootCmd(open openFunc, logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "keyctl",
		Short: "Manage activation keys of the MD5 bot",
		Long: `keyctl issues and inspects activation keys in the same storage the bot uses
(STORAGE_DRIVER, STATE_DIR, SQLITE_PATH, DB_* from the environment or .env).

Writes never overwrite the bot's data, but the bot reads keys once at
startup: restart the bot before handing out keys issued here.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newIssueCmd(open, logger),
		newLookupCmd(open, logger),
		newListCmd(open, logger),
		newStatsCmd(open, logger),
		newImportLegacyCmd(open),
	)
	return root
}

// withGateway открывает хранилище, загружает состояние и закрывает все после fn
func withGateway(cmd *cobra.Command, open openFunc, logger *slog.Logger, fn func(ctx context.Context, g *license.Gateway) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	repo, closer, err := open(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	g, err := license.Open(ctx, repo, logger)
	if err != nil {
		return err
	}
	return fn(ctx, g)
}

func newIssueCmd(open openFunc, logger *slog.Logger) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue new activation keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be positive")
			}
			return withGateway(cmd, open, logger, func(ctx context.Context, g *license.Gateway) error {
				for i := 0; i < count; i++ {
					// Локальный запуск = администратор
					key, err := g.IssueKey(ctx, true)
					if err != nil {
						return fmt.Errorf("issued %d of %d: %w", i, count, err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), key.Code)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of keys to issue")
	return cmd
}

func newLookupCmd(open openFunc, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup KEY",
		Short: "Show the status of one key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(cmd, open, logger, func(ctx context.Context, g *license.Gateway) error {
				key, ok := g.Lookup(args[0])
				if !ok {
					return fmt.Errorf("key %s not found", args[0])
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				writeKeyHeader(w)
				writeKeyRow(w, key)
				return w.Flush()
			})
		},
	}
}

func newListCmd(open openFunc, logger *slog.Logger) *cobra.Command {
	var unusedOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all keys, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(cmd, open, logger, func(ctx context.Context, g *license.Gateway) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				writeKeyHeader(w)
				for _, k := range g.List() {
					if unusedOnly && k.IsRedeemed() {
						continue
					}
					writeKeyRow(w, k)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&unusedOnly, "unused", false, "show only keys that were not redeemed")
	return cmd
}

func newStatsCmd(open openFunc, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show key and user counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(cmd, open, logger, func(ctx context.Context, g *license.Gateway) error {
				st := g.Stats()
				fmt.Fprintf(cmd.OutOrStdout(), "issued=%d redeemed=%d activated=%d\n", st.KeysIssued, st.KeysRedeemed, st.Activated)
				return nil
			})
		},
	}
}

// Перенос keys.json / users.json старой версии бота в текущее хранилище
func newImportLegacyCmd(open openFunc) *cobra.Command {
	var keysPath, usersPath string
	cmd := &cobra.Command{
		Use:   "import-legacy",
		Short: "Import keys.json and users.json of the previous bot version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			m, err := storage.ReadLegacy(keysPath, usersPath, time.Now().UTC())
			if err != nil {
				return err
			}

			repo, closer, err := open(ctx)
			if err != nil {
				return err
			}
			defer closer.Close()

			state, err := repo.Load(ctx)
			if err != nil {
				return err
			}

			// Уже существующие ключи не трогаем: погашенный ключ неизменяем
			var fresh domain.Mutation
			skipped := 0
			for _, k := range m.Keys {
				if _, exists := state.Keys[k.Code]; exists {
					skipped++
					continue
				}
				fresh.Keys = append(fresh.Keys, k)
			}
			fresh.Principals = m.Principals

			if err := repo.Commit(ctx, fresh); err != nil {
				return fmt.Errorf("failed to import: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported keys=%d skipped=%d users=%d\n", len(fresh.Keys), skipped, len(fresh.Principals))
			return nil
		},
	}
	cmd.Flags().StringVar(&keysPath, "keys", "keys.json", "path to legacy keys.json")
	cmd.Flags().StringVar(&usersPath, "users", "users.json", "path to legacy users.json")
	return cmd
}

func writeKeyHeader(w io.Writer) {
	fmt.Fprintln(w, "CODE\tSTATUS\tREDEEMED_BY\tREDEEMED_AT\tCREATED_AT")
}

func writeKeyRow(w io.Writer, k domain.ActivationKey) {
	by, at := "-", "-"
	if k.IsRedeemed() {
		by = k.RedeemedBy
		at = k.RedeemedAt.Format(time.RFC3339)
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", k.Code, k.Status, by, at, k.CreatedAt.Format(time.RFC3339))
}
