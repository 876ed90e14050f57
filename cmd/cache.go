package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"srtvoice/internal/cache"
	"srtvoice/pkg/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the synthesis cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached clip",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and hit count",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd, cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCache(cmd *cobra.Command) (*cache.Store, error) {
	cfg, err := config.Load(cmd.Context(), config.Options{Path: configPath})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cache.Open(cfg.Cache.Path)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	count, err := store.Clear(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Cleared %d clip(s) from %s\n", count, store.Path())
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	store, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d clip(s), %d bytes, %d hit(s)\n", store.Path(), stats.Entries, stats.Bytes, stats.Hits)
	return nil
}
