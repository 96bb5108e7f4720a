package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/froid/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local result cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove every cached result",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		store, err := cache.Open(fc.Cache.Path, fc.Cache.TTL)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Purge(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached results from %s\n", n, fc.Cache.Path)
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <id>",
	Short: "Drop the cached page and statistics of a post",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		store, err := cache.Open(fc.Cache.Path, fc.Cache.TTL)
		if err != nil {
			return err
		}
		defer store.Close()

		return store.InvalidatePost(cmd.Context(), args[0])
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd, cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}
