// Package commands implements the CLI commands for froid.
package commands

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/froid/internal/logger"
	"github.com/jmylchreest/froid/pkg/froid"
)

// Exit codes.
const (
	exitOK          = 0
	exitOther       = 1
	exitInput       = 2
	exitNotFound    = 3
	exitUpstream    = 4
	exitSchemaDrift = 5
)

var rootCmd = &cobra.Command{
	Use:   "froid",
	Short: "Search and read posts, comments and statistics from farsroid.com",
	Long: `froid retrieves content from farsroid.com and prints it as normalized
records in JSON, JSONL, YAML or a table.

Examples:
  # Fast search through the site's search endpoint
  froid search telegram

  # Legacy search scraping the result pages for thumbnails and excerpts
  froid search "asphalt 8" --mode legacy --max-results 20

  # Full post page with download links
  froid post 12355 --format table

  # Second page of comments, oldest first
  froid comments 12355 --page 2 --order asc`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("json"),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.froid.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "only log errors")
	flags.Bool("json", false, "log as JSON")
	flags.StringP("format", "f", "json", "output format: json, jsonl, yaml, table")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.Bool("cache", false, "serve repeated calls from the local cache")
	flags.String("transport", "", "page transport: http, colly, browser")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("json", flags.Lookup("json"))
	_ = viper.BindPFlag("format", flags.Lookup("format"))
	_ = viper.BindPFlag("cache.enabled", flags.Lookup("cache"))
	_ = viper.BindPFlag("fetch.transport", flags.Lookup("transport"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".froid")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FROID")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}
	logger.Error(err.Error())
	return exitCode(err)
}

func exitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ue), errors.Is(err, froid.ErrInput):
		return exitInput
	case errors.Is(err, froid.ErrNotFound):
		return exitNotFound
	case errors.Is(err, froid.ErrUpstream):
		return exitUpstream
	case errors.Is(err, froid.ErrSchemaDrift):
		return exitSchemaDrift
	default:
		return exitOther
	}
}

// usageError marks bad command lines so they exit like input errors.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "froid", "cache.db")
}
