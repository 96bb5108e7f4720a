package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/froid/internal/output"
	"github.com/jmylchreest/froid/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("format") && !viper.IsSet("format") {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			return nil
		}
		format, err := output.ParseFormat(viper.GetString("format"))
		if err != nil {
			return &usageError{err: err}
		}
		w, err := output.NewWriter(cmd.OutOrStdout(), format)
		if err != nil {
			return err
		}
		if err := w.Write(version.Get()); err != nil {
			return err
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
