package commands

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/froid/internal/cache"
	"github.com/jmylchreest/froid/internal/logger"
	"github.com/jmylchreest/froid/internal/output"
	"github.com/jmylchreest/froid/pkg/froid"
	"github.com/jmylchreest/froid/pkg/model"
)

// call runs fn against a fresh session with signal cancellation and writes
// whatever fn hands to emit.
func call(cmd *cobra.Command, fn func(ctx context.Context, b cache.Backend, w output.Writer) error) error {
	format, err := output.ParseFormat(viper.GetString("format"))
	if err != nil {
		return &usageError{err: err}
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := openSession(viper.GetViper())
	if err != nil {
		return err
	}
	defer s.Close()

	var dst io.Writer = cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	}

	w, err := output.NewWriter(dst, format)
	if err != nil {
		return err
	}
	if err := fn(ctx, s.backend, w); err != nil {
		return err
	}
	return w.Flush()
}

// report logs a degraded outcome. Partial results still exit 0.
func report(op string, outcome froid.Outcome, diag model.Diagnostics) {
	if outcome != froid.PartiallySucceeded {
		if len(diag.Notes) > 0 {
			logger.Debug("result notes", "op", op, "notes", diag.Notes)
		}
		return
	}
	logger.Warn("partial result",
		"op", op,
		"dropped", diag.Dropped,
		"failed_pages", diag.FailedPages,
		"missing", diag.Missing,
		"notes", diag.Notes)
}
