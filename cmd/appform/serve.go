package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-appform/internal/httpapi"
	"github.com/goliatone/go-appform/pkg/answers"
	"github.com/goliatone/go-appform/pkg/builder"
	"github.com/goliatone/go-appform/pkg/submission"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the build, reshape and prepare operations over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			depth := app.v.GetInt(keyMaxDepth)
			var preparerOptions []submission.Option
			if app.v.GetBool(keySanitize) {
				preparerOptions = append(preparerOptions, submission.WithStrictSanitizer())
			}
			server := httpapi.New(
				httpapi.WithLogger(app.logger),
				httpapi.WithBuilder(builder.New(builder.WithMaxDepth(depth))),
				httpapi.WithReshaper(answers.NewReshaper(answers.WithMaxDepth(depth))),
				httpapi.WithPreparer(submission.New(preparerOptions...)),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			group, gctx := errgroup.WithContext(ctx)
			group.Go(func() error {
				return server.Listen(app.v.GetString(keyListen))
			})
			group.Go(func() error {
				<-gctx.Done()
				app.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
			if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				app.logger.Error("server stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().String(keyListen, ":8080", "listen address")
	cmd.Flags().Bool(keySanitize, false, "strip markup from free text values in prepared payloads")
	return cmd
}
