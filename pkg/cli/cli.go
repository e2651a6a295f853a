package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/secmon-lab/bottlematch/pkg/cli/config"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/utils/errutil"
	"github.com/secmon-lab/bottlematch/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func Run(ctx context.Context, args []string, version string) error {
	app := newApp(version)

	if err := app.Run(ctx, args); err != nil {
		logCommandError(logging.Default(), err)
		return err
	}

	return nil
}

// logCommandError logs err once. Errors that went through errutil.Handle
// were logged there, and a missing bottle is an expected outcome.
func logCommandError(logger *slog.Logger, err error) {
	switch {
	case errutil.IsHandled(err):
		return
	case errors.Is(err, model.ErrNotFound):
		logger.Info("command finished without a result", "error", err.Error())
	default:
		logger.Error("failed to run app", "error", err)
	}
}

func newApp(version string) *cli.Command {
	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var closers []func()

	var flags []cli.Flag
	flags = append(flags, loggerCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:      "bottlematch",
		Usage:     "Bottle image catalog and similarity matching",
		Version:   version,
		Flags:     flags,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, f)

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return ctx, err
			}
			closers = append(closers, flush)

			logging.Default().Debug("Starting bottlematch", "logger", loggerCfg, "sentry", sentryCfg)
			return logging.With(ctx, logging.Default()), nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdIngest(),
			cmdImport(),
			cmdMatch(),
			cmdList(),
			cmdDelete(),
			cmdVerify(),
		},
	}
}
