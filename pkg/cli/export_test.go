package cli

import (
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"
)

// NewAppForTest returns the root command writing its output to w
func NewAppForTest(w io.Writer) *cli.Command {
	app := newApp("test")
	app.Writer = w
	return app
}

// LogCommandError exposes the error logging done by Run
func LogCommandError(logger *slog.Logger, err error) {
	logCommandError(logger, err)
}
