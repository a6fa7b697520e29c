// Package tasks runs the external commands and directory copies configured
// around a build.
package tasks

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Executor runs runners with their output forwarded to Stdout and Stderr.
type Executor struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecutor returns an executor that runs commands in dir and forwards
// their output to the process's own streams.
func NewExecutor(dir string) *Executor {
	return &Executor{Dir: dir, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes r and fails when it cannot start or exits non-zero.
func (e *Executor) Run(ctx context.Context, r config.Runner) error {
	if len(r.Args) == 0 {
		slog.Info("Running command", logfields.Command(r.Command))
	} else {
		slog.Info("Running command", logfields.Command(r.Command), slog.Any("args", r.Args))
	}

	// #nosec G204 -- commands come from the operator's own configuration file
	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Dir = e.Dir
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return errors.InternalError("command exited with an error").
				WithContext(logfields.KeyCommand, r.Command).
				WithContext("exit_code", exitErr.ExitCode()).
				WithCause(err).Build()
		}
		return errors.IOError("unable to run command").
			WithContext(logfields.KeyCommand, r.Command).WithCause(err).Build()
	}
	return nil
}

// RunAll runs the runners in order and stops at the first failure.
func (e *Executor) RunAll(ctx context.Context, runners []config.Runner) error {
	for _, r := range runners {
		if err := e.Run(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
