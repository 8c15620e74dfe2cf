// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Command executor with merged, line-by-line streaming output

package exec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Runner spawns one process per Run call and relays its output to a sink
type Runner struct {
	config *RunnerConfig
	logger *zap.Logger
}

// NewRunner creates a new command runner
func NewRunner(config *RunnerConfig) *Runner {
	if config == nil {
		config = &RunnerConfig{}
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = DefaultGracePeriod
	}
	if config.MaxLineSize <= 0 {
		config.MaxLineSize = DefaultMaxLineSize
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{config: config, logger: logger}
}

// Run executes c in dir, forwarding every output line to sink as it arrives.
// Stdout and stderr share one pipe so their relative order is preserved.
// Failures never escape as errors: they end up as a marker line in the sink
// and in the returned Result. There is no timeout; only ctx stops a command.
func (r *Runner) Run(ctx context.Context, c Command, dir string, sink Sink) *Result {
	result := &Result{Command: c, Dir: dir, StartedAt: time.Now()}
	log := r.logger.With(zap.String("command", c.String()), zap.String("dir", dir))

	sink.Append("$ " + c.String())

	if err := ctx.Err(); err != nil {
		return r.finish(result, sink, StatusCancelled, err)
	}

	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), c.Env...)
	setPlatformProcessGroup(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		return r.finish(result, sink, StatusErrored, fmt.Errorf("failed to create output pipe: %w", err))
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		log.Warn("command failed to start", zap.Error(err))
		return r.finish(result, sink, StatusErrored, err)
	}
	// Only the child holds the write end now, so EOF means every writer is gone
	pw.Close()
	log.Debug("command started", zap.Int("pid", cmd.Process.Pid))

	done := make(chan struct{})
	go r.watch(ctx, cmd, done)

	readErr := r.stream(pr, sink, result)
	if readErr != nil {
		// Nobody reads the pipe anymore; stop the writers before waiting
		_ = killProcessGroup(cmd)
		_, _ = io.Copy(io.Discard, pr)
	}
	pr.Close()

	waitErr := cmd.Wait()
	close(done)

	status, err := outcome(ctx.Err(), readErr, waitErr)
	if status != StatusSucceeded {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	return r.finish(result, sink, status, err)
}

// outcome classifies a finished command. A clean exit wins over a late
// cancellation: the command completed before anything could stop it.
func outcome(ctxErr, readErr, waitErr error) (Status, error) {
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil && readErr == nil:
		return StatusSucceeded, nil
	case ctxErr != nil:
		return StatusCancelled, ctxErr
	case readErr != nil:
		return StatusErrored, fmt.Errorf("failed to read command output: %w", readErr)
	case errors.As(waitErr, &exitErr):
		return StatusFailed, fmt.Errorf("command exited with code %d", exitErr.ExitCode())
	default:
		return StatusErrored, waitErr
	}
}

// stream forwards lines from the pipe until EOF.
// A line longer than MaxLineSize is forwarded as consecutive pieces of at
// most MaxLineSize bytes; the command keeps running.
func (r *Runner) stream(pipe io.Reader, sink Sink, result *Result) error {
	reader := bufio.NewReaderSize(pipe, 64*1024)
	limit := r.config.MaxLineSize
	var line []byte

	emit := func(text []byte) {
		sink.Append(string(text))
		result.Lines++
		if r.config.LineDelay > 0 {
			time.Sleep(r.config.LineDelay)
		}
	}

	for {
		chunk, isPrefix, err := reader.ReadLine()
		if err != nil {
			if len(line) > 0 {
				emit(line)
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = append(line, chunk...)
		for len(line) > limit {
			emit(line[:limit])
			line = line[limit:]
		}
		if !isPrefix {
			emit(line)
			line = line[:0]
		}
	}
}

// watch interrupts the process group when ctx is cancelled, escalating to
// SIGKILL if it is still running after the grace period
func (r *Runner) watch(ctx context.Context, cmd *exec.Cmd, done <-chan struct{}) {
	select {
	case <-done:
		return
	case <-ctx.Done():
	}

	r.logger.Info("cancelling command", zap.Int("pid", cmd.Process.Pid))
	if err := interruptProcessGroup(cmd); err != nil {
		r.logger.Debug("interrupt failed", zap.Error(err))
	}

	timer := time.NewTimer(r.config.GracePeriod)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		if err := killProcessGroup(cmd); err != nil {
			r.logger.Debug("kill failed", zap.Error(err))
		}
	}
}

// finish records the terminal state and appends the matching marker line
func (r *Runner) finish(result *Result, sink Sink, status Status, err error) *Result {
	result.Status = status
	result.Err = err
	result.Duration = time.Since(result.StartedAt)

	switch status {
	case StatusSucceeded:
		sink.Append(SuccessMarker)
	case StatusFailed:
		sink.Append(fmt.Sprintf(FailureMarker, result.ExitCode))
	case StatusCancelled:
		sink.Append(CancelMarker)
	default:
		sink.Append(fmt.Sprintf(ErrorMarker, err))
	}

	r.logger.Info("command finished",
		zap.String("command", result.Command.String()),
		zap.String("status", string(status)),
		zap.Int("exit_code", result.ExitCode),
		zap.Int("lines", result.Lines),
		zap.Duration("duration", result.Duration),
	)
	return result
}
