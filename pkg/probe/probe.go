// Package probe discovers the bitrate of an audio file by asking an external
// inspection tool (sox by default) for a compact bitrate report.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultCommand  = "sox"
	DefaultFallback = 128000
	DefaultTimeout  = 5 * time.Second
)

var tracer = otel.Tracer("probe")

// Result is the outcome of a probe. When Err is set, BitrateBps holds the
// fallback bitrate.
type Result struct {
	BitrateBps int
	Err        error
}

// Fallback reports whether the fallback bitrate was substituted.
func (r Result) Fallback() bool {
	return r.Err != nil
}

// runFunc executes name with args and returns everything written to stdout and
// stderr once both have been drained.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

type Prober struct {
	command  string
	fallback int
	timeout  time.Duration
	logger   *slog.Logger
	run      runFunc
}

// New returns a Prober invoking command. A zero fallback or timeout selects the default.
func New(command string, fallback int, timeout time.Duration, logger *slog.Logger) *Prober {
	if command == "" {
		command = DefaultCommand
	}
	if fallback <= 0 {
		fallback = DefaultFallback
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Prober{
		command:  command,
		fallback: fallback,
		timeout:  timeout,
		logger:   logger,
		run:      runCommand,
	}
}

// Probe returns the bitrate of the file at path in bits per second. It never
// fails: on any error the fallback bitrate is returned along with the cause.
func (p *Prober) Probe(ctx context.Context, path string) Result {
	ctx, span := tracer.Start(ctx, "Prober.Probe")
	defer span.End()

	bitrate, err := p.probe(ctx, path)
	if err != nil {
		p.logger.Info("bitrate probe failed, using fallback", "path", path, "fallback", p.fallback, "err", err)
		span.SetAttributes(attribute.Bool("fallback", true))
		return Result{BitrateBps: p.fallback, Err: err}
	}

	span.SetAttributes(attribute.Int("bitrate", bitrate))
	return Result{BitrateBps: bitrate}
}

func (p *Prober) probe(ctx context.Context, path string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	stdout, stderr, err := p.run(ctx, p.command, "--i", "-B", path)
	if ctx.Err() == context.DeadlineExceeded {
		return 0, errors.Wrapf(ctx.Err(), "%s timed out after %s", p.command, p.timeout)
	}
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return 0, fmt.Errorf("%s: %s", p.command, msg)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "failed to run %s", p.command)
	}

	return ParseBitrate(string(stdout))
}

// ParseBitrate converts a report such as "128k" or "1.41M" to bits per second.
// A bare number is taken as bits per second.
func ParseBitrate(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty bitrate report")
	}

	multiplier := 1.0
	switch s[len(s)-1] {
	case 'k', 'K':
		multiplier = 1000
		s = s[:len(s)-1]
	case 'M':
		multiplier = 1000 * 1000
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "cannot parse bitrate %q", s)
	}

	// Reject NaN, Inf and anything an int conversion would not hold exactly.
	v = math.Round(v * multiplier)
	if !(v > 0 && v <= math.MaxInt32) {
		return 0, fmt.Errorf("invalid bitrate %q", s)
	}

	return int(v), nil
}
