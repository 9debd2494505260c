// Package eventpipe accepts cover commands written to a named pipe, for local scripts and cron
// jobs.
package eventpipe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"coverctl/cover"
)

// Config holds configuration for the event pipe.
type Config struct {
	Path string `yaml:"path"` // Path to named pipe (e.g., "/run/coverctl/commands")
}

// Command is a request for a named cover read from the pipe.
type Command struct {
	Cover   string
	Request cover.Request
}

// Handler is called for every command read from the pipe.
type Handler func(Command)

// EventPipe listens for commands on a named pipe.
type EventPipe struct {
	path    string
	handler Handler
	logger  *zap.SugaredLogger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates the named pipe. Returns nil if path is empty.
func New(cfg Config, handler Handler, logger *zap.SugaredLogger) (*EventPipe, error) {
	if cfg.Path == "" {
		return nil, nil
	}

	os.Remove(cfg.Path)
	if err := syscall.Mkfifo(cfg.Path, 0660); err != nil {
		return nil, fmt.Errorf("create named pipe %s: %w", cfg.Path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &EventPipe{
		path:    cfg.Path,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins listening for commands on the pipe.
// This should be called as a goroutine.
func (ep *EventPipe) Start() {
	ep.logger.Infow("event pipe listening", "path", ep.path)

	for ep.ctx.Err() == nil {
		// blocks until a writer connects
		file, err := os.OpenFile(ep.path, os.O_RDONLY, 0)
		if err != nil {
			if ep.ctx.Err() != nil {
				return
			}
			ep.logger.Errorw("event pipe open failed", "err", err)
			return
		}
		ep.serve(file)
		file.Close()
	}
}

func (ep *EventPipe) serve(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ep.ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cmd, err := parseLine(line)
		if err != nil {
			ep.logger.Warnw("event pipe parse error", "line", line, "err", err)
			continue
		}
		if ep.handler != nil {
			ep.handler(cmd)
		}
	}
}

// Close stops the listener and removes the pipe.
func (ep *EventPipe) Close() error {
	ep.cancel()
	// wake a reader blocked in open
	if w, err := os.OpenFile(ep.path, os.O_WRONLY|syscall.O_NONBLOCK, 0); err == nil {
		w.Close()
	}
	return os.Remove(ep.path)
}

// parseLine parses a command line.
// Command format:
//
//	<cover> open          - open fully
//	<cover> close         - close fully
//	<cover> stop          - stop moving
//	<cover> prog          - send the pairing command (radio covers only)
//	<cover> <0-100>       - move to a position in percent
func parseLine(line string) (Command, error) {
	parts := strings.Fields(line)
	if len(parts) != 2 {
		return Command{}, fmt.Errorf("expected <cover> <command>, got %d fields", len(parts))
	}

	cmd := Command{Cover: parts[0]}
	switch arg := strings.ToLower(parts[1]); arg {
	case "open", "up":
		cmd.Request = cover.RequestOpen()
	case "close", "down":
		cmd.Request = cover.RequestClose()
	case "stop", "my":
		cmd.Request = cover.RequestStop()
	case "prog":
		cmd.Request = cover.RequestProgram()
	default:
		percent, err := strconv.Atoi(strings.TrimSuffix(arg, "%"))
		if err != nil {
			return Command{}, fmt.Errorf("unknown command: %s", arg)
		}
		if percent < 0 || percent > 100 {
			return Command{}, fmt.Errorf("position %d%%: %w", percent, cover.ErrInvalidPosition)
		}
		cmd.Request = cover.RequestPosition(float64(percent) / 100)
	}
	return cmd, nil
}
