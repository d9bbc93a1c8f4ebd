package console

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"os"
	"time"
)

// NewReplay creates a source that feeds an existing log file from the start, pausing
// interval between lines. A zero interval replays as fast as the receiver accepts lines.
func NewReplay(logPath string, interval time.Duration) *Replay {
	return &Replay{logPath: logPath, interval: interval}
}

// Replay is used to check the event parsing against a captured server log.
type Replay struct {
	file     *os.File
	logPath  string
	interval time.Duration
}

func (c *Replay) Open(_ context.Context) error {
	reader, errReader := os.Open(c.logPath)
	if errReader != nil {
		return errors.Join(errReader, ErrOpen)
	}

	c.file = reader

	return nil
}

func (c *Replay) Close(_ context.Context) error {
	if c.file == nil {
		return nil
	}

	if err := c.file.Close(); err != nil {
		return errors.Join(err, ErrClose)
	}

	c.file = nil

	return nil
}

// Start sends every line of the file to the receiver and returns once the end is reached.
func (c *Replay) Start(ctx context.Context, receiver Receiver) {
	if c.file == nil {
		slog.Error("Replay started before being opened", slog.String("path", c.logPath))

		return
	}

	scanner := bufio.NewScanner(c.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var ticker *time.Ticker
	if c.interval > 0 {
		ticker = time.NewTicker(c.interval)
		defer ticker.Stop()
	}

	for scanner.Scan() {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		receiver.Send(scanner.Text())
	}

	if errScan := scanner.Err(); errScan != nil {
		slog.Error("Failed to read replay log", slog.String("error", errScan.Error()))
	}
}
