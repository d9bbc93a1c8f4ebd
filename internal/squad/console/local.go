package console

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/nxadm/tail"
)

func NewLocal(filePath string) *Local {
	return &Local{
		stopChan: make(chan struct{}),
		filePath: filePath,
	}
}

// Local handles "tail"-ing the SquadGame.log file written by the dedicated server. Only lines
// written after Open are delivered.
type Local struct {
	tail     *tail.Tail
	stopChan chan struct{}
	stopOnce sync.Once
	filePath string
}

func (l *Local) Open(_ context.Context) error {
	if l.tail != nil {
		return nil
	}

	tailConfig := tail.Config{
		// Start at the end of the file, only watch for new lines.
		Location: &tail.SeekInfo{
			Offset: 0,
			Whence: io.SeekEnd,
		},
		Logger: tail.DiscardingLogger,
		Follow: true,
		// The server rotates the log on restart.
		ReOpen:    true,
		MustExist: false,
	}

	tailFile, errTail := tail.TailFile(l.filePath, tailConfig)
	if errTail != nil {
		return errors.Join(errTail, ErrOpen)
	}

	l.tail = tailFile

	return nil
}

func (l *Local) Close(_ context.Context) error {
	l.stopOnce.Do(func() { close(l.stopChan) })

	return nil
}

// Start forwards every new line to the receiver until the context is cancelled or Close is called.
func (l *Local) Start(ctx context.Context, receiver Receiver) {
	if l.tail == nil {
		slog.Error("Console source started before being opened", slog.String("path", l.filePath))

		return
	}

	defer func() {
		if errStop := l.tail.Stop(); errStop != nil {
			slog.Error("Failed to stop tailing server log cleanly", slog.String("error", errStop.Error()))
		}
	}()

	slog.Info("Tailing server log", slog.String("path", l.filePath))

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopChan:
			return
		case msg, ok := <-l.tail.Lines:
			if !ok {
				return
			}

			if msg == nil {
				continue
			}

			if msg.Err != nil {
				slog.Warn("Failed to read server log line", slog.String("error", msg.Err.Error()))

				continue
			}

			receiver.Send(msg.Text)
		}
	}
}
