package console_test

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/leighmacdonald/squad-afk/internal/squad/console"
	"github.com/stretchr/testify/require"
)

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) Send(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines = append(r.lines, line)
}

func (r *lineRecorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.lines)
}

func TestLocal(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "SquadGame.log")
	require.NoError(t, os.WriteFile(logPath, []byte("old line\n"), 0o600))

	local := console.NewLocal(logPath)
	require.NoError(t, local.Open(t.Context()))

	receiver := &lineRecorder{}
	done := make(chan struct{})

	go func() {
		local.Start(t.Context(), receiver)
		close(done)
	}()

	logFile, errOpen := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, errOpen)
	t.Cleanup(func() { _ = logFile.Close() })

	// The tail seeks to the end asynchronously, keep writing until lines show up.
	require.Eventually(t, func() bool {
		if _, errWrite := logFile.WriteString("new line\n"); errWrite != nil {
			return false
		}

		return len(receiver.Lines()) > 0
	}, 5*time.Second, 50*time.Millisecond)

	require.NotContains(t, receiver.Lines(), "old line")
	require.Equal(t, "new line", receiver.Lines()[0])

	require.NoError(t, local.Close(t.Context()))
	require.NoError(t, local.Close(t.Context()))
	<-done
}
