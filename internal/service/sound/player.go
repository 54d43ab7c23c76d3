package sound

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/attention-monitor/internal/logger"
)

const (
	// restartDelay is the pause before relaunching a player that exited with an error.
	restartDelay = time.Second
	// maxConsecutiveFailures stops the loop when the player keeps failing.
	maxConsecutiveFailures = 3
)

var (
	// ErrPlayerNotFound indicates the configured player executable is not in PATH.
	ErrPlayerNotFound = errors.New("sound player not found")
	// ErrSoundNotFound indicates the alarm sound file does not exist.
	ErrSoundNotFound = errors.New("sound file not found")
)

// Player loops a sound file by relaunching a one-shot command-line player
// (ffplay, paplay, afplay, ...) until stopped.
type Player struct {
	// command is the player executable name or path.
	command string
	// args are passed before the sound path.
	args []string

	// mu protects cancel and done.
	mu sync.Mutex
	// cancel ends the current playback loop; nil when idle.
	cancel context.CancelFunc
	// done is closed when the playback loop exits.
	done chan struct{}
}

// NewPlayer creates a player that runs `command args... <path>` for each loop.
func NewPlayer(command string, args ...string) *Player {
	return &Player{
		command: command,
		args:    args,
	}
}

// Play starts looping playback and returns once the first player process is
// running. It fails when the sound file or the player executable is missing.
// Calling Play while already playing is a no-op.
func (p *Player) Play(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSoundNotFound, path)
		}

		return fmt.Errorf("stat sound file: %w", err)
	}

	binary, err := exec.LookPath(Executable(p.command))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPlayerNotFound, p.command, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)

	cmd := p.newCommand(loopCtx, binary, path)
	if err = cmd.Start(); err != nil {
		cancel()

		return fmt.Errorf("start sound player: %w", err)
	}

	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(loopCtx, cmd, binary, path, p.done)

	return nil
}

// Stop kills the running player and waits for the loop to exit.
func (p *Player) Stop() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done

	return nil
}

// Playing reports whether a playback loop is active.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cancel != nil
}

// loop waits for each player process and relaunches it until ctx is canceled.
func (p *Player) loop(ctx context.Context, cmd *exec.Cmd, binary, path string, done chan struct{}) {
	defer close(done)

	failures := 0

	for {
		err := cmd.Wait()
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			failures++

			logger.WarnKV(ctx, "Sound player exited with error", "command", p.command, "failures", failures, "error", err)

			if failures >= maxConsecutiveFailures {
				logger.ErrorKV(ctx, "Sound player keeps failing, giving up", "command", p.command, "path", path)
				p.detach(done)

				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(restartDelay):
			}
		} else {
			failures = 0
		}

		cmd = p.newCommand(ctx, binary, path)
		if err = cmd.Start(); err != nil {
			logger.ErrorKV(ctx, "Failed to relaunch sound player", "command", p.command, "error", err)
			p.detach(done)

			return
		}
	}
}

// detach marks the player idle after the loop gave up on its own.
func (p *Player) detach(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != done {
		return
	}

	p.cancel()
	p.cancel, p.done = nil, nil
}

// newCommand builds one player invocation.
func (p *Player) newCommand(ctx context.Context, binary, path string) *exec.Cmd {
	args := make([]string, 0, len(p.args)+1)
	args = append(args, p.args...)
	args = append(args, path)

	//nolint:gosec // Player command and arguments come from the operator's configuration.
	return exec.CommandContext(ctx, binary, args...)
}

// Executable appends ".exe" to bare command names on Windows.
func Executable(command string) string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") && filepath.Ext(command) == "" {
		return command + ".exe"
	}

	return command
}
