package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Buzzer/internal/core"
)

// Inhibitor holds the display awake by running an inhibitor command for as
// long as the lock lives, e.g.
// "systemd-inhibit --what=idle --who=buzzer --why=ringing sleep infinity"
// or "caffeinate -d".
type Inhibitor struct {
	argv []string
}

func NewInhibitor(command string) *Inhibitor {
	return &Inhibitor{argv: strings.Fields(command)}
}

func (i *Inhibitor) Acquire(ctx context.Context) (core.WakeLock, error) {
	if len(i.argv) == 0 {
		return nil, core.ErrWakeLockUnsupported
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := exec.LookPath(i.argv[0]); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrWakeLockUnsupported, err)
	}

	cmd := exec.Command(i.argv[0], i.argv[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start inhibitor: %w", err)
	}
	l := &inhibitLock{cmd: cmd, done: make(chan struct{})}
	go l.wait()
	log.Debug().Str("module", "adapters.platform").Int("pid", cmd.Process.Pid).Msg("wake lock acquired")
	return l, nil
}

// inhibitLock is revoked when its process exits on its own.
type inhibitLock struct {
	cmd  *exec.Cmd
	done chan struct{}
	once sync.Once
}

func (l *inhibitLock) wait() {
	err := l.cmd.Wait()
	log.Debug().Err(err).Str("module", "adapters.platform").Msg("wake lock process exited")
	close(l.done)
}

func (l *inhibitLock) Done() <-chan struct{} { return l.done }

func (l *inhibitLock) Release() error {
	var err error
	l.once.Do(func() {
		select {
		case <-l.done:
			return
		default:
		}
		if err = l.cmd.Process.Kill(); errors.Is(err, os.ErrProcessDone) {
			err = nil
		}
		<-l.done
	})
	return err
}
