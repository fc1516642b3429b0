// Package platform implements the local device surfaces the agent drives:
// ringtone playback, the display wake lock and the push subscription.
package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// VolumeArg in a player command is replaced by the volume in percent.
const VolumeArg = "{volume}"

var ErrNoPlayer = errors.New("no player command configured")

// Player plays the ringtone through an external command, for example
// "paplay --volume {volume}" or "afplay". The ringtone path is appended as
// the last argument; an empty path plays the built-in ringtone. A looping
// player restarts the command whenever it exits until paused.
type Player struct {
	argv     []string
	ringtone string

	mu     sync.Mutex
	volume float64
	loop   bool
	cmd    *exec.Cmd
	stop   chan struct{}
}

func NewPlayer(command, ringtone string) *Player {
	return &Player{
		argv:     strings.Fields(command),
		ringtone: ringtone,
		volume:   1,
	}
}

func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = min(max(v, 0), 1)
}

func (p *Player) SetLoop(loop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loop = loop
}

// Play checks the player and ringtone and, unless muted, starts the
// command. A muted play only proves that playback is possible.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(p.argv) == 0 {
		return ErrNoPlayer
	}
	if _, err := exec.LookPath(p.argv[0]); err != nil {
		return fmt.Errorf("player: %w", err)
	}
	if p.ringtone == "" {
		path, err := BuiltinRingtone()
		if err != nil {
			return err
		}
		p.ringtone = path
	}
	if _, err := os.Stat(p.ringtone); err != nil {
		return fmt.Errorf("ringtone: %w", err)
	}
	if p.volume == 0 {
		return nil
	}

	cmd, err := p.startLocked()
	if err != nil {
		return err
	}
	stop := make(chan struct{})
	p.stop = stop
	go p.supervise(cmd, stop, p.loop)
	return nil
}

// Pause stops playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Rewind is a no-op: every Play starts the ringtone from the beginning.
func (p *Player) Rewind() {}

func (p *Player) startLocked() (*exec.Cmd, error) {
	args := make([]string, 0, len(p.argv))
	for _, a := range p.argv[1:] {
		args = append(args, strings.ReplaceAll(a, VolumeArg, strconv.Itoa(int(p.volume*100))))
	}
	args = append(args, p.ringtone)

	cmd := exec.Command(p.argv[0], args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start player: %w", err)
	}
	p.cmd = cmd
	return cmd, nil
}

func (p *Player) stopLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	p.cmd = nil
}

func (p *Player) supervise(cmd *exec.Cmd, stop chan struct{}, loop bool) {
	for {
		err := cmd.Wait()
		select {
		case <-stop:
			return
		default:
		}
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.platform").Msg("player exited")
			return
		}
		if !loop {
			return
		}

		p.mu.Lock()
		select {
		case <-stop:
			p.mu.Unlock()
			return
		default:
		}
		next, err := p.startLocked()
		p.mu.Unlock()
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.platform").Msg("player restart")
			return
		}
		cmd = next
	}
}
