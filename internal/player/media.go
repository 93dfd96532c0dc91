package player

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/desertthunder/soundpost/internal/shared"
)

// Media starts audio playback.
type Media interface {
	// Start plays url from offset at volume (0-100).
	Start(url string, offset time.Duration, volume int) (Playback, error)
}

// Playback is one running media handle.
type Playback interface {
	// Stop halts playback. It is safe to call more than once.
	Stop() error
	// Done is closed when playback ends, whether stopped or finished.
	Done() <-chan struct{}
}

// CommandMedia plays previews with an external command.
//
// The command line is Command followed by "-ss <seconds>" when resuming, "-volume <n>" and
// the URL, which matches ffplay's flags.
type CommandMedia struct {
	Command []string
}

// NewCommandMedia returns media for command, or an error when the binary cannot be found.
func NewCommandMedia(command []string) (*CommandMedia, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: player command is empty", shared.ErrInvalidConfig)
	}
	if _, err := exec.LookPath(command[0]); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	return &CommandMedia{Command: command}, nil
}

func (m *CommandMedia) args(url string, offset time.Duration, volume int) []string {
	args := append([]string{}, m.Command[1:]...)
	if offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(offset.Seconds(), 'f', 2, 64))
	}
	return append(args, "-volume", strconv.Itoa(volume), url)
}

func (m *CommandMedia) Start(url string, offset time.Duration, volume int) (Playback, error) {
	cmd := exec.Command(m.Command[0], m.args(url, offset, volume)...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", m.Command[0], err)
	}

	p := &processPlayback{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type processPlayback struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
	once sync.Once
}

func (p *processPlayback) Done() <-chan struct{} { return p.done }

func (p *processPlayback) Stop() error {
	var err error
	p.once.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		if kerr := p.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
			err = kerr
		}
		<-p.done
	})
	return err
}

// NopMedia tracks state without playing anything. Playbacks only end when stopped.
type NopMedia struct{}

func (NopMedia) Start(string, time.Duration, int) (Playback, error) {
	return &nopPlayback{done: make(chan struct{})}, nil
}

type nopPlayback struct {
	done chan struct{}
	once sync.Once
}

func (p *nopPlayback) Done() <-chan struct{} { return p.done }

func (p *nopPlayback) Stop() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
