package player

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

// PreviewLength is the length of catalog preview clips.
const PreviewLength = 30 * time.Second

const defaultTick = 250 * time.Millisecond

// TrackResolver fetches full track metadata, used to find missing preview URLs.
type TrackResolver interface {
	GetTrack(ctx context.Context, id string) (*models.MusicTrack, error)
}

// Options configures a [Player].
type Options struct {
	Media    Media
	Resolver TrackResolver
	Volume   int
	Tick     time.Duration
	Logger   *log.Logger
}

type stateListener struct {
	id int
	fn func(models.AudioPlayerState)
}

// Player is the session's audio player.
type Player struct {
	mu        sync.Mutex
	state     models.AudioPlayerState
	playback  Playback
	halt      chan struct{}
	listeners []stateListener
	lastID    int

	media    Media
	resolver TrackResolver
	tick     time.Duration
	logger   *log.Logger
}

// New creates an idle player. Missing options fall back to [NopMedia], the default volume and a 250ms tick.
func New(opts Options) *Player {
	if opts.Media == nil {
		opts.Media = NopMedia{}
	}
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	state := models.NewAudioPlayerState()
	if opts.Volume > 0 {
		state.Volume = clamp(opts.Volume, 0, 100)
	}

	return &Player{
		state:    state,
		media:    opts.Media,
		resolver: opts.Resolver,
		tick:     opts.Tick,
		logger:   shared.WithLogger(opts.Logger, "component", "player"),
	}
}

// State returns a snapshot of the player.
func (p *Player) State() models.AudioPlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}

// AddStateListener calls fn after every state change until unsubscribe is called.
func (p *Player) AddStateListener(fn func(models.AudioPlayerState)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastID++
	id := p.lastID
	p.listeners = append(p.listeners, stateListener{id: id, fn: fn})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, l := range p.listeners {
			if l.id == id {
				p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

// IsTrackPlaying reports whether id is loaded and playing.
func (p *Player) IsTrackPlaying(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded(id) && p.state.IsPlaying
}

// IsTrackLoaded reports whether id is the current track.
func (p *Player) IsTrackLoaded(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded(id)
}

func (p *Player) loaded(id string) bool {
	return p.state.CurrentTrack != nil && p.state.CurrentTrack.ID == id
}

// PlayTrack plays track. Playing the current track again toggles pause.
//
// A track without a preview URL is looked up through the resolver first.
func (p *Player) PlayTrack(ctx context.Context, track models.MusicTrack) error {
	p.mu.Lock()
	if p.loaded(track.ID) {
		playing := p.state.IsPlaying
		p.mu.Unlock()
		if playing {
			p.Pause()
			return nil
		}
		return p.Resume()
	}

	p.stopLocked()
	p.state.CurrentTrack = track.Clone()
	p.state.IsLoading = true
	p.state.IsPlaying = false
	p.state.Progress = 0
	p.state.CurrentTime = 0
	p.state.Duration = 0
	p.commit()

	url := track.PreviewURL
	if url == "" && p.resolver != nil {
		resolved, err := p.resolver.GetTrack(ctx, track.ID)
		if err != nil {
			p.logger.Warn("failed to resolve preview", "track", track.ID, "error", err)
		} else if resolved.HasPreview() {
			url = resolved.PreviewURL
		}
	}

	p.mu.Lock()
	if !p.loaded(track.ID) {
		p.mu.Unlock()
		return nil
	}
	if url == "" {
		p.state.IsLoading = false
		p.commit()
		return fmt.Errorf("%w: %s", shared.ErrNoPreview, track.Title)
	}
	p.state.CurrentTrack.PreviewURL = url
	p.state.Duration = PreviewLength.Seconds()

	if err := p.startLocked(0); err != nil {
		p.state.IsLoading = false
		p.commit()
		return err
	}
	p.commit()
	return nil
}

// Pause stops the media and keeps the position.
func (p *Player) Pause() {
	p.mu.Lock()
	if !p.state.IsPlaying {
		p.mu.Unlock()
		return
	}
	p.releaseLocked()
	p.state.IsPlaying = false
	p.commit()
}

// Resume continues the current track from its position.
func (p *Player) Resume() error {
	p.mu.Lock()
	if p.state.CurrentTrack == nil || p.state.IsPlaying || p.state.CurrentTrack.PreviewURL == "" {
		p.mu.Unlock()
		return nil
	}
	err := p.startLocked(seconds(p.state.CurrentTime))
	p.commit()
	return err
}

// Stop unloads the current track and resets position and duration. Volume is kept.
func (p *Player) Stop() {
	p.mu.Lock()
	p.stopLocked()
	p.commit()
}

// SetVolume sets the volume, clamped to 0-100. A playing track restarts at its position to apply it.
func (p *Player) SetVolume(volume int) error {
	p.mu.Lock()
	p.state.Volume = clamp(volume, 0, 100)
	err := p.restartLocked()
	p.commit()
	return err
}

// SeekTo moves to percent of the clip, clamped to 0-100. It does nothing before a duration is known.
func (p *Player) SeekTo(percent float64) error {
	p.mu.Lock()
	if p.state.Duration <= 0 {
		p.mu.Unlock()
		return nil
	}
	percent = max(0, min(100, percent))
	p.state.Progress = percent
	p.state.CurrentTime = percent / 100 * p.state.Duration
	err := p.restartLocked()
	p.commit()
	return err
}

// Close stops playback and drops all listeners.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked()
	p.state = models.AudioPlayerState{Volume: p.state.Volume}
	p.listeners = nil
	return nil
}

func (p *Player) restartLocked() error {
	if !p.state.IsPlaying {
		return nil
	}
	p.releaseLocked()
	return p.startLocked(seconds(p.state.CurrentTime))
}

func (p *Player) startLocked(offset time.Duration) error {
	pb, err := p.media.Start(p.state.CurrentTrack.PreviewURL, offset, p.state.Volume)
	if err != nil {
		p.state.IsPlaying = false
		p.logger.Error("failed to start playback", "track", p.state.CurrentTrack.ID, "error", err)
		return err
	}

	p.playback = pb
	p.halt = make(chan struct{})
	p.state.IsPlaying = true
	p.state.IsLoading = false
	go p.run(pb, p.halt)
	return nil
}

// releaseLocked stops the media handle without touching the track state.
func (p *Player) releaseLocked() {
	if p.halt != nil {
		close(p.halt)
		p.halt = nil
	}
	if p.playback != nil {
		pb := p.playback
		p.playback = nil
		if err := pb.Stop(); err != nil {
			p.logger.Warn("failed to stop playback", "error", err)
		}
	}
}

func (p *Player) stopLocked() {
	p.releaseLocked()
	p.state = models.AudioPlayerState{Volume: p.state.Volume}
}

// commit notifies listeners of the current state and releases the lock.
func (p *Player) commit() {
	state := p.state.Clone()
	listeners := append([]stateListener(nil), p.listeners...)
	p.mu.Unlock()

	for _, l := range listeners {
		p.notify(l, state)
	}
}

func (p *Player) notify(l stateListener, state models.AudioPlayerState) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("state listener panicked", "listener", l.id, "panic", r)
		}
	}()
	l.fn(state.Clone())
}

func (p *Player) run(pb Playback, halt <-chan struct{}) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-halt:
			return
		case <-pb.Done():
			p.finished(pb)
			return
		case <-ticker.C:
			p.advance(pb, p.tick)
		}
	}
}

// advance moves the position of pb forward by d.
func (p *Player) advance(pb Playback, d time.Duration) {
	p.mu.Lock()
	if p.playback != pb || !p.state.IsPlaying {
		p.mu.Unlock()
		return
	}
	p.state.CurrentTime = min(p.state.CurrentTime+d.Seconds(), p.state.Duration)
	if p.state.Duration > 0 {
		p.state.Progress = min(p.state.CurrentTime/p.state.Duration*100, 100)
	}
	p.commit()
}

// finished resets the position when pb ends on its own.
func (p *Player) finished(pb Playback) {
	p.mu.Lock()
	if p.playback != pb {
		p.mu.Unlock()
		return
	}
	p.playback = nil
	p.halt = nil
	p.state.IsPlaying = false
	p.state.Progress = 0
	p.state.CurrentTime = 0
	p.commit()
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
