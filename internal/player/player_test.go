package player

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
	tu "github.com/desertthunder/soundpost/internal/testing"
)

type start struct {
	url    string
	offset time.Duration
	volume int
}

// fakeMedia records starts and hands out playbacks the test can finish.
type fakeMedia struct {
	mu        sync.Mutex
	starts    []start
	playbacks []*nopPlayback
	err       error
}

func (m *fakeMedia) Start(url string, offset time.Duration, volume int) (Playback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.starts = append(m.starts, start{url, offset, volume})
	pb := &nopPlayback{done: make(chan struct{})}
	m.playbacks = append(m.playbacks, pb)
	return pb, nil
}

func (m *fakeMedia) last() (start, *nopPlayback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts[len(m.starts)-1], m.playbacks[len(m.playbacks)-1]
}

func (m *fakeMedia) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.starts)
}

var (
	trackA = models.MusicTrack{ID: "1", Title: "Uno", PreviewURL: "https://cdn.example.com/1.mp3"}
	trackB = models.MusicTrack{ID: "2", Title: "Dos", PreviewURL: "https://cdn.example.com/2.mp3"}
)

func newTestPlayer(media Media, resolver TrackResolver) *Player {
	return New(Options{Media: media, Resolver: resolver, Tick: time.Hour})
}

func TestPlayer(t *testing.T) {
	ctx := context.Background()

	t.Run("Play Toggles Same Track", func(t *testing.T) {
		media := &fakeMedia{}
		p := newTestPlayer(media, nil)

		if err := p.PlayTrack(ctx, trackA); err != nil {
			t.Fatalf("PlayTrack failed: %v", err)
		}
		if !p.IsTrackPlaying("1") || p.State().Duration != PreviewLength.Seconds() {
			t.Errorf("state = %+v", p.State())
		}

		_ = p.PlayTrack(ctx, trackA)
		if p.IsTrackPlaying("1") || !p.IsTrackLoaded("1") {
			t.Errorf("expected paused, state = %+v", p.State())
		}

		_ = p.PlayTrack(ctx, trackA)
		if !p.IsTrackPlaying("1") {
			t.Error("expected resumed")
		}
		if media.count() != 2 {
			t.Errorf("starts = %d, want 2", media.count())
		}
	})

	t.Run("New Track Stops Previous", func(t *testing.T) {
		media := &fakeMedia{}
		p := newTestPlayer(media, nil)

		_ = p.PlayTrack(ctx, trackA)
		_, first := media.last()
		_ = p.PlayTrack(ctx, trackB)

		select {
		case <-first.Done():
		default:
			t.Error("previous playback was not stopped")
		}
		if p.IsTrackLoaded("1") || !p.IsTrackPlaying("2") {
			t.Errorf("state = %+v", p.State())
		}
	})

	t.Run("Stop Resets", func(t *testing.T) {
		p := newTestPlayer(&fakeMedia{}, nil)
		_ = p.SetVolume(40)
		_ = p.PlayTrack(ctx, trackA)
		_ = p.SeekTo(50)

		p.Stop()

		want := models.AudioPlayerState{Volume: 40}
		if got := p.State(); got != want {
			t.Errorf("state = %+v, want %+v", got, want)
		}
	})

	t.Run("Volume Clamps And Restarts", func(t *testing.T) {
		media := &fakeMedia{}
		p := newTestPlayer(media, nil)

		_ = p.SetVolume(150)
		if p.State().Volume != 100 {
			t.Errorf("volume = %d, want 100", p.State().Volume)
		}
		_ = p.SetVolume(-3)
		if p.State().Volume != 0 {
			t.Errorf("volume = %d, want 0", p.State().Volume)
		}

		_ = p.PlayTrack(ctx, trackA)
		p.advance(media.playbacks[0], 6*time.Second)
		_ = p.SetVolume(55)

		s, _ := media.last()
		if media.count() != 2 || s.volume != 55 || s.offset != 6*time.Second {
			t.Errorf("restart = %+v (starts %d)", s, media.count())
		}
	})

	t.Run("Seek", func(t *testing.T) {
		media := &fakeMedia{}
		p := newTestPlayer(media, nil)

		if err := p.SeekTo(50); err != nil || p.State().Progress != 0 {
			t.Errorf("seek without a track should do nothing, state = %+v", p.State())
		}

		_ = p.PlayTrack(ctx, trackA)
		_ = p.SeekTo(250)
		if st := p.State(); st.Progress != 100 || st.CurrentTime != 30 {
			t.Errorf("state = %+v", st)
		}
		_ = p.SeekTo(50)
		if s, _ := media.last(); s.offset != 15*time.Second {
			t.Errorf("offset = %v, want 15s", s.offset)
		}
	})

	t.Run("Progress Advances", func(t *testing.T) {
		media := &fakeMedia{}
		p := newTestPlayer(media, nil)
		_ = p.PlayTrack(ctx, trackA)
		_, pb := media.last()

		p.advance(pb, 3*time.Second)
		if st := p.State(); st.CurrentTime != 3 || st.Progress != 10 {
			t.Errorf("state = %+v", st)
		}

		p.advance(pb, time.Minute)
		if st := p.State(); st.Progress != 100 || st.CurrentTime != 30 {
			t.Errorf("progress should cap at the clip length, state = %+v", st)
		}

		p.Pause()
		p.advance(pb, time.Second)
		if st := p.State(); st.CurrentTime != 30 {
			t.Errorf("paused player advanced: %+v", st)
		}
	})

	t.Run("Media End Resets Position", func(t *testing.T) {
		media := &fakeMedia{}
		p := newTestPlayer(media, nil)

		ended := make(chan models.AudioPlayerState, 4)
		_ = p.PlayTrack(ctx, trackA)
		p.AddStateListener(func(s models.AudioPlayerState) { ended <- s })

		_, pb := media.last()
		_ = pb.Stop()

		select {
		case st := <-ended:
			if st.IsPlaying || st.Progress != 0 || st.CurrentTrack == nil {
				t.Errorf("state = %+v", st)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no state change after media ended")
		}
	})

	t.Run("Resolves Missing Preview", func(t *testing.T) {
		catalog := &tu.MockCatalog{Tracks: map[string]models.MusicTrack{"3": {ID: "3", PreviewURL: "https://cdn.example.com/3.mp3"}}}
		media := &fakeMedia{}
		p := newTestPlayer(media, catalog)

		if err := p.PlayTrack(ctx, models.MusicTrack{ID: "3", Title: "Tres"}); err != nil {
			t.Fatalf("PlayTrack failed: %v", err)
		}
		if s, _ := media.last(); s.url != "https://cdn.example.com/3.mp3" {
			t.Errorf("url = %q", s.url)
		}
		if catalog.Lookups != 1 {
			t.Errorf("lookups = %d, want 1", catalog.Lookups)
		}

		err := p.PlayTrack(ctx, models.MusicTrack{ID: "4", Title: "Cuatro"})
		if !errors.Is(err, shared.ErrNoPreview) {
			t.Errorf("expected ErrNoPreview, got %v", err)
		}
		if st := p.State(); st.IsLoading || st.IsPlaying {
			t.Errorf("state = %+v", st)
		}
	})

	t.Run("Start Failure", func(t *testing.T) {
		p := newTestPlayer(&fakeMedia{err: errors.New("no audio device")}, nil)

		if err := p.PlayTrack(ctx, trackA); err == nil {
			t.Error("expected error")
		}
		if st := p.State(); st.IsPlaying || st.IsLoading {
			t.Errorf("state = %+v", st)
		}
	})

	t.Run("Listeners", func(t *testing.T) {
		p := newTestPlayer(&fakeMedia{}, nil)
		calls := 0
		unsubscribe := p.AddStateListener(func(models.AudioPlayerState) { calls++ })
		p.AddStateListener(func(models.AudioPlayerState) { panic("listener bug") })

		_ = p.SetVolume(10)
		unsubscribe()
		_ = p.SetVolume(20)

		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("Close", func(t *testing.T) {
		media := &fakeMedia{}
		p := newTestPlayer(media, nil)
		_ = p.PlayTrack(ctx, trackA)
		_, pb := media.last()

		if err := p.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		select {
		case <-pb.Done():
		default:
			t.Error("Close did not stop playback")
		}
		if p.State().CurrentTrack != nil {
			t.Error("track still loaded after Close")
		}
	})
}

func TestCommandMedia(t *testing.T) {
	t.Run("Args", func(t *testing.T) {
		m := &CommandMedia{Command: []string{"ffplay", "-nodisp", "-autoexit"}}

		got := m.args("https://x/1.mp3", 0, 70)
		want := []string{"-nodisp", "-autoexit", "-volume", "70", "https://x/1.mp3"}
		if len(got) != len(want) {
			t.Fatalf("args = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("args[%d] = %q, want %q", i, got[i], want[i])
			}
		}

		got = m.args("u", 1500*time.Millisecond, 5)
		if got[2] != "-ss" || got[3] != "1.50" {
			t.Errorf("args with offset = %v", got)
		}
	})

	t.Run("Missing Binary", func(t *testing.T) {
		if _, err := NewCommandMedia([]string{"definitely-not-a-player-binary"}); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
		if _, err := NewCommandMedia(nil); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Process Lifecycle", func(t *testing.T) {
		if _, err := exec.LookPath("sh"); err != nil {
			t.Skip("sh not available")
		}

		long, err := NewCommandMedia([]string{"sh", "-c", "sleep 30"})
		if err != nil {
			t.Fatalf("NewCommandMedia failed: %v", err)
		}
		pb, err := long.Start("https://x/1.mp3", 0, 70)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if err := pb.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
		select {
		case <-pb.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("process not stopped")
		}
		if err := pb.Stop(); err != nil {
			t.Errorf("second Stop failed: %v", err)
		}

		short := &CommandMedia{Command: []string{"sh", "-c", "exit 0"}}
		pb, err = short.Start("u", 0, 1)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		select {
		case <-pb.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("finished process did not close Done")
		}
	})
}

func TestFormatTime(t *testing.T) {
	if got := shared.FormatTime(PreviewLength.Seconds()); got != "0:30" {
		t.Errorf("FormatTime = %q, want 0:30", got)
	}
}
