package models

// DefaultVolume is the player volume at startup.
const DefaultVolume = 70

// AudioPlayerState is a snapshot of the audio player. Progress and Volume are percentages.
type AudioPlayerState struct {
	CurrentTrack *MusicTrack `json:"currentTrack"`
	IsPlaying    bool        `json:"isPlaying"`
	IsLoading    bool        `json:"isLoading"`
	Progress     float64     `json:"progress"`
	Volume       int         `json:"volume"`
	Duration     float64     `json:"duration"`
	CurrentTime  float64     `json:"currentTime"`
}

// NewAudioPlayerState returns the idle state.
func NewAudioPlayerState() AudioPlayerState {
	return AudioPlayerState{Volume: DefaultVolume}
}

// Clone returns a copy that shares no pointers with s.
func (s AudioPlayerState) Clone() AudioPlayerState {
	s.CurrentTrack = s.CurrentTrack.Clone()
	return s
}
