// Package player plays track previews for the terminal client.
//
// One [Player] exists per session. It owns a single media handle: starting a track stops
// the previous one. Playback is delegated to a [Media]; [CommandMedia] shells out to an
// external player such as ffplay, [NopMedia] keeps state without producing sound.
package player
