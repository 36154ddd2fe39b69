package extract

import "errors"

var (
	// ErrNoVideoID indicates no video ID could be resolved from the URL.
	ErrNoVideoID = errors.New("no video ID in URL")

	// ErrNoPlaylistID indicates no playlist ID could be resolved from the URL.
	ErrNoPlaylistID = errors.New("no playlist ID in URL")

	// ErrNoTranscript indicates the video has no usable caption tracks.
	// This is fatal for the pipeline: a summary without a transcript has
	// no value.
	ErrNoTranscript = errors.New("no transcript available")

	// ErrEmptyPlaylist indicates the playlist page yielded no video IDs.
	ErrEmptyPlaylist = errors.New("playlist contains no videos")

	// ErrPlaylistNotExecutable indicates an attempt to extract a playlist
	// tracking item; playlists only fan out child items.
	ErrPlaylistNotExecutable = errors.New("playlist items are not executable")

	// ErrUnknownKind indicates an item kind with no extraction chain.
	ErrUnknownKind = errors.New("unknown item kind")
)
