package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ResolvePlaylistID extracts the playlist ID from a YouTube URL.
func ResolvePlaylistID(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoPlaylistID, err)
	}
	id := u.Query().Get("list")
	if id == "" {
		return "", fmt.Errorf("%w: %q", ErrNoPlaylistID, raw)
	}
	return id, nil
}

// IsPlaylistURL reports whether raw is a YouTube playlist URL.
func IsPlaylistURL(raw string) bool {
	if !IsYouTubeURL(raw) {
		return false
	}
	_, err := ResolvePlaylistID(raw)
	return err == nil
}

var playlistVideoIDPattern = regexp.MustCompile(`"videoId"\s*:\s*"([A-Za-z0-9_-]{11})"`)

// PlaylistResolver scrapes the video ID list from a YouTube playlist page.
type PlaylistResolver struct {
	client *http.Client
	logger *slog.Logger
}

// NewPlaylistResolver creates a playlist resolver. A nil client gets a
// default with a conservative timeout.
func NewPlaylistResolver(client *http.Client) *PlaylistResolver {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &PlaylistResolver{
		client: client,
		logger: slog.Default().With("component", "playlist-resolver"),
	}
}

// Resolve returns the ordered, de-duplicated video IDs of a playlist.
func (p *PlaylistResolver) Resolve(ctx context.Context, playlistURL string) ([]string, error) {
	playlistID, err := ResolvePlaylistID(playlistURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://www.youtube.com/playlist?list="+url.QueryEscape(playlistID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("playlist page fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("playlist page fetch: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	ids := dedupeOrdered(playlistVideoIDPattern.FindAllStringSubmatch(string(body), -1))
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPlaylist, playlistID)
	}

	p.logger.Debug("resolved playlist", "playlist", playlistID, "videos", len(ids))
	return ids, nil
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func dedupeOrdered(matches [][]string) []string {
	seen := make(map[string]bool, len(matches))
	var ids []string
	for _, m := range matches {
		id := m[1]
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
