// Copyright 2025 Emberlight Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package extract

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// MethodTranscript is recorded on Content.Method for YouTube items.
const MethodTranscript = "youtube-transcript"

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ResolveVideoID extracts a YouTube video ID from the URL shapes the
// platform serves: watch, youtu.be, shorts, live and embed.
func ResolveVideoID(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoVideoID, err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.Trim(u.Path, "/")

	var id string
	switch host {
	case "youtu.be":
		id = firstPathSegment(path)
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		switch {
		case path == "watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(path, "shorts/"),
			strings.HasPrefix(path, "live/"),
			strings.HasPrefix(path, "embed/"):
			parts := strings.SplitN(path, "/", 2)
			id = firstPathSegment(parts[1])
		}
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrNoVideoID, raw)
	}
	return id, nil
}

func firstPathSegment(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

// IsYouTubeURL reports whether raw points at a YouTube video or playlist.
func IsYouTubeURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtu.be", "youtube.com", "m.youtube.com", "music.youtube.com":
		return true
	}
	return false
}

// VideoMetadata is best-effort page metadata; failures to recover it are
// never fatal.
type VideoMetadata struct {
	Title   string
	Channel string
}

// TranscriptExtractor fetches YouTube transcripts by scraping the watch
// page for caption tracks and downloading the timedtext document.
//
// Unlike web and file extraction, a missing transcript is a hard
// failure: Extract returns an error and the pipeline marks the item
// ERROR rather than distilling nothing.
type TranscriptExtractor struct {
	client *http.Client
	logger *slog.Logger
}

// NewTranscriptExtractor creates a transcript extractor. A nil client
// gets a default with a conservative timeout.
func NewTranscriptExtractor(client *http.Client) *TranscriptExtractor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TranscriptExtractor{
		client: client,
		logger: slog.Default().With("component", "transcript-extractor"),
	}
}

// Extract resolves the video ID, locates a caption track and returns the
// transcript text. Metadata (title, channel) is attached when available.
func (t *TranscriptExtractor) Extract(ctx context.Context, videoURL string) (*Result, error) {
	videoID, err := ResolveVideoID(videoURL)
	if err != nil {
		return nil, err
	}

	page, err := t.fetchString(ctx, "https://www.youtube.com/watch?v="+videoID)
	if err != nil {
		return nil, fmt.Errorf("%w: watch page fetch: %v", ErrNoTranscript, err)
	}

	track, err := selectCaptionTrack(page)
	if err != nil {
		return nil, err
	}

	timedtext, err := t.fetchString(ctx, track.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: timedtext fetch: %v", ErrNoTranscript, err)
	}

	transcript, err := parseTimedText(timedtext)
	if err != nil {
		return nil, err
	}

	meta := scrapeVideoMetadata(page)
	text := transcript
	if meta.Title != "" {
		header := meta.Title
		if meta.Channel != "" {
			header += "\n" + meta.Channel
		}
		text = header + "\n\n" + transcript
	}

	return &Result{Text: text, Method: MethodTranscript, Title: meta.Title}, nil
}

func (t *TranscriptExtractor) fetchString(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// captionTrack mirrors the relevant fields of the player response.
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" for auto-generated tracks
}

// selectCaptionTrack finds the caption track list embedded in the watch
// page and picks the best track: manually authored English first, then
// auto-generated English, then whatever is first.
func selectCaptionTrack(page string) (*captionTrack, error) {
	const marker = `"captionTracks":`
	idx := strings.Index(page, marker)
	if idx < 0 {
		return nil, fmt.Errorf("%w: no caption tracks on watch page", ErrNoTranscript)
	}

	raw, err := balancedJSONArray(page[idx+len(marker):])
	if err != nil {
		return nil, fmt.Errorf("%w: caption track list unreadable: %v", ErrNoTranscript, err)
	}

	var tracks []captionTrack
	if err := json.Unmarshal([]byte(raw), &tracks); err != nil {
		return nil, fmt.Errorf("%w: caption track list unreadable: %v", ErrNoTranscript, err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: empty caption track list", ErrNoTranscript)
	}

	best := &tracks[0]
	for i := range tracks {
		track := &tracks[i]
		if !strings.HasPrefix(track.LanguageCode, "en") {
			continue
		}
		if track.Kind != "asr" {
			return track, nil
		}
		if !strings.HasPrefix(best.LanguageCode, "en") {
			best = track
		}
	}
	return best, nil
}

// balancedJSONArray returns the prefix of s that forms one complete JSON
// array, honoring strings and escapes.
func balancedJSONArray(s string) (string, error) {
	if len(s) == 0 || s[0] != '[' {
		return "", fmt.Errorf("expected '['")
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[:i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated array")
}

// timedText mirrors the YouTube timedtext XML document.
type timedText struct {
	XMLName xml.Name        `xml:"transcript"`
	Texts   []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Body string `xml:",chardata"`
}

// parseTimedText flattens a timedtext document into plain text.
func parseTimedText(doc string) (string, error) {
	var parsed timedText
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		return "", fmt.Errorf("%w: timedtext unreadable: %v", ErrNoTranscript, err)
	}

	var lines []string
	for _, line := range parsed.Texts {
		text := strings.TrimSpace(html.UnescapeString(line.Body))
		if text != "" {
			lines = append(lines, text)
		}
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("%w: transcript is empty", ErrNoTranscript)
	}
	return strings.Join(lines, " "), nil
}

var (
	ogTitlePattern = regexp.MustCompile(`<meta\s+property="og:title"\s+content="([^"]*)"`)
	channelPattern = regexp.MustCompile(`"ownerChannelName"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// scrapeVideoMetadata pulls title and channel from the watch page.
// Best-effort only; missing metadata never fails extraction.
func scrapeVideoMetadata(page string) VideoMetadata {
	var meta VideoMetadata
	if m := ogTitlePattern.FindStringSubmatch(page); m != nil {
		meta.Title = html.UnescapeString(m[1])
	}
	if m := channelPattern.FindStringSubmatch(page); m != nil {
		var channel string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &channel); err == nil {
			meta.Channel = channel
		}
	}
	return meta
}
