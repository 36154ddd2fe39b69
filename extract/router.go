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
	"fmt"
	"net/http"
	"time"

	"github.com/emberlight/distill/core"
)

// Result is the outcome of one extraction attempt.
type Result struct {
	// Text is the extracted plain text, or a diagnostic placeholder when
	// FallbackUsed is set.
	Text string
	// Method names the strategy that produced Text.
	Method string
	// FallbackUsed reports that no strategy produced usable content and
	// Text holds a diagnostic placeholder instead.
	FallbackUsed bool
	// Title is the page or document title when one was found.
	Title string
}

// RouterConfig bundles configuration for all extraction backends.
type RouterConfig struct {
	// HTTPTimeout bounds each web and transcript request. Zero means the
	// default of 30 seconds.
	HTTPTimeout time.Duration
	// File configures the external tools used for document extraction.
	File FileConfig
}

// Router dispatches an item to the extractor matching its kind.
type Router struct {
	web      *WebExtractor
	youtube  *TranscriptExtractor
	file     *FileExtractor
	playlist *PlaylistResolver
}

// NewRouter builds a router with a shared HTTP client for the network
// extractors.
func NewRouter(cfg RouterConfig) *Router {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	return &Router{
		web:      NewWebExtractor(client),
		youtube:  NewTranscriptExtractor(client),
		file:     NewFileExtractor(cfg.File),
		playlist: NewPlaylistResolver(client),
	}
}

// Playlist exposes the playlist resolver for queue-time expansion.
// Playlists are expanded into child items, never executed directly.
func (r *Router) Playlist() *PlaylistResolver {
	return r.playlist
}

// ResolvePlaylist returns the ordered video ids of a playlist URL.
func (r *Router) ResolvePlaylist(ctx context.Context, playlistURL string) ([]string, error) {
	return r.playlist.Resolve(ctx, playlistURL)
}

// Dispatch routes an item to the extractor for its kind. Web and file
// extraction degrade to diagnostic placeholders rather than failing;
// YouTube transcript errors and unknown kinds surface as errors.
func (r *Router) Dispatch(ctx context.Context, item *core.Item) (*Result, error) {
	switch item.Kind {
	case core.KindURL:
		return r.web.Extract(ctx, item.Source), nil
	case core.KindYouTube:
		return r.youtube.Extract(ctx, item.Source)
	case core.KindFile:
		return r.file.Extract(ctx, item.Source), nil
	case core.KindPlaylist:
		return nil, ErrPlaylistNotExecutable
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, item.Kind)
	}
}

// DetectKind classifies a URL for queueing. Playlist URLs take priority
// over plain video URLs so that a watch URL carrying a list parameter is
// expanded rather than executed as a single video.
func DetectKind(rawURL string) core.ItemKind {
	if IsPlaylistURL(rawURL) {
		return core.KindPlaylist
	}
	if IsYouTubeURL(rawURL) {
		return core.KindYouTube
	}
	return core.KindURL
}
