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


package core

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// SupportedFileExtensions lists the file extensions the extraction router
// has a strategy chain for. Lowercase, including the leading dot.
var SupportedFileExtensions = []string{
	".pdf", ".docx", ".txt", ".md", ".html", ".htm",
	".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".webp",
}

// ValidateItem validates an Item according to domain rules.
//
// Validation rules:
//   - Kind must be a known ItemKind
//   - Source must not be empty
//   - URL-backed kinds must carry a parseable http(s) URL
//   - KindFile must carry a supported file extension
//
// NOT validated (populated by the scheduler and executor):
//   - QueueIndex, StartedAt, DurationMs, Error
func ValidateItem(item *Item) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidItem)
	}

	switch item.Kind {
	case KindURL, KindYouTube, KindPlaylist:
		if err := ValidateURL(item.Source); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidItem, err)
		}
	case KindFile:
		if item.Source == "" {
			return fmt.Errorf("%w: %w", ErrInvalidItem, ErrEmptySource)
		}
		if !IsSupportedFileExtension(filepath.Ext(item.Source)) {
			return fmt.Errorf("%w: %w: %q", ErrInvalidItem, ErrUnsupportedFileType, filepath.Ext(item.Source))
		}
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidItem, ErrInvalidKind, item.Kind)
	}

	return nil
}

// ValidateURL checks that raw is a non-empty absolute http(s) URL.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmptySource
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// ValidateStatus validates that a status has a known value.
func ValidateStatus(status ItemStatus) error {
	switch status {
	case StatusPending, StatusExtracting, StatusDistilling,
		StatusCompleted, StatusRead, StatusError, StatusStopped:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}

// IsSupportedFileExtension reports whether ext (with or without the
// leading dot, any case) has an extraction strategy.
func IsSupportedFileExtension(ext string) bool {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, supported := range SupportedFileExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
