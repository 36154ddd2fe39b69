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

import "errors"

// Domain validation errors
var (
	// ErrInvalidItem indicates an Item failed validation.
	ErrInvalidItem = errors.New("invalid item")

	// ErrEmptySource indicates the Source field is empty.
	ErrEmptySource = errors.New("source cannot be empty")

	// ErrInvalidURL indicates the Source field is not a usable http(s) URL.
	ErrInvalidURL = errors.New("source is not a valid URL")

	// ErrInvalidKind indicates an unknown ItemKind value.
	ErrInvalidKind = errors.New("invalid item kind")

	// ErrInvalidStatus indicates an unknown ItemStatus value.
	ErrInvalidStatus = errors.New("invalid item status")

	// ErrUnsupportedFileType indicates a file extension with no extraction strategy.
	ErrUnsupportedFileType = errors.New("unsupported file type")
)
