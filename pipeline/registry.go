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


package pipeline

import (
	"context"
	"sync"

	"github.com/emberlight/distill/core"
)

// Token is one item's cancellation handle. Its context is threaded
// through every network call the item's executor makes, so signaling the
// token aborts in-flight requests as well as flipping the advisory flag
// the executor checks at stage boundaries.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	signaled bool
}

// Context returns the context tied to this token.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Signaled reports whether a stop has been requested for the item.
func (t *Token) Signaled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.signaled
}

// Signal marks the token and cancels its context.
func (t *Token) Signal() {
	t.mu.Lock()
	t.signaled = true
	t.mu.Unlock()
	t.cancel()
}

// Registry owns the cancellation tokens for queued and running items.
// It is keyed by item id; the scheduler creates a token when an item is
// enqueued and resets it on retry.
type Registry struct {
	mu     sync.Mutex
	tokens map[core.ID]*Token
}

// NewRegistry creates an empty token registry.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[core.ID]*Token)}
}

// Ensure returns the item's token, creating a fresh one if absent.
func (r *Registry) Ensure(id core.ID) *Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.tokens[id]; ok {
		return token
	}
	token := newToken()
	r.tokens[id] = token
	return token
}

// Get returns the item's token, or nil if none is registered.
func (r *Registry) Get(id core.ID) *Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens[id]
}

// Signal signals the item's token if one is registered and reports
// whether it existed.
func (r *Registry) Signal(id core.ID) bool {
	r.mu.Lock()
	token, ok := r.tokens[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	token.Signal()
	return true
}

// Reset discards any existing token for the item and installs a fresh
// unsignaled one. Used on retry so a previously stopped item can run.
func (r *Registry) Reset(id core.ID) *Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.tokens[id]; ok {
		old.cancel()
	}
	token := newToken()
	r.tokens[id] = token
	return token
}

// Discard cancels and removes the item's token only if it is still the
// given one. A retry may have installed a replacement in the meantime;
// that replacement must survive the old executor's cleanup.
func (r *Registry) Discard(id core.ID, token *Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.tokens[id]; ok && current == token {
		current.cancel()
		delete(r.tokens, id)
	}
}

// Remove cancels and discards the item's token.
func (r *Registry) Remove(id core.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.tokens[id]; ok {
		token.cancel()
		delete(r.tokens, id)
	}
}

func newToken() *Token {
	ctx, cancel := context.WithCancel(context.Background())
	return &Token{ctx: ctx, cancel: cancel}
}
