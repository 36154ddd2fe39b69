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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emberlight/distill/ai"
	"github.com/emberlight/distill/core"
	"github.com/emberlight/distill/storage"
)

// executor drives one item through the pipeline state machine:
// EXTRACTING, then DISTILLING, then a terminal status. It checks the
// cancellation token at stage boundaries and passes the token's context
// into every network call.
type executor struct {
	items          storage.ItemRepository
	contents       storage.ContentRepository
	distiller      ai.Distiller
	router         Dispatcher
	distillTimeout time.Duration
	logger         *slog.Logger
}

// run executes one item to a terminal status. All errors end in the
// item's status and error fields; nothing propagates to the scheduler.
func (e *executor) run(id core.ID, token *Token) {
	ctx := token.Context()
	store := context.Background() // status writes must survive cancellation

	// Already stopped before we started: no network calls at all.
	if token.Signaled() {
		e.finalize(store, id, core.StatusStopped, "", time.Time{})
		return
	}

	startedAt := time.Now().UTC()
	item, err := e.items.UpdateItem(store, id, func(item *core.Item) error {
		if item.Status != core.StatusPending {
			return fmt.Errorf("item is %s, expected %s", item.Status, core.StatusPending)
		}
		item.Status = core.StatusExtracting
		item.StartedAt = startedAt
		return nil
	})
	if err != nil {
		// Stopped or deleted between claim and start; nothing to do.
		e.logger.Debug("execution abandoned before extraction", "err", err)
		return
	}

	result, err := e.router.Dispatch(ctx, item)
	if token.Signaled() {
		// Partial extraction is discarded.
		e.finalize(store, id, core.StatusStopped, "", startedAt)
		return
	}
	if err != nil {
		e.logger.Warn("extraction failed", "kind", item.Kind, "err", err)
		e.finalize(store, id, core.StatusError, err.Error(), startedAt)
		return
	}

	_, err = e.items.UpdateItem(store, id, func(item *core.Item) error {
		if item.Status != core.StatusExtracting {
			return fmt.Errorf("item is %s, expected %s", item.Status, core.StatusExtracting)
		}
		item.Status = core.StatusDistilling
		return nil
	})
	if err != nil {
		e.logger.Debug("execution abandoned before distillation", "err", err)
		return
	}

	output, err := e.distill(ctx, token, result.Text)
	if token.Signaled() {
		e.finalize(store, id, core.StatusStopped, "", startedAt)
		return
	}
	if err != nil {
		e.logger.Warn("distillation failed", "err", err)
		e.finalize(store, id, core.StatusError, err.Error(), startedAt)
		return
	}

	content := &core.Content{
		ItemId:       id,
		Text:         result.Text,
		Method:       result.Method,
		FallbackUsed: result.FallbackUsed,
		Output:       output,
	}
	if err := e.contents.PutContent(store, content); err != nil {
		e.logger.Error("content persist failed", "err", err)
		e.finalize(store, id, core.StatusError, fmt.Sprintf("persisting content: %v", err), startedAt)
		return
	}

	e.finalize(store, id, core.StatusCompleted, "", startedAt)
	e.logger.Info("item completed", "method", result.Method, "fallback", result.FallbackUsed,
		"durationMs", time.Since(startedAt).Milliseconds())
}

// distill wraps the distiller call in the executor's own timeout, raced
// against the cancellation token. A timeout is reported like a stop for
// status purposes but keeps its distinguishing message; an externally
// signaled token takes priority over the timer.
func (e *executor) distill(ctx context.Context, token *Token, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.distillTimeout)
	defer cancel()

	output, err := e.distiller.Distill(callCtx, text)
	if err == nil {
		return output, nil
	}
	if token.Signaled() {
		// Stop semantics win; the caller checks the token first.
		return "", err
	}
	if callCtx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("timed out after %s", e.distillTimeout)
	}
	return "", err
}

// finalize writes the terminal status with duration bookkeeping. The
// write is a no-op if a stop request already made the item terminal, so
// an out-of-band STOPPED is never resurrected.
func (e *executor) finalize(ctx context.Context, id core.ID, status core.ItemStatus, message string, startedAt time.Time) {
	_, err := e.items.UpdateItem(ctx, id, func(item *core.Item) error {
		if item.Status.Terminal() {
			return nil
		}
		item.Status = status
		item.Error = message
		if !startedAt.IsZero() {
			item.DurationMs = time.Since(startedAt).Milliseconds()
		}
		return nil
	})
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		e.logger.Error("terminal status write failed", "status", status, "err", err)
	}
}
