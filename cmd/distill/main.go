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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	distill "github.com/emberlight/distill"
	"github.com/emberlight/distill/ai"
	"github.com/emberlight/distill/core"
	"github.com/emberlight/distill/pipeline"
)

func main() {
	dbFlag := &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to the database directory",
		Required: true,
	}
	aiFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "ai-host",
			Usage: "OpenAI-compatible service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "ai-model",
			Usage: "Model name for distillation",
			Value: "llama3",
		},
		&cli.StringFlag{
			Name:  "ai-token",
			Usage: "API token (local services accept any value)",
		},
	}

	app := &cli.App{
		Name:  "distill",
		Usage: "Content distillation pipeline: extract text from web pages, videos and documents, then summarize with an LLM",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Queue a URL, YouTube video/playlist or file for distillation",
				ArgsUsage: "<source> [<source> ...]",
				Action:    addCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Force the item kind (url, youtube, file, playlist); detected from the source when omitted",
					},
					&cli.StringSliceFlag{
						Name:    "tag",
						Aliases: []string{"t"},
						Usage:   "Attach a tag to the queued item (repeatable)",
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List queued and processed items",
				Action: listCommand,
				Flags:  []cli.Flag{dbFlag},
			},
			{
				Name:      "status",
				Usage:     "Show one item with its distilled output",
				ArgsUsage: "<id>",
				Action:    statusCommand,
				Flags:     []cli.Flag{dbFlag},
			},
			{
				Name:      "stop",
				Usage:     "Stop a queued or running item",
				ArgsUsage: "<id>",
				Action:    stopCommand,
				Flags:     []cli.Flag{dbFlag},
			},
			{
				Name:      "retry",
				Usage:     "Requeue a finished item at the back of the queue",
				ArgsUsage: "<id>",
				Action:    retryCommand,
				Flags:     []cli.Flag{dbFlag},
			},
			{
				Name:      "delete",
				Usage:     "Remove an item and its content",
				ArgsUsage: "<id>",
				Action:    deleteCommand,
				Flags:     []cli.Flag{dbFlag},
			},
			{
				Name:      "mark-read",
				Usage:     "Mark a completed item as read",
				ArgsUsage: "<id>",
				Action:    markReadCommand,
				Flags:     []cli.Flag{dbFlag},
			},
			{
				Name:   "run",
				Usage:  "Process the queue until it drains or an interrupt arrives",
				Action: runCommand,
				Flags: append([]cli.Flag{
					dbFlag,
					&cli.IntFlag{
						Name:    "concurrency",
						Aliases: []string{"c"},
						Usage:   "Number of items processed in parallel",
						Value:   1,
					},
					&cli.DurationFlag{
						Name:  "distill-timeout",
						Usage: "Hard timeout per distillation call",
						Value: 2 * time.Minute,
					},
				}, aiFlags...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openStore(c *cli.Context) (*distill.Store, error) {
	var opts []ai.ConfigOption
	if host := c.String("ai-host"); host != "" {
		opts = append(opts, ai.WithHost(host))
	}
	if model := c.String("ai-model"); model != "" {
		opts = append(opts, ai.WithModel(model))
	}
	if token := c.String("ai-token"); token != "" {
		opts = append(opts, ai.WithToken(token))
	}
	aiConfig := ai.NewConfig(opts...)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return distill.Open(c.String("db"), distill.WithAIConfig(aiConfig))
}

func parseID(c *cli.Context) (core.ID, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one item id argument")
	}
	raw, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item id %q: %w", c.Args().First(), err)
	}
	return core.ID(raw), nil
}

func addCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one source argument is required")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	// Paused: add only queues. Starting executors here would leave an
	// item stuck mid-stage when this one-shot process exits; the run
	// command owns execution.
	scheduler, err := store.NewScheduler(pipeline.WithPaused())
	if err != nil {
		return err
	}
	defer scheduler.Release()

	ctx := context.Background()
	kind := core.ItemKind(c.String("kind"))
	for _, source := range c.Args().Slice() {
		item, err := scheduler.Add(ctx, kind, source, &pipeline.AddOptions{
			Tags: c.StringSlice("tag"),
		})
		if err != nil {
			return fmt.Errorf("queueing %q: %w", source, err)
		}
		fmt.Printf("%d\t%s\t%s\n", item.Id, item.Kind, item.Source)
	}
	return nil
}

func listCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	scheduler, err := store.NewScheduler(pipeline.WithPaused())
	if err != nil {
		return err
	}
	defer scheduler.Release()

	items, err := scheduler.List(context.Background())
	if err != nil {
		return err
	}
	for _, item := range items {
		line := fmt.Sprintf("%d\t%-10s\t%s\t%s", item.Id, item.Status, item.Kind, item.Source)
		if item.Error != "" {
			line += "\t" + item.Error
		}
		fmt.Println(line)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	item, err := store.ItemRepository().GetItem(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("id:        %d\n", item.Id)
	fmt.Printf("kind:      %s\n", item.Kind)
	fmt.Printf("source:    %s\n", item.Source)
	fmt.Printf("status:    %s\n", item.Status)
	fmt.Printf("created:   %s\n", item.CreatedAt.Format(time.RFC3339))
	if item.DurationMs > 0 {
		fmt.Printf("duration:  %dms\n", item.DurationMs)
	}
	if item.Error != "" {
		fmt.Printf("error:     %s\n", item.Error)
	}
	if len(item.Tags) > 0 {
		fmt.Printf("tags:      %s\n", strings.Join(item.Tags, ", "))
	}

	content, err := store.ContentRepository().GetContent(ctx, id)
	if err == nil {
		fmt.Printf("method:    %s (fallback: %t)\n", content.Method, content.FallbackUsed)
		if content.Output != "" {
			fmt.Printf("\n%s\n", content.Output)
		}
	}
	return nil
}

func stopCommand(c *cli.Context) error {
	return controlCommand(c, func(ctx context.Context, s *pipeline.Scheduler, id core.ID) error {
		if !s.Stop(ctx, id) {
			return fmt.Errorf("item %d not found or already finished", id)
		}
		fmt.Printf("stopped %d\n", id)
		return nil
	})
}

func retryCommand(c *cli.Context) error {
	return controlCommand(c, func(ctx context.Context, s *pipeline.Scheduler, id core.ID) error {
		item, err := s.Retry(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("requeued %d (queue index %d)\n", item.Id, item.QueueIndex)
		return nil
	})
}

func deleteCommand(c *cli.Context) error {
	return controlCommand(c, func(ctx context.Context, s *pipeline.Scheduler, id core.ID) error {
		if !s.Delete(ctx, id) {
			return fmt.Errorf("item %d not found", id)
		}
		fmt.Printf("deleted %d\n", id)
		return nil
	})
}

func markReadCommand(c *cli.Context) error {
	return controlCommand(c, func(ctx context.Context, s *pipeline.Scheduler, id core.ID) error {
		if _, err := s.MarkRead(ctx, id); err != nil {
			return err
		}
		fmt.Printf("marked %d read\n", id)
		return nil
	})
}

func controlCommand(c *cli.Context, fn func(context.Context, *pipeline.Scheduler, core.ID) error) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	scheduler, err := store.NewScheduler(pipeline.WithPaused())
	if err != nil {
		return err
	}
	defer scheduler.Release()

	return fn(context.Background(), scheduler, id)
}

func runCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	scheduler, err := store.NewScheduler(
		pipeline.WithConcurrency(c.Int("concurrency")),
		pipeline.WithDistillTimeout(c.Duration("distill-timeout")),
	)
	if err != nil {
		return err
	}
	defer scheduler.Release()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	ctx := context.Background()
	scheduler.Tick()

	poll := time.NewTicker(500 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-interrupt:
			fmt.Fprintln(os.Stderr, "interrupted, stopping running items")
			stopActive(ctx, scheduler)
			return nil
		case <-poll.C:
			scheduler.Tick()
			remaining, err := queuedOrRunning(ctx, scheduler)
			if err != nil {
				return err
			}
			if remaining == 0 && scheduler.ActiveCount() == 0 {
				fmt.Fprintln(os.Stderr, "queue drained")
				return nil
			}
		}
	}
}

func queuedOrRunning(ctx context.Context, scheduler *pipeline.Scheduler) (int, error) {
	items, err := scheduler.List(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, item := range items {
		if item.Status == core.StatusPending || item.Status.Active() {
			count++
		}
	}
	return count, nil
}

func stopActive(ctx context.Context, scheduler *pipeline.Scheduler) {
	items, err := scheduler.List(ctx)
	if err != nil {
		return
	}
	for _, item := range items {
		if item.Status.Active() || item.Status == core.StatusPending {
			scheduler.Stop(ctx, item.Id)
		}
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
