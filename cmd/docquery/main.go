// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
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
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	docquery "github.com/poiesic/docquery"
	"github.com/poiesic/docquery/ai"
	"github.com/poiesic/docquery/answer"
	"github.com/poiesic/docquery/core"
	"github.com/poiesic/docquery/extract"
	"github.com/poiesic/docquery/jobs"
	"github.com/poiesic/docquery/pipeline"
	"github.com/poiesic/docquery/search"
	"github.com/urfave/cli/v2"
)

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "blobs",
			Aliases:  []string{"b"},
			Usage:    "Path to the document blob root directory",
			Required: true,
		},
	}
}

func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "classifier-model",
			Usage: "Model used for chunk tag classification",
			Value: "qwen2.5:3b",
		},
		&cli.StringSliceFlag{
			Name:  "generation-model",
			Usage: "Generation model in priority order (repeatable)",
		},
	}
}

func main() {
	app := &cli.App{
		Name:  "docquery",
		Usage: "Document question answering over local files",
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
				Name:      "ingest",
				Usage:     "Register documents and process them into searchable chunks",
				ArgsUsage: "LOCATOR [LOCATOR...]",
				Action:    ingestCommand,
				Flags: append(append(storeFlags(), aiFlags()...),
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum chunk length in runes",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Approximate overlap between consecutive chunks",
						Value: 100,
					},
				),
			},
			{
				Name:      "regenerate",
				Usage:     "Rebuild the chunks of already-ingested documents",
				ArgsUsage: "DOCUMENT_ID [DOCUMENT_ID...]",
				Action:    regenerateCommand,
				Flags: append(append(storeFlags(), aiFlags()...),
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum chunk length in runes",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Approximate overlap between consecutive chunks",
						Value: 100,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Retrieve the most relevant chunks for a query",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(append(storeFlags(), aiFlags()...),
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.Float64Flag{
						Name:  "min-relevance",
						Usage: "Drop results below this relevance score",
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Search by tag instead of semantic similarity (repeatable; all must match)",
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the ingested documents",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: append(append(storeFlags(), aiFlags()...),
					&cli.StringFlag{
						Name:  "model",
						Usage: "Preferred generation model",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of passages to retrieve",
						Value: 5,
					},
					&cli.IntFlag{
						Name:  "max-tokens",
						Usage: "Cap on the generated answer length (0 = model default)",
					},
					&cli.Float64Flag{
						Name:  "temperature",
						Usage: "Generation sampling temperature",
						Value: 0.2,
					},
				),
			},
			{
				Name:      "status",
				Usage:     "Show the state of a job",
				ArgsUsage: "JOB_ID",
				Action:    statusCommand,
				Flags:     append(storeFlags(), aiFlags()...),
			},
			{
				Name:      "cleanup",
				Usage:     "Delete chunks of documents that no longer exist",
				ArgsUsage: "DOCUMENT_ID [DOCUMENT_ID...]",
				Action:    cleanupCommand,
				Flags:     append(storeFlags(), aiFlags()...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDatabase(c *cli.Context) (*docquery.Database, error) {
	opts := []ai.ConfigOption{
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithClassifierModel(c.String("classifier-model")),
	}
	if models := c.StringSlice("generation-model"); len(models) > 0 {
		opts = append(opts, ai.WithGenerationModels(models...))
	}

	db, err := docquery.NewDatabase(c.String("db"), c.String("blobs"),
		docquery.WithAIConfig(ai.NewConfig(opts...)))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one document locator is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	blobs := db.BlobStore()

	docs := make([]*core.Document, 0, c.NArg())
	for _, locator := range c.Args().Slice() {
		exists, err := blobs.Exists(ctx, locator)
		if err != nil {
			return fmt.Errorf("checking %s: %w", locator, err)
		}
		if !exists {
			return fmt.Errorf("no readable file at %s", locator)
		}
		docs = append(docs, &core.Document{
			Locator: locator,
			Format:  extract.DetectFormat(locator),
		})
	}

	added, err := db.DocumentRepository().AddDocuments(ctx, docs...)
	if err != nil {
		return fmt.Errorf("failed to register documents: %w", err)
	}

	ids := make([]core.ID, len(added))
	for i, doc := range added {
		ids[i] = doc.Id
		fmt.Fprintf(os.Stderr, "Registered %s as document %d\n", doc.Locator, doc.Id)
	}

	return submitAndWait(c, db, &jobs.Spec{
		DocumentIds: ids,
		Params:      chunkParams(c),
	})
}

func regenerateCommand(c *cli.Context) error {
	ids, err := documentIDArgs(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	return submitAndWait(c, db, &jobs.Spec{
		Type:        core.JobTypeRegenerate,
		DocumentIds: ids,
		Params:      chunkParams(c),
	})
}

func cleanupCommand(c *cli.Context) error {
	ids, err := documentIDArgs(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	return submitAndWait(c, db, &jobs.Spec{
		Type:        core.JobTypeCleanup,
		DocumentIds: ids,
	})
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	tags := c.StringSlice("tag")
	if query == "" && len(tags) == 0 {
		return fmt.Errorf("a query or at least one --tag is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}

	ctx := context.Background()
	var hits []*core.RetrievalResult
	if len(tags) > 0 {
		hits, err = searcher.SearchByTags(ctx, tags, c.Int("top-k"), nil)
		if err != nil {
			return fmt.Errorf("tag search failed: %w", err)
		}
	} else {
		result, err := searcher.Search(ctx, query, search.Options{
			TopK:         c.Int("top-k"),
			MinRelevance: float32(c.Float64("min-relevance")),
			Rerank:       true,
		})
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if result.Degraded {
			fmt.Fprintln(os.Stderr, "Warning: embedding service unavailable, no results")
		}
		hits = result.Hits
	}

	if len(hits) == 0 {
		fmt.Println("No matching chunks.")
		return nil
	}
	for i, hit := range hits {
		fmt.Printf("%2d. [%.2f] %s (chunk %d)\n", i+1, hit.Relevance, hit.Source, hit.ChunkId)
		fmt.Printf("    %s\n", hit.Content)
	}
	return nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	synthesizer, err := db.NewSynthesizer()
	if err != nil {
		return err
	}

	record, err := synthesizer.Answer(context.Background(), question, &answer.Options{
		ModelPreference: c.String("model"),
		TopK:            c.Int("top-k"),
		MaxTokens:       c.Int("max-tokens"),
		Temperature:     c.Float64("temperature"),
	})
	if err != nil {
		return fmt.Errorf("answering failed: %w", err)
	}

	fmt.Println(record.Answer)
	fmt.Fprintf(os.Stderr, "\nModel: %s  Confidence: %.2f\n", record.ModelUsed, record.Confidence)
	if len(record.SourceChunkIds) > 0 {
		fmt.Fprintf(os.Stderr, "Sources: %v\n", record.SourceChunkIds)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one job id is required")
	}
	jobId, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid job id %q", c.Args().First())
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	job, err := db.JobRepository().GetJob(context.Background(), core.ID(jobId))
	if err != nil {
		return fmt.Errorf("job %d: %w", jobId, err)
	}

	printJob(job)
	return nil
}

// chunkParams reads chunking flags into pipeline params.
func chunkParams(c *cli.Context) *pipeline.Params {
	return &pipeline.Params{
		ChunkSize:    c.Int("chunk-size"),
		ChunkOverlap: c.Int("chunk-overlap"),
	}
}

func documentIDArgs(c *cli.Context) ([]core.ID, error) {
	if c.NArg() == 0 {
		return nil, fmt.Errorf("at least one document id is required")
	}
	ids := make([]core.ID, 0, c.NArg())
	for _, arg := range c.Args().Slice() {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid document id %q", arg)
		}
		ids = append(ids, core.ID(id))
	}
	return ids, nil
}

// submitAndWait queues a job and polls it to completion, reporting progress
// on stderr. Each invocation gets a correlation id so log lines from
// concurrent runs can be told apart.
func submitAndWait(c *cli.Context, db *docquery.Database, spec *jobs.Spec) error {
	runId := uuid.NewString()
	logger := slog.Default().With("run", runId)

	orchestrator, err := db.NewOrchestrator()
	if err != nil {
		return err
	}
	defer orchestrator.Release()

	ctx := context.Background()
	job, err := orchestrator.Submit(ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Run %s: job %d queued over %d document(s)\n", runId, job.Id, len(spec.DocumentIds))

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		job, err = orchestrator.Status(ctx, job.Id)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "\rProgress: %d/%d", job.Progress.Current, job.Progress.Total)
		if job.Status.Terminal() {
			fmt.Fprintln(os.Stderr)
			break
		}
	}

	if job.Status == core.JobFailure {
		logger.Error("job failed", "job", job.Id, "err", job.Error)
		return fmt.Errorf("job %d failed: %s", job.Id, job.Error)
	}

	printJob(job)
	return nil
}

func printJob(job *core.Job) {
	fmt.Printf("Job %d: %s\n", job.Id, jobStatusName(job.Status))
	fmt.Printf("  Documents: %v\n", job.DocumentIds)
	fmt.Printf("  Progress:  %d/%d\n", job.Progress.Current, job.Progress.Total)
	if job.Error != "" {
		fmt.Printf("  Error:     %s\n", job.Error)
	}
	if job.Status == core.JobSuccess {
		fmt.Printf("  Chunks:    %d (%d embedded)\n", job.Result.ChunkCount, job.Result.EmbeddedCount)
		if len(job.Result.FailedIds) > 0 {
			fmt.Printf("  Failed:    %v\n", job.Result.FailedIds)
		}
		fmt.Printf("  Duration:  %s\n", time.Duration(job.Result.DurationMicros)*time.Microsecond)
	}
}

func jobStatusName(status core.JobStatus) string {
	switch status {
	case core.JobPending:
		return "pending"
	case core.JobProgress:
		return "in progress"
	case core.JobSuccess:
		return "success"
	case core.JobFailure:
		return "failure"
	default:
		return fmt.Sprintf("unknown(%d)", status)
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
