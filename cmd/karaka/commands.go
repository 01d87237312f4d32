package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/app"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/config"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/queue"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/extract"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/graph"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/query"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"

	"github.com/urfave/cli/v3"
)

// open loads configuration and wires the services a command needs.
func open(ctx context.Context, cmd *cli.Command, offline bool) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.Bool("debug") {
		cfg.Debug = true
	}
	app.InitLogger(cfg, "karaka")
	return app.New(ctx, cfg, app.Options{Memory: cmd.Bool("memory"), Offline: offline})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ingestRefs loads each reference and runs it through the builder. The
// first reference may be overridden by id and name.
func ingestRefs(ctx context.Context, a *app.App, refs []string, id, name string) ([]graph.DocumentRecord, error) {
	records := make([]graph.DocumentRecord, 0, len(refs))
	for i, ref := range refs {
		doc, err := a.Loader.Load(ctx, ref)
		if err != nil {
			return records, fmt.Errorf("load %s: %w", ref, err)
		}
		in := graph.DocumentInput{Name: doc.Name, Text: doc.Text}
		if i == 0 {
			in.ID = id
			if name != "" {
				in.Name = name
			}
		}
		rec, err := a.Builder.ProcessDocument(ctx, in)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func loadFrames(path string) (*karaka.FrameStore, error) {
	frames := karaka.NewFrameStore()
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return frames, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := frames.Load(f); err != nil {
		return nil, err
	}
	return frames, nil
}

func saveFrames(path string, frames *karaka.FrameStore) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := frames.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "process documents into the graph",
		ArgsUsage: "<path|url|s3://bucket/key>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "document id for the first document"},
			&cli.StringFlag{Name: "name", Usage: "document name for the first document"},
			&cli.BoolFlag{Name: "publish", Usage: "enqueue the documents for the worker instead of processing here"},
			&cli.StringFlag{Name: "frames-file", Usage: "also extract event frames and merge them into this JSON file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			refs := cmd.Args().Slice()
			if len(refs) == 0 {
				return errors.New("ingest needs at least one document")
			}
			if cmd.Bool("publish") {
				return publishRefs(ctx, refs, cmd.String("id"), cmd.String("name"))
			}

			a, err := open(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := ingestRefs(ctx, a, refs, cmd.String("id"), cmd.String("name"))
			if err != nil {
				return err
			}
			summaries := make([]graph.DocumentSummary, len(records))
			for i, r := range records {
				summaries[i] = graph.Summarize(r)
			}

			if path := cmd.String("frames-file"); path != "" {
				if err := extractFrames(ctx, a, refs, path); err != nil {
					return err
				}
			}
			return printJSON(os.Stdout, summaries)
		},
	}
}

func extractFrames(ctx context.Context, a *app.App, refs []string, path string) error {
	frames, err := loadFrames(path)
	if err != nil {
		return err
	}
	fx := extract.NewFrameExtractor(a.AI)
	for _, ref := range refs {
		doc, err := a.Loader.Load(ctx, ref)
		if err != nil {
			return err
		}
		results, err := fx.ExtractText(ctx, doc.Text, frames)
		if err != nil {
			return err
		}
		logger.Info("[CLI] Frames extracted", "source", ref, "sentences", len(results), "total_frames", frames.Stats().TotalFrames)
	}
	return saveFrames(path, frames)
}

// publishRefs enqueues one ingest message per reference. Only Rabbit
// settings are needed, so the oracle and stores are not opened.
func publishRefs(ctx context.Context, refs []string, id, name string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	app.InitLogger(cfg, "karaka")

	conn, err := queue.Dial(cfg.Rabbit)
	if err != nil {
		return err
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	if err := queue.SetupQueues(ch, queue.IngestQueue); err != nil {
		return err
	}

	for i, ref := range refs {
		msg := queue.IngestMessage{Source: ref}
		if i == 0 {
			msg.DocumentID, msg.DocumentName = id, name
		}
		body, err := msg.Marshal()
		if err != nil {
			return err
		}
		if err := queue.Publish(ctx, ch, queue.IngestQueue, body); err != nil {
			return fmt.Errorf("publish %s: %w", ref, err)
		}
		logger.Info("[CLI] Enqueued", "source", ref, "queue", queue.IngestQueue)
	}
	return nil
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "answer a question from the graph",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "document", Usage: "restrict matches to one document id"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum matched actions"},
			&cli.FloatFlag{Name: "min-confidence", Value: -1, Usage: "override CONFIDENCE_THRESHOLD"},
			&cli.StringSliceFlag{Name: "ingest", Usage: "ingest these documents first (useful with --memory)"},
			&cli.StringFlag{Name: "frames-file", Usage: "answer from extracted event frames instead of the graph"},
			&cli.BoolFlag{Name: "trace", Usage: "include the query trace"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if question == "" {
				return query.ErrEmptyQuestion
			}

			a, err := open(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if path := cmd.String("frames-file"); path != "" {
				frames, err := loadFrames(path)
				if err != nil {
					return err
				}
				answer, err := query.NewFrameAnswerer(frames, a.AI).Answer(ctx, question)
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, answer)
			}

			if refs := cmd.StringSlice("ingest"); len(refs) > 0 {
				if _, err := ingestRefs(ctx, a, refs, "", ""); err != nil {
					return err
				}
			}

			opts := a.QueryOptions()
			opts.DocumentID = cmd.String("document")
			if limit := int(cmd.Int("limit")); limit > 0 {
				opts.Limit = limit
			}
			if mc := cmd.Float("min-confidence"); mc >= 0 {
				opts.MinConfidence = mc
			}

			engine := a.Engine
			var trace *query.QueryTrace
			if cmd.Bool("trace") {
				trace = query.NewQueryTrace()
				engine, err = query.NewEngine(query.NewEngineParams{
					Client:    a.AI,
					Store:     a.Store,
					Documents: a.Documents,
					Tracer:    trace,
				})
				if err != nil {
					return err
				}
			}

			answer, err := engine.Ask(ctx, question, opts)
			if err != nil {
				return err
			}
			if trace == nil {
				return printJSON(os.Stdout, answer)
			}
			return printJSON(os.Stdout, struct {
				query.Answer
				Trace query.QueryTraceSnapshot `json:"trace"`
			}{answer, trace.Snapshot()})
		},
	}
}

func lineCommand() *cli.Command {
	return &cli.Command{
		Name:      "line",
		Usage:     "print one line of a processed document",
		ArgsUsage: "<document-id> <line-number>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return errors.New("line needs a document id and a line number")
			}
			var n int
			if _, err := fmt.Sscanf(cmd.Args().Get(1), "%d", &n); err != nil {
				return fmt.Errorf("invalid line number %q", cmd.Args().Get(1))
			}

			a, err := open(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := a.Documents.GetDocument(ctx, cmd.Args().Get(0))
			if err != nil {
				return err
			}
			text, err := doc.Line(n)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}

func documentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "documents",
		Usage: "list processed documents",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := open(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := a.Documents.ListDocuments(ctx)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, docs)
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print entity, action and edge counts",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := open(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.Store.Stats(ctx)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, stats)
		},
	}
}

func clearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "delete every entity, action and edge",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Usage: "confirm the deletion"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if !cmd.Bool("yes") {
				return errors.New("refusing to clear the graph without --yes")
			}
			a, err := open(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.Clear(ctx); err != nil {
				return err
			}
			logger.Info("[CLI] Graph cleared")
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "remove documents from the graph and the document store",
		ArgsUsage: "<document-id>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "publish", Usage: "enqueue the deletes for the worker instead of deleting here"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ids := cmd.Args().Slice()
			if len(ids) == 0 {
				return errors.New("delete needs at least one document id")
			}
			if cmd.Bool("publish") {
				return publishDeletes(ctx, ids)
			}

			a, err := open(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			out := make(map[string]store.Stats, len(ids))
			for _, id := range ids {
				removed, err := graph.DeleteDocument(ctx, a.Store, a.Documents, id)
				if err != nil {
					return err
				}
				out[id] = removed
			}
			return printJSON(os.Stdout, out)
		},
	}
}

func publishDeletes(ctx context.Context, ids []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	app.InitLogger(cfg, "karaka")

	conn, err := queue.Dial(cfg.Rabbit)
	if err != nil {
		return err
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	if err := queue.SetupQueues(ch, queue.DeleteQueue); err != nil {
		return err
	}

	for _, id := range ids {
		body, err := queue.DeleteMessage{DocumentID: id}.Marshal()
		if err != nil {
			return err
		}
		if err := queue.Publish(ctx, ch, queue.DeleteQueue, body); err != nil {
			return fmt.Errorf("publish delete %s: %w", id, err)
		}
		logger.Info("[CLI] Enqueued", "document_id", id, "queue", queue.DeleteQueue)
	}
	return nil
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "check the oracle and the graph store",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := open(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			status := map[string]string{"store": "ok", "oracle": "ok"}
			var failed bool
			if _, err := a.Store.Stats(ctx); err != nil {
				status["store"] = err.Error()
				failed = true
			}
			client, err := app.NewAIClient(a.Config.AI)
			if err == nil {
				err = client.Health(ctx)
			}
			if err != nil {
				status["oracle"] = err.Error()
				failed = true
			}
			if err := printJSON(os.Stdout, status); err != nil {
				return err
			}
			if failed {
				return errors.New("unhealthy")
			}
			return nil
		},
	}
}
