package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/poiesic/recall/chunking"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/pipeline"
	"github.com/poiesic/recall/search"
	"github.com/urfave/cli/v2"
)

// demoMessages drive chat --demo.
var demoMessages = []string{
	"How does FT.SEARCH differ from FT.AGGREGATE?",
	"What's the simplest way to run a vector query in Redis?",
	"Can you help me with a technical question?",
	"I love this demo, it's amazing!",
}

// newCodec loads the tokenizer used for chunking. Tests replace it.
var newCodec = func(encoding string) (chunking.TokenCodec, error) {
	return chunking.NewTiktokenCodec(encoding)
}

func modeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "mode",
		Aliases: []string{"m"},
		Usage:   "Pipeline mode (retrieval, sentiment)",
	}
}

func sessionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "session",
		Aliases: []string{"s"},
		Usage:   "Session id; empty starts a new session",
	}
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "ingest",
			Usage:     "Chunk, embed and index every Markdown file in a directory",
			ArgsUsage: "<dir>",
			Action:    ingestCommand,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "workers",
					Usage: "Number of documents processed concurrently",
				},
				&cli.IntFlag{
					Name:  "max-tokens",
					Usage: "Chunk window size in tokens",
				},
				&cli.IntFlag{
					Name:  "overlap",
					Usage: "Tokens shared by consecutive chunks",
				},
				&cli.IntFlag{
					Name:  "max-retries",
					Usage: "Maximum embedding attempts per chunk",
				},
				&cli.DurationFlag{
					Name:  "retry-delay",
					Usage: "Base delay for exponential backoff",
					Value: 500 * time.Millisecond,
				},
			},
		},
		{
			Name:   "chat",
			Usage:  "Interactive chat; type quit to exit",
			Action: chatCommand,
			Flags: []cli.Flag{
				modeFlag(),
				sessionFlag(),
				&cli.BoolFlag{
					Name:  "demo",
					Usage: "Send a fixed list of messages instead of reading stdin",
				},
			},
		},
		{
			Name:      "ask",
			Usage:     "Answer a single message",
			ArgsUsage: "<message>",
			Action:    askCommand,
			Flags:     []cli.Flag{modeFlag(), sessionFlag()},
		},
		{
			Name:      "search",
			Usage:     "Show the indexed passages nearest to a query",
			ArgsUsage: "<query>",
			Action:    searchCommand,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"k"},
					Usage:   "Number of passages",
					Value:   3,
				},
				&cli.Float64Flag{
					Name:  "max-distance",
					Usage: "Drop passages farther than this cosine distance (0 keeps all)",
				},
			},
		},
		{
			Name:   "history",
			Usage:  "Print the stored turns of a session, most recent first",
			Action: historyCommand,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "session",
					Aliases:  []string{"s"},
					Usage:    "Session id",
					Required: true,
				},
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"n"},
					Usage:   "Maximum number of turns",
					Value:   pipeline.DefaultHistoryLimit,
				},
			},
		},
	}
}

func ingestCommand(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" {
		return errors.New("ingest requires a directory argument")
	}

	cfg, err := loadSettings(c)
	if err != nil {
		return err
	}
	if c.IsSet("workers") {
		cfg.Ingestion.Workers = c.Int("workers")
	}
	if c.IsSet("max-tokens") {
		cfg.Chunking.MaxTokens = c.Int("max-tokens")
	}
	if c.IsSet("overlap") {
		cfg.Chunking.Overlap = c.Int("overlap")
	}
	if c.IsSet("max-retries") {
		cfg.Ingestion.MaxAttempts = c.Int("max-retries")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	codec, err := newCodec(cfg.Chunking.Encoding)
	if err != nil {
		return fmt.Errorf("failed to load tokenizer: %w", err)
	}
	chunker, err := chunking.New(codec,
		chunking.WithMaxTokens(cfg.Chunking.MaxTokens),
		chunking.WithOverlap(cfg.Chunking.Overlap),
	)
	if err != nil {
		return err
	}

	engine, err := openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	ing, err := engine.NewIngester(chunker,
		ingestion.WithPoolSize(cfg.Ingestion.Workers),
		ingestion.WithRetry(cfg.Ingestion.MaxAttempts, c.Duration("retry-delay")),
		ingestion.WithProgress(c.App.ErrWriter),
	)
	if err != nil {
		return err
	}
	defer ing.Release()

	fmt.Fprintf(c.App.ErrWriter, "Directory: %s\n", dir)
	fmt.Fprintf(c.App.ErrWriter, "Index: %s (dim %d)\n", cfg.Store.Index, cfg.AI.EmbeddingDimension)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	summary, err := ing.IngestDir(c.Context, dir)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, summary)
	for path, ferr := range summary.Failures {
		fmt.Fprintf(c.App.ErrWriter, "  %s: %v\n", path, ferr)
	}
	return nil
}

func newPipeline(c *cli.Context) (*pipeline.Pipeline, func() error, error) {
	cfg, err := loadSettings(c)
	if err != nil {
		return nil, nil, err
	}
	if c.IsSet("mode") {
		cfg.Pipeline.Mode = c.String("mode")
	}
	mode, err := pipeline.ParseMode(cfg.Pipeline.Mode)
	if err != nil {
		return nil, nil, err
	}

	engine, err := openEngine(c, cfg)
	if err != nil {
		return nil, nil, err
	}

	p, err := engine.NewPipeline(mode,
		pipeline.WithTopK(cfg.Pipeline.TopK),
		pipeline.WithHistoryLimit(cfg.Pipeline.HistoryLimit),
		pipeline.WithCallTimeout(cfg.Pipeline.CallTimeout),
	)
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	return p, engine.Close, nil
}

func chatCommand(c *cli.Context) error {
	p, closeEngine, err := newPipeline(c)
	if err != nil {
		return err
	}
	defer closeEngine()

	if c.Bool("demo") {
		return runDemo(c.Context, p, c.App.Writer, c.String("session"))
	}
	fmt.Fprintf(c.App.Writer, "Chatting in %s mode. Type 'quit' to exit.\n", p.Mode())
	return runChat(c.Context, p, c.App.Reader, c.App.Writer, c.String("session"))
}

func askCommand(c *cli.Context) error {
	message := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if message == "" {
		return errors.New("ask requires a message argument")
	}

	p, closeEngine, err := newPipeline(c)
	if err != nil {
		return err
	}
	defer closeEngine()

	result, err := p.ProcessMessage(c.Context, message, c.String("session"))
	if err != nil {
		return err
	}
	printResult(c.App.Writer, p.Mode(), result)
	fmt.Fprintf(c.App.Writer, "Session: %s\n", result.SessionID)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("search requires a query argument")
	}

	cfg, err := loadSettings(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	searcher, err := engine.NewSearcher(search.WithMaxDistance(float32(c.Float64("max-distance"))))
	if err != nil {
		return err
	}
	_, err = searcher.FindSimilarWithMonitor(c.Context, query, c.Int("limit"), newPrintMonitor(c.App.Writer))
	return err
}

func historyCommand(c *cli.Context) error {
	cfg, err := loadSettings(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	turns, err := engine.ConversationStore().GetHistory(c.Context, c.String("session"), c.Int("limit"))
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		fmt.Fprintln(c.App.Writer, "No history.")
		return nil
	}
	for _, turn := range turns {
		fmt.Fprintf(c.App.Writer, "[%s]", turn.CreatedAt.Local().Format(time.DateTime))
		if turn.Sentiment != "" {
			fmt.Fprintf(c.App.Writer, " (%s)", turn.Sentiment)
		}
		fmt.Fprintf(c.App.Writer, "\nUser: %s\nAssistant: %s\n\n", turn.UserMessage, turn.AssistantResponse)
	}
	return nil
}

func printResult(w io.Writer, mode pipeline.Mode, result *pipeline.Result) {
	switch mode {
	case pipeline.ModeRetrieval:
		fmt.Fprintf(w, "Context: %s\n", result.ContextText)
	case pipeline.ModeSentiment:
		fmt.Fprintf(w, "Sentiment: %s\n", result.Sentiment)
	}
	fmt.Fprintf(w, "Assistant: %s\n", result.Response)
}

// runChat reads one message per line until EOF or quit. A failed message is
// reported and the loop continues.
func runChat(ctx context.Context, p *pipeline.Pipeline, in io.Reader, out io.Writer, sessionID string) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "quit", "exit", "q":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		result, err := p.ProcessMessage(ctx, input, sessionID)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		sessionID = result.SessionID
		printResult(out, p.Mode(), result)
	}
}

func runDemo(ctx context.Context, p *pipeline.Pipeline, out io.Writer, sessionID string) error {
	for i, message := range demoMessages {
		fmt.Fprintf(out, "\n--- Demo message %d ---\nUser: %s\n", i+1, message)

		result, err := p.ProcessMessage(ctx, message, sessionID)
		if err != nil {
			return fmt.Errorf("demo message %d: %w", i+1, err)
		}
		sessionID = result.SessionID
		printResult(out, p.Mode(), result)
	}
	fmt.Fprintf(out, "\nDemo complete. Session: %s\n", sessionID)
	return nil
}
