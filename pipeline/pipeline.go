package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/sentiment"
	"github.com/poiesic/recall/storage"
)

// Mode selects the stage sequence of a Pipeline.
type Mode int

const (
	// ModeRetrieval grounds replies in retrieved passages.
	ModeRetrieval Mode = iota
	// ModeSentiment adapts the persona to the user's mood.
	ModeSentiment
)

func (m Mode) String() string {
	switch m {
	case ModeRetrieval:
		return "retrieval"
	case ModeSentiment:
		return "sentiment"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps "retrieval" or "sentiment" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "retrieval", "rag":
		return ModeRetrieval, nil
	case "sentiment":
		return ModeSentiment, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Stage names.
const (
	StageClassifySentiment = "CLASSIFY_SENTIMENT"
	StageFetchHistory      = "FETCH_HISTORY"
	StageRetrieveContext   = "RETRIEVE_CONTEXT"
	StageGenerate          = "GENERATE"
	StagePersist           = "PERSIST"
)

// Defaults.
const (
	DefaultHistoryLimit = 5
	DefaultPromptTurns  = 3
	DefaultTopK         = 1
	MaxTopK             = 3
	DefaultCallTimeout  = 30 * time.Second
)

// Retriever finds the passages nearest to a query. *search.Searcher
// implements it.
type Retriever interface {
	FindSimilar(ctx context.Context, query string, k int) ([]core.ScoredChunk, error)
}

// Stage is one step of a run. A returned error aborts the run.
type Stage struct {
	Name string
	Run  func(ctx context.Context, state State) (State, error)
}

// Result is what a caller sees of a finished run.
type Result struct {
	Response    string
	SessionID   string
	Sentiment   core.Sentiment     // set in ModeSentiment
	Context     []core.ScoredChunk // set in ModeRetrieval
	ContextText string             // Context texts joined by newlines
}

// Pipeline runs the stages of one Mode. It holds no per-request state and
// is safe for concurrent use.
type Pipeline struct {
	mode          Mode
	conversations storage.ConversationStore
	generator     ai.Generator
	retriever     Retriever
	classifier    sentiment.Classifier
	persona       string
	historyLimit  int
	promptTurns   int
	topK          int
	callTimeout   time.Duration
	monitor       Monitor
	logger        *slog.Logger
	now           func() time.Time
	stages        []Stage
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithRetriever sets the passage retriever. Required for ModeRetrieval.
func WithRetriever(r Retriever) Option {
	return func(p *Pipeline) error {
		p.retriever = r
		return nil
	}
}

// WithClassifier sets the sentiment classifier.
// Default is sentiment.DefaultLexicon().
func WithClassifier(c sentiment.Classifier) Option {
	return func(p *Pipeline) error {
		if c != nil {
			p.classifier = c
		}
		return nil
	}
}

// WithPersona overrides the persona of ModeRetrieval.
func WithPersona(persona string) Option {
	return func(p *Pipeline) error {
		if persona != "" {
			p.persona = persona
		}
		return nil
	}
}

// WithTopK sets how many passages are retrieved, between 1 and MaxTopK.
func WithTopK(k int) Option {
	return func(p *Pipeline) error {
		if k < 1 || k > MaxTopK {
			return fmt.Errorf("%w: top k must be in [1, %d], got %d", core.ErrConfiguration, MaxTopK, k)
		}
		p.topK = k
		return nil
	}
}

// WithHistoryLimit sets how many turns FETCH_HISTORY reads.
func WithHistoryLimit(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("%w: history limit must be positive, got %d", core.ErrConfiguration, n)
		}
		p.historyLimit = n
		return nil
	}
}

// WithCallTimeout bounds every external call of a run.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d <= 0 {
			return fmt.Errorf("%w: call timeout must be positive, got %s", core.ErrConfiguration, d)
		}
		p.callTimeout = d
		return nil
	}
}

// WithMonitor sets the stage monitor.
func WithMonitor(m Monitor) Option {
	return func(p *Pipeline) error {
		if m != nil {
			p.monitor = m
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// New creates a pipeline for mode.
func New(mode Mode, conversations storage.ConversationStore, generator ai.Generator, opts ...Option) (*Pipeline, error) {
	if conversations == nil {
		return nil, ErrConversationStoreRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	p := &Pipeline{
		mode:          mode,
		conversations: conversations,
		generator:     generator,
		classifier:    sentiment.DefaultLexicon(),
		persona:       PersonaRetrieval,
		historyLimit:  DefaultHistoryLimit,
		promptTurns:   DefaultPromptTurns,
		topK:          DefaultTopK,
		callTimeout:   DefaultCallTimeout,
		monitor:       noopMonitor{},
		logger:        slog.Default(),
		now:           func() time.Time { return time.Now().UTC() },
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "pipeline", "mode", mode.String())

	switch mode {
	case ModeRetrieval:
		if p.retriever == nil {
			return nil, ErrRetrieverRequired
		}
		p.stages = []Stage{
			{StageFetchHistory, p.fetchHistory},
			{StageRetrieveContext, p.retrieveContext},
			{StageGenerate, p.generate},
			{StagePersist, p.persist},
		}
	case ModeSentiment:
		p.stages = []Stage{
			{StageClassifySentiment, p.classifySentiment},
			{StageFetchHistory, p.fetchHistory},
			{StageGenerate, p.generate},
			{StagePersist, p.persist},
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}

	return p, nil
}

// Mode returns the configured mode.
func (p *Pipeline) Mode() Mode {
	return p.mode
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// ProcessMessage runs every stage for one user message. An empty sessionID
// starts a new session. The only fatal failure is generation, reported as
// core.ErrGeneration.
func (p *Pipeline) ProcessMessage(ctx context.Context, userInput, sessionID string) (*Result, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	state, err := p.Run(ctx, NewState(userInput, sessionID))
	if err != nil {
		return nil, err
	}

	return &Result{
		Response:    state.Response,
		SessionID:   state.SessionID,
		Sentiment:   state.Sentiment,
		Context:     state.Context,
		ContextText: JoinContext(state.Context),
	}, nil
}

// Run threads state through every stage and returns the terminal state.
func (p *Pipeline) Run(ctx context.Context, state State) (State, error) {
	for _, stage := range p.stages {
		p.monitor.StageStarted(stage.Name, state)
		start := time.Now()

		next, err := stage.Run(ctx, state)
		p.monitor.StageFinished(stage.Name, next, time.Since(start), err)
		if err != nil {
			p.logger.Error("stage failed", "stage", stage.Name, "session", state.SessionID, "err", err)
			return state, err
		}
		state = next
	}
	return state, nil
}

func (p *Pipeline) classifySentiment(_ context.Context, state State) (State, error) {
	return state.WithSentiment(p.classifier.Classify(state.UserInput)), nil
}

func (p *Pipeline) fetchHistory(ctx context.Context, state State) (State, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	history, err := p.conversations.GetHistory(callCtx, state.SessionID, p.historyLimit)
	if err != nil {
		p.logger.Warn("history unavailable, continuing without it", "session", state.SessionID, "err", err)
		return state.WithHistory(nil), nil
	}
	return state.WithHistory(history), nil
}

func (p *Pipeline) retrieveContext(ctx context.Context, state State) (State, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	chunks, err := p.retriever.FindSimilar(callCtx, state.UserInput, p.topK)
	if err != nil {
		p.logger.Warn("retrieval failed, continuing without context", "session", state.SessionID, "err", err)
		return state.WithContext(nil), nil
	}
	return state.WithContext(chunks), nil
}

func (p *Pipeline) generate(ctx context.Context, state State) (State, error) {
	persona := p.persona
	if p.mode == ModeSentiment {
		persona = PersonaFor(state.Sentiment)
	}
	prompt := BuildPrompt(persona, state, p.promptTurns)

	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	response, err := p.generator.Complete(callCtx, prompt)
	if err != nil {
		return state, fmt.Errorf("%w: %w", core.ErrGeneration, err)
	}
	return state.WithResponse(response), nil
}

func (p *Pipeline) persist(ctx context.Context, state State) (State, error) {
	turn := core.ConversationTurn{
		UserMessage:       state.UserInput,
		AssistantResponse: state.Response,
		CreatedAt:         p.now(),
	}
	if p.mode == ModeSentiment {
		turn.Sentiment = state.Sentiment
	}

	if err := core.ValidateTurn(turn); err != nil {
		p.logger.Warn("turn not persisted", "session", state.SessionID, "err", err)
		return state, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	if err := p.conversations.AppendTurn(callCtx, state.SessionID, turn); err != nil {
		p.logger.Error("failed to persist turn", "session", state.SessionID, "err", err)
	}
	return state, nil
}
