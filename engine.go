// Copyright 2025 JPVia Labs
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

package normabot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jpvia/normabot/ai"
	"github.com/jpvia/normabot/ai/openai"
	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/index"
	"github.com/jpvia/normabot/ingest"
	"github.com/jpvia/normabot/memory"
	"github.com/jpvia/normabot/reindex"
	"github.com/jpvia/normabot/retrieval"
	"github.com/jpvia/normabot/router"
	"github.com/jpvia/normabot/storage"
	"github.com/jpvia/normabot/storage/badger"
)

const (
	// DefaultAnswerDepth is how many reranked chunks feed the answer.
	DefaultAnswerDepth = 5

	// DefaultSimilarTurns is how many related prior turns feed the answer.
	DefaultSimilarTurns = 3
)

// Response is the outcome of one submitted query. A nil SpecialistId
// means the general fallback answered over the whole corpus. A degraded
// response still carries the best answer the engine could produce.
type Response struct {
	SessionId      string
	SpecialistId   *string
	Confidence     float64
	Answer         string
	SourceChunkIds []core.ID
	Degraded       bool
	Reason         core.DegradeReason
}

// Engine wires storage, AI providers, the index, routing, retrieval,
// and conversational memory into one query pipeline.
type Engine struct {
	backend        *badger.Backend
	chunkRepo      storage.ChunkRepository
	turnRepo       storage.TurnRepository
	longTermRepo   storage.LongTermRepository
	generationRepo storage.GenerationRepository
	provider       ai.AIProvider
	indexStore     *index.Store
	retriever      *retrieval.Retriever
	reranker       *retrieval.Reranker
	router         *router.Router
	memory         *memory.Store
	answerDepth    int
	similarTurns   int
	logger         *slog.Logger

	// Set when warm start found mixed embedding dimensions and published
	// a lexical-only snapshot. Queries degrade until a reindex publishes
	// a later generation.
	indexCorrupt bool
	corruptGen   core.Generation
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig      *ai.Config
	provider      ai.AIProvider
	profilePath   string
	answerDepth   int
	similarTurns  int
	retrieverOpts []retrieval.Option
	rerankerOpts  []retrieval.RerankerOption
	routerOpts    []router.Option
	memoryOpts    []memory.StoreOption
}

// WithAIConfig sets the provider configuration used when no provider is
// injected.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithAIProvider injects a provider, bypassing the OpenAI-compatible
// default. The engine takes ownership and closes it on Close.
func WithAIProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithProfilePath sets the specialist profile YAML file. A missing file
// yields the built-in regulatory volume taxonomy.
func WithProfilePath(path string) EngineOption {
	return func(o *engineOptions) {
		o.profilePath = path
	}
}

// WithAnswerDepth sets how many reranked chunks feed the answer.
func WithAnswerDepth(n int) EngineOption {
	return func(o *engineOptions) {
		if n > 0 {
			o.answerDepth = n
		}
	}
}

// WithSimilarTurns sets how many related prior turns feed the answer.
func WithSimilarTurns(n int) EngineOption {
	return func(o *engineOptions) {
		if n >= 0 {
			o.similarTurns = n
		}
	}
}

// WithRetrieverOptions forwards options to the hybrid retriever.
func WithRetrieverOptions(opts ...retrieval.Option) EngineOption {
	return func(o *engineOptions) {
		o.retrieverOpts = append(o.retrieverOpts, opts...)
	}
}

// WithRerankerOptions forwards options to the reranker.
func WithRerankerOptions(opts ...retrieval.RerankerOption) EngineOption {
	return func(o *engineOptions) {
		o.rerankerOpts = append(o.rerankerOpts, opts...)
	}
}

// WithRouterOptions forwards options to the specialist router.
func WithRouterOptions(opts ...router.Option) EngineOption {
	return func(o *engineOptions) {
		o.routerOpts = append(o.routerOpts, opts...)
	}
}

// WithMemoryOptions forwards options to the conversational memory store.
func WithMemoryOptions(opts ...memory.StoreOption) EngineOption {
	return func(o *engineOptions) {
		o.memoryOpts = append(o.memoryOpts, opts...)
	}
}

// NewEngine opens the storage backend at filePath (empty for in-memory),
// warms the index from the stored corpus, and wires the full pipeline.
func NewEngine(filePath string, opts ...EngineOption) (*Engine, error) {
	// Apply options
	options := &engineOptions{
		aiConfig:     ai.DefaultConfig(),
		answerDepth:  DefaultAnswerDepth,
		similarTurns: DefaultSimilarTurns,
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, filePath == "")
	if err != nil {
		return nil, err
	}

	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	turnRepo, err := badger.NewTurnRepository(backend)
	if err != nil {
		chunkRepo.Close()
		backend.Close()
		return nil, err
	}

	longTermRepo, err := badger.NewLongTermRepository(backend)
	if err != nil {
		turnRepo.Close()
		chunkRepo.Close()
		backend.Close()
		return nil, err
	}

	generationRepo := badger.NewGenerationRepository(backend)

	// AI provider: injected, or OpenAI-compatible from config
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			longTermRepo.Close()
			turnRepo.Close()
			chunkRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	e := &Engine{
		backend:        backend,
		chunkRepo:      chunkRepo,
		turnRepo:       turnRepo,
		longTermRepo:   longTermRepo,
		generationRepo: generationRepo,
		provider:       provider,
		answerDepth:    options.answerDepth,
		similarTurns:   options.similarTurns,
		logger:         slog.Default().With("component", "engine"),
	}

	if err := e.warmIndex(context.Background()); err != nil {
		e.Close()
		return nil, err
	}

	if err := e.wirePipeline(context.Background(), options); err != nil {
		e.Close()
		return nil, err
	}

	return e, nil
}

// warmIndex rebuilds the in-memory index from the stored corpus, resuming
// generation numbering from the persisted checkpoint.
func (e *Engine) warmIndex(ctx context.Context) error {
	generation, err := e.generationRepo.LoadGeneration(ctx)
	if err != nil {
		return err
	}
	e.indexStore = index.NewStore(generation)

	chunks, err := e.chunkRepo.GetAllChunks(ctx)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	snap, err := e.indexStore.Rebuild(chunks)
	if err != nil {
		if !errors.Is(err, core.ErrIndexCorrupt) {
			return err
		}
		// Mixed embedding dimensions in the stored corpus. Startup must
		// still succeed: publish the lexical index alone and leave the
		// vectors to a reindex pass.
		e.logger.Error("stored corpus has mixed embedding dimensions, serving lexical-only",
			"chunks", len(chunks))
		snap, err = e.indexStore.Rebuild(stripVectors(chunks))
		if err != nil {
			return err
		}
		e.indexCorrupt = true
		e.corruptGen = snap.Generation()
	}
	if err := e.generationRepo.SaveGeneration(ctx, snap.Generation()); err != nil {
		return err
	}

	e.logger.Info("index warmed from stored corpus",
		"chunks", snap.Len(), "generation", uint64(snap.Generation()))
	return nil
}

// stripVectors copies chunks without their embeddings.
func stripVectors(chunks []*core.Chunk) []*core.Chunk {
	stripped := make([]*core.Chunk, len(chunks))
	for i, chunk := range chunks {
		c := *chunk
		c.Vector = nil
		stripped[i] = &c
	}
	return stripped
}

func (e *Engine) wirePipeline(ctx context.Context, options *engineOptions) error {
	profiles, err := router.LoadProfiles(options.profilePath)
	if err != nil {
		return err
	}
	if err := router.BuildPrototypes(ctx, e.provider.Embedder(), profiles); err != nil {
		// Keyword-only routing still works without prototypes.
		e.logger.Warn("specialist prototypes unavailable", "err", err)
	}

	e.router, err = router.NewRouter(profiles, options.routerOpts...)
	if err != nil {
		return err
	}
	e.retriever, err = retrieval.NewRetriever(options.retrieverOpts...)
	if err != nil {
		return err
	}
	e.reranker, err = retrieval.NewReranker(options.rerankerOpts...)
	if err != nil {
		return err
	}
	e.memory, err = memory.NewStore(e.turnRepo, options.memoryOpts...)
	return err
}

// Close releases the AI provider, repositories, and storage backend.
func (e *Engine) Close() error {
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}

	if err := e.longTermRepo.Close(); err != nil {
		e.logger.Error("error closing long-term repository", "err", err)
		return err
	}
	if err := e.turnRepo.Close(); err != nil {
		e.logger.Error("error closing turn repository", "err", err)
		return err
	}
	if err := e.chunkRepo.Close(); err != nil {
		e.logger.Error("error closing chunk repository", "err", err)
		return err
	}

	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Submit runs one query through the full pipeline: validate, embed,
// route, retrieve, rerank, gather memory, generate, record. Provider
// failures degrade the response instead of failing it; a deadline expiry
// returns the best partial result with reason TIMEOUT.
func (e *Engine) Submit(ctx context.Context, queryText, sessionID string) (*Response, error) {
	if err := core.ValidateQueryText(queryText); err != nil {
		return nil, err
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	resp := &Response{SessionId: sessionID}
	query := core.Query{
		Text:      queryText,
		Tokens:    index.Tokenize(queryText),
		SessionId: sessionID,
	}

	if isGreeting(query.Tokens) {
		resp.Answer = greetingReply
		return resp, nil
	}

	vector, err := e.provider.Embedder().EmbedText(ctx, queryText)
	if err != nil {
		if ctx.Err() != nil {
			return e.timedOut(resp), nil
		}
		e.logger.Warn("query embedding failed, lexical-only retrieval", "err", err)
		e.degrade(resp, core.DegradeEmbeddingUnavailable)
	} else {
		query.Vector = core.NormalizeVector(vector)
	}

	decision, err := e.router.Route(query)
	if err != nil {
		return nil, err
	}
	resp.SpecialistId = decision.SpecialistId
	resp.Confidence = decision.Confidence

	if ctx.Err() != nil {
		return e.timedOut(resp), nil
	}

	snap := e.indexStore.Load()
	if e.indexCorrupt && snap.Generation() == e.corruptGen {
		// Lexical-only snapshot from a corrupt warm start; a reindex
		// publishes a later generation and clears the condition.
		e.degrade(resp, core.DegradeIndexCorrupt)
	}
	chunks, err := e.retrieve(ctx, snap, &query, e.router.Scope(decision), resp)
	if err != nil {
		if ctx.Err() != nil {
			return e.timedOut(resp), nil
		}
		return nil, err
	}
	for _, chunk := range chunks {
		resp.SourceChunkIds = append(resp.SourceChunkIds, chunk.Id)
	}

	if ctx.Err() != nil {
		resp.Answer = verbatimAnswer(chunks)
		return e.timedOut(resp), nil
	}

	recent, err := e.memory.Recent(ctx, sessionID, 0)
	if err != nil {
		e.logger.Warn("recent turn recall failed", "session", sessionID, "err", err)
	}
	similar, err := e.memory.Similar(ctx, sessionID, query.Vector, e.similarTurns)
	if err != nil {
		e.logger.Warn("similar turn recall failed", "session", sessionID, "err", err)
	}

	if ctx.Err() != nil {
		resp.Answer = verbatimAnswer(chunks)
		return e.timedOut(resp), nil
	}

	e.generate(ctx, queryText, chunks, recent, similar, resp)
	if resp.Reason == core.DegradeTimeout {
		return resp, nil
	}

	e.recordTurn(ctx, query, resp)
	return resp, nil
}

// retrieve runs hybrid retrieval and reranking, falling back to
// lexical-only when the query vector no longer matches the index
// dimension (corpus re-embedded against a different model).
func (e *Engine) retrieve(ctx context.Context, snap *index.Snapshot, query *core.Query, filter index.SourceFilter, resp *Response) ([]*core.Chunk, error) {
	candidates, err := e.retriever.Retrieve(ctx, snap, *query, filter)
	if err != nil {
		if !errors.Is(err, core.ErrDimensionMismatch) {
			return nil, err
		}
		e.logger.Warn("query vector incompatible with index, lexical-only retrieval",
			"index_dimension", snap.Dimension(), "query_dimension", len(query.Vector))
		query.Vector = nil
		e.degrade(resp, core.DegradeEmbeddingUnavailable)

		candidates, err = e.retriever.Retrieve(ctx, snap, *query, filter)
		if err != nil {
			return nil, err
		}
	}

	top := e.reranker.Rerank(snap, candidates, e.answerDepth)
	return snap.Chunks(candidateIDs(top)...), nil
}

// generate produces the answer, degrading to the top excerpt verbatim
// when the generation provider fails.
func (e *Engine) generate(ctx context.Context, queryText string, chunks []*core.Chunk, recent []*core.ConversationTurn, similar []*core.ScoredTurn, resp *Response) {
	if len(chunks) == 0 {
		resp.Answer = noContextReply
		return
	}

	contextBlock := buildContextBlock(chunks, recent, similar)
	answer, err := e.provider.Generator().Generate(ctx, queryText, contextBlock)
	if err != nil {
		resp.Answer = verbatimAnswer(chunks)
		if ctx.Err() != nil {
			e.timedOut(resp)
			return
		}
		e.logger.Warn("generation failed, answering with top excerpt", "err", err)
		e.degrade(resp, core.DegradeGenerationUnavailable)
		return
	}
	resp.Answer = answer
}

// recordTurn appends the exchange to conversational memory. The response
// is already produced; recording failures are logged, not returned.
func (e *Engine) recordTurn(ctx context.Context, query core.Query, resp *Response) {
	turn := &core.ConversationTurn{
		SessionId: query.SessionId,
		Query:     query.Text,
		Response:  resp.Answer,
		Timestamp: time.Now().UTC(),
	}
	if resp.SpecialistId != nil {
		turn.SpecialistId = *resp.SpecialistId
	}

	if vector, err := e.provider.Embedder().EmbedText(ctx, turn.CombinedText()); err == nil {
		turn.Vector = core.NormalizeVector(vector)
	}

	if _, err := e.memory.Append(ctx, turn); err != nil {
		e.logger.Warn("failed to record conversation turn", "session", query.SessionId, "err", err)
	}
}

func (e *Engine) degrade(resp *Response, reason core.DegradeReason) {
	resp.Degraded = true
	resp.Reason = reason
}

func (e *Engine) timedOut(resp *Response) *Response {
	e.degrade(resp, core.DegradeTimeout)
	return resp
}

func candidateIDs(candidates []core.RetrievalCandidate) []core.ID {
	ids := make([]core.ID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ChunkId)
	}
	return ids
}

// ChunkRepository returns the chunk storage layer.
func (e *Engine) ChunkRepository() storage.ChunkRepository {
	return e.chunkRepo
}

// TurnRepository returns the conversation log storage layer.
func (e *Engine) TurnRepository() storage.TurnRepository {
	return e.turnRepo
}

// LongTermRepository returns the consolidated knowledge storage layer.
func (e *Engine) LongTermRepository() storage.LongTermRepository {
	return e.longTermRepo
}

// Router returns the specialist router.
func (e *Engine) Router() *router.Router {
	return e.router
}

// Memory returns the conversational memory store.
func (e *Engine) Memory() *memory.Store {
	return e.memory
}

// IndexStore returns the index snapshot holder.
func (e *Engine) IndexStore() *index.Store {
	return e.indexStore
}

// NewIngestPipeline creates an ingestion pipeline over the engine's
// storage, index, and provider.
func (e *Engine) NewIngestPipeline(opts ...ingest.Option) (*ingest.Pipeline, error) {
	return ingest.NewPipeline(e.chunkRepo, e.indexStore, e.provider, opts...)
}

// NewReindexer creates a full-corpus reindexer over the engine's storage,
// index, and provider.
func (e *Engine) NewReindexer(config *reindex.Config, progress io.Writer) (*reindex.Reindexer, error) {
	return reindex.NewReindexer(e.chunkRepo, e.generationRepo, e.indexStore, e.provider.Embedder(), config, progress)
}

// NewConsolidator creates a memory consolidator over the engine's
// conversation log and long-term store.
func (e *Engine) NewConsolidator(opts ...memory.ConsolidatorOption) (*memory.Consolidator, error) {
	return memory.NewConsolidator(e.turnRepo, e.longTermRepo, opts...)
}
