package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xhad/articlerag/internal/models"
	"github.com/xhad/articlerag/internal/types"
)

type Flow string

const (
	FlowExtract Flow = "extract"
	FlowEmbed   Flow = "embed"
	FlowAsk     Flow = "ask"
	FlowQuiz    Flow = "quiz"
	FlowSummary Flow = "summary"
	FlowProcess Flow = "process"
)

// Stage names a step of a flow. The observer sees each stage once it has
// completed; a StageError names the stage that failed.
type Stage string

const (
	StageStarted       Stage = "started"
	StageExtract       Stage = "extract"
	StageChunk         Stage = "chunk"
	StageEmbed         Stage = "embed"
	StageEnsure        Stage = "ensure_collection"
	StageStore         Stage = "store"
	StageEmbedQuestion Stage = "embed_question"
	StageRetrieve      Stage = "retrieve"
	StageAnswer        Stage = "answer"
	StageQuiz          Stage = "quiz"
	StageSummarize     Stage = "summarize"
	StageDone          Stage = "done"
)

// StageError reports the flow and stage where a run stopped.
type StageError struct {
	Flow  Flow
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed at %s: %v", e.Flow, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Observer is told about every completed stage.
type Observer func(flow Flow, stage Stage)

type Config struct {
	Collection       string
	VectorSize       int
	Distance         models.Distance
	TopK             int
	MinContentLength int
}

// Components are the collaborators a pipeline drives. Cache may be nil.
type Components struct {
	Extractor  types.Extractor
	Chunker    types.Chunker
	Embedder   types.Embedder
	Store      types.VectorStore
	Answerer   types.Answerer
	Quizzer    types.QuizGenerator
	Summarizer types.Summarizer
	Cache      types.ArticleCache
}

type EmbedResult struct {
	ArticleID    string `json:"articleId"`
	ChunksStored int    `json:"chunksStored"`
}

type QuizResult struct {
	ArticleID string       `json:"articleId"`
	Quiz      []models.MCQ `json:"quiz"`
}

type ProcessResult struct {
	ArticleID    string       `json:"articleId"`
	ChunksStored int          `json:"chunksStored"`
	Summary      string       `json:"summary"`
	Quiz         []models.MCQ `json:"quiz"`
}

// Pipeline runs the article flows. It holds no per-request state and is
// safe for concurrent use.
type Pipeline struct {
	config     Config
	components Components
	observer   Observer
}

func New(config Config, components Components) *Pipeline {
	if config.Collection == "" {
		config.Collection = "articles"
	}
	if config.Distance == "" {
		config.Distance = models.DistanceCosine
	}
	if config.TopK == 0 {
		config.TopK = 5
	}
	if config.MinContentLength == 0 {
		config.MinContentLength = 300
	}
	return &Pipeline{config: config, components: components}
}

// WithObserver returns a copy of p that reports stages to observer.
func (p *Pipeline) WithObserver(observer Observer) *Pipeline {
	cp := *p
	cp.observer = observer
	return &cp
}

// Extract fetches the article at url, going through the cache when one is set.
func (p *Pipeline) Extract(ctx context.Context, url string) (*models.Article, error) {
	r := p.start(FlowExtract, "")
	if url == "" {
		return nil, r.fail(StageStarted, fmt.Errorf("%w: url is required", models.ErrInvalidInput))
	}

	article, err := p.extract(ctx, r, url)
	if err != nil {
		return nil, err
	}

	r.done()
	return article, nil
}

// Embed extracts, chunks and embeds the article and stores its vectors
// under articleID.
func (p *Pipeline) Embed(ctx context.Context, url, articleID string) (*EmbedResult, error) {
	r := p.start(FlowEmbed, articleID)
	if url == "" || articleID == "" {
		return nil, r.fail(StageStarted, fmt.Errorf("%w: url and articleId are required", models.ErrInvalidInput))
	}

	article, err := p.extract(ctx, r, url)
	if err != nil {
		return nil, err
	}

	stored, err := p.index(ctx, r, articleID, article)
	if err != nil {
		return nil, err
	}

	r.done()
	return &EmbedResult{ArticleID: articleID, ChunksStored: stored}, nil
}

// Ask answers question from the stored chunks of articleID.
func (p *Pipeline) Ask(ctx context.Context, articleID, question string) (*models.AskResult, error) {
	return p.ask(ctx, articleID, question, nil)
}

// AskStream is Ask with every generated token passed to onToken.
func (p *Pipeline) AskStream(ctx context.Context, articleID, question string, onToken func(string) error) (*models.AskResult, error) {
	return p.ask(ctx, articleID, question, onToken)
}

func (p *Pipeline) ask(ctx context.Context, articleID, question string, onToken func(string) error) (*models.AskResult, error) {
	r := p.start(FlowAsk, articleID)
	if strings.TrimSpace(articleID) == "" || strings.TrimSpace(question) == "" {
		return nil, r.fail(StageStarted, fmt.Errorf("%w: articleId and question are required", models.ErrInvalidInput))
	}

	vector, err := p.components.Embedder.EmbedOne(ctx, question)
	if err != nil {
		return nil, r.fail(StageEmbedQuestion, err)
	}
	r.step(StageEmbedQuestion)

	chunks, err := p.components.Store.Search(ctx, p.config.Collection, models.SearchQuery{
		Vector:    vector,
		TopK:      p.config.TopK,
		ArticleID: articleID,
	})
	if err != nil {
		return nil, r.fail(StageRetrieve, err)
	}
	if len(chunks) == 0 {
		return nil, r.fail(StageRetrieve, models.ErrNoRelevantContext)
	}
	r.step(StageRetrieve)

	var answer string
	if onToken != nil {
		answer, err = p.components.Answerer.AnswerStream(ctx, question, chunks, onToken)
	} else {
		answer, err = p.components.Answerer.Answer(ctx, question, chunks)
	}
	if err != nil {
		return nil, r.fail(StageAnswer, err)
	}
	r.step(StageAnswer)

	r.done()
	return &models.AskResult{Answer: answer}, nil
}

// Quiz generates multiple-choice questions about the article at url.
func (p *Pipeline) Quiz(ctx context.Context, url, articleID string) (*QuizResult, error) {
	r := p.start(FlowQuiz, articleID)
	if url == "" || articleID == "" {
		return nil, r.fail(StageStarted, fmt.Errorf("%w: url and articleId are required", models.ErrInvalidInput))
	}

	article, err := p.extract(ctx, r, url)
	if err != nil {
		return nil, err
	}

	quiz, err := p.components.Quizzer.Generate(ctx, article.Content)
	if err != nil {
		return nil, r.fail(StageQuiz, err)
	}
	if len(quiz) == 0 {
		return nil, r.fail(StageQuiz, fmt.Errorf("%w: no quiz generated", models.ErrMalformedModelOutput))
	}
	r.step(StageQuiz)

	r.done()
	return &QuizResult{ArticleID: articleID, Quiz: quiz}, nil
}

// Summarize writes a short summary of the article at url.
func (p *Pipeline) Summarize(ctx context.Context, url string) (string, error) {
	r := p.start(FlowSummary, "")
	if url == "" {
		return "", r.fail(StageStarted, fmt.Errorf("%w: url is required", models.ErrInvalidInput))
	}

	article, err := p.extract(ctx, r, url)
	if err != nil {
		return "", err
	}

	summary, err := p.components.Summarizer.Summarize(ctx, article.Content)
	if err != nil {
		return "", r.fail(StageSummarize, err)
	}
	r.step(StageSummarize)

	r.done()
	return summary, nil
}

// Process embeds the article, then summarizes it and generates a quiz.
// An empty quiz is returned as is.
func (p *Pipeline) Process(ctx context.Context, url, articleID string) (*ProcessResult, error) {
	r := p.start(FlowProcess, articleID)
	if url == "" || articleID == "" {
		return nil, r.fail(StageStarted, fmt.Errorf("%w: url and articleId are required", models.ErrInvalidInput))
	}

	article, err := p.extract(ctx, r, url)
	if err != nil {
		return nil, err
	}

	stored, err := p.index(ctx, r, articleID, article)
	if err != nil {
		return nil, err
	}

	summary, err := p.components.Summarizer.Summarize(ctx, article.Content)
	if err != nil {
		return nil, r.fail(StageSummarize, err)
	}
	r.step(StageSummarize)

	quiz, err := p.components.Quizzer.Generate(ctx, article.Content)
	if err != nil {
		return nil, r.fail(StageQuiz, err)
	}
	if quiz == nil {
		quiz = []models.MCQ{}
	}
	r.step(StageQuiz)

	r.done()
	return &ProcessResult{
		ArticleID:    articleID,
		ChunksStored: stored,
		Summary:      summary,
		Quiz:         quiz,
	}, nil
}

func (p *Pipeline) extract(ctx context.Context, r *run, url string) (*models.Article, error) {
	cache := p.components.Cache

	if cache != nil {
		article, ok, err := cache.Get(ctx, url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("article cache lookup failed")
		}
		if ok {
			log.Debug().Str("url", url).Msg("article cache hit")
			if err := p.checkContent(article); err != nil {
				return nil, r.fail(StageExtract, err)
			}
			r.step(StageExtract)
			return article, nil
		}
	}

	article, err := p.components.Extractor.Extract(ctx, url)
	if err != nil {
		return nil, r.fail(StageExtract, err)
	}
	if err := p.checkContent(article); err != nil {
		return nil, r.fail(StageExtract, err)
	}

	if cache != nil {
		if err := cache.Put(ctx, url, article); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("article cache store failed")
		}
	}

	r.step(StageExtract)
	return article, nil
}

func (p *Pipeline) checkContent(article *models.Article) error {
	if article == nil || utf8.RuneCountInString(article.Content) < p.config.MinContentLength {
		return fmt.Errorf("%w: content too short", models.ErrExtractionRejected)
	}
	return nil
}

// index chunks, embeds and stores an article, returning the stored count.
func (p *Pipeline) index(ctx context.Context, r *run, articleID string, article *models.Article) (int, error) {
	chunks := p.components.Chunker.Chunk(article.Content)
	if len(chunks) == 0 {
		return 0, r.fail(StageChunk, fmt.Errorf("%w: no chunks produced", models.ErrExtractionRejected))
	}
	r.step(StageChunk)

	vectors, err := p.components.Embedder.Embed(ctx, models.ChunkTexts(chunks))
	if err != nil {
		return 0, r.fail(StageEmbed, err)
	}
	r.step(StageEmbed)

	err = p.components.Store.EnsureCollection(ctx, models.CollectionSpec{
		Name:       p.config.Collection,
		VectorSize: p.config.VectorSize,
		Distance:   p.config.Distance,
	})
	if err != nil {
		return 0, r.fail(StageEnsure, err)
	}
	r.step(StageEnsure)

	stored, err := p.components.Store.StoreChunks(ctx, p.config.Collection, articleID, vectors, chunks)
	if err != nil {
		return 0, r.fail(StageStore, err)
	}
	r.step(StageStore)

	return stored, nil
}

// run tracks one execution of a flow.
type run struct {
	flow      Flow
	articleID string
	started   time.Time
	observer  Observer
}

func (p *Pipeline) start(flow Flow, articleID string) *run {
	r := &run{flow: flow, articleID: articleID, started: time.Now(), observer: p.observer}
	r.step(StageStarted)
	return r
}

func (r *run) step(stage Stage) {
	log.Debug().
		Str("flow", string(r.flow)).
		Str("stage", string(stage)).
		Str("articleId", r.articleID).
		Msg("pipeline stage")

	if r.observer != nil {
		r.observer(r.flow, stage)
	}
}

func (r *run) done() {
	r.step(StageDone)
	log.Info().
		Str("flow", string(r.flow)).
		Str("articleId", r.articleID).
		Dur("duration", time.Since(r.started)).
		Msg("pipeline finished")
}

func (r *run) fail(stage Stage, err error) error {
	err = collaboratorError(stage, err)

	level := zerolog.ErrorLevel
	if isClientError(err) {
		level = zerolog.WarnLevel
	}

	log.WithLevel(level).
		Err(err).
		Str("flow", string(r.flow)).
		Str("stage", string(stage)).
		Str("articleId", r.articleID).
		Msg("pipeline stage failed")

	return &StageError{Flow: r.flow, Stage: stage, Err: err}
}

// collaboratorError rewraps an ErrInvalidInput raised after the request was
// accepted, since the request itself was already validated.
func collaboratorError(stage Stage, err error) error {
	if stage == StageStarted || !errors.Is(err, models.ErrInvalidInput) {
		return err
	}
	switch stage {
	case StageEnsure, StageStore, StageRetrieve:
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%w: %v", models.ErrUpstream, err)
}

// isClientError reports whether err was caused by the request rather than
// by a collaborator.
func isClientError(err error) bool {
	return errors.Is(err, models.ErrInvalidInput) ||
		errors.Is(err, models.ErrExtractionRejected) ||
		errors.Is(err, models.ErrNoRelevantContext)
}
