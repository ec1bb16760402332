package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/secomply/questionnaire-assistant/internal/config"
	"github.com/secomply/questionnaire-assistant/internal/core/ports"
	"github.com/secomply/questionnaire-assistant/internal/core/usecase"
	"github.com/secomply/questionnaire-assistant/internal/infrastructure/llm/ollama"
	"github.com/secomply/questionnaire-assistant/internal/infrastructure/queue/nats"
	"github.com/secomply/questionnaire-assistant/internal/infrastructure/repository/postgres"
	"github.com/secomply/questionnaire-assistant/internal/infrastructure/resilience"
	"github.com/secomply/questionnaire-assistant/internal/infrastructure/vector/qdrant"
)

// App owns every wired collaborator shared by the api and worker binaries.
type App struct {
	Config config.Config

	Queue   *nats.Queue
	Threads ports.ThreadStore

	AskUC   ports.QuestionAnswerer
	BatchUC ports.QuestionnaireAnswerer
	JobUC   ports.JobService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	threads := postgres.NewThreadRepository(db)
	if err := threads.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	jobs := postgres.NewJobRepository(db)

	queueExecutor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: queueExecutor,
	})
	if err != nil {
		return nil, fmt.Errorf("init job queue: %w", err)
	}

	// Retrieval and generation share one breaker-only executor profile; a
	// failed lookup or model call is reported, never replayed.
	pipelineExecutor := resilience.NewExecutor(resilience.PipelineConfig())

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, pipelineExecutor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	structured := qdrant.New(cfg.QdrantURL, cfg.QdrantStructuredCollection, embedder, pipelineExecutor)
	unstructured := qdrant.New(cfg.QdrantURL, cfg.QdrantUnstructuredCollection, embedder, pipelineExecutor)

	resolver := usecase.NewHybridResolver(structured, unstructured, usecase.ResolverConfig{
		TopK:                      cfg.RetrievalTopK,
		StructuredThreshold:       cfg.StructuredThreshold,
		UnstructuredThreshold:     cfg.UnstructuredThreshold,
		UnstructuredAdmissibility: usecase.Admissibility(cfg.UnstructuredAdmissibility),
	})
	confidence := usecase.NewConfidenceNormalizer(cfg.MaxDistance)
	synthesizer := usecase.NewAnswerSynthesizer(generator)

	askUC := usecase.NewAskUseCase(resolver, confidence, synthesizer, threads, logger)
	batchUC := usecase.NewBatchUseCase(resolver, confidence, synthesizer, cfg.BatchRowDelay, logger)
	jobUC := usecase.NewJobUseCase(jobs, queue, batchUC, logger)

	return &App{
		Config: cfg,

		Queue:   queue,
		Threads: threads,

		AskUC:   askUC,
		BatchUC: batchUC,
		JobUC:   jobUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
