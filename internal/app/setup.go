package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/quillnotes/quill/db"
	"github.com/quillnotes/quill/internal/blob"
	"github.com/quillnotes/quill/internal/chat"
	"github.com/quillnotes/quill/internal/config"
	"github.com/quillnotes/quill/internal/database"
	"github.com/quillnotes/quill/internal/embedding"
	"github.com/quillnotes/quill/internal/imagegen"
	"github.com/quillnotes/quill/internal/log"
	"github.com/quillnotes/quill/internal/resource"
	"github.com/quillnotes/quill/internal/search"
	"github.com/quillnotes/quill/internal/summarize"
)

const summarizeCacheTTL = 5 * time.Minute

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", slog.Any("error", err))
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	a.Embedder = embedding.NewOpenAI(cfg.OpenAIAPIKey, cfg.EmbedderModel, logger)

	a.Notes = resource.New(resource.NewQueries(pool), a.Embedder, logger)
	a.Retriever = search.New(search.NewQueries(pool), a.Embedder, logger)

	a.Chat = chat.New(cfg.OpenAIAPIKey, cfg.AnthropicKey, cfg.ChatModel, cfg.PDFChatModel,
		cfg.MaxChatTokens, chat.Toolset{Resources: a.Notes, Search: a.Retriever}, logger)

	a.Summarize = summarize.NewService(cfg.OpenAIAPIKey, cfg.SummarizeModel,
		summarize.NewTTLCache(summarizeCacheTTL), logger)

	blobs, err := blob.NewStore(ctx, cfg.StorageBucket, logger)
	if err != nil {
		return nil, err
	}
	a.Blobs = blobs

	a.Images = imagegen.NewGenerator(cfg.OpenAIAPIKey, logger)

	return a, nil
}

// provideOtelShutdown sets up OTLP trace export when an endpoint is
// configured. Failures disable tracing with a warning rather than
// aborting startup.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	if cfg.OTLPEndpoint == "" {
		return func() {}
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating otlp exporter, tracing disabled", slog.Any("error", err))
		return func() {}
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "quill"
	}
	res, err := sdkresource.Merge(sdkresource.Default(),
		sdkresource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(serviceName)))
	if err != nil {
		logger.Warn("building otel resource, tracing disabled", slog.Any("error", err))
		return func() {}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Debug("otlp tracing enabled",
		slog.String("endpoint", cfg.OTLPEndpoint),
		slog.String("service", serviceName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", slog.Any("error", err))
		}
	}
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.Connect(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, err
	}
	return pool, pool.Close, nil
}
