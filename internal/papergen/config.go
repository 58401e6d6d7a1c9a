// Package papergen wires configuration into the running service: LLM
// providers, stores, the generation pipeline, and the HTTP server.
package papergen

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/papergen/internal/papergen/biz"
	"github.com/kart-io/papergen/internal/papergen/handler"
	"github.com/kart-io/papergen/internal/papergen/router"
	"github.com/kart-io/papergen/internal/papergen/store"
	milvusstore "github.com/kart-io/papergen/internal/papergen/store/milvus"
	mongostore "github.com/kart-io/papergen/internal/papergen/store/mongo"
	"github.com/kart-io/papergen/pkg/component/mongodb"
	"github.com/kart-io/papergen/pkg/llm"
	"github.com/kart-io/papergen/pkg/llm/resilience"
	llmopts "github.com/kart-io/papergen/pkg/options/llm"
	milvusopts "github.com/kart-io/papergen/pkg/options/milvus"
	paperopts "github.com/kart-io/papergen/pkg/options/paper"
	redisopts "github.com/kart-io/papergen/pkg/options/redis"
	serveropts "github.com/kart-io/papergen/pkg/options/server"

	// Register providers.
	_ "github.com/kart-io/papergen/pkg/llm/groq"
	_ "github.com/kart-io/papergen/pkg/llm/mock"
	_ "github.com/kart-io/papergen/pkg/llm/ollama"
	_ "github.com/kart-io/papergen/pkg/llm/openai"
)

// Config aggregates everything needed to construct the service.
type Config struct {
	Server    *serveropts.Options
	Paper     *paperopts.Options
	Embedding *llmopts.ProviderOptions
	Chat      *llmopts.ProviderOptions
	Mongo     *mongodb.Options
	Milvus    *milvusopts.Options
	Redis     *redisopts.Options
}

// New builds the fully wired Server. Provider and store construction
// errors are fatal here, before any generation begins.
func (c *Config) New(ctx context.Context) (*Server, error) {
	embedder, err := c.buildEmbedder(ctx)
	if err != nil {
		return nil, err
	}

	chat, err := llm.NewChatProvider(c.Chat.Provider, c.Chat.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("create chat provider %q: %w", c.Chat.Provider, err)
	}

	content, papers, revisions, cleanup, err := c.buildStores(ctx)
	if err != nil {
		return nil, err
	}

	retriever := biz.NewRetriever(content, embedder, biz.RetrieverConfig{
		TopK:         c.Paper.TopK,
		RRFK:         c.Paper.RRFK,
		VectorWeight: c.Paper.VectorWeight,
		BM25Weight:   c.Paper.BM25Weight,
	})
	assembler := biz.NewContextAssembler(retriever, biz.AssemblerConfig{
		MaxChunks: c.Paper.MaxContextChunks,
		MaxChars:  c.Paper.MaxContextChars,
	})
	generator := biz.NewQuestionGenerator(chat)
	orchestrator := biz.NewPaperOrchestrator(assembler, generator, biz.NewCoverageValidator(), biz.OrchestratorConfig{
		Concurrency: c.Paper.Concurrency,
		DefaultSeed: c.Paper.Seed,
	})
	reviewer := biz.NewQualityReviewer(chat)
	reviser := biz.NewQuestionReviser(retriever, chat, revisions)
	svc := biz.NewPaperService(orchestrator, reviewer, reviser, papers, revisions)

	gin.SetMode(c.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	router.Register(engine, handler.NewPaperHandler(svc))

	return newServer(engine, c.Server, cleanup), nil
}

// buildEmbedder constructs the embedding provider with its retry wrapper
// and, when redis is enabled, the embedding cache.
func (c *Config) buildEmbedder(_ context.Context) (llm.EmbeddingProvider, error) {
	base, err := llm.NewEmbeddingProvider(c.Embedding.Provider, c.Embedding.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("create embedding provider %q: %w", c.Embedding.Provider, err)
	}

	var embedder llm.EmbeddingProvider = resilience.NewResilientEmbeddingProvider(base, nil, nil)

	if c.Redis != nil && c.Redis.Enabled {
		client := goredis.NewClient(&goredis.Options{
			Addr:        c.Redis.Addr,
			Password:    c.Redis.Password,
			DB:          c.Redis.DB,
			DialTimeout: c.Redis.DialTimeout,
		})
		cacheCfg := llm.DefaultEmbeddingCacheConfig()
		cacheCfg.TTL = c.Redis.CacheTTL
		embedder = llm.NewCachedEmbeddingProvider(embedder, client, cacheCfg)
	}

	return embedder, nil
}

// buildStores constructs the content, paper, and revision stores for the
// configured driver. The milvus driver serves content only; papers and
// revisions stay in memory there.
func (c *Config) buildStores(ctx context.Context) (store.ContentStore, store.PaperStore, store.RevisionStore, func(context.Context), error) {
	switch c.Paper.StoreDriver {
	case "mongo":
		client, err := mongodb.NewWithContext(ctx, c.Mongo)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("connect mongodb: %w", err)
		}
		st := mongostore.New(client, mongostore.Config{})
		cleanup := func(context.Context) { _ = client.Close() }
		return st, st, st, cleanup, nil

	case "milvus":
		content, err := milvusstore.New(ctx, c.Milvus)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("connect milvus: %w", err)
		}
		mem := store.NewMemoryStore()
		cleanup := func(ctx context.Context) { _ = content.Close(ctx) }
		return content, mem, mem, cleanup, nil

	default: // memory
		mem := store.NewMemoryStore()
		return mem, mem, mem, func(context.Context) {}, nil
	}
}
