package cli

import (
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/sitrep/internal/cluster"
	"github.com/ppiankov/sitrep/internal/extract"
	"github.com/ppiankov/sitrep/internal/llm"
	"github.com/ppiankov/sitrep/internal/model"
	"github.com/ppiankov/sitrep/internal/pipeline"
	"github.com/ppiankov/sitrep/internal/store"
)

// buildPipeline wires the full ingestion path. With no OPENAI_API_KEY the
// client is nil and every LLM-backed collaborator is left unset, so the
// pipeline runs on regex extraction and neutral cluster signals.
func buildPipeline(st *store.Store, cfg *model.Config, log *logrus.Logger) *pipeline.Pipeline {
	client := llm.NewClient(cfg.LLM, log)

	var (
		embedder cluster.Embedder
		matcher  cluster.Matcher
		judge    pipeline.Judge
	)
	if client != nil {
		embedder = client
		matcher = client
		judge = client
	}

	assigner := cluster.NewAssigner(embedder, matcher, cluster.NewEmbeddingCache(), cfg.Concurrency.ScoringWorkers, log)

	regex := extract.NewRegexExtractor(log)
	var primary, fallback extract.Extractor = regex, nil
	if client != nil {
		primary = extract.NewLLMExtractor(client, log)
		fallback = regex
	}

	return pipeline.New(st, assigner, primary, fallback, judge, cfg.Cluster, log)
}
