package coder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kmw/qualcoder/internal/models"
	"github.com/kmw/qualcoder/internal/types"
	"github.com/kmw/qualcoder/pkg/chunker"
	"github.com/kmw/qualcoder/pkg/cluster"
	"github.com/kmw/qualcoder/pkg/config"
	"github.com/kmw/qualcoder/pkg/llm"
	"github.com/kmw/qualcoder/pkg/logging"
	"github.com/kmw/qualcoder/pkg/postprocess"
	"github.com/kmw/qualcoder/pkg/preprocess"
	"github.com/kmw/qualcoder/pkg/store"
	"github.com/kmw/qualcoder/pkg/transcript"
)

// ErrNoInput marks a processing request whose input files are missing,
// distinguishable from generic failures via errors.Is so a caller can
// suggest remediation.
var ErrNoInput = errors.New("no input texts found")

// Coder orchestrates the full qualitative coding pipeline. The
// embedding capability is resolved once at construction: either a real
// embedder/index pair or no-op stand-ins, so no stage checks a flag.
type Coder struct {
	cfg       *config.Config
	log       types.Logger
	chunker   *chunker.Chunker
	segmenter *transcript.Segmenter
	embedder  types.Embedder
	index     types.SimilarityIndex
	remote    types.RemoteIndex
	generator types.CodeGenerator

	useEmbeddings bool
}

func New(ctx context.Context, cfg *config.Config, log types.Logger, useEmbeddings bool) (*Coder, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = logging.Silent{}
	}

	c := &Coder{
		cfg: cfg,
		log: log,
		chunker: chunker.NewWithConfig(chunker.ChunkerConfig{
			MaxChunkSize:     cfg.Chunker.MaxChunkSize,
			OverlapSentences: cfg.Chunker.OverlapSentences,
			MinSentences:     cfg.Chunker.MinSentences,
		}, log),
		segmenter: transcript.NewSegmenter(log),
	}

	generator, err := llm.NewGenerator(llm.GeneratorConfig{
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		RateLimit:   cfg.LLM.RateLimit,
	}, log)
	if err != nil {
		// The pipeline stays usable: every cluster gets fallback codes.
		log.Error("could not initialize generative backend: %v", err)
		c.generator = llm.NewGeneratorWithModel(nil, llm.GeneratorConfig{}, log)
	} else {
		c.generator = generator
	}

	c.embedder = llm.NoopEmbedder{}
	c.index = store.NoopIndex{}
	if useEmbeddings {
		embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
			Model:       cfg.Embeddings.Model,
			BaseURL:     cfg.Embeddings.BaseURL,
			FallbackDim: cfg.Embeddings.FallbackDim,
		}, log)
		if err != nil {
			log.Warn("could not initialize embeddings: %v", err)
		} else {
			c.embedder = embedder
			c.index = store.NewLocalIndex(log)
			c.useEmbeddings = true
		}
	}

	if c.useEmbeddings && cfg.Database.URL != "" {
		remote, err := store.NewPgIndex(ctx, store.PgIndexConfig{
			ConnString: cfg.Database.URL,
			TableName:  cfg.Database.TableName,
			VectorDim:  cfg.Database.VectorDim,
			BatchSize:  cfg.Database.BatchSize,
		})
		if err != nil {
			log.Warn("could not initialize vector database: %v", err)
		} else {
			c.remote = remote
		}
	}

	log.Success("qualitative coder initialized")
	return c, nil
}

// NewWithComponents wires explicit components. Used by tests and by
// callers that bring their own backends.
func NewWithComponents(cfg *config.Config, log types.Logger, generator types.CodeGenerator,
	embedder types.Embedder, index types.SimilarityIndex) *Coder {
	if log == nil {
		log = logging.Silent{}
	}

	_, noopEmbedder := embedder.(llm.NoopEmbedder)
	_, noopIndex := index.(store.NoopIndex)

	return &Coder{
		cfg: cfg,
		log: log,
		chunker: chunker.NewWithConfig(chunker.ChunkerConfig{
			MaxChunkSize:     cfg.Chunker.MaxChunkSize,
			OverlapSentences: cfg.Chunker.OverlapSentences,
			MinSentences:     cfg.Chunker.MinSentences,
		}, log),
		segmenter:     transcript.NewSegmenter(log),
		embedder:      embedder,
		index:         index,
		generator:     generator,
		useEmbeddings: !noopEmbedder && !noopIndex,
	}
}

// Close releases the optional persistence layer.
func (c *Coder) Close() {
	if c.remote != nil {
		c.remote.Close()
	}
}

// ProcessTexts runs the complete pipeline over raw texts: preprocess,
// chunk, optionally embed and store, group by cluster, generate codes
// per cluster and aggregate. clusterIDs assign one id per input text;
// nil means a single shared cluster.
func (c *Coder) ProcessTexts(ctx context.Context, texts []string, languages []string,
	clusterIDs []int, storeVectors bool) (*models.AnalysisResult, error) {

	if len(texts) == 0 {
		return nil, ErrNoInput
	}
	if len(clusterIDs) == 0 {
		clusterIDs = make([]int, len(texts))
		for i := range clusterIDs {
			clusterIDs[i] = cluster.DefaultClusterID
		}
	}

	c.log.Processing("step 1: preprocessing %d texts", len(texts))
	cleaned := preprocess.Texts(texts, languages)

	c.log.Processing("step 2: chunking texts")
	chunks := c.chunker.ChunkMany(cleaned)

	var embeddings [][]float32
	if c.useEmbeddings {
		c.log.Processing("step 3: generating embeddings")
		contents := make([]string, len(chunks))
		for i, ch := range chunks {
			contents[i] = ch.Content
		}
		embs, err := c.embedder.Embed(ctx, contents)
		if err != nil {
			// Embeddings failing disables the optional subsystem for
			// this run; the analysis itself continues.
			c.log.Warn("embedding failed, continuing without similarity search: %v", err)
		} else {
			embeddings = embs
		}
	}

	perChunkIDs := cluster.ExpandClusterIDs(chunks, clusterIDs)

	if storeVectors && len(embeddings) > 0 {
		c.log.Processing("step 4: storing vectors")
		ids := make([]string, len(chunks))
		metadata := make([]map[string]string, len(chunks))
		for i, ch := range chunks {
			ids[i] = "chunk_" + strconv.Itoa(i)
			preview := ch.Content
			if len(preview) > 200 {
				preview = preview[:200] + "..."
			}
			metadata[i] = map[string]string{
				"text":       preview,
				"cluster_id": strconv.Itoa(perChunkIDs[i]),
				"length":     strconv.Itoa(ch.Length),
			}
		}
		if err := c.index.Add(embeddings, ids, metadata); err != nil {
			c.log.Warn("could not store vectors locally: %v", err)
		}
		if c.remote != nil {
			if err := c.remote.Upsert(ctx, embeddings, ids, metadata); err != nil {
				c.log.Warn("could not persist vectors: %v", err)
			}
		}
	}

	c.log.Processing("step 5: grouping chunks by cluster")
	groups := cluster.GroupByCluster(chunks, perChunkIDs, embeddings)

	c.log.Processing("step 6: generating qualitative codes")
	groupIDs := make([]int, 0, len(groups))
	for id := range groups {
		groupIDs = append(groupIDs, id)
	}
	sort.Ints(groupIDs)

	allCodes := make(map[int]models.CodeSet, len(groups))
	for _, id := range groupIDs {
		group := groups[id]
		allCodes[id] = c.generator.GenerateCodes(ctx, group.Chunks, id, group.Embeddings, nil, "")
	}

	result := c.aggregate(allCodes)
	result.OriginalTexts = texts
	result.ProcessedTexts = cleaned
	result.Chunks = chunks
	result.ChunkInfo = chunker.Info(chunks)

	if c.useEmbeddings && c.index.Size() > 0 {
		stats := c.index.Stats()
		result.VectorStats = &stats
	}

	c.log.Success("qualitative coding analysis completed")
	return result, nil
}

// ProcessProjectDir analyzes every .txt file in a project directory
// under the inputs root, one cluster per file.
func (c *Coder) ProcessProjectDir(ctx context.Context, projectDir string) (*models.AnalysisResult, error) {
	projectPath := filepath.Join(c.cfg.Paths.InputsDir, projectDir)

	fileNames, texts, err := readTextFiles(projectPath)
	if err != nil {
		return nil, err
	}
	c.log.Success("loaded %d text files from %s", len(texts), projectDir)

	clusterIDs := make([]int, len(texts))
	for i := range clusterIDs {
		clusterIDs[i] = i + 1
	}

	result, err := c.ProcessTexts(ctx, texts, nil, clusterIDs, true)
	if err != nil {
		return nil, err
	}

	result.ProjectName = projectDir
	result.SourceFiles = fileNames
	result.Metadata = map[string]string{
		"total_files":       strconv.Itoa(len(fileNames)),
		"project_directory": projectDir,
	}
	return result, nil
}

// ProcessTranscripts analyzes focus-group transcripts with specialized
// segmentation and research context injected into prompts. Each
// transcript is one cluster; the participant type is derived from the
// filename.
func (c *Coder) ProcessTranscripts(ctx context.Context, projectDir string) (*models.AnalysisResult, error) {
	projectPath := filepath.Join(c.cfg.Paths.InputsDir, projectDir)
	if _, err := os.Stat(projectPath); err != nil {
		return nil, fmt.Errorf("%w: project directory %s", ErrNoInput, projectPath)
	}

	pctx := c.loadProjectContext(projectPath)

	transcriptsPath := filepath.Join(projectPath, "transcripts")
	if _, err := os.Stat(transcriptsPath); err != nil {
		c.log.Warn("no 'transcripts' subdirectory found, using project root")
		transcriptsPath = projectPath
	}

	fileNames, transcripts, err := readTextFiles(transcriptsPath)
	if err != nil {
		return nil, err
	}

	allCodes := make(map[int]models.CodeSet, len(transcripts))
	for i, text := range transcripts {
		clusterID := i + 1
		c.log.Processing("analyzing transcript: %s", fileNames[i])

		participantType := participantTypeFromFilename(fileNames[i])

		topicChunks := c.segmenter.CreateTopicChunks(text, c.cfg.Transcript.TopicChunkSize)
		if len(topicChunks) > 3 {
			topicChunks = topicChunks[:3]
		}
		if len(topicChunks) == 0 {
			// Sparse transcript: fall back to the theme-focused sample.
			if sample := c.segmenter.PrepareForCoding(text, c.cfg.Transcript.MaxSampleLength); sample != "" {
				topicChunks = []string{sample}
			}
		}

		segments := make([]models.TextChunk, len(topicChunks))
		for j, tc := range topicChunks {
			segments[j] = models.TextChunk{Content: tc, Source: i, Length: len(tc)}
		}

		allCodes[clusterID] = c.generator.GenerateCodes(ctx, segments, clusterID, nil, pctx, participantType)
	}
	c.log.Success("analyzed %d transcripts", len(transcripts))

	result := c.aggregate(allCodes)
	result.ProjectName = projectDir
	result.SourceFiles = fileNames
	result.Metadata = map[string]string{
		"total_files":       strconv.Itoa(len(fileNames)),
		"project_directory": projectDir,
		"analysis_type":     "market_research_transcripts",
	}
	return result, nil
}

// SearchSimilar embeds the query and ranks stored chunks against it.
// Returns nil when the embedding subsystem is disabled.
func (c *Coder) SearchSimilar(ctx context.Context, query string, topK int) ([]types.SearchMatch, error) {
	if !c.useEmbeddings {
		c.log.Warn("embeddings not enabled, similarity search unavailable")
		return nil, nil
	}

	vectors, err := c.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return c.index.SearchSimilar(vectors[0], topK, 0), nil
}

func (c *Coder) aggregate(allCodes map[int]models.CodeSet) *models.AnalysisResult {
	c.log.Processing("post-processing codes")
	consolidated := postprocess.Consolidate(allCodes)

	return &models.AnalysisResult{
		Codes:         allCodes,
		Consolidated:  consolidated,
		Hierarchy:     postprocess.BuildHierarchy(allCodes),
		TopFindings:   postprocess.PrioritizeFindings(allCodes),
		Insights:      postprocess.GenerateInsights(allCodes, consolidated),
		SummaryReport: c.generator.GenerateSummaryReport(allCodes),
		Timestamp:     time.Now(),
	}
}

func participantTypeFromFilename(name string) string {
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "POTENTIAL"):
		return "potential"
	case strings.Contains(upper, "BUYER"):
		return "buyer"
	default:
		return "unknown"
	}
}

// readTextFiles loads every .txt file in dir, sorted by name for
// deterministic cluster numbering.
func readTextFiles(dir string) ([]string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: directory %s", ErrNoInput, dir)
		}
		return nil, nil, fmt.Errorf("failed to read directory %s: %v", dir, err)
	}

	var names, texts []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %v", entry.Name(), err)
		}
		names = append(names, entry.Name())
		texts = append(texts, string(data))
	}

	if len(texts) == 0 {
		return nil, nil, fmt.Errorf("%w: no .txt files in %s", ErrNoInput, dir)
	}
	return names, texts, nil
}
