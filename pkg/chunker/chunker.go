package chunker

import (
	"regexp"
	"strings"

	"github.com/kmw/qualcoder/internal/models"
	"github.com/kmw/qualcoder/internal/types"
	"github.com/kmw/qualcoder/pkg/logging"
)

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

// SplitSentences splits text on sentence-ending punctuation. Trailing
// text without a terminator becomes a final sentence.
func SplitSentences(text string) []string {
	locs := sentenceRe.FindAllStringIndex(text, -1)
	var sentences []string
	last := 0
	for _, loc := range locs {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

type ChunkerConfig struct {
	MaxChunkSize     int
	OverlapSentences int
	MinSentences     int
}

// Chunker splits raw text into bounded, sentence-respecting chunks
// with a sentence-count overlap between adjacent chunks.
type Chunker struct {
	config ChunkerConfig
	log    types.Logger
}

func NewWithConfig(config ChunkerConfig, log types.Logger) *Chunker {
	if config.MaxChunkSize == 0 {
		config.MaxChunkSize = 512
	}
	if config.OverlapSentences < 0 {
		config.OverlapSentences = 0
	}
	if config.MinSentences < 1 {
		config.MinSentences = 1
	}
	if log == nil {
		log = logging.Silent{}
	}

	return &Chunker{
		config: config,
		log:    log,
	}
}

// Chunk greedily packs sentences into chunks of at most MaxChunkSize
// characters. A closed chunk seeds the next one with its last
// OverlapSentences sentences. A sentence longer than MaxChunkSize is
// emitted as its own chunk and does not seed overlap. Source is the
// index of the originating input text.
func (c *Chunker) Chunk(text string, source int) []models.TextChunk {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		c.log.Warn("no sentence boundaries found, returning input as one chunk")
		return []models.TextChunk{{Content: trimmed, Source: source, Length: len(trimmed)}}
	}

	var chunks []models.TextChunk
	var current []string
	currentLen := 0

	joinedLen := func(add string) int {
		n := currentLen + len(add)
		if currentLen > 0 {
			n++ // joining space
		}
		return n
	}

	for _, sentence := range sentences {
		if len(sentence) > c.config.MaxChunkSize {
			if len(current) > 0 {
				chunks = append(chunks, c.emit(current, source))
			}
			chunks = append(chunks, models.TextChunk{Content: sentence, Source: source, Length: len(sentence)})
			current = nil
			currentLen = 0
			continue
		}

		if joinedLen(sentence) > c.config.MaxChunkSize && len(current) >= c.config.MinSentences {
			chunks = append(chunks, c.emit(current, source))

			keep := len(current) - c.config.OverlapSentences
			if keep < 0 {
				keep = 0
			}
			current = append([]string(nil), current[keep:]...)
			currentLen = len(strings.Join(current, " "))

			// Drop overlap from the front if it would push the new
			// chunk past the bound together with the next sentence.
			for len(current) > 0 && joinedLen(sentence) > c.config.MaxChunkSize {
				current = current[1:]
				currentLen = len(strings.Join(current, " "))
			}
		}

		currentLen = joinedLen(sentence)
		current = append(current, sentence)
	}

	if len(current) > 0 {
		chunks = append(chunks, c.emit(current, source))
	}

	c.log.Info("split text into %d chunks", len(chunks))
	return chunks
}

func (c *Chunker) emit(sentences []string, source int) models.TextChunk {
	content := strings.Join(sentences, " ")
	return models.TextChunk{Content: content, Source: source, Length: len(content)}
}

// ChunkMany chunks each text in order and concatenates the outputs.
// Chunks never span two input texts.
func (c *Chunker) ChunkMany(texts []string) []models.TextChunk {
	var all []models.TextChunk
	for i, text := range texts {
		c.log.Processing("chunking text %d/%d", i+1, len(texts))
		all = append(all, c.Chunk(text, i)...)
	}
	c.log.Success("chunked %d texts into %d chunks", len(texts), len(all))
	return all
}

// Info aggregates basic statistics over a chunk sequence. Empty input
// yields a zero-valued result.
func Info(chunks []models.TextChunk) models.ChunkInfo {
	if len(chunks) == 0 {
		return models.ChunkInfo{}
	}

	info := models.ChunkInfo{
		TotalChunks: len(chunks),
		MinLength:   chunks[0].Length,
	}
	for _, ch := range chunks {
		info.TotalChars += ch.Length
		if ch.Length < info.MinLength {
			info.MinLength = ch.Length
		}
		if ch.Length > info.MaxLength {
			info.MaxLength = ch.Length
		}
	}
	info.AvgLength = float64(info.TotalChars) / float64(len(chunks))
	return info
}
