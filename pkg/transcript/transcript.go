package transcript

import (
	"regexp"
	"strings"

	"github.com/kmw/qualcoder/internal/types"
	"github.com/kmw/qualcoder/pkg/chunker"
	"github.com/kmw/qualcoder/pkg/logging"
)

// minTurnLength filters out conversational noise ("yeah", "okay").
const minTurnLength = 50

// minSampleLength is the point below which a focused sample is
// considered too sparse to be worth sending for coding.
const minSampleLength = 1000

var (
	speakerRe   = regexp.MustCompile(`P\d+.*?\[[\d:]+\s*-\s*[\d:]+\]:|Moderator\s*\[[\d:]+\s*-\s*[\d:]+\]:|Speaker \d+:|Participant \d+:`)
	moderatorRe = regexp.MustCompile(`Moderator\s*\[[\d:]+\s*-\s*[\d:]+\]:`)
)

// SpeakerTurn is one substantial utterance attributed to a speaker.
type SpeakerTurn struct {
	Speaker string
	Text    string
	Length  int
}

// ThemeCategories lists the fixed scan categories in contract order.
var ThemeCategories = []string{
	"brand_mentions",
	"product_feedback",
	"purchase_behavior",
	"competitor_mentions",
	"price_value",
	"usage_context",
	"emotional_language",
}

var themePatterns = map[string]*regexp.Regexp{
	"brand_mentions":      regexp.MustCompile(`(?i)(Icebreaker|the brand|their products?|they|them)`),
	"product_feedback":    regexp.MustCompile(`(?i)(quality|durability|comfort|fit|fabric|material|design|style|color)`),
	"purchase_behavior":   regexp.MustCompile(`(?i)(buy|bought|purchase|shop|store|online|price|\$|dollar|worth|value)`),
	"competitor_mentions": regexp.MustCompile(`(?i)(Patagonia|North Face|Kathmandu|Smartwool|REI|other brand)`),
	"price_value":         regexp.MustCompile(`(?i)(expensive|cheap|worth|value|price|cost|afford|budget|money)`),
	"usage_context":       regexp.MustCompile(`(?i)(wear|use|when I|during|for my|hiking|running|travel|work|casual)`),
	"emotional_language":  regexp.MustCompile(`(?i)(love|hate|frustrated|happy|disappointed|excited|annoyed|satisfied)`),
}

// Segmenter splits structured dialogue transcripts on speaker and
// moderator markers and extracts theme-focused excerpts.
type Segmenter struct {
	log types.Logger
}

func NewSegmenter(log types.Logger) *Segmenter {
	if log == nil {
		log = logging.Silent{}
	}
	return &Segmenter{log: log}
}

// ExtractSpeakerTurns splits the transcript on speaker markers such as
// `P1 [00:00:12 - 00:00:20]:` or `Participant 3:` and keeps turns with
// more than minTurnLength characters of content.
func (s *Segmenter) ExtractSpeakerTurns(transcript string) []SpeakerTurn {
	locs := speakerRe.FindAllStringIndex(transcript, -1)

	var turns []SpeakerTurn
	for i, loc := range locs {
		speaker := strings.TrimSpace(transcript[loc[0]:loc[1]])
		end := len(transcript)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		text := strings.TrimSpace(transcript[loc[1]:end])
		if len(text) > minTurnLength {
			turns = append(turns, SpeakerTurn{Speaker: speaker, Text: text, Length: len(text)})
		}
	}
	return turns
}

// CreateTopicChunks splits the transcript on moderator turns (each
// moderator question is a topic boundary) and greedily packs
// consecutive sections up to targetSize characters. If that yields
// fewer than 3 chunks for a transcript longer than twice targetSize,
// it falls back to sentence-boundary packing.
func (s *Segmenter) CreateTopicChunks(transcript string, targetSize int) []string {
	if targetSize <= 0 {
		targetSize = 5000
	}

	sections := moderatorRe.Split(transcript, -1)

	var chunks []string
	current := ""
	for _, section := range sections {
		if len(current)+len(section) < targetSize {
			current += section + "\n"
			continue
		}
		if strings.TrimSpace(current) != "" {
			chunks = append(chunks, current)
		}
		current = section
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}

	if len(chunks) < 3 && len(transcript) > targetSize*2 {
		chunks = splitBySentences(transcript, targetSize)
	}

	s.log.Info("created %d topic-based chunks", len(chunks))
	return chunks
}

func splitBySentences(text string, targetSize int) []string {
	sentences := chunker.SplitSentences(text)

	var chunks []string
	current := ""
	for _, sentence := range sentences {
		if len(current)+len(sentence) < targetSize {
			current += sentence + " "
			continue
		}
		if current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
		}
		current = sentence + " "
	}
	if current != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

// ExtractKeyThemes scans every sentence against the fixed category
// patterns and collects matches, deduplicated in first-seen order and
// capped at 10 per category.
func (s *Segmenter) ExtractKeyThemes(transcript string) map[string][]string {
	themes := make(map[string][]string, len(ThemeCategories))
	seen := make(map[string]map[string]bool, len(ThemeCategories))
	for _, cat := range ThemeCategories {
		themes[cat] = []string{}
		seen[cat] = make(map[string]bool)
	}

	for _, sentence := range chunker.SplitSentences(transcript) {
		for _, cat := range ThemeCategories {
			if len(themes[cat]) >= 10 {
				continue
			}
			if themePatterns[cat].MatchString(sentence) && !seen[cat][sentence] {
				seen[cat][sentence] = true
				themes[cat] = append(themes[cat], sentence)
			}
		}
	}
	return themes
}

// sampleSections are the priority categories rendered into the focused
// sample, in order, with their section headers.
var sampleSections = []struct {
	category string
	header   string
}{
	{"brand_mentions", "=== Brand Discussions ==="},
	{"product_feedback", "=== Product Feedback ==="},
	{"purchase_behavior", "=== Purchase Behavior ==="},
	{"emotional_language", "=== Emotional Responses ==="},
}

// PrepareForCoding builds a bounded, theme-ordered excerpt of the
// transcript: up to 5 items from each priority category under its
// section header, truncated at maxLength. If the themed excerpt comes
// out shorter than minSampleLength, the first 3 topic chunks are
// substituted instead.
func (s *Segmenter) PrepareForCoding(transcript string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = 15000
	}

	themes := s.ExtractKeyThemes(transcript)

	var sample []string
	for i, sec := range sampleSections {
		items := themes[sec.category]
		if len(items) == 0 {
			continue
		}
		header := sec.header
		if i > 0 {
			header = "\n" + header
		}
		sample = append(sample, header)
		if len(items) > 5 {
			items = items[:5]
		}
		sample = append(sample, items...)
	}

	focused := strings.Join(sample, "\n")
	if len(focused) > maxLength {
		focused = focused[:maxLength]
	}

	if len(focused) < minSampleLength {
		chunks := s.CreateTopicChunks(transcript, 5000)
		if len(chunks) > 3 {
			chunks = chunks[:3]
		}
		if len(chunks) > 0 {
			focused = strings.Join(chunks, "\n")
			if len(focused) > maxLength {
				focused = focused[:maxLength]
			}
		}
	}

	return focused
}
