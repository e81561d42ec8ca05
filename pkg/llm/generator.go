package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
	"golang.org/x/time/rate"

	"github.com/kmw/qualcoder/internal/models"
	"github.com/kmw/qualcoder/internal/types"
	"github.com/kmw/qualcoder/pkg/logging"
)

const systemPrompt = "You are an expert qualitative researcher specializing in market research and thematic analysis."

// GeneratorConfig represents the configuration for a code generator.
type GeneratorConfig struct {
	Model       string
	BaseURL     string // Ollama server URL
	Temperature float64
	MaxTokens   int
	RateLimit   float64 // backend calls per second
	CallTimeout time.Duration
}

// Generator asks the generative backend for thematic codes, one
// bounded call per cluster, and parses the response defensively.
type Generator struct {
	config  GeneratorConfig
	model   llms.Model
	limiter *rate.Limiter
	log     types.Logger
}

func NewGenerator(config GeneratorConfig, log types.Logger) (*Generator, error) {
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	model, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generative backend: %w", err)
	}

	return NewGeneratorWithModel(model, config, log), nil
}

// NewGeneratorWithModel wires an explicit backend model. A nil model is
// valid and makes every GenerateCodes call return the fallback set.
func NewGeneratorWithModel(model llms.Model, config GeneratorConfig, log types.Logger) *Generator {
	if config.Temperature <= 0 {
		config.Temperature = 0.3
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1000
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = 60 * time.Second
	}
	if log == nil {
		log = logging.Silent{}
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return &Generator{
		config:  config,
		model:   model,
		limiter: limiter,
		log:     log,
	}
}

// GenerateCodes generates hierarchical qualitative codes for one
// cluster of chunks. Backend failures degrade to the fallback set;
// unparseable responses degrade to an empty set. At most one backend
// call is made, with no retry.
func (g *Generator) GenerateCodes(ctx context.Context, chunks []models.TextChunk, clusterID int,
	embeddings [][]float32, pctx *models.ProjectContext, participantType string) models.CodeSet {

	if g.model == nil {
		g.log.Warn("generative backend not initialized, using fallback codes for cluster %d", clusterID)
		return FallbackCodes()
	}

	g.log.Processing("generating codes for cluster %d with %d segments", clusterID, len(chunks))

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, buildPrompt(chunks, pctx, participantType)),
	}
	if len(embeddings) > 0 {
		content = append(content, llms.TextParts(schema.ChatMessageTypeHuman,
			fmt.Sprintf("Embeddings are available for %d text segments for additional context.", len(embeddings))))
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.log.Error("rate limiter interrupted for cluster %d: %v", clusterID, err)
			return FallbackCodes()
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.config.CallTimeout)
	defer cancel()

	resp, err := g.model.GenerateContent(callCtx, content,
		llms.WithTemperature(g.config.Temperature),
		llms.WithMaxTokens(g.config.MaxTokens),
	)
	if err != nil {
		g.log.Error("code generation failed for cluster %d: %v", clusterID, err)
		return FallbackCodes()
	}
	if resp == nil || len(resp.Choices) == 0 {
		g.log.Error("empty response from backend for cluster %d", clusterID)
		return FallbackCodes()
	}

	codes, err := parseResponse(resp.Choices[0].Content)
	if err != nil {
		g.log.Error("error parsing response for cluster %d: %v", clusterID, err)
		return models.CodeSet{}
	}

	g.log.Success("generated %d themes for cluster %d", len(codes), clusterID)
	return codes
}

func buildPrompt(chunks []models.TextChunk, pctx *models.ProjectContext, participantType string) string {
	if participantType == "" {
		participantType = "unknown"
	}

	var segments strings.Builder
	for _, ch := range chunks {
		segments.WriteString("- ")
		segments.WriteString(ch.Content)
		segments.WriteString("\n")
	}

	var b strings.Builder
	b.WriteString("You are an expert qualitative market researcher analyzing focus group and interview transcripts.\n\n")

	if ctxSection := buildContextSection(pctx, participantType); ctxSection != "" {
		b.WriteString(ctxSection)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Transcript segments to analyze (Participant Type: %s):\n%s\n", participantType, segments.String())

	b.WriteString(`Perform market research coding to identify SPECIFIC insights relevant to the research objectives.
Focus on insights that directly address the research questions and objectives provided.

Identify 3-4 KEY INSIGHTS that are:
- DIRECTLY RELEVANT to the research objectives above
- SPECIFIC to what participants said about the brand vs competitors
- ACTIONABLE for the brand's business strategy
- Include REAL quotes from the transcript

Structure your answer as JSON:
{
  "themes": [
    {
      "theme_name": "[Specific insight]",
      "theme_description": "[What participants specifically said in this context]",
      "sub_themes": [
        {
          "sub_code": "[Specific finding]",
          "description": "[How this impacts the brand's market position and what action it suggests]",
          "priority": "high/medium/low",
          "example_quote": "[EXACT quote from the transcript - copy paste]",
          "speaker": "[Speaker name/ID from transcript, e.g., 'P1', 'Moderator', 'Participant 3']"
        }
      ]
    }
  ]
}

CRITICAL:
- Address the research objectives and questions provided
- Extract ACTUAL quotes from the text (don't fabricate)
- Include the SPEAKER ID/NAME for each quote (look for patterns like "P1:", "Participant 1:", "Speaker:", etc.)
- If no clear speaker label is found, use "Participant" as default
- Prioritize based on business impact

Respond only with the JSON object.
`)
	return b.String()
}

func buildContextSection(pctx *models.ProjectContext, participantType string) string {
	if pctx.Empty() {
		return ""
	}

	var b strings.Builder

	if segment := segmentForParticipant(participantType); segment != "" {
		if obj, ok := pctx.Objectives[segment]; ok {
			fmt.Fprintf(&b, "RESEARCH CONTEXT FOR %s:\n", strings.ToUpper(segment))
			b.WriteString("Research Objectives:\n")
			for _, o := range obj.ResearchObjectives {
				b.WriteString("- " + o + "\n")
			}
			b.WriteString("\nKey Questions to Address:\n")
			for _, q := range obj.KeyQuestions {
				b.WriteString("- " + q + "\n")
			}
		}
	}

	if len(pctx.BrandContext) > 0 {
		if data, err := json.MarshalIndent(pctx.BrandContext, "", "  "); err == nil {
			b.WriteString("\nBRAND CONTEXT:\n")
			b.Write(data)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func segmentForParticipant(participantType string) string {
	switch participantType {
	case "buyer":
		return "Buyers"
	case "potential":
		return "Potential Buyers"
	default:
		return ""
	}
}

type subThemePayload struct {
	SubCode      string `json:"sub_code"`
	Description  string `json:"description"`
	Priority     string `json:"priority"`
	ExampleQuote string `json:"example_quote"`
	Speaker      string `json:"speaker"`
}

func (p subThemePayload) toSubTheme() models.SubTheme {
	sub := models.SubTheme{
		SubCode:      p.SubCode,
		Description:  p.Description,
		Priority:     models.ParsePriority(p.Priority),
		ExampleQuote: p.ExampleQuote,
		Speaker:      p.Speaker,
	}
	if sub.SubCode == "" {
		sub.SubCode = "Unknown"
	}
	return sub
}

// parseResponse isolates the JSON object between the first '{' and the
// last '}' in the raw response and normalizes either response shape
// (themes array, or the legacy name -> sub-theme-list mapping) into a
// CodeSet. Everything downstream sees one canonical shape.
func parseResponse(raw string) (models.CodeSet, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, errors.New("no JSON object found in response")
	}
	jsonStr := raw[start : end+1]

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &top); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}

	if themesRaw, ok := top["themes"]; ok {
		var themes []struct {
			ThemeName        string            `json:"theme_name"`
			ThemeDescription string            `json:"theme_description"`
			SubThemes        []subThemePayload `json:"sub_themes"`
		}
		if err := json.Unmarshal(themesRaw, &themes); err != nil {
			return nil, fmt.Errorf("malformed themes array: %w", err)
		}

		codes := models.CodeSet{}
		for _, t := range themes {
			name := t.ThemeName
			if name == "" {
				name = "Unknown Theme"
			}
			theme := models.ThemeCode{Name: name, Description: t.ThemeDescription}
			for _, sub := range t.SubThemes {
				theme.SubThemes = append(theme.SubThemes, sub.toSubTheme())
			}
			codes = append(codes, theme)
		}
		return codes, nil
	}

	return parseLegacy(jsonStr)
}

// parseLegacy handles the old name -> list-of-sub-themes shape,
// synthesizing a generic description per theme. A token walk keeps the
// document's key order, which map unmarshaling would lose.
func parseLegacy(jsonStr string) (models.CodeSet, error) {
	dec := json.NewDecoder(strings.NewReader(jsonStr))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("response is not a JSON object")
	}

	codes := models.CodeSet{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)

		var rawVal json.RawMessage
		if err := dec.Decode(&rawVal); err != nil {
			return nil, err
		}

		var subs []subThemePayload
		if err := json.Unmarshal(rawVal, &subs); err != nil {
			// Not a sub-theme list; skip this key.
			continue
		}

		theme := models.ThemeCode{
			Name:        key,
			Description: "Theme related to " + strings.ReplaceAll(strings.ToLower(key), "_", " "),
		}
		for _, sub := range subs {
			theme.SubThemes = append(theme.SubThemes, sub.toSubTheme())
		}
		codes = append(codes, theme)
	}
	return codes, nil
}

// FallbackCodes is the fixed theme set returned when the generative
// backend is unusable, so downstream aggregation never sees an empty
// analysis.
func FallbackCodes() models.CodeSet {
	return models.CodeSet{
		{
			Name:        "Brand Perception",
			Description: "How participants view and understand the brand identity and values.",
			SubThemes: []models.SubTheme{
				{SubCode: "Quality of Products", Description: "Perceptions about product quality and reliability.", Priority: models.PriorityHigh},
				{SubCode: "Brand Reputation", Description: "Overall brand standing and trustworthiness in the market.", Priority: models.PriorityMedium},
			},
		},
		{
			Name:        "Product Range",
			Description: "Feedback about the variety and features of products offered.",
			SubThemes: []models.SubTheme{
				{SubCode: "Variety of Offerings", Description: "Range and diversity of products available.", Priority: models.PriorityHigh},
				{SubCode: "Innovation Features", Description: "New and unique product capabilities.", Priority: models.PriorityMedium},
			},
		},
		{
			Name:        "Market Positioning",
			Description: "How the brand competes and positions itself in the marketplace.",
			SubThemes: []models.SubTheme{
				{SubCode: "Price Competitiveness", Description: "Value proposition compared to competitors.", Priority: models.PriorityMedium},
				{SubCode: "Target Audience", Description: "Alignment with customer needs and demographics.", Priority: models.PriorityLow},
			},
		},
	}
}

// GenerateSummaryReport renders all themes and sub-themes across
// clusters as markdown. Purely a formatting function, no backend call.
func (g *Generator) GenerateSummaryReport(allCodes map[int]models.CodeSet) string {
	lines := []string{"# Qualitative Coding Analysis Report\n"}

	for _, id := range sortedClusterIDs(allCodes) {
		lines = append(lines, fmt.Sprintf("## Cluster %d\n", id))

		for _, theme := range allCodes[id] {
			lines = append(lines, "### "+theme.Name)
			if theme.Description != "" {
				lines = append(lines, "*"+theme.Description+"*\n")
			}
			for _, sub := range theme.SubThemes {
				lines = append(lines, fmt.Sprintf("- **%s** (Priority: %s)", sub.SubCode, sub.Priority))
				if sub.Description != "" {
					lines = append(lines, "  - "+sub.Description)
				}
			}
			lines = append(lines, "")
		}
	}

	return strings.Join(lines, "\n")
}

func sortedClusterIDs(allCodes map[int]models.CodeSet) []int {
	ids := make([]int, 0, len(allCodes))
	for id := range allCodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
