package models

import "time"

// Priority is the ordinal rating attached to a sub-theme.
type Priority string

const (
	PriorityHigh    Priority = "high"
	PriorityMedium  Priority = "medium"
	PriorityLow     Priority = "low"
	PriorityUnknown Priority = "unknown"
)

// Score maps a priority onto the ranking scale used for findings.
func (p Priority) Score() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// ParsePriority normalizes a free-text priority coming out of the
// generative backend. Anything unrecognized becomes "unknown".
func ParsePriority(s string) Priority {
	switch s {
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	case "low":
		return PriorityLow
	default:
		return PriorityUnknown
	}
}

// TextChunk is a bounded, sentence-respecting span of one source text.
// Source is the index of the input text the chunk was cut from.
type TextChunk struct {
	Content string
	Source  int
	Length  int
}

// SubTheme is a single coded finding within a theme.
type SubTheme struct {
	SubCode      string   `json:"sub_code"`
	Description  string   `json:"description"`
	Priority     Priority `json:"priority"`
	ExampleQuote string   `json:"example_quote,omitempty"`
	Speaker      string   `json:"speaker,omitempty"`
}

// ThemeCode is a named qualitative category with its sub-themes.
type ThemeCode struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	SubThemes   []SubTheme `json:"sub_themes"`
}

// CodeSet is the ordered set of themes generated for one cluster.
// Order is the order the backend (or the fallback) produced them in,
// which downstream ranking relies on for stable tie-breaks.
type CodeSet []ThemeCode

// Get returns the theme with the given name, if present.
func (cs CodeSet) Get(name string) (ThemeCode, bool) {
	for _, t := range cs {
		if t.Name == name {
			return t, true
		}
	}
	return ThemeCode{}, false
}

// ClusterGroup holds one cluster's chunks and their parallel embeddings.
// Embeddings may be shorter than Chunks (or empty) when the embedding
// subsystem is disabled or failed mid-run; consumers must tolerate that.
type ClusterGroup struct {
	Chunks     []TextChunk
	Embeddings [][]float32
}

// ChunkInfo is an aggregate over a chunk sequence.
type ChunkInfo struct {
	TotalChunks int     `json:"total_chunks"`
	AvgLength   float64 `json:"avg_chunk_length"`
	MinLength   int     `json:"min_chunk_length"`
	MaxLength   int     `json:"max_chunk_length"`
	TotalChars  int     `json:"total_characters"`
}

// ThemeCount pairs a theme name with how many clusters produced it.
type ThemeCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Consolidated is the cross-cluster rollup of all generated codes.
type Consolidated struct {
	TotalClusters        int              `json:"total_clusters"`
	TotalThemes          int              `json:"total_themes"`
	TotalSubThemes       int              `json:"total_sub_themes"`
	CommonThemes         []string         `json:"common_themes"`
	PriorityDistribution map[Priority]int `json:"priority_distribution"`
	ThemeFrequency       []ThemeCount     `json:"theme_frequency"`
}

// Finding is one flattened, ranked sub-theme.
type Finding struct {
	Cluster       int      `json:"cluster"`
	Theme         string   `json:"theme"`
	SubTheme      string   `json:"sub_theme"`
	Description   string   `json:"description"`
	Priority      Priority `json:"priority"`
	PriorityScore int      `json:"priority_score"`
}

// Hierarchy is the lossless tree re-projection of all codes.
type Hierarchy struct {
	Root     string             `json:"root"`
	Clusters []HierarchyCluster `json:"clusters"`
}

type HierarchyCluster struct {
	ClusterID int              `json:"cluster_id"`
	Themes    []HierarchyTheme `json:"themes"`
}

type HierarchyTheme struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	SubThemes   []HierarchySubTheme `json:"sub_themes"`
}

type HierarchySubTheme struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}

// IndexStats summarizes the contents of a similarity index.
type IndexStats struct {
	Size          int     `json:"size"`
	Dimensions    int     `json:"dimensions"`
	MeanMagnitude float64 `json:"mean_magnitude"`
	UniqueIDs     int     `json:"unique_ids"`
}

// SegmentObjectives is the research framing for one participant segment.
type SegmentObjectives struct {
	ResearchObjectives []string `json:"Research Objectives"`
	KeyQuestions       []string `json:"Key Research Questions"`
}

// ProjectContext carries the optional research framing injected into
// code-generation prompts. A zero value is valid and means context-free
// prompting; each field toggles its prompt section independently.
type ProjectContext struct {
	Objectives         map[string]SegmentObjectives
	ResearchBrief      string
	BrandContext       map[string]any
	CompetitorAnalysis string
}

// Empty reports whether no context section is populated.
func (pc *ProjectContext) Empty() bool {
	if pc == nil {
		return true
	}
	return len(pc.Objectives) == 0 && pc.ResearchBrief == "" &&
		len(pc.BrandContext) == 0 && pc.CompetitorAnalysis == ""
}

// AnalysisResult is the complete output of one analysis run. It is
// built once by the pipeline and read-only afterwards.
type AnalysisResult struct {
	ProjectName    string            `json:"project_name,omitempty"`
	SourceFiles    []string          `json:"source_files,omitempty"`
	OriginalTexts  []string          `json:"original_texts,omitempty"`
	ProcessedTexts []string          `json:"processed_texts,omitempty"`
	Chunks         []TextChunk       `json:"-"`
	Codes          map[int]CodeSet   `json:"codes"`
	Consolidated   Consolidated      `json:"consolidated_analysis"`
	Hierarchy      Hierarchy         `json:"code_hierarchy"`
	TopFindings    []Finding         `json:"top_findings"`
	Insights       []string          `json:"insights"`
	SummaryReport  string            `json:"summary_report"`
	ChunkInfo      ChunkInfo         `json:"chunk_info"`
	VectorStats    *IndexStats       `json:"vector_stats,omitempty"`
	Metadata       map[string]string `json:"project_metadata,omitempty"`
	Timestamp      time.Time         `json:"analysis_timestamp"`
}
