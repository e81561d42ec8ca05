package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kmw/qualcoder/internal/models"
	"github.com/kmw/qualcoder/internal/types"
	"github.com/kmw/qualcoder/pkg/logging"
)

// Exporter writes analysis results under a project-scoped output
// directory in one or more formats.
type Exporter struct {
	outputsDir string
	log        types.Logger
}

func New(outputsDir string, log types.Logger) *Exporter {
	if outputsDir == "" {
		outputsDir = "outputs"
	}
	if log == nil {
		log = logging.Silent{}
	}
	return &Exporter{outputsDir: outputsDir, log: log}
}

func (e *Exporter) targetPath(result *models.AnalysisResult, filename, ext string) (string, error) {
	dir := e.outputsDir
	if result.ProjectName != "" {
		dir = filepath.Join(dir, result.ProjectName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %v", err)
	}
	if filename == "" {
		filename = "qualitative_analysis_" + time.Now().Format("20060102_150405") + ext
	}
	return filepath.Join(dir, filename), nil
}

// JSON writes the full result as indented JSON.
func (e *Exporter) JSON(result *models.AnalysisResult, filename string) (string, error) {
	path, err := e.targetPath(result, filename, ".json")
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write JSON export: %v", err)
	}

	e.log.Success("results saved to: %s", path)
	return path, nil
}

// Markdown writes a readable report: summary, consolidated statistics,
// top findings and insights.
func (e *Exporter) Markdown(result *models.AnalysisResult, filename string) (string, error) {
	path, err := e.targetPath(result, filename, ".md")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(result.SummaryReport)
	b.WriteString("\n\n## Consolidated Analysis\n\n")
	fmt.Fprintf(&b, "- Clusters analyzed: %d\n", result.Consolidated.TotalClusters)
	fmt.Fprintf(&b, "- Distinct themes: %d\n", result.Consolidated.TotalThemes)
	fmt.Fprintf(&b, "- Sub-themes: %d\n", result.Consolidated.TotalSubThemes)
	if len(result.Consolidated.CommonThemes) > 0 {
		fmt.Fprintf(&b, "- Cross-cluster themes: %s\n", strings.Join(result.Consolidated.CommonThemes, ", "))
	}

	if len(result.TopFindings) > 0 {
		b.WriteString("\n## Top Findings\n\n")
		for i, f := range result.TopFindings {
			fmt.Fprintf(&b, "%d. **%s** / %s (priority: %s, cluster %d)\n", i+1, f.Theme, f.SubTheme, f.Priority, f.Cluster)
			if f.Description != "" {
				fmt.Fprintf(&b, "   %s\n", f.Description)
			}
		}
	}

	if len(result.Insights) > 0 {
		b.WriteString("\n## Insights\n\n")
		for _, insight := range result.Insights {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write markdown export: %v", err)
	}

	e.log.Success("markdown report saved to: %s", path)
	return path, nil
}

// CSV writes the flattened findings, one row per sub-theme.
func (e *Exporter) CSV(result *models.AnalysisResult, filename string) (string, error) {
	path, err := e.targetPath(result, filename, ".csv")
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create CSV export: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"cluster", "theme", "sub_theme", "description", "priority", "priority_score"}); err != nil {
		return "", err
	}

	for _, clusterNode := range result.Hierarchy.Clusters {
		for _, theme := range clusterNode.Themes {
			for _, sub := range theme.SubThemes {
				record := []string{
					strconv.Itoa(clusterNode.ClusterID),
					theme.Name,
					sub.Name,
					sub.Description,
					string(sub.Priority),
					strconv.Itoa(sub.Priority.Score()),
				}
				if err := w.Write(record); err != nil {
					return "", err
				}
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write CSV export: %v", err)
	}

	e.log.Success("CSV export saved to: %s", path)
	return path, nil
}

// Text writes a plain-text rendering of the report and insights.
func (e *Exporter) Text(result *models.AnalysisResult, filename string) (string, error) {
	path, err := e.targetPath(result, filename, ".txt")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("QUALITATIVE CODING ANALYSIS\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	if result.ProjectName != "" {
		fmt.Fprintf(&b, "Project: %s\n", result.ProjectName)
	}
	fmt.Fprintf(&b, "Analyzed: %s\n\n", result.Timestamp.Format(time.RFC1123))

	for _, insight := range result.Insights {
		fmt.Fprintf(&b, "* %s\n", insight)
	}
	b.WriteString("\n")
	b.WriteString(result.SummaryReport)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write text export: %v", err)
	}

	e.log.Success("text report saved to: %s", path)
	return path, nil
}

// All writes every format with a shared timestamped base name and
// returns format -> path.
func (e *Exporter) All(result *models.AnalysisResult) (map[string]string, error) {
	base := "qualitative_analysis_" + time.Now().Format("20060102_150405")

	paths := make(map[string]string, 4)
	exports := []struct {
		format string
		write  func(*models.AnalysisResult, string) (string, error)
		ext    string
	}{
		{"json", e.JSON, ".json"},
		{"markdown", e.Markdown, ".md"},
		{"csv", e.CSV, ".csv"},
		{"text", e.Text, ".txt"},
	}

	for _, exp := range exports {
		path, err := exp.write(result, base+exp.ext)
		if err != nil {
			return paths, err
		}
		paths[exp.format] = path
	}
	return paths, nil
}
