package export_test

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmw/qualcoder/internal/models"
	"github.com/kmw/qualcoder/pkg/export"
)

func sampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ProjectName:   "study1",
		SummaryReport: "# Qualitative Coding Analysis Report\n",
		Consolidated: models.Consolidated{
			TotalClusters:  1,
			TotalThemes:    1,
			TotalSubThemes: 2,
			CommonThemes:   []string{"Theme One"},
		},
		Hierarchy: models.Hierarchy{
			Root: "Qualitative Analysis",
			Clusters: []models.HierarchyCluster{{
				ClusterID: 1,
				Themes: []models.HierarchyTheme{{
					Name: "Theme One",
					SubThemes: []models.HierarchySubTheme{
						{Name: "Sub A", Description: "First.", Priority: models.PriorityHigh},
						{Name: "Sub B", Description: "Second.", Priority: models.PriorityLow},
					},
				}},
			}},
		},
		TopFindings: []models.Finding{
			{Cluster: 1, Theme: "Theme One", SubTheme: "Sub A", Priority: models.PriorityHigh, PriorityScore: 3},
		},
		Insights:  []string{"'Theme One' emerged as the most prominent theme across the analysis"},
		Timestamp: time.Now(),
	}
}

func TestExporter_JSON(t *testing.T) {
	dir := t.TempDir()
	e := export.New(dir, nil)

	path, err := e.JSON(sampleResult(), "result.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "study1", "result.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "consolidated_analysis")
	assert.Contains(t, decoded, "code_hierarchy")
}

func TestExporter_CSV(t *testing.T) {
	e := export.New(t.TempDir(), nil)

	path, err := e.CSV(sampleResult(), "result.csv")
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3) // header + two sub-themes
	assert.Equal(t, []string{"cluster", "theme", "sub_theme", "description", "priority", "priority_score"}, rows[0])
	assert.Equal(t, []string{"1", "Theme One", "Sub A", "First.", "high", "3"}, rows[1])
	assert.Equal(t, []string{"1", "Theme One", "Sub B", "Second.", "low", "1"}, rows[2])
}

func TestExporter_Markdown(t *testing.T) {
	e := export.New(t.TempDir(), nil)

	path, err := e.Markdown(sampleResult(), "report.md")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "# Qualitative Coding Analysis Report")
	assert.Contains(t, content, "## Consolidated Analysis")
	assert.Contains(t, content, "## Top Findings")
	assert.Contains(t, content, "## Insights")
	assert.Contains(t, content, "Cross-cluster themes: Theme One")
}

func TestExporter_All(t *testing.T) {
	e := export.New(t.TempDir(), nil)

	paths, err := e.All(sampleResult())
	require.NoError(t, err)
	require.Len(t, paths, 4)

	for format, path := range paths {
		info, err := os.Stat(path)
		require.NoError(t, err, format)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestExporter_DefaultFilenameIsTimestamped(t *testing.T) {
	e := export.New(t.TempDir(), nil)

	path, err := e.Text(sampleResult(), "")
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "qualitative_analysis_")
	assert.Equal(t, ".txt", filepath.Ext(path))
}
