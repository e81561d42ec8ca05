package postprocess

import (
	"fmt"
	"sort"

	"github.com/kmw/qualcoder/internal/models"
)

// highDiversityThreshold splits the "high" and "moderate" qualifiers
// in the theme-diversity insight.
const highDiversityThreshold = 3.0

// Consolidate rolls up all generated codes across clusters: distinct
// theme count, cross-cluster common themes, priority distribution and
// the top-10 theme frequency table (descending count, first-seen
// tie-break).
func Consolidate(allCodes map[int]models.CodeSet) models.Consolidated {
	var themeOrder []string
	themeCounts := make(map[string]int)
	priorityCounts := make(map[models.Priority]int)
	totalSubThemes := 0

	for _, id := range sortedClusterIDs(allCodes) {
		for _, theme := range allCodes[id] {
			if _, seen := themeCounts[theme.Name]; !seen {
				themeOrder = append(themeOrder, theme.Name)
			}
			themeCounts[theme.Name]++

			for _, sub := range theme.SubThemes {
				totalSubThemes++
				priorityCounts[sub.Priority]++
			}
		}
	}

	var common []string
	for _, name := range themeOrder {
		if themeCounts[name] > 1 {
			common = append(common, name)
		}
	}

	frequency := make([]models.ThemeCount, 0, len(themeOrder))
	for _, name := range themeOrder {
		frequency = append(frequency, models.ThemeCount{Name: name, Count: themeCounts[name]})
	}
	sort.SliceStable(frequency, func(a, b int) bool {
		return frequency[a].Count > frequency[b].Count
	})
	if len(frequency) > 10 {
		frequency = frequency[:10]
	}

	return models.Consolidated{
		TotalClusters:        len(allCodes),
		TotalThemes:          len(themeCounts),
		TotalSubThemes:       totalSubThemes,
		CommonThemes:         common,
		PriorityDistribution: priorityCounts,
		ThemeFrequency:       frequency,
	}
}

// BuildHierarchy re-projects all codes into a tree. Lossless, no
// filtering.
func BuildHierarchy(allCodes map[int]models.CodeSet) models.Hierarchy {
	hierarchy := models.Hierarchy{Root: "Qualitative Analysis"}

	for _, id := range sortedClusterIDs(allCodes) {
		clusterNode := models.HierarchyCluster{ClusterID: id}

		for _, theme := range allCodes[id] {
			themeNode := models.HierarchyTheme{
				Name:        theme.Name,
				Description: theme.Description,
			}
			for _, sub := range theme.SubThemes {
				themeNode.SubThemes = append(themeNode.SubThemes, models.HierarchySubTheme{
					Name:        sub.SubCode,
					Description: sub.Description,
					Priority:    sub.Priority,
				})
			}
			clusterNode.Themes = append(clusterNode.Themes, themeNode)
		}

		hierarchy.Clusters = append(hierarchy.Clusters, clusterNode)
	}

	return hierarchy
}

// PrioritizeFindings flattens every sub-theme and ranks by descending
// priority score. Equal scores keep flattening order (cluster id
// ascending, then theme order, then sub-theme order). At most the top
// 10 findings are returned.
func PrioritizeFindings(allCodes map[int]models.CodeSet) []models.Finding {
	var findings []models.Finding

	for _, id := range sortedClusterIDs(allCodes) {
		for _, theme := range allCodes[id] {
			for _, sub := range theme.SubThemes {
				findings = append(findings, models.Finding{
					Cluster:       id,
					Theme:         theme.Name,
					SubTheme:      sub.SubCode,
					Description:   sub.Description,
					Priority:      sub.Priority,
					PriorityScore: sub.Priority.Score(),
				})
			}
		}
	}

	sort.SliceStable(findings, func(a, b int) bool {
		return findings[a].PriorityScore > findings[b].PriorityScore
	})

	if len(findings) > 10 {
		findings = findings[:10]
	}
	return findings
}

// GenerateInsights renders up to four templated statements from the
// consolidated analysis. Each insight is independently optional:
// a missing precondition just omits it.
func GenerateInsights(allCodes map[int]models.CodeSet, consolidated models.Consolidated) []string {
	var insights []string

	total := 0
	for _, count := range consolidated.PriorityDistribution {
		total += count
	}
	if total > 0 {
		highPct := float64(consolidated.PriorityDistribution[models.PriorityHigh]) / float64(total) * 100
		insights = append(insights, fmt.Sprintf(
			"High-priority items represent %.1f%% of all sub-themes, indicating areas requiring immediate attention", highPct))
	}

	if len(consolidated.CommonThemes) > 0 {
		insights = append(insights, fmt.Sprintf(
			"Found %d themes that appear across multiple clusters, suggesting cross-cutting issues", len(consolidated.CommonThemes)))
	}

	if consolidated.TotalThemes > 0 && consolidated.TotalClusters > 0 {
		avg := float64(consolidated.TotalThemes) / float64(consolidated.TotalClusters)
		qualifier := "moderate"
		if avg > highDiversityThreshold {
			qualifier = "high"
		}
		insights = append(insights, fmt.Sprintf(
			"Average of %.1f unique themes per cluster indicates %s thematic diversity", avg, qualifier))
	}

	if len(consolidated.ThemeFrequency) > 0 {
		insights = append(insights, fmt.Sprintf(
			"'%s' emerged as the most prominent theme across the analysis", consolidated.ThemeFrequency[0].Name))
	}

	return insights
}

func sortedClusterIDs(allCodes map[int]models.CodeSet) []int {
	ids := make([]int, 0, len(allCodes))
	for id := range allCodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
