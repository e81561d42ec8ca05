package coder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/kmw/qualcoder/internal/models"
)

// loadProjectContext reads the optional research framing from the
// project's objectives/ directory. Every file is independently
// optional; a missing or malformed file logs a warning and leaves its
// section empty.
func (c *Coder) loadProjectContext(projectPath string) *models.ProjectContext {
	objectivesDir := filepath.Join(projectPath, "objectives")
	if _, err := os.Stat(objectivesDir); err != nil {
		c.log.Warn("no 'objectives' directory found, analyzing without research context")
		return &models.ProjectContext{}
	}

	pctx := &models.ProjectContext{}

	if data, err := os.ReadFile(filepath.Join(objectivesDir, "objectives.json")); err == nil {
		var objectives map[string]models.SegmentObjectives
		if err := json.Unmarshal(data, &objectives); err != nil {
			c.log.Warn("could not parse objectives.json: %v", err)
		} else {
			pctx.Objectives = objectives
		}
	}

	if data, err := os.ReadFile(filepath.Join(objectivesDir, "research_brief.txt")); err == nil {
		pctx.ResearchBrief = strings.TrimSpace(string(data))
	}

	if data, err := os.ReadFile(filepath.Join(objectivesDir, "brand_context.json")); err == nil {
		var brand map[string]any
		if err := json.Unmarshal(data, &brand); err != nil {
			c.log.Warn("could not parse brand_context.json: %v", err)
		} else {
			pctx.BrandContext = brand
		}
	}

	if data, err := os.ReadFile(filepath.Join(objectivesDir, "competitor_analysis.txt")); err == nil {
		pctx.CompetitorAnalysis = strings.TrimSpace(string(data))
	}

	if pctx.Empty() {
		c.log.Warn("objectives directory present but no context files loaded")
	} else {
		c.log.Success("loaded project research context")
	}
	return pctx
}
