// internal/services/prompts.go
package services

import (
	"fmt"
	"strings"

	"github.com/greenlit-app/greenlit/internal/models"
)

// Prompt builders for each generation stage. Prompts are assembled from the
// free-text fields of the aggregated context; no schema validation is applied
// to upstream content beyond the gate's presence checks.

const storyBibleSystemPrompt = `You are a seasoned television development executive.
You create coherent, production-ready story bibles for episodic series.`

const pipelineSystemPrompt = `You are an experienced pre-production supervisor for episodic television.
You produce practical, shoot-ready planning documents.`

func buildStoryBiblePrompt(premise, genre string, themes []string) string {
	var b strings.Builder
	b.WriteString("Create a story bible for a new series.\n\n")
	fmt.Fprintf(&b, "Premise: %s\n", premise)
	if genre != "" {
		fmt.Fprintf(&b, "Genre: %s\n", genre)
	}
	if len(themes) > 0 {
		fmt.Fprintf(&b, "Themes: %s\n", strings.Join(themes, ", "))
	}
	b.WriteString(`
Respond with JSON:
{
  "series_title": "...",
  "genre": "...",
  "premise": "...",
  "themes": ["..."],
  "main_characters": [{"name": "...", "description": "...", "archetype": "..."}],
  "narrative_arcs": [{"title": "...", "summary": "...", "episode_start": 1, "episode_end": 4}],
  "world_building": {"setting": "...", "rules": ["..."], "locations": ["..."]}
}`)
	return b.String()
}

func buildEpisodesPrompt(bible *models.StoryBible, arc models.NarrativeArc) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Series: %s (%s)\nPremise: %s\n", bible.SeriesTitle, bible.Genre, bible.Premise)
	writeCharacters(&b, bible.MainCharacters)
	fmt.Fprintf(&b, "\nArc %q (episodes %d-%d): %s\n",
		arc.Title, arc.EpisodeStart, arc.EpisodeEnd, arc.Summary)
	fmt.Fprintf(&b, `
Write every episode of this arc. Respond with JSON:
{"episodes": [{"number": %d, "title": "...", "synopsis": "...",
  "scenes": [{"number": 1, "heading": "INT. ... - DAY", "content": "..."}]}]}`,
		arc.EpisodeStart)
	return b.String()
}

func buildScriptPrompt(sc *StageContext) string {
	var b strings.Builder
	writeSeriesHeader(&b, sc)
	for _, ep := range sc.Episodes {
		fmt.Fprintf(&b, "\nEpisode %d: %s\n%s\n", ep.Number, ep.Title, ep.Synopsis)
		for _, scene := range ep.Scenes {
			fmt.Fprintf(&b, "  Scene %d (%s): %s\n", scene.Number, scene.Heading, scene.Content)
		}
	}
	b.WriteString(`
Write a full screenplay in standard format. Respond with JSON:
{"full_script": "...", "acts": ["..."], "page_count": 0}`)
	return b.String()
}

func buildBreakdownPrompt(sc *StageContext) string {
	var b strings.Builder
	writeSeriesHeader(&b, sc)
	fmt.Fprintf(&b, "\nScript:\n%s\n", sc.Script.FullScript)
	b.WriteString(`
Break the script down scene by scene for production planning. Respond with JSON:
{"scenes": [{"scene_number": 1, "heading": "...", "summary": "...",
  "characters": ["..."], "estimated_time": "...", "budget_impact": "low|medium|high"}],
 "total_estimated_time": "...", "total_budget_impact": "..."}`)
	return b.String()
}

func buildStoryboardPrompt(sc *StageContext) string {
	var b strings.Builder
	writeSeriesHeader(&b, sc)
	writeBreakdownScenes(&b, sc.Breakdown)
	b.WriteString(`
Design a storyboard covering these scenes. Respond with JSON:
{"panels": [{"scene_number": 1, "shot_type": "...", "description": "...", "camera_notes": "..."}]}`)
	return b.String()
}

func buildPropsPrompt(sc *StageContext) string {
	var b strings.Builder
	writeSeriesHeader(&b, sc)
	writeBreakdownScenes(&b, sc.Breakdown)
	b.WriteString(`
List props and wardrobe these scenes require. Respond with JSON:
{"props": [{"name": "...", "description": "...", "scene_number": 1, "sourcing": "..."}],
 "wardrobe": [{"name": "...", "description": "...", "character": "..."}]}`)
	return b.String()
}

func buildLocationsPrompt(sc *StageContext) string {
	var b strings.Builder
	writeSeriesHeader(&b, sc)
	writeBreakdownScenes(&b, sc.Breakdown)
	b.WriteString(`
Identify the shooting locations these scenes need. Respond with JSON:
{"locations": [{"name": "...", "description": "...", "scene_numbers": [1], "requirements": ["..."]}]}`)
	return b.String()
}

func buildCastingPrompt(sc *StageContext) string {
	var b strings.Builder
	writeSeriesHeader(&b, sc)
	writeBreakdownScenes(&b, sc.Breakdown)
	b.WriteString(`
Prepare casting notes for every speaking character. Respond with JSON:
{"cast": [{"character_name": "...", "archetype": "...", "description": "...",
  "age_range": "...", "considerations": ["..."]}]}`)
	return b.String()
}

func buildMarketingPrompt(sc *StageContext) string {
	var b strings.Builder
	writeSeriesHeader(&b, sc)
	if sc.Script != nil {
		fmt.Fprintf(&b, "\nScript excerpt:\n%s\n", truncate(sc.Script.FullScript, 4000))
	}
	b.WriteString(`
Draft a marketing angle for this production. Respond with JSON:
{"logline": "...", "taglines": ["..."], "target_audience": "...", "key_art_concepts": ["..."]}`)
	return b.String()
}

func buildPostProductionPrompt(sc *StageContext) string {
	var b strings.Builder
	writeSeriesHeader(&b, sc)
	writeBreakdownScenes(&b, sc.Breakdown)
	b.WriteString(`
Plan the post-production pass for these scenes. Respond with JSON:
{"edit_notes": ["..."], "sound_notes": ["..."], "vfx_notes": ["..."], "color_notes": ["..."]}`)
	return b.String()
}

func writeSeriesHeader(b *strings.Builder, sc *StageContext) {
	if sc.Bible == nil {
		return
	}
	fmt.Fprintf(b, "Series: %s (%s)\nPremise: %s\n",
		sc.Bible.SeriesTitle, sc.Bible.Genre, sc.Bible.Premise)
	writeCharacters(b, sc.Bible.MainCharacters)
}

func writeCharacters(b *strings.Builder, chars []models.Character) {
	if len(chars) == 0 {
		return
	}
	b.WriteString("Main characters:\n")
	for _, c := range chars {
		fmt.Fprintf(b, "- %s (%s): %s\n", c.Name, c.Archetype, c.Description)
	}
}

func writeBreakdownScenes(b *strings.Builder, breakdown *models.BreakdownArtifact) {
	if breakdown == nil {
		return
	}
	b.WriteString("\nScene breakdown:\n")
	for _, s := range breakdown.Scenes {
		label := fmt.Sprintf("Scene %d", s.SceneNumber)
		if s.EpisodeNumber > 0 {
			label = fmt.Sprintf("Ep %d scene %d", s.EpisodeNumber, s.SceneNumber)
		}
		fmt.Fprintf(b, "- %s (%s): %s [%s]\n", label, s.Heading, s.Summary,
			strings.Join(s.Characters, ", "))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
