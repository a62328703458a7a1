// internal/models/storybible.go
package models

import "time"

// StoryBible is the top-level creative artifact for a series: premise,
// characters, narrative arcs and world-building. One per project, owned by a
// single user. Version increments on every save; it is advisory only and is
// not enforced as a write precondition.
type StoryBible struct {
	ID             string         `json:"id"`
	OwnerID        string         `json:"owner_id"`
	SeriesTitle    string         `json:"series_title"`
	Genre          string         `json:"genre"`
	Premise        string         `json:"premise"`
	Themes         []string       `json:"themes"`
	MainCharacters []Character    `json:"main_characters"`
	Arcs           []NarrativeArc `json:"narrative_arcs"`
	World          WorldBuilding  `json:"world_building"`
	Version        int            `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Character is a main-cast entry in the story bible.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Archetype   string `json:"archetype"`
}

// NarrativeArc is a contiguous range of episodes sharing a throughline.
type NarrativeArc struct {
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	EpisodeStart int    `json:"episode_start"`
	EpisodeEnd   int    `json:"episode_end"`
}

// EpisodeNumbers expands the arc's range into an ascending list.
func (a NarrativeArc) EpisodeNumbers() []int {
	if a.EpisodeEnd < a.EpisodeStart {
		return nil
	}
	nums := make([]int, 0, a.EpisodeEnd-a.EpisodeStart+1)
	for n := a.EpisodeStart; n <= a.EpisodeEnd; n++ {
		nums = append(nums, n)
	}
	return nums
}

// WorldBuilding describes the setting of the series.
type WorldBuilding struct {
	Setting   string   `json:"setting"`
	Rules     []string `json:"rules"`
	Locations []string `json:"locations"`
}

// Episode belongs to a story bible arc. Episode numbers are unique within a
// story bible.
type Episode struct {
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	Synopsis    string    `json:"synopsis"`
	Scenes      []Scene   `json:"scenes"`
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Scene is an ordered unit within an episode.
type Scene struct {
	Number   int    `json:"number"`
	Heading  string `json:"heading"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}
