// internal/services/storybible_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	apperrors "github.com/greenlit-app/greenlit/internal/errors"
	"github.com/greenlit-app/greenlit/internal/images"
	"github.com/greenlit-app/greenlit/internal/models"
	"github.com/greenlit-app/greenlit/internal/storage"
	"github.com/greenlit-app/greenlit/internal/utils"
)

// StoryBibleService manages story bibles and their episodes: AI generation,
// per-user persistence and scene image lookup.
type StoryBibleService struct {
	store     *storage.DocumentStore
	generator *GenerationService
	images    *images.SearchClient
}

func NewStoryBibleService(store *storage.DocumentStore, generator *GenerationService, imageClient *images.SearchClient) *StoryBibleService {
	return &StoryBibleService{store: store, generator: generator, images: imageClient}
}

func bibleCollection(ownerID string) string {
	return fmt.Sprintf("users/%s/story_bibles", ownerID)
}

func episodeCollection(storyBibleID string) string {
	return fmt.Sprintf("story_bibles/%s/episodes", storyBibleID)
}

// GenerateStoryBible creates a story bible from a creative brief. The result
// is not persisted; the caller saves it explicitly.
func (s *StoryBibleService) GenerateStoryBible(ctx context.Context, premise, genre string, themes []string) (*models.StoryBible, error) {
	if premise == "" {
		return nil, apperrors.NewValidationError("premise is required")
	}

	var bible models.StoryBible
	prompt := buildStoryBiblePrompt(premise, genre, themes)
	if err := s.generator.CreateStructuredCompletion(ctx, prompt, storyBibleSystemPrompt, &bible); err != nil {
		return nil, err
	}
	return &bible, nil
}

// SaveStoryBible persists the bible for its owner. A bible without an ID gets
// one; the version counter increments on every save. The counter is advisory,
// concurrent saves resolve last-write-wins.
func (s *StoryBibleService) SaveStoryBible(bible *models.StoryBible, ownerID string) (*models.StoryBible, error) {
	if ownerID == "" {
		return nil, apperrors.NewValidationError("ownerId is required")
	}
	if bible.SeriesTitle == "" {
		return nil, apperrors.NewValidationError("series_title is required")
	}

	now := time.Now()
	if bible.ID == "" {
		bible.ID = ulid.Make().String()
		bible.CreatedAt = now
	}
	bible.OwnerID = ownerID
	bible.Version++
	bible.UpdatedAt = now

	if err := s.store.SaveDoc(bibleCollection(ownerID), bible.ID, bible); err != nil {
		return nil, apperrors.Wrap(err, "failed to save story bible", apperrors.ErrorTypeUpstream)
	}
	return bible, nil
}

// GetStoryBible loads one of the owner's bibles by id.
func (s *StoryBibleService) GetStoryBible(ownerID, id string) (*models.StoryBible, error) {
	var bible models.StoryBible
	err := s.store.LoadDoc(bibleCollection(ownerID), id, &bible)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("story bible %q not found", id))
		}
		return nil, apperrors.Wrap(err, "failed to load story bible", apperrors.ErrorTypeUpstream)
	}
	return &bible, nil
}

// ListStoryBibles returns all of the owner's bibles, newest first.
func (s *StoryBibleService) ListStoryBibles(ownerID string) ([]models.StoryBible, error) {
	ids, err := s.store.ListDocIDs(bibleCollection(ownerID))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list story bibles", apperrors.ErrorTypeUpstream)
	}

	bibles := make([]models.StoryBible, 0, len(ids))
	for _, id := range ids {
		var bible models.StoryBible
		if err := s.store.LoadDoc(bibleCollection(ownerID), id, &bible); err != nil {
			utils.GetLogger().Warn("skipping unreadable story bible", map[string]interface{}{
				"id": id, "error": err.Error(),
			})
			continue
		}
		bibles = append(bibles, bible)
	}

	sort.Slice(bibles, func(i, j int) bool {
		return bibles[i].UpdatedAt.After(bibles[j].UpdatedAt)
	})
	return bibles, nil
}

// GenerateEpisodes writes every episode of one narrative arc. arcIndex is the
// zero-based position in the bible's arc list.
func (s *StoryBibleService) GenerateEpisodes(ctx context.Context, bible *models.StoryBible, arcIndex int) ([]models.Episode, error) {
	if bible == nil {
		return nil, apperrors.NewValidationError("storyBibleData is required")
	}
	if arcIndex < 0 || arcIndex >= len(bible.Arcs) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("arc index %d out of range", arcIndex))
	}

	var payload struct {
		Episodes []models.Episode `json:"episodes"`
	}
	prompt := buildEpisodesPrompt(bible, bible.Arcs[arcIndex])
	if err := s.generator.CreateStructuredCompletion(ctx, prompt, storyBibleSystemPrompt, &payload); err != nil {
		return nil, err
	}

	now := time.Now()
	for i := range payload.Episodes {
		payload.Episodes[i].Version = 1
		payload.Episodes[i].GeneratedAt = now
	}
	return payload.Episodes, nil
}

// SaveEpisodes persists episodes under the bible, keyed by episode number.
// Re-saving an existing number overwrites it and bumps its version.
func (s *StoryBibleService) SaveEpisodes(storyBibleID string, episodes []models.Episode) error {
	if storyBibleID == "" {
		return apperrors.NewValidationError("storyBibleId is required")
	}

	collection := episodeCollection(storyBibleID)
	for i := range episodes {
		ep := episodes[i]
		docID := models.EpisodeDocID(ep.Number)

		var existing models.Episode
		if err := s.store.LoadDoc(collection, docID, &existing); err == nil {
			ep.Version = existing.Version + 1
		} else if ep.Version == 0 {
			ep.Version = 1
		}

		if err := s.store.SaveDoc(collection, docID, &ep); err != nil {
			return apperrors.Wrap(err, fmt.Sprintf("failed to save episode %d", ep.Number), apperrors.ErrorTypeUpstream)
		}
	}
	return nil
}

// ListEpisodes returns the bible's saved episodes in ascending number order.
func (s *StoryBibleService) ListEpisodes(storyBibleID string) ([]models.Episode, error) {
	ids, err := s.store.ListDocIDs(episodeCollection(storyBibleID))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list episodes", apperrors.ErrorTypeUpstream)
	}

	episodes := make([]models.Episode, 0, len(ids))
	for _, id := range ids {
		var ep models.Episode
		if err := s.store.LoadDoc(episodeCollection(storyBibleID), id, &ep); err != nil {
			continue
		}
		episodes = append(episodes, ep)
	}

	sort.Slice(episodes, func(i, j int) bool { return episodes[i].Number < episodes[j].Number })
	return episodes, nil
}

// SceneImageResult is one outcome of a scene image fan-out.
type SceneImageResult struct {
	SceneNumber int    `json:"scene_number"`
	ImageURL    string `json:"image_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// AttachSceneImages looks up a stock image for every scene heading
// concurrently. Individual lookup failures are reported per scene, never
// failing the batch.
func (s *StoryBibleService) AttachSceneImages(ctx context.Context, scenes []models.Scene, progress func(done, total int)) []SceneImageResult {
	results := make([]SceneImageResult, len(scenes))
	var wg sync.WaitGroup
	var doneCount int
	var mu sync.Mutex

	for i := range scenes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scene := scenes[i]
			results[i].SceneNumber = scene.Number

			url, err := s.images.SearchImage(ctx, "scene", scene.Heading)
			if err != nil {
				results[i].Error = err.Error()
			} else {
				results[i].ImageURL = url
			}

			if progress != nil {
				mu.Lock()
				doneCount++
				progress(doneCount, len(scenes))
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	return results
}
