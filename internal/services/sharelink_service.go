// internal/services/sharelink_service.go
package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	apperrors "github.com/greenlit-app/greenlit/internal/errors"
	"github.com/greenlit-app/greenlit/internal/models"
	"github.com/greenlit-app/greenlit/internal/storage"
	"github.com/greenlit-app/greenlit/internal/utils"
)

const (
	shareLinkCollection  = "share_links"
	sharedCopyCollection = "shared_bibles"
	accessLogCollection  = "share_access_logs"
)

// ShareLinkService manages capability-style share links: each link points to
// an independent copy of a story bible which viewers can read and edit
// without owner credentials. Revocation and expiry turn the link Gone, which
// is deliberately distinct from NotFound.
type ShareLinkService struct {
	store *storage.DocumentStore

	// Serializes read-modify-write sequences (edits, revokes, log appends).
	mutex sync.Mutex

	// onUpdate, when set, is called after a shared copy changes so live
	// viewers can be notified. Best effort only.
	onUpdate func(linkID string, copy *models.StoryBible)
}

func NewShareLinkService(store *storage.DocumentStore) *ShareLinkService {
	return &ShareLinkService{store: store}
}

// SetUpdateListener registers the broadcast hook for shared-copy changes.
func (s *ShareLinkService) SetUpdateListener(fn func(linkID string, copy *models.StoryBible)) {
	s.onUpdate = fn
}

// SharedCopy is a share link response: the link metadata plus the copy.
type SharedCopy struct {
	Link  *models.ShareLink  `json:"link"`
	Bible *models.StoryBible `json:"story_bible"`
}

// Create deep-copies the story bible under a new share id and returns the
// link granting access to the copy.
func (s *ShareLinkService) Create(bible *models.StoryBible, ownerID, ownerName string, expiresAt *time.Time) (*models.ShareLink, error) {
	if bible == nil {
		return nil, apperrors.NewValidationError("storyBibleData is required")
	}
	if ownerID == "" {
		return nil, apperrors.NewValidationError("ownerId is required")
	}

	copied, err := deepCopyBible(bible)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to copy story bible", apperrors.ErrorTypeUpstream)
	}

	now := time.Now()
	link := &models.ShareLink{
		LinkID:    ulid.Make().String(),
		ShareID:   ulid.Make().String(),
		OwnerID:   ownerID,
		OwnerName: ownerName,
		ExpiresAt: expiresAt,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.SaveDoc(sharedCopyCollection, link.ShareID, copied); err != nil {
		return nil, apperrors.Wrap(err, "failed to store shared copy", apperrors.ErrorTypeUpstream)
	}
	if err := s.store.SaveDoc(shareLinkCollection, link.LinkID, link); err != nil {
		return nil, apperrors.Wrap(err, "failed to store share link", apperrors.ErrorTypeUpstream)
	}
	return link, nil
}

// Get resolves a link id to the shared copy and records a viewed access.
// Unknown links are NotFound; revoked or expired links are Gone with a
// message naming which.
func (s *ShareLinkService) Get(linkID string) (*SharedCopy, error) {
	link, err := s.loadLink(linkID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLive(link); err != nil {
		return nil, err
	}

	var bible models.StoryBible
	if err := s.store.LoadDoc(sharedCopyCollection, link.ShareID, &bible); err != nil {
		return nil, apperrors.Wrap(err, "failed to load shared copy", apperrors.ErrorTypeUpstream)
	}

	s.LogAccess(linkID, models.AccessViewed)
	return &SharedCopy{Link: link, Bible: &bible}, nil
}

// Update applies viewer edits to the shared copy. Last write wins; the link
// version increments and an edited access is recorded. Revoked or expired
// links reject with Gone.
func (s *ShareLinkService) Update(linkID string, updated *models.StoryBible) (*SharedCopy, error) {
	if updated == nil {
		return nil, apperrors.NewValidationError("storyBibleData is required")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	link, err := s.loadLink(linkID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLive(link); err != nil {
		return nil, err
	}

	copied, err := deepCopyBible(updated)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to copy story bible", apperrors.ErrorTypeUpstream)
	}
	copied.UpdatedAt = time.Now()

	if err := s.store.SaveDoc(sharedCopyCollection, link.ShareID, copied); err != nil {
		return nil, apperrors.Wrap(err, "failed to store shared copy", apperrors.ErrorTypeUpstream)
	}

	link.Version++
	link.UpdatedAt = time.Now()
	if err := s.store.SaveDoc(shareLinkCollection, link.LinkID, link); err != nil {
		return nil, apperrors.Wrap(err, "failed to update share link", apperrors.ErrorTypeUpstream)
	}

	s.appendAccessLocked(linkID, models.AccessEdited)

	if s.onUpdate != nil {
		s.onUpdate(linkID, copied)
	}
	return &SharedCopy{Link: link, Bible: copied}, nil
}

// Revoke turns the link off. Only the owner may revoke. Revoking an already
// revoked link is a no-op success; the second caller learns it was already
// revoked from the returned link state.
func (s *ShareLinkService) Revoke(linkID, ownerID string) (*models.ShareLink, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	link, err := s.loadLink(linkID)
	if err != nil {
		return nil, err
	}
	if link.OwnerID != ownerID {
		return nil, apperrors.NewUnauthorizedError("only the owner can revoke a share link")
	}
	if link.Revoked {
		return link, nil
	}

	link.Revoked = true
	link.UpdatedAt = time.Now()
	if err := s.store.SaveDoc(shareLinkCollection, link.LinkID, link); err != nil {
		return nil, apperrors.Wrap(err, "failed to revoke share link", apperrors.ErrorTypeUpstream)
	}
	return link, nil
}

// ExtendExpiration moves the link's expiry. Owner-gated. Extending a revoked
// link is rejected; extending an expired link revives it, which is the
// owner's way to re-arm a lapsed link.
func (s *ShareLinkService) ExtendExpiration(linkID, ownerID string, newExpiry time.Time) (*models.ShareLink, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	link, err := s.loadLink(linkID)
	if err != nil {
		return nil, err
	}
	if link.OwnerID != ownerID {
		return nil, apperrors.NewUnauthorizedError("only the owner can extend a share link")
	}
	if link.Revoked {
		return nil, apperrors.NewGoneError("share link has been revoked")
	}
	if !newExpiry.After(time.Now()) {
		return nil, apperrors.NewValidationError("new expiration must be in the future")
	}

	link.ExpiresAt = &newExpiry
	link.UpdatedAt = time.Now()
	if err := s.store.SaveDoc(shareLinkCollection, link.LinkID, link); err != nil {
		return nil, apperrors.Wrap(err, "failed to extend share link", apperrors.ErrorTypeUpstream)
	}
	return link, nil
}

// LogAccess records a view or edit. Failures are logged and swallowed; access
// logging never fails the primary operation.
func (s *ShareLinkService) LogAccess(linkID string, action models.AccessAction) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.appendAccessLocked(linkID, action)
}

// GetAccessLogs returns the raw log plus derived analytics. Owner-gated.
func (s *ShareLinkService) GetAccessLogs(linkID, ownerID string) ([]models.AccessLogEntry, *models.AccessAnalytics, error) {
	link, err := s.loadLink(linkID)
	if err != nil {
		return nil, nil, err
	}
	if link.OwnerID != ownerID {
		return nil, nil, apperrors.NewUnauthorizedError("only the owner can read access logs")
	}

	entries := s.loadLog(linkID)
	analytics := &models.AccessAnalytics{}
	for _, e := range entries {
		switch e.Action {
		case models.AccessViewed:
			analytics.ViewCount++
		case models.AccessEdited:
			analytics.EditCount++
		}
		analytics.TotalAccess++
		if e.Timestamp.After(analytics.LastAccessed) {
			analytics.LastAccessed = e.Timestamp
		}
	}
	return entries, analytics, nil
}

func (s *ShareLinkService) loadLink(linkID string) (*models.ShareLink, error) {
	if strings.TrimSpace(linkID) == "" {
		return nil, apperrors.NewValidationError("linkId is required")
	}

	var link models.ShareLink
	err := s.store.LoadDoc(shareLinkCollection, linkID, &link)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("share link %q not found", linkID))
		}
		return nil, apperrors.Wrap(err, "failed to load share link", apperrors.ErrorTypeUpstream)
	}
	return &link, nil
}

// checkLive distinguishes the two Gone flavors by message so clients can show
// "link revoked" vs "link expired".
func (s *ShareLinkService) checkLive(link *models.ShareLink) error {
	if link.Revoked {
		return apperrors.NewGoneError("share link has been revoked")
	}
	if link.Expired(time.Now()) {
		return apperrors.NewGoneError("share link has expired")
	}
	return nil
}

func (s *ShareLinkService) loadLog(linkID string) []models.AccessLogEntry {
	var entries []models.AccessLogEntry
	if err := s.store.LoadDoc(accessLogCollection, linkID, &entries); err != nil {
		return nil
	}
	return entries
}

func (s *ShareLinkService) appendAccessLocked(linkID string, action models.AccessAction) {
	entries := s.loadLog(linkID)
	entries = append(entries, models.AccessLogEntry{
		LinkID:    linkID,
		Action:    action,
		Timestamp: time.Now(),
	})
	if err := s.store.SaveDoc(accessLogCollection, linkID, entries); err != nil {
		utils.GetLogger().Warn("failed to record share link access", map[string]interface{}{
			"link_id": linkID, "action": string(action), "error": err.Error(),
		})
	}
}

func deepCopyBible(bible *models.StoryBible) (*models.StoryBible, error) {
	data, err := json.Marshal(bible)
	if err != nil {
		return nil, err
	}
	var copied models.StoryBible
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, err
	}
	return &copied, nil
}
