// internal/services/sharelink_service_test.go
package services

import (
	"strings"
	"testing"
	"time"

	apperrors "github.com/greenlit-app/greenlit/internal/errors"
	"github.com/greenlit-app/greenlit/internal/models"
)

func testBible() *models.StoryBible {
	return &models.StoryBible{
		ID:          "bible-1",
		OwnerID:     "owner-1",
		SeriesTitle: "Signal Lost",
		Genre:       "thriller",
		Premise:     "A radio operator hears tomorrow's broadcasts.",
	}
}

func TestGetUnknownLinkIsNotFound(t *testing.T) {
	svc := NewShareLinkService(newTestStore(t))

	_, err := svc.Get("no-such-link")
	if !apperrors.IsNotFoundError(err) {
		t.Fatalf("want NotFound, got %v", err)
	}
}

func TestGetRevokedLinkIsGone(t *testing.T) {
	svc := NewShareLinkService(newTestStore(t))
	link, err := svc.Create(testBible(), "owner-1", "Avery", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Revoke(link.LinkID, "owner-1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	_, err = svc.Get(link.LinkID)
	if !apperrors.IsGoneError(err) {
		t.Fatalf("want Gone, got %v", err)
	}
	if !strings.Contains(err.Error(), "revoked") {
		t.Errorf("message %q should name revocation", err.Error())
	}
}

func TestGetExpiredLinkIsGone(t *testing.T) {
	svc := NewShareLinkService(newTestStore(t))
	past := time.Now().Add(-time.Hour)
	link, err := svc.Create(testBible(), "owner-1", "Avery", &past)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Get(link.LinkID)
	if !apperrors.IsGoneError(err) {
		t.Fatalf("want Gone, got %v", err)
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Errorf("message %q should name expiry", err.Error())
	}
}

func TestSharedCopyIsIndependent(t *testing.T) {
	svc := NewShareLinkService(newTestStore(t))
	original := testBible()
	link, err := svc.Create(original, "owner-1", "Avery", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Mutating the original after sharing must not leak into the copy.
	original.SeriesTitle = "Renamed"

	shared, err := svc.Get(link.LinkID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if shared.Bible.SeriesTitle != "Signal Lost" {
		t.Errorf("shared copy title = %q, want original snapshot", shared.Bible.SeriesTitle)
	}
}

func TestRevokeIsOwnerGatedAndIdempotent(t *testing.T) {
	svc := NewShareLinkService(newTestStore(t))
	link, err := svc.Create(testBible(), "owner-1", "Avery", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Revoke(link.LinkID, "intruder"); !apperrors.IsUnauthorizedError(err) {
		t.Fatalf("non-owner revoke: want Unauthorized, got %v", err)
	}

	first, err := svc.Revoke(link.LinkID, "owner-1")
	if err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	second, err := svc.Revoke(link.LinkID, "owner-1")
	if err != nil {
		t.Fatalf("second revoke should be a no-op success, got %v", err)
	}
	if !first.Revoked || !second.Revoked {
		t.Error("link not marked revoked")
	}
}

func TestUpdateRejectedAfterRevoke(t *testing.T) {
	svc := NewShareLinkService(newTestStore(t))
	link, err := svc.Create(testBible(), "owner-1", "Avery", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Revoke(link.LinkID, "owner-1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	edited := testBible()
	edited.Premise = "edited"
	if _, err := svc.Update(link.LinkID, edited); !apperrors.IsGoneError(err) {
		t.Fatalf("want Gone, got %v", err)
	}
}

func TestUpdateIncrementsVersionAndLogsEdit(t *testing.T) {
	svc := NewShareLinkService(newTestStore(t))
	link, err := svc.Create(testBible(), "owner-1", "Avery", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	edited := testBible()
	edited.Premise = "rewritten premise"
	result, err := svc.Update(link.LinkID, edited)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if result.Link.Version != 2 {
		t.Errorf("version = %d, want 2", result.Link.Version)
	}
	if result.Bible.Premise != "rewritten premise" {
		t.Errorf("copy premise = %q", result.Bible.Premise)
	}

	logs, _, err := svc.GetAccessLogs(link.LinkID, "owner-1")
	if err != nil {
		t.Fatalf("GetAccessLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != models.AccessEdited {
		t.Errorf("logs = %+v, want one edited entry", logs)
	}
}

func TestExtendExpirationRevivesLapsedLink(t *testing.T) {
	svc := NewShareLinkService(newTestStore(t))
	past := time.Now().Add(-time.Hour)
	link, err := svc.Create(testBible(), "owner-1", "Avery", &past)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.ExtendExpiration(link.LinkID, "intruder", time.Now().Add(time.Hour)); !apperrors.IsUnauthorizedError(err) {
		t.Fatalf("non-owner extend: want Unauthorized, got %v", err)
	}

	if _, err := svc.ExtendExpiration(link.LinkID, "owner-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if _, err := svc.Get(link.LinkID); err != nil {
		t.Fatalf("link should be live after extension: %v", err)
	}
}

func TestAccessLogAnalytics(t *testing.T) {
	svc := NewShareLinkService(newTestStore(t))
	link, err := svc.Create(testBible(), "owner-1", "Avery", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	svc.LogAccess(link.LinkID, models.AccessViewed)
	svc.LogAccess(link.LinkID, models.AccessViewed)
	svc.LogAccess(link.LinkID, models.AccessEdited)

	logs, analytics, err := svc.GetAccessLogs(link.LinkID, "owner-1")
	if err != nil {
		t.Fatalf("GetAccessLogs: %v", err)
	}
	if analytics.ViewCount != 2 || analytics.EditCount != 1 || analytics.TotalAccess != 3 {
		t.Errorf("analytics = %+v, want views=2 edits=1 total=3", analytics)
	}
	last := logs[len(logs)-1]
	if !analytics.LastAccessed.Equal(last.Timestamp) {
		t.Errorf("lastAccessed = %v, want %v", analytics.LastAccessed, last.Timestamp)
	}

	if _, _, err := svc.GetAccessLogs(link.LinkID, "intruder"); !apperrors.IsUnauthorizedError(err) {
		t.Fatalf("non-owner logs: want Unauthorized, got %v", err)
	}
}
