package store_test

import (
	"errors"
	"testing"

	"github.com/halvard/ordna/internal/apperr"
	"github.com/halvard/ordna/internal/models"
	"github.com/halvard/ordna/internal/store"
	"github.com/halvard/ordna/internal/testutil"
)

func TestCreateWatchedFolder_Defaults(t *testing.T) {
	db := testutil.TestDB(t)

	w, err := db.CreateWatchedFolder(store.WatchedFolderDraft{Path: "/inbox"})
	if err != nil {
		t.Fatal(err)
	}
	if !w.IsActive {
		t.Error("new folder should be active by default")
	}
	if w.ConfidenceThreshold != models.ConfidenceHigh {
		t.Errorf("threshold = %q, want conservative default high", w.ConfidenceThreshold)
	}

	if _, err := db.CreateWatchedFolder(store.WatchedFolderDraft{}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("empty path: err = %v, want ErrInvalid", err)
	}
	if _, err := db.CreateWatchedFolder(store.WatchedFolderDraft{
		Path: "/x", ConfidenceThreshold: "absolute",
	}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("unknown threshold: err = %v, want ErrInvalid", err)
	}
}

func TestUpdateWatchedFolder_PreservesCounters(t *testing.T) {
	db := testutil.TestDB(t)

	w, err := db.CreateWatchedFolder(store.WatchedFolderDraft{Path: "/inbox"})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.BumpFolderCounters(w.ID, 5, 2); err != nil {
		t.Fatal(err)
	}

	upd, err := db.UpdateWatchedFolder(w.ID, store.WatchedFolderDraft{
		Path:                "/inbox",
		AutoOrganize:        true,
		ConfidenceThreshold: models.ConfidenceMedium,
		FileTypeFilter:      []string{"pdf", "docx"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !upd.AutoOrganize || upd.ConfidenceThreshold != models.ConfidenceMedium {
		t.Errorf("updated folder = %+v", upd)
	}
	if len(upd.FileTypeFilter) != 2 || upd.FileTypeFilter[0] != "pdf" {
		t.Errorf("filter = %+v", upd.FileTypeFilter)
	}
	if upd.FilesProcessed != 5 || upd.FilesOrganized != 2 {
		t.Errorf("counters = %d/%d, want preserved 5/2", upd.FilesProcessed, upd.FilesOrganized)
	}
	if upd.LastCheckedAt.IsZero() {
		t.Error("last_checked_at should be stamped by the bump")
	}

	if _, err := db.UpdateWatchedFolder("no-such-id", store.WatchedFolderDraft{Path: "/x"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update missing folder: err = %v, want ErrNotFound", err)
	}
}

func TestListWatchedFolders_ActiveOnly(t *testing.T) {
	db := testutil.TestDB(t)

	if _, err := db.CreateWatchedFolder(store.WatchedFolderDraft{Path: "/a"}); err != nil {
		t.Fatal(err)
	}
	inactive := false
	if _, err := db.CreateWatchedFolder(store.WatchedFolderDraft{Path: "/b", IsActive: &inactive}); err != nil {
		t.Fatal(err)
	}

	all, err := db.ListWatchedFolders(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d folders", len(all))
	}
	active, err := db.ListWatchedFolders(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].Path != "/a" {
		t.Errorf("active = %+v", active)
	}
}

func TestActivityLog(t *testing.T) {
	db := testutil.TestDB(t)

	w, err := db.CreateWatchedFolder(store.WatchedFolderDraft{Path: "/inbox"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := db.AppendActivity(models.WatchActivity{Action: models.ActivityDetected}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("missing folder id: err = %v, want ErrInvalid", err)
	}
	if _, err := db.AppendActivity(models.WatchActivity{FolderID: w.ID, Action: "vanished"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("unknown action: err = %v, want ErrInvalid", err)
	}

	if _, err := db.AppendActivity(models.WatchActivity{
		FolderID: w.ID,
		Filename: "a.pdf",
		Path:     "/inbox/a.pdf",
		Action:   models.ActivityDetected,
	}); err != nil {
		t.Fatal(err)
	}
	queued, err := db.AppendActivity(models.WatchActivity{
		FolderID: w.ID,
		Filename: "a.pdf",
		Path:     "/inbox/a.pdf",
		Action:   models.ActivityQueued,
	})
	if err != nil {
		t.Fatal(err)
	}

	log, err := db.ListActivity(w.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 2 {
		t.Fatalf("log = %d rows", len(log))
	}
	if log[0].ID != queued.ID {
		t.Errorf("newest first: got %q", log[0].Action)
	}
}

func TestResolveQueuedActivity(t *testing.T) {
	db := testutil.TestDB(t)

	w, err := db.CreateWatchedFolder(store.WatchedFolderDraft{Path: "/inbox"})
	if err != nil {
		t.Fatal(err)
	}
	queued, err := db.AppendActivity(models.WatchActivity{
		FolderID: w.ID,
		Filename: "a.pdf",
		Path:     "/inbox/a.pdf",
		Action:   models.ActivityQueued,
	})
	if err != nil {
		t.Fatal(err)
	}

	// A queued row cannot advance to another waiting state.
	err = db.ResolveQueuedActivity(queued.ID, models.ActivityDetected, "", "", "")
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("detected: err = %v, want ErrInvalid", err)
	}

	err = db.ResolveQueuedActivity(queued.ID, models.ActivityAutoOrganized, "rule-1", "11.02 Invoices", "")
	if err != nil {
		t.Fatal(err)
	}
	log, err := db.ListActivity(w.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 1 {
		t.Fatalf("log = %d rows, want the row advanced in place", len(log))
	}
	if log[0].Action != models.ActivityAutoOrganized || log[0].TargetFolder != "11.02 Invoices" {
		t.Errorf("resolved row = %+v", log[0])
	}

	// Once resolved, the row is no longer queued.
	err = db.ResolveQueuedActivity(queued.ID, models.ActivitySkipped, "", "", "")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double resolve: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteWatchedFolder_RemovesActivity(t *testing.T) {
	db := testutil.TestDB(t)

	w, err := db.CreateWatchedFolder(store.WatchedFolderDraft{Path: "/inbox"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.AppendActivity(models.WatchActivity{
		FolderID: w.ID, Filename: "a.pdf", Path: "/inbox/a.pdf", Action: models.ActivityDetected,
	}); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteWatchedFolder(w.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetWatchedFolder(w.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get deleted folder: err = %v, want ErrNotFound", err)
	}
	log, err := db.ListActivity(w.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 0 {
		t.Errorf("activity survived folder deletion: %+v", log)
	}
	if err := db.DeleteWatchedFolder(w.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double delete: err = %v, want ErrNotFound", err)
	}
}
