package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/halvard/ordna/internal/classify"
	"github.com/halvard/ordna/internal/fileservice"
	"github.com/halvard/ordna/internal/models"
	"github.com/halvard/ordna/internal/organizer"
	"github.com/halvard/ordna/internal/store"
	"github.com/halvard/ordna/internal/testutil"
)

type watchEnv struct {
	db      *store.DB
	library string
	inbox   string
	mgr     *Manager
	tree    *testutil.IndexTree
	exec    *organizer.Executor
	engine  *classify.Engine
}

func newWatchEnv(t *testing.T) *watchEnv {
	t.Helper()
	db := testutil.TestDB(t)
	tree := testutil.TestIndex(t)
	library := testutil.TestLibrary(t)
	logger := testutil.Logger()
	exec := organizer.New(library, tree.DB, db, db, logger)
	engine := classify.New(logger, nil)
	return &watchEnv{
		db:      db,
		library: library,
		inbox:   t.TempDir(),
		mgr:     NewManager(db, engine, exec, logger, 0, 1),
		tree:    tree,
		exec:    exec,
		engine:  engine,
	}
}

func (e *watchEnv) folder(t *testing.T, mutate func(*store.WatchedFolderDraft)) *models.WatchedFolder {
	t.Helper()
	d := store.WatchedFolderDraft{Path: e.inbox}
	if mutate != nil {
		mutate(&d)
	}
	w, err := e.db.CreateWatchedFolder(d)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func (e *watchEnv) pdfRule(t *testing.T) *models.Rule {
	t.Helper()
	r, err := e.db.CreateRule(store.RuleDraft{
		Name: "pdfs", Type: models.RuleExtension, Pattern: "pdf",
		TargetType: models.TargetFolder, TargetID: e.tree.InvoicesID,
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func actions(t *testing.T, db *store.DB, folderID string) []models.ActivityAction {
	t.Helper()
	log, err := db.ListActivity(folderID, 100)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]models.ActivityAction, len(log))
	for i, a := range log {
		out[i] = a.Action
	}
	return out
}

func TestRunCycle_QueuesWithoutAutoOrganize(t *testing.T) {
	env := newWatchEnv(t)
	env.pdfRule(t)
	w := env.folder(t, nil)
	testutil.WriteFile(t, env.inbox, "invoice.pdf", "x")

	stats := env.mgr.RunCycle(context.Background(), w)
	if stats.Detected != 1 || stats.Queued != 1 || stats.Organized != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	queued, err := env.db.ListScanned(WatchSessionID(w.ID), store.ScannedFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(queued) != 1 || queued[0].Name != "invoice.pdf" {
		t.Fatalf("queued rows = %+v", queued)
	}
	if queued[0].Confidence != models.ConfidenceHigh {
		t.Errorf("queued confidence = %q", queued[0].Confidence)
	}

	got := actions(t, env.db, w.ID)
	if len(got) != 2 || got[0] != models.ActivityQueued || got[1] != models.ActivityDetected {
		t.Errorf("activity = %v", got)
	}
}

func TestRunCycle_AutoOrganizeAtThreshold(t *testing.T) {
	env := newWatchEnv(t)
	env.pdfRule(t)
	w := env.folder(t, func(d *store.WatchedFolderDraft) {
		d.AutoOrganize = true
		d.ConfidenceThreshold = models.ConfidenceHigh
	})
	src := testutil.WriteFile(t, env.inbox, "invoice.pdf", "x")

	stats := env.mgr.RunCycle(context.Background(), w)
	if stats.Organized != 1 || stats.Queued != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	row, err := env.db.FindByOriginalPath(src)
	if err != nil {
		t.Fatal(err)
	}
	if row == nil || row.Status != models.StatusMoved {
		t.Fatalf("ledger row = %+v", row)
	}

	folder, err := env.db.GetWatchedFolder(w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if folder.FilesProcessed != 1 || folder.FilesOrganized != 1 {
		t.Errorf("counters = %d/%d", folder.FilesProcessed, folder.FilesOrganized)
	}
	if folder.LastCheckedAt.IsZero() {
		t.Error("last_checked_at not stamped")
	}

	// Activity records the same library-relative folder the ledger does.
	log, err := env.db.ListActivity(w.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if log[0].Action != models.ActivityAutoOrganized {
		t.Fatalf("activity = %+v", log)
	}
	if want := filepath.FromSlash("10-19 Admin/11 Finance/11.02 Invoices"); log[0].TargetFolder != want {
		t.Errorf("activity target folder = %q, want %q", log[0].TargetFolder, want)
	}
}

func TestRunCycle_BelowThresholdQueues(t *testing.T) {
	env := newWatchEnv(t)
	// Keyword matches carry medium confidence, below the high threshold.
	if _, err := env.db.CreateRule(store.RuleDraft{
		Name: "reports", Type: models.RuleKeyword, Pattern: "report",
		TargetType: models.TargetFolder, TargetID: env.tree.InvoicesID,
	}); err != nil {
		t.Fatal(err)
	}
	w := env.folder(t, func(d *store.WatchedFolderDraft) {
		d.AutoOrganize = true
		d.ConfidenceThreshold = models.ConfidenceHigh
	})
	testutil.WriteFile(t, env.inbox, "report.txt", "x")

	stats := env.mgr.RunCycle(context.Background(), w)
	if stats.Queued != 1 || stats.Organized != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRunCycle_SeenSetSkipsUnchanged(t *testing.T) {
	env := newWatchEnv(t)
	w := env.folder(t, nil)
	testutil.WriteFile(t, env.inbox, "a.pdf", "x")

	first := env.mgr.RunCycle(context.Background(), w)
	if first.Detected != 1 {
		t.Fatalf("first cycle stats = %+v", first)
	}
	second := env.mgr.RunCycle(context.Background(), w)
	if second.Detected != 0 {
		t.Errorf("second cycle stats = %+v, want nothing new", second)
	}

	// A quiet cycle still refreshes the folder's last-checked stamp.
	folder, err := env.db.GetWatchedFolder(w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if folder.LastCheckedAt.IsZero() {
		t.Error("quiet cycle should stamp last_checked_at")
	}
}

func TestRunCycle_LedgerKnownFilesIgnored(t *testing.T) {
	env := newWatchEnv(t)
	w := env.folder(t, nil)
	src := testutil.WriteFile(t, env.inbox, "tracked.pdf", "x")

	if _, err := env.db.InsertOrganized(store.OrganizedDraft{
		Filename:     "tracked.pdf",
		OriginalPath: src,
		CurrentPath:  src,
		Status:       models.StatusTracked,
	}); err != nil {
		t.Fatal(err)
	}

	stats := env.mgr.RunCycle(context.Background(), w)
	if stats.Detected != 0 {
		t.Errorf("stats = %+v, want ledger-known file ignored", stats)
	}
	if got := actions(t, env.db, w.ID); len(got) != 0 {
		t.Errorf("activity = %v, want none", got)
	}
}

func TestRunCycle_FilterAndDotfiles(t *testing.T) {
	env := newWatchEnv(t)
	w := env.folder(t, func(d *store.WatchedFolderDraft) {
		d.FileTypeFilter = []string{"pdf"}
	})
	testutil.WriteFile(t, env.inbox, "keep.pdf", "x")
	testutil.WriteFile(t, env.inbox, "skip.txt", "x")
	testutil.WriteFile(t, env.inbox, ".hidden.pdf", "x")

	stats := env.mgr.RunCycle(context.Background(), w)
	if stats.Detected != 1 {
		t.Errorf("stats = %+v, want only keep.pdf detected", stats)
	}
}

func TestRunCycle_Subdirs(t *testing.T) {
	env := newWatchEnv(t)
	sub := filepath.Join(env.inbox, "nested")
	flat := env.folder(t, nil)
	deep := env.folder(t, func(d *store.WatchedFolderDraft) {
		d.IncludeSubdirs = true
	})
	testutil.WriteFile(t, env.inbox, "top.pdf", "x")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	testutil.WriteFile(t, sub, "inner.pdf", "x")

	if stats := env.mgr.RunCycle(context.Background(), flat); stats.Detected != 1 {
		t.Errorf("flat stats = %+v, want top only", stats)
	}
	if stats := env.mgr.RunCycle(context.Background(), deep); stats.Detected != 2 {
		t.Errorf("deep stats = %+v, want top and inner", stats)
	}
}

func TestRunCycle_InflightClaimPreventsDoubleProcessing(t *testing.T) {
	env := newWatchEnv(t)
	w := env.folder(t, nil)
	src := testutil.WriteFile(t, env.inbox, "busy.pdf", "x")

	if !env.mgr.claimPath(src) {
		t.Fatal("initial claim failed")
	}
	stats := env.mgr.RunCycle(context.Background(), w)
	if stats.Detected != 0 {
		t.Errorf("stats = %+v, want claimed path skipped", stats)
	}
	env.mgr.releasePath(src)

	stats = env.mgr.RunCycle(context.Background(), w)
	if stats.Detected != 1 {
		t.Errorf("stats after release = %+v", stats)
	}
}

func TestRunCycle_NotifyReceivesActivity(t *testing.T) {
	env := newWatchEnv(t)
	w := env.folder(t, nil)
	testutil.WriteFile(t, env.inbox, "a.pdf", "x")

	var got []models.ActivityAction
	env.mgr.Notify = func(a models.WatchActivity) { got = append(got, a.Action) }

	env.mgr.RunCycle(context.Background(), w)
	if len(got) != 2 || got[0] != models.ActivityDetected || got[1] != models.ActivityQueued {
		t.Errorf("notify actions = %v", got)
	}
}

func TestRunCycle_QueuedActivityResolvesOnOrganize(t *testing.T) {
	env := newWatchEnv(t)
	rule := env.pdfRule(t)
	w := env.folder(t, nil)
	testutil.WriteFile(t, env.inbox, "invoice.pdf", "x")

	if stats := env.mgr.RunCycle(context.Background(), w); stats.Queued != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	rows, err := env.db.ListScanned(WatchSessionID(w.ID), store.ScannedFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].WatchActivityID == "" {
		t.Fatalf("queued row should link its activity entry, got %+v", rows)
	}
	if _, err := env.db.SetDecision(rows[0].ID, models.DecisionAccepted, ""); err != nil {
		t.Fatal(err)
	}

	svc := fileservice.NewService(env.db, env.tree.DB, env.engine, env.exec, testutil.Logger())
	results, err := svc.OrganizeSession(context.Background(), WatchSessionID(w.ID), organizer.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Outcome != organizer.OutcomeSuccess {
		t.Fatalf("results = %+v", results)
	}

	// The queued row advanced in place; no duplicate was appended.
	log, err := env.db.ListActivity(w.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 2 {
		t.Fatalf("activity = %+v, want detected plus the advanced queued row", log)
	}
	if log[0].Action != models.ActivityAutoOrganized {
		t.Errorf("queued row action = %q after organize", log[0].Action)
	}
	if log[0].MatchedRuleID != rule.ID {
		t.Errorf("queued row rule = %q, want %q", log[0].MatchedRuleID, rule.ID)
	}
	if want := filepath.FromSlash("10-19 Admin/11 Finance/11.02 Invoices"); log[0].TargetFolder != want {
		t.Errorf("queued row target folder = %q, want %q", log[0].TargetFolder, want)
	}
}

func TestRunCycle_NotifyOnOrganizeFlag(t *testing.T) {
	env := newWatchEnv(t)
	env.pdfRule(t)

	var got []models.ActivityAction
	env.mgr.Notify = func(a models.WatchActivity) { got = append(got, a.Action) }

	quiet := env.folder(t, func(d *store.WatchedFolderDraft) {
		d.AutoOrganize = true
		d.ConfidenceThreshold = models.ConfidenceHigh
	})
	testutil.WriteFile(t, env.inbox, "invoice.pdf", "x")
	env.mgr.RunCycle(context.Background(), quiet)

	// The organize event stays unpublished, but the row is persisted.
	if len(got) != 1 || got[0] != models.ActivityDetected {
		t.Errorf("notify actions = %v, want detected only", got)
	}
	if acts := actions(t, env.db, quiet.ID); len(acts) != 2 || acts[0] != models.ActivityAutoOrganized {
		t.Errorf("activity = %v", acts)
	}

	loud := env.folder(t, func(d *store.WatchedFolderDraft) {
		d.AutoOrganize = true
		d.ConfidenceThreshold = models.ConfidenceHigh
		d.NotifyOnOrganize = true
	})
	testutil.WriteFile(t, env.inbox, "invoice2.pdf", "x")
	got = nil
	env.mgr.RunCycle(context.Background(), loud)

	if len(got) != 2 || got[1] != models.ActivityAutoOrganized {
		t.Errorf("notify actions = %v, want the organize event published", got)
	}
}

func TestCompileFilter(t *testing.T) {
	globs, err := compileFilter([]string{"pdf", ".docx", "IMG_*"})
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]bool{
		"a.pdf":        true,
		"b.docx":       true,
		"img_0042.jpg": true,
		"c.txt":        false,
	}
	for name, want := range cases {
		if got := matchesFilter(globs, name); got != want {
			t.Errorf("matchesFilter(%q) = %v, want %v", name, got, want)
		}
	}

	if !matchesFilter(nil, "anything.bin") {
		t.Error("empty filter should match everything")
	}
	if _, err := compileFilter([]string{"[bad"}); err == nil {
		t.Error("broken glob should fail to compile")
	}
}
