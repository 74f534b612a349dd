package store_test

import (
	"errors"
	"testing"

	"github.com/halvard/ordna/internal/apperr"
	"github.com/halvard/ordna/internal/models"
	"github.com/halvard/ordna/internal/store"
	"github.com/halvard/ordna/internal/testutil"
)

func intp(n int) *int    { return &n }
func boolp(b bool) *bool { return &b }

func draft(name string, priority *int) store.RuleDraft {
	return store.RuleDraft{
		Name:       name,
		Type:       models.RuleExtension,
		Pattern:    "pdf",
		TargetType: models.TargetFolder,
		TargetID:   "11.02",
		Priority:   priority,
	}
}

func TestCreateRule_Defaults(t *testing.T) {
	db := testutil.TestDB(t)

	r, err := db.CreateRule(draft("invoices", nil))
	if err != nil {
		t.Fatal(err)
	}
	if r.Priority != models.PriorityDefault {
		t.Errorf("priority = %d, want %d", r.Priority, models.PriorityDefault)
	}
	if !r.IsActive {
		t.Error("new rule should be active by default")
	}
	if r.MatchCount != 0 {
		t.Errorf("match count = %d, want 0", r.MatchCount)
	}

	got, err := db.GetRule(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "invoices" || got.Pattern != "pdf" {
		t.Errorf("persisted rule = %+v", got)
	}
}

func TestCreateRule_PriorityClamped(t *testing.T) {
	db := testutil.TestDB(t)

	r, err := db.CreateRule(draft("over", intp(150)))
	if err != nil {
		t.Fatal(err)
	}
	if r.Priority != models.PriorityMax {
		t.Errorf("priority = %d, want clamp to %d", r.Priority, models.PriorityMax)
	}

	r, err = db.CreateRule(draft("under", intp(-5)))
	if err != nil {
		t.Fatal(err)
	}
	if r.Priority != models.PriorityMin {
		t.Errorf("priority = %d, want clamp to %d", r.Priority, models.PriorityMin)
	}
}

func TestCreateRule_Validation(t *testing.T) {
	db := testutil.TestDB(t)

	cases := []store.RuleDraft{
		{Type: models.RuleExtension, Pattern: "pdf", TargetType: models.TargetFolder, TargetID: "x"},
		{Name: "n", Type: "telepathy", Pattern: "p", TargetType: models.TargetFolder, TargetID: "x"},
		{Name: "n", Type: models.RuleExtension, Pattern: "p", TargetType: "galaxy", TargetID: "x"},
		{Name: "n", Type: models.RuleRegex, Pattern: "[unclosed", TargetType: models.TargetFolder, TargetID: "x"},
	}
	for i, d := range cases {
		if _, err := db.CreateRule(d); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("case %d: err = %v, want ErrInvalid", i, err)
		}
	}
}

func TestListRules_CanonicalOrder(t *testing.T) {
	db := testutil.TestDB(t)

	low, err := db.CreateRule(draft("low", intp(10)))
	if err != nil {
		t.Fatal(err)
	}
	tieA, err := db.CreateRule(draft("tie-a", intp(50)))
	if err != nil {
		t.Fatal(err)
	}
	tieB, err := db.CreateRule(draft("tie-b", intp(50)))
	if err != nil {
		t.Fatal(err)
	}
	high, err := db.CreateRule(draft("high", intp(90)))
	if err != nil {
		t.Fatal(err)
	}

	// tie-b earns a match, so it outranks tie-a despite equal priority
	// and a later creation time.
	if err := db.IncrementMatchCount(tieB.ID); err != nil {
		t.Fatal(err)
	}

	rules, err := db.ListRules(store.RuleFilter{})
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := []string{high.ID, tieB.ID, tieA.ID, low.ID}
	if len(rules) != len(wantOrder) {
		t.Fatalf("got %d rules, want %d", len(rules), len(wantOrder))
	}
	for i, id := range wantOrder {
		if rules[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, rules[i].Name, id)
		}
	}
}

func TestListRules_Filters(t *testing.T) {
	db := testutil.TestDB(t)

	if _, err := db.CreateRule(draft("active", nil)); err != nil {
		t.Fatal(err)
	}
	kd := draft("keywords", nil)
	kd.Type = models.RuleKeyword
	kd.Pattern = "invoice"
	if _, err := db.CreateRule(kd); err != nil {
		t.Fatal(err)
	}
	id := draft("inactive", nil)
	id.IsActive = boolp(false)
	if _, err := db.CreateRule(id); err != nil {
		t.Fatal(err)
	}

	rules, err := db.ListRules(store.RuleFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 2 {
		t.Errorf("default listing has %d rules, want 2 active", len(rules))
	}

	rules, err = db.ListRules(store.RuleFilter{IncludeInactive: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 3 {
		t.Errorf("inclusive listing has %d rules, want 3", len(rules))
	}

	rules, err = db.ListRules(store.RuleFilter{Type: models.RuleKeyword})
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 || rules[0].Name != "keywords" {
		t.Errorf("type filter = %+v", rules)
	}
}

func TestUpdateRule_PreservesCounters(t *testing.T) {
	db := testutil.TestDB(t)

	r, err := db.CreateRule(draft("orig", nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.IncrementMatchCount(r.ID); err != nil {
		t.Fatal(err)
	}

	d := draft("renamed", intp(80))
	upd, err := db.UpdateRule(r.ID, d)
	if err != nil {
		t.Fatal(err)
	}
	if upd.Name != "renamed" || upd.Priority != 80 {
		t.Errorf("updated rule = %+v", upd)
	}
	if upd.MatchCount != 1 {
		t.Errorf("match count = %d, want preserved 1", upd.MatchCount)
	}
	if !upd.CreatedAt.Equal(r.CreatedAt) {
		t.Errorf("created_at changed: %v != %v", upd.CreatedAt, r.CreatedAt)
	}

	if _, err := db.UpdateRule("no-such-id", d); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update missing rule: err = %v, want ErrNotFound", err)
	}
}

func TestToggleRule(t *testing.T) {
	db := testutil.TestDB(t)

	r, err := db.CreateRule(draft("t", nil))
	if err != nil {
		t.Fatal(err)
	}

	active, err := db.ToggleRule(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if active {
		t.Error("first toggle should deactivate")
	}
	active, err = db.ToggleRule(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !active {
		t.Error("second toggle should reactivate")
	}

	if _, err := db.ToggleRule("no-such-id"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("toggle missing rule: err = %v, want ErrNotFound", err)
	}
}

func TestMatchCounters(t *testing.T) {
	db := testutil.TestDB(t)

	r, err := db.CreateRule(draft("c", nil))
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if err := db.IncrementMatchCount(r.ID); err != nil {
			t.Fatal(err)
		}
	}
	got, err := db.GetRule(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.MatchCount != 3 {
		t.Errorf("match count = %d, want 3", got.MatchCount)
	}

	// A dangling or empty id is tolerated: the rule may have been deleted
	// after it matched.
	if err := db.IncrementMatchCount("gone"); err != nil {
		t.Errorf("dangling increment: %v", err)
	}
	if err := db.IncrementMatchCount(""); err != nil {
		t.Errorf("empty increment: %v", err)
	}

	if err := db.ResetMatchCount(r.ID); err != nil {
		t.Fatal(err)
	}
	got, err = db.GetRule(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.MatchCount != 0 {
		t.Errorf("match count after reset = %d", got.MatchCount)
	}
	if err := db.ResetMatchCount("gone"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("reset missing rule: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRule(t *testing.T) {
	db := testutil.TestDB(t)

	r, err := db.CreateRule(draft("d", nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteRule(r.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetRule(r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get deleted rule: err = %v, want ErrNotFound", err)
	}
	if err := db.DeleteRule(r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double delete: err = %v, want ErrNotFound", err)
	}
}

func TestRulesByTarget(t *testing.T) {
	db := testutil.TestDB(t)

	a := draft("a", nil)
	if _, err := db.CreateRule(a); err != nil {
		t.Fatal(err)
	}
	b := draft("b", nil)
	b.TargetID = "21.01"
	if _, err := db.CreateRule(b); err != nil {
		t.Fatal(err)
	}

	rules, err := db.RulesByTarget(models.TargetFolder, "11.02")
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 || rules[0].Name != "a" {
		t.Errorf("by target = %+v", rules)
	}
}
