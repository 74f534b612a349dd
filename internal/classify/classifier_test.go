package classify

import (
	"regexp"
	"testing"
	"time"

	"github.com/halvard/ordna/internal/models"
	"github.com/halvard/ordna/internal/testutil"
)

func newEngine() *Engine {
	return New(testutil.Logger(), nil)
}

func file(name string) models.FileDescriptor {
	return models.NewFileDescriptor("/inbox/"+name, time.Now())
}

func rule(id string, t models.RuleType, pattern string, priority int) models.Rule {
	return models.Rule{
		ID:         id,
		Name:       id,
		Type:       t,
		Pattern:    pattern,
		TargetType: models.TargetFolder,
		TargetID:   "11.02",
		Priority:   priority,
		IsActive:   true,
	}
}

func TestExtensionRule_ExactMatchOnly(t *testing.T) {
	e := newEngine()
	rules := []models.Rule{rule("r1", models.RuleExtension, "pdf", 50)}

	s := e.Classify(file("report.pdf"), rules)
	if s.RuleID != "r1" || s.Confidence != models.ConfidenceHigh {
		t.Errorf("pdf suggestion = %+v, want r1/high", s)
	}

	// "pdfx" is a different extension, not a prefix match.
	s = e.Classify(file("report.pdfx"), rules)
	if s.Matched() {
		t.Errorf("pdfx matched extension rule: %+v", s)
	}

	// Case-insensitive via extension normalization.
	s = e.Classify(file("REPORT.PDF"), rules)
	if s.RuleID != "r1" {
		t.Errorf("PDF did not match: %+v", s)
	}
}

func TestExtensionRule_CommaList(t *testing.T) {
	e := newEngine()
	rules := []models.Rule{rule("r1", models.RuleExtension, "pdf, docx", 50)}

	for _, name := range []string{"a.pdf", "b.docx"} {
		if s := e.Classify(file(name), rules); s.RuleID != "r1" {
			t.Errorf("%s did not match comma list: %+v", name, s)
		}
	}
	if s := e.Classify(file("c.txt"), rules); s.Matched() {
		t.Errorf("txt matched pdf,docx list: %+v", s)
	}
}

func TestKeywordRule_AnyToken(t *testing.T) {
	e := newEngine()
	rules := []models.Rule{rule("r1", models.RuleKeyword, "invoice,receipt", 50)}

	if s := e.Classify(file("Invoice-march.pdf"), rules); s.RuleID != "r1" {
		t.Errorf("keyword miss: %+v", s)
	}
	if s := e.Classify(file("receipt_42.png"), rules); s.RuleID != "r1" {
		t.Errorf("second keyword miss: %+v", s)
	}
	if s := e.Classify(file("summary.pdf"), rules); s.Matched() {
		t.Errorf("unrelated name matched: %+v", s)
	}
	if s := e.Classify(file("invoice.pdf"), rules); s.Confidence != models.ConfidenceMedium {
		t.Errorf("keyword confidence = %q, want medium", s.Confidence)
	}
}

func TestPathRule(t *testing.T) {
	e := newEngine()
	rules := []models.Rule{rule("r1", models.RulePath, "downloads", 50)}

	f := models.NewFileDescriptor("/home/x/Downloads/a.zip", time.Now())
	if s := e.Classify(f, rules); s.RuleID != "r1" {
		t.Errorf("path rule miss: %+v", s)
	}
	f = models.NewFileDescriptor("/home/x/Desktop/a.zip", time.Now())
	if s := e.Classify(f, rules); s.Matched() {
		t.Errorf("wrong dir matched: %+v", s)
	}
}

func TestRegexRule(t *testing.T) {
	e := newEngine()
	rules := []models.Rule{rule("r1", models.RuleRegex, `^img_\d{4}`, 50)}

	// (?i) is prepended, so case differences still match.
	if s := e.Classify(file("IMG_2041.jpg"), rules); s.RuleID != "r1" {
		t.Errorf("regex miss: %+v", s)
	}
	if s := e.Classify(file("photo_2041.jpg"), rules); s.Matched() {
		t.Errorf("non-matching name matched: %+v", s)
	}
}

func TestBrokenRegex_NeverMatches(t *testing.T) {
	e := newEngine()
	rules := []models.Rule{
		rule("bad", models.RuleRegex, "[unclosed", 90),
		rule("good", models.RuleExtension, "pdf", 10),
	}

	// The broken rule is skipped; the lower-priority rule still fires.
	if s := e.Classify(file("a.pdf"), rules); s.RuleID != "good" {
		t.Errorf("suggestion = %+v, want good", s)
	}
}

func TestCompoundRule(t *testing.T) {
	e := newEngine()
	rules := []models.Rule{rule("r1", models.RuleCompound, "ext:pdf,keyword:invoice,keyword:receipt", 50)}

	if s := e.Classify(file("invoice-2024.pdf"), rules); s.RuleID != "r1" || s.Confidence != models.ConfidenceHigh {
		t.Errorf("compound suggestion = %+v, want r1/high", s)
	}
	// Right keyword, wrong extension.
	if s := e.Classify(file("invoice-2024.docx"), rules); s.Matched() {
		t.Errorf("wrong ext matched compound: %+v", s)
	}
	// Right extension, no keyword.
	if s := e.Classify(file("summary.pdf"), rules); s.Matched() {
		t.Errorf("no keyword matched compound: %+v", s)
	}
}

func TestDateRule(t *testing.T) {
	e := newEngine()

	yearOnly := []models.Rule{rule("y", models.RuleDate, "year:2024", 50)}
	if s := e.Classify(file("report-2024-03.pdf"), yearOnly); s.RuleID != "y" {
		t.Errorf("year-only miss: %+v", s)
	}
	if s := e.Classify(file("report-2023-03.pdf"), yearOnly); s.Matched() {
		t.Errorf("wrong year matched: %+v", s)
	}

	literal := []models.Rule{rule("ym", models.RuleDate, "2024-03", 50)}
	if s := e.Classify(file("scan_2024-03-15.png"), literal); s.RuleID != "ym" {
		t.Errorf("literal year-month miss: %+v", s)
	}
	// Month constrained, token has no month component.
	if s := e.Classify(file("scan_2024.png"), literal); s.Matched() {
		t.Errorf("year-only token matched month-constrained rule: %+v", s)
	}
}

func TestExcludePattern_SuppressesMatch(t *testing.T) {
	e := newEngine()
	r := rule("r1", models.RuleExtension, "pdf", 50)
	r.ExcludePattern = "draft,tmp"
	rules := []models.Rule{r}

	if s := e.Classify(file("final.pdf"), rules); s.RuleID != "r1" {
		t.Errorf("clean name miss: %+v", s)
	}
	if s := e.Classify(file("draft-final.pdf"), rules); s.Matched() {
		t.Errorf("excluded name matched: %+v", s)
	}
}

func TestInactiveRule_Skipped(t *testing.T) {
	e := newEngine()
	r := rule("r1", models.RuleExtension, "pdf", 50)
	r.IsActive = false

	if s := e.Classify(file("a.pdf"), []models.Rule{r}); s.Matched() {
		t.Errorf("inactive rule matched: %+v", s)
	}
}

func TestFirstMatchWins_InGivenOrder(t *testing.T) {
	e := newEngine()
	rules := []models.Rule{
		rule("high", models.RuleExtension, "pdf", 90),
		rule("low", models.RuleKeyword, "report", 10),
	}

	// Both rules match; the first one in the slice wins.
	if s := e.Classify(file("report.pdf"), rules); s.RuleID != "high" {
		t.Errorf("winner = %q, want high", s.RuleID)
	}
}

func TestFallbackBucket(t *testing.T) {
	e := New(testutil.Logger(), map[string]models.TargetRef{
		CategoryImage: {Type: models.TargetCategory, ID: "cat-img"},
	})

	s := e.Classify(file("photo.jpg"), nil)
	if s.TargetID != "cat-img" || s.Confidence != models.ConfidenceLow || s.RuleID != "" {
		t.Errorf("fallback suggestion = %+v, want cat-img/low/no rule", s)
	}

	// No bucket for the category: no suggestion at all.
	s = e.Classify(file("notes.txt"), nil)
	if s.Matched() || s.Confidence != models.ConfidenceNone {
		t.Errorf("unmatched suggestion = %+v, want none", s)
	}
}

func TestClassifyBatch_SharedPreparation(t *testing.T) {
	e := newEngine()
	rules := []models.Rule{rule("r1", models.RuleExtension, "pdf", 50)}
	files := []models.FileDescriptor{file("a.pdf"), file("b.txt"), file("c.pdf")}

	out := e.ClassifyBatch(files, rules)
	if len(out) != 3 {
		t.Fatalf("batch len = %d", len(out))
	}
	if out[0].RuleID != "r1" || out[2].RuleID != "r1" || out[1].Matched() {
		t.Errorf("batch = %+v", out)
	}
}

func TestParseCompound_Errors(t *testing.T) {
	// No ext, no keyword, unknown key, and a segment without a key.
	cases := []string{
		"keyword:invoice",
		"ext:pdf",
		"ext:pdf,color:red",
		"ext:pdf,invoice",
	}
	for _, pattern := range cases {
		if _, err := parseCompound(pattern); err == nil {
			t.Errorf("parseCompound(%q) should fail", pattern)
		}
	}
}

func TestParseDatePattern_KVWinsOverLiteral(t *testing.T) {
	dp, err := parseDatePattern("2024-03,year:2022")
	if err != nil {
		t.Fatal(err)
	}
	if dp.year != 2022 || dp.month != 0 {
		t.Errorf("mixed pattern = %+v, want kv form to win", dp)
	}
}

func TestFileCategory(t *testing.T) {
	cases := map[string]string{
		"pdf":  CategoryDocument,
		"xlsx": CategorySpreadsheet,
		"jpg":  CategoryImage,
		"zip":  CategoryArchive,
		"go":   CategoryCode,
		"wat":  CategoryOther,
	}
	for ext, want := range cases {
		if got := FileCategory(ext); got != want {
			t.Errorf("FileCategory(%q) = %q, want %q", ext, got, want)
		}
	}
}

func TestMatchBounded(t *testing.T) {
	re := regexp.MustCompile(`^a+$`)

	matched, timedOut := matchBounded(re, "aaaa", DefaultRegexBudget)
	if !matched || timedOut {
		t.Errorf("matchBounded = %v, %v, want match without timeout", matched, timedOut)
	}

	// A non-positive budget falls back to the default rather than
	// failing every match instantly.
	matched, timedOut = matchBounded(re, "aaaa", 0)
	if !matched || timedOut {
		t.Errorf("zero budget: matchBounded = %v, %v", matched, timedOut)
	}
}
