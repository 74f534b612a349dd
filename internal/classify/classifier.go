// Package classify implements the rule-matching engine. Classification
// is a pure function over file metadata and a rule list: the engine
// performs no I/O and never mutates the rule store. Bumping a rule's
// match count when a suggestion is acted on is the caller's job.
package classify

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/halvard/ordna/internal/models"
)

// Engine classifies files against rules.
type Engine struct {
	logger      *slog.Logger
	regexBudget time.Duration

	// fallback maps a file-type category (see FileCategory) to a target,
	// used only when no rule matches. Suggestions from it carry low
	// confidence and no rule id.
	fallback map[string]models.TargetRef
}

// New creates an engine. fallback may be nil to disable the heuristic
// bucket.
func New(logger *slog.Logger, fallback map[string]models.TargetRef) *Engine {
	return &Engine{
		logger:      logger,
		regexBudget: DefaultRegexBudget,
		fallback:    fallback,
	}
}

// SetFallback replaces the heuristic fallback mapping.
func (e *Engine) SetFallback(fallback map[string]models.TargetRef) {
	e.fallback = fallback
}

// preparedRule is a rule with its pattern compiled for repeated matching.
type preparedRule struct {
	rule     *models.Rule
	excludes []string
	tokens   []string // keyword/path tokens
	re       *regexp.Regexp
	compound *compoundPattern
	date     *datePattern
	broken   bool // pattern failed to parse; treated as never matching
}

// prepare compiles every rule's pattern once. Rules whose patterns fail
// to parse are kept but never match; that is a degradation, not an
// error, and is logged once here.
func (e *Engine) prepare(rules []models.Rule) []preparedRule {
	out := make([]preparedRule, 0, len(rules))
	for i := range rules {
		r := &rules[i]
		p := preparedRule{rule: r}
		if r.ExcludePattern != "" {
			p.excludes = splitTokens(r.ExcludePattern)
		}

		var err error
		switch r.Type {
		case models.RuleExtension:
			for _, t := range splitTokens(r.Pattern) {
				p.tokens = append(p.tokens, models.NormalizeExtension(t))
			}
		case models.RuleKeyword, models.RulePath:
			p.tokens = splitTokens(r.Pattern)
		case models.RuleRegex:
			p.re, err = regexp.Compile("(?i)" + r.Pattern)
		case models.RuleCompound:
			p.compound, err = parseCompound(r.Pattern)
		case models.RuleDate:
			p.date, err = parseDatePattern(r.Pattern)
		}
		if err != nil {
			p.broken = true
			e.logger.Warn("classify: rule pattern unusable, treated as non-match",
				slog.String("rule_id", r.ID),
				slog.String("pattern", r.Pattern),
				slog.String("error", err.Error()))
		}
		out = append(out, p)
	}
	return out
}

// matches evaluates one prepared rule against a file.
func (e *Engine) matches(p *preparedRule, f models.FileDescriptor) bool {
	if p.broken || !p.rule.IsActive {
		return false
	}

	// Any exclude token occurring in the filename suppresses the rule
	// regardless of its predicate.
	lowerName := strings.ToLower(f.Name)
	for _, ex := range p.excludes {
		if strings.Contains(lowerName, ex) {
			return false
		}
	}

	switch p.rule.Type {
	case models.RuleExtension:
		for _, t := range p.tokens {
			if t != "" && t == f.Extension {
				return true
			}
		}
		return false

	case models.RuleKeyword:
		for _, t := range p.tokens {
			if strings.Contains(lowerName, t) {
				return true
			}
		}
		return false

	case models.RulePath:
		lowerPath := strings.ToLower(f.Path)
		for _, t := range p.tokens {
			if strings.Contains(lowerPath, t) {
				return true
			}
		}
		return false

	case models.RuleRegex:
		ok, timedOut := matchBounded(p.re, f.Name, e.regexBudget)
		if timedOut {
			e.logger.Warn("classify: regex match exceeded time budget, treated as non-match",
				slog.String("rule_id", p.rule.ID),
				slog.String("file", f.Name))
			return false
		}
		return ok

	case models.RuleCompound:
		return p.compound.match(f)

	case models.RuleDate:
		return p.date.match(f.Name)
	}
	return false
}

// confidenceFor maps a matched rule type to suggestion confidence.
func confidenceFor(t models.RuleType) models.Confidence {
	switch t {
	case models.RuleExtension, models.RuleCompound:
		return models.ConfidenceHigh
	default:
		return models.ConfidenceMedium
	}
}

// Classify evaluates rules in the order given — the rule store's
// canonical priority order is the resolution policy, so the first match
// wins. When no rule matches, the extension-derived fallback bucket may
// supply a low-confidence suggestion.
func (e *Engine) Classify(f models.FileDescriptor, rules []models.Rule) models.Suggestion {
	return e.classifyPrepared(f, e.prepare(rules))
}

// ClassifyBatch classifies many files against one rule set, compiling
// each pattern once.
func (e *Engine) ClassifyBatch(files []models.FileDescriptor, rules []models.Rule) []models.Suggestion {
	prepared := e.prepare(rules)
	out := make([]models.Suggestion, len(files))
	for i, f := range files {
		out[i] = e.classifyPrepared(f, prepared)
	}
	return out
}

func (e *Engine) classifyPrepared(f models.FileDescriptor, prepared []preparedRule) models.Suggestion {
	for i := range prepared {
		p := &prepared[i]
		if e.matches(p, f) {
			return models.Suggestion{
				TargetType: p.rule.TargetType,
				TargetID:   p.rule.TargetID,
				RuleID:     p.rule.ID,
				Confidence: confidenceFor(p.rule.Type),
			}
		}
	}

	if target, ok := e.fallback[FileCategory(f.Extension)]; ok {
		return models.Suggestion{
			TargetType: target.Type,
			TargetID:   target.ID,
			Confidence: models.ConfidenceLow,
		}
	}
	return models.Suggestion{Confidence: models.ConfidenceNone}
}
