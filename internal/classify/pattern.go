package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/halvard/ordna/internal/models"
)

// compoundPattern is the parsed form of a compound rule pattern,
// a conjunction encoded as "ext:<value>,keyword:<v1>,keyword:<v2>,…".
// It matches when the extension holds AND at least one keyword holds.
type compoundPattern struct {
	ext      string
	keywords []string
}

func parseCompound(pattern string) (*compoundPattern, error) {
	cp := &compoundPattern{}
	for _, part := range strings.Split(pattern, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("classify: compound segment %q lacks a key", part)
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "ext":
			cp.ext = models.NormalizeExtension(value)
		case "keyword":
			if value != "" {
				cp.keywords = append(cp.keywords, strings.ToLower(value))
			}
		default:
			return nil, fmt.Errorf("classify: compound segment has unknown key %q", key)
		}
	}
	if cp.ext == "" {
		return nil, fmt.Errorf("classify: compound pattern %q has no ext segment", pattern)
	}
	if len(cp.keywords) == 0 {
		return nil, fmt.Errorf("classify: compound pattern %q has no keyword segment", pattern)
	}
	return cp, nil
}

func (cp *compoundPattern) match(f models.FileDescriptor) bool {
	if cp.ext != f.Extension {
		return false
	}
	name := strings.ToLower(f.Name)
	for _, kw := range cp.keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// datePattern is the parsed form of a date rule pattern. A zero year or
// month leaves that component unconstrained.
type datePattern struct {
	year  int
	month int
}

var explicitDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// parseDatePattern accepts either an explicit "YYYY-MM" token or
// "year:YYYY,month:MM" key-value pairs (each key optional). When a
// pattern mixes both forms the key-value pairs win and the literal is
// ignored.
func parseDatePattern(pattern string) (*datePattern, error) {
	dp := &datePattern{}
	sawKV := false
	var literal *datePattern

	for _, part := range strings.Split(pattern, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if m := explicitDateRe.FindStringSubmatch(part); m != nil {
			y, _ := strconv.Atoi(m[1])
			mo, _ := strconv.Atoi(m[2])
			if mo < 1 || mo > 12 {
				return nil, fmt.Errorf("classify: date pattern %q has month out of range", part)
			}
			literal = &datePattern{year: y, month: mo}
			continue
		}
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("classify: date segment %q lacks a key", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("classify: date segment %q is not numeric", part)
		}
		switch strings.TrimSpace(key) {
		case "year":
			dp.year = n
			sawKV = true
		case "month":
			if n < 1 || n > 12 {
				return nil, fmt.Errorf("classify: date segment %q has month out of range", part)
			}
			dp.month = n
			sawKV = true
		default:
			return nil, fmt.Errorf("classify: date segment has unknown key %q", key)
		}
	}

	if sawKV {
		return dp, nil
	}
	if literal != nil {
		return literal, nil
	}
	return nil, fmt.Errorf("classify: date pattern %q has no recognizable form", pattern)
}

// dateTokenRe finds candidate date tokens in a filename: a four-digit
// year optionally followed by a separator and a two-digit month.
var dateTokenRe = regexp.MustCompile(`((?:19|20)\d{2})(?:[-_.]?(0[1-9]|1[0-2]))?`)

// match reports whether the filename contains a date token consistent
// with the pattern. A constrained month requires the token to carry one.
func (dp *datePattern) match(name string) bool {
	for _, m := range dateTokenRe.FindAllStringSubmatch(name, -1) {
		year, _ := strconv.Atoi(m[1])
		month := 0
		if m[2] != "" {
			month, _ = strconv.Atoi(m[2])
		}
		if dp.year != 0 && year != dp.year {
			continue
		}
		if dp.month != 0 && month != dp.month {
			continue
		}
		return true
	}
	return false
}

// splitTokens splits a comma-separated pattern into trimmed, lower-cased,
// non-empty tokens.
func splitTokens(pattern string) []string {
	var out []string
	for _, t := range strings.Split(pattern, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
