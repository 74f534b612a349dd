package store

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/halvard/ordna/internal/apperr"
	"github.com/halvard/ordna/internal/models"
)

// RuleDraft carries the caller-supplied fields for creating or updating
// a rule. A nil Priority defaults to models.PriorityDefault; a nil
// IsActive defaults to true.
type RuleDraft struct {
	Name           string
	Type           models.RuleType
	Pattern        string
	ExcludePattern string
	TargetType     models.TargetType
	TargetID       string
	Priority       *int
	IsActive       *bool
	Notes          string
}

func (d *RuleDraft) validate() error {
	if d.Name == "" || d.Pattern == "" || d.TargetID == "" {
		return fmt.Errorf("store: name, pattern and target_id are required: %w", apperr.ErrInvalid)
	}
	if !d.Type.Valid() {
		return fmt.Errorf("store: unknown rule_type %q: %w", d.Type, apperr.ErrInvalid)
	}
	if !d.TargetType.Valid() {
		return fmt.Errorf("store: unknown target_type %q: %w", d.TargetType, apperr.ErrInvalid)
	}
	if d.Type == models.RuleRegex {
		if _, err := regexp.Compile("(?i)" + d.Pattern); err != nil {
			return fmt.Errorf("store: regex pattern does not compile: %v: %w", err, apperr.ErrInvalid)
		}
	}
	return nil
}

func (d *RuleDraft) priority() int {
	if d.Priority == nil {
		return models.PriorityDefault
	}
	return models.ClampPriority(*d.Priority)
}

func (d *RuleDraft) active() bool {
	if d.IsActive == nil {
		return true
	}
	return *d.IsActive
}

// CreateRule validates the draft and inserts a new rule.
func (db *DB) CreateRule(d RuleDraft) (*models.Rule, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now().UTC()
	r := &models.Rule{
		ID:             uuid.NewString(),
		Name:           d.Name,
		Type:           d.Type,
		Pattern:        d.Pattern,
		ExcludePattern: d.ExcludePattern,
		TargetType:     d.TargetType,
		TargetID:       d.TargetID,
		Priority:       d.priority(),
		IsActive:       d.active(),
		Notes:          d.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err := db.conn.Exec(`
		INSERT INTO rules (id, name, rule_type, pattern, exclude_pattern,
			target_type, target_id, priority, is_active, match_count, notes,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
	`, r.ID, r.Name, r.Type, r.Pattern, r.ExcludePattern,
		r.TargetType, r.TargetID, r.Priority, r.IsActive, r.Notes,
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: insert rule: %w", err)
	}
	return r, nil
}

// UpdateRule validates the draft and replaces the rule's mutable fields.
// match_count and created_at are preserved.
func (db *DB) UpdateRule(id string, d RuleDraft) (*models.Rule, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec(`
		UPDATE rules SET name = ?, rule_type = ?, pattern = ?,
			exclude_pattern = ?, target_type = ?, target_id = ?,
			priority = ?, is_active = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, d.Name, d.Type, d.Pattern, d.ExcludePattern, d.TargetType, d.TargetID,
		d.priority(), d.active(), d.Notes, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("store: update rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.ErrNotFound
	}
	return db.getRule(id)
}

// DeleteRule removes a rule. Historical ledger and activity rows keep the
// id as a dangling reference for audit purposes.
func (db *DB) DeleteRule(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec(`DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

const ruleColumns = `id, name, rule_type, pattern, exclude_pattern,
	target_type, target_id, priority, is_active, match_count, notes,
	created_at, updated_at`

func scanRule(row interface{ Scan(...any) error }) (*models.Rule, error) {
	var r models.Rule
	err := row.Scan(&r.ID, &r.Name, &r.Type, &r.Pattern, &r.ExcludePattern,
		&r.TargetType, &r.TargetID, &r.Priority, &r.IsActive, &r.MatchCount,
		&r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRule returns a rule by id.
func (db *DB) GetRule(id string) (*models.Rule, error) {
	return db.getRule(id)
}

func (db *DB) getRule(id string) (*models.Rule, error) {
	r, err := scanRule(db.conn.QueryRow(
		`SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get rule: %w", err)
	}
	return r, nil
}

// RuleFilter narrows ListRules. The zero value lists active rules of
// every type, matching the default listing contract.
type RuleFilter struct {
	Type            models.RuleType
	IncludeInactive bool
}

// ListRules returns rules in canonical order: priority descending, then
// match_count descending, then created_at ascending. This ordering is the
// classifier's resolution policy, so it must stay deterministic.
func (db *DB) ListRules(f RuleFilter) ([]models.Rule, error) {
	q := `SELECT ` + ruleColumns + ` FROM rules WHERE 1=1`
	var args []any
	if !f.IncludeInactive {
		q += ` AND is_active = 1`
	}
	if f.Type != "" {
		q += ` AND rule_type = ?`
		args = append(args, f.Type)
	}
	q += ` ORDER BY priority DESC, match_count DESC, created_at ASC`

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list rules: %w", err)
	}
	defer rows.Close()

	var out []models.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// RulesByTarget returns all rules (active or not) pointing at a target.
func (db *DB) RulesByTarget(targetType models.TargetType, targetID string) ([]models.Rule, error) {
	rows, err := db.conn.Query(
		`SELECT `+ruleColumns+` FROM rules
		 WHERE target_type = ? AND target_id = ?
		 ORDER BY priority DESC, match_count DESC, created_at ASC`,
		targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("store: rules by target: %w", err)
	}
	defer rows.Close()

	var out []models.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ToggleRule flips a rule's is_active flag and returns the new value.
func (db *DB) ToggleRule(id string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec(
		`UPDATE rules SET is_active = NOT is_active, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("store: toggle rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, apperr.ErrNotFound
	}
	var active bool
	if err := db.conn.QueryRow(`SELECT is_active FROM rules WHERE id = ?`, id).Scan(&active); err != nil {
		return false, fmt.Errorf("store: toggle rule readback: %w", err)
	}
	return active, nil
}

// IncrementMatchCount atomically bumps a rule's success counter.
// A dangling id is a no-op: the rule may have been deleted since it matched.
func (db *DB) IncrementMatchCount(id string) error {
	if id == "" {
		return nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`UPDATE rules SET match_count = match_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: increment match count: %w", err)
	}
	return nil
}

// ResetMatchCount zeroes a rule's success counter.
func (db *DB) ResetMatchCount(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec(`UPDATE rules SET match_count = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: reset match count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
