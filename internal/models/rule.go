// Package models defines the domain types for Ordna.
package models

import "time"

// RuleType discriminates how a rule's pattern is evaluated.
type RuleType string

// Rule types.
const (
	RuleExtension RuleType = "extension"
	RuleKeyword   RuleType = "keyword"
	RulePath      RuleType = "path"
	RuleRegex     RuleType = "regex"
	RuleCompound  RuleType = "compound"
	RuleDate      RuleType = "date"
)

// Valid reports whether t is one of the known rule types.
func (t RuleType) Valid() bool {
	switch t {
	case RuleExtension, RuleKeyword, RulePath, RuleRegex, RuleCompound, RuleDate:
		return true
	}
	return false
}

// TargetType identifies the level of the index a rule points at.
type TargetType string

// Target types.
const (
	TargetFolder   TargetType = "folder"
	TargetCategory TargetType = "category"
	TargetArea     TargetType = "area"
)

// Valid reports whether t is one of the known target types.
func (t TargetType) Valid() bool {
	switch t {
	case TargetFolder, TargetCategory, TargetArea:
		return true
	}
	return false
}

// TargetRef is a reference to a node in the index.
type TargetRef struct {
	Type TargetType `json:"target_type"`
	ID   string     `json:"target_id"`
}

// Priority bounds. Out-of-range values are clamped, absent values default.
const (
	PriorityMin     = 0
	PriorityMax     = 100
	PriorityDefault = 50
)

// ClampPriority forces p into [PriorityMin, PriorityMax].
func ClampPriority(p int) int {
	if p < PriorityMin {
		return PriorityMin
	}
	if p > PriorityMax {
		return PriorityMax
	}
	return p
}

// Rule is a persisted classification rule.
type Rule struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Type           RuleType   `json:"rule_type"`
	Pattern        string     `json:"pattern"`
	ExcludePattern string     `json:"exclude_pattern,omitempty"`
	TargetType     TargetType `json:"target_type"`
	TargetID       string     `json:"target_id"`
	Priority       int        `json:"priority"`
	IsActive       bool       `json:"is_active"`
	MatchCount     int64      `json:"match_count"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Target returns the rule's target reference.
func (r *Rule) Target() TargetRef {
	return TargetRef{Type: r.TargetType, ID: r.TargetID}
}
