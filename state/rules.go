package state

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"practicelab/config"
	apperrors "practicelab/errors"
)

// Failure types understood by the interceptor.
const (
	FailureLatency = "latency"
	FailureError   = "error"
	FailureFlaky   = "flaky"
)

// Rule is a failure injected in front of every mock route whose path starts
// with Target.
type Rule struct {
	ID        string    `json:"id"`
	Target    string    `json:"target"`
	Failure   Failure   `json:"failure"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}

// Failure defines the specifics of a failure, using camelCase JSON tags.
type Failure struct {
	Type        string  `json:"type"`
	LatencyMs   int     `json:"latencyMs,omitempty"`
	ErrorCode   int     `json:"errorCode,omitempty"`
	Probability float64 `json:"probability,omitempty"`
}

// Validate checks that a rule can be applied.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Target) == "" {
		return apperrors.Validation("target is required")
	}
	switch r.Failure.Type {
	case FailureLatency:
		if r.Failure.LatencyMs <= 0 {
			return apperrors.Validation("latency rules need a positive latencyMs")
		}
	case FailureError:
		if r.Failure.ErrorCode < 400 || r.Failure.ErrorCode > 599 {
			return apperrors.Validation(fmt.Sprintf("errorCode %d is not an HTTP error status", r.Failure.ErrorCode))
		}
	case FailureFlaky:
		if r.Failure.Probability <= 0 || r.Failure.Probability > 1 {
			return apperrors.Validation("probability must be in (0, 1]")
		}
	default:
		return apperrors.Validation(fmt.Sprintf("unknown failure type %q", r.Failure.Type))
	}
	return nil
}

// RuleState holds the current set of rules in a thread-safe manner.
type RuleState struct {
	mu          sync.RWMutex
	rules       map[string]Rule
	dataFile    string
	fileModTime time.Time
}

// NewRuleState creates the rule store. Rules already persisted in dataFile win;
// initialRules are only used when there is nothing on disk.
func NewRuleState(initialRules []config.Rule, dataFile string) (*RuleState, error) {
	rs := &RuleState{
		rules:    make(map[string]Rule),
		dataFile: dataFile,
	}

	if dataFile != "" {
		if err := rs.loadFromFile(); err != nil {
			return nil, fmt.Errorf("load rules from %s: %w", dataFile, err)
		}
	}

	if len(rs.rules) == 0 {
		now := time.Now()
		for i, r := range initialRules {
			rule := Rule{
				ID:     uuid.New().String(),
				Target: r.Target,
				Failure: Failure{
					Type:        r.Failure.Type,
					LatencyMs:   r.Failure.LatencyMs,
					ErrorCode:   r.Failure.ErrorCode,
					Probability: r.Failure.Probability,
				},
				Enabled:   true,
				CreatedAt: now.Add(time.Duration(i)),
			}
			if err := rule.Validate(); err != nil {
				return nil, fmt.Errorf("rule %q: %w", r.Target, err)
			}
			rs.rules[rule.ID] = rule
		}
	}

	return rs, nil
}

// loadFromFile replaces the rules with the file contents. A file holding an
// invalid rule is rejected as a whole and the current rules stay in place.
func (rs *RuleState) loadFromFile() error {
	fileInfo, err := os.Stat(rs.dataFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	data, err := os.ReadFile(rs.dataFile)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	// Recorded even on failure so a broken file is reported once, not per request.
	rs.fileModTime = fileInfo.ModTime()

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return err
	}
	loaded := make(map[string]Rule, len(rules))
	for i, rule := range rules {
		if rule.ID == "" {
			return fmt.Errorf("rule %d: id is required", i)
		}
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("rule %q: %w", rule.ID, err)
		}
		loaded[rule.ID] = rule
	}
	rs.rules = loaded
	return nil
}

// commit persists next and only then makes it the live rule set. Must be
// called with the write lock held.
func (rs *RuleState) commit(next map[string]Rule) error {
	if rs.dataFile != "" {
		data, err := json.MarshalIndent(sortedRules(next), "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(rs.dataFile, data, 0o644); err != nil {
			return err
		}
		if info, err := os.Stat(rs.dataFile); err == nil {
			rs.fileModTime = info.ModTime()
		}
	}
	rs.rules = next
	return nil
}

// withRule returns a copy of the rule set with rule stored under its id.
func (rs *RuleState) withRule(rule Rule) map[string]Rule {
	next := maps.Clone(rs.rules)
	next[rule.ID] = rule
	return next
}

// sortedRules returns the rules oldest first.
func sortedRules(m map[string]Rule) []Rule {
	rules := make([]Rule, 0, len(m))
	for _, rule := range m {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].ID < rules[j].ID
	})
	return rules
}

// GetRules returns all rules, oldest first.
func (rs *RuleState) GetRules() []Rule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return sortedRules(rs.rules)
}

// AddRule assigns an id, stores the rule and persists.
func (rs *RuleState) AddRule(rule Rule) (Rule, error) {
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	rule.ID = uuid.New().String()
	rule.CreatedAt = time.Now()

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if err := rs.commit(rs.withRule(rule)); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// UpdateRule replaces an existing rule. Returns false if the rule is not found.
func (rs *RuleState) UpdateRule(rule Rule) (bool, error) {
	if err := rule.Validate(); err != nil {
		return false, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	existing, ok := rs.rules[rule.ID]
	if !ok {
		return false, nil
	}
	rule.CreatedAt = existing.CreatedAt
	return true, rs.commit(rs.withRule(rule))
}

// SetEnabled toggles a rule. Returns false if the rule is not found.
func (rs *RuleState) SetEnabled(id string, enabled bool) (bool, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rule, ok := rs.rules[id]
	if !ok {
		return false, nil
	}
	rule.Enabled = enabled
	return true, rs.commit(rs.withRule(rule))
}

// DeleteRule removes a rule by its ID. Returns false if the rule is not found.
func (rs *RuleState) DeleteRule(id string) (bool, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.rules[id]; !ok {
		return false, nil
	}
	next := maps.Clone(rs.rules)
	delete(next, id)
	return true, rs.commit(next)
}

// FindRuleForTarget returns the oldest enabled rule whose target is a prefix
// of path.
func (rs *RuleState) FindRuleForTarget(path string) (Rule, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	for _, rule := range sortedRules(rs.rules) {
		if rule.Enabled && strings.HasPrefix(path, rule.Target) {
			return rule, true
		}
	}
	return Rule{}, false
}

// CheckAndReloadIfModified reloads the rules when the data file changed on
// disk since it was last read or written, so hand edits take effect live.
func (rs *RuleState) CheckAndReloadIfModified() error {
	if rs.dataFile == "" {
		return nil
	}

	fileInfo, err := os.Stat(rs.dataFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	rs.mu.RLock()
	stale := fileInfo.ModTime().After(rs.fileModTime)
	rs.mu.RUnlock()
	if stale {
		return rs.loadFromFile()
	}
	return nil
}
