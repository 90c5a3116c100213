// Package groupaudit implements the resumable groups-without-owners audit.
// A full cycle spans several time-boxed invocations; progress between them
// lives in a domain.KVStore.
package groupaudit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"gw-audit/internal/domain"
)

// State is the persisted progress of one audit cycle.
type State struct {
	// NextIndex is the position in Groups of the next group to check.
	NextIndex int
	// Results holds the findings accumulated since the cycle began.
	Results []domain.GroupFinding
	// Groups is the list snapshot the cycle walks. Nil means no cycle is in
	// progress.
	Groups []domain.Group
}

// InCycle reports whether a group list snapshot exists.
func (s State) InCycle() bool { return s.Groups != nil }

// Done reports whether every group in the snapshot has been checked.
func (s State) Done() bool { return s.InCycle() && s.NextIndex >= len(s.Groups) }

// Checkpoints loads and stores State under three keys prefixed with the
// audit name.
type Checkpoints struct {
	kv     domain.KVStore
	audit  string
	logger *slog.Logger
}

// NewCheckpoints creates a checkpoint manager for audit.
func NewCheckpoints(kv domain.KVStore, audit string, logger *slog.Logger) *Checkpoints {
	return &Checkpoints{kv: kv, audit: audit, logger: logger.With("checkpoint", audit)}
}

// Keys returns the store keys in the order index, results, group list.
func (c *Checkpoints) Keys() (nextIndex, results, groups string) {
	return c.audit + ".next_index", c.audit + ".results", c.audit + ".groups"
}

// Load reads the stored state. It never fails: an unreadable or corrupt group
// list starts a new cycle, and an unreadable or out-of-range cursor or result
// list restarts the current cycle from the first group.
func (c *Checkpoints) Load(ctx context.Context) State {
	indexKey, resultsKey, groupsKey := c.Keys()

	var groups []domain.Group
	if !c.decode(ctx, groupsKey, &groups) || groups == nil {
		return State{}
	}
	st := State{Groups: groups}

	raw, ok, err := c.kv.Get(ctx, indexKey)
	if err != nil || !ok {
		if err != nil {
			c.logger.Warn("checkpoint index unreadable, restarting cycle", "error", err)
		}
		return st
	}
	next, err := strconv.Atoi(raw)
	if err != nil || next < 0 || next > len(groups) {
		c.logger.Warn("checkpoint index invalid, restarting cycle", "value", raw, "groups", len(groups))
		return st
	}

	var results []domain.GroupFinding
	if !c.decode(ctx, resultsKey, &results) && next > 0 {
		c.logger.Warn("checkpoint results missing, restarting cycle", "next_index", next)
		return st
	}
	st.NextIndex = next
	st.Results = results
	return st
}

// decode unmarshals key into v. It reports false when the key is missing or
// its value cannot be used.
func (c *Checkpoints) decode(ctx context.Context, key string, v any) bool {
	raw, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		c.logger.Warn("checkpoint field unreadable", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		c.logger.Warn("checkpoint field corrupt", "key", key, "error", err)
		return false
	}
	return true
}

// SaveGroups stores the group list snapshot of a new cycle and resets the
// cursor.
func (c *Checkpoints) SaveGroups(ctx context.Context, groups []domain.Group) error {
	if groups == nil {
		groups = []domain.Group{}
	}
	indexKey, resultsKey, groupsKey := c.Keys()
	raw, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("encode group list: %w", err)
	}
	if err := c.kv.Set(ctx, groupsKey, string(raw)); err != nil {
		return fmt.Errorf("save group list: %w", err)
	}
	if err := c.kv.Set(ctx, resultsKey, "[]"); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	if err := c.kv.Set(ctx, indexKey, "0"); err != nil {
		return fmt.Errorf("save next index: %w", err)
	}
	return nil
}

// Save stores the cursor and accumulated results. Results are written first,
// so a crash between the two writes re-checks the last batch instead of
// losing its findings.
func (c *Checkpoints) Save(ctx context.Context, st State) error {
	indexKey, resultsKey, _ := c.Keys()
	results := st.Results
	if results == nil {
		results = []domain.GroupFinding{}
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := c.kv.Set(ctx, resultsKey, string(raw)); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	if err := c.kv.Set(ctx, indexKey, strconv.Itoa(st.NextIndex)); err != nil {
		return fmt.Errorf("save next index: %w", err)
	}
	return nil
}

// Clear removes all three fields, ending the cycle.
func (c *Checkpoints) Clear(ctx context.Context) error {
	indexKey, resultsKey, groupsKey := c.Keys()
	if err := c.kv.Delete(ctx, indexKey, resultsKey, groupsKey); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}
