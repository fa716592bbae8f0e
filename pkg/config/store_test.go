package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/relaybot/pkg/rules"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "config.json"), DefaultConfig())
}

func TestStore_Admins(t *testing.T) {
	s := newTestStore(t)

	assert.False(t, s.HasAdmins())
	assert.False(t, s.IsAdmin(1111))

	require.NoError(t, s.AddAdmin(1111))
	assert.True(t, s.HasAdmins())
	assert.True(t, s.IsAdmin(1111))

	assert.ErrorIs(t, s.AddAdmin(1111), ErrDuplicate)

	require.NoError(t, s.AddAdmin(2222))
	assert.Equal(t, []int64{1111, 2222}, s.Admins())

	require.NoError(t, s.RemoveAdmin(1111))
	assert.False(t, s.IsAdmin(1111))
	assert.ErrorIs(t, s.RemoveAdmin(1111), ErrNotFound)
}

func TestStore_Sources(t *testing.T) {
	s := newTestStore(t)

	normalized, err := s.AddSource("@NewsChannel")
	require.NoError(t, err)
	assert.Equal(t, "NewsChannel", normalized)

	// Duplicate detection ignores case and the @ sigil.
	_, err = s.AddSource("newschannel")
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = s.AddSource("@NEWSCHANNEL")
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = s.AddSource("  ")
	assert.ErrorIs(t, err, ErrEmptyEntry)

	_, err = s.AddSource("-1001234567890")
	require.NoError(t, err)
	assert.Equal(t, []string{"NewsChannel", "-1001234567890"}, s.Sources())

	removed, err := s.RemoveSource("@newschannel")
	require.NoError(t, err)
	assert.Equal(t, "NewsChannel", removed)
	assert.Equal(t, []string{"-1001234567890"}, s.Sources())

	_, err = s.RemoveSource("NewsChannel")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Target(t *testing.T) {
	s := newTestStore(t)

	assert.Empty(t, s.Target())

	_, err := s.SetTarget("")
	assert.ErrorIs(t, err, ErrEmptyEntry)

	normalized, err := s.SetTarget("@mytarget")
	require.NoError(t, err)
	assert.Equal(t, "mytarget", normalized)
	assert.Equal(t, "mytarget", s.Target())

	_, err = s.SetTarget("mytarget")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestStore_ClearTargetDisablesForwarding(t *testing.T) {
	s := newTestStore(t)

	_, _, err := s.ClearTarget()
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.SetTarget("mytarget")
	require.NoError(t, err)
	require.NoError(t, s.SetEnabled(true))

	old, wasEnabled, err := s.ClearTarget()
	require.NoError(t, err)
	assert.Equal(t, "mytarget", old)
	assert.True(t, wasEnabled)
	assert.Empty(t, s.Target())
	assert.False(t, s.Enabled())
}

func TestStore_Rules(t *testing.T) {
	s := newTestStore(t)

	assert.ErrorIs(t, s.AddRule("nonsense", "a", "b"), ErrUnknownCategory)
	assert.ErrorIs(t, s.AddRule(rules.CategoryWords, "", "b"), ErrEmptyRule)
	assert.ErrorIs(t, s.AddRule(rules.CategoryWords, "a", "  "), ErrEmptyRule)

	require.NoError(t, s.AddRule(rules.CategoryLinks, "old.com", "new.com"))
	require.NoError(t, s.AddRule(rules.CategoryWords, " hello ", " hi "))

	rs := s.Rules()
	assert.Equal(t, "new.com", rs.Links["old.com"])
	assert.Equal(t, "hi", rs.Words["hello"], "rule sides are trimmed on insert")

	// Last write wins.
	require.NoError(t, s.AddRule(rules.CategoryLinks, "old.com", "newer.com"))
	assert.Equal(t, "newer.com", s.Rules().Links["old.com"])

	value, err := s.RemoveRule(rules.CategoryLinks, "old.com")
	require.NoError(t, err)
	assert.Equal(t, "newer.com", value)
	_, err = s.RemoveRule(rules.CategoryLinks, "old.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ClearRules(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddRule(rules.CategoryLinks, "a.com", "b.com"))
	require.NoError(t, s.AddRule(rules.CategoryWords, "a", "b"))
	require.NoError(t, s.AddRule(rules.CategoryWords, "c", "d"))
	require.NoError(t, s.AddRule(rules.CategorySentences, "Good Morning", "Hi"))

	count, err := s.ClearRules(rules.CategoryWords)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Empty(t, s.Rules().Words)
	assert.Len(t, s.Rules().Links, 1)

	count, err = s.ClearRules("all")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 0, s.Rules().Count())

	_, err = s.ClearRules("nonsense")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddSource("newschannel")
	require.NoError(t, err)
	_, err = s.SetTarget("mytarget")
	require.NoError(t, err)
	require.NoError(t, s.SetEnabled(true))
	require.NoError(t, s.AddRule(rules.CategoryWords, "hello", "hi"))

	snap := s.Snapshot()
	assert.True(t, snap.Enabled)
	assert.Equal(t, "mytarget", snap.Target)

	// Mutations after the snapshot must not leak into it.
	_, err = s.AddSource("otherchannel")
	require.NoError(t, err)
	require.NoError(t, s.AddRule(rules.CategoryWords, "goodbye", "bye"))

	assert.Equal(t, []string{"newschannel"}, snap.Sources)
	assert.Len(t, snap.Rules.Words, 1)

	// And mutating the snapshot must not leak back.
	snap.Rules.Words["injected"] = "x"
	assert.Len(t, s.Rules().Words, 2)
}

func TestStore_MutationsPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s := NewStore(path, DefaultConfig())

	require.NoError(t, s.AddAdmin(1111))
	_, err := s.AddSource("newschannel")
	require.NoError(t, err)
	_, err = s.SetTarget("mytarget")
	require.NoError(t, err)
	require.NoError(t, s.AddRule(rules.CategoryWords, "hello", "hi"))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []int64{1111}, loaded.AdminUsers)
	assert.Equal(t, FlexibleStringSlice{"newschannel"}, loaded.SourceChannels)
	assert.Equal(t, "mytarget", loaded.TargetChannel)
	assert.Equal(t, "hi", loaded.Replacements.Words["hello"])
}

func TestStore_Status(t *testing.T) {
	s := newTestStore(t)

	st := s.Status()
	assert.True(t, st.BotRunning)
	assert.Equal(t, "Not Set", st.TargetChannel)
	assert.Zero(t, st.ActiveReplacements)

	require.NoError(t, s.AddAdmin(1111))
	_, err := s.AddSource("newschannel")
	require.NoError(t, err)
	_, err = s.SetTarget("mytarget")
	require.NoError(t, err)
	require.NoError(t, s.SetEnabled(true))
	require.NoError(t, s.AddRule(rules.CategoryLinks, "a.com", "b.com"))

	st = s.Status()
	assert.True(t, st.ForwardingEnabled)
	assert.Equal(t, 1, st.SourceChannels)
	assert.Equal(t, "mytarget", st.TargetChannel)
	assert.Equal(t, 1, st.AdminUsers)
	assert.Equal(t, 1, st.ActiveReplacements)
}
