package logx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugGating(t *testing.T) {
	SetDebug(false)
	assert.False(t, IsDebugEnabled("guide"))

	SetDebug(true)
	defer SetDebug(false)
	assert.True(t, IsDebugEnabled("guide"))

	SetDebugDomains([]string{"guide"})
	defer SetDebugDomains(nil)
	assert.True(t, IsDebugEnabled("guide"))
	assert.False(t, IsDebugEnabled("tools"))

	SetDebugDomains(nil)
	assert.True(t, IsDebugEnabled("tools"))
}

func TestRecentEntriesFilter(t *testing.T) {
	start := time.Now().UTC().Add(-time.Second)
	logger := NewLogger("ringtest")
	logger.Info("first")
	logger.Warn("second")

	entries := RecentEntries("ringtest", start)
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "WARN", entries[1].Level)

	assert.Empty(t, RecentEntries("ringtest", time.Now().UTC().Add(time.Minute)))
	assert.Empty(t, RecentEntries("no-such-component", start))
}

func TestWithComponent(t *testing.T) {
	parent := NewLogger("parent")
	child := parent.WithComponent("child")
	start := time.Now().UTC().Add(-time.Second)
	child.Info("hello")

	entries := RecentEntries("child", start)
	require.Len(t, entries, 1)
	assert.Equal(t, "child", entries[0].Component)
}
