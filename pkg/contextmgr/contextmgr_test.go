package contextmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndRecent(t *testing.T) {
	cm := NewContextManager()
	cm.AddUser("hello")
	cm.AddAssistant("hi there")
	cm.AddUser("my name is Ada")

	assert.Equal(t, 3, cm.Len())

	recent := cm.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, RoleAssistant, recent[0].Role)
	assert.Equal(t, "my name is Ada", recent[1].Content)

	assert.Len(t, cm.Recent(10), 3)
	assert.Empty(t, cm.Recent(0))
}

func TestWithinBudgetKeepsSuffix(t *testing.T) {
	cm := NewContextManager()
	cm.AddUser("one two three four five six seven eight nine ten")
	cm.AddAssistant("a b c")
	cm.AddUser("short")

	all := cm.WithinBudget(1 << 20)
	assert.Len(t, all, 3)

	// A tight budget drops the oldest messages first.
	small := cm.WithinBudget(6)
	require.NotEmpty(t, small)
	assert.Equal(t, "short", small[len(small)-1].Content)
	assert.Less(t, len(small), 3)

	// Even a budget of 1 returns the newest message.
	one := cm.WithinBudget(1)
	require.Len(t, one, 1)
	assert.Equal(t, "short", one[0].Content)

	assert.Empty(t, cm.WithinBudget(0))
}

func TestMessagesReturnsCopy(t *testing.T) {
	cm := NewContextManager()
	cm.AddUser("original")
	msgs := cm.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, "original", cm.Messages()[0].Content)
}

func TestSerializeRoundTrip(t *testing.T) {
	cm := NewContextManager()
	cm.AddUser("hello")
	cm.AddAssistant("welcome back")

	data, err := cm.Serialize()
	require.NoError(t, err)

	restored := NewContextManager()
	require.NoError(t, restored.Deserialize(data))

	require.Equal(t, cm.Len(), restored.Len())
	for i, m := range cm.Messages() {
		r := restored.Messages()[i]
		assert.Equal(t, m.Role, r.Role)
		assert.Equal(t, m.Content, r.Content)
		assert.Equal(t, m.Timestamp.Unix(), r.Timestamp.Unix())
	}

	assert.Error(t, restored.Deserialize([]byte("{not json")))
}

func TestSummary(t *testing.T) {
	cm := NewContextManager()
	assert.Equal(t, "empty transcript", cm.Summary())

	cm.AddUser("hi")
	cm.AddAssistant("hello")
	cm.AddUser("bye")
	assert.Contains(t, cm.Summary(), "3 messages")
	assert.Contains(t, cm.Summary(), "user: 2")
	assert.Contains(t, cm.Summary(), "assistant: 1")
}

func TestCountTokensNonZero(t *testing.T) {
	cm := NewContextManager()
	assert.Zero(t, cm.CountTokens())
	cm.AddUser("token counting should see this text")
	assert.Greater(t, cm.CountTokens(), 0)
}
