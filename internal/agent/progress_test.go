package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xvetrov/deskpilot/api/schemas"
)

func TestProgressFeed_DeliversInOrder(t *testing.T) {
	f := NewProgressFeed(4)
	f.Publish(schemas.ProgressUpdate{Message: "one"})
	f.Publish(schemas.ProgressUpdate{Message: "two"})
	f.Close()

	var got []string
	for u := range f.Updates() {
		got = append(got, u.Message)
	}
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestProgressFeed_DropsOldestWhenFull(t *testing.T) {
	f := NewProgressFeed(2)
	f.Publish(schemas.ProgressUpdate{Message: "one"})
	f.Publish(schemas.ProgressUpdate{Message: "two"})
	f.Publish(schemas.ProgressUpdate{Message: "three"})
	f.Close()

	var got []string
	for u := range f.Updates() {
		got = append(got, u.Message)
	}
	assert.Equal(t, []string{"two", "three"}, got, "a slow observer loses the oldest updates, never the newest")
}

func TestProgressFeed_PublishAfterCloseIsNoop(t *testing.T) {
	f := NewProgressFeed(2)
	f.Close()
	assert.NotPanics(t, func() {
		f.Publish(schemas.ProgressUpdate{Message: "late"})
	})
}

func TestProgressFeed_StampsTimestamps(t *testing.T) {
	f := NewProgressFeed(1)
	f.Publish(schemas.ProgressUpdate{Message: "one"})
	f.Close()

	u, ok := <-f.Updates()
	require.True(t, ok)
	assert.False(t, u.Timestamp.IsZero())
}
