package performance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerAggregatesPerTenant(t *testing.T) {
	tr := NewTracker(nil)

	for i := 0; i < 3; i++ {
		m := tr.StartOperation("track:event", "t_1")
		m.Complete()
		m.Complete()
	}
	failed := tr.StartOperation("chat:reply", "t_1")
	failed.SetError(errors.New("no consent"))
	failed.Complete()
	tr.StartOperation("track:event", "t_2").Complete()

	snap := tr.TakeSnapshot("t_1")
	require.Len(t, snap.Operations, 2)
	assert.Equal(t, "chat:reply", snap.Operations[0].Operation)
	assert.Equal(t, 1, snap.Operations[0].Failures)
	assert.Equal(t, "no consent", snap.Operations[0].LastError)
	assert.Equal(t, 3, snap.Operations[1].Count)
	assert.Equal(t, HealthDegraded, snap.OverallHealth)

	assert.Equal(t, HealthUnknown, tr.TakeSnapshot("nobody").OverallHealth)
	assert.Equal(t, HealthHealthy, tr.TakeSnapshot("t_2").OverallHealth)
}
