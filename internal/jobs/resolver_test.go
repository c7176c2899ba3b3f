package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

var configs = []entity.JobConfig{
	{ID: "job-grill", Name: "Grill"},
	{ID: "job-bar", Name: "Bar"},
	{ID: "job-front", Name: "Front Desk"},
	{ID: "job-rl", Name: "RL"},
}

func TestResolve_AliasBeatsName(t *testing.T) {
	aliases := []entity.JobAlias{{Alias: "bar", JobID: "job-front"}}
	id, ok := Resolve("BAR", aliases, configs)
	assert.True(t, ok)
	assert.Equal(t, "job-front", id)
}

func TestResolve_ExactName(t *testing.T) {
	id, ok := Resolve("  front   desk ", nil, configs)
	assert.True(t, ok)
	assert.Equal(t, "job-front", id)

	id, ok = Resolve("rl", nil, configs)
	assert.True(t, ok)
	assert.Equal(t, "job-rl", id)
}

func TestResolve_Partial(t *testing.T) {
	id, ok := Resolve("Grill Station", nil, configs)
	assert.True(t, ok)
	assert.Equal(t, "job-grill", id)

	id, ok = Resolve("Desk", nil, configs)
	assert.True(t, ok)
	assert.Equal(t, "job-front", id)
}

func TestResolve_ShortLabelNeverPartial(t *testing.T) {
	_, ok := Resolve("ll", nil, configs)
	assert.False(t, ok)

	// "RL" must not resolve against "Grill" even without an exact RL job
	_, ok = Resolve("RL", nil, configs[:3])
	assert.False(t, ok)
}

func TestResolve_ShortJobNameNeverPartial(t *testing.T) {
	cfg := []entity.JobConfig{{ID: "job-x", Name: "Ba"}}
	_, ok := Resolve("Barista", nil, cfg)
	assert.False(t, ok)
}

func TestResolve_Empty(t *testing.T) {
	_, ok := Resolve("   ", nil, configs)
	assert.False(t, ok)
	_, ok = Resolve("Kitchen", nil, nil)
	assert.False(t, ok)
}
