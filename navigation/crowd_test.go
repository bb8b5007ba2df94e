package navigation

import (
	"testing"

	"github.com/gorustyt/navcore/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrowdAgentReachesTarget(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))
	h, err := nav.CrowdAddAgent(common.Vec3{2, 0, 2}, nil)
	require.NoError(t, err)

	target := common.Vec3{15, 0, 15}
	require.NoError(t, nav.CrowdSetAgentTarget(h, target))
	for i := 0; i < 200; i++ {
		nav.Update(0.1)
	}
	pos, err := nav.CrowdGetAgentPosition(h)
	require.NoError(t, err)
	assert.Less(t, horizDist(pos, target), float32(1))

	require.NoError(t, nav.CrowdStopAgentMove(h))
	nav.Update(0.1)
	stopped, err := nav.CrowdGetAgentPosition(h)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		nav.Update(0.1)
	}
	pos, err = nav.CrowdGetAgentPosition(h)
	require.NoError(t, err)
	assert.Less(t, horizDist(pos, stopped), float32(0.5))
}

func TestCrowdMoveTowardAndReset(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))
	h, err := nav.CrowdAddAgent(common.Vec3{5, 0, 10}, nil)
	require.NoError(t, err)

	require.NoError(t, nav.CrowdMoveAgentToward(h, common.Vec3{1, 0, 0}))
	for i := 0; i < 10; i++ {
		require.NoError(t, nav.CrowdUpdateAgentOnly(0.1, h))
	}
	pos, err := nav.CrowdGetAgentPosition(h)
	require.NoError(t, err)
	assert.Greater(t, pos[0], float32(6))
	assert.Equal(t, int(h.Index), nav.CrowdAgentDebug().Idx)

	require.NoError(t, nav.CrowdResetAgentPosition(h, common.Vec3{3, 0, 3}))
	pos, err = nav.CrowdGetAgentPosition(h)
	require.NoError(t, err)
	assert.InDelta(t, 0, horizDist(pos, common.Vec3{3, 0, 3}), 0.01)

	assert.ErrorIs(t, nav.CrowdSetAgentTarget(h, common.Vec3{100, 0, 100}), ErrNoPolygon)
	assert.ErrorIs(t, nav.CrowdResetAgentPosition(h, common.Vec3{100, 0, 100}), ErrNoPolygon)
}

func TestCrowdStaleHandles(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))
	h, err := nav.CrowdAddAgent(common.Vec3{2, 0, 2}, nil)
	require.NoError(t, err)
	require.NoError(t, nav.CrowdRemoveAgent(h))

	assert.ErrorIs(t, nav.CrowdRemoveAgent(h), ErrStaleHandle)
	_, err = nav.CrowdGetAgentPosition(h)
	assert.ErrorIs(t, err, ErrStaleHandle)

	// The slot is reused but the old handle stays stale.
	h2, err := nav.CrowdAddAgent(common.Vec3{3, 0, 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, h.Index, h2.Index)
	assert.NotEqual(t, h.Generation, h2.Generation)
	assert.ErrorIs(t, nav.CrowdStopAgentMove(h), ErrStaleHandle)
	assert.NoError(t, nav.CrowdStopAgentMove(h2))

	nav.CrowdRemoveAllAgents()
	assert.ErrorIs(t, nav.CrowdStopAgentMove(h2), ErrStaleHandle)

	assert.ErrorIs(t, nav.CrowdStopAgentMove(AgentHandle{Index: 9999, Generation: 1}), ErrInvalidHandle)
	assert.ErrorIs(t, nav.CrowdStopAgentMove(AgentHandle{Index: 0}), ErrInvalidHandle)
}

func TestCrowdHandlesDieWithRebuild(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))
	h, err := nav.CrowdAddAgent(common.Vec3{2, 0, 2}, nil)
	require.NoError(t, err)

	require.NoError(t, nav.CrowdInit(8, 1))
	assert.ErrorIs(t, nav.CrowdStopAgentMove(h), ErrStaleHandle)

	nav.Cleanup()
	assert.ErrorIs(t, nav.CrowdStopAgentMove(h), ErrNotLoaded)
	_, err = nav.CrowdAddAgent(common.Vec3{2, 0, 2}, nil)
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, nav.CrowdInit(8, 1), ErrNotLoaded)
}

func TestCrowdCapacity(t *testing.T) {
	st := DefaultSettings()
	st.MaxAgents = 2
	nav := NewNavigationSolo(st)
	nav.SetGeometry(flatGeometry(20))
	require.True(t, nav.Build(st.AgentRadius, st.AgentHeight, st.AgentMaxClimb))

	for i := 0; i < 2; i++ {
		_, err := nav.CrowdAddAgent(common.Vec3{float32(2 + i*4), 0, 2}, nil)
		require.NoError(t, err)
	}
	_, err := nav.CrowdAddAgent(common.Vec3{10, 0, 10}, nil)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestCrowdAgentRadiusClamped(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))
	params := nav.DefaultAgentParams()
	params.Radius = 50
	h, err := nav.CrowdAddAgent(common.Vec3{10, 0, 10}, &params)
	require.NoError(t, err)
	ag := nav.GetCrowd().GetAgent(int(h.Index))
	assert.Equal(t, nav.GetSettings().MaxAgentRadius, ag.Params.Radius)
	assert.Equal(t, ag.Params.Radius*30, ag.Params.PathOptimizationRange)
}
