package navigation

import (
	"fmt"

	"github.com/gorustyt/navcore/common"
	"github.com/gorustyt/navcore/detour_crowd"
)

const MAX_AVOIDANCE_DEBUG_SAMPLES = 2048

// AgentHandle names a crowd agent. The generation changes every time the
// slot is filled or emptied, so a handle outlives neither its agent nor a
// rebuild of the crowd.
type AgentHandle struct {
	Index      int32
	Generation uint32
}

func (h AgentHandle) String() string { return fmt.Sprintf("agent#%d.%d", h.Index, h.Generation) }

type Crowd interface {
	CrowdInit(maxAgents int, maxAgentRadius float32) error
	CrowdAddAgent(pos common.Vec3, params *detour_crowd.DtCrowdAgentParams) (AgentHandle, error)
	CrowdRemoveAgent(h AgentHandle) error
	CrowdRemoveAllAgents()
	CrowdSetAgentTarget(h AgentHandle, pos common.Vec3) error
	CrowdMoveAgentToward(h AgentHandle, dir common.Vec3) error
	CrowdStopAgentMove(h AgentHandle) error
	CrowdUpdateAllAgents(dt float32)
	CrowdUpdateAgentOnly(dt float32, h AgentHandle) error
	CrowdAgentDebug() *detour_crowd.DtCrowdAgentDebugInfo
	CrowdGetAgentPosition(h AgentHandle) (common.Vec3, error)
	CrowdResetAgentPosition(h AgentHandle, pos common.Vec3) error
}

// DefaultAgentParams returns agent parameters sized from the build settings.
func (n *navigationBase) DefaultAgentParams() detour_crowd.DtCrowdAgentParams {
	return detour_crowd.DtCrowdAgentParams{
		Radius:           n.m_settings.AgentRadius,
		Height:           n.m_settings.AgentHeight,
		MaxAcceleration:  8.0,
		MaxSpeed:         3.5,
		SeparationWeight: 2.0,
		UpdateFlags: detour_crowd.DT_CROWD_ANTICIPATE_TURNS | detour_crowd.DT_CROWD_OPTIMIZE_VIS |
			detour_crowd.DT_CROWD_OPTIMIZE_TOPO | detour_crowd.DT_CROWD_OBSTACLE_AVOIDANCE,
		ObstacleAvoidanceType: 3,
	}
}

// CrowdInit replaces the crowd. Handles of the previous crowd become stale.
func (n *navigationBase) CrowdInit(maxAgents int, maxAgentRadius float32) error {
	if n.m_navMesh == nil {
		return ErrNotLoaded
	}
	crowd, ok := detour_crowd.NewDtCrowd(maxAgents, maxAgentRadius, n.m_navMesh)
	if !ok {
		return fmt.Errorf("%w: init crowd of %d agents", ErrBuildFailed, maxAgents)
	}

	// Make polygons with 'disabled' flag invalid.
	for i := 0; i < MAX_QUERY_FILTER_TYPE; i++ {
		*crowd.GetEditableFilter(i) = *n.m_filters[i]
	}

	// Setup local avoidance params to different qualities.
	params := *crowd.GetObstacleAvoidanceParams(0)
	// Use mostly default settings, copy from dtCrowd.
	// Low (11)
	params.VelBias = 0.5
	params.AdaptiveDivs = 5
	params.AdaptiveRings = 2
	params.AdaptiveDepth = 1
	crowd.SetObstacleAvoidanceParams(0, &params)

	// Medium (22)
	params.VelBias = 0.5
	params.AdaptiveDivs = 5
	params.AdaptiveRings = 2
	params.AdaptiveDepth = 2
	crowd.SetObstacleAvoidanceParams(1, &params)

	// Good (45)
	params.VelBias = 0.5
	params.AdaptiveDivs = 7
	params.AdaptiveRings = 2
	params.AdaptiveDepth = 3
	crowd.SetObstacleAvoidanceParams(2, &params)

	// High (66)
	params.VelBias = 0.5
	params.AdaptiveDivs = 7
	params.AdaptiveRings = 3
	params.AdaptiveDepth = 3
	crowd.SetObstacleAvoidanceParams(3, &params)

	// Invalidate every handle of the old crowd before the slots are reused.
	gen := make([]uint32, maxAgents)
	for i := range gen {
		if i < len(n.m_agentGen) {
			gen[i] = n.m_agentGen[i] + 1
		}
	}
	n.m_agentGen = gen
	n.m_crowd = crowd
	n.m_agentDebug = detour_crowd.DtCrowdAgentDebugInfo{Idx: -1}
	return nil
}

// agent resolves a handle to its slot index.
func (n *navigationBase) agent(h AgentHandle) (int, *detour_crowd.DtCrowdAgent, error) {
	if n.m_crowd == nil {
		return -1, nil, ErrNotLoaded
	}
	idx := int(h.Index)
	if idx < 0 || idx >= len(n.m_agentGen) || h.Generation == 0 {
		return -1, nil, fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}
	ag := n.m_crowd.GetEditableAgent(idx)
	if ag == nil || !ag.Active || n.m_agentGen[idx] != h.Generation {
		return -1, nil, fmt.Errorf("%w: %v", ErrStaleHandle, h)
	}
	return idx, ag, nil
}

// CrowdAddAgent places a new agent at the navmesh point nearest pos. The
// radius is clamped to the configured range and the query ranges are
// derived from it.
func (n *navigationBase) CrowdAddAgent(pos common.Vec3, params *detour_crowd.DtCrowdAgentParams) (AgentHandle, error) {
	if n.m_crowd == nil {
		return AgentHandle{}, ErrNotLoaded
	}
	ap := n.DefaultAgentParams()
	if params != nil {
		ap = *params
	}
	ap.Radius = common.Clamp(ap.Radius, n.m_settings.AgentMinRadius, n.m_settings.MaxAgentRadius)
	ap.CollisionQueryRange = ap.Radius * 12.0
	ap.PathOptimizationRange = ap.Radius * 30.0

	idx := n.m_crowd.AddAgent(pos[:], &ap)
	if idx < 0 {
		return AgentHandle{}, fmt.Errorf("%w: crowd is full", ErrCapacityExceeded)
	}
	n.m_agentGen[idx]++
	return AgentHandle{Index: int32(idx), Generation: n.m_agentGen[idx]}, nil
}

func (n *navigationBase) CrowdRemoveAgent(h AgentHandle) error {
	idx, _, err := n.agent(h)
	if err != nil {
		return err
	}
	n.m_crowd.RemoveAgent(idx)
	n.m_agentGen[idx]++
	return nil
}

func (n *navigationBase) CrowdRemoveAllAgents() {
	if n.m_crowd == nil {
		return
	}
	for i := range n.m_agentGen {
		if ag := n.m_crowd.GetAgent(i); ag != nil && ag.Active {
			n.m_crowd.RemoveAgent(i)
			n.m_agentGen[i]++
		}
	}
}

// CrowdSetAgentTarget asks the agent to path to the navmesh point nearest pos.
func (n *navigationBase) CrowdSetAgentTarget(h AgentHandle, pos common.Vec3) error {
	idx, ag, err := n.agent(h)
	if err != nil {
		return err
	}
	filter := n.m_crowd.GetFilter(int(ag.Params.QueryFilterType))
	ref, target, _, status := n.m_navQuery.FindNearestPoly(pos[:], n.m_crowd.GetQueryHalfExtents(), filter)
	if status.Failed() || ref == 0 {
		return fmt.Errorf("%w: target %v", ErrNoPolygon, pos)
	}
	if !n.m_crowd.RequestMoveTarget(idx, ref, target[:]) {
		return fmt.Errorf("%w: move request rejected for %v", ErrInvalidHandle, h)
	}
	return nil
}

// CrowdMoveAgentToward steers the agent along dir at its maximum speed.
func (n *navigationBase) CrowdMoveAgentToward(h AgentHandle, dir common.Vec3) error {
	idx, ag, err := n.agent(h)
	if err != nil {
		return err
	}
	vel := dir
	if l := dir.Len(); l > 0 {
		vel = dir.Mul(ag.Params.MaxSpeed / l)
	}
	n.m_crowd.RequestMoveVelocity(idx, vel[:])
	return nil
}

func (n *navigationBase) CrowdStopAgentMove(h AgentHandle) error {
	idx, _, err := n.agent(h)
	if err != nil {
		return err
	}
	var zero [3]float32
	n.m_crowd.RequestMoveVelocity(idx, zero[:])
	return nil
}

func (n *navigationBase) CrowdUpdateAllAgents(dt float32) {
	if n.m_crowd == nil {
		return
	}
	n.m_crowd.Update(dt, nil)
}

// CrowdUpdateAgentOnly advances one agent and records its avoidance samples,
// readable through CrowdAgentDebug.
func (n *navigationBase) CrowdUpdateAgentOnly(dt float32, h AgentHandle) error {
	idx, _, err := n.agent(h)
	if err != nil {
		return err
	}
	if n.m_agentDebug.Vod == nil {
		n.m_agentDebug.Vod = detour_crowd.NewDtObstacleAvoidanceDebugData(MAX_AVOIDANCE_DEBUG_SAMPLES)
	}
	n.m_agentDebug.Idx = idx
	n.m_crowd.UpdateAgents(dt, []int{idx}, &n.m_agentDebug)
	return nil
}

func (n *navigationBase) CrowdAgentDebug() *detour_crowd.DtCrowdAgentDebugInfo {
	return &n.m_agentDebug
}

func (n *navigationBase) CrowdGetAgentPosition(h AgentHandle) (common.Vec3, error) {
	_, ag, err := n.agent(h)
	if err != nil {
		return common.Vec3{}, err
	}
	return ag.Npos, nil
}

// CrowdResetAgentPosition teleports the agent to the navmesh point nearest
// pos and drops its move request.
func (n *navigationBase) CrowdResetAgentPosition(h AgentHandle, pos common.Vec3) error {
	idx, ag, err := n.agent(h)
	if err != nil {
		return err
	}
	filter := n.m_crowd.GetFilter(int(ag.Params.QueryFilterType))
	ref, nearest, _, status := n.m_navQuery.FindNearestPoly(pos[:], n.m_crowd.GetQueryHalfExtents(), filter)
	if status.Failed() || ref == 0 {
		return fmt.Errorf("%w: reset position %v", ErrNoPolygon, pos)
	}
	n.m_crowd.ResetMoveTarget(idx)
	ag.Corridor.Reset(ref, nearest[:])
	ag.Boundary.Reset()
	ag.Partial = false
	ag.Npos = nearest
	ag.Dvel = [3]float32{}
	ag.Nvel = [3]float32{}
	ag.Vel = [3]float32{}
	ag.DesiredSpeed = 0
	ag.State = detour_crowd.DT_CROWDAGENT_STATE_WALKING
	return nil
}
