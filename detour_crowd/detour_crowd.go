package detour_crowd

import (
	"math"

	"github.com/gorustyt/navcore/common"
	"github.com/gorustyt/navcore/detour"
)

const (
	/// The maximum number of neighbors that a crowd agent can take into account
	/// for steering decisions.
	/// @ingroup crowd
	DT_CROWDAGENT_MAX_NEIGHBOURS = 6

	/// The maximum number of corners a crowd agent will look ahead in the path.
	/// This value is used for sizing the crowd agent corner buffers.
	/// Due to the behavior of the crowd manager, the actual number of useful
	/// corners will be one less than this number.
	/// @ingroup crowd
	DT_CROWDAGENT_MAX_CORNERS = 4

	/// The maximum number of crowd avoidance configurations supported by the
	/// crowd manager.
	/// @ingroup crowd
	/// @see DtObstacleAvoidanceParams, DtCrowd::SetObstacleAvoidanceParams(), DtCrowd::GetObstacleAvoidanceParams(),
	///		 DtCrowdAgentParams::ObstacleAvoidanceType
	DT_CROWD_MAX_OBSTAVOIDANCE_PARAMS = 8

	/// The maximum number of query filter types supported by the crowd manager.
	/// @ingroup crowd
	DT_CROWD_MAX_QUERY_FILTER_TYPE = 16
)

const (
	MAX_ITERS_PER_UPDATE = 100

	MAX_PATHQUEUE_NODES = 4096
	MAX_COMMON_NODES    = 512

	CHECK_LOOKAHEAD     = 10
	TARGET_REPLAN_DELAY = 1.0 // seconds

	OPT_TIME_THR   = 0.5 // seconds
	OPT_MAX_AGENTS = 1

	PATH_MAX_AGENTS = 8

	COLLISION_RESOLVE_FACTOR = 0.7
)

// / The type of navigation mesh polygon the agent is currently traversing.
// / @ingroup crowd
const (
	DT_CROWDAGENT_STATE_INVALID = iota ///< The agent is not in a valid state.
	DT_CROWDAGENT_STATE_WALKING        ///< The agent is traversing a normal navigation mesh polygon.
	DT_CROWDAGENT_STATE_OFFMESH        ///< The agent is traversing an off-mesh connection.
)

const (
	DT_CROWDAGENT_TARGET_NONE = iota
	DT_CROWDAGENT_TARGET_FAILED
	DT_CROWDAGENT_TARGET_VALID
	DT_CROWDAGENT_TARGET_REQUESTING
	DT_CROWDAGENT_TARGET_WAITING_FOR_QUEUE
	DT_CROWDAGENT_TARGET_WAITING_FOR_PATH
	DT_CROWDAGENT_TARGET_VELOCITY
)

// / Crowd agent update flags.
// / @ingroup crowd
// / @see DtCrowdAgentParams::UpdateFlags
const (
	DT_CROWD_ANTICIPATE_TURNS   = 1
	DT_CROWD_OBSTACLE_AVOIDANCE = 2
	DT_CROWD_SEPARATION         = 4
	DT_CROWD_OPTIMIZE_VIS       = 8  ///< Use #DtPathCorridor::OptimizePathVisibility() to optimize the agent path.
	DT_CROWD_OPTIMIZE_TOPO      = 16 ///< Use DtPathCorridor::OptimizePathTopology() to optimize the agent path.
)

// / Provides neighbor data for agents managed by the crowd.
// / @ingroup crowd
// / @see DtCrowdAgent::Neis, DtCrowd
type DtCrowdNeighbour struct {
	Idx  int     ///< The index of the neighbor in the crowd.
	Dist float32 ///< The distance between the current agent and the neighbor.
}

// / Configuration parameters for a crowd agent.
// / @ingroup crowd
type DtCrowdAgentParams struct {
	Radius          float32 ///< Agent radius. [Limit: >= 0]
	Height          float32 ///< Agent height. [Limit: > 0]
	MaxAcceleration float32 ///< Maximum allowed acceleration. [Limit: >= 0]
	MaxSpeed        float32 ///< Maximum allowed speed. [Limit: >= 0]

	/// Defines how close a collision element must be before it is considered for steering behaviors. [Limits: > 0]
	CollisionQueryRange float32

	PathOptimizationRange float32 ///< The path visibility optimization range. [Limit: > 0]

	/// How aggresive the agent manager should be at avoiding collisions with this agent. [Limit: >= 0]
	SeparationWeight float32

	/// Flags that impact steering behavior. (See: #UpdateFlags)
	UpdateFlags uint8

	/// The index of the avoidance configuration to use for the agent.
	/// [Limits: 0 <= value <= #DT_CROWD_MAX_OBSTAVOIDANCE_PARAMS]
	ObstacleAvoidanceType uint8

	/// The index of the query filter used by this agent.
	QueryFilterType uint8

	/// User defined data attached to the agent.
	UserData any
}

// / Represents an agent managed by a #DtCrowd object.
// / @ingroup crowd
type DtCrowdAgent struct {
	index int

	/// True if the agent is active, false if the agent is in an unused slot in the agent pool.
	Active bool

	/// The type of mesh polygon the agent is traversing. (See: #CrowdAgentState)
	State uint8

	/// True if the agent has valid path (targetState == DT_CROWDAGENT_TARGET_VALID) and the path does not lead to the requested position, else false.
	Partial bool

	/// The path corridor the agent is using.
	Corridor *DtPathCorridor

	/// The local boundary data for the agent.
	Boundary *DtLocalBoundary

	/// Time since the agent's path corridor was optimized.
	TopologyOptTime float32

	/// The known neighbors of the agent.
	Neis []DtCrowdNeighbour

	/// The desired speed.
	DesiredSpeed float32

	Npos [3]float32 ///< The current agent position. [(x, y, z)]
	Disp [3]float32 ///< A temporary value used to accumulate agent displacement during iterative collision resolution. [(x, y, z)]
	Dvel [3]float32 ///< The desired velocity of the agent. Based on the current path, calculated from scratch each frame. [(x, y, z)]
	Nvel [3]float32 ///< The desired velocity adjusted by obstacle avoidance, calculated from scratch each frame. [(x, y, z)]
	Vel  [3]float32 ///< The actual velocity of the agent. The change from nvel -> vel is constrained by max acceleration. [(x, y, z)]

	/// The agent's configuration parameters.
	Params DtCrowdAgentParams

	/// The local path corridor corners for the agent. (Staight path.) [(x, y, z) * #ncorners]
	CornerVerts []float32

	/// The local path corridor corner flags. (See: #DtStraightPathFlags) [(flags) * #ncorners]
	CornerFlags []uint8

	/// The reference id of the polygon being entered at the corner. [(polyRef) * #ncorners]
	CornerPolys []detour.DtPolyRef

	TargetState      uint8            ///< State of the movement request.
	TargetRef        detour.DtPolyRef ///< Target polyref of the movement request.
	TargetPos        [3]float32       ///< Target position of the movement request (or velocity in case of DT_CROWDAGENT_TARGET_VELOCITY).
	TargetPathqRef   DtPathQueueRef   ///< Path finder ref.
	TargetReplan     bool             ///< Flag indicating that the current path is being replanned.
	TargetReplanTime float32          ///< Time since the agent's target was replanned.
}

// Index returns the slot of the agent in the crowd.
func (ag *DtCrowdAgent) Index() int { return ag.index }

type dtCrowdAgentAnimation struct {
	active                    bool
	initPos, startPos, endPos [3]float32
	polyRef                   detour.DtPolyRef
	t, tmax                   float32
}

// DtCrowdAgentDebugInfo captures the visibility optimization segment and the avoidance
// samples of one agent during an update.
type DtCrowdAgentDebugInfo struct {
	Idx      int
	OptStart [3]float32
	OptEnd   [3]float32
	Vod      *DtObstacleAvoidanceDebugData
}

// / Provides local steering behaviors for a group of agents.
// / @ingroup crowd
type DtCrowd struct {
	m_maxAgents    int
	m_agents       []DtCrowdAgent
	m_activeAgents []*DtCrowdAgent
	m_agentAnims   []dtCrowdAgentAnimation

	m_pathq *DtPathQueue

	m_obstacleQueryParams [DT_CROWD_MAX_OBSTAVOIDANCE_PARAMS]DtObstacleAvoidanceParams
	m_obstacleQuery       *DtObstacleAvoidanceQuery

	m_grid *DtProximityGrid

	m_maxPathResult int

	m_agentPlacementHalfExtents [3]float32

	m_filters [DT_CROWD_MAX_QUERY_FILTER_TYPE]*detour.DtQueryFilter

	m_maxAgentRadius float32

	m_velocitySampleCount int

	m_navquery *detour.DtNavMeshQuery
}

// NewDtCrowd initializes a crowd of up to maxAgents agents on nav.
func NewDtCrowd(maxAgents int, maxAgentRadius float32, nav *detour.DtNavMesh) (*DtCrowd, bool) {
	if maxAgents <= 0 || maxAgentRadius <= 0 || nav == nil {
		return nil, false
	}
	c := &DtCrowd{
		m_maxAgents:      maxAgents,
		m_maxAgentRadius: maxAgentRadius,
		m_maxPathResult:  256,
	}

	// Larger than agent radius because it is also used for agent recovery.
	common.Vset(c.m_agentPlacementHalfExtents[:], c.m_maxAgentRadius*2.0, c.m_maxAgentRadius*1.5, c.m_maxAgentRadius*2.0)

	c.m_grid = NewDtProximityGrid(c.m_maxAgents*4, maxAgentRadius*3)
	if c.m_grid == nil {
		return nil, false
	}
	c.m_obstacleQuery = NewDtObstacleAvoidanceQuery(6, 8)

	// Init obstacle query params.
	for i := range c.m_obstacleQueryParams {
		c.m_obstacleQueryParams[i] = DefaultObstacleAvoidanceParams()
	}
	for i := range c.m_filters {
		c.m_filters[i] = detour.NewDtQueryFilter()
	}

	var ok bool
	c.m_pathq, ok = NewDtPathQueue(c.m_maxPathResult, MAX_PATHQUEUE_NODES, nav)
	if !ok {
		return nil, false
	}

	c.m_agents = make([]DtCrowdAgent, c.m_maxAgents)
	c.m_activeAgents = make([]*DtCrowdAgent, 0, c.m_maxAgents)
	c.m_agentAnims = make([]dtCrowdAgentAnimation, c.m_maxAgents)
	for i := range c.m_agents {
		c.m_agents[i].index = i
		c.m_agents[i].Corridor = NewDtPathCorridor(c.m_maxPathResult)
		c.m_agents[i].Boundary = NewDtLocalBoundary()
	}

	// The navquery is mostly used for local searches, no need for large node pool.
	var status detour.DtStatus
	c.m_navquery, status = detour.NewDtNavMeshQuery(nav, MAX_COMMON_NODES)
	if status.Failed() {
		return nil, false
	}
	return c, true
}

// / Sets the shared avoidance configuration for the specified index.
func (c *DtCrowd) SetObstacleAvoidanceParams(idx int, params *DtObstacleAvoidanceParams) {
	if idx >= 0 && idx < DT_CROWD_MAX_OBSTAVOIDANCE_PARAMS {
		c.m_obstacleQueryParams[idx] = *params
	}
}

// / Gets the shared avoidance configuration for the specified index.
func (c *DtCrowd) GetObstacleAvoidanceParams(idx int) *DtObstacleAvoidanceParams {
	if idx >= 0 && idx < DT_CROWD_MAX_OBSTAVOIDANCE_PARAMS {
		return &c.m_obstacleQueryParams[idx]
	}
	return nil
}

// / Gets the specified agent from the pool.
func (c *DtCrowd) GetAgent(idx int) *DtCrowdAgent {
	if idx < 0 || idx >= c.m_maxAgents {
		return nil
	}
	return &c.m_agents[idx]
}

// / Gets the specified agent from the pool.
func (c *DtCrowd) GetEditableAgent(idx int) *DtCrowdAgent { return c.GetAgent(idx) }

// / The maximum number of agents that can be managed by the object.
func (c *DtCrowd) GetAgentCount() int { return c.m_maxAgents }

// / Gets the filter used by the crowd.
func (c *DtCrowd) GetFilter(i int) *detour.DtQueryFilter {
	if i >= 0 && i < DT_CROWD_MAX_QUERY_FILTER_TYPE {
		return c.m_filters[i]
	}
	return nil
}

// / Gets the filter used by the crowd.
func (c *DtCrowd) GetEditableFilter(i int) *detour.DtQueryFilter { return c.GetFilter(i) }

// / Gets the search halfExtents [(x, y, z)] used by the crowd for query operations.
func (c *DtCrowd) GetQueryHalfExtents() []float32 { return c.m_agentPlacementHalfExtents[:] }

// / Gets the velocity sample count.
func (c *DtCrowd) GetVelocitySampleCount() int { return c.m_velocitySampleCount }

// / Gets the crowd's proximity grid.
func (c *DtCrowd) GetGrid() *DtProximityGrid { return c.m_grid }

// / Gets the crowd's path request queue.
func (c *DtCrowd) GetPathQueue() *DtPathQueue { return c.m_pathq }

// / Gets the query object used by the crowd.
func (c *DtCrowd) GetNavMeshQuery() *detour.DtNavMeshQuery { return c.m_navquery }

// / Updates the specified agent's configuration.
func (c *DtCrowd) UpdateAgentParameters(idx int, params *DtCrowdAgentParams) {
	if idx < 0 || idx >= c.m_maxAgents {
		return
	}
	p := *params
	p.ObstacleAvoidanceType = min(p.ObstacleAvoidanceType, DT_CROWD_MAX_OBSTAVOIDANCE_PARAMS-1)
	p.QueryFilterType = min(p.QueryFilterType, DT_CROWD_MAX_QUERY_FILTER_TYPE-1)
	c.m_agents[idx].Params = p
}

func (c *DtCrowd) agentFilter(ag *DtCrowdAgent) *detour.DtQueryFilter {
	return c.m_filters[ag.Params.QueryFilterType]
}

// / Adds a new agent to the crowd.
// / Returns the index of the agent in the agent pool, or -1 if the crowd is full.
func (c *DtCrowd) AddAgent(pos []float32, params *DtCrowdAgentParams) int {
	// Find empty slot.
	idx := -1
	for i := range c.m_agents {
		if !c.m_agents[i].Active {
			idx = i
			break
		}
	}
	if idx == -1 {
		return -1
	}

	ag := &c.m_agents[idx]
	c.UpdateAgentParameters(idx, params)

	// Find nearest position on navmesh and place the agent there.
	ref, nearest, _, status := c.m_navquery.FindNearestPoly(pos, c.m_agentPlacementHalfExtents[:], c.agentFilter(ag))
	if status.Failed() || ref == 0 {
		common.Vcopy(nearest[:], pos)
		ref = 0
	}

	ag.Corridor.Reset(ref, nearest[:])
	ag.Boundary.Reset()
	ag.Partial = false

	ag.TopologyOptTime = 0
	ag.TargetReplanTime = 0
	ag.Neis = ag.Neis[:0]
	ag.CornerVerts, ag.CornerFlags, ag.CornerPolys = nil, nil, nil

	ag.Dvel = [3]float32{}
	ag.Nvel = [3]float32{}
	ag.Vel = [3]float32{}
	ag.Npos = nearest

	ag.DesiredSpeed = 0

	if ref != 0 {
		ag.State = DT_CROWDAGENT_STATE_WALKING
	} else {
		ag.State = DT_CROWDAGENT_STATE_INVALID
	}

	ag.TargetState = DT_CROWDAGENT_TARGET_NONE
	c.m_agentAnims[idx].active = false
	ag.Active = true
	return idx
}

// / Removes the agent from the crowd.
// / The agent is deactivated and will no longer be processed. Its slot may be reused.
func (c *DtCrowd) RemoveAgent(idx int) {
	if idx >= 0 && idx < c.m_maxAgents {
		c.m_agents[idx].Active = false
		c.m_agentAnims[idx].active = false
	}
}

func (c *DtCrowd) requestMoveTargetReplan(idx int, ref detour.DtPolyRef, pos []float32) bool {
	if idx < 0 || idx >= c.m_maxAgents {
		return false
	}
	ag := &c.m_agents[idx]

	// Initialize request.
	ag.TargetRef = ref
	common.Vcopy(ag.TargetPos[:], pos)
	ag.TargetPathqRef = DT_PATHQ_INVALID
	ag.TargetReplan = true
	if ag.TargetRef != 0 {
		ag.TargetState = DT_CROWDAGENT_TARGET_REQUESTING
	} else {
		ag.TargetState = DT_CROWDAGENT_TARGET_FAILED
	}
	return true
}

// / Submits a new move request for the specified agent.
// / This method is used when a new target is set.
// / The position will be constrained to the surface of the navigation mesh.
// / The request will be processed during the next Update().
func (c *DtCrowd) RequestMoveTarget(idx int, ref detour.DtPolyRef, pos []float32) bool {
	if idx < 0 || idx >= c.m_maxAgents {
		return false
	}
	if ref == 0 {
		return false
	}
	ag := &c.m_agents[idx]

	// Initialize request.
	ag.TargetRef = ref
	common.Vcopy(ag.TargetPos[:], pos)
	ag.TargetPathqRef = DT_PATHQ_INVALID
	ag.TargetReplan = false
	ag.TargetState = DT_CROWDAGENT_TARGET_REQUESTING
	return true
}

// / Submits a new move request for the specified agent.
func (c *DtCrowd) RequestMoveVelocity(idx int, vel []float32) bool {
	if idx < 0 || idx >= c.m_maxAgents {
		return false
	}
	ag := &c.m_agents[idx]

	// Initialize request.
	ag.TargetRef = 0
	common.Vcopy(ag.TargetPos[:], vel)
	ag.TargetPathqRef = DT_PATHQ_INVALID
	ag.TargetReplan = false
	ag.TargetState = DT_CROWDAGENT_TARGET_VELOCITY
	return true
}

// / Resets any request for the specified agent.
func (c *DtCrowd) ResetMoveTarget(idx int) bool {
	if idx < 0 || idx >= c.m_maxAgents {
		return false
	}
	ag := &c.m_agents[idx]

	// Initialize request.
	ag.TargetRef = 0
	ag.TargetPos = [3]float32{}
	ag.Dvel = [3]float32{}
	ag.TargetPathqRef = DT_PATHQ_INVALID
	ag.TargetReplan = false
	ag.TargetState = DT_CROWDAGENT_TARGET_NONE
	return true
}

// / Gets the active agents int the agent pool.
func (c *DtCrowd) GetActiveAgents() []*DtCrowdAgent {
	c.m_activeAgents = c.m_activeAgents[:0]
	for i := range c.m_agents {
		if c.m_agents[i].Active {
			c.m_activeAgents = append(c.m_activeAgents, &c.m_agents[i])
		}
	}
	return c.m_activeAgents
}

func addToQueue(newag *DtCrowdAgent, agents []*DtCrowdAgent, maxAgents int, key func(*DtCrowdAgent) float32) []*DtCrowdAgent {
	// Insert neighbour based on greatest time.
	slot := len(agents)
	for i, ag := range agents {
		if key(newag) >= key(ag) {
			slot = i
			break
		}
	}
	if slot >= maxAgents {
		return agents
	}
	agents = append(agents, nil)
	copy(agents[slot+1:], agents[slot:])
	agents[slot] = newag
	if len(agents) > maxAgents {
		agents = agents[:maxAgents]
	}
	return agents
}

func (c *DtCrowd) updateMoveRequest(dt float32) {
	var queue []*DtCrowdAgent

	// Fire off new requests.
	for i := range c.m_agents {
		ag := &c.m_agents[i]
		if !ag.Active {
			continue
		}
		if ag.State == DT_CROWDAGENT_STATE_INVALID {
			continue
		}
		if ag.TargetState == DT_CROWDAGENT_TARGET_NONE || ag.TargetState == DT_CROWDAGENT_TARGET_VELOCITY {
			continue
		}

		if ag.TargetState == DT_CROWDAGENT_TARGET_REQUESTING {
			path := ag.Corridor.GetPath()
			if len(path) == 0 {
				continue
			}

			const MAX_RES = 32
			var reqPos [3]float32
			var reqPath []detour.DtPolyRef

			// Quick search towards the goal.
			const MAX_ITER = 20
			filter := c.agentFilter(ag)
			c.m_navquery.InitSlicedFindPath(path[0], ag.TargetRef, ag.Npos[:], ag.TargetPos[:], filter)
			c.m_navquery.UpdateSlicedFindPath(MAX_ITER)
			var status detour.DtStatus
			if ag.TargetReplan {
				// Try to use existing steady path during replan if possible.
				reqPath, status = c.m_navquery.FinalizeSlicedFindPathPartial(path, MAX_RES)
			} else {
				// Try to move towards target when goal changes.
				reqPath, status = c.m_navquery.FinalizeSlicedFindPath(MAX_RES)
			}

			if !status.Failed() && len(reqPath) > 0 {
				// In progress or succeed.
				if reqPath[len(reqPath)-1] != ag.TargetRef {
					// Partial path, constrain target position inside the last polygon.
					var st detour.DtStatus
					reqPos, _, st = c.m_navquery.ClosestPointOnPoly(reqPath[len(reqPath)-1], ag.TargetPos[:])
					if st.Failed() {
						reqPath = nil
					}
				} else {
					reqPos = ag.TargetPos
				}
			} else {
				reqPath = nil
			}

			if len(reqPath) == 0 {
				// Could not find path, start the request from current location.
				reqPos = ag.Npos
				reqPath = []detour.DtPolyRef{path[0]}
			}

			ag.Corridor.SetCorridor(reqPos[:], reqPath)
			ag.Boundary.Reset()
			ag.Partial = false

			if reqPath[len(reqPath)-1] == ag.TargetRef {
				ag.TargetState = DT_CROWDAGENT_TARGET_VALID
				ag.TargetReplanTime = 0.0
			} else {
				// The path is longer or potentially unreachable, full plan.
				ag.TargetState = DT_CROWDAGENT_TARGET_WAITING_FOR_QUEUE
			}
		}

		if ag.TargetState == DT_CROWDAGENT_TARGET_WAITING_FOR_QUEUE {
			queue = addToQueue(ag, queue, PATH_MAX_AGENTS, func(a *DtCrowdAgent) float32 { return a.TargetReplanTime })
		}
	}

	for _, ag := range queue {
		ag.TargetPathqRef = c.m_pathq.Request(ag.Corridor.GetLastPoly(), ag.TargetRef, ag.Corridor.GetTarget(), ag.TargetPos[:], c.agentFilter(ag))
		if ag.TargetPathqRef != DT_PATHQ_INVALID {
			ag.TargetState = DT_CROWDAGENT_TARGET_WAITING_FOR_PATH
		}
	}

	// Update requests.
	c.m_pathq.Update(MAX_ITERS_PER_UPDATE)

	// Process path results.
	for i := range c.m_agents {
		ag := &c.m_agents[i]
		if !ag.Active {
			continue
		}
		if ag.TargetState == DT_CROWDAGENT_TARGET_NONE || ag.TargetState == DT_CROWDAGENT_TARGET_VELOCITY {
			continue
		}
		if ag.TargetState != DT_CROWDAGENT_TARGET_WAITING_FOR_PATH {
			continue
		}

		// Poll path queue.
		status := c.m_pathq.GetRequestStatus(ag.TargetPathqRef)
		if status.Failed() {
			// Path find failed, retry if the target location is still valid.
			ag.TargetPathqRef = DT_PATHQ_INVALID
			if ag.TargetRef != 0 {
				ag.TargetState = DT_CROWDAGENT_TARGET_REQUESTING
			} else {
				ag.TargetState = DT_CROWDAGENT_TARGET_FAILED
			}
			ag.TargetReplanTime = 0.0
		} else if status.Succeed() {
			path := ag.Corridor.GetPath()
			npath := len(path)

			// Apply results.
			targetPos := ag.TargetPos

			valid := true
			res, status := c.m_pathq.GetPathResult(ag.TargetPathqRef, c.m_maxPathResult)
			if status.Failed() || len(res) == 0 {
				valid = false
			}
			ag.Partial = status.Detail(detour.DT_PARTIAL_RESULT)

			// Merge result and existing path.
			// The agent might have moved whilst the request is
			// being processed, so the path may have changed.
			// We assume that the end of the path is at the same location
			// where the request was issued.

			// The last ref in the old path should be the same as
			// the location where the request was issued..
			if valid && (npath == 0 || path[npath-1] != res[0]) {
				valid = false
			}

			if valid {
				// Put the old path infront of the old path.
				if npath > 1 {
					merged := make([]detour.DtPolyRef, 0, c.m_maxPathResult)
					merged = append(merged, path[:npath-1]...)
					// Make space for the old path.
					n := min(len(res), c.m_maxPathResult-(npath-1))
					merged = append(merged, res[:n]...)
					res = merged

					// Remove trackbacks
					for j := 0; j < len(res); j++ {
						if j-1 >= 0 && j+1 < len(res) {
							if res[j-1] == res[j+1] {
								res = append(res[:j-1], res[j+1:]...)
								j -= 2
							}
						}
					}
				}

				// Check for partial path.
				if res[len(res)-1] != ag.TargetRef {
					// Partial path, constrain target position inside the last polygon.
					nearest, _, st := c.m_navquery.ClosestPointOnPoly(res[len(res)-1], targetPos[:])
					if st.Succeed() {
						targetPos = nearest
					} else {
						valid = false
					}
				}
			}

			if valid {
				// Set current corridor.
				ag.Corridor.SetCorridor(targetPos[:], res)
				// Force to update boundary.
				ag.Boundary.Reset()
				ag.TargetState = DT_CROWDAGENT_TARGET_VALID
			} else {
				// Something went wrong.
				ag.TargetState = DT_CROWDAGENT_TARGET_FAILED
			}
			ag.TargetReplanTime = 0.0
		}
	}
}

func (c *DtCrowd) updateTopologyOptimization(agents []*DtCrowdAgent, dt float32) {
	if len(agents) == 0 {
		return
	}

	var queue []*DtCrowdAgent
	for _, ag := range agents {
		if ag.State != DT_CROWDAGENT_STATE_WALKING {
			continue
		}
		if ag.TargetState == DT_CROWDAGENT_TARGET_NONE || ag.TargetState == DT_CROWDAGENT_TARGET_VELOCITY {
			continue
		}
		if ag.Params.UpdateFlags&DT_CROWD_OPTIMIZE_TOPO == 0 {
			continue
		}
		ag.TopologyOptTime += dt
		if ag.TopologyOptTime >= OPT_TIME_THR {
			queue = addToQueue(ag, queue, OPT_MAX_AGENTS, func(a *DtCrowdAgent) float32 { return a.TopologyOptTime })
		}
	}

	for _, ag := range queue {
		ag.Corridor.OptimizePathTopology(c.m_navquery, c.agentFilter(ag))
		ag.TopologyOptTime = 0
	}
}

func (c *DtCrowd) checkPathValidity(agents []*DtCrowdAgent, dt float32) {
	for _, ag := range agents {
		if ag.State != DT_CROWDAGENT_STATE_WALKING {
			continue
		}
		ag.TargetReplanTime += dt

		replan := false
		filter := c.agentFilter(ag)

		// First check that the current location is valid.
		agentPos := ag.Npos
		agentRef := ag.Corridor.GetFirstPoly()
		if !c.m_navquery.IsValidPolyRef(agentRef, filter) {
			// Current location is not valid, try to reposition.
			var nearest [3]float32
			agentRef, nearest, _, _ = c.m_navquery.FindNearestPoly(ag.Npos[:], c.m_agentPlacementHalfExtents[:], filter)
			if agentRef != 0 {
				agentPos = nearest
			}

			if agentRef == 0 {
				// Could not find location in navmesh, set state to invalid.
				ag.Corridor.Reset(0, agentPos[:])
				ag.Partial = false
				ag.Boundary.Reset()
				ag.State = DT_CROWDAGENT_STATE_INVALID
				continue
			}

			// Make sure the first polygon is valid, but leave other valid
			// polygons in the path so that replanner can adjust the path better.
			ag.Corridor.FixPathStart(agentRef, agentPos[:])
			ag.Boundary.Reset()
			ag.Npos = agentPos

			replan = true
		}

		// If the agent does not have move target or is controlled by velocity, no need to recover the target nor replan.
		if ag.TargetState == DT_CROWDAGENT_TARGET_NONE || ag.TargetState == DT_CROWDAGENT_TARGET_VELOCITY {
			continue
		}

		// Try to recover move request position.
		if ag.TargetState != DT_CROWDAGENT_TARGET_NONE && ag.TargetState != DT_CROWDAGENT_TARGET_FAILED {
			if !c.m_navquery.IsValidPolyRef(ag.TargetRef, filter) {
				// Current target is not valid, try to reposition.
				ref, nearest, _, _ := c.m_navquery.FindNearestPoly(ag.TargetPos[:], c.m_agentPlacementHalfExtents[:], filter)
				ag.TargetRef = ref
				if ref != 0 {
					ag.TargetPos = nearest
				}
				replan = true
			}
			if ag.TargetRef == 0 {
				// Failed to reposition target, fail moverequest.
				ag.Corridor.Reset(agentRef, agentPos[:])
				ag.Partial = false
				ag.TargetState = DT_CROWDAGENT_TARGET_NONE
			}
		}

		// If nearby corridor is not valid, replan.
		if !ag.Corridor.IsValid(CHECK_LOOKAHEAD, c.m_navquery, filter) {
			replan = true
		}

		// If the end of the path is near and it is not the requested location, replan.
		if ag.TargetState == DT_CROWDAGENT_TARGET_VALID {
			if ag.TargetReplanTime > TARGET_REPLAN_DELAY &&
				ag.Corridor.GetPathCount() < CHECK_LOOKAHEAD &&
				ag.Corridor.GetLastPoly() != ag.TargetRef {
				replan = true
			}
		}

		// Try to replan path to goal.
		if replan {
			if ag.TargetState != DT_CROWDAGENT_TARGET_NONE {
				c.requestMoveTargetReplan(ag.index, ag.TargetRef, ag.TargetPos[:])
			}
		}
	}
}

func addNeighbour(idx int, dist float32, neis []DtCrowdNeighbour, maxNeis int) []DtCrowdNeighbour {
	// Insert neighbour based on the distance.
	i := len(neis)
	for j := range neis {
		if dist <= neis[j].Dist {
			i = j
			break
		}
	}
	if i >= maxNeis {
		return neis
	}
	neis = append(neis, DtCrowdNeighbour{})
	copy(neis[i+1:], neis[i:])
	neis[i] = DtCrowdNeighbour{Idx: idx, Dist: dist}
	if len(neis) > maxNeis {
		neis = neis[:maxNeis]
	}
	return neis
}

func (c *DtCrowd) getNeighbours(pos []float32, height, rang float32, skip *DtCrowdAgent, result []DtCrowdNeighbour, maxResult int) []DtCrowdNeighbour {
	result = result[:0]
	const MAX_NEIS = 32
	ids := c.m_grid.QueryItems(pos[0]-rang, pos[2]-rang, pos[0]+rang, pos[2]+rang, MAX_NEIS)
	for _, id := range ids {
		ag := &c.m_agents[id]
		if ag == skip {
			continue
		}

		// Check for overlap.
		var diff [3]float32
		common.Vsub(diff[:], pos, ag.Npos[:])
		if common.Abs(diff[1]) >= (height+ag.Params.Height)/2.0 {
			continue
		}
		diff[1] = 0
		distSqr := common.VlenSqr(diff[:])
		if distSqr > common.Sqr(rang) {
			continue
		}
		result = addNeighbour(int(id), distSqr, result, maxResult)
	}
	return result
}

func getDistanceToGoal(ag *DtCrowdAgent, rang float32) float32 {
	n := len(ag.CornerFlags)
	if n == 0 {
		return rang
	}
	endOfPath := ag.CornerFlags[n-1]&detour.DT_STRAIGHTPATH_END != 0
	if endOfPath {
		return min(common.Vdist2D(ag.Npos[:], ag.CornerVerts[(n-1)*3:]), rang)
	}
	return rang
}

func calcSmoothSteerDirection(ag *DtCrowdAgent, dir []float32) {
	n := len(ag.CornerFlags)
	if n == 0 {
		common.Vset(dir, 0, 0, 0)
		return
	}

	ip0 := 0
	ip1 := min(1, n-1)
	p0 := ag.CornerVerts[ip0*3:]
	p1 := ag.CornerVerts[ip1*3:]

	var dir0, dir1 [3]float32
	common.Vsub(dir0[:], p0, ag.Npos[:])
	common.Vsub(dir1[:], p1, ag.Npos[:])
	dir0[1] = 0
	dir1[1] = 0

	len0 := common.Vlen(dir0[:])
	len1 := common.Vlen(dir1[:])
	if len1 > 0.001 {
		common.Vscale(dir1[:], dir1[:], 1.0/len1)
	}

	dir[0] = dir0[0] - dir1[0]*len0*0.5
	dir[1] = 0
	dir[2] = dir0[2] - dir1[2]*len0*0.5
	common.Vnormalize(dir)
}

func calcStraightSteerDirection(ag *DtCrowdAgent, dir []float32) {
	if len(ag.CornerFlags) == 0 {
		common.Vset(dir, 0, 0, 0)
		return
	}
	common.Vsub(dir, ag.CornerVerts, ag.Npos[:])
	dir[1] = 0
	common.Vnormalize(dir)
}

func integrate(ag *DtCrowdAgent, dt float32) {
	// Fake dynamic constraint.
	maxDelta := ag.Params.MaxAcceleration * dt
	var dv [3]float32
	common.Vsub(dv[:], ag.Nvel[:], ag.Vel[:])
	ds := common.Vlen(dv[:])
	if ds > maxDelta {
		common.Vscale(dv[:], dv[:], maxDelta/ds)
	}
	common.Vadd(ag.Vel[:], ag.Vel[:], dv[:])

	// Integrate
	if common.Vlen(ag.Vel[:]) > 0.0001 {
		common.Vmad(ag.Npos[:], ag.Npos[:], ag.Vel[:], dt)
	} else {
		ag.Vel = [3]float32{}
	}
}

func overOffmeshConnection(ag *DtCrowdAgent, radius float32) bool {
	n := len(ag.CornerFlags)
	if n == 0 {
		return false
	}
	offMeshConnection := ag.CornerFlags[n-1]&detour.DT_STRAIGHTPATH_OFFMESH_CONNECTION != 0
	if offMeshConnection {
		distSq := common.Vdist2DSqr(ag.Npos[:], ag.CornerVerts[(n-1)*3:])
		if distSq < radius*radius {
			return true
		}
	}
	return false
}

func tween(t, t0, t1 float32) float32 {
	return common.Clamp((t-t0)/(t1-t0), 0.0, 1.0)
}

// / Updates the steering and positions of all agents.
func (c *DtCrowd) Update(dt float32, debug *DtCrowdAgentDebugInfo) {
	c.updateAgents(dt, c.GetActiveAgents(), debug)
}

// / Updates the steering and positions of the listed agents only.
// / Move requests and path results of every agent are still serviced.
func (c *DtCrowd) UpdateAgents(dt float32, indices []int, debug *DtCrowdAgentDebugInfo) {
	agents := make([]*DtCrowdAgent, 0, len(indices))
	for _, idx := range indices {
		if ag := c.GetAgent(idx); ag != nil && ag.Active {
			agents = append(agents, ag)
		}
	}
	c.updateAgents(dt, agents, debug)
}

func (c *DtCrowd) updateAgents(dt float32, agents []*DtCrowdAgent, debug *DtCrowdAgentDebugInfo) {
	c.m_velocitySampleCount = 0

	debugIdx := -1
	if debug != nil {
		debugIdx = debug.Idx
	}

	// Check that all agents still have valid paths.
	c.checkPathValidity(agents, dt)

	// Update async move request and path finder.
	c.updateMoveRequest(dt)

	// Optimize path topology.
	c.updateTopologyOptimization(agents, dt)

	// Register agents to proximity grid.
	c.m_grid.Clear()
	for _, ag := range agents {
		p := ag.Npos
		r := ag.Params.Radius
		c.m_grid.AddItem(uint16(ag.index), p[0]-r, p[2]-r, p[0]+r, p[2]+r)
	}

	// Get nearby navmesh segments and agents to collide with.
	for _, ag := range agents {
		if ag.State != DT_CROWDAGENT_STATE_WALKING {
			continue
		}
		filter := c.agentFilter(ag)

		// Update the collision boundary after certain distance has been passed or
		// if it has become invalid.
		updateThr := ag.Params.CollisionQueryRange * 0.25
		if common.Vdist2DSqr(ag.Npos[:], ag.Boundary.GetCenter()) > common.Sqr(updateThr) ||
			!ag.Boundary.IsValid(c.m_navquery, filter) {
			ag.Boundary.Update(ag.Corridor.GetFirstPoly(), ag.Npos[:], ag.Params.CollisionQueryRange, c.m_navquery, filter)
		}
		// Query neighbour agents
		ag.Neis = c.getNeighbours(ag.Npos[:], ag.Params.Height, ag.Params.CollisionQueryRange, ag, ag.Neis, DT_CROWDAGENT_MAX_NEIGHBOURS)
	}

	// Find next corner to steer to.
	for _, ag := range agents {
		if ag.State != DT_CROWDAGENT_STATE_WALKING {
			continue
		}
		if ag.TargetState == DT_CROWDAGENT_TARGET_NONE || ag.TargetState == DT_CROWDAGENT_TARGET_VELOCITY {
			continue
		}

		// Find corners for steering
		ag.CornerVerts, ag.CornerFlags, ag.CornerPolys = ag.Corridor.FindCorners(DT_CROWDAGENT_MAX_CORNERS, c.m_navquery)

		// Check to see if the corner after the next corner is directly visible,
		// and short cut to there.
		if ag.Params.UpdateFlags&DT_CROWD_OPTIMIZE_VIS != 0 && len(ag.CornerFlags) > 0 {
			target := ag.CornerVerts[min(1, len(ag.CornerFlags)-1)*3:]
			ag.Corridor.OptimizePathVisibility(target, ag.Params.PathOptimizationRange, c.m_navquery, c.agentFilter(ag))

			// Copy data for debug purposes.
			if debugIdx == ag.index {
				common.Vcopy(debug.OptStart[:], ag.Corridor.GetPos())
				common.Vcopy(debug.OptEnd[:], target)
			}
		} else if debugIdx == ag.index {
			debug.OptStart = [3]float32{}
			debug.OptEnd = [3]float32{}
		}
	}

	// Trigger off-mesh connections (depends on corners).
	for _, ag := range agents {
		if ag.State != DT_CROWDAGENT_STATE_WALKING {
			continue
		}
		if ag.TargetState == DT_CROWDAGENT_TARGET_NONE || ag.TargetState == DT_CROWDAGENT_TARGET_VELOCITY {
			continue
		}

		// Check
		triggerRadius := ag.Params.Radius * 2.25
		if overOffmeshConnection(ag, triggerRadius) {
			// Prepare to off-mesh connection.
			anim := &c.m_agentAnims[ag.index]

			// Adjust the path over the off-mesh connection.
			refs, startPos, endPos, ok := ag.Corridor.MoveOverOffmeshConnection(ag.CornerPolys[len(ag.CornerPolys)-1], c.m_navquery)
			if ok {
				anim.initPos = ag.Npos
				anim.startPos = startPos
				anim.endPos = endPos
				anim.polyRef = refs[1]
				anim.active = true
				anim.t = 0.0
				anim.tmax = (common.Vdist2D(anim.startPos[:], anim.endPos[:]) / ag.Params.MaxSpeed) * 0.5

				ag.State = DT_CROWDAGENT_STATE_OFFMESH
				ag.CornerVerts, ag.CornerFlags, ag.CornerPolys = nil, nil, nil
				ag.Neis = ag.Neis[:0]
				continue
			}
			// Path validity check will ensure that bad/blocked connections will be replanned.
		}
	}

	// Calculate steering.
	for _, ag := range agents {
		if ag.State != DT_CROWDAGENT_STATE_WALKING {
			continue
		}
		if ag.TargetState == DT_CROWDAGENT_TARGET_NONE {
			continue
		}

		var dvel [3]float32

		if ag.TargetState == DT_CROWDAGENT_TARGET_VELOCITY {
			dvel = ag.TargetPos
			ag.DesiredSpeed = common.Vlen(ag.TargetPos[:])
		} else {
			// Calculate steering direction.
			if ag.Params.UpdateFlags&DT_CROWD_ANTICIPATE_TURNS != 0 {
				calcSmoothSteerDirection(ag, dvel[:])
			} else {
				calcStraightSteerDirection(ag, dvel[:])
			}

			// Calculate speed scale, which tells the agent to slowdown at the end of the path.
			slowDownRadius := ag.Params.Radius * 2
			speedScale := getDistanceToGoal(ag, slowDownRadius) / slowDownRadius

			ag.DesiredSpeed = ag.Params.MaxSpeed
			common.Vscale(dvel[:], dvel[:], ag.DesiredSpeed*speedScale)
		}

		// Separation
		if ag.Params.UpdateFlags&DT_CROWD_SEPARATION != 0 {
			separationDist := ag.Params.CollisionQueryRange
			invSeparationDist := 1.0 / separationDist
			separationWeight := ag.Params.SeparationWeight

			w := float32(0)
			var disp [3]float32

			for _, n := range ag.Neis {
				nei := &c.m_agents[n.Idx]

				var diff [3]float32
				common.Vsub(diff[:], ag.Npos[:], nei.Npos[:])
				diff[1] = 0

				distSqr := common.VlenSqr(diff[:])
				if distSqr < 0.00001 {
					continue
				}
				if distSqr > common.Sqr(separationDist) {
					continue
				}
				dist := float32(math.Sqrt(float64(distSqr)))
				weight := separationWeight * (1.0 - common.Sqr(dist*invSeparationDist))

				common.Vmad(disp[:], disp[:], diff[:], weight/dist)
				w += 1.0
			}

			if w > 0.0001 {
				// Adjust desired velocity.
				common.Vmad(dvel[:], dvel[:], disp[:], 1.0/w)
				// Clamp desired velocity to desired speed.
				speedSqr := common.VlenSqr(dvel[:])
				desiredSqr := common.Sqr(ag.DesiredSpeed)
				if speedSqr > desiredSqr {
					common.Vscale(dvel[:], dvel[:], desiredSqr/speedSqr)
				}
			}
		}

		// Set the desired velocity.
		ag.Dvel = dvel
	}

	// Velocity planning.
	for _, ag := range agents {
		if ag.State != DT_CROWDAGENT_STATE_WALKING {
			continue
		}

		if ag.Params.UpdateFlags&DT_CROWD_OBSTACLE_AVOIDANCE != 0 {
			c.m_obstacleQuery.Reset()

			// Add neighbours as obstacles.
			for _, n := range ag.Neis {
				nei := &c.m_agents[n.Idx]
				c.m_obstacleQuery.AddCircle(nei.Npos[:], nei.Params.Radius, nei.Vel[:], nei.Dvel[:])
			}

			// Append neighbour segments as obstacles.
			for j := 0; j < ag.Boundary.GetSegmentCount(); j++ {
				s := ag.Boundary.GetSegment(j)
				if common.TriArea2D(ag.Npos[:], s[:], s[3:]) < 0.0 {
					continue
				}
				c.m_obstacleQuery.AddSegment(s[:], s[3:])
			}

			var vod *DtObstacleAvoidanceDebugData
			if debugIdx == ag.index {
				vod = debug.Vod
			}

			// Sample new safe velocity.
			params := &c.m_obstacleQueryParams[ag.Params.ObstacleAvoidanceType]
			ns := c.m_obstacleQuery.SampleVelocityAdaptive(ag.Npos[:], ag.Params.Radius, ag.DesiredSpeed,
				ag.Vel[:], ag.Dvel[:], ag.Nvel[:], params, vod)
			c.m_velocitySampleCount += ns
		} else {
			// If not using velocity planning, new velocity is directly the desired velocity.
			ag.Nvel = ag.Dvel
		}
	}

	// Integrate.
	for _, ag := range agents {
		if ag.State != DT_CROWDAGENT_STATE_WALKING {
			continue
		}
		integrate(ag, dt)
	}

	// Handle collisions.
	for iter := 0; iter < 4; iter++ {
		for _, ag := range agents {
			idx0 := ag.index
			if ag.State != DT_CROWDAGENT_STATE_WALKING {
				continue
			}

			ag.Disp = [3]float32{}

			w := float32(0)

			for _, n := range ag.Neis {
				nei := &c.m_agents[n.Idx]
				idx1 := nei.index

				var diff [3]float32
				common.Vsub(diff[:], ag.Npos[:], nei.Npos[:])
				diff[1] = 0

				dist := common.VlenSqr(diff[:])
				if dist > common.Sqr(ag.Params.Radius+nei.Params.Radius) {
					continue
				}
				dist = float32(math.Sqrt(float64(dist)))
				pen := (ag.Params.Radius + nei.Params.Radius) - dist
				if dist < 0.0001 {
					// Agents on top of each other, try to choose diverging separation directions.
					if idx0 > idx1 {
						common.Vset(diff[:], -ag.Dvel[2], 0, ag.Dvel[0])
					} else {
						common.Vset(diff[:], ag.Dvel[2], 0, -ag.Dvel[0])
					}
					pen = 0.01
				} else {
					pen = (1.0 / dist) * (pen * 0.5) * COLLISION_RESOLVE_FACTOR
				}

				common.Vmad(ag.Disp[:], ag.Disp[:], diff[:], pen)
				w += 1.0
			}

			if w > 0.0001 {
				iw := 1.0 / w
				common.Vscale(ag.Disp[:], ag.Disp[:], iw)
			}
		}

		for _, ag := range agents {
			if ag.State != DT_CROWDAGENT_STATE_WALKING {
				continue
			}
			common.Vadd(ag.Npos[:], ag.Npos[:], ag.Disp[:])
		}
	}

	for _, ag := range agents {
		if ag.State != DT_CROWDAGENT_STATE_WALKING {
			continue
		}

		// Move along navmesh.
		ag.Corridor.MovePosition(ag.Npos[:], c.m_navquery, c.agentFilter(ag))
		// Get valid constrained position back.
		common.Vcopy(ag.Npos[:], ag.Corridor.GetPos())

		// If not using path, truncate the corridor to just one poly.
		if ag.TargetState == DT_CROWDAGENT_TARGET_NONE || ag.TargetState == DT_CROWDAGENT_TARGET_VELOCITY {
			ag.Corridor.Reset(ag.Corridor.GetFirstPoly(), ag.Npos[:])
			ag.Partial = false
		}
	}

	// Update agents using off-mesh connection.
	for _, ag := range agents {
		anim := &c.m_agentAnims[ag.index]
		if !anim.active {
			continue
		}

		anim.t += dt
		if anim.t > anim.tmax {
			// Reset animation
			anim.active = false
			// Prepare agent for walking.
			ag.State = DT_CROWDAGENT_STATE_WALKING
			continue
		}

		// Update position
		ta := anim.tmax * 0.15
		tb := anim.tmax
		if anim.t < ta {
			u := tween(anim.t, 0.0, ta)
			common.Vlerp(ag.Npos[:], anim.initPos[:], anim.startPos[:], u)
		} else {
			u := tween(anim.t, ta, tb)
			common.Vlerp(ag.Npos[:], anim.startPos[:], anim.endPos[:], u)
		}

		// Update velocity.
		ag.Vel = [3]float32{}
		ag.Dvel = [3]float32{}
	}
}
