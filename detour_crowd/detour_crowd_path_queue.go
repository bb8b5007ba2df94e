package detour_crowd

import (
	"github.com/gorustyt/navcore/detour"
)

type DtPathQueueRef uint32

const (
	DT_PATHQ_INVALID = 0

	MAX_QUEUE      = 8
	MAX_KEEP_ALIVE = 2 // in update ticks.
)

type pathQuery struct {
	ref DtPathQueueRef
	/// Path find start and end location.
	startPos, endPos [3]float32
	startRef, endRef detour.DtPolyRef
	/// Result.
	path []detour.DtPolyRef
	/// State.
	status    detour.DtStatus
	keepAlive int
	filter    *detour.DtQueryFilter
}

// DtPathQueue runs queued path requests as sliced searches within an iteration budget.
type DtPathQueue struct {
	m_queue       [MAX_QUEUE]pathQuery
	m_nextHandle  DtPathQueueRef
	m_maxPathSize int
	m_queueHead   int
	m_navquery    *detour.DtNavMeshQuery
}

func NewDtPathQueue(maxPathSize, maxSearchNodeCount int, nav *detour.DtNavMesh) (*DtPathQueue, bool) {
	navquery, status := detour.NewDtNavMeshQuery(nav, maxSearchNodeCount)
	if status.Failed() {
		return nil, false
	}
	return &DtPathQueue{
		m_navquery:    navquery,
		m_maxPathSize: maxPathSize,
		m_nextHandle:  1,
	}, true
}

func (d *DtPathQueue) GetNavQuery() *detour.DtNavMeshQuery { return d.m_navquery }

// Update advances pending requests until maxIters search iterations are consumed.
func (d *DtPathQueue) Update(maxIters int) {
	// Update path request until there is nothing to update
	// or upto maxIters pathfinder iterations has been consumed.
	iterCount := maxIters

	for i := 0; i < MAX_QUEUE; i++ {
		q := &d.m_queue[d.m_queueHead%MAX_QUEUE]

		// Skip inactive requests.
		if q.ref == DT_PATHQ_INVALID {
			d.m_queueHead++
			continue
		}

		// Handle completed request.
		if q.status.Succeed() || q.status.Failed() {
			// If the path result has not been read in few frames, free the slot.
			q.keepAlive++
			if q.keepAlive > MAX_KEEP_ALIVE {
				q.ref = DT_PATHQ_INVALID
				q.status = 0
			}
			d.m_queueHead++
			continue
		}

		// Handle query start.
		if q.status == 0 {
			q.status = d.m_navquery.InitSlicedFindPath(q.startRef, q.endRef, q.startPos[:], q.endPos[:], q.filter)
		}
		// Handle query in progress.
		if q.status.InProgress() {
			var iters int
			iters, q.status = d.m_navquery.UpdateSlicedFindPath(iterCount)
			iterCount -= iters
		}
		if q.status.Succeed() {
			q.path, q.status = d.m_navquery.FinalizeSlicedFindPath(d.m_maxPathSize)
		}

		if iterCount <= 0 {
			break
		}
		d.m_queueHead++
	}
}

// Request queues a path search and returns its handle, or DT_PATHQ_INVALID when the queue is full.
func (d *DtPathQueue) Request(startRef, endRef detour.DtPolyRef, startPos, endPos []float32, filter *detour.DtQueryFilter) DtPathQueueRef {
	// Find empty slot
	slot := -1
	for i := range d.m_queue {
		if d.m_queue[i].ref == DT_PATHQ_INVALID {
			slot = i
			break
		}
	}
	// Could not find slot.
	if slot == -1 {
		return DT_PATHQ_INVALID
	}

	ref := d.m_nextHandle
	d.m_nextHandle++
	if d.m_nextHandle == DT_PATHQ_INVALID {
		d.m_nextHandle++
	}

	q := &d.m_queue[slot]
	q.ref = ref
	copy(q.startPos[:], startPos)
	q.startRef = startRef
	copy(q.endPos[:], endPos)
	q.endRef = endRef
	q.status = 0
	q.path = nil
	q.filter = filter
	q.keepAlive = 0
	return ref
}

func (d *DtPathQueue) GetRequestStatus(ref DtPathQueueRef) detour.DtStatus {
	for i := range d.m_queue {
		if d.m_queue[i].ref == ref {
			return d.m_queue[i].status
		}
	}
	return detour.DT_FAILURE
}

// GetPathResult copies out a finished path and frees the request slot.
func (d *DtPathQueue) GetPathResult(ref DtPathQueueRef, maxPath int) ([]detour.DtPolyRef, detour.DtStatus) {
	for i := range d.m_queue {
		q := &d.m_queue[i]
		if q.ref != ref {
			continue
		}
		details := q.status & detour.DT_STATUS_DETAIL_MASK
		// Free request for reuse.
		q.ref = DT_PATHQ_INVALID
		q.status = 0
		// Copy path
		n := min(len(q.path), maxPath)
		path := make([]detour.DtPolyRef, n)
		copy(path, q.path[:n])
		return path, details | detour.DT_SUCCESS
	}
	return nil, detour.DT_FAILURE
}
