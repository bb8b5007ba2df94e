package detour

import (
	"container/heap"
)

const (
	DT_NODE_OPEN            = 0x01
	DT_NODE_CLOSED          = 0x02
	DT_NODE_PARENT_DETACHED = 0x04 // parent of the node is not adjacent. Found using raycast.
)

type DtNodeIndex int32

const (
	DT_NULL_IDX DtNodeIndex = -1

	DT_NODE_PARENT_BITS    = 24
	DT_NODE_STATE_BITS     = 2
	DT_MAX_STATES_PER_NODE = 1 << DT_NODE_STATE_BITS // number of extra states per node. See DtNode::state
)

type DtNode struct {
	Pos   [3]float32 ///< Position of the node.
	Cost  float32    ///< Cost from previous node to current node.
	Total float32    ///< Cost up to the node.
	Pidx  uint32     ///< Index to parent node, 0 for none.
	State uint8      ///< extra state information. A polyRef can have multiple nodes with different extra info. see DT_MAX_STATES_PER_NODE
	Flags uint8      ///< Node flags. A combination of DtNodeFlags.
	Id    DtPolyRef  ///< Polygon ref the node corresponds to.

	poolIndex int
	heapIndex int
}

func (node *DtNode) SetIndex(index int) { node.heapIndex = index }
func (node *DtNode) GetIndex() int      { return node.heapIndex }

type NodeQueueIndex interface {
	SetIndex(index int)
	GetIndex() int
}

type NodeQueue[T NodeQueueIndex] interface {
	Peek() T  // top of the heap, not removed
	Poll() T  // removes and returns the top of the heap
	Update(T) // restores the heap after the element's key changed
	Offer(T)  // inserts an element
	Reset()
	Empty() bool
}

// Priority queue over container/heap.
type nodeQueue[T NodeQueueIndex] struct {
	data []T
	less func(t1, t2 T) bool
}

func NewNodeQueue[T NodeQueueIndex](less func(t1, t2 T) bool) NodeQueue[T] {
	q := &nodeQueue[T]{less: less}
	heap.Init(q)
	return q
}

func (q *nodeQueue[T]) Reset()             { q.data = q.data[:0] }
func (q *nodeQueue[T]) Peek() T            { return q.data[0] }
func (q *nodeQueue[T]) Poll() T            { return heap.Pop(q).(T) }
func (q *nodeQueue[T]) Update(v T)         { heap.Fix(q, v.GetIndex()) }
func (q *nodeQueue[T]) Offer(v T)          { heap.Push(q, v) }
func (q *nodeQueue[T]) Empty() bool        { return len(q.data) == 0 }
func (q *nodeQueue[T]) Len() int           { return len(q.data) }
func (q *nodeQueue[T]) Less(i, j int) bool { return q.less(q.data[i], q.data[j]) }

func (q *nodeQueue[T]) Swap(i, j int) {
	q.data[i], q.data[j] = q.data[j], q.data[i]
	q.data[i].SetIndex(i)
	q.data[j].SetIndex(j)
}

func (q *nodeQueue[T]) Push(x any) {
	v := x.(T)
	v.SetIndex(len(q.data))
	q.data = append(q.data, v)
}

func (q *nodeQueue[T]) Pop() any {
	n := len(q.data)
	v := q.data[n-1]
	var zero T
	q.data[n-1] = zero
	q.data = q.data[:n-1]
	v.SetIndex(-1)
	return v
}

// newNodeTotalQueue orders nodes by total cost, cheapest first.
func newNodeTotalQueue() NodeQueue[*DtNode] {
	return NewNodeQueue(func(a, b *DtNode) bool { return a.Total < b.Total })
}

func dtHashRef(a DtPolyRef) uint32 {
	a += ^(a << 15)
	a ^= a >> 10
	a += a << 3
	a ^= a >> 6
	a += ^(a << 11)
	a ^= a >> 16
	return uint32(a)
}

type DtNodePool struct {
	nodes     []DtNode
	first     []DtNodeIndex
	next      []DtNodeIndex
	maxNodes  int
	hashSize  int
	nodeCount int
}

// NewDtNodePool allocates a pool; hashSize must be a power of two.
func NewDtNodePool(maxNodes, hashSize int) *DtNodePool {
	p := &DtNodePool{
		maxNodes: maxNodes,
		hashSize: hashSize,
		nodes:    make([]DtNode, maxNodes),
		next:     make([]DtNodeIndex, maxNodes),
		first:    make([]DtNodeIndex, hashSize),
	}
	for i := range p.nodes {
		p.nodes[i].poolIndex = i
	}
	p.Clear()
	return p
}

func (p *DtNodePool) Clear() {
	for i := range p.first {
		p.first[i] = DT_NULL_IDX
	}
	p.nodeCount = 0
}

// GetNodeIdx returns the 1-based index of node, 0 for nil.
func (p *DtNodePool) GetNodeIdx(node *DtNode) uint32 {
	if node == nil {
		return 0
	}
	return uint32(node.poolIndex + 1)
}

func (p *DtNodePool) GetNodeAtIdx(idx uint32) *DtNode {
	if idx == 0 {
		return nil
	}
	return &p.nodes[idx-1]
}

func (p *DtNodePool) GetMaxNodes() int  { return p.maxNodes }
func (p *DtNodePool) GetHashSize() int  { return p.hashSize }
func (p *DtNodePool) GetNodeCount() int { return p.nodeCount }

// FindNodes returns every node of id, one per state.
func (p *DtNodePool) FindNodes(id DtPolyRef, maxNodes int) []*DtNode {
	var nodes []*DtNode
	bucket := dtHashRef(id) & uint32(p.hashSize-1)
	for i := p.first[bucket]; i != DT_NULL_IDX; i = p.next[i] {
		if p.nodes[i].Id == id {
			if len(nodes) >= maxNodes {
				break
			}
			nodes = append(nodes, &p.nodes[i])
		}
	}
	return nodes
}

func (p *DtNodePool) FindNode(id DtPolyRef, state uint8) *DtNode {
	bucket := dtHashRef(id) & uint32(p.hashSize-1)
	for i := p.first[bucket]; i != DT_NULL_IDX; i = p.next[i] {
		if p.nodes[i].Id == id && p.nodes[i].State == state {
			return &p.nodes[i]
		}
	}
	return nil
}

// GetNode returns the node of (id, state), allocating it when missing.
// Returns nil when the pool is exhausted.
func (p *DtNodePool) GetNode(id DtPolyRef, state uint8) *DtNode {
	if node := p.FindNode(id, state); node != nil {
		return node
	}
	if p.nodeCount >= p.maxNodes {
		return nil
	}
	bucket := dtHashRef(id) & uint32(p.hashSize-1)
	i := DtNodeIndex(p.nodeCount)
	p.nodeCount++

	// Init node
	node := &p.nodes[i]
	node.Pidx = 0
	node.Cost = 0
	node.Total = 0
	node.Id = id
	node.State = state
	node.Flags = 0
	node.heapIndex = -1

	p.next[i] = p.first[bucket]
	p.first[bucket] = i
	return node
}
