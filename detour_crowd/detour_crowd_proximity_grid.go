package detour_crowd

import (
	"math"

	"github.com/gorustyt/navcore/common"
)

const proximityNullIdx = 0xffff

type proximityItem struct {
	id   uint16
	x, y int16
	next uint16
}

// DtProximityGrid is a spatial hash of agent bounds used for neighbour queries.
type DtProximityGrid struct {
	m_cellSize    float32
	m_invCellSize float32

	m_pool     []proximityItem
	m_poolHead int

	m_buckets []uint16

	m_bounds [4]int
}

func hashPos2(x, y, n int) int {
	return ((x * 73856093) ^ (y * 19349663)) & (n - 1)
}

// NewDtProximityGrid allocates poolSize items hashed into cells of cellSize.
func NewDtProximityGrid(poolSize int, cellSize float32) *DtProximityGrid {
	if poolSize <= 0 || poolSize >= proximityNullIdx || cellSize <= 0 {
		return nil
	}
	d := &DtProximityGrid{
		m_cellSize:    cellSize,
		m_invCellSize: 1.0 / cellSize,
		m_buckets:     make([]uint16, common.NextPow2(uint32(poolSize))),
		m_pool:        make([]proximityItem, poolSize),
	}
	d.Clear()
	return d
}

func (d *DtProximityGrid) Clear() {
	for i := range d.m_buckets {
		d.m_buckets[i] = proximityNullIdx
	}
	d.m_poolHead = 0
	d.m_bounds = [4]int{0xffff, 0xffff, -0xffff, -0xffff}
}

func (d *DtProximityGrid) cell(v float32) int {
	return int(math.Floor(float64(v * d.m_invCellSize)))
}

// AddItem registers id in every cell the rectangle touches.
func (d *DtProximityGrid) AddItem(id uint16, minx, miny, maxx, maxy float32) {
	iminx, iminy := d.cell(minx), d.cell(miny)
	imaxx, imaxy := d.cell(maxx), d.cell(maxy)

	d.m_bounds[0] = min(d.m_bounds[0], iminx)
	d.m_bounds[1] = min(d.m_bounds[1], iminy)
	d.m_bounds[2] = max(d.m_bounds[2], imaxx)
	d.m_bounds[3] = max(d.m_bounds[3], imaxy)

	for y := iminy; y <= imaxy; y++ {
		for x := iminx; x <= imaxx; x++ {
			if d.m_poolHead >= len(d.m_pool) {
				return
			}
			h := hashPos2(x, y, len(d.m_buckets))
			idx := uint16(d.m_poolHead)
			d.m_poolHead++
			item := &d.m_pool[idx]
			item.x = int16(x)
			item.y = int16(y)
			item.id = id
			item.next = d.m_buckets[h]
			d.m_buckets[h] = idx
		}
	}
}

// QueryItems returns the unique ids found in the cells the rectangle touches.
func (d *DtProximityGrid) QueryItems(minx, miny, maxx, maxy float32, maxIds int) []uint16 {
	iminx, iminy := d.cell(minx), d.cell(miny)
	imaxx, imaxy := d.cell(maxx), d.cell(maxy)

	var ids []uint16
	for y := iminy; y <= imaxy; y++ {
		for x := iminx; x <= imaxx; x++ {
			h := hashPos2(x, y, len(d.m_buckets))
			for idx := d.m_buckets[h]; idx != proximityNullIdx; idx = d.m_pool[idx].next {
				item := &d.m_pool[idx]
				if int(item.x) != x || int(item.y) != y {
					continue
				}
				// Check if the id exists already.
				found := false
				for _, id := range ids {
					if id == item.id {
						found = true
						break
					}
				}
				if found {
					continue
				}
				if len(ids) >= maxIds {
					return ids
				}
				ids = append(ids, item.id)
			}
		}
	}
	return ids
}

// GetItemCountAt returns how many items were added to cell (x, y).
func (d *DtProximityGrid) GetItemCountAt(x, y int) int {
	n := 0
	h := hashPos2(x, y, len(d.m_buckets))
	for idx := d.m_buckets[h]; idx != proximityNullIdx; idx = d.m_pool[idx].next {
		item := &d.m_pool[idx]
		if int(item.x) == x && int(item.y) == y {
			n++
		}
	}
	return n
}

func (d *DtProximityGrid) GetBounds() [4]int    { return d.m_bounds }
func (d *DtProximityGrid) GetCellSize() float32 { return d.m_cellSize }
