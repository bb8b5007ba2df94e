package navigation

// Polygon area ids. Triangles are tagged with one of these before the build.
const (
	POLYAREA_GROUND uint8 = iota
	POLYAREA_WATER
	POLYAREA_ROAD
	POLYAREA_DOOR
	POLYAREA_GRASS
	POLYAREA_JUMP
)

// Polygon flags consumed by query filters.
const (
	POLYFLAGS_WALK     uint16 = 0x01 // Ability to walk (ground, grass, road)
	POLYFLAGS_SWIM     uint16 = 0x02 // Ability to swim (water).
	POLYFLAGS_DOOR     uint16 = 0x04 // Ability to move through doors.
	POLYFLAGS_JUMP     uint16 = 0x08 // Ability to jump.
	POLYFLAGS_DISABLED uint16 = 0x10 // Disabled polygon
	POLYFLAGS_ALL      uint16 = 0xffff
)

// AreaFlags maps an area id to the flags its polygons carry.
func AreaFlags(area uint8) uint16 {
	switch area {
	case POLYAREA_GROUND, POLYAREA_GRASS, POLYAREA_ROAD:
		return POLYFLAGS_WALK
	case POLYAREA_WATER:
		return POLYFLAGS_SWIM
	case POLYAREA_DOOR:
		return POLYFLAGS_WALK | POLYFLAGS_DOOR
	case POLYAREA_JUMP:
		return POLYFLAGS_JUMP
	}
	return 0
}

// defaultAreaCost is the traversal cost multiplier per area.
func defaultAreaCost(area uint8) float32 {
	switch area {
	case POLYAREA_WATER:
		return 10.0
	case POLYAREA_GRASS:
		return 2.0
	case POLYAREA_JUMP:
		return 1.5
	}
	return 1.0
}
