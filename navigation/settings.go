package navigation

// Region partitioning used by the builders.
const (
	PARTITION_WATERSHED = iota
	PARTITION_MONOTONE
)

// Settings holds the build and runtime parameters of a Navigation instance.
// They stay fixed for the duration of one Build call.
type Settings struct {
	CellSize   float32
	CellHeight float32

	AgentHeight    float32
	AgentRadius    float32
	AgentMaxClimb  float32
	AgentMaxSlope  float32 ///< Default walkable slope for imported triangles. [Units: Degrees]
	AgentMinRadius float32

	RegionMinSize   float32
	RegionMergeSize float32
	EdgeMaxLen      float32
	EdgeMaxError    float32
	VertsPerPoly    int

	DetailSampleDist     float32
	DetailSampleMaxError float32

	Partition int

	FilterLowHangingObstacles    bool
	FilterLedgeSpans             bool
	FilterWalkableLowHeightSpans bool

	// Tiled builds.
	TileSize              int
	ExpectedLayersPerTile int
	MaxObstacles          int

	// Crowd created by Build.
	MaxAgents      int
	MaxAgentRadius float32

	// Save writes the pre-envelope layouts.
	LegacyFormat bool
}

func DefaultSettings() Settings {
	return Settings{
		CellSize:                     0.3,
		CellHeight:                   0.2,
		AgentHeight:                  2.0,
		AgentRadius:                  0.6,
		AgentMaxClimb:                0.9,
		AgentMaxSlope:                45.0,
		AgentMinRadius:               0.1,
		RegionMinSize:                8,
		RegionMergeSize:              20,
		EdgeMaxLen:                   12.0,
		EdgeMaxError:                 1.3,
		VertsPerPoly:                 6,
		DetailSampleDist:             6.0,
		DetailSampleMaxError:         1.0,
		Partition:                    PARTITION_WATERSHED,
		FilterLowHangingObstacles:    true,
		FilterLedgeSpans:             true,
		FilterWalkableLowHeightSpans: true,
		TileSize:                     48,
		ExpectedLayersPerTile:        4,
		MaxObstacles:                 128,
		MaxAgents:                    128,
		MaxAgentRadius:               2.0,
	}
}
