package navigation

import (
	"testing"

	"github.com/gorustyt/navcore/common/message"
	"github.com/gorustyt/navcore/detour"
	"github.com/gorustyt/navcore/detour_tile_cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNavFile() *navFile {
	return &navFile{
		Kind:    NavFileTiled,
		BuildID: "b1",
		Params: &detour.NavMeshParams{
			Orig:       [3]float32{1, 2, 3},
			TileWidth:  9.6,
			TileHeight: 9.6,
			MaxTiles:   64,
			MaxPolys:   1 << 16,
		},
		Tiles: [][]byte{{1, 2, 3}, {4, 5}},
		CacheParams: &detour_tile_cache.DtTileCacheParams{
			Cs:              0.3,
			Ch:              0.2,
			Width:           32,
			Height:          32,
			MaxTiles:        36,
			MaxObstacles:    16,
			MaxVertsPerPoly: 6,
			Partition:       detour_tile_cache.DT_PARTITION_MONOTONE,
		},
		CacheTiles: [][]byte{{9, 9, 9, 9}},
	}
}

func TestNavFileEnvelope(t *testing.T) {
	want := testNavFile()
	got, err := decodeNavFile(encodeNavFile(want))
	require.NoError(t, err)
	assert.False(t, got.Legacy)
	assert.Equal(t, NAVFILE_VERSION, got.Version)
	assert.Equal(t, want.Kind, got.Kind)
	assert.Equal(t, want.BuildID, got.BuildID)
	assert.Equal(t, want.Params, got.Params)
	assert.Equal(t, want.Tiles, got.Tiles)
	assert.Equal(t, want.CacheParams, got.CacheParams)
	assert.Equal(t, want.CacheTiles, got.CacheTiles)
}

func TestNavFileLegacyTiled(t *testing.T) {
	want := testNavFile()
	got, err := decodeNavFile(encodeLegacyTiled(want))
	require.NoError(t, err)
	assert.True(t, got.Legacy)
	assert.Equal(t, NavFileTiled, got.Kind)
	assert.Equal(t, want.Params, got.Params)
	assert.Equal(t, want.Tiles, got.Tiles)
	assert.Equal(t, want.CacheTiles, got.CacheTiles)
	assert.Equal(t, want.CacheParams.MaxObstacles, got.CacheParams.MaxObstacles)
	// Rebuild parameters are not part of the legacy layout.
	assert.Zero(t, got.CacheParams.MaxVertsPerPoly)
}

func TestNavFileLegacySolo(t *testing.T) {
	tile := []byte{7, 7, 7, 7, 7}
	got, err := decodeNavFile(encodeLegacySolo(tile))
	require.NoError(t, err)
	assert.True(t, got.Legacy)
	assert.Equal(t, NavFileSolo, got.Kind)
	assert.Equal(t, [][]byte{tile}, got.Tiles)
}

func TestNavFileRejects(t *testing.T) {
	for name, data := range map[string][]byte{
		"short":          {1, 2},
		"oversized tile": {0xff, 0, 0, 0, 1},
		"negative size":  {0xff, 0xff, 0xff, 0xff, 1},
		"truncated v0":   {0, 0, 0, 0, 1, 2, 3},
		"broken wire":    append([]byte(NAVFILE_MAGIC), 0xff),
	} {
		_, err := decodeNavFile(data)
		assert.ErrorIs(t, err, ErrBadFormat, name)
	}
}

func TestNavFileEnvelopeValidation(t *testing.T) {
	envelope := func(b *message.Builder) []byte {
		return append([]byte(NAVFILE_MAGIC), b.Encode()...)
	}

	newer := (&message.Builder{}).Varint(fieldKind, uint64(NavFileSolo)).Varint(fieldVersion, NAVFILE_VERSION+1).Bytes(fieldTile, []byte{1})
	_, err := decodeNavFile(envelope(newer))
	assert.ErrorIs(t, err, ErrBadFormat)

	unknownKind := (&message.Builder{}).Varint(fieldKind, 9).Varint(fieldVersion, NAVFILE_VERSION)
	_, err = decodeNavFile(envelope(unknownKind))
	assert.ErrorIs(t, err, ErrBadFormat)

	noTile := (&message.Builder{}).Varint(fieldKind, uint64(NavFileSolo)).Varint(fieldVersion, NAVFILE_VERSION)
	_, err = decodeNavFile(envelope(noTile))
	assert.ErrorIs(t, err, ErrBadFormat)

	noParams := (&message.Builder{}).Varint(fieldKind, uint64(NavFileTiled)).Varint(fieldVersion, NAVFILE_VERSION)
	_, err = decodeNavFile(envelope(noParams))
	assert.ErrorIs(t, err, ErrBadFormat)

	// Unknown fields are skipped.
	extra := (&message.Builder{}).Varint(fieldKind, uint64(NavFileSolo)).Varint(fieldVersion, NAVFILE_VERSION).
		Bytes(fieldTile, []byte{1}).Fixed32(99, 5)
	f, err := decodeNavFile(envelope(extra))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{1}}, f.Tiles)
}
