package navigation

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gorustyt/navcore/common/message"
	"github.com/gorustyt/navcore/common/rw"
	"github.com/gorustyt/navcore/detour"
	"github.com/gorustyt/navcore/detour_tile_cache"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	NAVFILE_MAGIC   = "NAVE"
	NAVFILE_VERSION = 1
)

type NavFileKind int

const (
	NavFileSolo  NavFileKind = 1
	NavFileTiled NavFileKind = 2
)

const (
	fieldKind        protowire.Number = 1
	fieldVersion     protowire.Number = 2
	fieldBuildID     protowire.Number = 3
	fieldParams      protowire.Number = 4
	fieldTile        protowire.Number = 5
	fieldCacheParams protowire.Number = 6
	fieldCacheTile   protowire.Number = 7
)

// navFile is the decoded content of a saved navmesh, whatever layout it came from.
type navFile struct {
	Kind        NavFileKind
	Version     int
	BuildID     string
	Params      *detour.NavMeshParams
	Tiles       [][]byte
	CacheParams *detour_tile_cache.DtTileCacheParams
	CacheTiles  [][]byte
	Legacy      bool
}

func encodeNavFile(f *navFile) []byte {
	var b message.Builder
	b.Varint(fieldKind, uint64(f.Kind))
	b.Varint(fieldVersion, NAVFILE_VERSION)
	if f.BuildID != "" {
		b.String(fieldBuildID, f.BuildID)
	}
	if f.Params != nil {
		b.Bytes(fieldParams, f.Params.ToBin())
	}
	for _, t := range f.Tiles {
		b.Bytes(fieldTile, t)
	}
	if f.CacheParams != nil {
		b.Bytes(fieldCacheParams, f.CacheParams.ToBin(false))
	}
	for _, t := range f.CacheTiles {
		b.Bytes(fieldCacheTile, t)
	}
	return append([]byte(NAVFILE_MAGIC), b.Encode()...)
}

// encodeLegacySolo writes [int32 size][tile].
func encodeLegacySolo(tile []byte) []byte {
	w := rw.NewNavMeshDataBinWriter()
	w.WriteInt32(int32(len(tile)))
	w.WriteUInt8s(tile)
	return w.GetWriteBytes()
}

// encodeLegacyTiled writes the version 0 tiled layout: navmesh params and
// tiles followed by tile cache params and compressed layers.
func encodeLegacyTiled(f *navFile) []byte {
	w := rw.NewNavMeshDataBinWriter()
	w.WriteInt32(0)
	w.WriteUInt8s(f.Params.ToBin())
	w.WriteUInt32(uint32(len(f.Tiles)))
	for _, t := range f.Tiles {
		w.WriteUInt32(uint32(len(t)))
		w.WriteUInt8s(t)
	}
	w.WriteUInt8s(f.CacheParams.ToBin(true))
	w.WriteUInt32(uint32(len(f.CacheTiles)))
	for _, t := range f.CacheTiles {
		w.WriteUInt32(uint32(len(t)))
		w.WriteUInt8s(t)
	}
	return w.GetWriteBytes()
}

// decodeNavFile reads the envelope, or sniffs the legacy layouts when the
// magic is missing: a leading int32 of 0 is a version 0 tiled file, any other
// value is the size of a single tile. A legacy solo file whose tile size is 0
// cannot be told apart from a tiled one.
func decodeNavFile(data []byte) (*navFile, error) {
	if bytes.HasPrefix(data, []byte(NAVFILE_MAGIC)) {
		return decodeEnvelope(data[len(NAVFILE_MAGIC):])
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadFormat, len(data))
	}
	r := rw.NewNavMeshDataBinReader(data)
	lead := r.ReadInt32()
	switch {
	case lead == 0:
		return decodeLegacyTiled(r)
	case lead > 0 && int(lead) <= len(data)-4:
		return &navFile{Kind: NavFileSolo, Tiles: [][]byte{r.ReadBytes(int(lead))}, Legacy: true}, nil
	}
	return nil, fmt.Errorf("%w: leading size %d of %d bytes", ErrBadFormat, lead, len(data))
}

func decodeEnvelope(data []byte) (*navFile, error) {
	f := &navFile{}
	err := message.Decode(data, func(fd message.Field) error {
		switch fd.Num {
		case fieldKind:
			f.Kind = NavFileKind(fd.Varint)
		case fieldVersion:
			f.Version = int(fd.Varint)
		case fieldBuildID:
			f.BuildID = string(fd.Bytes)
		case fieldParams:
			f.Params = &detour.NavMeshParams{}
			return f.Params.FromBin(fd.Bytes)
		case fieldTile:
			f.Tiles = append(f.Tiles, fd.Bytes)
		case fieldCacheParams:
			f.CacheParams = &detour_tile_cache.DtTileCacheParams{}
			return f.CacheParams.FromBin(fd.Bytes)
		case fieldCacheTile:
			f.CacheTiles = append(f.CacheTiles, fd.Bytes)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if f.Version > NAVFILE_VERSION {
		return nil, fmt.Errorf("%w: version %d is newer than %d", ErrBadFormat, f.Version, NAVFILE_VERSION)
	}
	switch f.Kind {
	case NavFileSolo:
		if len(f.Tiles) != 1 {
			return nil, fmt.Errorf("%w: solo file with %d tiles", ErrBadFormat, len(f.Tiles))
		}
	case NavFileTiled:
		if f.Params == nil {
			return nil, fmt.Errorf("%w: tiled file without navmesh params", ErrBadFormat)
		}
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrBadFormat, f.Kind)
	}
	return f, nil
}

func decodeLegacyTiled(r *rw.ReaderWriter) (*navFile, error) {
	f := &navFile{Kind: NavFileTiled, Legacy: true}
	f.Params = &detour.NavMeshParams{}
	if err := f.Params.FromBin(r.ReadBytes(len(f.Params.ToBin()))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	f.Tiles = readLegacyBlobs(r)
	f.CacheParams = &detour_tile_cache.DtTileCacheParams{}
	if err := f.CacheParams.FromBin(r.ReadBytes(detour_tile_cache.ParamsBinSize(true))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	f.CacheTiles = readLegacyBlobs(r)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	return f, nil
}

func readLegacyBlobs(r *rw.ReaderWriter) [][]byte {
	n := r.ReadUInt32()
	var blobs [][]byte
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		size := r.ReadUInt32()
		if size == 0 {
			continue
		}
		blobs = append(blobs, r.ReadBytes(int(size)))
	}
	return blobs
}

func readNavFile(path string) (*navFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := decodeNavFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func writeNavFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// removeStale deletes path, ignoring a missing file.
func removeStale(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
