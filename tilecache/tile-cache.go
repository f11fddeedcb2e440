// Package tilecache persists parsed DEM tile data next to each source
// raster, so repeated runs and repeated groups never pay raster decode
// latency twice for the same tile.
package tilecache

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/golang/geo/r2"
)

// TileData is the parsed form of one DEM tile: the covered extent and the
// flattened elevation grid. How it is decoded from the raster file is the
// Parser's business.
type TileData struct {
	Path string
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
	NCol int
	NRow int
	Z    []float32
}

// Extent returns the tile's covered rectangle.
func (t *TileData) Extent() r2.Rect {
	return r2.RectFromPoints(
		r2.Point{X: t.MinX, Y: t.MinY},
		r2.Point{X: t.MaxX, Y: t.MaxY},
	)
}

// Parser decodes a DEM raster file. Implementations live outside this
// module; the cache only requires that parsing the same file twice yields
// the same grid shape and extent.
type Parser interface {
	Parse(path string) (*TileData, error)
}

// Cache wraps a Parser with a sidecar file per tile.
type Cache struct {
	Parser Parser
}

// sidecarName is the cache file written alongside each source tile.
func sidecarName(tilePath string) string {
	return tilePath + ".xyz.cache"
}

// GetOrParse returns the parsed tile and whether it had to be freshly
// parsed. A readable sidecar is a hit; a missing or corrupt sidecar falls
// back to parsing and rewrites the sidecar.
func (c *Cache) GetOrParse(tilePath string) (*TileData, bool, error) {
	if cached, err := readSidecar(tilePath); err == nil {
		return cached, false, nil
	}

	data, err := c.Parser.Parse(tilePath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse DEM tile %q: %v", tilePath, err)
	}
	if err := writeSidecar(tilePath, data); err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Validate re-parses the tile and compares shape and extent against the
// sidecar. It reports whether the sidecar had to be freshly written. Purely
// diagnostic; a mismatch replaces the sidecar rather than failing.
func (c *Cache) Validate(tilePath string) (bool, error) {
	fresh, err := c.Parser.Parse(tilePath)
	if err != nil {
		return false, fmt.Errorf("failed to parse DEM tile %q: %v", tilePath, err)
	}
	cached, err := readSidecar(tilePath)
	if err == nil && sameShape(cached, fresh) {
		return false, nil
	}
	if err := writeSidecar(tilePath, fresh); err != nil {
		return false, err
	}
	return true, nil
}

func sameShape(a, b *TileData) bool {
	return a.NCol == b.NCol && a.NRow == b.NRow &&
		a.Extent() == b.Extent() && len(a.Z) == len(b.Z)
}

func readSidecar(tilePath string) (*TileData, error) {
	f, err := os.Open(sidecarName(tilePath))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var data TileData
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

func writeSidecar(tilePath string, data *TileData) error {
	f, err := os.Create(sidecarName(tilePath))
	if err != nil {
		return fmt.Errorf("failed to create tile cache for %q: %v", tilePath, err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(data); err != nil {
		return fmt.Errorf("failed to write tile cache for %q: %v", tilePath, err)
	}
	return nil
}
