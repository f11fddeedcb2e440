package grouping

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dhconnelly/rtreego"
	"github.com/golang/geo/r2"
	spin "github.com/tj/go-spin"

	"github.com/bsaid97/go-river-driver/utils"
)

// Grouping is the computed thalweg/tile partition, broadcast by value to
// every rank:
//   - ThalwegToGroup maps each thalweg index to its group id,
//   - GroupFiles lists each group's required DEM tile files (canonical
//     manifest order; may be empty when a thalweg lies outside all tiles),
//   - GroupThalwegs lists each group's member thalweg indices.
//
// Group ids are assigned in first-discovery order over the canonical thalweg
// order, so the result is deterministic for fixed inputs.
type Grouping struct {
	ThalwegToGroup []int
	GroupFiles     [][]string
	GroupThalwegs  [][]int
}

// NumGroups returns the number of tile groups.
func (g *Grouping) NumGroups() int {
	return len(g.GroupFiles)
}

// Encode serializes the grouping for broadcast or caching.
func (g *Grouping) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(g); err != nil {
		return nil, fmt.Errorf("failed to encode grouping: %v", err)
	}
	return buf.Bytes(), nil
}

// DecodeGrouping is the inverse of Encode. Gob flattens empty slices to nil,
// so the file list of a zero-tile group is restored to empty afterwards;
// decoding is then an exact inverse.
func DecodeGrouping(raw []byte) (*Grouping, error) {
	var g Grouping
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to decode grouping: %v", err)
	}
	for i, files := range g.GroupFiles {
		if files == nil {
			g.GroupFiles[i] = []string{}
		}
	}
	return &g, nil
}

// indexedTile is a manifest entry in the R-tree.
type indexedTile struct {
	entry TileEntry
	order int
	rect  rtreego.Rect
}

func (t *indexedTile) Bounds() rtreego.Rect {
	return t.rect
}

// rtree rects need strictly positive side lengths.
const minRectSide = 1e-9

func toRtreeRect(r r2.Rect) (rtreego.Rect, error) {
	w := r.X.Length()
	if w < minRectSide {
		w = minRectSide
	}
	h := r.Y.Length()
	if h < minRectSide {
		h = minRectSide
	}
	return rtreego.NewRect(rtreego.Point{r.X.Lo, r.Y.Lo}, []float64{w, h})
}

// Compute builds the TileGroup partition. For each thalweg the path bounds
// are expanded by the lateral search buffer (meters, converted to degrees),
// and every manifest tile whose extent intersects that region is required.
// Thalwegs with an identical required-tile list share one group. A thalweg
// that intersects no tile still gets a group, with an empty file list.
func Compute(manifest *Manifest, thalwegs []Thalweg, bufferMeters float64) (*Grouping, error) {
	bufferDeg := utils.CalculateWGS84ToleranceFromMeters(bufferMeters)

	tiles := make([]*indexedTile, 0, len(manifest.Tiles))
	tree := rtreego.NewTree(2, 1, 64)
	for i, entry := range manifest.Tiles {
		extent, err := entry.Extent()
		if err != nil {
			return nil, err
		}
		rect, err := toRtreeRect(extent)
		if err != nil {
			return nil, fmt.Errorf("tile %q has a degenerate extent: %v", entry.File, err)
		}
		tile := &indexedTile{entry: entry, order: i, rect: rect}
		tiles = append(tiles, tile)
		tree.Insert(tile)
	}

	grouping := &Grouping{
		ThalwegToGroup: make([]int, len(thalwegs)),
	}
	groupByKey := make(map[string]int)
	spinner := spin.New()

	for n, thalweg := range thalwegs {
		region := bufferedBounds(thalweg, bufferDeg)
		required := requiredTiles(tree, region, bufferDeg)

		key := tileKey(required)
		groupID, seen := groupByKey[key]
		if !seen {
			groupID = len(grouping.GroupFiles)
			groupByKey[key] = groupID
			files := make([]string, 0, len(required))
			for _, order := range required {
				files = append(files, tiles[order].entry.File)
			}
			grouping.GroupFiles = append(grouping.GroupFiles, files)
			grouping.GroupThalwegs = append(grouping.GroupThalwegs, nil)
		}
		grouping.ThalwegToGroup[thalweg.Index] = groupID
		grouping.GroupThalwegs[groupID] = append(grouping.GroupThalwegs[groupID], thalweg.Index)

		if (n+1)%100 == 0 || n+1 == len(thalwegs) {
			fmt.Printf("\r%s grouping thalwegs %d/%d", spinner.Next(), n+1, len(thalwegs))
		}
	}
	fmt.Println()

	return grouping, nil
}

// bufferedBounds is the thalweg's bounding box expanded laterally by the
// search buffer.
func bufferedBounds(thalweg Thalweg, bufferDeg float64) r2.Rect {
	bounds := thalweg.Path.Bounds()
	rect := r2.RectFromPoints(
		r2.Point{X: bounds.Min(0), Y: bounds.Min(1)},
		r2.Point{X: bounds.Max(0), Y: bounds.Max(1)},
	)
	return rect.ExpandedByMargin(bufferDeg)
}

// requiredTiles queries the tile index for the buffered region and returns
// the matching tiles' manifest positions in canonical order.
func requiredTiles(tree *rtreego.Rtree, region r2.Rect, bufferDeg float64) []int {
	query, err := toRtreeRect(region)
	if err != nil {
		return nil
	}
	matches := tree.SearchIntersect(query)
	orders := make([]int, 0, len(matches))
	for _, match := range matches {
		tile := match.(*indexedTile)
		extent, err := tile.entry.Extent()
		if err != nil {
			continue
		}
		if extent.Intersects(region) {
			orders = append(orders, tile.order)
		}
	}
	sort.Ints(orders)
	return orders
}

func tileKey(orders []int) string {
	parts := make([]string, len(orders))
	for i, o := range orders {
		parts[i] = strconv.Itoa(o)
	}
	return strings.Join(parts, ",")
}
