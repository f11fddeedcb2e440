// Package smsmap reads, writes and merges the line-network map files the
// river-geometry routine emits: ordered arcs of 2-D points plus detached
// nodes (free points such as the intersection-joint markers recorded near
// subdomain interfaces).
package smsmap

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Point is a 2-D map vertex.
type Point struct {
	X float64
	Y float64
}

// Arc is one polyline of the network.
type Arc struct {
	Points []Point
}

// Map is a line network: arcs plus detached nodes.
type Map struct {
	Arcs          []Arc
	DetachedNodes []Point
}

// IsEmpty reports whether the map has neither arcs nor detached nodes.
func (m *Map) IsEmpty() bool {
	return len(m.Arcs) == 0 && len(m.DetachedNodes) == 0
}

// Append adds another map's content to this one.
func (m *Map) Append(other *Map) {
	m.Arcs = append(m.Arcs, other.Arcs...)
	m.DetachedNodes = append(m.DetachedNodes, other.DetachedNodes...)
}

const header = "MAP VERSION 8"

// Write stores the map as a text file.
func (m *Map) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create map file %q: %v", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "BEGCOV")
	for _, node := range m.DetachedNodes {
		fmt.Fprintln(w, "NODE")
		fmt.Fprintf(w, "XY %s %s\n", coord(node.X), coord(node.Y))
		fmt.Fprintln(w, "END")
	}
	for _, arc := range m.Arcs {
		fmt.Fprintln(w, "ARC")
		fmt.Fprintf(w, "VERTICES %d\n", len(arc.Points))
		for _, p := range arc.Points {
			fmt.Fprintf(w, "XY %s %s\n", coord(p.X), coord(p.Y))
		}
		fmt.Fprintln(w, "END")
	}
	fmt.Fprintln(w, "ENDCOV")
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write map file %q: %v", path, err)
	}
	return nil
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Read loads a map file written by Write (or by the external routine using
// the same layout).
func Read(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open map file %q: %v", path, err)
	}
	defer f.Close()

	m := &Map{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	var arc *Arc
	inNode := false
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		switch {
		case text == "" || text == header || text == "BEGCOV" || text == "ENDCOV":
		case text == "NODE":
			inNode = true
		case text == "ARC":
			arc = &Arc{}
		case strings.HasPrefix(text, "VERTICES"):
		case strings.HasPrefix(text, "XY "):
			p, err := parseXY(text)
			if err != nil {
				return nil, fmt.Errorf("map file %q line %d: %v", path, line, err)
			}
			if inNode {
				m.DetachedNodes = append(m.DetachedNodes, p)
			} else if arc != nil {
				arc.Points = append(arc.Points, p)
			} else {
				return nil, fmt.Errorf("map file %q line %d: vertex outside NODE/ARC", path, line)
			}
		case text == "END":
			if inNode {
				inNode = false
			} else if arc != nil {
				m.Arcs = append(m.Arcs, *arc)
				arc = nil
			}
		default:
			return nil, fmt.Errorf("map file %q line %d: unexpected record %q", path, line, text)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read map file %q: %v", path, err)
	}
	return m, nil
}

func parseXY(text string) (Point, error) {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return Point{}, fmt.Errorf("malformed vertex %q", text)
	}
	x, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Point{}, fmt.Errorf("malformed x in %q", text)
	}
	y, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Point{}, fmt.Errorf("malformed y in %q", text)
	}
	return Point{X: x, Y: y}, nil
}

// Merge unions every map file matching the glob pattern into one map and
// writes it to mergedPath. File order is sorted for determinism. Zero
// matching files is not an error: the merged result is a valid empty map.
func Merge(pattern string, mergedPath string) (*Map, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad map glob %q: %v", pattern, err)
	}
	sort.Strings(matches)

	merged := &Map{}
	for _, match := range matches {
		// The merged output may itself match the pattern on a re-run.
		if match == mergedPath {
			continue
		}
		part, err := Read(match)
		if err != nil {
			return nil, err
		}
		merged.Append(part)
	}
	if err := merged.Write(mergedPath); err != nil {
		return nil, err
	}
	return merged, nil
}
