package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionCoversEveryIndexExactlyOnce(t *testing.T) {
	for n := 0; n <= 25; n++ {
		for size := 1; size <= 8; size++ {
			seen := make(map[int]int)
			for rank := 0; rank < size; rank++ {
				for _, id := range Partition(n, size, rank) {
					seen[id]++
				}
			}
			require.Len(t, seen, n, "n=%d size=%d", n, size)
			for id, count := range seen {
				assert.Equal(t, 1, count, "index %d assigned %d times (n=%d size=%d)", id, count, n, size)
				assert.True(t, id >= 0 && id < n)
			}
		}
	}
}

func TestPartitionIsContiguousAndBalanced(t *testing.T) {
	for n := 0; n <= 25; n++ {
		for size := 1; size <= 8; size++ {
			minLen, maxLen := n+1, -1
			next := 0
			for rank := 0; rank < size; rank++ {
				ids := Partition(n, size, rank)
				for _, id := range ids {
					require.Equal(t, next, id, "share of rank %d not contiguous (n=%d size=%d)", rank, n, size)
					next++
				}
				if len(ids) < minLen {
					minLen = len(ids)
				}
				if len(ids) > maxLen {
					maxLen = len(ids)
				}
			}
			assert.LessOrEqual(t, maxLen-minLen, 1, "unbalanced split n=%d size=%d", n, size)
		}
	}
}

func TestPartitionRemainderGoesToEarliestRanks(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3}, Partition(10, 3, 0))
	assert.Equal(t, []int{4, 5, 6}, Partition(10, 3, 1))
	assert.Equal(t, []int{7, 8, 9}, Partition(10, 3, 2))
}

func TestPartitionIsDeterministic(t *testing.T) {
	first := Partition(17, 5, 3)
	second := Partition(17, 5, 3)
	assert.Equal(t, first, second)
}

func TestPartitionDegenerateArguments(t *testing.T) {
	assert.Empty(t, Partition(0, 4, 0))
	assert.Empty(t, Partition(5, 3, 3))
	assert.Empty(t, Partition(5, 0, 0))
	assert.Equal(t, []int{0, 1, 2}, Partition(3, 1, 0))
}

func TestPartitionStrings(t *testing.T) {
	files := []string{"a.tif", "b.tif", "c.tif", "d.tif", "e.tif"}
	var all []string
	for rank := 0; rank < 2; rank++ {
		all = append(all, PartitionStrings(files, 2, rank)...)
	}
	assert.Equal(t, files, all)
}
