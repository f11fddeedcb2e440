package grouping

// Partition splits n work items across size ranks and returns the contiguous
// index range owned by rank, in order. The split is near equal: the first
// n%size ranks get one extra item. It is pure arithmetic, so every rank can
// compute its own share independently and all shares together cover
// 0..n-1 exactly once.
func Partition(n, size, rank int) []int {
	if n <= 0 || size < 1 || rank < 0 || rank >= size {
		return nil
	}
	per, extra := n/size, n%size

	start := rank*per + min(rank, extra)
	count := per
	if rank < extra {
		count++
	}

	ids := make([]int, 0, count)
	for i := start; i < start+count; i++ {
		ids = append(ids, i)
	}
	return ids
}

// PartitionStrings applies Partition to a string list and returns the
// rank's share of values. Used to spread the deduplicated tile-file list
// during cache pre-warming with the same arithmetic as group assignment.
func PartitionStrings(values []string, size, rank int) []string {
	ids := Partition(len(values), size, rank)
	share := make([]string, 0, len(ids))
	for _, i := range ids {
		share = append(share, values[i])
	}
	return share
}
