package elevator

import (
	"slices"
)

// scanOrder re-splits a queue at the current floor.
// Stops reachable without reversing come first, nearest first; the stops
// behind follow in the order the return sweep meets them.
// scanOrder는 현재 층을 기준으로 큐를 다시 나눕니다 (SCAN 순서).
func scanOrder(queue []int, current int, up bool) []int {
	sorted := slices.Clone(queue)
	slices.Sort(sorted)

	var above, below []int
	for _, f := range sorted {
		switch {
		case f > current:
			above = append(above, f)
		case f < current:
			below = append(below, f)
		}
	}
	slices.Reverse(below) // nearest first going down

	if up {
		return append(above, below...)
	}
	return append(below, above...)
}

// without returns q with every occurrence of f removed.
func without(q []int, f int) []int {
	return slices.DeleteFunc(q, func(v int) bool { return v == f })
}
