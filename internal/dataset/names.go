package dataset

import "strconv"

// UniqueNames resolves duplicate names in order of appearance. The first
// occurrence keeps its name; later ones get the smallest suffix "_2", "_3",
// ... that is not already taken by any other name in the list.
func UniqueNames(names []string) []string {
	taken := make(map[string]int, len(names))
	for _, n := range names {
		taken[n]++
	}
	out := make([]string, len(names))
	used := make(map[string]struct{}, len(names))
	for i, n := range names {
		if _, dup := used[n]; !dup {
			out[i] = n
			used[n] = struct{}{}
			continue
		}
		for k := 2; ; k++ {
			cand := n + "_" + strconv.Itoa(k)
			if _, clash := used[cand]; clash {
				continue
			}
			if taken[cand] > 0 {
				continue
			}
			out[i] = cand
			used[cand] = struct{}{}
			break
		}
	}
	return out
}
