package leaderboard

import "math"

// DiversityConfig tunes diverse selection. Clusters is the number of
// parameter regions to spread the selection across; MaxIterations bounds the
// clustering refinement; MinDistance is the feature-space distance below
// which two candidates count as near-duplicates.
type DiversityConfig struct {
	Clusters      int
	MaxIterations int
	MinDistance   float64
}

func DefaultDiversityConfig() DiversityConfig {
	return DiversityConfig{Clusters: 4, MaxIterations: 20, MinDistance: 0.05}
}

// SelectDiverse picks up to n entries that rank high while spanning distinct
// parameter regions. Candidates are the top 2n by rank order; they are
// clustered on the supplied feature vectors and the best entry of each
// cluster is taken first, remaining slots fill by rank skipping
// near-duplicates of already selected entries.
func SelectDiverse(entries []Entry, features func(Entry) []float64, n int, cfg DiversityConfig) []Entry {
	if n <= 0 || len(entries) == 0 {
		return nil
	}
	if len(entries) <= n {
		out := make([]Entry, len(entries))
		copy(out, entries)
		return out
	}

	candidates := entries
	if len(candidates) > 2*n {
		candidates = candidates[:2*n]
	}

	vecs := make([][]float64, len(candidates))
	for i, e := range candidates {
		vecs[i] = features(e)
	}

	k := cfg.Clusters
	if k < 1 {
		k = 1
	}
	if k > len(candidates) {
		k = len(candidates)
	}
	assignment := kmeans(vecs, k, cfg.MaxIterations)

	// walk candidates in rank order, taking the first of each cluster, so the
	// result is both diverse and rank-ordered
	selected := make([]Entry, 0, n)
	selectedVecs := make([][]float64, 0, n)
	taken := make([]bool, len(candidates))
	clusterTaken := make([]bool, k)
	for i := range candidates {
		if len(selected) >= n {
			break
		}
		if clusterTaken[assignment[i]] {
			continue
		}
		clusterTaken[assignment[i]] = true
		selected = append(selected, candidates[i])
		selectedVecs = append(selectedVecs, vecs[i])
		taken[i] = true
	}

	// fill remaining slots by rank, skipping near-duplicates
	for i := range candidates {
		if len(selected) >= n {
			break
		}
		if taken[i] {
			continue
		}
		dup := false
		for _, v := range selectedVecs {
			if distance(vecs[i], v) < cfg.MinDistance {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		selected = append(selected, candidates[i])
		selectedVecs = append(selectedVecs, vecs[i])
		taken[i] = true
	}

	// still short, admit whatever ranks next
	for i := range candidates {
		if len(selected) >= n {
			break
		}
		if !taken[i] {
			selected = append(selected, candidates[i])
			taken[i] = true
		}
	}

	return selected
}

// kmeans assigns each vector to one of k clusters. Centroids seed from
// evenly spaced candidates so the outcome is deterministic for a given
// input order.
func kmeans(vecs [][]float64, k, maxIterations int) []int {
	if maxIterations < 1 {
		maxIterations = 1
	}

	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		src := vecs[c*len(vecs)/k]
		centroids[c] = append([]float64(nil), src...)
	}

	assignment := make([]int, len(vecs))
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, v := range vecs {
			best := 0
			bestDist := distance(v, centroids[0])
			for c := 1; c < k; c++ {
				if d := distance(v, centroids[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		for c := 0; c < k; c++ {
			sum := make([]float64, len(vecs[0]))
			count := 0
			for i, v := range vecs {
				if assignment[i] != c {
					continue
				}
				for d := range v {
					sum[d] += v[d]
				}
				count++
			}
			if count == 0 {
				continue
			}
			for d := range sum {
				sum[d] /= float64(count)
			}
			centroids[c] = sum
		}
	}

	return assignment
}

func distance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
