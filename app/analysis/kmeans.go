package analysis

import (
	"fmt"
	"math"
	"math/rand"
)

// Cluster is one group of documents with its centroid in vector space.
type Cluster struct {
	Members  []int
	Centroid []float64
}

// Clusterer groups document vectors into k clusters.
type Clusterer interface {
	Fit(vectors [][]float64, k int) ([]Cluster, error)
}

// KMeans is a seeded Lloyd's algorithm clusterer. The same seed on the
// same input yields the same clusters.
type KMeans struct {
	Seed          int64
	MaxIterations int
}

func NewKMeans(seed int64) *KMeans {
	return &KMeans{Seed: seed, MaxIterations: 100}
}

func (km *KMeans) Fit(vectors [][]float64, k int) ([]Cluster, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to cluster")
	}
	if k <= 0 {
		return nil, fmt.Errorf("invalid cluster count %d", k)
	}
	if k > len(vectors) {
		k = len(vectors)
	}

	rng := rand.New(rand.NewSource(km.Seed))
	dims := len(vectors[0])

	centroids := make([][]float64, k)
	for i, idx := range rng.Perm(len(vectors))[:k] {
		centroids[i] = append([]float64(nil), vectors[idx]...)
	}

	assignments := make([]int, len(vectors))
	for i := range assignments {
		assignments[i] = -1
	}

	maxIter := km.MaxIterations
	if maxIter <= 0 {
		maxIter = 100
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, vec := range vectors {
			best := nearestCentroid(vec, centroids)
			if best != assignments[i] {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		counts := make([]int, k)
		next := make([][]float64, k)
		for c := range next {
			next[c] = make([]float64, dims)
		}
		for i, vec := range vectors {
			c := assignments[i]
			counts[c]++
			for d, val := range vec {
				next[c][d] += val
			}
		}
		for c := range next {
			if counts[c] == 0 {
				// Reseed empty clusters from a random document.
				next[c] = append([]float64(nil), vectors[rng.Intn(len(vectors))]...)
				continue
			}
			for d := range next[c] {
				next[c][d] /= float64(counts[c])
			}
		}
		centroids = next
	}

	clusters := make([]Cluster, k)
	for c := range clusters {
		clusters[c].Centroid = centroids[c]
	}
	for i, c := range assignments {
		clusters[c].Members = append(clusters[c].Members, i)
	}

	return clusters, nil
}

func nearestCentroid(vec []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		var dist float64
		for d, val := range vec {
			diff := val - centroid[d]
			dist += diff * diff
		}
		if dist < bestDist {
			bestDist = dist
			best = c
		}
	}
	return best
}
