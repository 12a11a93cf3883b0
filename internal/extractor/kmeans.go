package extractor

import (
	"fmt"
	"math/rand"

	"github.com/rklaeser/pixelart/internal/pixelart"
)

// DefaultSeed is used when KMeans.Seed is zero, so that conversions are
// reproducible by default without the caller needing to think about
// seeding (spec.md §9's determinism design note).
const DefaultSeed int64 = 0xB16B00B5

// KMeans extracts a representative color via k-means clustering in RGB
// space. The PRNG used for k-means++ seeding is always constructed from
// Seed (or DefaultSeed), never the package-global math/rand source, so
// that repeated runs with the same input and parameters are
// byte-identical (spec property 6).
//
// No third-party RNG package appears anywhere in the reference corpus;
// every corpus repo needing reproducible randomness (e.g.
// df07-go-progressive-raytracer and gmhorn-gremlin) constructs its own
// math/rand.Rand the same way,
// so this is a standard-library use with no ecosystem alternative to
// adopt — see SPEC_FULL.md §9.4.
type KMeans struct {
	K             uint32
	MaxIterations uint32
	Seed          int64
}

var _ Extractor = KMeans{}

func (k KMeans) seed() int64 {
	if k.Seed != 0 {
		return k.Seed
	}
	return DefaultSeed
}

// Extract implements the four steps of spec.md §4.3 KMeans.
func (k KMeans) Extract(pixels []pixelart.Pixel) (pixelart.Pixel, error) {
	centroids, assign, err := k.cluster(pixels)
	if err != nil {
		return pixelart.Pixel{}, err
	}
	if assign == nil {
		// N <= k: cluster() already returned the single direct centroid.
		return centroids[0], nil
	}
	return dominantCentroid(centroids, assign), nil
}

// KMeansPalette exposes the full set of converged centroids, for
// callers that need a multi-color palette (e.g. the Converter's
// QuadTree palette-remapping pass) instead of a single representative
// color.
func KMeansPalette(pixels []pixelart.Pixel, k KMeans) ([]pixelart.Pixel, error) {
	centroids, _, err := k.cluster(pixels)
	return centroids, err
}

// cluster runs steps 1-3 of spec.md §4.3 KMeans and returns the
// converged centroids. assign is nil iff N <= k, in which case
// centroids has exactly one entry (the direct mean).
func (k KMeans) cluster(pixels []pixelart.Pixel) (centroids []pixelart.Pixel, assign []int, err error) {
	if len(pixels) == 0 {
		return nil, nil, emptyInputError("KMeans")
	}
	if k.K < 1 {
		return nil, nil, fmt.Errorf("extractor: KMeans k must be >= 1: %w", pixelart.ErrInvalidParameter)
	}
	if k.MaxIterations < 1 {
		return nil, nil, fmt.Errorf("extractor: KMeans max_iterations must be >= 1: %w", pixelart.ErrInvalidParameter)
	}

	n := len(pixels)
	kk := int(k.K)

	// Step 1: N <= k returns the centroid of input directly.
	if n <= kk {
		return []pixelart.Pixel{sumChannels(pixels).mean()}, nil, nil
	}

	rng := rand.New(rand.NewSource(k.seed()))

	centroids = kmeansPlusPlusInit(pixels, kk, rng)

	assign = make([]int, n)
	for iter := uint32(0); iter < k.MaxIterations; iter++ {
		moved := assignAndUpdate(pixels, centroids, assign)
		if !moved {
			break
		}
	}

	return centroids, assign, nil
}

// kmeansPlusPlusInit picks the first centroid deterministically (index
// 0 of the input), then each subsequent centroid with probability
// proportional to squared distance to the nearest already-chosen
// centroid.
func kmeansPlusPlusInit(pixels []pixelart.Pixel, k int, rng *rand.Rand) []pixelart.Pixel {
	centroids := make([]pixelart.Pixel, 0, k)
	centroids = append(centroids, pixels[0])

	nearestSq := make([]int64, len(pixels))
	for i, p := range pixels {
		nearestSq[i] = sqDist(p, pixels[0])
	}

	for len(centroids) < k {
		var total int64
		for _, d := range nearestSq {
			total += d
		}
		var pick int
		if total == 0 {
			// All remaining points coincide with a chosen centroid;
			// pick uniformly to make progress.
			pick = rng.Intn(len(pixels))
		} else {
			target := rng.Int63n(total)
			var acc int64
			pick = len(pixels) - 1
			for i, d := range nearestSq {
				acc += d
				if acc > target {
					pick = i
					break
				}
			}
		}
		next := pixels[pick]
		centroids = append(centroids, next)
		for i, p := range pixels {
			d := sqDist(p, next)
			if d < nearestSq[i] {
				nearestSq[i] = d
			}
		}
	}
	return centroids
}

// assignAndUpdate runs one assignment + update pass in place, writing
// the winning centroid index for each pixel into assign, and returns
// whether any centroid moved by more than 0.5 in any channel.
func assignAndUpdate(pixels []pixelart.Pixel, centroids []pixelart.Pixel, assign []int) bool {
	for i, p := range pixels {
		best := 0
		bestD := sqDist(p, centroids[0])
		for c := 1; c < len(centroids); c++ {
			d := sqDist(p, centroids[c])
			if d < bestD {
				bestD = d
				best = c
			}
		}
		assign[i] = best
	}

	sums := make([]channelSums, len(centroids))
	for i, p := range pixels {
		c := assign[i]
		sums[c].r += int64(p.R)
		sums[c].g += int64(p.G)
		sums[c].b += int64(p.B)
		sums[c].n++
	}

	moved := false
	newCentroids := make([]pixelart.Pixel, len(centroids))
	for c := range centroids {
		if sums[c].n == 0 {
			newCentroids[c] = furthestPixel(pixels, centroids)
		} else {
			newCentroids[c] = sums[c].mean()
		}
		if channelDelta(centroids[c], newCentroids[c]) > 0.5 {
			moved = true
		}
	}
	copy(centroids, newCentroids)
	return moved
}

func channelDelta(a, b pixelart.Pixel) float64 {
	max := func(x, y float64) float64 {
		if x > y {
			return x
		}
		return y
	}
	d := 0.0
	d = max(d, absf(float64(a.R)-float64(b.R)))
	d = max(d, absf(float64(a.G)-float64(b.G)))
	d = max(d, absf(float64(a.B)-float64(b.B)))
	return d
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// furthestPixel re-seeds an unassigned centroid to the pixel furthest
// from any current centroid.
func furthestPixel(pixels []pixelart.Pixel, centroids []pixelart.Pixel) pixelart.Pixel {
	bestIdx := 0
	var bestD int64 = -1
	for i, p := range pixels {
		minD := sqDist(p, centroids[0])
		for c := 1; c < len(centroids); c++ {
			d := sqDist(p, centroids[c])
			if d < minD {
				minD = d
			}
		}
		if minD > bestD {
			bestD = minD
			bestIdx = i
		}
	}
	return pixels[bestIdx]
}

// dominantCentroid returns the centroid whose cluster contains the most
// input pixels, ties broken by smallest index.
func dominantCentroid(centroids []pixelart.Pixel, assign []int) pixelart.Pixel {
	counts := make([]int, len(centroids))
	for _, a := range assign {
		counts[a]++
	}
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return centroids[best]
}
