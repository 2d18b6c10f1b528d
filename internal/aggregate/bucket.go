// Package aggregate computes grouped statistics over traffic records.
//
// Every function is a pure full scan of its input: nothing is cached and
// nothing is mutated, so results can be recomputed on every request.
package aggregate

import (
	"github.com/smartcity/trafficlens/internal/domain"
	"github.com/smartcity/trafficlens/pkg/utils"
)

// bucket holds the running totals of one group
type bucket[K comparable] struct {
	key          K
	volumeSum    int
	speedSum     float64
	occupancySum float64
	count        int

	// peak single-record volume; the first record reaching it wins ties
	peakVolume int
	peakTime   string
}

func (b *bucket[K]) add(r domain.TrafficRecord) {
	if b.count == 0 || r.Volume > b.peakVolume {
		b.peakVolume = r.Volume
		b.peakTime = r.Time
	}
	b.volumeSum += r.Volume
	b.speedSum += r.Speed
	b.occupancySum += r.Occupancy
	b.count++
}

func (b *bucket[K]) avgVolume() int {
	return utils.MeanRounded(float64(b.volumeSum), b.count)
}

func (b *bucket[K]) avgSpeed() int {
	return utils.MeanRounded(b.speedSum, b.count)
}

func (b *bucket[K]) avgOccupancy() int {
	return utils.MeanRounded(b.occupancySum, b.count)
}

// fold groups records by key. Keys in seed always get a bucket, in seed
// order; other keys are appended in first-seen order.
func fold[K comparable](records []domain.TrafficRecord, seed []K, key func(domain.TrafficRecord) K) []*bucket[K] {
	index := make(map[K]*bucket[K], len(seed))
	buckets := make([]*bucket[K], 0, len(seed))
	for _, k := range seed {
		b := &bucket[K]{key: k}
		index[k] = b
		buckets = append(buckets, b)
	}

	for _, r := range records {
		k := key(r)
		b, ok := index[k]
		if !ok {
			b = &bucket[K]{key: k}
			index[k] = b
			buckets = append(buckets, b)
		}
		b.add(r)
	}
	return buckets
}
