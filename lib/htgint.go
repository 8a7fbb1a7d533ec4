package lib

import "fmt"
import "sort"
import "strconv"
import "strings"

// HistogramInt64 statistical histogram, samples that fall below `from`
// or at or above `till` are accumulated in the first and last bucket.
type HistogramInt64 struct {
	n         int64
	minval    int64
	maxval    int64
	sum       int64
	histogram []int64
	init      bool
	from      int64
	till      int64
	width     int64
}

// NewhistorgramInt64 return a new histogram object.
func NewhistorgramInt64(from, till, width int64) *HistogramInt64 {
	from = (from / width) * width
	till = (till / width) * width
	h := &HistogramInt64{from: from, till: till, width: width}
	h.histogram = make([]int64, 1+((till-from)/width)+1)
	return h
}

// Add a sample to this histogram.
func (h *HistogramInt64) Add(sample int64) {
	h.n++
	h.sum += sample
	if h.init == false || sample < h.minval {
		h.minval, h.init = sample, true
	}
	if h.maxval < sample {
		h.maxval = sample
	}
	switch {
	case sample < h.from:
		h.histogram[0]++
	case sample >= h.till:
		h.histogram[len(h.histogram)-1]++
	default:
		h.histogram[((sample-h.from)/h.width)+1]++
	}
}

// Min return minimum value from sample.
func (h *HistogramInt64) Min() int64 {
	return h.minval
}

// Max return maximum value from sample.
func (h *HistogramInt64) Max() int64 {
	return h.maxval
}

// Samples return total number of samples in the set.
func (h *HistogramInt64) Samples() int64 {
	return h.n
}

// Sum return the sum of all sample values.
func (h *HistogramInt64) Sum() int64 {
	return h.sum
}

// Mean return the average value of all samples.
func (h *HistogramInt64) Mean() int64 {
	if h.n == 0 {
		return 0
	}
	return int64(float64(h.sum) / float64(h.n))
}

// Stats return cumulative counts, keyed by the lower bound of each bucket.
// Key "+" counts every sample.
func (h *HistogramInt64) Stats() map[string]int64 {
	m := make(map[string]int64)
	last := len(h.histogram) - 1
	for last >= 0 && h.histogram[last] == 0 {
		last--
	}
	cumm := int64(0)
	for j := 0; j <= last; j++ {
		cumm += h.histogram[j]
		if j == last {
			m["+"] = cumm
		} else {
			m[strconv.Itoa(int(h.from+(int64(j)*h.width)))] = cumm
		}
	}
	return m
}

// Fullstats includes samples, min, max and mean in the Stats().
func (h *HistogramInt64) Fullstats() map[string]interface{} {
	hmap := make(map[string]interface{})
	for k, v := range h.Stats() {
		hmap[k] = v
	}
	return map[string]interface{}{
		"samples":   h.Samples(),
		"min":       h.Min(),
		"max":       h.Max(),
		"mean":      h.Mean(),
		"histogram": hmap,
	}
}

// Logstring return Fullstats as loggable string, keys are sorted.
func (h *HistogramInt64) Logstring() string {
	ss := []string{
		fmt.Sprintf(`"max": %v`, h.Max()),
		fmt.Sprintf(`"mean": %v`, h.Mean()),
		fmt.Sprintf(`"min": %v`, h.Min()),
		fmt.Sprintf(`"samples": %v`, h.Samples()),
	}
	stats, keys := h.Stats(), []int{}
	for k := range stats {
		if k == "+" {
			continue
		}
		n, _ := strconv.Atoi(k)
		keys = append(keys, n)
	}
	sort.Ints(keys)
	hs := []string{}
	for _, k := range keys {
		hs = append(hs, fmt.Sprintf(`"%v": %v`, k, stats[strconv.Itoa(k)]))
	}
	hs = append(hs, fmt.Sprintf(`"+": %v`, stats["+"]))
	ss = append(ss, fmt.Sprintf(`"histogram": {%v}`, strings.Join(hs, ",")))
	return "{" + strings.Join(ss, ",") + "}"
}
