package beat

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/onset"
)

// DynamicProgramming returns beat frames that maximise onset strength at
// the beat positions while penalising deviation from the tempo period.
// It returns nil for a silent envelope or non-positive tempo.
func DynamicProgramming(env *onset.Envelope, bpm float64, opts Options) []int {
	opts = withDefaults(opts)
	if env.IsSilent() || !(bpm > 0) {
		return nil
	}

	period := max(1, int(math.Round(periodFrames(env, bpm))))

	local := localScore(normalizeOnsets(env.Values), period)
	cum, backlink := accumulate(local, period, opts.Tightness)

	tail := lastBeat(cum)
	if tail < 0 {
		return nil
	}

	beats := []int{tail}
	for backlink[beats[len(beats)-1]] >= 0 {
		beats = append(beats, backlink[beats[len(beats)-1]])
	}
	for i, j := 0, len(beats)-1; i < j; i, j = i+1, j-1 {
		beats[i], beats[j] = beats[j], beats[i]
	}

	return trimBeats(local, beats)
}

// normalizeOnsets scales the envelope to unit standard deviation.
func normalizeOnsets(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	if len(out) < 2 {
		return out
	}
	if sd := stat.StdDev(out, nil); sd > 0 {
		for i := range out {
			out[i] /= sd
		}
	}
	return out
}

// localScore smooths the envelope with a Gaussian whose width is 1/32 of
// the beat period.
func localScore(values []float64, period int) []float64 {
	kernel := make([]float64, 2*period+1)
	for k := -period; k <= period; k++ {
		z := float64(k) * 32 / float64(period)
		kernel[k+period] = math.Exp(-0.5 * z * z)
	}

	out := make([]float64, len(values))
	for i := range values {
		var sum float64
		for k := -period; k <= period; k++ {
			if j := i + k; j >= 0 && j < len(values) {
				sum += values[j] * kernel[k+period]
			}
		}
		out[i] = sum
	}
	return out
}

// accumulate fills the cumulative score and backlinks. A backlink of -1
// marks the first beat of a chain.
func accumulate(local []float64, period int, tightness float64) ([]float64, []int) {
	n := len(local)
	cum := make([]float64, n)
	backlink := make([]int, n)

	// Predecessor offsets span [-2*period, -period/2].
	lo := -2 * period
	hi := -int(math.Round(float64(period) / 2))
	if hi > -1 {
		hi = -1
	}
	offsets := make([]int, 0, hi-lo+1)
	txwt := make([]float64, 0, hi-lo+1)
	for off := lo; off <= hi; off++ {
		l := math.Log(float64(-off) / float64(period))
		offsets = append(offsets, off)
		txwt = append(txwt, -tightness*l*l)
	}

	var localMax float64
	for _, v := range local {
		localMax = math.Max(localMax, v)
	}

	firstBeat := true
	for i, score := range local {
		best, bestIdx := math.Inf(-1), -1
		for k, off := range offsets {
			cand := txwt[k]
			if j := i + off; j >= 0 {
				cand += cum[j]
			}
			if cand > best {
				best, bestIdx = cand, i+off
			}
		}

		cum[i] = score + best
		if firstBeat && score < 0.01*localMax {
			backlink[i] = -1
		} else {
			backlink[i] = bestIdx
			firstBeat = false
		}
		if backlink[i] < 0 {
			backlink[i] = -1
		}
	}
	return cum, backlink
}

// lastBeat picks the last local maximum of cum whose score is at least
// half the median local-maximum score.
func lastBeat(cum []float64) int {
	var maxima []int
	for i := range cum {
		left := cum[max(0, i-1)]
		right := cum[min(len(cum)-1, i+1)]
		if (i > 0 && cum[i] > left) && cum[i] >= right {
			maxima = append(maxima, i)
		}
	}
	if len(maxima) == 0 {
		return -1
	}

	scores := make([]float64, len(maxima))
	for i, m := range maxima {
		scores[i] = cum[m]
	}
	sort.Float64s(scores)
	median := stat.Quantile(0.5, stat.LinInterp, scores, nil)

	for i := len(maxima) - 1; i >= 0; i-- {
		if 2*cum[maxima[i]] > median {
			return maxima[i]
		}
	}
	return -1
}

// trimBeats drops leading and trailing beats whose local score is below
// half the RMS of the whole local score.
func trimBeats(local []float64, beats []int) []int {
	var sum float64
	for _, v := range local {
		sum += v * v
	}
	threshold := 0.5 * math.Sqrt(sum/float64(len(local)))

	start, end := 0, len(beats)
	for start < end && local[beats[start]] <= threshold {
		start++
	}
	for end > start && local[beats[end-1]] <= threshold {
		end--
	}
	if start == end {
		return nil
	}
	return beats[start:end]
}
