package onset

// PeakOptions configures PickPeaks. All sizes are in frames.
type PeakOptions struct {
	PreMax  int
	PostMax int
	PreAvg  int
	PostAvg int
	Delta   float64
	Wait    int
}

func DefaultPeakOptions() PeakOptions {
	return PeakOptions{
		PreMax:  30,
		PostMax: 30,
		PreAvg:  100,
		PostAvg: 100,
		Delta:   0.2,
		Wait:    30,
	}
}

// PickPeaks returns the frames n where x[n] is the maximum of
// x[n-PreMax : n+PostMax], at least Delta above the mean of
// x[n-PreAvg : n+PostAvg], and more than Wait frames after the last peak.
func PickPeaks(x []float64, opts PeakOptions) []int {
	var peaks []int
	last := -1

	for n, v := range x {
		if last >= 0 && n <= last+opts.Wait {
			continue
		}

		lo := max(0, n-opts.PreMax)
		hi := min(len(x), n+opts.PostMax+1)
		isMax := true
		for _, u := range x[lo:hi] {
			if u > v {
				isMax = false
				break
			}
		}
		if !isMax {
			continue
		}

		lo = max(0, n-opts.PreAvg)
		hi = min(len(x), n+opts.PostAvg+1)
		var sum float64
		for _, u := range x[lo:hi] {
			sum += u
		}
		if v < sum/float64(hi-lo)+opts.Delta {
			continue
		}

		peaks = append(peaks, n)
		last = n
	}
	return peaks
}
