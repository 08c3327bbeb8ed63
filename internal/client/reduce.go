package client

// reduceDailyValues collapses the three per-day series into one value per
// day. Preference order per index: the mean when present, else the midpoint
// of max and min when both are present, else the day is dropped. The archive
// sporadically omits the mean for recent or edge-of-coverage days while
// still providing max/min, hence the midpoint fallback. Series may be
// ragged; a missing index counts as absent.
func reduceDailyValues(mean, max, min []*float64) []float64 {
	n := len(mean)
	if len(max) > n {
		n = len(max)
	}
	if len(min) > n {
		n = len(min)
	}

	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if v := valueAt(mean, i); v != nil {
			out = append(out, *v)
			continue
		}
		hi, lo := valueAt(max, i), valueAt(min, i)
		if hi != nil && lo != nil {
			out = append(out, (*hi+*lo)/2)
		}
	}
	return out
}

func valueAt(s []*float64, i int) *float64 {
	if i < len(s) {
		return s[i]
	}
	return nil
}
