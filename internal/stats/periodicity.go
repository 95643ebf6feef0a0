package stats

// Autocorrelation returns the raw autocorrelation of values for lags 0..maxLag
// inclusive: acf[k] = sum_i x_i * x_{i+k}.
func Autocorrelation(values []float64, maxLag int) []float64 {
	return lagProducts(values, maxLag, 0)
}

// CentredAutocorrelation is Autocorrelation over the mean-centred series.
// acf[k] = sum_i (x_i - m)(x_{i+k} - m).
func CentredAutocorrelation(values []float64, maxLag int) []float64 {
	return lagProducts(values, maxLag, Mean(values))
}

func lagProducts(values []float64, maxLag int, offset float64) []float64 {
	n := len(values)
	if n == 0 || maxLag < 0 {
		return nil
	}
	if maxLag > n-1 {
		maxLag = n - 1
	}

	shifted := make([]float64, n)
	for i, v := range values {
		shifted[i] = v - offset
	}

	acf := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag; lag++ {
		var sum float64
		for i := 0; i+lag < n; i++ {
			sum += shifted[i] * shifted[i+lag]
		}
		acf[lag] = sum
	}
	return acf
}

// FirstPeakLag returns the lag of the first local maximum of acf whose value
// exceeds minRatio * acf[0]. It returns 0 when there is no such peak.
func FirstPeakLag(acf []float64, minRatio float64) int {
	if len(acf) < 3 || acf[0] <= 0 {
		return 0
	}

	threshold := acf[0] * minRatio
	for lag := 1; lag < len(acf)-1; lag++ {
		if acf[lag] > acf[lag-1] && acf[lag] > acf[lag+1] && acf[lag] > threshold {
			return lag
		}
	}
	return 0
}
