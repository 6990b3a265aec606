package scanner

import "math"

// ConfidenceConfig holds the reference constants for the confidence scorer.
// Both are operator tunables, not fixed laws; the defaults live in the config
// package.
type ConfidenceConfig struct {
	// ReferenceProfitPct is the net profit at which the profit component of
	// the score saturates.
	ReferenceProfitPct float64
	// ReferenceVolumeUSD is the 24h volume at which the volume bonus starts
	// accruing.
	ReferenceVolumeUSD float64
}

// Confidence maps profit, volume, and corroboration signals to a 0-100 score.
// It is a pure function: identical inputs always produce identical output.
//
//	base        = clamp(net / referenceProfit * 60, 0, 60)
//	volumeBonus = clamp(log10(volume / referenceVolume) * 10, 0, 30)
//	consistency = 10 unless an opposite-direction opportunity for the same
//	              symbol/market pair was detected in the same cycle
func Confidence(cfg ConfidenceConfig, netProfitPct, volumeUSD float64, contradicted bool) int {
	var base float64
	if cfg.ReferenceProfitPct > 0 {
		base = clamp(netProfitPct/cfg.ReferenceProfitPct*60, 0, 60)
	}

	var volumeBonus float64
	if cfg.ReferenceVolumeUSD > 0 && volumeUSD > 0 {
		volumeBonus = clamp(math.Log10(volumeUSD/cfg.ReferenceVolumeUSD)*10, 0, 30)
	}

	consistencyBonus := 10.0
	if contradicted {
		consistencyBonus = 0
	}

	return int(clamp(math.Round(base+volumeBonus+consistencyBonus), 0, 100))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
