package operation

import (
	"strings"

	"github.com/maauso/mediaforge-api/internal/command"
)

// Bounds accepted by a single atempo filter instance.
const (
	MinTempo = 0.5
	MaxTempo = 2.0
)

// TempoStages decomposes factor into a chain of tempo stages, each within
// [MinTempo, MaxTempo], whose product is factor. Factors above the range are
// halved and factors below it are doubled until the remainder fits, so 5.0
// becomes [2.0 2.0 1.25] and 0.2 becomes [0.5 0.5 0.8]. The factor must be
// positive and finite.
func TempoStages(factor float64) ([]float64, error) {
	if !(factor > 0) || !finite(factor) {
		return nil, invalid("speed factor must be positive, got %v", factor)
	}

	var stages []float64
	for factor > MaxTempo {
		stages = append(stages, MaxTempo)
		factor /= MaxTempo
	}
	for factor < MinTempo {
		stages = append(stages, MinTempo)
		factor /= MinTempo
	}
	return append(stages, factor), nil
}

func tempoChain(stages []float64) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = "atempo=" + command.FormatNumber(s)
	}
	return strings.Join(parts, ",")
}
