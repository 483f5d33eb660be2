package overlay

import (
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/ottcivic/liveability-cli/internal/catalog"
)

// SampleHealth synthesizes plausible health indicators for every
// neighbourhood id. It exists only as a fallback when the health overlay is
// entirely absent, is off by default, and is deterministic for a given
// seed so it can be pinned in reproducibility checks. Never mixed with real
// data: the caller uses it only when HealthFromRows produced nothing.
func SampleHealth(ids []catalog.NeighbourhoodID, seed uint64) map[catalog.NeighbourhoodID]Health {
	rng := rand.New(rand.NewPCG(seed, seed))
	out := make(map[catalog.NeighbourhoodID]Health, len(ids))
	for _, id := range ids {
		nei := 30 + rng.Float64()*60          // 30-90
		selfRated := 45 + rng.Float64()*40    // 45-85 %
		foodSafety := 80 + rng.Float64()*19.5 // 80-99.5 %
		out[id] = Health{
			NEI:                &nei,
			SelfRatedHealthPct: &selfRated,
			FoodSafetyPct:      &foodSafety,
		}
	}
	zap.L().Warn("overlay: health dataset absent, using seeded sample data",
		zap.Uint64("seed", seed),
		zap.Int("neighbourhoods", len(ids)),
	)
	return out
}
