package cube

import "github.com/wyfcoding/ore/internal/oreerr"

// ScenarioData is the dense (date, sample, key) store of simulated market
// observables — FX spots, numeraires, and named index fixings — that the
// post-processor reads alongside the cube. Dimensions are fixed at
// construction and must match the cube's.
type ScenarioData struct {
	dimDates   int
	dimSamples int
	keys       []string
	keyIndex   map[string]int
	data       []float64 // C-order (date, sample, key)
}

// NewScenarioData builds an empty scenario store over the given keys
// (e.g. "FX/EURUSD", "NUMERAIRE/USD", "INDEX/EUR-EURIBOR-6M").
func NewScenarioData(dimDates, dimSamples int, keys []string) (*ScenarioData, error) {
	if dimDates <= 0 || dimSamples <= 0 {
		return nil, oreerr.NewAggregation("scenarioData: dimDates and dimSamples must be positive")
	}
	keyIndex := make(map[string]int, len(keys))
	for i, k := range keys {
		keyIndex[k] = i
	}
	return &ScenarioData{
		dimDates:   dimDates,
		dimSamples: dimSamples,
		keys:       append([]string{}, keys...),
		keyIndex:   keyIndex,
		data:       make([]float64, dimDates*dimSamples*len(keys)),
	}, nil
}

func (s *ScenarioData) DimDates() int   { return s.dimDates }
func (s *ScenarioData) DimSamples() int { return s.dimSamples }
func (s *ScenarioData) Keys() []string  { return s.keys }

func (s *ScenarioData) index(date, sample int, key string) (int, error) {
	if date < 0 || date >= s.dimDates {
		return 0, oreerr.NewBounds(oreerr.Location{}, "scenarioData: date index %d out of range", date)
	}
	if sample < 0 || sample >= s.dimSamples {
		return 0, oreerr.NewBounds(oreerr.Location{}, "scenarioData: sample index %d out of range", sample)
	}
	ki, ok := s.keyIndex[key]
	if !ok {
		return 0, oreerr.NewAggregation("scenarioData: unknown key %q", key)
	}
	return (date*s.dimSamples+sample)*len(s.keys) + ki, nil
}

// Set writes one (date,sample,key) observable.
func (s *ScenarioData) Set(date, sample int, key string, v float64) error {
	idx, err := s.index(date, sample, key)
	if err != nil {
		return err
	}
	s.data[idx] = v
	return nil
}

// Get reads one (date,sample,key) observable.
func (s *ScenarioData) Get(date, sample int, key string) (float64, error) {
	idx, err := s.index(date, sample, key)
	if err != nil {
		return 0, err
	}
	return s.data[idx], nil
}
