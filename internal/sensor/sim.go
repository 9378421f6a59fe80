package sensor

import (
	"math/rand/v2"
	"sync"
)

// Simulation tunables, in scaled units per humidity sample.
const (
	simDecayPerTick   = 0.35 // soil dries this much per tick with the pump off
	simGainPerLevel   = 0.08 // each duty step adds this much per tick
	simTempDrift      = 0.6  // max temperature change per tick
	simTempCenter     = 24.0
	simTempSpread     = 8.0
	simInitialHumSeed = 55.0
)

// SimSampler models soil and air so the controller can run without a board.
// Soil moisture decays every tick and rises while the pump runs; air temperature
// wanders around a centre value. It also accepts pump writes, closing the loop.
type SimSampler struct {
	mu       sync.Mutex
	rng      *rand.Rand
	humidity float64 // percent
	temp     float64 // degrees C
	pump     uint8
}

// NewSimSampler creates a simulated sampler. The same seed replays the same run.
func NewSimSampler(seed uint64) *SimSampler {
	return &SimSampler{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		humidity: simInitialHumSeed,
		temp:     simTempCenter,
	}
}

// Sample advances the model on each humidity sample and returns the raw value.
func (s *SimSampler) Sample(ch Channel) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ch {
	case ChannelHumidity:
		s.step()
		return toRaw(s.humidity, float64(HumidityMax)), nil
	case ChannelTemperature:
		return toRaw(s.temp, float64(TemperatureMax)), nil
	}
	return 0, ErrUnavailable
}

// SetIntensity records the pump duty level driving the soil model.
func (s *SimSampler) SetIntensity(level uint8) error {
	s.mu.Lock()
	s.pump = level
	s.mu.Unlock()
	return nil
}

// Close is a no-op.
func (s *SimSampler) Close() error {
	return nil
}

// caller holds lock
func (s *SimSampler) step() {
	s.humidity += float64(s.pump)*simGainPerLevel - simDecayPerTick + (s.rng.Float64()-0.5)*0.2
	s.humidity = clampf(s.humidity, 0, float64(HumidityMax))

	s.temp += (s.rng.Float64()*2 - 1) * simTempDrift
	// Pull back towards the centre so the walk stays in a plausible band.
	s.temp += (simTempCenter - s.temp) * 0.02
	s.temp = clampf(s.temp, simTempCenter-simTempSpread, simTempCenter+simTempSpread)
}

func toRaw(v, full float64) uint16 {
	raw := v / full * MaxSample
	return uint16(clampf(raw, 0, MaxSample) + 0.5)
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
