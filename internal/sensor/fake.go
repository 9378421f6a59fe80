package sensor

import "fmt"

// FakeSampler is a test double that returns scripted raw samples.
type FakeSampler struct {
	// Samples contains scripted raw values to return.
	// Each call to Sample() for a channel consumes that channel's next value.
	Samples map[Channel][]uint16

	// index tracks current position per channel
	index map[Channel]int

	// Closed tracks if Close was called
	Closed bool

	// SampleError, if set, will be returned by Sample()
	SampleError error
}

// NewFakeSampler creates a FakeSampler with paired humidity/temperature samples.
func NewFakeSampler(pairs ...Pair) *FakeSampler {
	f := &FakeSampler{
		Samples: map[Channel][]uint16{},
		index:   map[Channel]int{},
	}
	for _, p := range pairs {
		f.Samples[ChannelHumidity] = append(f.Samples[ChannelHumidity], p.Humidity)
		f.Samples[ChannelTemperature] = append(f.Samples[ChannelTemperature], p.Temperature)
	}
	return f
}

// Pair is one tick's worth of raw samples.
type Pair struct {
	Humidity    uint16
	Temperature uint16
}

// Sample returns the next scripted value for ch.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeSampler) Sample(ch Channel) (uint16, error) {
	if f.SampleError != nil {
		return 0, f.SampleError
	}

	values := f.Samples[ch]
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: no samples configured for %s", ErrUnavailable, ch)
	}

	if f.index == nil {
		f.index = map[Channel]int{}
	}
	i := f.index[ch]
	if i < len(values)-1 {
		f.index[ch] = i + 1
	}
	return values[i], nil
}

// Close marks the sampler as closed.
func (f *FakeSampler) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the sampler to the beginning of samples.
func (f *FakeSampler) Reset() {
	f.index = map[Channel]int{}
	f.Closed = false
}
