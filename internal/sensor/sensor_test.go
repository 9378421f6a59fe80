package sensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScale(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
		full float32
		want int
	}{
		{"zero humidity", 0, HumidityMax, 0},
		{"full humidity", MaxSample, HumidityMax, 100},
		{"full temperature", MaxSample, TemperatureMax, 80},
		{"mid humidity", 2048, HumidityMax, 50},
		{"just below alert", 1228, HumidityMax, 29},
		{"out of range clamps", 5000, HumidityMax, 100},
		{"out of range temperature", 65535, TemperatureMax, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scale(tt.raw, tt.full)
			assert.Equal(t, tt.want, int(got))
			assert.GreaterOrEqual(t, got, float32(0))
			assert.LessOrEqual(t, got, tt.full)
		})
	}
}

func TestReaderReadsBothChannels(t *testing.T) {
	f := NewFakeSampler(Pair{Humidity: MaxSample, Temperature: 0}, Pair{Humidity: 0, Temperature: MaxSample})
	r := NewReader(f)

	h, err := r.ReadHumidity()
	require.NoError(t, err)
	assert.Equal(t, float32(100), h)

	temp, err := r.ReadTemperature()
	require.NoError(t, err)
	assert.Equal(t, float32(0), temp)

	rawH, rawT := r.Raw()
	assert.Equal(t, uint16(MaxSample), rawH)
	assert.Equal(t, uint16(0), rawT)

	h, err = r.ReadHumidity()
	require.NoError(t, err)
	assert.Equal(t, float32(0), h)

	temp, err = r.ReadTemperature()
	require.NoError(t, err)
	assert.Equal(t, float32(80), temp)
}

func TestReaderWrapsSamplerErrors(t *testing.T) {
	f := NewFakeSampler(Pair{Humidity: 100, Temperature: 100})
	f.SampleError = errors.New("i2c timeout")
	r := NewReader(f)

	_, err := r.ReadHumidity()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "i2c timeout")

	_, err = r.ReadTemperature()
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReaderNilSampler(t *testing.T) {
	r := NewReader(nil)
	_, err := r.ReadHumidity()
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFakeSamplerRepeatsLast(t *testing.T) {
	f := NewFakeSampler(Pair{Humidity: 1, Temperature: 2}, Pair{Humidity: 3, Temperature: 4})

	for _, want := range []uint16{1, 3, 3} {
		got, err := f.Sample(ChannelHumidity)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	f.Reset()
	got, err := f.Sample(ChannelHumidity)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), got)
}

func TestFakeSamplerNoSamples(t *testing.T) {
	f := NewFakeSampler()
	_, err := f.Sample(ChannelTemperature)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFakeSamplerClose(t *testing.T) {
	f := NewFakeSampler()
	assert.False(t, f.Closed)
	require.NoError(t, f.Close())
	assert.True(t, f.Closed)
}

func TestChannelString(t *testing.T) {
	assert.Equal(t, "humidity", ChannelHumidity.String())
	assert.Equal(t, "temperature", ChannelTemperature.String())
	assert.Equal(t, "channel(7)", Channel(7).String())
}
