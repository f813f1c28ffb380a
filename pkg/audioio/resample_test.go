package audioio

import (
	"math"
	"testing"
)

func TestResampleSameRate(t *testing.T) {
	samples := []int16{1, 2, 3, 4, 5}
	result := Resample(samples, 16000, 16000)

	if len(result) != len(samples) {
		t.Errorf("expected %d samples, got %d", len(samples), len(result))
	}
}

func TestResampleDownsample(t *testing.T) {
	// 48kHz -> 16kHz should produce 1/3 the samples
	samples := make([]int16, 480)
	for i := range samples {
		samples[i] = int16(i)
	}

	result := Resample(samples, 48000, 16000)

	expected := 160
	if len(result) != expected {
		t.Errorf("expected %d samples, got %d", expected, len(result))
	}
}

func TestResampleUpsample(t *testing.T) {
	samples := make([]int16, 160)
	for i := range samples {
		samples[i] = int16(i * 100)
	}

	result := Resample(samples, 16000, 48000)

	expected := 480
	if len(result) != expected {
		t.Errorf("expected %d samples, got %d", expected, len(result))
	}
}

func TestResampleEmpty(t *testing.T) {
	result := Resample([]int16{}, 48000, 16000)
	if len(result) != 0 {
		t.Errorf("expected empty result, got %d samples", len(result))
	}
}

func TestResamplePreservesSignal(t *testing.T) {
	// A constant signal should stay constant through resampling.
	samples := make([]int16, 1000)
	for i := range samples {
		samples[i] = 1000
	}

	result := Resample(samples, 44100, 16000)
	for i, s := range result {
		if s != 1000 {
			t.Errorf("sample %d: expected 1000, got %d", i, s)
			break
		}
	}
}

func TestBytesToSamplesRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 12345}
	data := SamplesToBytes(samples)

	if len(data) != len(samples)*2 {
		t.Fatalf("expected %d bytes, got %d", len(samples)*2, len(data))
	}

	back := BytesToSamples(data)
	for i := range samples {
		if back[i] != samples[i] {
			t.Errorf("sample %d: expected %d, got %d", i, samples[i], back[i])
		}
	}
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
		want    float64
	}{
		{"empty", nil, 0},
		{"silence", make([]int16, 100), 0},
		{"constant", []int16{1000, 1000, 1000, 1000}, 1000},
		{"alternating", []int16{500, -500, 500, -500}, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMS(tt.samples)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("RMS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRMSSineWave(t *testing.T) {
	// RMS of a full-scale sine wave is amplitude / sqrt(2).
	samples := make([]int16, 16000)
	for i := range samples {
		samples[i] = int16(10000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}

	got := RMS(samples)
	want := 10000 / math.Sqrt2
	if math.Abs(got-want) > 100 {
		t.Errorf("RMS() = %v, want ~%v", got, want)
	}
}

func TestTone(t *testing.T) {
	samples := Tone(880, 0.1, 16000)

	if len(samples) != 1600 {
		t.Fatalf("expected 1600 samples, got %d", len(samples))
	}

	// The envelope should start and end near zero.
	if samples[0] != 0 {
		t.Errorf("expected tone to start at 0, got %d", samples[0])
	}
	if rms := RMS(samples); rms < 1000 {
		t.Errorf("tone is too quiet: RMS %v", rms)
	}
}

func TestToneZeroDuration(t *testing.T) {
	if samples := Tone(880, 0, 16000); samples != nil {
		t.Errorf("expected nil, got %d samples", len(samples))
	}
}
