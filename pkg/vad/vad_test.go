package vad

import (
	"math"
	"testing"
)

func loudFrame(n int, amplitude float64) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(amplitude * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return samples
}

func quietFrame(n int) []int16 {
	return make([]int16, n)
}

func TestEnergyDetector(t *testing.T) {
	d := NewEnergy(500)

	if d.IsSpeech(quietFrame(480)) {
		t.Error("silence classified as speech")
	}
	if !d.IsSpeech(loudFrame(480, 5000)) {
		t.Error("loud audio not classified as speech")
	}

	// A sine wave at amplitude 600 has RMS ~424, below the threshold.
	if d.IsSpeech(loudFrame(480, 600)) {
		t.Error("quiet audio below threshold classified as speech")
	}
}

func TestEnergyDetectorEmptyFrame(t *testing.T) {
	d := NewEnergy(500)
	if d.IsSpeech(nil) {
		t.Error("empty frame classified as speech")
	}
}

func TestHysteresisRequiresConsecutiveSpeechFrames(t *testing.T) {
	d := NewHysteresis(Config{
		EnergyThreshold: 500,
		SpeechFrames:    3,
		SilenceFrames:   5,
	})

	loud := loudFrame(480, 5000)

	// First two loud frames should not yet trigger.
	if d.IsSpeech(loud) {
		t.Error("triggered after 1 frame, want 3")
	}
	if d.IsSpeech(loud) {
		t.Error("triggered after 2 frames, want 3")
	}
	if !d.IsSpeech(loud) {
		t.Error("did not trigger after 3 consecutive loud frames")
	}
}

func TestHysteresisHoldsThroughShortSilence(t *testing.T) {
	d := NewHysteresis(Config{
		EnergyThreshold: 500,
		SpeechFrames:    1,
		SilenceFrames:   5,
	})

	loud := loudFrame(480, 5000)
	quiet := quietFrame(480)

	if !d.IsSpeech(loud) {
		t.Fatal("did not enter speech state")
	}

	// A brief pause should not exit the speaking state.
	for i := 0; i < 4; i++ {
		if !d.IsSpeech(quiet) {
			t.Fatalf("exited speech after %d silence frames, want 5", i+1)
		}
	}
	if d.IsSpeech(quiet) {
		t.Error("still in speech state after 5 silence frames")
	}
}

func TestHysteresisInterruptedSilenceResetsCount(t *testing.T) {
	d := NewHysteresis(Config{
		EnergyThreshold: 500,
		SpeechFrames:    1,
		SilenceFrames:   3,
	})

	loud := loudFrame(480, 5000)
	quiet := quietFrame(480)

	d.IsSpeech(loud)
	d.IsSpeech(quiet)
	d.IsSpeech(quiet)
	d.IsSpeech(loud) // speech again, silence count resets

	if !d.IsSpeech(quiet) {
		t.Error("silence counter was not reset by intervening speech")
	}
}

func TestHysteresisReset(t *testing.T) {
	d := NewHysteresis(Config{
		EnergyThreshold: 500,
		SpeechFrames:    1,
		SilenceFrames:   5,
	})

	d.IsSpeech(loudFrame(480, 5000))
	d.Reset()

	if d.IsSpeech(quietFrame(480)) {
		t.Error("still in speech state after Reset")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  bool
	}{
		{"default mode", Config{}, "energy", false},
		{"energy", Config{Mode: "energy"}, "energy", false},
		{"hysteresis", Config{Mode: "hysteresis"}, "hysteresis", false},
		{"unknown", Config{Mode: "webrtc"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && d.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", d.Name(), tt.wantName)
			}
		})
	}
}
