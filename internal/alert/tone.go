package alert

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Tone parameters for the reminder beep.
const (
	SampleRate = 44100
	Frequency  = 880.0
	Bursts     = 4

	BurstSpacing  = 200 * time.Millisecond
	BurstLength   = 200 * time.Millisecond
	DecayDuration = 160 * time.Millisecond

	StartGain = 0.28
	EndGain   = 0.01
)

// Samples synthesizes the beep as 16-bit mono PCM at SampleRate.
func Samples() []int16 {
	spacing := int(BurstSpacing.Seconds() * SampleRate)
	length := int(BurstLength.Seconds() * SampleRate)
	decay := DecayDuration.Seconds()

	total := spacing*(Bursts-1) + length
	out := make([]int16, total)

	for b := 0; b < Bursts; b++ {
		start := b * spacing
		for i := 0; i < length; i++ {
			t := float64(i) / SampleRate
			v := gainAt(t, decay) * math.Sin(2*math.Pi*Frequency*t)
			idx := start + i
			mixed := float64(out[idx]) + v*math.MaxInt16
			out[idx] = int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, mixed)))
		}
	}
	return out
}

// gainAt is an exponential ramp from StartGain to EndGain over decay
// seconds, then held at EndGain.
func gainAt(t, decay float64) float64 {
	if t >= decay {
		return EndGain
	}
	return StartGain * math.Pow(EndGain/StartGain, t/decay)
}

// EncodeWAV writes samples as a 16-bit mono PCM RIFF/WAVE stream.
func EncodeWAV(w io.Writer, samples []int16, sampleRate int) error {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	dataSize := uint32(len(samples) * bitsPerSample / 8)
	blockAlign := uint16(channels * bitsPerSample / 8)

	header := struct {
		ChunkID       [4]byte
		ChunkSize     uint32
		Format        [4]byte
		Subchunk1ID   [4]byte
		Subchunk1Size uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Subchunk2ID   [4]byte
		Subchunk2Size uint32
	}{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write wav header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	return nil
}

// Tone plays the reminder beep through an external player command, or rings
// the terminal bell when no player is configured.
type Tone struct {
	player []string
	bell   io.Writer
}

// NewTone creates a Tone. player is a command line such as "aplay -q"; the
// WAV file path is appended as the last argument.
func NewTone(player string, bell io.Writer) *Tone {
	if bell == nil {
		bell = os.Stdout
	}
	return &Tone{
		player: strings.Fields(player),
		bell:   bell,
	}
}

// Play implements reminder.Sounder.
func (t *Tone) Play(ctx context.Context) error {
	if len(t.player) == 0 {
		_, err := io.WriteString(t.bell, strings.Repeat("\a", Bursts))
		return err
	}

	f, err := os.CreateTemp("", "mediconnect-beep-*.wav")
	if err != nil {
		return fmt.Errorf("failed to create tone file: %w", err)
	}
	defer os.Remove(f.Name())

	if err := EncodeWAV(f, Samples(), SampleRate); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write tone file: %w", err)
	}

	args := append(append([]string{}, t.player[1:]...), f.Name())
	cmd := exec.CommandContext(ctx, t.player[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", t.player[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
