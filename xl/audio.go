package main

import (
	"os"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// audioRing sits between the emulation loop pushing whole frames and the
// oto player pulling at its own pace. Overflow drops samples and
// underflow reads silence so neither side ever blocks the other.
type audioRing struct {
	mu   sync.Mutex
	buf  []int16
	r, w int
	n    int
	vol  float64
}

func newAudioRing(capacity int, vol float64) *audioRing {
	if vol < 0 {
		vol = 0
	}
	if vol > 1 {
		vol = 1
	}
	return &audioRing{buf: make([]int16, capacity), vol: vol}
}

func (a *audioRing) push(samples []int16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		if a.n == len(a.buf) {
			return
		}
		a.buf[a.w] = int16(float64(s) * a.vol)
		a.w = (a.w + 1) % len(a.buf)
		a.n++
	}
}

// Read feeds the player with signed 16 bit little endian mono.
func (a *audioRing) Read(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(p) &^ 1
	for i := 0; i < n; i += 2 {
		var s int16
		if a.n > 0 {
			s = a.buf[a.r]
			a.r = (a.r + 1) % len(a.buf)
			a.n--
		}
		p[i] = uint8(s)
		p[i+1] = uint8(s >> 8)
	}
	return n, nil
}

// openAudio starts an oto player pulling from a fresh half second ring.
func openAudio(rate int, vol float64) (*audioRing, *oto.Player, error) {
	ring := newAudioRing(rate/2, vol)
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, nil, err
	}
	<-ready
	player := ctx.NewPlayer(ring)
	player.Play()
	return ring, player, nil
}

// wavWriter records the AudioDone stream to a RIFF file. Volume never
// applies here, the recording keeps the raw POKEY output.
type wavWriter struct {
	f   *os.File
	enc *wav.Encoder
	buf audio.IntBuffer
}

func newWavWriter(path string, rate int) (*wavWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &wavWriter{
		f:   f,
		enc: wav.NewEncoder(f, rate, 16, 1, 1),
		buf: audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
			SourceBitDepth: 16,
		},
	}, nil
}

func (w *wavWriter) write(samples []int16) error {
	w.buf.Data = w.buf.Data[:0]
	for _, s := range samples {
		w.buf.Data = append(w.buf.Data, int(s))
	}
	return w.enc.Write(&w.buf)
}

// close finalizes the RIFF headers and closes the file.
func (w *wavWriter) close() error {
	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
