package pokey

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var testWavDir = flag.String("test_wav_dir", "", "If set, tone dump tests write WAV files to this directory")

func Setup(t *testing.T) *Chip {
	t.Helper()
	p, err := Init(&ChipDef{})
	if err != nil {
		t.Fatalf("can't Init: %v", err)
	}
	return p
}

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		rate    int
		wantErr bool
		wantSPF int
	}{
		{"Default", 0, false, 882},
		{"Custom", 8820, false, 176},
		{"Exact312", 15600, false, 312},
		{"Negative", -44100, true, 0},
		{"TooLow", 20, true, 0},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			p, err := Init(&ChipDef{SampleRate: test.rate})
			if got, want := err != nil, test.wantErr; got != want {
				t.Fatalf("Init error state wrong: got %t want %t (err: %v)", got, want, err)
			}
			if err != nil {
				return
			}
			if got, want := p.samplesPerFrame, test.wantSPF; got != want {
				t.Errorf("samplesPerFrame: got %d, want %d", got, want)
			}
		})
	}

	p := Setup(t)
	if got, want := p.Read(IRQST), uint8(0xFF); got != want {
		t.Errorf("IRQST: got %.2X, want %.2X", got, want)
	}
	if got, want := p.Read(SKSTAT), uint8(0xFF); got != want {
		t.Errorf("SKSTAT: got %.2X, want %.2X", got, want)
	}
	if got, want := p.Read(KBCODE), uint8(0xFF); got != want {
		t.Errorf("KBCODE: got %.2X, want %.2X", got, want)
	}
	for i := uint16(0); i < 8; i++ {
		if got, want := p.Read(POT0+i), kPOT_CENTER; got != want {
			t.Errorf("POT%d: got %d, want %d", i, got, want)
		}
	}
	if got, want := p.Read(ALLPOT), uint8(0x00); got != want {
		t.Errorf("ALLPOT: got %.2X, want %.2X", got, want)
	}
	if p.Raised() {
		t.Error("IRQ raised at power on")
	}
}

func TestUnusedReads(t *testing.T) {
	p := Setup(t)
	for _, addr := range []uint16{0x0B, 0x0C} {
		if got, want := p.Read(addr), uint8(0xFF); got != want {
			t.Errorf("read %.2X: got %.2X, want %.2X", addr, got, want)
		}
	}
}

func TestPureTonePeriods(t *testing.T) {
	tests := []struct {
		name        string
		audf1       uint8
		audf2       uint8
		audctl      uint8
		wantPeriod1 uint32
		wantPeriod2 uint32
		measure     bool
	}{
		{"64kHzZero", 0x00, 0x00, 0x00, 28, 28, true},
		{"64kHz", 0x0A, 0x00, 0x00, 308, 28, true},
		{"15kHz", 0x0A, 0x00, 0x01, 1254, 114, false},
		{"Ch1Fast", 0x0A, 0x00, 0x40, 14, 28, true},
		{"Joined64kHz", 0x01, 0x44, 0x10, 9100, 0, false},
		{"JoinedFast", 0x01, 0x44, 0x50, 325, 0, false},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			p := Setup(t)
			p.Write(AUDF1, test.audf1)
			p.Write(AUDF2, test.audf2)
			// Pure tone, full volume.
			p.Write(AUDC1, 0xAF)
			p.Write(AUDCTL, test.audctl)

			if got, want := p.channels[0].period, test.wantPeriod1; got != want {
				t.Errorf("channel 1 period: got %d, want %d", got, want)
			}
			if got, want := p.channels[1].period, test.wantPeriod2; got != want {
				t.Errorf("channel 2 period: got %d, want %d", got, want)
			}
			if !test.measure {
				return
			}

			// The divider toggles the square wave every period+1 samples
			// so rising edges land 2*(period+1) apart.
			want := 2 * (int(test.wantPeriod1) + 1)
			n := want*3 + 2
			samples := make([]int16, n)
			for i := range samples {
				samples[i] = p.generateSample()
			}
			var edges []int
			for i := 1; i < n; i++ {
				if samples[i] != 0 && samples[i-1] == 0 {
					edges = append(edges, i)
				}
			}
			if len(edges) < 2 {
				t.Fatalf("no square wave found in %d samples", n)
			}
			for i := 1; i < len(edges); i++ {
				if got := edges[i] - edges[i-1]; got != want {
					t.Errorf("edge spacing: got %d, want %d", got, want)
				}
			}
		})
	}
}

func TestVolumeOnly(t *testing.T) {
	p := Setup(t)
	// Volume only bit with volume 15 is a flat DC level no matter the
	// frequency setup.
	p.Write(AUDF1, 0x07)
	p.Write(AUDC1, 0x1F)
	for i := 0; i < 100; i++ {
		if got, want := p.generateSample(), int16(15*kVolumeStep); got != want {
			t.Fatalf("sample %d: got %d, want %d", i, got, want)
		}
	}

	// Volume only with volume 0 contributes nothing.
	p.Write(AUDC1, 0x10)
	for i := 0; i < 100; i++ {
		if got, want := p.generateSample(), int16(0); got != want {
			t.Fatalf("sample %d: got %d, want %d", i, got, want)
		}
	}
}

func TestDistortionGating(t *testing.T) {
	// White noise mode gates the square wave with the wide poly. Forcing
	// the poly low bit to 0 silences the channel output entirely.
	p := Setup(t)
	p.Write(AUDF1, 0x00)
	p.Write(AUDC1, 0x8F)
	p.poly17 = 0x00
	// Stay under the poly advance cadence so the forced state holds.
	for i := 0; i < int(kPolyCadence)-1; i++ {
		if got := p.generateSample(); got != 0 {
			t.Fatalf("sample %d: got %d, want 0 with poly17 low", i, got)
		}
	}

	// All ones poly passes the wave through.
	p = Setup(t)
	p.Write(AUDF1, 0x00)
	p.Write(AUDC1, 0x8F)
	nonzero := false
	for i := 0; i < int(kPolyCadence)-1; i++ {
		if p.generateSample() != 0 {
			nonzero = true
		}
	}
	if !nonzero {
		t.Error("no output with poly17 high")
	}
}

func TestHighPass(t *testing.T) {
	// Run the same tone through a plain chip and a filtered chip. The
	// filter output must difference each raw sample against the filter's
	// previous output.
	raw := Setup(t)
	raw.Write(AUDF1, 0x02)
	raw.Write(AUDC1, 0xA8)

	filt := Setup(t)
	filt.Write(AUDF1, 0x02)
	filt.Write(AUDC1, 0xA8)
	filt.Write(AUDCTL, 0x04)

	var prev int16
	for i := 0; i < 500; i++ {
		r := raw.generateSample()
		f := filt.generateSample()
		if got, want := f, r-prev; got != want {
			t.Fatalf("sample %d: got %d, want %d (raw %d prev %d)", i, got, want, r, prev)
		}
		prev = f
	}
}

func TestTimerIRQs(t *testing.T) {
	tests := []struct {
		name    string
		audfReg uint16
		audcReg uint16
		irqen   uint8
		wantIRQ uint8
	}{
		{"Timer1", AUDF1, AUDC1, 0x01, 0xFE},
		{"Timer2", AUDF2, AUDC2, 0x02, 0xFD},
		{"Timer4", AUDF4, AUDC4, 0x04, 0xFB},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			p := Setup(t)
			p.Write(IRQEN, test.irqen)
			p.Write(test.audfReg, 0x00)
			// Audible pure tone so the divider actually runs.
			p.Write(test.audcReg, 0xA1)

			// First sample underflows the divider immediately.
			p.generateSample()
			if got, want := p.Read(IRQST), test.wantIRQ; got != want {
				t.Fatalf("IRQST after underflow: got %.2X, want %.2X", got, want)
			}
			if !p.Raised() {
				t.Error("IRQ line not raised")
			}

			// Disabling acknowledges: status returns high, line drops.
			p.Write(IRQEN, 0x00)
			if got, want := p.Read(IRQST), uint8(0xFF); got != want {
				t.Errorf("IRQST after ack: got %.2X, want %.2X", got, want)
			}
			if p.Raised() {
				t.Error("IRQ line still raised after ack")
			}
		})
	}

	// Channel 3 has no timer IRQ line.
	p := Setup(t)
	p.Write(IRQEN, 0xFF)
	p.Write(AUDF3, 0x00)
	p.Write(AUDC3, 0xA1)
	for i := 0; i < 100; i++ {
		p.generateSample()
	}
	if got, want := p.Read(IRQST), uint8(0xFF); got != want {
		t.Errorf("IRQST with only channel 3 running: got %.2X, want %.2X", got, want)
	}

	// A silent channel never ticks its divider so it never raises.
	p = Setup(t)
	p.Write(IRQEN, 0x01)
	p.Write(AUDF1, 0x00)
	p.Write(AUDC1, 0xA0)
	for i := 0; i < 100; i++ {
		p.generateSample()
	}
	if p.Raised() {
		t.Error("silent channel raised a timer IRQ")
	}
}

func TestSerialOutIRQ(t *testing.T) {
	p := Setup(t)
	// Disabled: latch only.
	p.Write(SEROUT, 0x55)
	if got, want := p.serout, uint8(0x55); got != want {
		t.Errorf("serout: got %.2X, want %.2X", got, want)
	}
	if got, want := p.Read(IRQST), uint8(0xFF); got != want {
		t.Errorf("IRQST with serial IRQ disabled: got %.2X, want %.2X", got, want)
	}

	p.Write(IRQEN, 0x08)
	p.Write(SEROUT, 0xAA)
	if got, want := p.Read(IRQST), uint8(0xF7); got != want {
		t.Errorf("IRQST after SEROUT: got %.2X, want %.2X", got, want)
	}
	if !p.Raised() {
		t.Error("IRQ line not raised for serial out")
	}
}

func TestKeyboard(t *testing.T) {
	p := Setup(t)

	// Press with the keyboard IRQ disabled: code and SKSTAT latch, no IRQ.
	p.SetKeyCode(0x21, true)
	if got, want := p.Read(KBCODE), uint8(0x21); got != want {
		t.Errorf("KBCODE: got %.2X, want %.2X", got, want)
	}
	if got, want := p.Read(SKSTAT), uint8(0xFB); got != want {
		t.Errorf("SKSTAT held: got %.2X, want %.2X", got, want)
	}
	if got, want := p.Read(IRQST), uint8(0xFF); got != want {
		t.Errorf("IRQST with key IRQ disabled: got %.2X, want %.2X", got, want)
	}

	// Release restores the held line but the code stays latched.
	p.SetKeyCode(0x21, false)
	if got, want := p.Read(SKSTAT), uint8(0xFF); got != want {
		t.Errorf("SKSTAT released: got %.2X, want %.2X", got, want)
	}
	if got, want := p.Read(KBCODE), uint8(0x21); got != want {
		t.Errorf("KBCODE after release: got %.2X, want %.2X", got, want)
	}

	// Enabled path raises the line.
	p.Write(IRQEN, 0x40)
	p.SetKeyCode(0x3F, true)
	if got, want := p.Read(IRQST), uint8(0xBF); got != want {
		t.Errorf("IRQST after key press: got %.2X, want %.2X", got, want)
	}
	if !p.Raised() {
		t.Error("IRQ line not raised for key press")
	}

	// SKREST clears the held line.
	p.Write(SKREST, 0x00)
	if got, want := p.Read(SKSTAT), uint8(0xFF); got != want {
		t.Errorf("SKSTAT after SKREST: got %.2X, want %.2X", got, want)
	}
}

func TestBreakKey(t *testing.T) {
	p := Setup(t)
	p.SetBreakKey(true)
	if got, want := p.Read(IRQST), uint8(0xFF); got != want {
		t.Errorf("IRQST with break disabled: got %.2X, want %.2X", got, want)
	}

	p.Write(IRQEN, 0x80)
	p.SetBreakKey(true)
	if got, want := p.Read(IRQST), uint8(0x7F); got != want {
		t.Errorf("IRQST after break: got %.2X, want %.2X", got, want)
	}
	if !p.Raised() {
		t.Error("IRQ line not raised for break")
	}
}

func TestRandom(t *testing.T) {
	p := Setup(t)
	// Each read advances the poly so the 17 bit stream walks a known
	// sequence from the all ones seed.
	for i, want := range []uint8{0x01, 0x02, 0x04} {
		if got := p.Read(RANDOM); got != want {
			t.Errorf("read %d: got %.2X, want %.2X", i, got, want)
		}
	}

	// 9 bit mode reads from the short poly.
	p = Setup(t)
	p.Write(AUDCTL, 0x80)
	if got, want := p.Read(RANDOM), uint8(0x01); got != want {
		t.Errorf("9 bit read: got %.2X, want %.2X", got, want)
	}
}

func TestPots(t *testing.T) {
	p := Setup(t)
	p.SetPaddle(3, 100)
	if got, want := p.Read(POT3), uint8(100); got != want {
		t.Errorf("POT3: got %d, want %d", got, want)
	}
	// Out of range is a nop.
	p.SetPaddle(8, 0)
	p.SetPaddle(-1, 0)

	// Scans complete instantly.
	p.Write(POTGO, 0x00)
	if got, want := p.Read(ALLPOT), uint8(0x00); got != want {
		t.Errorf("ALLPOT after POTGO: got %.2X, want %.2X", got, want)
	}
}

func TestFillBuffer(t *testing.T) {
	p := Setup(t)

	// Halfway through the frame half the buffer exists.
	p.FillBuffer(155)
	if got, want := p.sampleIdx, 441; got != want {
		t.Errorf("fill index at line 155: got %d, want %d", got, want)
	}
	// Refilling the same line adds nothing.
	p.FillBuffer(155)
	if got, want := p.sampleIdx, 441; got != want {
		t.Errorf("fill index after refill: got %d, want %d", got, want)
	}
	// The last line always tops off the whole frame.
	p.FillBuffer(311)
	if got, want := p.sampleIdx, 882; got != want {
		t.Errorf("fill index at line 311: got %d, want %d", got, want)
	}

	s := p.FrameSamples()
	if got, want := len(s), 882; got != want {
		t.Errorf("frame samples: got %d, want %d", got, want)
	}
	if got, want := p.sampleIdx, 0; got != want {
		t.Errorf("fill index after handoff: got %d, want %d", got, want)
	}

	// Every line in order fills monotonically without overflow.
	for line := 0; line < 312; line++ {
		p.FillBuffer(line)
		if p.sampleIdx > 882 {
			t.Fatalf("fill index overflow at line %d: %d", line, p.sampleIdx)
		}
	}
	if got, want := p.sampleIdx, 882; got != want {
		t.Errorf("fill index after full frame: got %d, want %d", got, want)
	}
}

func TestSKCTLReset(t *testing.T) {
	p := Setup(t)
	p.Write(AUDF1, 0x42)
	p.Write(AUDC1, 0xAF)
	p.Write(AUDCTL, 0x41)
	p.Write(IRQEN, 0xFF)
	p.SetKeyCode(0x15, true)
	p.SetPaddle(0, 10)
	p.FillBuffer(100)

	// Nonzero SKCTL writes just latch.
	p.Write(SKCTL, 0x03)
	if got, want := p.skctl, uint8(0x03); got != want {
		t.Errorf("skctl: got %.2X, want %.2X", got, want)
	}
	if got, want := p.channels[0].audf, uint8(0x42); got != want {
		t.Errorf("audf after nonzero SKCTL: got %.2X, want %.2X", got, want)
	}

	// Zero resets the whole chip.
	p.Write(SKCTL, 0x00)
	if got, want := p.Read(IRQST), uint8(0xFF); got != want {
		t.Errorf("IRQST after reset: got %.2X, want %.2X", got, want)
	}
	if got, want := p.Read(SKSTAT), uint8(0xFF); got != want {
		t.Errorf("SKSTAT after reset: got %.2X, want %.2X", got, want)
	}
	if got, want := p.Read(KBCODE), uint8(0xFF); got != want {
		t.Errorf("KBCODE after reset: got %.2X, want %.2X", got, want)
	}
	if got, want := p.Read(POT0), kPOT_CENTER; got != want {
		t.Errorf("POT0 after reset: got %d, want %d", got, want)
	}
	if got, want := p.channels[0].period, uint32(1); got != want {
		t.Errorf("period after reset: got %d, want %d", got, want)
	}
	if got, want := p.sampleIdx, 0; got != want {
		t.Errorf("fill index after reset: got %d, want %d", got, want)
	}
}

func TestSTIMER(t *testing.T) {
	p := Setup(t)
	p.Write(AUDF1, 0x05)
	p.Write(AUDC1, 0xA8)
	// Walk the divider off its reload point.
	for i := 0; i < 10; i++ {
		p.generateSample()
	}
	p.Write(STIMER, 0x00)
	if got, want := p.channels[0].divider, p.channels[0].period; got != want {
		t.Errorf("divider after STIMER: got %d, want %d", got, want)
	}
}

// TestChordDump plays a two tone chord for a second of frames and checks
// both channels land in the mix. With -test_wav_dir set the result is
// also written out as a WAV file for listening.
func TestChordDump(t *testing.T) {
	p := Setup(t)
	// Pure tones roughly a fifth apart, volumes low enough that the sum
	// stays inside int16.
	p.Write(AUDF1, 0x1C)
	p.Write(AUDC1, 0xA8)
	p.Write(AUDF2, 0x2A)
	p.Write(AUDC2, 0xA6)

	var samples []int
	for frame := 0; frame < 50; frame++ {
		for line := 0; line < 312; line++ {
			p.FillBuffer(line)
		}
		for _, s := range p.FrameSamples() {
			samples = append(samples, int(s))
		}
	}

	// Both channels high, one high and silence should all appear.
	levels := make(map[int]int)
	for _, s := range samples {
		levels[s]++
	}
	for _, want := range []int{0, 8 * 2048, 6 * 2048, 14 * 2048} {
		if levels[want] == 0 {
			t.Errorf("mix level %d missing from output", want)
		}
	}

	if *testWavDir == "" {
		return
	}
	f, err := os.Create(filepath.Join(*testWavDir, "chord.wav"))
	if err != nil {
		t.Fatalf("can't create wav: %v", err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, 44100, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 44100},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("can't encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("can't finalize wav: %v", err)
	}
}
