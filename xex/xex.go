// Package xex loads Atari executables into emulator RAM and mounts ATR
// disk images for sector level access. XEX is the DOS 2.x binary load
// format: an FF FF signature then repeated [start][end] little endian
// word pairs each followed by end-start+1 payload bytes. Segments
// overlaying the OS vectors at RUNAD/INITAD declare the entry points.
package xex

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Convention for constants:
//
// All caps - uint8/uint16 register locations/values/masks.
// Mixed case - values of other types.

// OS addresses binary loads report through.
const (
	RUNAD  = uint16(0x02E0)
	INITAD = uint16(0x02E2)
)

const (
	kRamSize = 65536

	// Raw binaries land here unless the caller picks an address.
	kDefaultBinaryLoad = uint16(0x2000)
)

// FileType classifies a file by extension.
type FileType int

const (
	FILE_TYPE_UNKNOWN FileType = iota
	FILE_TYPE_XEX
	FILE_TYPE_BINARY
	FILE_TYPE_ATR
	FILE_TYPE_CASSETTE
)

// Segment records one loaded address range, inclusive on both ends.
type Segment struct {
	Start uint16
	End   uint16
}

// LoadResult reports where an executable landed and which entry points
// it declared.
type LoadResult struct {
	// RunAddress comes from a segment overlaying RUNAD, or is the load
	// address for raw binaries. Zero means the file never set one.
	RunAddress uint16
	// InitAddress comes from a segment overlaying INITAD. The loader
	// clears INITAD in RAM after capturing it so each segment can
	// declare its own init routine.
	InitAddress uint16
	Segments    []Segment
}

// DetectType classifies by filename extension, case insensitive.
func DetectType(name string) FileType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xex", ".com":
		return FILE_TYPE_XEX
	case ".bin":
		return FILE_TYPE_BINARY
	case ".atr":
		return FILE_TYPE_ATR
	case ".cas":
		return FILE_TYPE_CASSETTE
	}
	return FILE_TYPE_UNKNOWN
}

// Load dispatches on the file extension. Raw binaries land at the
// default 0x2000 load address.
func Load(ram []uint8, name string, data []uint8) (*LoadResult, error) {
	switch DetectType(name) {
	case FILE_TYPE_XEX:
		return LoadXEX(ram, data)
	case FILE_TYPE_BINARY:
		return LoadBinary(ram, data, kDefaultBinaryLoad)
	default:
		return nil, errors.Errorf("xex: unsupported executable type for %q", name)
	}
}

// LoadXEX copies a DOS 2.x binary load image into ram. The RUNAD/INITAD
// vectors zero before parsing so stale values never survive a failed
// load.
func LoadXEX(ram []uint8, data []uint8) (*LoadResult, error) {
	if len(ram) != kRamSize {
		return nil, errors.Errorf("xex: ram must be %d bytes, got %d", kRamSize, len(ram))
	}

	ram[RUNAD] = 0x00
	ram[RUNAD+1] = 0x00
	ram[INITAD] = 0x00
	ram[INITAD+1] = 0x00

	if len(data) < 2 {
		return nil, errors.New("xex: truncated header")
	}
	if data[0] != 0xFF || data[1] != 0xFF {
		return nil, errors.New("xex: missing FF FF signature")
	}

	res := &LoadResult{}
	off := 2
	for off+2 <= len(data) {
		start := uint16(data[off]) | uint16(data[off+1])<<8
		off += 2
		// Tolerate repeated FF FF markers between segments.
		if start == 0xFFFF {
			if off+2 > len(data) {
				break
			}
			start = uint16(data[off]) | uint16(data[off+1])<<8
			off += 2
		}
		if off+2 > len(data) {
			return nil, errors.New("xex: truncated segment header")
		}
		end := uint16(data[off]) | uint16(data[off+1])<<8
		off += 2
		if end < start {
			return nil, errors.Errorf("xex: segment end %.4X before start %.4X", end, start)
		}

		size := int(end) - int(start) + 1
		if off+size > len(data) {
			return nil, errors.Errorf("xex: truncated segment %.4X-%.4X", start, end)
		}
		copy(ram[int(start):int(start)+size], data[off:off+size])
		off += size
		res.Segments = append(res.Segments, Segment{Start: start, End: end})

		// A segment overlaying INITAD declares an init routine to call
		// after that segment loads. Capture and clear so the next
		// segment can declare its own.
		if start <= INITAD && end >= INITAD+1 {
			if init := uint16(ram[INITAD]) | uint16(ram[INITAD+1])<<8; init != 0x0000 {
				res.InitAddress = init
				ram[INITAD] = 0x00
				ram[INITAD+1] = 0x00
			}
		}
		if start <= RUNAD && end >= RUNAD+1 {
			if run := uint16(ram[RUNAD]) | uint16(ram[RUNAD+1])<<8; run != 0x0000 {
				res.RunAddress = run
			}
		}
	}
	if len(res.Segments) == 0 {
		return nil, errors.New("xex: no segments")
	}
	return res, nil
}

// LoadBinary copies a raw image to addr and reports addr as the run
// address.
func LoadBinary(ram []uint8, data []uint8, addr uint16) (*LoadResult, error) {
	if len(ram) != kRamSize {
		return nil, errors.Errorf("xex: ram must be %d bytes, got %d", kRamSize, len(ram))
	}
	if len(data) == 0 || len(data) > 0xFFFF {
		return nil, errors.Errorf("xex: binary size %d out of range", len(data))
	}
	if int(addr)+len(data) > kRamSize {
		return nil, errors.Errorf("xex: binary of %d bytes doesn't fit at %.4X", len(data), addr)
	}
	copy(ram[addr:], data)
	return &LoadResult{
		RunAddress: addr,
		Segments:   []Segment{{Start: addr, End: addr + uint16(len(data)) - 1}},
	}, nil
}
