package xex

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	kATRHeaderSize  = 16
	kBootSectorSize = 128
	kBootSectors    = 3
)

// Disk is a mounted ATR image. Sector numbers are 1 based and the first
// three boot sectors are always 128 bytes regardless of the image's
// data sector size.
type Disk struct {
	r           io.ReaderAt
	w           io.WriterAt
	closer      io.Closer
	sectorSize  int
	sectorCount int
}

// MountATR opens a disk image file. A file that can't open read/write
// still mounts read only, sector writes just fail.
func MountATR(path string) (*Disk, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		rf, rerr := os.Open(path)
		if rerr != nil {
			return nil, errors.Wrapf(rerr, "xex: can't open ATR %s", path)
		}
		d, merr := mount(rf, nil, rf)
		if merr != nil {
			rf.Close()
			return nil, merr
		}
		return d, nil
	}
	d, merr := mount(f, f, f)
	if merr != nil {
		f.Close()
		return nil, merr
	}
	return d, nil
}

// MountATRBytes mounts an in memory image. Sector writes land in the
// caller's slice.
func MountATRBytes(image []uint8) (*Disk, error) {
	b := byteImage(image)
	return mount(b, b, nil)
}

func mount(r io.ReaderAt, w io.WriterAt, c io.Closer) (*Disk, error) {
	var header [kATRHeaderSize]uint8
	if _, err := r.ReadAt(header[:], 0); err != nil {
		return nil, errors.Wrapf(err, "xex: can't read ATR header")
	}
	if header[0] != 0x96 || header[1] != 0x02 {
		return nil, errors.New("xex: invalid ATR signature")
	}

	// Bytes 2-3 and 6 hold the image size in 16 byte paragraphs, bytes
	// 4-5 the data sector size.
	paragraphs := int(header[2]) | int(header[3])<<8 | int(header[6])<<16
	imageSize := paragraphs * 16
	sectorSize := int(header[4]) | int(header[5])<<8
	if sectorSize == 0 {
		return nil, errors.New("xex: ATR sector size is zero")
	}

	bootSize := kBootSectors * kBootSectorSize
	sectorCount := imageSize / kBootSectorSize
	if imageSize > bootSize {
		sectorCount = kBootSectors + (imageSize-bootSize)/sectorSize
	}
	return &Disk{
		r:           r,
		w:           w,
		closer:      c,
		sectorSize:  sectorSize,
		sectorCount: sectorCount,
	}, nil
}

// SectorSize returns the data sector size. Boot sectors are always 128
// bytes.
func (d *Disk) SectorSize() int {
	return d.sectorSize
}

// Sectors returns the sector count.
func (d *Disk) Sectors() int {
	return d.sectorCount
}

// Close releases the backing file if one exists.
func (d *Disk) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

func (d *Disk) sectorGeometry(sector int) (int64, int) {
	off := int64(kATRHeaderSize)
	size := d.sectorSize
	if sector <= kBootSectors {
		off += int64(sector-1) * kBootSectorSize
		size = kBootSectorSize
	} else {
		off += kBootSectors * kBootSectorSize
		off += int64(sector-kBootSectors-1) * int64(d.sectorSize)
	}
	return off, size
}

// ReadSector fills buf with the numbered sector and returns the
// sector's size. Anything past the end of a short image pads with
// zeros.
func (d *Disk) ReadSector(sector int, buf []uint8) (int, error) {
	if sector < 1 || sector > d.sectorCount {
		return 0, errors.Errorf("xex: sector %d out of range 1-%d", sector, d.sectorCount)
	}
	off, size := d.sectorGeometry(sector)
	if len(buf) < size {
		return 0, errors.Errorf("xex: buffer of %d bytes too small for %d byte sector", len(buf), size)
	}
	n, err := d.r.ReadAt(buf[:size], off)
	if err != nil && err != io.EOF {
		return 0, errors.Wrapf(err, "xex: can't read sector %d", sector)
	}
	for i := n; i < size; i++ {
		buf[i] = 0x00
	}
	return size, nil
}

// WriteSector stores buf into the numbered sector.
func (d *Disk) WriteSector(sector int, buf []uint8) error {
	if d.w == nil {
		return errors.New("xex: disk is read only")
	}
	if sector < 1 || sector > d.sectorCount {
		return errors.Errorf("xex: sector %d out of range 1-%d", sector, d.sectorCount)
	}
	off, size := d.sectorGeometry(sector)
	if len(buf) < size {
		return errors.Errorf("xex: buffer of %d bytes too small for %d byte sector", len(buf), size)
	}
	if _, err := d.w.WriteAt(buf[:size], off); err != nil {
		return errors.Wrapf(err, "xex: can't write sector %d", sector)
	}
	return nil
}

// byteImage adapts an in memory image to the file interfaces sector IO
// runs on.
type byteImage []uint8

func (b byteImage) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b byteImage) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, io.ErrShortWrite
	}
	n := copy(b[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}
