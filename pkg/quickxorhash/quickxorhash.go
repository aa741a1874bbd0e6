// Package quickxorhash implements QuickXorHash, the content digest SharePoint
// and OneDrive report in the file.hashes.quickXorHash facet.
//
// Each input byte is XORed into a 160-bit circular register at a position
// that advances 11 bits per byte. The final digest mixes in the total length.
// See https://learn.microsoft.com/en-us/onedrive/developer/code-snippets/quickxorhash
package quickxorhash

import (
	"encoding/base64"
	"encoding/binary"
	"hash"
)

const (
	// Size is the length, in bytes, of a QuickXorHash digest.
	Size = 20

	// BlockSize is the preferred input block size for the hash, in bytes.
	BlockSize = 64

	shiftPerByte = 11
	registerBits = 160
	lastCell     = 2
	lastCellBits = registerBits - lastCell*64
)

// digest holds the 160-bit register as two full 64-bit cells and one
// 32-bit cell, plus the write position and byte count.
type digest struct {
	cells  [3]uint64
	pos    int
	length uint64
}

// New returns a new hash.Hash computing the QuickXorHash checksum.
func New() hash.Hash {
	return &digest{}
}

// Sum returns the digest of data.
func Sum(data []byte) [Size]byte {
	var d digest
	d.Write(data) //nolint:errcheck // digest.Write never fails

	var out [Size]byte
	copy(out[:], d.Sum(nil))

	return out
}

// Base64 returns the digest of data in the base64 form the Graph API reports.
func Base64(data []byte) string {
	sum := Sum(data)

	return base64.StdEncoding.EncodeToString(sum[:])
}

func cellWidth(idx int) int {
	if idx == lastCell {
		return lastCellBits
	}

	return 64
}

// Write absorbs more data into the running hash. It never fails.
func (d *digest) Write(p []byte) (int, error) {
	for _, b := range p {
		idx := d.pos / 64
		off := d.pos % 64
		width := cellWidth(idx)

		d.cells[idx] ^= uint64(b) << off

		// A byte straddling a cell boundary spills its high bits into the
		// next cell, wrapping from the last cell back to the first.
		if off > width-8 {
			next := (idx + 1) % (lastCell + 1)
			d.cells[next] ^= uint64(b) >> (width - off)
		}

		d.pos = (d.pos + shiftPerByte) % registerBits
	}

	d.length += uint64(len(p))

	return len(p), nil
}

// Sum appends the current hash to b and returns the resulting slice.
// It does not change the underlying hash state.
func (d *digest) Sum(b []byte) []byte {
	var out [Size]byte
	binary.LittleEndian.PutUint64(out[0:8], d.cells[0])
	binary.LittleEndian.PutUint64(out[8:16], d.cells[1])
	binary.LittleEndian.PutUint32(out[16:20], uint32(d.cells[2])) //nolint:gosec // only the low 32 bits are part of the register

	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], d.length)

	for i := range n {
		out[Size-len(n)+i] ^= n[i]
	}

	return append(b, out[:]...)
}

// Reset resets the hash to its initial state.
func (d *digest) Reset() {
	*d = digest{}
}

// Size returns the number of bytes Sum will return.
func (d *digest) Size() int {
	return Size
}

// BlockSize returns the hash's underlying block size.
func (d *digest) BlockSize() int {
	return BlockSize
}
