package crypto

import "github.com/kengeo/libra"

// Bitfield is an IDSet packed one bit per validator. Validator i occupies
// bit i-1, since IDs start at 1. It wastes space when IDs are sparse.
type Bitfield struct {
	data []byte
	len  int
}

func (bm *Bitfield) extend(nBytes int) {
	bm.data = append(bm.data, make([]byte, nBytes)...)
}

func (bm Bitfield) set(byteIdx, bitIdx int) {
	bm.data[byteIdx] |= 1 << bitIdx
}

func (bm Bitfield) isSet(byteIdx, bitIdx int) bool {
	return bm.data[byteIdx]&(1<<bitIdx) != 0
}

// index returns the byte index and the bit index to use based on the id.
func index(id libra.ID) (byteIdx, bitIdx int) {
	i := int(id) - 1
	byteIdx = i / 8
	bitIdx = i % 8
	return
}

func id(byteIdx, bitIdx int) libra.ID {
	return libra.ID(1 + (byteIdx * 8) + bitIdx)
}

// BitfieldFromBytes creates a bitfield from the given byte slice.
func BitfieldFromBytes(b []byte) Bitfield {
	bf := Bitfield{
		data: b,
		len:  0,
	}
	l := 0
	bf.ForEach(func(i libra.ID) {
		l++
	})
	bf.len = l
	return bf
}

// Bytes returns the raw byte slice containing the data of this bitfield.
func (bm Bitfield) Bytes() []byte {
	return bm.data
}

// Add adds an ID to the set.
func (bm *Bitfield) Add(id libra.ID) {
	byteIdx, bitIdx := index(id)
	if len(bm.data) <= byteIdx {
		bm.extend(byteIdx + 1 - len(bm.data))
	}
	if !bm.isSet(byteIdx, bitIdx) {
		bm.len++
	}
	bm.set(byteIdx, bitIdx)
}

// Contains returns true if the set contains the ID.
func (bm Bitfield) Contains(id libra.ID) bool {
	byteIdx, bitIdx := index(id)
	if len(bm.data) <= byteIdx {
		return false
	}
	return bm.isSet(byteIdx, bitIdx)
}

// ForEach calls f for each ID in the set.
func (bm Bitfield) ForEach(f func(libra.ID)) {
	bm.RangeWhile(func(i libra.ID) bool {
		f(i)
		return true
	})
}

// RangeWhile calls f for each ID in the set until f returns false.
func (bm Bitfield) RangeWhile(f func(libra.ID) bool) {
	for byteIdx := range bm.data {
		for bitIdx := 0; bitIdx < 8; bitIdx++ {
			if bm.isSet(byteIdx, bitIdx) {
				if !f(id(byteIdx, bitIdx)) {
					return
				}
			}
		}
	}
}

// Len returns the number of entries in the set.
func (bm Bitfield) Len() int {
	return bm.len
}

var _ libra.IDSet = (*Bitfield)(nil)
