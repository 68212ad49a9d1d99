package stream

import "math/big"

// bitset is a variable-width reader bitmask. The fast path is a single
// machine word; setting bit 64 or higher transparently widens the
// representation to a big integer.
type bitset struct {
	word uint64
	wide *big.Int
}

func (b *bitset) set(i int) {
	if b.wide == nil {
		if i < 64 {
			b.word |= 1 << uint(i)
			return
		}
		b.widen()
	}
	b.wide.SetBit(b.wide, i, 1)
}

func (b *bitset) clear(i int) {
	if b.wide == nil {
		if i < 64 {
			b.word &^= 1 << uint(i)
		}
		return
	}
	b.wide.SetBit(b.wide, i, 0)
}

func (b *bitset) test(i int) bool {
	if b.wide == nil {
		return i < 64 && b.word&(1<<uint(i)) != 0
	}
	return b.wide.Bit(i) == 1
}

func (b *bitset) widen() {
	b.wide = new(big.Int).SetUint64(b.word)
	b.word = 0
}

// lowestClear returns the lowest bit index not set.
func (b *bitset) lowestClear() int {
	for i := 0; ; i++ {
		if !b.test(i) {
			return i
		}
	}
}

func (b *bitset) empty() bool {
	if b.wide == nil {
		return b.word == 0
	}
	return b.wide.Sign() == 0
}

func (b *bitset) clone() bitset {
	if b.wide == nil {
		return bitset{word: b.word}
	}
	return bitset{wide: new(big.Int).Set(b.wide)}
}
