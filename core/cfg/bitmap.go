package cfg

// bitmap is a bit map which maps a block id to a bit
type bitmap []byte

func (bits *bitmap) ensure(pos uint64) {
	need := int(pos/8) + 1
	if need <= len(*bits) {
		return
	}
	*bits = append(*bits, make([]byte, need-len(*bits))...)
}

func (bits *bitmap) set1(pos uint64) {
	bits.ensure(pos)
	(*bits)[pos/8] |= 1 << (pos % 8)
}

func (bits *bitmap) isBitSet(pos uint64) bool {
	idx := int(pos / 8)
	if idx >= len(*bits) {
		return false
	}
	return ((*bits)[idx]>>(pos%8))&1 == 1
}

// testAndSet sets pos and reports whether it was already set.
func (bits *bitmap) testAndSet(pos uint64) bool {
	if bits.isBitSet(pos) {
		return true
	}
	bits.set1(pos)
	return false
}
