package vcsgraph

const wordBits = 64

// Flags is a fixed-size bit set used as a reusable traversal buffer.
// A Flags value is owned by one walk at a time; it is not safe for
// concurrent use.
type Flags struct {
	words []uint64
	size  int
}

// NewFlags creates a cleared buffer of n bits.
func NewFlags(n int) *Flags {
	return &Flags{
		words: make([]uint64, (n+wordBits-1)/wordBits),
		size:  n,
	}
}

// Len returns the number of bits.
func (f *Flags) Len() int {
	return f.size
}

// Get reports whether bit i is set.
func (f *Flags) Get(i int) bool {
	return f.words[i/wordBits]&(1<<(uint(i)%wordBits)) != 0
}

// Set sets bit i.
func (f *Flags) Set(i int) {
	f.words[i/wordBits] |= 1 << (uint(i) % wordBits)
}

// Unset clears bit i.
func (f *Flags) Unset(i int) {
	f.words[i/wordBits] &^= 1 << (uint(i) % wordBits)
}

// Clear resets every bit.
func (f *Flags) Clear() {
	clear(f.words)
}
