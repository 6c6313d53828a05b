package analysis

import "github.com/gogpu/naga/ir"

// GlobalUse is a bitset describing how a function uses a single global
// variable.
type GlobalUse uint8

const (
	// UseRead indicates data is read from the variable.
	UseRead GlobalUse = 1 << 0
	// UseWrite indicates data is written to the variable.
	UseWrite GlobalUse = 1 << 1
	// UseQuery indicates only metadata about the variable (its size,
	// its mip level count, ...) is queried.
	UseQuery GlobalUse = 1 << 2
)

// Has reports whether all bits in flag are set.
func (u GlobalUse) Has(flag GlobalUse) bool {
	return u&flag == flag
}

// contains reports whether u is an elementwise superset of other.
func (u GlobalUse) contains(other GlobalUse) bool {
	return u&other == other
}

// SamplingKey identifies an (image, sampler) pair sampled together.
type SamplingKey struct {
	Image   ir.GlobalVariableHandle
	Sampler ir.GlobalVariableHandle
}
