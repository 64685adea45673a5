// Copyright © 2021 The Lust authors

package lust

import "github.com/ZekeMedley/lust/codegen"

// DefaultHeapSize is the size of a session's heap region unless overridden
// with WithHeapSize. The heap is a bump allocator with no reclamation, so
// the region bounds the total bytes a program may allocate.
const DefaultHeapSize = 1 << 20

// AllocName is the name of the runtime allocation function every session
// defines before compiling user code.
const AllocName = "lust_alloc"

// The first word of the heap region holds the bump pointer itself.
// Allocation starts one aligned step past it.
const heapReserved = 2 * wordSize

// defineAlloc maps the session heap and defines the allocator as generated
// code: load the bump pointer, advance it by the requested byte count, and
// return the old value. Requests must be multiples of the word size, which
// every caller in this package guarantees. Exhaustion is not checked.
func defineAlloc(mod *codegen.Module, heapSize int) (codegen.FuncRef, error) {
	if heapSize < heapReserved {
		heapSize = DefaultHeapSize
	}
	base, err := mod.NewDataRegion(heapSize)
	if err != nil {
		return 0, err
	}
	ref, err := mod.Declare(AllocName, 1)
	if err != nil {
		return 0, err
	}
	b := mod.NewBuilder(ref)
	cell := b.Iconst(int64(base))
	p := b.Load(cell, 0)
	next := b.Iadd(p, b.Param(0))
	b.Store(cell, 0, next)
	b.Ret(p)
	if err := b.Err(); err != nil {
		return 0, err
	}
	if err := mod.Define(ref, b); err != nil {
		return 0, err
	}
	mod.WriteWord(base, uint64(base)+heapReserved)
	return ref, nil
}
