// Copyright © 2021 The Lust authors

package codegen

import (
	"encoding/binary"
	"fmt"

	"github.com/ZekeMedley/lust/codegen/amd64"
)

type patch struct {
	pos    int
	target FuncRef
}

type function struct {
	name        string
	nparams     int
	defined     bool
	text        []byte
	callPatches []patch
	addrPatches []patch
	offset      int
}

// Module owns every function of one compile session. Functions are declared
// up front, defined in any order, and laid out into a single executable
// mapping by Finalize. A Module is not safe for concurrent use and cannot
// accept declarations or definitions after Finalize.
type Module struct {
	funcs     []*function
	byName    map[string]FuncRef
	finalized bool
	code      *amd64.Mapping
	data      []*amd64.Mapping
}

// NewModule constructs an empty module.
func NewModule() *Module {
	return &Module{byName: make(map[string]FuncRef)}
}

// WordBits returns the width of the target machine word.
func (m *Module) WordBits() int { return 64 }

func (m *Module) validRef(ref FuncRef) bool {
	return ref >= 0 && int(ref) < len(m.funcs)
}

// Declare registers a function name and native parameter count ahead of its
// definition so that any body emitted later may call it.
func (m *Module) Declare(name string, nparams int) (FuncRef, error) {
	if m.finalized {
		return 0, fmt.Errorf("declare %q after finalize", name)
	}
	if nparams < 0 || nparams > MaxParams {
		return 0, fmt.Errorf("function %q declared with %d parameters, limit is %d", name, nparams, MaxParams)
	}
	if _, ok := m.byName[name]; ok {
		return 0, fmt.Errorf("duplicate function name %q", name)
	}
	ref := FuncRef(len(m.funcs))
	m.funcs = append(m.funcs, &function{name: name, nparams: nparams})
	m.byName[name] = ref
	return ref, nil
}

// Lookup resolves a declared function by name.
func (m *Module) Lookup(name string) (FuncRef, bool) {
	ref, ok := m.byName[name]
	return ref, ok
}

// Name returns the declared name of ref.
func (m *Module) Name(ref FuncRef) string {
	if !m.validRef(ref) {
		return ""
	}
	return m.funcs[ref].name
}

// NewBuilder starts the definition of a declared function.
func (m *Module) NewBuilder(ref FuncRef) *Builder {
	if !m.validRef(ref) {
		b := &Builder{mod: m}
		b.setErr("builder for unknown function %d", ref)
		return b
	}
	return newBuilder(m, ref, m.funcs[ref].nparams)
}

// Define lowers the builder's blocks into machine code and records the
// result as ref's body. Each declared function accepts exactly one
// definition.
func (m *Module) Define(ref FuncRef, b *Builder) error {
	if m.finalized {
		return fmt.Errorf("define after finalize")
	}
	if !m.validRef(ref) {
		return fmt.Errorf("define of unknown function %d", ref)
	}
	fn := m.funcs[ref]
	if fn.defined {
		return fmt.Errorf("function %q is already defined", fn.name)
	}
	if b.ref != ref {
		return fmt.Errorf("builder belongs to %q, not %q", m.Name(b.ref), fn.name)
	}
	if err := b.validate(); err != nil {
		return fmt.Errorf("define %q: %w", fn.name, err)
	}
	text, calls, addrs, err := lower(b)
	if err != nil {
		return fmt.Errorf("define %q: %w", fn.name, err)
	}
	fn.text = text
	fn.callPatches = calls
	fn.addrPatches = addrs
	fn.defined = true
	return nil
}

// Finalize lays every defined function out into one executable mapping and
// resolves cross-function calls and address constants. After Finalize the
// module only serves addresses and invocations.
func (m *Module) Finalize() error {
	if m.finalized {
		return fmt.Errorf("module already finalized")
	}
	if len(m.funcs) == 0 {
		return fmt.Errorf("finalize of empty module")
	}
	const align = 16
	total := 0
	for _, fn := range m.funcs {
		if !fn.defined {
			return fmt.Errorf("function %q declared but never defined", fn.name)
		}
		fn.offset = total
		total += (len(fn.text) + align - 1) &^ (align - 1)
	}

	mapping, err := amd64.Map(total)
	if err != nil {
		return fmt.Errorf("map code region: %w", err)
	}
	mem := mapping.Bytes()
	for _, fn := range m.funcs {
		copy(mem[fn.offset:], fn.text)
	}

	base := mapping.Base()
	for _, fn := range m.funcs {
		for _, p := range fn.callPatches {
			target := m.funcs[p.target]
			if err := amd64.PatchRel32(mem, fn.offset+p.pos, target.offset); err != nil {
				closeAll(mapping)
				return fmt.Errorf("link call from %q to %q: %w", fn.name, target.name, err)
			}
		}
		for _, p := range fn.addrPatches {
			target := m.funcs[p.target]
			addr := uint64(base) + uint64(target.offset)
			binary.LittleEndian.PutUint64(mem[fn.offset+p.pos:], addr)
		}
	}

	if err := mapping.Protect(); err != nil {
		closeAll(mapping)
		return err
	}
	m.code = mapping
	m.finalized = true
	return nil
}

func closeAll(maps ...*amd64.Mapping) {
	for _, mp := range maps {
		_ = mp.Close()
	}
}

// FuncAddr returns the executable address of a finalized function.
func (m *Module) FuncAddr(ref FuncRef) (uintptr, error) {
	if !m.finalized {
		return 0, fmt.Errorf("address of %q before finalize", m.Name(ref))
	}
	if !m.validRef(ref) {
		return 0, fmt.Errorf("address of unknown function %d", ref)
	}
	return m.code.Base() + uintptr(m.funcs[ref].offset), nil
}

// Invoke calls a finalized function with no arguments and returns the raw
// machine word it produced.
func (m *Module) Invoke(ref FuncRef) (uint64, error) {
	addr, err := m.FuncAddr(ref)
	if err != nil {
		return 0, err
	}
	return amd64.Invoke(addr), nil
}

// ReadWord reads a machine word out of one of the module's data regions.
// The compiler uses it to decode heap objects referenced by a returned
// tagged pointer. Addresses outside every region read as zero.
func (m *Module) ReadWord(addr uintptr) uint64 {
	if b, off, ok := m.dataAt(addr); ok {
		return binary.LittleEndian.Uint64(b[off:])
	}
	return 0
}

// WriteWord writes a machine word into one of the module's data regions.
// The compiler uses it to seed runtime state before execution. Writes
// outside every region are dropped.
func (m *Module) WriteWord(addr uintptr, w uint64) {
	if b, off, ok := m.dataAt(addr); ok {
		binary.LittleEndian.PutUint64(b[off:], w)
	}
}

func (m *Module) dataAt(addr uintptr) ([]byte, int, bool) {
	for _, d := range m.data {
		base := d.Base()
		b := d.Bytes()
		if addr >= base && addr+WordBytes <= base+uintptr(len(b)) {
			return b, int(addr - base), true
		}
	}
	return nil, 0, false
}

// NewDataRegion maps a zeroed read-write region owned by the module,
// returning its base address. Generated code may address it directly; the
// region lives until Close.
func (m *Module) NewDataRegion(size int) (uintptr, error) {
	mapping, err := amd64.Map(size)
	if err != nil {
		return 0, fmt.Errorf("map data region: %w", err)
	}
	m.data = append(m.data, mapping)
	return mapping.Base(), nil
}

// Close releases the module's mappings. Generated code must not run after
// Close returns.
func (m *Module) Close() error {
	var first error
	if m.code != nil {
		first = m.code.Close()
		m.code = nil
	}
	for _, d := range m.data {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	m.data = nil
	return first
}
