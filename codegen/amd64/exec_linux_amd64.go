// Copyright © 2021 The Lust authors

//go:build linux && amd64

package amd64

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Supported reports whether this platform can execute generated code.
func Supported() bool { return true }

// Mapping is an anonymous memory mapping holding generated code or runtime
// data. Code mappings start writable and are sealed executable with Protect.
type Mapping struct {
	mem []byte
}

// Map allocates a writable mapping of at least size bytes.
func Map(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mapping requires positive size")
	}
	pageSize := unix.Getpagesize()
	allocSize := ((size + pageSize - 1) / pageSize) * pageSize
	mem, err := unix.Mmap(-1, 0, allocSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap region: %w", err)
	}
	return &Mapping{mem: mem}, nil
}

// Base returns the mapping's start address.
func (m *Mapping) Base() uintptr {
	if len(m.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&m.mem[0])) //#nosec G103 -- address of a live mapping
}

// Bytes returns the mapped memory. Code mappings must not be written after
// Protect.
func (m *Mapping) Bytes() []byte { return m.mem }

// Protect remaps the mapping read+execute.
func (m *Mapping) Protect() error {
	if err := unix.Mprotect(m.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("mprotect code region: %w", err)
	}
	return nil
}

// Close unmaps the mapping. The mapping must not be executed afterwards.
func (m *Mapping) Close() error {
	if m.mem == nil {
		return nil
	}
	err := unix.Munmap(m.mem)
	m.mem = nil
	return err
}

// Invoke calls generated code at entry with the System V calling convention
// and no arguments, returning the raw machine word left in rax. The first
// argument register is zeroed so functions with an unused leading parameter
// can be entered directly.
func Invoke(entry uintptr) uint64 {
	return invoke(entry)
}

// implemented in exec_linux_amd64.s
func invoke(entry uintptr) uint64
