// Copyright © 2021 The Lust authors

//go:build !(linux && amd64)

package amd64

import "errors"

var errUnsupported = errors.New("lust code execution requires linux/amd64")

// Supported reports whether this platform can execute generated code.
func Supported() bool { return false }

// Mapping is a stub on unsupported platforms.
type Mapping struct{}

// Map fails on unsupported platforms.
func Map(size int) (*Mapping, error) { return nil, errUnsupported }

func (m *Mapping) Base() uintptr  { return 0 }
func (m *Mapping) Bytes() []byte  { return nil }
func (m *Mapping) Protect() error { return errUnsupported }
func (m *Mapping) Close() error   { return nil }

// Invoke panics on unsupported platforms; Map never succeeds so there is no
// entry address to invoke.
func Invoke(entry uintptr) uint64 {
	panic("lust: Invoke on unsupported platform")
}
