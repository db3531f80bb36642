package kheap

import (
	"testing"

	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/stretchr/testify/require"
)

func TestAllocAlignment(t *testing.T) {
	h := New(4096)
	off, err := h.Alloc(10)
	require.NoError(t, err)
	require.Equal(t, 0, off%align)
}

func TestFreeReusesBlock(t *testing.T) {
	h := New(64) // replaced by the tight arena below
	h = New(16)  // exactly one 16-byte block: size 10 rounds up to class 16
	off, err := h.Alloc(10)
	require.NoError(t, err)

	_, err = h.Alloc(10)
	require.Equal(t, errno.ENOMEM, err, "arena should be exhausted before free")

	h.Free(off, 10)
	off2, err := h.Alloc(10)
	require.NoError(t, err)
	require.Equal(t, off, off2, "freed block must be reused, not leaked")
}

func TestZeroSizeYieldsUsableOffset(t *testing.T) {
	h := New(64)
	off, err := h.Alloc(0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, off, 0)
}
