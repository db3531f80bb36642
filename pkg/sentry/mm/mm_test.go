package mm

import (
	"testing"

	"github.com/IRodriguez13/IR0-sub002/pkg/hostarch"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/pgalloc"
	"github.com/stretchr/testify/require"
)

func TestMapTranslateUnmap(t *testing.T) {
	alloc := pgalloc.New(64, nil)
	as := NewAddressSpace(alloc, nil)

	frame, err := alloc.AllocFrame()
	require.NoError(t, err)

	va := hostarch.Addr(0x400000)
	as.Map(va, frame, Writable)

	got, ok := as.Translate(va)
	require.True(t, ok)
	require.Equal(t, frame, got)

	as.Unmap(va)
	_, ok = as.Translate(va)
	require.False(t, ok)
}

func TestOnDemandFault(t *testing.T) {
	alloc := pgalloc.New(64, nil)
	as := NewAddressSpace(alloc, nil)

	region := hostarch.AddrRange{Start: 0x1000, End: 0x1000 + 3*hostarch.PageSize}
	as.RegisterOnDemand(region, Writable|User)

	for _, off := range []uint64{0, hostarch.PageSize, 2 * hostarch.PageSize} {
		addr := hostarch.Addr(uint64(region.Start) + off)
		res, err := as.HandleFault(addr, FaultErrorCode{Present: false, User: true})
		require.NoError(t, err)
		require.Equal(t, FaultResolved, res)
		_, ok := as.Translate(addr)
		require.True(t, ok)
	}

	outside := hostarch.Addr(uint64(region.Start) + 3*hostarch.PageSize)
	res, err := as.HandleFault(outside, FaultErrorCode{Present: false, User: true})
	require.NoError(t, err)
	require.Equal(t, FaultFatal, res)
}

func TestForkSnapshotsMappings(t *testing.T) {
	alloc := pgalloc.New(64, nil)
	parent := NewAddressSpace(alloc, nil)
	f, _ := alloc.AllocFrame()
	va := hostarch.Addr(0x2000)
	parent.Map(va, f, Writable)

	child, err := parent.Fork()
	require.NoError(t, err)

	pf, _ := parent.Translate(va)
	cf, _ := child.Translate(va)
	require.NotEqual(t, pf, cf, "fork must allocate a distinct frame for the child")
}
