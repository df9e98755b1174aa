// SPDX-License-Identifier: GPL-3.0-or-later

package dnssd

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixRegistryAddAssignsDistinctBits(t *testing.T) {
	r := NewPrefixRegistry()
	p1 := r.Add("_http._tcp.")
	p2 := r.Add("_ssh._tcp.")
	require.NotNil(t, p1)
	require.NotNil(t, p2)
	assert.NotEqual(t, p1.Flag(), p2.Flag())
}

func TestPrefixRegistryAddSameNameIncrementsRefcount(t *testing.T) {
	r := NewPrefixRegistry()
	p1 := r.Add("_http._tcp.")
	p2 := r.Add("_http._tcp.")
	assert.Same(t, p1, p2)
	assert.Equal(t, 1, r.Len())
}

func TestPrefixRegistry65thPrefixReturnsNil(t *testing.T) {
	r := NewPrefixRegistry()
	for i := 0; i < 64; i++ {
		p := r.Add(fmt.Sprintf("_svc%d._tcp.", i))
		require.NotNilf(t, p, "prefix %d should be allocatable", i)
	}
	assert.Equal(t, 64, r.Len())

	p := r.Add("_one_too_many._tcp.")
	assert.Nil(t, p, "the 65th distinct prefix must fail")
}

func TestPrefixRegistryRemoveReleasesFlag(t *testing.T) {
	r := NewPrefixRegistry()
	p := r.Add("_http._tcp.")
	flag := p.Flag()
	r.Remove(p)
	assert.Equal(t, 0, r.Len())

	p2 := r.Add("_ssh._tcp.")
	assert.Equal(t, flag, p2.Flag(), "released bit is reused by the next allocation")
}

func TestPrefixRegistryRemoveDecrementsSharedRefcount(t *testing.T) {
	r := NewPrefixRegistry()
	p1 := r.Add("_http._tcp.")
	r.Add("_http._tcp.")
	r.Remove(p1)
	assert.Equal(t, 1, r.Len(), "still referenced once more")
}
