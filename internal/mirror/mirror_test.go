package mirror

import (
	"fmt"
	"sync"
	"testing"

	"boardstore/internal/storeerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirror_SetGetDelete(t *testing.T) {
	m := New(0)

	_, ok := m.Get("k")
	assert.False(t, ok)

	require.NoError(t, m.Set("k", []byte(`{"a":1}`)))
	v, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(v))

	m.Delete("k")
	m.Delete("k")
	_, ok = m.Get("k")
	assert.False(t, ok)
	assert.Equal(t, Stats{}, m.Stats())
}

func TestMirror_DefensiveCopies(t *testing.T) {
	m := New(0)
	in := []byte(`"abc"`)
	require.NoError(t, m.Set("k", in))
	in[1] = 'X'

	out, _ := m.Get("k")
	assert.Equal(t, `"abc"`, string(out))

	out[1] = 'Y'
	again, _ := m.Get("k")
	assert.Equal(t, `"abc"`, string(again))
}

func TestMirror_QuotaDropsStaleEntry(t *testing.T) {
	m := New(20)

	require.NoError(t, m.Set("k", []byte(`"small"`)))
	assert.Equal(t, 1+7, m.Stats().Bytes)

	err := m.Set("k", []byte(`"this value is far too large"`))
	assert.ErrorIs(t, err, storeerr.ErrQuotaExceeded)

	_, ok := m.Get("k")
	assert.False(t, ok, "overflowing write must not leave the old value behind")
	assert.Equal(t, 0, m.Stats().Bytes)
}

func TestMirror_QuotaAccountsReplacement(t *testing.T) {
	m := New(10)
	require.NoError(t, m.Set("a", []byte("12345678"))) // 9 bytes
	require.NoError(t, m.Set("a", []byte("87654321"))) // same size replaces

	err := m.Set("b", []byte("12"))
	assert.ErrorIs(t, err, storeerr.ErrQuotaExceeded)

	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, "87654321", string(v))
	assert.Equal(t, Stats{Entries: 1, Bytes: 9, Quota: 10}, m.Stats())
}

func TestMirror_Keys(t *testing.T) {
	m := New(0)
	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, m.Set(k, []byte("1")))
	}
	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
}

func TestMirror_Concurrent(t *testing.T) {
	m := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			_ = m.Set(key, []byte(fmt.Sprint(i)))
			m.Get(key)
			if i%5 == 0 {
				m.Delete(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, m.Stats().Entries, 4)
}
