package broadcast

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecentCache_GetPut(t *testing.T) {
	c := newRecentCache(time.Minute, 10)

	_, ok := c.get("a")
	assert.False(t, ok)

	c.put("a", "v1")
	got, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "v1", got)

	c.put("a", "v2")
	got, _ = c.get("a")
	assert.Equal(t, "v2", got)
}

func TestRecentCache_Expiry(t *testing.T) {
	c := newRecentCache(10*time.Millisecond, 10)
	c.put("a", "v1")

	time.Sleep(20 * time.Millisecond)

	_, ok := c.get("a")
	assert.False(t, ok)
}

func TestRecentCache_EvictsOldestWhenFull(t *testing.T) {
	c := newRecentCache(time.Minute, 3)

	for i := 0; i < 3; i++ {
		c.put(fmt.Sprintf("k%d", i), "v")
		time.Sleep(time.Millisecond)
	}

	c.put("k3", "v")

	_, ok := c.get("k0")
	assert.False(t, ok)
	for _, key := range []string{"k1", "k2", "k3"} {
		_, ok := c.get(key)
		assert.True(t, ok, key)
	}
}
