package resolver

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choosepower/tdsp-resolver/internal/model"
)

func TestCacheGetSet(t *testing.T) {
	c := newResultCache(10)

	_, ok := c.Get("75201")
	assert.False(t, ok)

	c.Set("75201", model.ResolutionResult{TerritoryID: "t1"}, time.Minute)
	got, ok := c.Get("75201")
	require.True(t, ok)
	assert.Equal(t, "t1", got.TerritoryID)
}

func TestCacheExpiry(t *testing.T) {
	c := newResultCache(10)
	now := time.Now()
	c.nowFunc = func() time.Time { return now }

	c.Set("75201", model.ResolutionResult{TerritoryID: "t1"}, time.Minute)

	now = now.Add(61 * time.Second)
	_, ok := c.Get("75201")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheZeroTTLNotStored(t *testing.T) {
	c := newResultCache(10)
	c.Set("75201", model.ResolutionResult{TerritoryID: "t1"}, 0)
	assert.Equal(t, 0, c.Len())
}

func TestCacheEviction(t *testing.T) {
	c := newResultCache(8)

	for i := 0; i < 12; i++ {
		c.Set(fmt.Sprintf("key-%d", i), model.ResolutionResult{}, time.Minute)
	}
	assert.LessOrEqual(t, c.Len(), 8)
}
