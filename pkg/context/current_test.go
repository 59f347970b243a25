package context

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrent_RoundTripsThroughContext(t *testing.T) {
	current := NewCurrent()
	current.Set("request_id", "req-1")

	ctx := WithCurrent(context.Background(), current)

	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, current, got)
	assert.Equal(t, "req-1", RequestID(ctx))
}

func TestGetCurrent_EmptyOutsideRequest(t *testing.T) {
	current := GetCurrent(context.Background())

	assert.NotNil(t, current)
	assert.Empty(t, current.All())
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestCurrent_GetStringRejectsOtherTypes(t *testing.T) {
	current := NewCurrent()
	current.Set("count", 3)

	_, ok := current.GetString("count")
	assert.False(t, ok)
	assert.True(t, current.Exists("count"))
}

func TestCurrent_ConcurrentAccess(t *testing.T) {
	current := NewCurrent()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			current.Set("key", i)
			current.Get("key")
		}(i)
	}
	wg.Wait()

	assert.True(t, current.Exists("key"))
}
