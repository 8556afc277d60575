package queue

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemorySideStoreConcurrentSetIsRaceFree(t *testing.T) {
	m := NewMemorySideStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "k" + strconv.Itoa(i%5)
			_ = m.Set(ctx, key, strconv.Itoa(i), time.Minute)
			_, _ = m.Get(ctx, key)
			_, _ = m.SetNX(ctx, key+"-nx", strconv.Itoa(i), time.Minute)
		}(i)
	}
	wg.Wait()

	v, err := m.Get(ctx, "k0")
	assert.NoError(t, err)
	assert.NotEmpty(t, v)
}
