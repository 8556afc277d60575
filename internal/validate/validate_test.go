package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAllPass(t *testing.T) {
	v := New(Strict, []Capability{EmbedderReachable, QueueReachable}, map[Capability]Check{
		EmbedderReachable: func(ctx context.Context) error { return nil },
		QueueReachable:    func(ctx context.Context) error { return nil },
	}, nil)

	result := v.Check(context.Background())
	assert.True(t, result.OK)
	assert.Empty(t, result.Error())
}

func TestCheckAggregatesFailures(t *testing.T) {
	v := New(Strict, []Capability{EmbedderReachable, QueueReachable}, map[Capability]Check{
		EmbedderReachable: func(ctx context.Context) error { return errors.New("dial tcp: refused") },
		QueueReachable:    func(ctx context.Context) error { return nil },
	}, nil)

	result := v.Check(context.Background())
	require.False(t, result.OK)
	assert.Contains(t, result.Error(), "embedder_reachable")
	assert.Contains(t, result.Error(), "refused")
}

func TestCheckLenientSkipsSchemaCapabilities(t *testing.T) {
	called := false
	v := New(Lenient, []Capability{DocumentStoreSchema}, map[Capability]Check{
		DocumentStoreSchema: func(ctx context.Context) error {
			called = true
			return errors.New("schema missing")
		},
	}, map[Capability]bool{DocumentStoreSchema: true})

	result := v.Check(context.Background())
	assert.True(t, result.OK)
	assert.False(t, called)
}

func TestCheckStrictRunsSchemaCapabilities(t *testing.T) {
	v := New(Strict, []Capability{DocumentStoreSchema}, map[Capability]Check{
		DocumentStoreSchema: func(ctx context.Context) error { return errors.New("schema missing") },
	}, map[Capability]bool{DocumentStoreSchema: true})

	result := v.Check(context.Background())
	assert.False(t, result.OK)
}

func TestCheckUnregisteredCapabilityFails(t *testing.T) {
	v := New(Strict, []Capability{BrowserRuntime}, map[Capability]Check{}, nil)

	result := v.Check(context.Background())
	require.False(t, result.OK)
	assert.Contains(t, result.Error(), "browser_runtime")
}
