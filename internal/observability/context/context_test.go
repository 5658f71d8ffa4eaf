package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, " req-1 ")
	ctx = WithStoreID(ctx, "42")
	ctx = WithActor(ctx, "owner", "7")
	ctx = WithClientIP(ctx, "10.0.0.1")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "42", StoreIDFromContext(ctx))
	actorType, actorID := ActorFromContext(ctx)
	assert.Equal(t, "owner", actorType)
	assert.Equal(t, "7", actorID)
	assert.Equal(t, "10.0.0.1", ClientIPFromContext(ctx))
}

func TestNilContext(t *testing.T) {
	//nolint:staticcheck
	assert.Empty(t, RequestIDFromContext(nil))
}
