package app

import (
	"context"
	"github.com/lefinal/arena-server/arena"
	"github.com/lefinal/arena-server/catalog"
	"github.com/lefinal/arena-server/portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"testing"
)

// baseStub is a portal.Base that records opening.
type baseStub struct {
	opened chan struct{}
}

func (b *baseStub) Open(ctx context.Context) error {
	close(b.opened)
	<-ctx.Done()
	return nil
}

func (b *baseStub) NewPortal(_ string) portal.Portal {
	return portal.NewRecorder()
}

func TestPortalServiceOpensBase(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	base := &baseStub{opened: make(chan struct{})}
	done := make(chan error, 1)
	go func() {
		done <- portalService{base: base}.Run(ctx)
	}()
	<-base.opened
	cancel()
	assert.NoError(t, <-done, "should stop without error")
}

func TestCreateServices(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cat := catalog.New(zap.NewNop(), arena.DefaultRules())
	created, err := createServices(ctx, validConfig(), arena.DefaultRules(), cat, nil, nil)
	require.NoError(t, err, "create services should not fail")
	assert.IsType(t, portalService{}, created["portal"], "should open the portal")
	for _, name := range []string{"ws-hub", "arena", "debug-stats", "web-server"} {
		assert.Contains(t, created, name)
	}
	assert.NotContains(t, created, "log-publish", "should not publish logs without entries")
}
