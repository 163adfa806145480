package swapkit

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendermint/tendermint/libs/log"
)

func TestContext(t *testing.T) {
	bg := context.Background()

	// try logger with default
	newLogger := log.NewTMLogger(os.Stdout)
	ctx := WithLogger(bg, newLogger)
	assert.Equal(t, DefaultLogger, GetLogger(bg))
	assert.Equal(t, newLogger, GetLogger(ctx))

	// chain tip - uninitialized
	tip, ok := GetChainTip(ctx)
	assert.Equal(t, ChainTip{}, tip)
	assert.False(t, ok)

	ctx = WithChainTip(ctx, ChainTip{Height: 7})
	tip, ok = GetChainTip(ctx)
	assert.Equal(t, ChainTip{Height: 7}, tip)
	assert.True(t, ok)

	// changing the info, should modify the logger, but not the tip
	ctx2 := WithLogInfo(ctx, "foo", "bar")
	assert.NotEqual(t, GetLogger(ctx), GetLogger(ctx2))
	tip, _ = GetChainTip(ctx2)
	assert.Equal(t, uint32(7), tip.Height)
}
