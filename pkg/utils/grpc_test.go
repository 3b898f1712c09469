package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGRPCOptions(t *testing.T) {
	o := &GRPCOptions{}
	assert.Empty(t, o.ToServerOptions())
	assert.Len(t, o.ToDialOptions(), 1)
	assert.NoError(t, o.Validate())

	interval := 10 * time.Second
	permit := true
	o.KeepAliveTime = &interval
	o.PermitKeepAliveWithoutCalls = &permit
	assert.Len(t, o.ToServerOptions(), 2)
	assert.Len(t, o.ToDialOptions(), 2)

	negative := -time.Second
	o.KeepAliveTimeout = &negative
	assert.Error(t, o.Validate())
}
