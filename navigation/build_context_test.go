package navigation

import (
	"testing"
	"time"

	"github.com/gorustyt/navcore/recast"
	"github.com/stretchr/testify/assert"
)

func TestBuildContextLogCap(t *testing.T) {
	ctx := NewBuildContext()
	for i := 0; i < MAX_MESSAGES+10; i++ {
		ctx.Log(recast.RC_LOG_PROGRESS, "m")
	}
	assert.Equal(t, MAX_MESSAGES, ctx.GetLogCount())
	assert.Equal(t, "m", ctx.GetLogText(MAX_MESSAGES-1))
	assert.Equal(t, "", ctx.GetLogText(MAX_MESSAGES))

	ctx.ResetLog()
	assert.Zero(t, ctx.GetLogCount())
}

func TestBuildContextTextPoolCap(t *testing.T) {
	ctx := NewBuildContext()
	line := make([]byte, 1000)
	for i := range line {
		line[i] = 'x'
	}
	for i := 0; i < 10; i++ {
		ctx.Log(recast.RC_LOG_WARNING, "%s", line)
	}
	assert.Equal(t, TEXT_POOL_SIZE/len(line), ctx.GetLogCount())
	assert.Equal(t, recast.RC_LOG_WARNING, ctx.GetLogCategory(0))
}

func TestBuildContextDisabledLog(t *testing.T) {
	ctx := NewBuildContext()
	ctx.EnableLog(false)
	ctx.Log(recast.RC_LOG_ERROR, "dropped")
	assert.Zero(t, ctx.GetLogCount())
}

func TestBuildContextTimers(t *testing.T) {
	ctx := NewBuildContext()
	assert.Less(t, ctx.GetAccumulatedTime(recast.RC_TIMER_TOTAL), time.Duration(0))

	ctx.StartTimer(recast.RC_TIMER_TOTAL)
	ctx.StopTimer(recast.RC_TIMER_TOTAL)
	assert.GreaterOrEqual(t, ctx.GetAccumulatedTime(recast.RC_TIMER_TOTAL), time.Duration(0))

	ctx.ResetTimers()
	assert.Less(t, ctx.GetAccumulatedTime(recast.RC_TIMER_TOTAL), time.Duration(0))
	assert.NotEqual(t, NewBuildContext().BuildID(), ctx.BuildID())
}
