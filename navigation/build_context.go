package navigation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorustyt/navcore/common/logger"
	"github.com/gorustyt/navcore/recast"
)

const (
	MAX_MESSAGES   = 1000
	TEXT_POOL_SIZE = 8000
)

type logMessage struct {
	category recast.RcLogCategory
	offset   int
	length   int
}

// BuildContext collects the log lines and stage timings of one build.
// Messages past MAX_MESSAGES, or whose text no longer fits the pool, are dropped.
type BuildContext struct {
	m_logEnabled   bool
	m_timerEnabled bool

	m_messages []logMessage
	m_textPool []byte

	m_startTime [recast.RC_MAX_TIMERS]time.Time
	m_accTime   [recast.RC_MAX_TIMERS]time.Duration

	m_buildID uuid.UUID
}

func NewBuildContext() *BuildContext {
	ctx := &BuildContext{
		m_logEnabled:   true,
		m_timerEnabled: true,
		m_messages:     make([]logMessage, 0, MAX_MESSAGES),
		m_textPool:     make([]byte, 0, TEXT_POOL_SIZE),
		m_buildID:      uuid.New(),
	}
	ctx.ResetTimers()
	return ctx
}

func (ctx *BuildContext) EnableLog(state bool)   { ctx.m_logEnabled = state }
func (ctx *BuildContext) EnableTimer(state bool) { ctx.m_timerEnabled = state }

// BuildID identifies the build this context belongs to.
func (ctx *BuildContext) BuildID() uuid.UUID { return ctx.m_buildID }

func (ctx *BuildContext) Log(category recast.RcLogCategory, format string, args ...any) {
	if !ctx.m_logEnabled || len(ctx.m_messages) >= MAX_MESSAGES {
		return
	}
	text := fmt.Sprintf(format, args...)
	if len(ctx.m_textPool)+len(text) > TEXT_POOL_SIZE {
		return
	}
	ctx.m_messages = append(ctx.m_messages, logMessage{
		category: category,
		offset:   len(ctx.m_textPool),
		length:   len(text),
	})
	ctx.m_textPool = append(ctx.m_textPool, text...)
}

func (ctx *BuildContext) ResetLog() {
	ctx.m_messages = ctx.m_messages[:0]
	ctx.m_textPool = ctx.m_textPool[:0]
}

func (ctx *BuildContext) GetLogCount() int { return len(ctx.m_messages) }

func (ctx *BuildContext) GetLogText(i int) string {
	if i < 0 || i >= len(ctx.m_messages) {
		return ""
	}
	m := ctx.m_messages[i]
	return string(ctx.m_textPool[m.offset : m.offset+m.length])
}

func (ctx *BuildContext) GetLogCategory(i int) recast.RcLogCategory {
	if i < 0 || i >= len(ctx.m_messages) {
		return 0
	}
	return ctx.m_messages[i].category
}

// DumpLog writes the header and every buffered message to the process logger.
func (ctx *BuildContext) DumpLog(format string, args ...any) {
	logger.LogInfo("[%s] "+format, append([]any{ctx.m_buildID}, args...)...)
	for i, m := range ctx.m_messages {
		text := ctx.GetLogText(i)
		switch m.category {
		case recast.RC_LOG_WARNING:
			logger.LogWarn("  %s", text)
		case recast.RC_LOG_ERROR:
			logger.LogError("  %s", text)
		default:
			logger.LogInfo("  %s", text)
		}
	}
}

func (ctx *BuildContext) ResetTimers() {
	for i := range ctx.m_accTime {
		ctx.m_accTime[i] = -1
	}
}

func (ctx *BuildContext) StartTimer(label recast.RcTimerLabel) {
	if !ctx.m_timerEnabled || label < 0 || label >= recast.RC_MAX_TIMERS {
		return
	}
	ctx.m_startTime[label] = time.Now()
}

func (ctx *BuildContext) StopTimer(label recast.RcTimerLabel) {
	if !ctx.m_timerEnabled || label < 0 || label >= recast.RC_MAX_TIMERS {
		return
	}
	delta := time.Since(ctx.m_startTime[label])
	if ctx.m_accTime[label] == -1 {
		ctx.m_accTime[label] = delta
	} else {
		ctx.m_accTime[label] += delta
	}
}

// GetAccumulatedTime returns the total time spent under label, or -1 when
// the timer never ran.
func (ctx *BuildContext) GetAccumulatedTime(label recast.RcTimerLabel) time.Duration {
	if !ctx.m_timerEnabled || label < 0 || label >= recast.RC_MAX_TIMERS {
		return -1
	}
	return ctx.m_accTime[label]
}
