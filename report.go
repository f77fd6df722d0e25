package hlog

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// ErrorHandler receives errors the logging core cannot return to anyone:
// failed appends, failed reloads, failed closes.
type ErrorHandler func(error)

// reporter is the diagnostics channel. It never writes to configured
// appenders, only to its own zap logger (stderr by default) or handler.
type reporter struct {
	diag       *zap.Logger
	handler    ErrorHandler
	limiter    *rate.Limiter // nil: unlimited
	suppressed atomic.Uint64
}

func newReporter(o *options) *reporter {
	r := &reporter{diag: o.diag, handler: o.handler}
	if r.diag == nil && r.handler == nil {
		r.diag = defaultDiagnostics()
	}
	if o.limit != rate.Inf && o.limit >= 0 && o.burst > 0 {
		r.limiter = rate.NewLimiter(o.limit, o.burst)
	}
	return r
}

// defaultDiagnostics writes JSON lines to stderr, like the service loggers
// built on zap elsewhere, under the "hlog" name.
func defaultDiagnostics() *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stderr), zapcore.DebugLevel)
	return zap.New(core).Named("hlog")
}

func (r *reporter) report(err error) {
	if err == nil {
		return
	}
	if r.limiter != nil && !r.limiter.Allow() {
		r.suppressed.Add(1)
		return
	}
	n := r.suppressed.Swap(0)
	if r.handler != nil {
		if n > 0 {
			err = fmt.Errorf("%w (%d earlier reports suppressed)", err, n)
		}
		r.handler(err)
		return
	}

	fields := make([]zap.Field, 0, 4)
	fields = append(fields, zap.String("kind", ErrorKind(err)), zap.Error(err))
	var ae *AppendError
	if errors.As(err, &ae) {
		fields = append(fields, zap.String("appender", ae.Appender), zap.String("logger", ae.Logger))
	}
	if n > 0 {
		fields = append(fields, zap.Uint64("suppressed", n))
	}
	r.diag.Error("logging failure", fields...)
}

// Suppressed returns how many reports the rate limit dropped since the last
// report that got through.
func (r *reporter) Suppressed() uint64 { return r.suppressed.Load() }
