package writer

import (
	"encoding/json"
	"math"
	"time"

	"github.com/trickstertwo/hlog"
)

type encoder interface {
	encode(buf *buffer, r *hlog.Record)
}

// textEncoder writes logfmt-style lines:
//
//	ts=2024-01-02T03:04:05Z level=INFO logger=app.db msg="slow query" took=1.2s
type textEncoder struct{ timeFormat string }

// jsonEncoder writes one JSON object per line.
type jsonEncoder struct{ timeFormat string }

func (e textEncoder) encode(buf *buffer, r *hlog.Record) {
	buf.writeString("ts=")
	appendTime(buf, r.At, e.timeFormat)
	buf.writeString(" level=")
	buf.writeString(r.Level.String())
	if r.Logger != "" {
		buf.writeString(" logger=")
		appendTextString(buf, r.Logger)
	}
	buf.writeString(" msg=")
	appendTextString(buf, r.Message)

	for i := range r.Fields {
		f := &r.Fields[i]
		buf.writeByte(' ')
		buf.writeString(f.K)
		buf.writeByte('=')
		e.value(buf, f)
	}
}

func (e textEncoder) value(buf *buffer, f *hlog.Field) {
	switch f.Kind {
	case hlog.KindString:
		appendTextString(buf, f.Str)
	case hlog.KindInt64:
		appendInt64(buf, f.Int64)
	case hlog.KindUint64:
		appendUint64(buf, f.Uint64)
	case hlog.KindFloat64:
		appendFloat64(buf, f.Float64, 64)
	case hlog.KindBool:
		appendBool(buf, f.Bool)
	case hlog.KindDuration:
		buf.writeString(f.Dur.String())
	case hlog.KindTime:
		appendTime(buf, f.Time, e.timeFormat)
	case hlog.KindError:
		if f.Err == nil {
			buf.writeString("null")
			return
		}
		appendQuoted(buf, f.Err.Error())
	case hlog.KindBytes:
		buf.writeString("len:")
		appendInt64(buf, int64(len(f.Bytes)))
	case hlog.KindAny:
		if g, ok := scalar(f.K, f.Any); ok {
			e.value(buf, &g)
			return
		}
		// Keep text mode compact and predictable for unknown types.
		buf.writeString("unknown")
	default:
		buf.writeString("null")
	}
}

func (e jsonEncoder) encode(buf *buffer, r *hlog.Record) {
	buf.writeString(`{"ts":"`)
	appendTime(buf, r.At, e.timeFormat)
	buf.writeString(`","level":"`)
	buf.writeString(r.Level.String())
	buf.writeByte('"')
	if r.Logger != "" {
		buf.writeString(`,"logger":`)
		appendQuoted(buf, r.Logger)
	}
	buf.writeString(`,"msg":`)
	appendQuoted(buf, r.Message)

	for i := range r.Fields {
		f := &r.Fields[i]
		buf.writeByte(',')
		appendQuoted(buf, f.K)
		buf.writeByte(':')
		e.value(buf, f)
	}
	buf.writeByte('}')
}

func (e jsonEncoder) value(buf *buffer, f *hlog.Field) {
	switch f.Kind {
	case hlog.KindString:
		appendQuoted(buf, f.Str)
	case hlog.KindInt64:
		appendInt64(buf, f.Int64)
	case hlog.KindUint64:
		appendUint64(buf, f.Uint64)
	case hlog.KindFloat64:
		// JSON validity: NaN/Inf -> null.
		if math.IsNaN(f.Float64) || math.IsInf(f.Float64, 0) {
			buf.writeString("null")
			return
		}
		appendFloat64(buf, f.Float64, 64)
	case hlog.KindBool:
		appendBool(buf, f.Bool)
	case hlog.KindDuration:
		appendQuoted(buf, f.Dur.String())
	case hlog.KindTime:
		buf.writeByte('"')
		appendTime(buf, f.Time, e.timeFormat)
		buf.writeByte('"')
	case hlog.KindError:
		if f.Err == nil {
			buf.writeString("null")
			return
		}
		appendQuoted(buf, f.Err.Error())
	case hlog.KindBytes:
		appendBase64(buf, f.Bytes)
	case hlog.KindAny:
		if f.Any == nil {
			buf.writeString("null")
			return
		}
		if g, ok := scalar(f.K, f.Any); ok {
			e.value(buf, &g)
			return
		}
		// Fallback to json.Marshal for complex/rare values.
		if data, err := json.Marshal(f.Any); err == nil {
			buf.writeBytes(data)
		} else {
			appendQuoted(buf, "marshal_error")
		}
	default:
		buf.writeString("null")
	}
}

// scalar narrows an untyped value to a typed field so both encoders share one
// type switch. ok is false for composite values.
func scalar(k string, v any) (hlog.Field, bool) {
	switch vv := v.(type) {
	case nil:
		return hlog.Field{K: k}, true
	case string:
		return hlog.Str(k, vv), true
	case []byte:
		return hlog.Bytes(k, vv), true
	case bool:
		return hlog.Bool(k, vv), true
	case int:
		return hlog.Int(k, vv), true
	case int8:
		return hlog.Int64(k, int64(vv)), true
	case int16:
		return hlog.Int64(k, int64(vv)), true
	case int32:
		return hlog.Int64(k, int64(vv)), true
	case int64:
		return hlog.Int64(k, vv), true
	case uint:
		return hlog.Uint64(k, uint64(vv)), true
	case uint8:
		return hlog.Uint64(k, uint64(vv)), true
	case uint16:
		return hlog.Uint64(k, uint64(vv)), true
	case uint32:
		return hlog.Uint64(k, uint64(vv)), true
	case uint64:
		return hlog.Uint64(k, vv), true
	case float32:
		return hlog.Float64(k, float64(vv)), true
	case float64:
		return hlog.Float64(k, vv), true
	case time.Time:
		return hlog.Time(k, vv), true
	case time.Duration:
		return hlog.Dur(k, vv), true
	case error:
		return hlog.NamedErr(k, vv), true
	default:
		return hlog.Field{}, false
	}
}
