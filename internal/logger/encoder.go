package logger

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "15:04:05"

func newEncoder() *consoleEncoder {
	return &consoleEncoder{
		Encoder: zapcore.NewConsoleEncoder(fieldEncoderConfig),
	}
}

// consoleEncoder renders the entry header itself (time, level, domain, message) and delegates the
// structured fields to a regular zap console encoder so that they end up on a second, indented line.
type consoleEncoder struct {
	zapcore.Encoder
}

func (c *consoleEncoder) Clone() zapcore.Encoder {
	return &consoleEncoder{Encoder: c.Encoder.Clone()}
}

func (c *consoleEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line := pool.Get()

	hdr := &headerEncoder{}
	hdr.AppendString(ent.Time.Format(timeLayout))
	levelEncoder(ent.Level, hdr)
	nameEncoder(ent.LoggerName, hdr)
	hdr.AppendString(ent.Message)
	line.AppendString(strings.Join(hdr.elems, " "))

	if ent.Level == zapcore.InfoLevel {
		// Info is the user-facing level: keep it to the message only.
		line.AppendByte('\n')
		return line, nil
	}

	b, err := c.Encoder.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return nil, err
	}
	defer b.Free()

	if rest := bytes.TrimSpace(b.Bytes()); len(rest) > 0 {
		line.AppendString(fieldPrefix)
		_, _ = line.Write(rest)
	}
	line.AppendByte('\n')
	return line, nil
}

var (
	pool = buffer.NewPool()

	// No keys are set as the header is rendered separately.
	fieldEncoderConfig = zapcore.EncoderConfig{
		EncodeLevel:    zapcore.LowercaseColorLevelEncoder,
		EncodeTime:     func(t time.Time, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(t.Format(timeLayout)) },
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	levelToColor = map[zapcore.Level]*color.Color{
		zapcore.DPanicLevel: color.New(color.FgHiRed),
		zapcore.PanicLevel:  color.New(color.FgHiRed),
		zapcore.FatalLevel:  color.New(color.FgRed),
		zapcore.ErrorLevel:  color.New(color.FgRed),
		zapcore.WarnLevel:   color.New(color.FgYellow),
		zapcore.InfoLevel:   color.New(color.FgBlue),
		zapcore.DebugLevel:  color.New(color.FgMagenta),
	}
)

func levelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if c, ok := levelToColor[l]; ok {
		enc.AppendString(c.Sprintf("%-7s", l))
		return
	}
	enc.AppendString(fmt.Sprintf("%-7s", l))
}

var (
	nameEncoderPattern string
	fieldPrefix        string
)

func init() {
	var l int
	for n := range domainFromString {
		if l < len(n) {
			l = len(n)
		}
	}
	nameEncoderPattern = fmt.Sprintf("%%-%ds", l)
	// 8 for the time, 7 for the level, the domain width and one separator after each of them.
	fieldPrefix = "\n" + strings.Repeat(" ", 8+7+l+3)
}

func nameEncoder(name string, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(fmt.Sprintf(nameEncoderPattern, name))
}

// headerEncoder collects the rendered header elements in order.
type headerEncoder struct {
	elems []string
}

func (h *headerEncoder) add(v interface{}) { h.elems = append(h.elems, fmt.Sprint(v)) }

func (h *headerEncoder) AppendBool(v bool)             { h.add(v) }
func (h *headerEncoder) AppendByteString(v []byte)     { h.add(string(v)) }
func (h *headerEncoder) AppendComplex128(v complex128) { h.add(v) }
func (h *headerEncoder) AppendComplex64(v complex64)   { h.add(v) }
func (h *headerEncoder) AppendFloat64(v float64)       { h.add(v) }
func (h *headerEncoder) AppendFloat32(v float32)       { h.add(v) }
func (h *headerEncoder) AppendInt(v int)               { h.add(v) }
func (h *headerEncoder) AppendInt64(v int64)           { h.add(v) }
func (h *headerEncoder) AppendInt32(v int32)           { h.add(v) }
func (h *headerEncoder) AppendInt16(v int16)           { h.add(v) }
func (h *headerEncoder) AppendInt8(v int8)             { h.add(v) }
func (h *headerEncoder) AppendString(v string)         { h.elems = append(h.elems, v) }
func (h *headerEncoder) AppendUint(v uint)             { h.add(v) }
func (h *headerEncoder) AppendUint64(v uint64)         { h.add(v) }
func (h *headerEncoder) AppendUint32(v uint32)         { h.add(v) }
func (h *headerEncoder) AppendUint16(v uint16)         { h.add(v) }
func (h *headerEncoder) AppendUint8(v uint8)           { h.add(v) }
func (h *headerEncoder) AppendUintptr(v uintptr)       { h.add(v) }
