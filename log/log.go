// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package log provides the structured, leveled logger used throughout the
// engine. It mirrors the key-value logging style the rest of the corpus
// uses (Debug/Info/Warn/Error/Crit, alternating key then value), with a
// terminal handler that colors by level when writing to a TTY.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
)

// Lvl is a log severity level, ordered from most to least severe.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	case LvlTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// Record is a single log event.
type Record struct {
	Time    time.Time
	Lvl     Lvl
	Msg     string
	Ctx     []interface{}
	Call    stack.Call // only meaningful when HasCall is true
	HasCall bool       // true for Crit records, where the caller frame is captured
}

// Handler processes a Record, e.g. by writing it somewhere.
type Handler interface {
	Log(r *Record) error
}

// Logger emits leveled, structured log records carrying an inherited context.
type Logger interface {
	New(ctx ...interface{}) Logger

	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})

	GetHandler() Handler
	SetHandler(h Handler)
}

type logger struct {
	ctx []interface{}
	mu  sync.Mutex
	h   Handler
}

// New creates a root logger. ctx is a flat list of alternating key, value
// pairs attached to every record emitted by the logger and its children.
func New(ctx ...interface{}) Logger {
	useColor := isTerminal(os.Stderr)
	var w io.Writer = os.Stderr
	if useColor {
		w = colorable.NewColorable(os.Stderr)
	}
	return &logger{
		ctx: normalize(ctx),
		h:   StreamHandler(w, TerminalFormat(useColor)),
	}
}

func (l *logger) write(msg string, lvl Lvl, ctx []interface{}) {
	r := &Record{
		Time: time.Now(),
		Lvl:  lvl,
		Msg:  msg,
		Ctx:  append(append([]interface{}{}, l.ctx...), normalize(ctx)...),
	}
	if lvl == LvlCrit {
		// Capture the caller two frames up (skip write + the Crit method).
		r.Call = stack.Caller(2)
		r.HasCall = true
	}
	l.mu.Lock()
	h := l.h
	l.mu.Unlock()
	if h != nil {
		_ = h.Log(r)
	}
}

func (l *logger) New(ctx ...interface{}) Logger {
	l.mu.Lock()
	h := l.h
	l.mu.Unlock()
	return &logger{ctx: append(append([]interface{}{}, l.ctx...), normalize(ctx)...), h: h}
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(msg, LvlTrace, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(msg, LvlDebug, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(msg, LvlInfo, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(msg, LvlWarn, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(msg, LvlError, ctx) }
func (l *logger) Crit(msg string, ctx ...interface{})  { l.write(msg, LvlCrit, ctx) }

func (l *logger) GetHandler() Handler {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h
}

func (l *logger) SetHandler(h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.h = h
}

// normalize pads an odd-length context with a trailing "LOGMSG_ERROR" marker,
// same convention as the rest of the corpus's key-value loggers.
func normalize(ctx []interface{}) []interface{} {
	if len(ctx)%2 != 0 {
		ctx = append(ctx, "LOGMSG_ERROR", fmt.Sprintf("normalize: odd number of arguments: %d", len(ctx)))
	}
	return ctx
}

var root = New()

// Root returns the default logger used by the package-level Trace/.../Crit helpers.
func Root() Logger { return root }

func Trace(msg string, ctx ...interface{}) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { root.Error(msg, ctx...) }
func Crit(msg string, ctx ...interface{})  { root.Crit(msg, ctx...) }
