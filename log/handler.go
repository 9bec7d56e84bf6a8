// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// StreamHandler writes formatted records to w.
func StreamHandler(w io.Writer, fmtr func(*Record) []byte) Handler {
	h := &streamHandler{w: w, fmtr: fmtr}
	return h
}

type streamHandler struct {
	mu   sync.Mutex
	w    io.Writer
	fmtr func(*Record) []byte
}

func (h *streamHandler) Log(r *Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(h.fmtr(r))
	return err
}

// LvlFilterHandler wraps h, dropping any record more verbose than maxLvl.
func LvlFilterHandler(maxLvl Lvl, h Handler) Handler {
	return &lvlFilter{maxLvl: maxLvl, h: h}
}

type lvlFilter struct {
	maxLvl Lvl
	h      Handler
}

func (f *lvlFilter) Log(r *Record) error {
	if r.Lvl > f.maxLvl {
		return nil
	}
	return f.h.Log(r)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var lvlColor = map[Lvl]*color.Color{
	LvlCrit:  color.New(color.FgMagenta, color.Bold),
	LvlError: color.New(color.FgRed),
	LvlWarn:  color.New(color.FgYellow),
	LvlInfo:  color.New(color.FgGreen),
	LvlDebug: color.New(color.FgCyan),
	LvlTrace: color.New(color.FgWhite),
}

// TerminalFormat renders a record as a single human-readable line. When
// color is true, the level tag is colorized for TTY output (using
// mattn/go-colorable upstream of this writer to make that safe on Windows).
func TerminalFormat(useColor bool) func(*Record) []byte {
	return func(r *Record) []byte {
		lvl := r.Lvl.String()
		if useColor {
			if c, ok := lvlColor[r.Lvl]; ok {
				lvl = c.Sprint(lvl)
			}
		}
		b := []byte(fmt.Sprintf("[%s] %-5s %s", r.Time.Format("15:04:05.000"), lvl, r.Msg))
		for i := 0; i+1 < len(r.Ctx); i += 2 {
			b = append(b, fmt.Sprintf(" %v=%v", r.Ctx[i], r.Ctx[i+1])...)
		}
		if r.HasCall {
			b = append(b, fmt.Sprintf(" caller=%+v", r.Call)...)
		}
		return append(b, '\n')
	}
}
