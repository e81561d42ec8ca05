package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Console writes leveled, colored messages to a single writer. It is
// constructed once at process start and passed down through component
// constructors.
type Console struct {
	out     io.Writer
	info    *color.Color
	warn    *color.Color
	err     *color.Color
	work    *color.Color
	success *color.Color
}

func NewConsole() *Console {
	return &Console{
		out:     os.Stderr,
		info:    color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		err:     color.New(color.FgRed),
		work:    color.New(color.FgBlue),
		success: color.New(color.FgCyan),
	}
}

// NewConsoleWriter is NewConsole with an explicit destination.
func NewConsoleWriter(w io.Writer) *Console {
	c := NewConsole()
	c.out = w
	return c
}

func (c *Console) Info(format string, args ...any) {
	c.info.Fprintln(c.out, fmt.Sprintf(format, args...))
}

func (c *Console) Warn(format string, args ...any) {
	c.warn.Fprintln(c.out, "warning: "+fmt.Sprintf(format, args...))
}

func (c *Console) Error(format string, args ...any) {
	c.err.Fprintln(c.out, "error: "+fmt.Sprintf(format, args...))
}

func (c *Console) Processing(format string, args ...any) {
	c.work.Fprintln(c.out, fmt.Sprintf(format, args...))
}

func (c *Console) Success(format string, args ...any) {
	c.success.Fprintln(c.out, fmt.Sprintf(format, args...))
}

// Silent discards everything. Used by tests and as the default when a
// constructor receives a nil logger.
type Silent struct{}

func (Silent) Info(string, ...any)       {}
func (Silent) Warn(string, ...any)       {}
func (Silent) Error(string, ...any)      {}
func (Silent) Processing(string, ...any) {}
func (Silent) Success(string, ...any)    {}
