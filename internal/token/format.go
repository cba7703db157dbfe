package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/risor-io/regasm/errz"
)

// Formatter renders errors with the listing line they point at:
//
//	error[E5003]: invalid register r5
//	  --> main.asm:2:6
//	   |
//	 1 | .locals 1
//	 2 | Ldar r5
//	   |      ^^
type Formatter struct {
	UseColor bool
}

var (
	colorError    = color.New(color.FgHiRed, color.Bold)
	colorCode     = color.New(color.FgHiBlack)
	colorLocation = color.New(color.FgCyan)
	colorGutter   = color.New(color.FgHiBlack)
	colorCaret    = color.New(color.FgHiRed)
)

// NewFormatter returns a Formatter.
func NewFormatter(useColor bool) *Formatter {
	return &Formatter{UseColor: useColor}
}

func (f *Formatter) paint(c *color.Color, s string) string {
	if !f.UseColor {
		return s
	}
	return c.Sprint(s)
}

// Format renders err. src is the listing the error's position refers to.
// Errors without a position render as a single header line.
func (f *Formatter) Format(err error, src string) string {
	var b strings.Builder
	var terr *Error
	if !errors.As(err, &terr) {
		f.writeHeader(&b, err, message(err))
		return b.String()
	}
	f.writeHeader(&b, err, message(terr))

	pos := terr.Position
	width := len(fmt.Sprintf("%d", pos.LineNumber()))
	if width < 2 {
		width = 2
	}
	pad := strings.Repeat(" ", width)

	loc := fmt.Sprintf("%d:%d", pos.LineNumber(), pos.ColumnNumber())
	if pos.File != "" {
		loc = pos.File + ":" + loc
	}
	fmt.Fprintf(&b, "%s%s %s\n", pad, f.paint(colorLocation, "-->"), f.paint(colorLocation, loc))

	lines := strings.Split(src, "\n")
	if pos.Line >= len(lines) {
		return b.String()
	}
	b.WriteString(pad + f.paint(colorGutter, " |") + "\n")
	if pos.Line > 0 && strings.TrimSpace(lines[pos.Line-1]) != "" {
		f.writeLine(&b, width, pos.Line, lines[pos.Line-1])
	}
	text := lines[pos.Line]
	f.writeLine(&b, width, pos.LineNumber(), text)

	caret := strings.Repeat("^", spanAt(text, pos.Column))
	fmt.Fprintf(&b, "%s%s%s%s\n", pad, f.paint(colorGutter, " | "),
		strings.Repeat(" ", pos.Column), f.paint(colorCaret, caret))
	return b.String()
}

func (f *Formatter) writeHeader(b *strings.Builder, err error, msg string) {
	b.WriteString(f.paint(colorError, "error"))
	if code := codeOf(err); code != "" {
		b.WriteString(f.paint(colorCode, "["+code+"]"))
	}
	b.WriteString(": ")
	b.WriteString(msg)
	b.WriteString("\n")
}

func (f *Formatter) writeLine(b *strings.Builder, width, number int, text string) {
	b.WriteString(f.paint(colorGutter, fmt.Sprintf("%*d | ", width, number)))
	b.WriteString(text)
	b.WriteString("\n")
}

// message prefers the innermost friendly message so error codes shown in
// the header are not repeated.
func message(err error) string {
	if terr, ok := err.(*Error); ok && terr.Cause != nil {
		return message(terr.Cause)
	}
	var friendly errz.FriendlyError
	if errors.As(err, &friendly) {
		if ie, ok := friendly.(*errz.InvariantError); ok {
			return ie.Message
		}
		if le, ok := friendly.(*errz.LimitError); ok {
			return le.Message
		}
		return friendly.FriendlyErrorMessage()
	}
	return err.Error()
}

func codeOf(err error) string {
	var ie *errz.InvariantError
	if errors.As(err, &ie) {
		return string(ie.Code)
	}
	var le *errz.LimitError
	if errors.As(err, &le) {
		return string(le.Code)
	}
	return ""
}

// spanAt returns the width of the operand starting at column col of text.
func spanAt(text string, col int) int {
	n := 0
	for i := col; i < len(text); i++ {
		c := text[i]
		if c == ' ' || c == '\t' || c == ',' {
			break
		}
		n++
	}
	if n == 0 {
		return 1
	}
	return n
}
