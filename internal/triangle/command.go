package triangle

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Mode selects how successive vertex commands group into triangles.
type Mode int

const (
	ModeTriangles Mode = iota
	ModeStrip
	ModeFan
)

// A ParseError reports a malformed command line; the interpreter skips the
// offending line and continues without disturbing rasterizer state.
type ParseError struct {
	Line    int
	Text    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("triangle: line %d: %s: %q", e.Line, e.Message, e.Text)
}

// Flusher receives a completed frame buffer when the "print"/"!" command
// fires; it owns the PAM encoding, keeping the interpreter decoupled from
// any particular output codec.
type Flusher interface {
	FlushFrame(c *Context) error
}

// Interpreter drives a Context from the whitespace-delimited text
// protocol described in spec.md §4.6.
type Interpreter struct {
	Ctx     *Context
	Flush   Flusher
	Errors  []*ParseError

	mode    Mode
	attribs []int
	pending []Vertex // buffered vertices awaiting a full triangle
}

// NewInterpreter wires an interpreter to an already-constructed Context.
func NewInterpreter(ctx *Context, flush Flusher) *Interpreter {
	return &Interpreter{Ctx: ctx, Flush: flush}
}

// Run consumes commands from r until EOF or a "quit" command, recording
// (not stopping on) parse errors.
func (ip *Interpreter) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if quit, err := ip.execute(lineNo, trimmed); err != nil {
			ip.Errors = append(ip.Errors, err.(*ParseError))
		} else if quit {
			return nil
		}
	}
	return scanner.Err()
}

func (ip *Interpreter) execute(lineNo int, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "mode":
		return false, ip.cmdMode(lineNo, line, args)
	case "attribs":
		return false, ip.cmdAttribs(lineNo, line, args)
	case "vertex":
		return false, ip.cmdVertex(lineNo, line, args)
	case "print", "!":
		return false, ip.cmdPrint(lineNo, line)
	case "clear":
		return false, ip.cmdClear(lineNo, line, args)
	case "reset":
		return false, ip.cmdReset(lineNo, line, args)
	case "quit":
		return true, nil
	default:
		return false, &ParseError{Line: lineNo, Text: line, Message: "unknown command"}
	}
}

func (ip *Interpreter) cmdMode(lineNo int, line string, args []string) error {
	if len(args) != 1 {
		return &ParseError{Line: lineNo, Text: line, Message: "mode requires exactly one argument"}
	}
	switch args[0] {
	case "triangles":
		ip.mode = ModeTriangles
	case "strip":
		ip.mode = ModeStrip
	case "fan":
		ip.mode = ModeFan
	default:
		return &ParseError{Line: lineNo, Text: line, Message: "unknown mode"}
	}
	ip.pending = ip.pending[:0]
	return nil
}

func (ip *Interpreter) cmdAttribs(lineNo int, line string, args []string) error {
	vals := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return &ParseError{Line: lineNo, Text: line, Message: "non-integer attribute"}
		}
		vals[i] = v
	}
	ip.attribs = vals
	return nil
}

func (ip *Interpreter) cmdVertex(lineNo int, line string, args []string) error {
	if len(args) != 3 && len(args) != 4 {
		return &ParseError{Line: lineNo, Text: line, Message: "vertex requires x y z [w]"}
	}
	nums := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return &ParseError{Line: lineNo, Text: line, Message: "non-integer coordinate"}
		}
		nums[i] = v
	}
	w := 1
	if len(args) == 4 {
		w = nums[3]
	}
	v := Vertex{X: nums[0], Y: nums[1], Z: nums[2], W: w, Attrs: append([]int(nil), ip.attribs...)}
	ip.pending = append(ip.pending, v)
	ip.tryDraw()
	return nil
}

// tryDraw emits triangles from the pending vertex buffer according to the
// active grouping mode, without disturbing buffered state on partial
// groups.
func (ip *Interpreter) tryDraw() {
	switch ip.mode {
	case ModeTriangles:
		if len(ip.pending) == 3 {
			ip.Ctx.DrawTriangle(ip.pending[0], ip.pending[1], ip.pending[2])
			ip.pending = ip.pending[:0]
		}
	case ModeStrip:
		if len(ip.pending) >= 3 {
			n := len(ip.pending)
			ip.Ctx.DrawTriangle(ip.pending[n-3], ip.pending[n-2], ip.pending[n-1])
		}
	case ModeFan:
		if len(ip.pending) >= 3 {
			n := len(ip.pending)
			ip.Ctx.DrawTriangle(ip.pending[0], ip.pending[n-2], ip.pending[n-1])
		}
	}
}

func (ip *Interpreter) cmdPrint(lineNo int, line string) error {
	if ip.Flush == nil {
		return &ParseError{Line: lineNo, Text: line, Message: "no flush target configured"}
	}
	if err := ip.Flush.FlushFrame(ip.Ctx); err != nil {
		return &ParseError{Line: lineNo, Text: line, Message: errors.Wrap(err, "flush failed").Error()}
	}
	return nil
}

func (ip *Interpreter) cmdClear(lineNo int, line string, args []string) error {
	target := "image"
	if len(args) == 1 {
		target = args[0]
	} else if len(args) > 1 {
		return &ParseError{Line: lineNo, Text: line, Message: "clear takes at most one argument"}
	}
	switch target {
	case "image":
		ip.Ctx.ClearImage()
	case "depth", "z":
		ip.Ctx.ClearDepth()
	default:
		return &ParseError{Line: lineNo, Text: line, Message: "unknown clear target"}
	}
	return nil
}

func (ip *Interpreter) cmdReset(lineNo int, line string, args []string) error {
	if len(args) != 2 && len(args) != 3 {
		return &ParseError{Line: lineNo, Text: line, Message: "reset requires maxval nAttribs [tupletype]"}
	}
	maxval, err := strconv.Atoi(args[0])
	if err != nil {
		return &ParseError{Line: lineNo, Text: line, Message: "non-integer maxval"}
	}
	nAttribs, err := strconv.Atoi(args[1])
	if err != nil {
		return &ParseError{Line: lineNo, Text: line, Message: "non-integer attribute count"}
	}
	tupleType := ""
	if len(args) == 3 {
		tupleType = args[2]
	}
	if err := ip.Ctx.Reset(maxval, nAttribs, tupleType); err != nil {
		return &ParseError{Line: lineNo, Text: line, Message: err.Error()}
	}
	ip.pending = ip.pending[:0]
	return nil
}
