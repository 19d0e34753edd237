// Package engine evaluates faceting scripts. A script is a small Lisp
// program, run in a sandboxed zygomys environment, that describes a
// faceting diagram: the seed stone and the sequence of machine settings
// and cuts. Evaluation produces a Plan; it never touches a stone.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/facet/pkg/kinematics"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	teeth      int
}

// NewEngine creates an Engine for a machine with the default index gear.
func NewEngine() *Engine {
	return &Engine{teeth: kinematics.DefaultTeeth}
}

// NewEngineWithTeeth creates an Engine that validates index positions
// against an index gear with the given number of teeth.
func NewEngineWithTeeth(teeth int) *Engine {
	if teeth <= 0 {
		teeth = kinematics.DefaultTeeth
	}
	return &Engine{teeth: teeth}
}

// Evaluate takes Lisp source code and produces a faceting Plan.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns plan + nil errors + nil error
//   - On parse/eval failure: returns nil plan + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Plan, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		p, evalErrs, err := e.evaluate(source)
		ch <- evalResult{plan: p, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, EvalTimeout, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Plan, []EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return NewPlan(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	plan := NewPlan()
	registerBuiltins(env, plan, e.teeth)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}

	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	return plan, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
