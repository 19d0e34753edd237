package engine

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine()

	p, evalErrs, err := eng.Evaluate("")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if p == nil {
		t.Fatal("expected non-nil plan")
	}
	if len(p.Steps) != 0 || p.Seed != nil {
		t.Errorf("expected empty plan, got %+v", p)
	}
}

func TestEvaluateWhitespaceOnly(t *testing.T) {
	eng := NewEngine()

	p, evalErrs, err := eng.Evaluate("   \n\t  \n  ")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if p == nil {
		t.Fatal("expected non-nil plan")
	}
	if len(p.Steps) != 0 || p.Seed != nil {
		t.Errorf("expected empty plan, got %+v", p)
	}
}

func TestEvaluateValidExpression(t *testing.T) {
	eng := NewEngine()

	// Plain arithmetic evaluates but adds nothing to the plan.
	p, evalErrs, err := eng.Evaluate("(+ 1 2)")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if p == nil {
		t.Fatal("expected non-nil plan")
	}
	if len(p.Steps) != 0 {
		t.Errorf("expected no steps, got %d", len(p.Steps))
	}
}

func TestEvaluateMultipleExpressions(t *testing.T) {
	eng := NewEngine()

	source := `
(def m 40)
(def step 4)
(mast (+ m 1))
(index (* step 2))
(cut)
`
	p, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if p == nil {
		t.Fatal("expected non-nil plan")
	}
	want := []Step{
		{Kind: StepSet, Param: ParamMast, Value: 41},
		{Kind: StepSet, Param: ParamIndex, Value: 8},
		{Kind: StepCut},
	}
	if len(p.Steps) != len(want) {
		t.Fatalf("got %d steps, want %d: %v", len(p.Steps), len(want), p.Steps)
	}
	for i := range want {
		if p.Steps[i] != want[i] {
			t.Errorf("step %d = %v, want %v", i, p.Steps[i], want[i])
		}
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine()

	// Unmatched paren is a parse error.
	p, evalErrs, err := eng.Evaluate("(+ 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil plan on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}

	// The error message should contain something meaningful.
	msg := evalErrs[0].Message
	if msg == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine()

	// Referencing an undefined symbol should produce an eval error.
	p, evalErrs, err := eng.Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil plan on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvaluateSyntaxErrorHasLineInfo(t *testing.T) {
	eng := NewEngine()

	// Put the error on line 2.
	source := "(+ 1 2)\n(+ 3"
	p, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil plan on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}

	// We expect the line number to be extracted from the zygomys error.
	// Line info may or may not be available depending on the error format;
	// we just check the error is populated.
	e := evalErrs[0]
	if e.Message == "" {
		t.Error("eval error message should not be empty")
	}
	// If line info was extracted, verify it's positive.
	if e.Line > 0 {
		t.Logf("extracted line info: line=%d, message=%q", e.Line, e.Message)
	} else {
		t.Logf("no line info extracted (line=0), message=%q", e.Message)
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Col: 0, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	// No line info.
	e2 := EvalError{Line: 0, Col: 0, Message: "no location"}
	s2 := e2.Error()
	if strings.Contains(s2, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s2)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()

	// Multiple evaluations of the same source should produce equivalent results.
	for i := 0; i < 5; i++ {
		p, evalErrs, err := eng.Evaluate("(facet :mast 45 :index 0) (facet :mast 45 :index 8)")
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		if p == nil {
			t.Fatalf("iteration %d: expected non-nil plan", i)
		}
		if got := p.CutCount(); got != 2 {
			t.Errorf("iteration %d: CutCount() = %d, want 2", i, got)
		}
	}
}

func TestEvaluateTimeout(t *testing.T) {
	// An infinite loop that zygomys can actually run is hard to write in
	// a sandbox, so the timeout plumbing is tested directly with a channel
	// that never sends.
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult)

	start := time.Now()
	_, _, err := waitWithTimeout(ch, 50*time.Millisecond, 1, &mu, &gen)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > EvalTimeout {
		t.Errorf("waited %s, longer than EvalTimeout", elapsed)
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	// Test that a stale generation is detected.
	var mu sync.Mutex
	gen := uint64(2) // Current generation is 2

	ch := make(chan evalResult, 1)
	ch <- evalResult{plan: NewPlan()}

	// Pass generation 1 (stale).
	_, _, err := waitWithTimeout(ch, time.Second, 1, &mu, &gen)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "line format lowercase",
			msg:      "error on line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
