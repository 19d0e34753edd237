package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/facet/pkg/kinematics"
	"github.com/chazu/facet/pkg/seed"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// number reads a required numeric keyword argument.
func (a kwArgs) number(fn, key string) (float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return 0, fmt.Errorf("%s: missing :%s", fn, key)
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	return f, nil
}

// optNumber reads an optional numeric keyword argument.
func (a kwArgs) optNumber(fn, key string) (float64, bool, error) {
	if _, ok := a.kw[key]; !ok {
		return 0, false, nil
	}
	f, err := a.number(fn, key)
	return f, err == nil, err
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_cube) and plain strings ("cube").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// single reads the one numeric argument of a setter builtin.
func single(fn string, args []zygo.Sexp) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s requires exactly 1 argument, got %d", fn, len(args))
	}
	f, err := toFloat64(args[0])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", fn, err)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the faceting builtins into a zygomys
// environment. Each builtin appends to plan; index positions are checked
// against an index gear with the given number of teeth.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, plan *Plan, teeth int) {
	check := map[Param]func(float64) error{
		ParamMast:      kinematics.CheckMastAngle,
		ParamRotation:  kinematics.CheckRotation,
		ParamIndex:     func(v float64) error { return kinematics.CheckIndex(v, teeth) },
		ParamDopLength: kinematics.CheckDopLength,
	}
	set := func(fn string, param Param, v float64) error {
		if err := check[param](v); err != nil {
			return fmt.Errorf("%s: %w", fn, err)
		}
		plan.set(param, v)
		return nil
	}

	// -----------------------------------------------------------------------
	// (seed :shape :round :size 1)
	// -----------------------------------------------------------------------
	env.AddFunction("seed", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(plan.Steps) > 0 {
			return zygo.SexpNull, fmt.Errorf("seed: must come before any pose change or cut")
		}
		pa := parseArgs(args)
		spec := SeedSpec{Shape: seed.Round, Size: 1}

		if v, ok := pa.kw["shape"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("seed: shape: %w", err)
			}
			shape, err := seed.ParseShape(s)
			if err != nil {
				return zygo.SexpNull, err
			}
			spec.Shape = shape
		}
		size, ok, err := pa.optNumber("seed", "size")
		if err != nil {
			return zygo.SexpNull, err
		}
		if ok {
			if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
				return zygo.SexpNull, fmt.Errorf("seed: size must be positive, got %g", size)
			}
			spec.Size = size
		}

		plan.Seed = &spec
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (mast 45) (rotation 90) (index 4) (dop-length 3)
	// -----------------------------------------------------------------------
	for fn, param := range map[string]Param{
		"mast":       ParamMast,
		"rotation":   ParamRotation,
		"index":      ParamIndex,
		"dop_length": ParamDopLength,
	} {
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			v, err := single(string(param), args)
			if err != nil {
				return zygo.SexpNull, err
			}
			return zygo.SexpNull, set(string(param), param, v)
		})
	}

	// -----------------------------------------------------------------------
	// (cut)
	// -----------------------------------------------------------------------
	env.AddFunction("cut", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 0 {
			return zygo.SexpNull, fmt.Errorf("cut takes no arguments, got %d", len(args))
		}
		plan.cut()
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (facet :mast 41 :index 4 :rotation 0)
	// -----------------------------------------------------------------------
	env.AddFunction("facet", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		mast, err := pa.number("facet", "mast")
		if err != nil {
			return zygo.SexpNull, err
		}
		index, err := pa.number("facet", "index")
		if err != nil {
			return zygo.SexpNull, err
		}
		rot, hasRot, err := pa.optNumber("facet", "rotation")
		if err != nil {
			return zygo.SexpNull, err
		}

		if err := set("facet", ParamMast, mast); err != nil {
			return zygo.SexpNull, err
		}
		if hasRot {
			if err := set("facet", ParamRotation, rot); err != nil {
				return zygo.SexpNull, err
			}
		}
		if err := set("facet", ParamIndex, index); err != nil {
			return zygo.SexpNull, err
		}
		plan.cut()
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (tier :mast 41 :indexes (list 0 4 8 12) :rotation 0)
	// (tier :mast 41 :symmetry 8 :start 1)
	// -----------------------------------------------------------------------
	env.AddFunction("tier", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		mast, err := pa.number("tier", "mast")
		if err != nil {
			return zygo.SexpNull, err
		}
		rot, hasRot, err := pa.optNumber("tier", "rotation")
		if err != nil {
			return zygo.SexpNull, err
		}

		var indexes []float64
		if v, ok := pa.kw["indexes"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("tier: indexes: %w", err)
			}
			for i, item := range items {
				f, err := toFloat64(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("tier: index entry %d: %w", i, err)
				}
				indexes = append(indexes, f)
			}
		} else if _, ok := pa.kw["symmetry"]; ok {
			indexes, err = symmetricIndexes(pa, teeth)
			if err != nil {
				return zygo.SexpNull, err
			}
		} else {
			return zygo.SexpNull, fmt.Errorf("tier: requires :indexes or :symmetry")
		}
		if len(indexes) == 0 {
			return zygo.SexpNull, fmt.Errorf("tier: no index positions")
		}

		if err := set("tier", ParamMast, mast); err != nil {
			return zygo.SexpNull, err
		}
		if hasRot {
			if err := set("tier", ParamRotation, rot); err != nil {
				return zygo.SexpNull, err
			}
		}
		for _, idx := range indexes {
			if err := set("tier", ParamIndex, idx); err != nil {
				return zygo.SexpNull, err
			}
			plan.cut()
		}
		return zygo.SexpNull, nil
	})
}

// symmetricIndexes spreads n index positions evenly around the gear,
// starting from :start (default 0).
func symmetricIndexes(pa kwArgs, teeth int) ([]float64, error) {
	n, err := pa.number("tier", "symmetry")
	if err != nil {
		return nil, err
	}
	if n < 1 || n != math.Trunc(n) {
		return nil, fmt.Errorf("tier: symmetry must be a positive integer, got %g", n)
	}
	start, _, err := pa.optNumber("tier", "start")
	if err != nil {
		return nil, err
	}
	step := float64(teeth) / n
	out := make([]float64, int(n))
	for i := range out {
		out[i] = math.Mod(start+float64(i)*step, float64(teeth))
	}
	return out, nil
}
