// Package reasoner implements the fallback classification path: a symbolic
// micro-calculus, a small arithmetic evaluator and a benign default,
// narrating every attempt into the trace buffer.
package reasoner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thosperis/logmind/internal/trace"
	"github.com/thosperis/logmind/internal/verdict"
)

// #region tracer

// Tracer receives the reasoning narrative. *trace.Buffer satisfies it; tests
// substitute a recorder.
type Tracer interface {
	Append(content, category string) trace.Layer
}

// #endregion tracer

// #region reasoner

// Reasoner is the rule-based strategy consulted when associative recall is
// not confident enough.
type Reasoner struct {
	tracer Tracer
}

// New returns a Reasoner narrating into tracer.
func New(tracer Tracer) *Reasoner {
	return &Reasoner{tracer: tracer}
}

// Solve works through the strategies in fixed order: symbolic calculus,
// arithmetic evaluation, then the benign default. The first strategy that
// produces a result wins; failures are recorded in the narrative, never
// raised.
func (r *Reasoner) Solve(subject string) verdict.Label {
	r.tracer.Append(fmt.Sprintf("examining %q", subject), trace.CategoryProblemRecognition)

	if result, ok := r.solveCalculus(subject); ok {
		return verdict.Computed(result)
	}
	if result, ok := r.solveArithmetic(subject); ok {
		return verdict.Computed(result)
	}
	r.tracer.Append("no recognizable structure; treating as benign", trace.CategoryComprehension)
	return verdict.Benign
}

// #endregion reasoner

// #region calculus

// Fixed rule tables for the supported expressions. The directions are not
// symmetric: tan(x) only differentiates, sec^2(x) only integrates.
var derivTable = map[string]string{
	"x":      "1",
	"sin(x)": "cos(x)",
	"cos(x)": "-sin(x)",
	"tan(x)": "sec^2(x)",
}

var integTable = map[string]string{
	"x":        "x^2/2",
	"sin(x)":   "-cos(x)",
	"cos(x)":   "sin(x)",
	"sec^2(x)": "tan(x)",
}

// solveCalculus fires when the subject contains a literal command word; the
// expression is the following token. An unsupported expression records an
// error layer and falls through to the arithmetic branch.
func (r *Reasoner) solveCalculus(subject string) (string, bool) {
	fields := strings.Fields(strings.ToLower(subject))
	for i, f := range fields {
		var differentiate bool
		switch f {
		case "differentiate":
			differentiate = true
		case "integrate":
		default:
			continue
		}
		if i+1 >= len(fields) {
			return "", false
		}
		expr := fields[i+1]
		result, ok := applyRule(expr, differentiate)
		if !ok {
			r.tracer.Append(fmt.Sprintf("no %s rule for %q", f, expr), trace.CategoryError)
			return "", false
		}
		r.tracer.Append(fmt.Sprintf("%s %s via table rule", f, expr), trace.CategorySymbolicCalcStep)
		r.tracer.Append(fmt.Sprintf("%s %s = %s", f, expr, result), trace.CategorySolution)
		return result, true
	}
	return "", false
}

// applyRule consults the fixed table, then the power rule for x^n.
func applyRule(expr string, differentiate bool) (string, bool) {
	table := integTable
	if differentiate {
		table = derivTable
	}
	if result, ok := table[expr]; ok {
		return result, true
	}
	n, ok := powerOf(expr)
	if !ok {
		return "", false
	}
	if differentiate {
		if n == 2 {
			return "2*x", true
		}
		return fmt.Sprintf("%d*x^%d", n, n-1), true
	}
	return fmt.Sprintf("x^%d/%d", n+1, n+1), true
}

// powerOf parses "x^n" for integer n >= 2. Lower powers live in the tables.
func powerOf(expr string) (int, bool) {
	rest, ok := strings.CutPrefix(expr, "x^")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 2 {
		return 0, false
	}
	return n, true
}

// #endregion calculus

// #region arithmetic

// solveArithmetic fires when the subject contains any operator character.
// Evaluation failures are recorded and swallowed so hostile input shaped
// like "5+" can never escape the loop.
func (r *Reasoner) solveArithmetic(subject string) (string, bool) {
	if !strings.ContainsAny(subject, "+-*/^") {
		return "", false
	}
	value, err := evalArith(subject)
	if err != nil {
		r.tracer.Append(fmt.Sprintf("arithmetic evaluation failed: %v", err), trace.CategoryError)
		return "", false
	}
	result := strconv.FormatFloat(value, 'g', -1, 64)
	r.tracer.Append(fmt.Sprintf("%s = %s", strings.TrimSpace(subject), result), trace.CategorySolution)
	return result, true
}

// #endregion arithmetic
