// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lincheck

import (
	"fmt"
	"math/rand/v2"
	"reflect"
	"strings"
)

// Gen produces argument values for one operation parameter.
//
// Generators must be deterministic with respect to the supplied source:
// scenarios are reproduced from actor seeds alone.
type Gen interface {
	Generate(r *rand.Rand) any
	String() string
}

// IntGen draws integers uniformly from the inclusive range [Min, Max].
type IntGen struct {
	Min, Max int
}

// Generate returns an int in [g.Min, g.Max].
func (g IntGen) Generate(r *rand.Rand) any {
	if g.Max <= g.Min {
		return g.Min
	}
	return g.Min + r.IntN(g.Max-g.Min+1)
}

func (g IntGen) validate() error {
	if g.Max < g.Min {
		return configErrorf("empty range %s", g)
	}
	return nil
}

func (g IntGen) String() string {
	return fmt.Sprintf("int[%d..%d]", g.Min, g.Max)
}

// Choice draws one of a fixed set of values.
type Choice struct {
	Values []any
}

// Generate returns one of c.Values, or nil when the set is empty.
func (c Choice) Generate(r *rand.Rand) any {
	if len(c.Values) == 0 {
		return nil
	}
	return c.Values[r.IntN(len(c.Values))]
}

func (c Choice) validate() error {
	if len(c.Values) == 0 {
		return configErrorf("choice without values")
	}
	return nil
}

func (c Choice) String() string {
	parts := make([]string, len(c.Values))
	for i, v := range c.Values {
		parts[i] = formatValue(v)
	}
	return "one of {" + strings.Join(parts, ", ") + "}"
}

// Equaler is implemented by result values that cannot be compared with ==.
//
// Result values returned by [Variant.Call] and [Operation.Seq] must either be
// comparable or implement Equaler.
type Equaler interface {
	Equal(other any) bool
}

// Panicked is recorded as the result of an operation that panicked.
// A sequential model never produces it, so a panic always diverges.
type Panicked struct {
	Value any
}

func (p Panicked) String() string {
	return fmt.Sprintf("panic(%v)", p.Value)
}

// equalResults compares a recorded result with a model result.
func equalResults(recorded, expected any) bool {
	if e, ok := recorded.(Equaler); ok {
		return e.Equal(expected)
	}
	if e, ok := expected.(Equaler); ok {
		return e.Equal(recorded)
	}
	if recorded == nil || expected == nil {
		return recorded == nil && expected == nil
	}
	if !reflect.TypeOf(recorded).Comparable() || !reflect.TypeOf(expected).Comparable() {
		return false
	}
	return recorded == expected
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "void"
	case string:
		return fmt.Sprintf("%q", x)
	default:
		return fmt.Sprint(x)
	}
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatValue(a)
	}
	return strings.Join(parts, ", ")
}
