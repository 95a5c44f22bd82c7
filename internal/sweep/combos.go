// Package sweep parses parameter-sweep expressions (comma-separated value
// lists per setting) and iterates the Cartesian product of all settings as
// immutable combos.
package sweep

import (
	"fmt"
	"strconv"
	"strings"
)

type setting struct {
	name   string
	raw    []string
	values []float64
}

// Combos is an ordered collection of swept settings. The declaration order
// fixes the iteration order: the last-added setting varies fastest.
type Combos struct {
	settings []setting
}

func New() *Combos {
	return &Combos{}
}

// Add declares a setting from its sweep expression, e.g. "0,4,8". Every
// value must parse as a number; a bad value is a configuration fault naming
// the setting.
func (c *Combos) Add(name, expr string) error {
	parts := strings.Split(expr, ",")
	s := setting{name: name}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return fmt.Errorf("setting %s: empty value in sweep %q", name, expr)
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return fmt.Errorf("setting %s: bad value %q", name, part)
		}
		s.raw = append(s.raw, part)
		s.values = append(s.values, v)
	}
	c.settings = append(c.settings, s)
	return nil
}

// Headers lists the setting names in declaration order.
func (c *Combos) Headers() []string {
	names := make([]string, len(c.settings))
	for i, s := range c.settings {
		names[i] = s.name
	}
	return names
}

// Count is the size of the Cartesian product.
func (c *Combos) Count() int {
	count := 1
	for _, s := range c.settings {
		count *= len(s.values)
	}
	return count
}

// Combo is one point of the product: a fixed value per setting.
type Combo struct {
	ID    int
	names []string
	raw   []string
	vals  []float64
}

// Value returns the setting's value in this combo.
func (co Combo) Value(name string) float64 {
	for i, n := range co.names {
		if n == name {
			return co.vals[i]
		}
	}
	panic(fmt.Sprintf("sweep: unknown setting %q", name))
}

// Int returns the setting's value truncated to int.
func (co Combo) Int(name string) int { return int(co.Value(name)) }

// Row renders the combo's values in declaration order, for CSV output.
func (co Combo) Row() []string {
	row := make([]string, len(co.raw))
	copy(row, co.raw)
	return row
}

// String joins the combo's values with the separator.
func (co Combo) String(sep string) string {
	return strings.Join(co.raw, sep)
}

// Iterator walks the Cartesian product in odometer order.
type Iterator struct {
	c       *Combos
	idx     []int
	id      int
	started bool
	done    bool
}

func (c *Combos) Iter() *Iterator {
	return &Iterator{c: c, idx: make([]int, len(c.settings))}
}

// Next advances to the next combo; the first call lands on the first one.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if !it.started {
		it.started = true
		return true
	}
	// Advance the odometer from the rightmost digit.
	for i := len(it.idx) - 1; i >= 0; i-- {
		it.idx[i]++
		if it.idx[i] < len(it.c.settings[i].values) {
			it.id++
			return true
		}
		it.idx[i] = 0
	}
	it.done = true
	return false
}

// Combo materializes the current point. Only valid after Next returned true.
func (it *Iterator) Combo() Combo {
	co := Combo{
		ID:    it.id,
		names: make([]string, len(it.idx)),
		raw:   make([]string, len(it.idx)),
		vals:  make([]float64, len(it.idx)),
	}
	for i, s := range it.c.settings {
		co.names[i] = s.name
		co.raw[i] = s.raw[it.idx[i]]
		co.vals[i] = s.values[it.idx[i]]
	}
	return co
}
