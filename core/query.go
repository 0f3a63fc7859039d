package core

import (
	"fmt"
	"math"
	"slices"

	"github.com/Knetic/govaluate"

	"github.com/signalsfoundry/spill-simulator/elements"
)

// queryFunctions are available in SpillData conditions.
var queryFunctions = map[string]govaluate.ExpressionFunction{
	"abs": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("got %d arguments for function 'abs', but needs 1", len(args))
		}
		v, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("abs: argument is %T, not a number", args[0])
		}
		return math.Abs(v), nil
	},
}

func (m *Model) container(uncertain bool) (*elements.SpillContainer, error) {
	if !uncertain {
		return m.spills.Certain(), nil
	}
	if sc := m.spills.Uncertain(); sc != nil {
		return sc, nil
	}
	return nil, ErrNoUncertainData
}

// ListSpillProperties names the element arrays of the certain container.
func (m *Model) ListSpillProperties() []string {
	names := m.spills.Certain().ArrayNames()
	slices.Sort(names)
	return names
}

// SpillProperty returns the named element array of one realization.
func (m *Model) SpillProperty(name string, uncertain bool) (*elements.Array, error) {
	sc, err := m.container(uncertain)
	if err != nil {
		return nil, err
	}
	return sc.Lookup(name)
}

// SpillData evaluates condition for every element and returns, for each
// target, the values of the elements it holds for. An empty condition
// selects every element.
//
// Targets and condition variables use the same names: lon, lat and z for
// positions, the array name for single-valued arrays and name_j for column
// j of wider arrays (mass_components_0).
func (m *Model) SpillData(targets []string, condition string, uncertain bool) (map[string][]float64, error) {
	sc, err := m.container(uncertain)
	if err != nil {
		return nil, err
	}

	var expr *govaluate.EvaluableExpression
	if condition != "" {
		expr, err = govaluate.NewEvaluableExpressionWithFunctions(condition, queryFunctions)
		if err != nil {
			return nil, fmt.Errorf("parse condition %q: %w", condition, err)
		}
	}

	out := make(map[string][]float64, len(targets))
	for _, t := range targets {
		out[t] = []float64{}
	}
	for i := range sc.NumReleased() {
		params := elementParameters(sc, i)
		if expr != nil {
			if i == 0 {
				if err := checkVars(expr.Vars(), params); err != nil {
					return nil, err
				}
			}
			res, err := expr.Evaluate(params)
			if err != nil {
				return nil, fmt.Errorf("evaluate condition for element %d: %w", i, err)
			}
			keep, ok := res.(bool)
			if !ok {
				return nil, fmt.Errorf("condition %q evaluates to %T, not a boolean", condition, res)
			}
			if !keep {
				continue
			}
		}
		for _, t := range targets {
			v, ok := params[t]
			if !ok {
				return nil, fmt.Errorf("%w: %q", elements.ErrUnknownArray, t)
			}
			out[t] = append(out[t], v.(float64))
		}
	}
	return out, nil
}

func checkVars(vars []string, params map[string]interface{}) error {
	for _, v := range vars {
		if _, ok := params[v]; !ok {
			return fmt.Errorf("%w: %q", elements.ErrUnknownArray, v)
		}
	}
	return nil
}

func elementParameters(sc *elements.SpillContainer, i int) map[string]interface{} {
	params := make(map[string]interface{})
	for _, name := range sc.ArrayNames() {
		a := sc.Array(name)
		switch {
		case name == elements.ArrayPositions:
			params["lon"] = a.Value(i, 0)
			params["lat"] = a.Value(i, 1)
			params["z"] = a.Value(i, 2)
		case a.Width() == 1:
			params[name] = a.Value(i, 0)
		default:
			for j := range a.Width() {
				params[fmt.Sprintf("%s_%d", name, j)] = a.Value(i, j)
			}
		}
	}
	return params
}
