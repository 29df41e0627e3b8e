// Package criteria evaluates dao.Parameter filters against allocator states.
package criteria

import (
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/service/dao"
)

// Filter names understood by Match.
const (
	ByName     = "Name"
	ByStrategy = "Strategy"
)

// Match reports whether state satisfies every parameter. Unknown names match.
func Match(state *model.State, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		switch parameter.Name {
		case ByName:
			if !matchValue(state.Name, parameter.Value) {
				return false
			}
		case ByStrategy:
			if !matchValue(string(state.Strategy), parameter.Value) {
				return false
			}
		}
	}
	return true
}

func matchValue(actual string, value interface{}) bool {
	switch expected := value.(type) {
	case string:
		return actual == expected
	case []string:
		for _, candidate := range expected {
			if actual == candidate {
				return true
			}
		}
		return false
	}
	return true
}
