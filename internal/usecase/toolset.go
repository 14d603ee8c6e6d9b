package usecase

import (
	"pluto-ai/internal/domain"
)

// toolSet is a fixed lookup over an agent's tools. The set is immutable
// after construction; agents never share a mutable default.
type toolSet struct {
	byName []domain.Tool
}

func newToolSet(tools []domain.Tool) *toolSet {
	return &toolSet{byName: tools}
}

// Get implements domain.ToolExecutor.
func (ts *toolSet) Get(name string) (domain.Tool, error) {
	for _, t := range ts.byName {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, domain.NewDomainError("toolSet.Get", domain.ErrToolNotFound, name)
}

// Schemas implements domain.ToolExecutor.
func (ts *toolSet) Schemas() []domain.ToolSchema {
	schemas := make([]domain.ToolSchema, 0, len(ts.byName))
	for _, t := range ts.byName {
		schemas = append(schemas, t.Schema())
	}
	return schemas
}
