package linkage

import (
	"github.com/roach88/linkage/internal/dataset"
	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/meta"
)

// DatasetsWithAppliedSimpleExpectations returns both datasets restricted by
// the filters and grouped by the matches. A self-linkage reads one dataset,
// so the same handle is returned twice.
func (c *Configuration) DatasetsWithAppliedSimpleExpectations() (*dataset.Handle, *dataset.Handle, error) {
	h1 := dataset.NewHandle(c.dataset1)
	h2 := dataset.NewHandle(c.dataset2)
	self := c.kind == ir.LinkageSelf

	var err error
	for _, exp := range c.simple {
		if h1, err = exp.Apply(h1, ir.SideLHS); err != nil {
			return nil, nil, err
		}
		if self {
			continue
		}
		if h2, err = exp.Apply(h2, ir.SideRHS); err != nil {
			return nil, nil, err
		}
	}
	if self {
		return h1, h1, nil
	}
	return h1, h2, nil
}

// DatasetsWithAppliedExhaustiveExpectations returns both datasets selecting
// their primary key and every comparator argument on their side.
func (c *Configuration) DatasetsWithAppliedExhaustiveExpectations() (*dataset.Handle, *dataset.Handle, error) {
	h1, err := primaryKeyHandle(c.dataset1, ir.SideLHS)
	if err != nil {
		return nil, nil, err
	}
	h2, err := primaryKeyHandle(c.dataset2, ir.SideRHS)
	if err != nil {
		return nil, nil, err
	}

	for _, exp := range c.exhaustive {
		if h1, err = exp.Apply(h1, ir.SideLHS); err != nil {
			return nil, nil, err
		}
		if h2, err = exp.Apply(h2, ir.SideRHS); err != nil {
			return nil, nil, err
		}
	}
	return h1, h2, nil
}

func primaryKeyHandle(ds dataset.Dataset, side ir.Side) (*dataset.Handle, error) {
	pk, err := meta.NewField(ds, ds.PrimaryKey().Name(), side)
	if err != nil {
		return nil, err
	}
	return dataset.NewHandle(ds).Select(pk, pk.Name()), nil
}
