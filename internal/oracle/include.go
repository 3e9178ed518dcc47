package oracle

import (
	"fmt"
	"slices"

	gocmp "github.com/google/go-cmp/cmp"

	"github.com/roach88/qoracle/internal/model"
)

// verifyIncludes walks the include tree over aligned root pairs. For every
// declared navigation both sides must hold the same targets with the same
// scalars.
func verifyIncludes(index int, nodes []*includeNode, expected, actual []model.Entity) error {
	for _, node := range nodes {
		var nextExp, nextAct []model.Entity
		for j := range expected {
			e, a := expected[j], actual[j]
			if model.IsNil(e) || model.IsNil(a) || e.EntitySet() != node.Set {
				continue
			}
			et := byKey(e.Navigate(node.Navigation))
			at := byKey(a.Navigate(node.Navigation))

			ek, ak := model.Keys(et), model.Keys(at)
			if !slices.Equal(ek, ak) {
				return &MismatchError{
					Path:     node.ID,
					Index:    index,
					Key:      e.Key().String(),
					Reason:   fmt.Sprintf("%s.%s not loaded as in the baseline", node.Set, node.Navigation),
					Expected: ek,
					Actual:   ak,
				}
			}
			for k := range et {
				if diff := gocmp.Diff(et[k], at[k], diffOptions...); diff != "" {
					return &MismatchError{
						Path:     node.ID,
						Index:    index,
						Key:      et[k].Key().String(),
						Expected: display(et[k]),
						Actual:   display(at[k]),
						Diff:     diff,
					}
				}
			}
			nextExp = append(nextExp, et...)
			nextAct = append(nextAct, at...)
		}
		if err := verifyIncludes(index, node.children, nextExp, nextAct); err != nil {
			return err
		}
	}
	return nil
}

func byKey(xs []model.Entity) []model.Entity {
	out := slices.Clone(xs)
	slices.SortFunc(out, func(a, b model.Entity) int {
		return a.Key().Compare(b.Key())
	})
	return out
}
