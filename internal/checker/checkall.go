package checker

import (
	"context"
	"sort"
	"sync"

	"github.com/silica-hdl/silica/internal/ast"
	"github.com/silica-hdl/silica/internal/ir"
	"github.com/silica-hdl/silica/internal/resolver"
)

// CheckAll checks every component in the table. Components with no
// instantiation dependency on each other are checked concurrently: the
// table's topological order is grouped into waves, and each wave runs one
// goroutine per component. Only signatures are read across components, and
// the table is immutable, so no further synchronization is needed.
//
// In fail-fast mode checking stops after the first wave that produces
// diagnostics. Diagnostics are returned in topological component order
// regardless of which goroutine found them.
func CheckAll(ctx context.Context, table *resolver.Table, mode Mode) (map[string]*Result, []ir.Diagnostic) {
	results := make(map[string]*Result, table.Len())
	var diags []ir.Diagnostic

	byComponent := make(map[string][]ir.Diagnostic)
	var mu sync.Mutex

	for _, wave := range waves(table) {
		if ctx.Err() != nil {
			break
		}
		var wg sync.WaitGroup
		for _, name := range wave {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				result, ds := Check(table, table.Component(name), mode)
				mu.Lock()
				defer mu.Unlock()
				if len(ds) > 0 {
					byComponent[name] = ds
					return
				}
				results[name] = result
			}(name)
		}
		wg.Wait()
		if mode == ModeFailFast && len(byComponent) > 0 {
			break
		}
	}

	for _, name := range table.Order() {
		diags = append(diags, byComponent[name]...)
	}
	if len(diags) > 0 {
		return nil, diags
	}
	return results, nil
}

// waves groups the topological order into batches whose members do not
// instantiate each other, directly or transitively.
func waves(table *resolver.Table) [][]string {
	depth := make(map[string]int, table.Len())
	maxDepth := 0
	for _, name := range table.Order() {
		d := 0
		for dep := range instantiatedDefs(table, name) {
			if dd, ok := depth[dep]; ok && dd+1 > d {
				d = dd + 1
			}
		}
		depth[name] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	out := make([][]string, maxDepth+1)
	for _, name := range table.Order() {
		d := depth[name]
		out[d] = append(out[d], name)
	}
	for _, wave := range out {
		sort.Strings(wave)
	}
	return out
}

func instantiatedDefs(table *resolver.Table, name string) map[string]bool {
	defs := make(map[string]bool)
	for _, cmd := range table.Component(name).Body {
		if inst, ok := cmd.(*ast.Instance); ok {
			defs[inst.Def] = true
		}
	}
	return defs
}
