package harness

import (
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/silica-hdl/silica/internal/ir"
)

// AssertGolden compares a design against the golden file
// testdata/golden/<name>.golden. The snapshot is canonical JSON, so the
// comparison is exact and platform independent.
func AssertGolden(t *testing.T, name string, design *ir.Design) {
	t.Helper()

	snapshot, err := ir.MarshalCanonical(designSnapshot(design))
	if err != nil {
		t.Fatalf("snapshot serialization: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
}

// designSnapshot reduces a design to the plain maps and slices canonical
// JSON accepts. Components are ordered by rendered name so the snapshot does
// not depend on map iteration.
func designSnapshot(design *ir.Design) map[string]any {
	comps := make([]*ir.Component, 0, len(design.Components))
	for _, comp := range design.Components {
		comps = append(comps, comp)
	}
	sort.Slice(comps, func(i, j int) bool {
		return RenderName(comps[i]) < RenderName(comps[j])
	})

	list := make([]any, len(comps))
	for i, comp := range comps {
		list[i] = componentSnapshot(comp)
	}
	return map[string]any{
		"entry":      string(design.Entry),
		"components": list,
	}
}

func componentSnapshot(comp *ir.Component) map[string]any {
	ports := make([]any, len(comp.Ports))
	for i, port := range comp.Ports {
		ports[i] = map[string]any{
			"name":  port.Name,
			"dir":   string(port.Dir),
			"start": port.Start,
			"end":   port.End,
			"width": port.Width,
		}
	}

	snap := map[string]any{
		"name":  comp.Name,
		"key":   string(comp.Key),
		"args":  comp.Args,
		"ports": ports,
	}

	if len(comp.Exists) > 0 {
		snap["exists"] = comp.Exists
	}
	if len(comp.Subs) > 0 {
		subs := make([]any, len(comp.Subs))
		for i, sub := range comp.Subs {
			invocations := make([]any, len(sub.Invocations))
			for j, inv := range sub.Invocations {
				im := map[string]any{"start": inv.Start}
				if len(inv.Args) > 0 {
					im["args"] = inv.Args
				}
				invocations[j] = im
			}
			subs[i] = map[string]any{
				"name":        sub.Name,
				"def":         sub.Def,
				"key":         string(sub.Key),
				"args":        sub.Args,
				"invocations": invocations,
			}
		}
		snap["subs"] = subs
	}
	if len(comp.Bindings) > 0 {
		bindings := make([]any, len(comp.Bindings))
		for i, b := range comp.Bindings {
			bindings[i] = map[string]any{"dst": b.Dst, "src": b.Src}
		}
		snap["bindings"] = bindings
	}
	return snap
}
