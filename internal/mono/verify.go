package mono

import (
	"fmt"

	"github.com/silica-hdl/silica/internal/ir"
)

// Verify checks the structural invariants of a monomorphized design:
// the entry key resolves, every interval is a positive literal span, widths
// are positive, every sub references a component present in the design, and
// no invocation starts before its component's own cycle 0.
func Verify(design *ir.Design) error {
	if design == nil {
		return fmt.Errorf("nil design")
	}
	if _, ok := design.Components[design.Entry]; !ok {
		return fmt.Errorf("entry key %q has no component", design.Entry)
	}
	for key, comp := range design.Components {
		if comp.Key != key {
			return fmt.Errorf("component %q stored under foreign key %q", comp.Name, key)
		}
		for _, port := range comp.Ports {
			if port.Start < 0 || port.Start >= port.End {
				return fmt.Errorf("component %q port %q: empty or negative span [%d, %d)",
					comp.Name, port.Name, port.Start, port.End)
			}
			if port.Width < 1 {
				return fmt.Errorf("component %q port %q: width %d", comp.Name, port.Name, port.Width)
			}
		}
		for _, sub := range comp.Subs {
			target, ok := design.Components[sub.Key]
			if !ok {
				return fmt.Errorf("component %q sub %q: missing specialization %q",
					comp.Name, sub.Name, sub.Key)
			}
			if target.Name != sub.Def {
				return fmt.Errorf("component %q sub %q: key resolves to %q, want %q",
					comp.Name, sub.Name, target.Name, sub.Def)
			}
			for _, inv := range sub.Invocations {
				if inv.Start < 0 {
					return fmt.Errorf("component %q sub %q: invocation starts at %d",
						comp.Name, sub.Name, inv.Start)
				}
			}
		}
	}
	return nil
}
