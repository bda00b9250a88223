package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/silica-hdl/silica/internal/ast"
	"github.com/silica-hdl/silica/internal/ir"
)

// CompileNamespace decodes an AST interchange document into a Namespace.
// The document is the external parser's output, shaped as:
//
//	component: Mul: {
//	    params: [{name: "W"}, {name: "M", where: ["M > 1"]}]
//	    time:      "T"
//	    interface: "go"
//	    ports: [{name: "go", dir: "in", start: "T", end: "T+1", width: "1"}, ...]
//	    exists: [{name: "L", where: "L > 0", def: "M*M"}]
//	    body: [{instance: "m", def: "FastMul", args: ["W"]},
//	           {invoke: "m0", instance: "m", at: "T", args: ["A", "B"]},
//	           {connect: {dst: "O", src: "m0.out"}}]
//	}
func CompileNamespace(v cue.Value) (*ast.Namespace, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	ns := &ast.Namespace{}
	var errs []error

	compsVal := v.LookupPath(cue.ParsePath("component"))
	if !compsVal.Exists() {
		return nil, []error{&CompileError{
			Field:   "component",
			Message: "no components found in document",
			Pos:     v.Pos(),
		}}
	}

	iter, err := compsVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}
	for iter.Next() {
		comp, err := CompileComponent(iter.Value())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ns.Components = append(ns.Components, comp)
	}

	importsVal := v.LookupPath(cue.ParsePath("import"))
	if importsVal.Exists() {
		names, err := stringList(importsVal, "import")
		if err != nil {
			errs = append(errs, err)
		}
		for _, name := range names {
			ns.Imports = append(ns.Imports, ast.Import{Name: name, Pos: toPos(importsVal.Pos())})
		}
	}

	return ns, errs
}

// CompileComponent decodes one component definition.
func CompileComponent(v cue.Value) (*ast.Component, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	comp := &ast.Component{Pos: toPos(v.Pos())}

	// Component name comes from the struct label.
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		comp.Name = labels[len(labels)-1].String()
	}

	timeVal := v.LookupPath(cue.ParsePath("time"))
	if !timeVal.Exists() {
		return nil, &CompileError{
			Field:   "time",
			Message: fmt.Sprintf("component %q: time parameter is required", comp.Name),
			Pos:     v.Pos(),
		}
	}
	timeName, err := timeVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	comp.Time = ast.TimeParam{Name: timeName, Pos: toPos(timeVal.Pos())}

	ifaceVal := v.LookupPath(cue.ParsePath("interface"))
	if ifaceVal.Exists() {
		iface, err := ifaceVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		comp.Interface = iface
	}

	if comp.Params, err = parseValueParams(v); err != nil {
		return nil, err
	}
	if comp.Ports, err = parsePorts(v, comp.Name); err != nil {
		return nil, err
	}
	if len(comp.Ports) == 0 {
		return nil, &CompileError{
			Field:   "ports",
			Message: fmt.Sprintf("component %q: at least one port is required", comp.Name),
			Pos:     v.Pos(),
		}
	}
	if comp.Exists, err = parseExists(v); err != nil {
		return nil, err
	}
	if comp.Body, err = parseBody(v); err != nil {
		return nil, err
	}

	return comp, nil
}

func parseValueParams(v cue.Value) ([]ast.ValueParam, error) {
	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if !paramsVal.Exists() {
		return nil, nil // parameters are optional
	}

	var params []ast.ValueParam
	iter, err := paramsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		pv := iter.Value()
		param := ast.ValueParam{Pos: toPos(pv.Pos())}

		nameVal := pv.LookupPath(cue.ParsePath("name"))
		if !nameVal.Exists() {
			return nil, &CompileError{Field: "params", Message: "param entry missing name", Pos: pv.Pos()}
		}
		if param.Name, err = nameVal.String(); err != nil {
			return nil, formatCUEError(err)
		}

		whereVal := pv.LookupPath(cue.ParsePath("where"))
		if whereVal.Exists() {
			clauses, err := stringList(whereVal, "params.where")
			if err != nil {
				return nil, err
			}
			for _, clause := range clauses {
				guard, err := parseGuardClause(clause, whereVal)
				if err != nil {
					return nil, err
				}
				param.Guards = append(param.Guards, guard)
			}
		}

		params = append(params, param)
	}
	return params, nil
}

func parsePorts(v cue.Value, comp string) ([]ast.Port, error) {
	portsVal := v.LookupPath(cue.ParsePath("ports"))
	if !portsVal.Exists() {
		return nil, nil
	}

	var ports []ast.Port
	iter, err := portsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		pv := iter.Value()
		port := ast.Port{Pos: toPos(pv.Pos())}

		if port.Name, err = requiredString(pv, "name"); err != nil {
			return nil, err
		}
		dir, err := requiredString(pv, "dir")
		if err != nil {
			return nil, err
		}
		switch dir {
		case "in":
			port.Dir = ir.DirIn
		case "out":
			port.Dir = ir.DirOut
		default:
			return nil, &CompileError{
				Field:   "ports.dir",
				Message: fmt.Sprintf("port %q: invalid direction %q, must be \"in\" or \"out\"", port.Name, dir),
				Pos:     pv.Pos(),
			}
		}

		startSrc, err := requiredString(pv, "start")
		if err != nil {
			return nil, err
		}
		endSrc, err := requiredString(pv, "end")
		if err != nil {
			return nil, err
		}
		start, err := ParseTime(startSrc)
		if err != nil {
			return nil, &CompileError{Field: "ports.start", Message: err.Error(), Pos: pv.Pos()}
		}
		end, err := ParseTime(endSrc)
		if err != nil {
			return nil, &CompileError{Field: "ports.end", Message: err.Error(), Pos: pv.Pos()}
		}
		// Interval construction enforces start < end where decidable; a
		// violation is a compile error carrying the port's position.
		port.Interval, err = ir.NewInterval(start, end)
		if err != nil {
			return nil, &CompileError{
				Field:   "ports",
				Message: fmt.Sprintf("component %q port %q: %v", comp, port.Name, err),
				Pos:     pv.Pos(),
			}
		}

		widthSrc, err := requiredString(pv, "width")
		if err != nil {
			return nil, err
		}
		if port.Width, err = ParseExpr(widthSrc); err != nil {
			return nil, &CompileError{Field: "ports.width", Message: err.Error(), Pos: pv.Pos()}
		}

		ports = append(ports, port)
	}
	return ports, nil
}

func parseExists(v cue.Value) ([]ast.ExistParam, error) {
	existsVal := v.LookupPath(cue.ParsePath("exists"))
	if !existsVal.Exists() {
		return nil, nil
	}

	var exists []ast.ExistParam
	iter, err := existsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		ev := iter.Value()
		ex := ast.ExistParam{Pos: toPos(ev.Pos())}

		if ex.Name, err = requiredString(ev, "name"); err != nil {
			return nil, err
		}

		whereVal := ev.LookupPath(cue.ParsePath("where"))
		if whereVal.Exists() {
			clause, err := whereVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			guard, err := parseGuardClause(clause, whereVal)
			if err != nil {
				return nil, err
			}
			ex.Guard = &guard
		}

		defVal := ev.LookupPath(cue.ParsePath("def"))
		if defVal.Exists() {
			src, err := defVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			if ex.Def, err = ParseExpr(src); err != nil {
				return nil, &CompileError{Field: "exists.def", Message: err.Error(), Pos: defVal.Pos()}
			}
		}

		exists = append(exists, ex)
	}
	return exists, nil
}

func parseBody(v cue.Value) ([]ast.Command, error) {
	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		return nil, nil
	}

	var body []ast.Command
	iter, err := bodyVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		cmd, err := parseCommand(iter.Value())
		if err != nil {
			return nil, err
		}
		body = append(body, cmd)
	}
	return body, nil
}

// parseCommand dispatches on the discriminating field of a body entry:
// instance declarations, invocations, and connects.
func parseCommand(v cue.Value) (ast.Command, error) {
	switch {
	case v.LookupPath(cue.ParsePath("def")).Exists():
		return parseInstance(v)
	case v.LookupPath(cue.ParsePath("invoke")).Exists():
		return parseInvoke(v)
	case v.LookupPath(cue.ParsePath("connect")).Exists():
		return parseConnect(v)
	default:
		return nil, &CompileError{
			Field:   "body",
			Message: "body entry must be an instance, invoke, or connect",
			Pos:     v.Pos(),
		}
	}
}

func parseInstance(v cue.Value) (*ast.Instance, error) {
	inst := &ast.Instance{Pos: toPos(v.Pos())}
	var err error
	if inst.Name, err = requiredString(v, "instance"); err != nil {
		return nil, err
	}
	if inst.Def, err = requiredString(v, "def"); err != nil {
		return nil, err
	}

	argsVal := v.LookupPath(cue.ParsePath("args"))
	if argsVal.Exists() {
		srcs, err := stringList(argsVal, "body.args")
		if err != nil {
			return nil, err
		}
		for _, src := range srcs {
			arg, err := ParseExpr(src)
			if err != nil {
				return nil, &CompileError{Field: "body.args", Message: err.Error(), Pos: argsVal.Pos()}
			}
			inst.Args = append(inst.Args, arg)
		}
	}
	return inst, nil
}

func parseInvoke(v cue.Value) (*ast.Invoke, error) {
	inv := &ast.Invoke{Pos: toPos(v.Pos())}
	var err error
	if inv.Name, err = requiredString(v, "invoke"); err != nil {
		return nil, err
	}
	if inv.Instance, err = requiredString(v, "instance"); err != nil {
		return nil, err
	}

	atSrc, err := requiredString(v, "at")
	if err != nil {
		return nil, err
	}
	if inv.Start, err = ParseTime(atSrc); err != nil {
		return nil, &CompileError{Field: "body.at", Message: err.Error(), Pos: v.Pos()}
	}

	argsVal := v.LookupPath(cue.ParsePath("args"))
	if argsVal.Exists() {
		srcs, err := stringList(argsVal, "body.args")
		if err != nil {
			return nil, err
		}
		for _, src := range srcs {
			instName, portName, err := ParsePortRef(src)
			if err != nil {
				return nil, &CompileError{Field: "body.args", Message: err.Error(), Pos: argsVal.Pos()}
			}
			inv.Args = append(inv.Args, ast.PortRef{Instance: instName, Port: portName, Pos: toPos(argsVal.Pos())})
		}
	}
	return inv, nil
}

func parseConnect(v cue.Value) (*ast.Connect, error) {
	connVal := v.LookupPath(cue.ParsePath("connect"))
	con := &ast.Connect{Pos: toPos(v.Pos())}

	dstSrc, err := requiredString(connVal, "dst")
	if err != nil {
		return nil, err
	}
	srcSrc, err := requiredString(connVal, "src")
	if err != nil {
		return nil, err
	}

	dstInst, dstPort, err := ParsePortRef(dstSrc)
	if err != nil {
		return nil, &CompileError{Field: "connect.dst", Message: err.Error(), Pos: connVal.Pos()}
	}
	srcInst, srcPort, err := ParsePortRef(srcSrc)
	if err != nil {
		return nil, &CompileError{Field: "connect.src", Message: err.Error(), Pos: connVal.Pos()}
	}

	con.Dst = ast.PortRef{Instance: dstInst, Port: dstPort, Pos: toPos(connVal.Pos())}
	con.Src = ast.PortRef{Instance: srcInst, Port: srcPort, Pos: toPos(connVal.Pos())}
	return con, nil
}

func parseGuardClause(clause string, v cue.Value) (ast.Guard, error) {
	op, l, r, err := ParseGuard(clause)
	if err != nil {
		return ast.Guard{}, &CompileError{Field: "where", Message: err.Error(), Pos: v.Pos()}
	}
	return ast.Guard{Op: op, L: l, R: r, Pos: toPos(v.Pos())}, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: fmt.Sprintf("%s is required", field),
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("expected a list: %v", err), Pos: v.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}
