package ir

// Key is the content-addressed identity of a specialization:
// a domain-separated hash of (definition name, concrete-argument tuple).
// Two instantiations with identical keys share one Component.
type Key string

// PortDir distinguishes input from output ports.
type PortDir string

const (
	DirIn  PortDir = "in"
	DirOut PortDir = "out"
)

// Design is the flat, parameter-free output of monomorphization, handed to
// the external code generator. It carries no parameters and no existentials;
// every interval and width is a literal.
type Design struct {
	Entry      Key                `json:"entry"`
	Components map[Key]*Component `json:"components"`
}

// Component is a fully concrete specialization of a component definition.
// All times are cycles relative to the component's own start (cycle 0):
// each specialization is latency-self-contained.
type Component struct {
	Name string  `json:"name"`
	Key  Key     `json:"key"`
	Args []int64 `json:"args"`

	Ports []FlatPort `json:"ports"`

	// Exists maps each existential parameter to its solved literal value.
	Exists map[string]int64 `json:"exists,omitempty"`

	Subs     []Sub         `json:"subs,omitempty"`
	Bindings []FlatBinding `json:"bindings,omitempty"`
}

// FlatPort is a port with literal timing and width.
type FlatPort struct {
	Name  string  `json:"name"`
	Dir   PortDir `json:"dir"`
	Start int64   `json:"start"`
	End   int64   `json:"end"`
	Width int64   `json:"width"`
}

// Sub is a concrete sub-instantiation: one instance of a specialized
// definition, with every invocation's start offset reduced to a literal.
type Sub struct {
	Name        string       `json:"name"`
	Def         string       `json:"def"`
	Key         Key          `json:"key"`
	Args        []int64      `json:"args"`
	Invocations []FlatInvoke `json:"invocations"`
}

// FlatInvoke records one firing of a sub-instance at a literal start cycle.
// Args name the parent-scope signals wired to the instance's input ports,
// in signature order ("port" for own ports, "inst.port" for siblings).
type FlatInvoke struct {
	Start int64    `json:"start"`
	Args  []string `json:"args,omitempty"`
}

// FlatBinding wires an output port of the component to a signal produced in
// its body.
type FlatBinding struct {
	Dst string `json:"dst"`
	Src string `json:"src"`
}
