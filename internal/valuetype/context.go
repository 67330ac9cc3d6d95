package valuetype

import "fmt"

// Context maps variable names to scalar ValueTypes or ordered vectors of
// ValueType, and tracks constant/ignored names plus externally injected
// bindings (e.g. trade terms). It is created fresh per evaluation and
// mutated only by the script engine.
type Context struct {
	scalars   map[string]ValueType
	arrays    map[string][]ValueType
	constants map[string]bool
	ignored   map[string]bool
	external  map[string]ValueType
}

// New returns an empty Context.
func New() *Context {
	return &Context{
		scalars:   make(map[string]ValueType),
		arrays:    make(map[string][]ValueType),
		constants: make(map[string]bool),
		ignored:   make(map[string]bool),
		external:  make(map[string]ValueType),
	}
}

// Declare adds a scalar if name is not already declared and not ignored.
func (c *Context) Declare(name string, v ValueType) error {
	if c.ignored[name] {
		return nil
	}
	if _, exists := c.scalars[name]; exists {
		return fmt.Errorf("variable %q already declared", name)
	}
	if _, exists := c.arrays[name]; exists {
		return fmt.Errorf("variable %q already declared", name)
	}
	c.scalars[name] = v
	return nil
}

// DeclareArray adds an array of the given size, each element zeroed per
// kind, unless name is ignored or already declared.
func (c *Context) DeclareArray(name string, size int, zero ValueType) error {
	if c.ignored[name] {
		return nil
	}
	if _, exists := c.scalars[name]; exists {
		return fmt.Errorf("variable %q already declared", name)
	}
	if _, exists := c.arrays[name]; exists {
		return fmt.Errorf("variable %q already declared", name)
	}
	if size < 0 {
		return fmt.Errorf("array %q size must be non-negative, got %d", name, size)
	}
	vec := make([]ValueType, size)
	for i := range vec {
		vec[i] = zero
	}
	c.arrays[name] = vec
	return nil
}

// MarkConstant forbids future assignment to name.
func (c *Context) MarkConstant(name string) { c.constants[name] = true }

// MarkIgnored causes future declarations/assignments to name to be
// silently discarded.
func (c *Context) MarkIgnored(name string) { c.ignored[name] = true }

// IsConstant reports whether name is protected against assignment.
func (c *Context) IsConstant(name string) bool { return c.constants[name] }

// IsIgnored reports whether name is in the ignore set.
func (c *Context) IsIgnored(name string) bool { return c.ignored[name] }

// BindExternal injects a trade-term or other externally supplied binding,
// readable as a scalar but not subject to declaration checks.
func (c *Context) BindExternal(name string, v ValueType) {
	c.external[name] = v
	c.scalars[name] = v
	c.constants[name] = true
}

// Scalar resolves a scalar variable by name.
func (c *Context) Scalar(name string) (ValueType, bool, error) {
	v, ok := c.scalars[name]
	if !ok {
		if _, isArray := c.arrays[name]; isArray {
			return ValueType{}, true, fmt.Errorf("variable %q is an array, not a scalar", name)
		}
		return ValueType{}, false, nil
	}
	return v, true, nil
}

// Array resolves an array variable by name.
func (c *Context) Array(name string) ([]ValueType, bool, error) {
	v, ok := c.arrays[name]
	if !ok {
		if _, isScalar := c.scalars[name]; isScalar {
			return nil, true, fmt.Errorf("variable %q is a scalar, not an array", name)
		}
		return nil, false, nil
	}
	return v, true, nil
}

// SetScalar assigns a scalar, honoring constant/ignored semantics.
// Returns (applied, error): applied is false only when the name is
// ignored, in which case the assignment is a silent no-op
func (c *Context) SetScalar(name string, v ValueType) (bool, error) {
	if c.ignored[name] {
		return false, nil
	}
	if c.constants[name] {
		return false, fmt.Errorf("cannot assign to constant %q", name)
	}
	c.scalars[name] = v
	return true, nil
}

// SetArrayElement assigns array element i (0-based internally).
func (c *Context) SetArrayElement(name string, i int, v ValueType) (bool, error) {
	if c.ignored[name] {
		return false, nil
	}
	if c.constants[name] {
		return false, fmt.Errorf("cannot assign to constant %q", name)
	}
	arr, ok := c.arrays[name]
	if !ok {
		return false, fmt.Errorf("array %q not declared", name)
	}
	if i < 0 || i >= len(arr) {
		return false, fmt.Errorf("index %d out of range for array %q of size %d", i, name, len(arr))
	}
	arr[i] = v
	return true, nil
}

// ArrayLen returns the declared length of array name.
func (c *Context) ArrayLen(name string) (int, bool) {
	arr, ok := c.arrays[name]
	if !ok {
		return 0, false
	}
	return len(arr), true
}
