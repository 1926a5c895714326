package otxhook

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Param declares that an invocation argument becomes a span attribute.
// Name must match a declared parameter of the hooked operation; Attribute is
// the (unprefixed) attribute key and defaults to Name.
type Param struct {
	Name      string
	Attribute string
}

// P declares a parameter captured under its own name.
func P(name string) Param {
	return Param{Name: name, Attribute: name}
}

// Rename declares a parameter captured under a different attribute name.
func Rename(name, attribute string) Param {
	return Param{Name: name, Attribute: attribute}
}

// Signature describes a hooked operation: where it is declared and the
// ordered names of its parameters. Go keeps no parameter names at runtime,
// so the names are declared by the integrator and checked against the
// reflected arity by [MethodSignature] and [FuncSignature].
type Signature struct {
	Class    string
	Function string
	Params   []string
	File     string
	Line     int
}

// Operation returns the operation identity, "Class::Function".
func (s Signature) Operation() string {
	return NameMethod(s.Class, s.Function)
}

// MethodSignature reflects method on target and pairs its parameters with
// names. target is a value, a pointer, or a nil pointer to an interface type:
//
//	sig, err := otxhook.MethodSignature((*cache.Store)(nil), "Get", "ctx", "cid")
//	sig, err := otxhook.MethodSignature((*io.Reader)(nil), "Read", "p")
//
// It returns ErrMissingReflectionTarget if the method does not exist or if the
// number of names differs from the number of declared parameters.
func MethodSignature(target any, method string, params ...string) (Signature, error) {
	t := reflect.TypeOf(target)
	if t == nil {
		return Signature{}, fmt.Errorf("%w: nil target for method %q", ErrMissingReflectionTarget, method)
	}
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Interface {
		t = t.Elem()
	}

	m, ok := t.MethodByName(method)
	if !ok && t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		m, ok = reflect.PointerTo(t).MethodByName(method)
	}
	if !ok {
		return Signature{}, fmt.Errorf("%w: %s has no method %q", ErrMissingReflectionTarget, typeName(t), method)
	}

	arity := m.Type.NumIn()
	if t.Kind() != reflect.Interface {
		arity-- // receiver
	}
	if arity != len(params) {
		return Signature{}, fmt.Errorf("%w: %s.%s declares %d parameters, %d names given",
			ErrMissingReflectionTarget, typeName(t), method, arity, len(params))
	}

	sig := Signature{
		Class:    typeName(t),
		Function: method,
		Params:   append([]string(nil), params...),
	}
	if m.Func.IsValid() {
		sig.File, sig.Line = funcLocation(m.Func.Pointer())
	}

	return sig, nil
}

// FuncSignature reflects a plain function and pairs its parameters with
// names. The function is identified by its package-qualified name, e.g.
// "store.Lookup", with an empty class.
func FuncSignature(fn any, params ...string) (Signature, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return Signature{}, fmt.Errorf("%w: %T is not a function", ErrMissingReflectionTarget, fn)
	}

	arity := v.Type().NumIn()
	if arity != len(params) {
		return Signature{}, fmt.Errorf("%w: function declares %d parameters, %d names given",
			ErrMissingReflectionTarget, arity, len(params))
	}

	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return Signature{}, fmt.Errorf("%w: cannot resolve function %T", ErrMissingReflectionTarget, fn)
	}

	name := rf.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	sig := Signature{
		Function: name,
		Params:   append([]string(nil), params...),
	}
	sig.File, sig.Line = funcLocation(v.Pointer())

	return sig, nil
}

// ResolvedParam binds an attribute name to an argument position.
type ResolvedParam struct {
	Attribute string
	Index     int
}

// ResolvedParams maps attribute names to argument positions. Attribute names
// are unique; the order follows the parameter spec.
type ResolvedParams []ResolvedParam

// Index returns the argument position bound to attribute.
func (r ResolvedParams) Index(attribute string) (int, bool) {
	for _, p := range r {
		if p.Attribute == attribute {
			return p.Index, true
		}
	}

	return 0, false
}

// ResolveParams computes argument positions for spec against sig.
// Each entry binds to the first declared parameter with the same name.
// Entries naming no declared parameter are dropped without error, so a
// renamed upstream parameter degrades to a missing attribute rather than a
// broken hook. Use [Unresolved] to find them.
func ResolveParams(sig Signature, spec []Param) ResolvedParams {
	if len(spec) == 0 {
		return ResolvedParams{}
	}

	resolved := make(ResolvedParams, 0, len(spec))
	for _, p := range spec {
		attr := p.Attribute
		if attr == "" {
			attr = p.Name
		}

		idx := indexOf(sig.Params, p.Name)
		if p.Name == "" || idx < 0 {
			continue
		}

		if i := resolved.position(attr); i >= 0 {
			resolved[i].Index = idx
			continue
		}
		resolved = append(resolved, ResolvedParam{Attribute: attr, Index: idx})
	}

	return resolved
}

// Unresolved returns the spec entries that [ResolveParams] drops for sig.
func Unresolved(sig Signature, spec []Param) []Param {
	var out []Param
	for _, p := range spec {
		if p.Name == "" || indexOf(sig.Params, p.Name) < 0 {
			out = append(out, p)
		}
	}

	return out
}

func (r ResolvedParams) position(attribute string) int {
	for i, p := range r {
		if p.Attribute == attribute {
			return i
		}
	}

	return -1
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}

	return -1
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t.String()
}

func funcLocation(pc uintptr) (string, int) {
	rf := runtime.FuncForPC(pc)
	if rf == nil {
		return "", 0
	}

	return rf.FileLine(rf.Entry())
}
