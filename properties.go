package graft

import (
	"reflect"

	"github.com/Ngone6325/graft/catalog"
)

// fieldsOf returns the injectable fields of t, computed once per type.
func (c *Container) fieldsOf(t reflect.Type) []catalog.Field {
	if cached, ok := c.fields.Load(t); ok {
		return cached.([]catalog.Field)
	}
	fields := c.catalog.Fields(t)
	actual, _ := c.fields.LoadOrStore(t, fields)
	return actual.([]catalog.Field)
}

// injectProperties fills the injectable fields of the struct v points to.
// Injection is optional: a field whose type cannot be resolved keeps its
// value. Only cycles and reentrancy fail the call.
func (s *session) injectProperties(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil
	}
	c := s.engine.c
	fields := c.fieldsOf(rv.Type())
	if len(fields) == 0 {
		return nil
	}
	sv := rv.Elem()
	for _, f := range fields {
		fv, err := sv.FieldByIndexErr(f.Index)
		if err != nil || !fv.CanSet() {
			continue
		}
		val, err := s.resolveField(f)
		if err != nil {
			if isFatal(err) {
				return err
			}
			c.logger.Debug("property left unset", "type", rv.Type(), "field", f.Name, "error", err)
			continue
		}
		if val == nil {
			continue
		}
		if cv, ok := conform(reflect.ValueOf(val), f.Type); ok {
			fv.Set(cv)
		}
	}
	return nil
}

// resolveField resolves a field optionally. When nothing can produce the
// field's type, its default type (or the field type itself) is built as a
// transient.
func (s *session) resolveField(f catalog.Field) (any, error) {
	if len(s.engine.c.lookup(f.Type)) > 0 {
		return s.resolve(f.Type, true)
	}
	impl := f.Default
	if impl == nil {
		impl = f.Type
	}
	reg := Registration{Requested: f.Type, Implementation: impl, Lifetime: Transient}
	return s.resolveRegistration(f.Type, reg, true)
}
