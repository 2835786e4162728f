package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/allisson/redo/internal/redo/domain"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithProxyPredicate replaces the predicate used to collapse a component/proxy pair.
func WithProxyPredicate(isProxy ProxyPredicate) DispatcherOption {
	return func(d *Dispatcher) {
		d.resolver = NewResolver(d.components, isProxy)
	}
}

// Dispatcher replays a recorded invocation against a live component.
type Dispatcher struct {
	components *ComponentRegistry
	decoder    *Decoder
	resolver   *Resolver
}

// NewDispatcher creates a Dispatcher reading from the given registries.
func NewDispatcher(components *ComponentRegistry, types *TypeRegistry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		components: components,
		decoder:    NewDecoder(types),
		resolver:   NewResolver(components, nil),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// boundMethod is a method located on a target type, with the parameters a payload must supply.
type boundMethod struct {
	name       string
	params     []reflect.Type
	injectsCtx bool
}

// Replay validates the record, locates the target method, rebuilds the arguments,
// resolves the single live instance and invokes the method once. Every failure is a
// *domain.ReplayFailure that matches the taxonomy sentinel of its stage.
func (d *Dispatcher) Replay(ctx context.Context, record *domain.Record) error {
	if err := record.Validate(); err != nil {
		return domain.NewReplayFailure(record, domain.StageValidate, err)
	}

	targetType, ok := d.components.TargetType(record.TargetType)
	if !ok {
		return domain.NewReplayFailure(
			record,
			domain.StageResolveMethod,
			domain.Wrapf(domain.ErrTypeNotFound, "%s", record.TargetType),
		)
	}

	method, err := d.resolveMethod(targetType, record)
	if err != nil {
		return domain.NewReplayFailure(record, domain.StageResolveMethod, err)
	}

	args, err := d.bindArgs(method, record.Args)
	if err != nil {
		return domain.NewReplayFailure(record, domain.StageDecodeArgs, err)
	}

	component, err := d.resolver.Resolve(record.TargetType, targetType)
	if err != nil {
		return domain.NewReplayFailure(record, domain.StageResolveTarget, err)
	}

	if method.injectsCtx {
		args = append([]reflect.Value{reflect.ValueOf(ctx)}, args...)
	}
	if err := invoke(component, method.name, args); err != nil {
		return domain.NewReplayFailure(record, domain.StageInvoke, err)
	}
	return nil
}

func (d *Dispatcher) resolveMethod(targetType reflect.Type, record *domain.Record) (boundMethod, error) {
	declared, err := d.decoder.ResolveTypes(record.ArgTypes)
	if err != nil {
		if errors.Is(err, domain.ErrDecode) {
			return boundMethod{}, err
		}
		return boundMethod{}, fmt.Errorf("%w: %s: %w", domain.ErrMethodNotFound, record.Method, err)
	}

	m, found := lookupMethod(targetType, record.Method)
	if !found {
		return boundMethod{}, domain.Wrapf(domain.ErrMethodNotFound, "%s has no method %s", targetType, record.Method)
	}
	if m.Type.IsVariadic() {
		return boundMethod{}, domain.Wrapf(domain.ErrMethodNotFound, "%s.%s is variadic", targetType, m.Name)
	}

	// Method.Type carries the receiver as its first input on concrete types only.
	offset := 1
	if targetType.Kind() == reflect.Interface {
		offset = 0
	}
	params := make([]reflect.Type, 0, m.Type.NumIn()-offset)
	for i := offset; i < m.Type.NumIn(); i++ {
		params = append(params, m.Type.In(i))
	}

	bound := boundMethod{name: m.Name, params: params}
	if len(params) > 0 && params[0] == contextType && (len(declared) == 0 || declared[0] != contextType) {
		bound.injectsCtx = true
		bound.params = params[1:]
	}

	// A record without a type list is matched on the method name alone.
	if strings.TrimSpace(record.ArgTypes) == "" {
		return bound, nil
	}

	if len(declared) != len(bound.params) {
		return boundMethod{}, domain.Wrapf(
			domain.ErrMethodNotFound,
			"%s.%s takes %d parameters, %d declared",
			targetType,
			m.Name,
			len(bound.params),
			len(declared),
		)
	}
	for i, t := range declared {
		if !t.AssignableTo(bound.params[i]) {
			return boundMethod{}, domain.Wrapf(
				domain.ErrMethodNotFound,
				"%s.%s parameter %d is %s, declared %s",
				targetType,
				m.Name,
				i,
				bound.params[i],
				t,
			)
		}
	}
	return bound, nil
}

func (d *Dispatcher) bindArgs(method boundMethod, payload string) ([]reflect.Value, error) {
	args, err := d.decoder.DecodeArgs(payload)
	if err != nil {
		return nil, err
	}
	if len(args) != len(method.params) {
		return nil, domain.Wrapf(
			domain.ErrDecode,
			"%s expects %d arguments, payload has %d",
			method.name,
			len(method.params),
			len(args),
		)
	}

	values := make([]reflect.Value, len(args))
	for i, arg := range args {
		param := method.params[i]
		if arg.IsNull() || !arg.Value.IsValid() {
			if !nillable(param) {
				return nil, domain.Wrapf(domain.ErrDecode, "argument %d: null is not a valid %s", i, param)
			}
			values[i] = reflect.Zero(param)
			continue
		}
		if !arg.Value.Type().AssignableTo(param) {
			return nil, domain.Wrapf(
				domain.ErrDecode,
				"argument %d: %s is not assignable to %s",
				i,
				arg.Value.Type(),
				param,
			)
		}
		values[i] = arg.Value
	}
	return values, nil
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

func invoke(component Component, name string, args []reflect.Value) (err error) {
	fn := reflect.ValueOf(component.Instance).MethodByName(name)
	if !fn.IsValid() {
		return domain.Wrapf(domain.ErrMethodNotFound, "component %s has no method %s", component.Name, name)
	}

	defer func() {
		if r := recover(); r != nil {
			err = domain.Wrapf(domain.ErrInvocation, "%s.%s panicked: %v", component.Name, name, r)
		}
	}()

	out := fn.Call(args)
	if n := len(out); n > 0 && fn.Type().Out(n-1) == errorType {
		if callErr, _ := out[n-1].Interface().(error); callErr != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvocation, callErr)
		}
	}
	return nil
}

// lookupMethod finds an exported method by its recorded name, falling back to the
// name with its first letter upper-cased.
func lookupMethod(t reflect.Type, name string) (reflect.Method, bool) {
	if m, ok := t.MethodByName(name); ok {
		return m, true
	}
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return reflect.Method{}, false
	}
	return t.MethodByName(string(unicode.ToUpper(r)) + name[size:])
}
