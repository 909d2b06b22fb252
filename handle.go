package wrap

import (
	"context"
	"fmt"
	"reflect"
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// methodHandle is the captured reference to an original, unwrapped method
// body. It is owned exclusively by the wrapper that captured it and is
// immutable after capture.
type methodHandle struct {
	typeName string
	method   string
	fn       reflect.Value // method func, receiver as first input
	wantsCtx bool
	variadic bool
	numIn    int // inputs after receiver and optional context
	valueOut int // index of the non-error result, -1 when none
	errOut   int // index of the trailing error result, -1 when none
}

func captureHandle(t reflect.Type, name string) (*methodHandle, error) {
	m, ok := t.MethodByName(name)
	if !ok {
		return nil, &NotFoundError{Type: t.String(), Method: name}
	}
	mt := m.Func.Type()

	h := &methodHandle{
		typeName: t.String(),
		method:   name,
		fn:       m.Func,
		variadic: mt.IsVariadic(),
		valueOut: -1,
		errOut:   -1,
	}

	in := mt.NumIn() - 1 // drop the receiver
	if in > 0 && mt.In(1) == ctxType {
		h.wantsCtx = true
		in--
	}
	h.numIn = in

	switch mt.NumOut() {
	case 0:
	case 1:
		if mt.Out(0) == errType {
			h.errOut = 0
		} else {
			h.valueOut = 0
		}
	case 2:
		if mt.Out(1) != errType {
			return nil, &SignatureError{
				Type:   t.String(),
				Method: name,
				Reason: "second result must be error",
			}
		}
		h.valueOut = 0
		h.errOut = 1
	default:
		return nil, &SignatureError{
			Type:   t.String(),
			Method: name,
			Reason: fmt.Sprintf("%d results, want at most one value and one error", mt.NumOut()),
		}
	}
	return h, nil
}

// invoke calls the captured body with the supplied arguments. Arguments,
// including trailing callback funcs, pass through unmodified.
func (h *methodHandle) invoke(ctx context.Context, recv any, args []any) (any, error) {
	mt := h.fn.Type()
	if h.variadic {
		if len(args) < h.numIn-1 {
			return nil, fmt.Errorf("wrap: %s.%s expects at least %d args, got %d",
				h.typeName, h.method, h.numIn-1, len(args))
		}
	} else if len(args) != h.numIn {
		return nil, fmt.Errorf("wrap: %s.%s expects %d args, got %d",
			h.typeName, h.method, h.numIn, len(args))
	}

	in := make([]reflect.Value, 0, mt.NumIn())
	in = append(in, reflect.ValueOf(recv))
	if h.wantsCtx {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(ctx))
	}
	base := len(in)
	for i, arg := range args {
		v, err := argValue(mt, base+i, arg)
		if err != nil {
			return nil, fmt.Errorf("wrap: %s.%s arg %d: %w", h.typeName, h.method, i, err)
		}
		in = append(in, v)
	}

	out := h.fn.Call(in)

	var err error
	if h.errOut >= 0 {
		if e := out[h.errOut]; !e.IsNil() {
			err = e.Interface().(error)
		}
	}
	var value any
	if h.valueOut >= 0 {
		value = out[h.valueOut].Interface()
	}
	return value, err
}

func paramType(mt reflect.Type, pos int) reflect.Type {
	if mt.IsVariadic() && pos >= mt.NumIn()-1 {
		return mt.In(mt.NumIn() - 1).Elem()
	}
	return mt.In(pos)
}

func argValue(mt reflect.Type, pos int, arg any) (reflect.Value, error) {
	pt := paramType(mt, pos)
	if arg == nil {
		return reflect.Zero(pt), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(pt) {
		return v, nil
	}
	if v.Type().ConvertibleTo(pt) {
		return v.Convert(pt), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Type(), pt)
}
