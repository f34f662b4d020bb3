package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/viant/structology/conv"
)

// Invoker dispatches structured requests to registered providers, binding the
// request map onto the method's typed input and flattening the typed output
// back into a result map. Every call is timeout bounded.
type Invoker struct {
	registry  *Registry
	converter *conv.Converter
	timeout   time.Duration
}

// NewInvoker creates an invoker over the supplied registry. A non-positive
// timeout disables the per-call deadline.
func NewInvoker(registry *Registry, timeout time.Duration) *Invoker {
	return &Invoker{
		registry:  registry,
		converter: conv.NewConverter(conv.DefaultOptions()),
		timeout:   timeout,
	}
}

// Invoke executes action ("service.method") with the supplied request fields.
// Provider errors come back as *Failure where classified; lookup and binding
// problems are structural.
func (i *Invoker) Invoke(ctx context.Context, action string, request map[string]interface{}) (map[string]interface{}, error) {
	service, method, err := i.split(action)
	if err != nil {
		return nil, err
	}
	provider := i.registry.Lookup(service)
	if provider == nil {
		return nil, NewStructuralFailure("service %v not found", service)
	}
	executable, err := provider.Method(method)
	if err != nil {
		return nil, NewStructuralFailure("failed to find method %v for service %v: %v", method, service, err)
	}
	signature := provider.Methods().Lookup(method)
	if signature == nil {
		return nil, NewStructuralFailure("missing signature for %v", action)
	}

	input := newInstance(signature.Input)
	if len(request) > 0 {
		if err := i.converter.Convert(request, input); err != nil {
			return nil, NewStructuralFailure("failed to bind request for %v: %v", action, err)
		}
	}
	output := newInstance(signature.Output)

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}
	if err := executable(ctx, input, output); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, NewTransientFailure("%v timed out: %v", action, err)
		}
		return nil, err
	}
	return flatten(output)
}

func (i *Invoker) split(action string) (string, string, error) {
	idx := strings.LastIndex(action, ".")
	if idx <= 0 || idx == len(action)-1 {
		return "", "", NewStructuralFailure("invalid action %q, expected service.method", action)
	}
	return action[:idx], action[idx+1:], nil
}

func newInstance(t reflect.Type) interface{} {
	if t == nil {
		return &struct{}{}
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return reflect.New(t).Interface()
}

// flatten converts a typed provider output into a result field map.
func flatten(output interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(output)
	if err != nil {
		return nil, NewStructuralFailure("failed to encode provider output: %v", err)
	}
	result := map[string]interface{}{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewStructuralFailure("malformed provider output: %v", err)
	}
	return result, nil
}

// EnsureOutputs verifies that every declared output field is present in the
// result; a missing field is a structural failure, never silently defaulted.
func EnsureOutputs(action string, result map[string]interface{}, declared []string) error {
	var missing []string
	for _, name := range declared {
		if _, ok := result[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return NewStructuralFailure("%v response missing required output field(s): %v", action, fmt.Sprintf("%v", missing))
	}
	return nil
}
