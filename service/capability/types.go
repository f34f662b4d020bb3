// Package capability defines the contract between the orchestrator and any
// step-logic provider: a provider exposes named methods with typed input and
// output, the orchestrator invokes them with a structured request and applies
// the structured result to the session itself. Providers never mutate session
// state.
package capability

import (
	"context"
	"fmt"
	"reflect"
)

// Service is a capability provider: a named collaborator executing step logic.
type Service interface {
	Name() string
	Methods() Signatures
	Method(name string) (Executable, error)
}

// Executable is a provider method that can be invoked; input and output are
// pointers to the Signature's declared types.
type Executable func(ctx context.Context, input, output interface{}) error

// Signature describes one provider method.
type Signature struct {
	Name   string
	Input  reflect.Type
	Output reflect.Type
}

type Signatures []Signature

// Lookup returns a signature by method name.
func (s Signatures) Lookup(name string) *Signature {
	for i := range s {
		sig := &s[i]
		if sig.Name == name {
			return sig
		}
	}
	return nil
}

func NewMethodNotFoundError(name string) error {
	return fmt.Errorf("method %v not found", name)
}

func NewInvalidInputError(in interface{}) error {
	return fmt.Errorf("invalid input %T", in)
}

func NewInvalidOutputError(out interface{}) error {
	return fmt.Errorf("invalid output %T", out)
}
