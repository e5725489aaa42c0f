package tools

import (
	"fmt"
	"strings"

	"github.com/m4xw311/grocer/errors"
	"github.com/m4xw311/grocer/grocery"
	"github.com/mitchellh/mapstructure"
)

var (
	ErrInvalidArguments = errors.Sentinel("invalid tool arguments")
	ErrUnknownTool      = errors.Sentinel("unknown tool")
)

// Kind enumerates the closed set of tools the agent can call.
type Kind int

const (
	KindAddToList Kind = iota + 1
	KindRetrieveList
)

func (k Kind) String() string {
	switch k {
	case KindAddToList:
		return "add_to_list"
	case KindRetrieveList:
		return "retrieve_list"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves a tool name requested by the model.
func ParseKind(name string) (Kind, error) {
	switch name {
	case KindAddToList.String():
		return KindAddToList, nil
	case KindRetrieveList.String():
		return KindRetrieveList, nil
	}
	return 0, errors.Wrapf(ErrUnknownTool, "%q", name)
}

type AddToListArgs struct {
	Category grocery.Category `json:"category" jsonschema:"enum=fruits,enum=vegetables" jsonschema_description:"Which list the item belongs on: fruits or vegetables."`
	Item     string           `json:"item" jsonschema:"minLength=1" jsonschema_description:"The item to add, e.g. apples."`
}

// RetrieveListArgs takes nothing. Dummy exists because some providers reject
// an object schema with no properties; it is ignored.
type RetrieveListArgs struct {
	Dummy string `json:"dummy,omitempty" jsonschema_description:"Unused."`
}

// Call is a validated tool invocation. Exactly one payload is set, matching Kind.
type Call struct {
	Kind     Kind
	Add      *AddToListArgs
	Retrieve *RetrieveListArgs
}

// ValidationError reports arguments that do not satisfy a tool's schema.
// It matches ErrInvalidArguments under errors.Is.
type ValidationError struct {
	Tool string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidArguments }

// Decode checks raw model-supplied arguments against the schema of the named
// tool and returns the typed call.
func Decode(name string, args map[string]any) (Call, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return Call{}, err
	}
	if args == nil {
		args = map[string]any{}
	}

	switch kind {
	case KindAddToList:
		var a AddToListArgs
		if err := decodeStrict(args, &a); err != nil {
			return Call{}, &ValidationError{Tool: name, Err: err}
		}
		if err := a.validate(); err != nil {
			return Call{}, &ValidationError{Tool: name, Err: err}
		}
		return Call{Kind: kind, Add: &a}, nil
	default:
		var r RetrieveListArgs
		if err := decodeStrict(args, &r); err != nil {
			return Call{}, &ValidationError{Tool: name, Err: err}
		}
		return Call{Kind: kind, Retrieve: &r}, nil
	}
}

func (a *AddToListArgs) validate() error {
	if _, err := grocery.ParseCategory(string(a.Category)); err != nil {
		return err
	}
	if strings.TrimSpace(a.Item) == "" {
		return grocery.ErrEmptyItem
	}
	return nil
}

// decodeStrict maps args onto out by json tag. Types must match exactly and
// keys not declared by the schema are rejected.
func decodeStrict(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}
