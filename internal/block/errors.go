package block

import (
	"errors"
	"fmt"

	"github.com/kode4food/weave/pkg/api"
)

// Error reports a failed block construction or execution, identifying the
// block by kind and name. It matches both its Kind and its cause with
// errors.Is
type Error struct {
	Kind      error
	BlockType api.BlockType
	BlockName api.Name
	Err       error
}

var (
	ErrConstruction   = errors.New("block construction error")
	ErrConfiguration  = errors.New("block configuration error")
	ErrGuestExecution = errors.New("guest code execution error")
	ErrValidation     = errors.New("block validation error")
	ErrDispatch       = errors.New("dispatch error")

	ErrContractViolation = errors.New("dispatcher contract violation")
	ErrUnknownBlockType  = errors.New("unknown block type")
)

func (e *Error) Error() string {
	return fmt.Sprintf("%s block `%s`: %s", e.BlockType, e.BlockName, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func newError(
	kind error, typ api.BlockType, name api.Name, err error,
) *Error {
	return &Error{
		Kind:      kind,
		BlockType: typ,
		BlockName: name,
		Err:       err,
	}
}
