package lib

import (
	"fmt"
	"math"
)

type ErrorI interface {
	Code() ErrorCode     // Returns the error code
	Module() ErrorModule // Returns the error module
	error                // Implements the built-in error interface
}

var _ ErrorI = &Error{} // Ensures *Error implements ErrorI

type ErrorCode uint32 // Defines a type for error codes

type ErrorModule string // Defines a type for error modules

type Error struct {
	ECode   ErrorCode   `json:"code"`   // Error code
	EModule ErrorModule `json:"module"` // Error module
	Msg     string      `json:"msg"`    // Error message
}

func NewError(code ErrorCode, module ErrorModule, msg string) *Error {
	return &Error{ECode: code, EModule: module, Msg: msg}
}

// Code() returns the associated error code
func (p *Error) Code() ErrorCode { return p.ECode }

// Module() returns module field
func (p *Error) Module() ErrorModule { return p.EModule }

// String() calls Error()
func (p *Error) String() string { return p.Error() }

// Error() returns a formatted string including module, code and message
func (p *Error) Error() string {
	return fmt.Sprintf("\nModule:  %s\nCode:    %d\nMessage: %s", p.EModule, p.ECode, p.Msg)
}

// Is() matches errors of the same module and code, so errors.Is works across freshly constructed instances
func (p *Error) Is(target error) bool {
	t, ok := target.(ErrorI)
	if !ok {
		return false
	}
	return p.ECode == t.Code() && p.EModule == t.Module()
}

// IsCode() returns true if err is an ErrorI with the given module and code
func IsCode(err error, module ErrorModule, code ErrorCode) bool {
	e, ok := err.(ErrorI)
	return ok && e.Module() == module && e.Code() == code
}

const (
	NoCode ErrorCode = math.MaxUint32

	// Main Module
	MainModule ErrorModule = "main"

	// Main Module Error Codes
	CodeJSONMarshal     ErrorCode = 1
	CodeJSONUnmarshal   ErrorCode = 2
	CodeReadFile        ErrorCode = 3
	CodeWriteFile       ErrorCode = 4
	CodeHexDecode       ErrorCode = 5
	CodeInvalidArgument ErrorCode = 6
	CodeInvalidConfig   ErrorCode = 7

	// Sortition Module
	SortitionModule ErrorModule = "sortition"

	// Sortition Module Error Codes
	CodeInvalidVrf                ErrorCode = 1
	CodeInvalidDifficulty         ErrorCode = 2
	CodeInvalidVdfSolution        ErrorCode = 3
	CodeMalformedEncoding         ErrorCode = 4
	CodeInvalidModulus            ErrorCode = 5
	CodeHashToPrime               ErrorCode = 6
	CodeIterationsOverflow        ErrorCode = 7
	CodeInvalidSortitionParams    ErrorCode = 8
	CodeVRFProve                  ErrorCode = 9
	CodeStaleSortition            ErrorCode = 10
	CodeNilSortition              ErrorCode = 11
	CodeInvalidVRFScheme          ErrorCode = 12
	CodeProveFailed               ErrorCode = 13
	CodeInvalidEfficiencyTargets  ErrorCode = 14
	CodeInvalidAdjustmentInterval ErrorCode = 15

	// Store Module
	StorageModule ErrorModule = "store"

	// Store Module Error Codes
	CodeOpenDB       ErrorCode = 1
	CodeCloseDB      ErrorCode = 2
	CodeGetStore     ErrorCode = 3
	CodeSetStore     ErrorCode = 4
	CodeIterateStore ErrorCode = 5
	CodeDecodeRecord ErrorCode = 6
)

// main

func ErrJSONMarshal(err error) ErrorI {
	return NewError(CodeJSONMarshal, MainModule, fmt.Sprintf("json.marshal() failed with err: %s", err.Error()))
}

func ErrJSONUnmarshal(err error) ErrorI {
	return NewError(CodeJSONUnmarshal, MainModule, fmt.Sprintf("json.unmarshal() failed with err: %s", err.Error()))
}

func ErrReadFile(err error) ErrorI {
	return NewError(CodeReadFile, MainModule, fmt.Sprintf("os.ReadFile() failed with err: %s", err.Error()))
}

func ErrWriteFile(err error) ErrorI {
	return NewError(CodeWriteFile, MainModule, fmt.Sprintf("os.WriteFile() failed with err: %s", err.Error()))
}

func ErrHexDecode(err error) ErrorI {
	return NewError(CodeHexDecode, MainModule, fmt.Sprintf("hex decode failed with err: %s", err.Error()))
}

func ErrInvalidArgument(msg string) ErrorI {
	return NewError(CodeInvalidArgument, MainModule, "invalid argument: "+msg)
}

func ErrInvalidConfig(msg string) ErrorI {
	return NewError(CodeInvalidConfig, MainModule, "invalid config: "+msg)
}

// sortition

func ErrInvalidVrf() ErrorI {
	return NewError(CodeInvalidVrf, SortitionModule, "VRF verify failed")
}

func ErrInvalidDifficulty(got, expected uint16) ErrorI {
	return NewError(CodeInvalidDifficulty, SortitionModule, fmt.Sprintf("VDF solution verification failed. Incorrect difficulty %d, expected %d", got, expected))
}

func ErrInvalidVdfSolution() ErrorI {
	return NewError(CodeInvalidVdfSolution, SortitionModule, "VDF solution verification failed")
}

func ErrMalformedEncoding(err error) ErrorI {
	return NewError(CodeMalformedEncoding, SortitionModule, fmt.Sprintf("malformed vdf sortition encoding: %s", err.Error()))
}

func ErrInvalidModulus() ErrorI {
	return NewError(CodeInvalidModulus, SortitionModule, "vdf modulus must be at least 2")
}

func ErrHashToPrime() ErrorI {
	return NewError(CodeHashToPrime, SortitionModule, "hash to prime exhausted its attempts")
}

func ErrIterationsOverflow(difficulty uint16) ErrorI {
	return NewError(CodeIterationsOverflow, SortitionModule, fmt.Sprintf("difficulty %d is too large to prove", difficulty))
}

func ErrInvalidSortitionParams(msg string) ErrorI {
	return NewError(CodeInvalidSortitionParams, SortitionModule, "invalid sortition params: "+msg)
}

func ErrVRFProve(err error) ErrorI {
	return NewError(CodeVRFProve, SortitionModule, fmt.Sprintf("vrf prove failed with err: %s", err.Error()))
}

func ErrStaleSortition() ErrorI {
	return NewError(CodeStaleSortition, SortitionModule, "sortition difficulty is stale")
}

func ErrNilSortition() ErrorI {
	return NewError(CodeNilSortition, SortitionModule, "vdf sortition is nil")
}

func ErrInvalidVRFScheme(err error) ErrorI {
	return NewError(CodeInvalidVRFScheme, SortitionModule, err.Error())
}

func ErrProveFailed(err error) ErrorI {
	return NewError(CodeProveFailed, SortitionModule, fmt.Sprintf("vdf prove failed with err: %s", err.Error()))
}

func ErrInvalidEfficiencyTargets() ErrorI {
	return NewError(CodeInvalidEfficiencyTargets, SortitionModule, "dag efficiency targets must be ordered and non-zero")
}

func ErrInvalidAdjustmentInterval() ErrorI {
	return NewError(CodeInvalidAdjustmentInterval, SortitionModule, "changing and computation intervals must be non-zero")
}

// store

func ErrOpenDB(err error) ErrorI {
	return NewError(CodeOpenDB, StorageModule, fmt.Sprintf("openDB() failed with err: %s", err.Error()))
}

func ErrCloseDB(err error) ErrorI {
	return NewError(CodeCloseDB, StorageModule, fmt.Sprintf("closeDB() failed with err: %s", err.Error()))
}

func ErrStoreGet(err error) ErrorI {
	return NewError(CodeGetStore, StorageModule, fmt.Sprintf("store.get() failed with err: %s", err.Error()))
}

func ErrStoreSet(err error) ErrorI {
	return NewError(CodeSetStore, StorageModule, fmt.Sprintf("store.set() failed with err: %s", err.Error()))
}

func ErrStoreIterate(err error) ErrorI {
	return NewError(CodeIterateStore, StorageModule, fmt.Sprintf("store.iterate() failed with err: %s", err.Error()))
}

func ErrDecodeRecord(err error) ErrorI {
	return NewError(CodeDecodeRecord, StorageModule, fmt.Sprintf("decoding a stored record failed with err: %s", err.Error()))
}
