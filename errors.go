package ixscan

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrContract is matched by every caller-contract violation. These errors
	// indicate misuse and must not be retried.
	ErrContract = errors.New("stream contract violation")

	ErrOutOfOrder         = errors.New("keys out of order")
	ErrNotUnique          = errors.New("more than one result")
	ErrInvalidPageRequest = errors.New("invalid page request")
	ErrInvalidPredicate   = errors.New("invalid scan predicate")
	ErrInvalidCursor      = errors.New("invalid cursor")
	ErrUnsupportedValue   = errors.New("unsupported value type")
	ErrUnknownTable       = errors.New("unknown table")
	ErrUnknownIndex       = errors.New("unknown index")
	ErrNotFound           = errors.New("document not found")
)

// ContractError reports a caller-contract violation by a stream operation.
type ContractError struct {
	Op  string
	Msg string
	Err error
}

func contractErrf(op string, err error, format string, args ...any) error {
	return &ContractError{op, fmt.Sprintf(format, args...), err}
}

func (e *ContractError) Is(target error) bool {
	return target == ErrContract
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

func (e *ContractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return e.Op + ": " + e.Msg
}

// DataError reports stored bytes that cannot be decoded.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	var data string
	if n <= prefixLen+suffixLen {
		data = fmt.Sprintf("(%d) %x", n, e.Data)
	} else {
		data = fmt.Sprintf("(%d) %x...%x", n, e.Data[:prefixLen], e.Data[n-suffixLen:])
	}
	if e.Err != nil {
		return fmt.Sprintf("%s at %d: %v: %s", e.Msg, e.Off, e.Err, data)
	}
	return fmt.Sprintf("%s at %d: %s", e.Msg, e.Off, data)
}

// StoreError reports a failure scoped to a table, and possibly to an index
// or a document.
type StoreError struct {
	Table string
	Index string
	ID    string
	Msg   string
	Err   error
}

func storeErrf(table, index, id string, err error, format string, args ...any) error {
	return &StoreError{table, index, id, fmt.Sprintf(format, args...), err}
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Table)
	if e.Index != "" {
		buf.WriteByte('.')
		buf.WriteString(e.Index)
	}
	if e.ID != "" {
		buf.WriteByte('/')
		buf.WriteString(e.ID)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}
