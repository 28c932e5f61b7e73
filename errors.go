package kvrel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrStoreUnavailable        = errors.New("store unavailable")
	ErrInvalidName             = errors.New("invalid name")
	ErrInvalidSelector         = errors.New("invalid selector")
	ErrMissingAssociationModel = errors.New("missing association model")
	ErrInvalidAssociation      = errors.New("invalid association")
	ErrCorruptSnapshot         = errors.New("corrupt snapshot")
)

// TableError wraps a failure of an engine operation on a table.
type TableError struct {
	Table string
	ID    int64
	Key   string
	Op    string
	Err   error
}

func tableErrf(table string, id int64, key string, err error, op string) error {
	return &TableError{Table: table, ID: id, Key: key, Op: op, Err: err}
}

func (e *TableError) Unwrap() error {
	return e.Err
}

func (e *TableError) Error() string {
	var buf strings.Builder
	buf.WriteString("kvrel: ")
	buf.WriteString(e.Table)
	if e.ID != 0 {
		buf.WriteByte('/')
		buf.WriteString(strconv.FormatInt(e.ID, 10))
	}
	if e.Key != "" {
		buf.WriteString(" [")
		buf.WriteString(e.Key)
		buf.WriteByte(']')
	}
	if e.Op != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Op)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// AssociationError reports a problem resolving a declared association.
type AssociationError struct {
	Model string
	Assoc string
	Err   error
}

func (e *AssociationError) Unwrap() error {
	return e.Err
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("kvrel: %s.%s: %v", e.Model, e.Assoc, e.Err)
}

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}
