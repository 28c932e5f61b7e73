package kvrel

import "fmt"

type (
	// Change describes one record mutation. For OpDrop, ID is zero and
	// Record is nil. Updates made by DB.Each carry no Record.
	Change struct {
		Table  string
		Op     Op
		ID     int64
		Record *Record
	}

	Op int
)

const (
	OpNone   Op = 0
	OpInsert Op = 1
	OpUpdate Op = 2
	OpRemove Op = 3
	OpDrop   Op = 4
)

func (v Op) String() string {
	switch v {
	case OpNone:
		return "none"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	case OpDrop:
		return "drop"
	default:
		return fmt.Sprintf("invalid op %d", int(v))
	}
}

func (chg Change) String() string {
	if chg.ID == 0 {
		return fmt.Sprintf("%s %s", chg.Op, chg.Table)
	}
	return fmt.Sprintf("%s %s/%d", chg.Op, chg.Table, chg.ID)
}
