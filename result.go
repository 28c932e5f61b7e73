package kvrel

import "fmt"

// Mode controls the shape of a select result.
type Mode int

const (
	// ModeAuto returns a single match unwrapped in Result.One and anything
	// else in Result.ByID.
	ModeAuto Mode = iota
	// ModeObject always fills Result.ByID.
	ModeObject
	// ModeArray always fills Result.List.
	ModeArray
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeObject:
		return "object"
	case ModeArray:
		return "array"
	default:
		return fmt.Sprintf("invalid mode %d", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "object":
		return ModeObject, nil
	case "array", "as_array":
		return ModeArray, nil
	default:
		return ModeAuto, fmt.Errorf("kvrel: invalid mode %q", s)
	}
}

// Result holds selected rows in exactly one of three shapes, depending on the
// Mode and the number of matches:
//
//   - One: ModeAuto with exactly one match;
//   - ByID: ModeObject, or ModeAuto with zero or several matches;
//   - List: ModeArray, in store iteration order.
type Result[T any] struct {
	One  T
	ByID map[int64]T
	List []T

	single bool
	order  []int64
}

func makeResult[T any](byID map[int64]T, order []int64, mode Mode) Result[T] {
	switch {
	case mode == ModeArray:
		list := make([]T, 0, len(order))
		for _, id := range order {
			list = append(list, byID[id])
		}
		return Result[T]{List: list, order: order}
	case mode == ModeAuto && len(order) == 1:
		return Result[T]{One: byID[order[0]], single: true, order: order}
	default:
		return Result[T]{ByID: byID, order: order}
	}
}

// IsSingle reports whether the result was unwrapped into One.
func (r Result[T]) IsSingle() bool { return r.single }

func (r Result[T]) Len() int { return len(r.order) }

func (r Result[T]) IDs() []int64 {
	return append([]int64(nil), r.order...)
}

// All returns the rows in store iteration order regardless of shape.
func (r Result[T]) All() []T {
	switch {
	case r.single:
		return []T{r.One}
	case r.List != nil:
		return r.List
	default:
		out := make([]T, 0, len(r.order))
		for _, id := range r.order {
			out = append(out, r.ByID[id])
		}
		return out
	}
}
