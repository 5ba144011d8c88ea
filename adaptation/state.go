package adaptation

import "fmt"

type State uint8

const (
	Initial State = iota
	Estimating
	Selecting
	Mutating
	Converged
	Failed
)

func (s State) String() string {
	switch s {
	case Initial:
		return "Initial"
	case Estimating:
		return "Estimating"
	case Selecting:
		return "Selecting"
	case Mutating:
		return "Mutating"
	case Converged:
		return "Converged"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}
