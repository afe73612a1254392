package best

import "github.com/okian/maisearch/internal/domain/model"

// Default list sizes for a best-50 report.
const (
	DefaultStandardSize = 35
	DefaultDeluxeSize   = 15
)

// Board pairs the best list of charts from earlier versions (Standard) with
// the best list of charts from the current version (Deluxe).
type Board struct {
	Standard *List
	Deluxe   *List
}

// NewBoard creates a board with the given list capacities.
func NewBoard(standardSize, deluxeSize int) (*Board, error) {
	sd, err := New(standardSize)
	if err != nil {
		return nil, err
	}
	dx, err := New(deluxeSize)
	if err != nil {
		return nil, err
	}
	return &Board{Standard: sd, Deluxe: dx}, nil
}

// PushStandard offers a record to the standard list.
func (b *Board) PushStandard(r model.Record) bool { return b.Standard.Push(r) }

// PushDeluxe offers a record to the deluxe list.
func (b *Board) PushDeluxe(r model.Record) bool { return b.Deluxe.Push(r) }

// Rating is the player rating: the sum over both lists.
func (b *Board) Rating() int { return b.Standard.Rating() + b.Deluxe.Rating() }
