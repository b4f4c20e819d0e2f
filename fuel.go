package liquidpage

import (
	"fmt"
	"math"
	"sync/atomic"

	lperrors "github.com/v3gtb/liquidpage/internal/errors"
)

// iterationBudget counts loop iterations against Options.MaxIterations.
// A nil budget is unlimited.
type iterationBudget struct {
	initial   uint64
	remaining atomic.Int64
}

func newIterationBudget(limit uint64) *iterationBudget {
	if limit == 0 {
		return nil
	}
	if limit > math.MaxInt64 {
		limit = math.MaxInt64
	}
	b := &iterationBudget{initial: limit}
	b.remaining.Store(int64(limit))
	return b
}

func (b *iterationBudget) consume(amount int64) *lperrors.Error {
	if b == nil || amount == 0 {
		return nil
	}
	if b.remaining.Add(-amount) < 0 {
		return NewError(ErrResourceLimit, fmt.Sprintf("loop iteration limit of %d exceeded", b.initial))
	}
	return nil
}

func (b *iterationBudget) consumed() uint64 {
	if b == nil {
		return 0
	}
	remaining := b.remaining.Load()
	if remaining <= 0 {
		return b.initial
	}
	return b.initial - uint64(remaining)
}
