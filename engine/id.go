package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

var idSeq atomic.Int64

// newID builds a unique id like "sale-1735689600123456789-42". The counter
// disambiguates ids minted within the same nanosecond.
func newID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), idSeq.Add(1))
}

func intDecimal(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
