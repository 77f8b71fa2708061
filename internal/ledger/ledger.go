package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PaymentStatus is the settlement state of a single transaction.
type PaymentStatus string

const (
	StatusPaid    PaymentStatus = "Paid"
	StatusPending PaymentStatus = "Pending"
	StatusOverdue PaymentStatus = "Overdue"
)

// Statuses lists the valid payment statuses in presentation order.
var Statuses = []PaymentStatus{StatusPaid, StatusPending, StatusOverdue}

// Transaction is one normalized row of an uploaded ledger.
// Inflow and Outflow are both stored as non-negative magnitudes; a row is
// either inflow-bearing or outflow-bearing, never meaningfully both.
type Transaction struct {
	Date           time.Time
	PartyName      string
	Inflow         float64
	Outflow        float64
	Status         PaymentStatus
	RunningBalance float64
}

// ParseStatus normalizes a raw payment status cell. Anything outside the
// Paid/Pending/Overdue enumeration is a data-quality error: the report's
// status buckets must partition the totals exactly, so unknown values
// cannot be silently carried along.
func ParseStatus(raw string) (PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paid":
		return StatusPaid, nil
	case "pending":
		return StatusPending, nil
	case "overdue":
		return StatusOverdue, nil
	default:
		return "", fmt.Errorf("unknown payment status %q", raw)
	}
}

// Prepare returns a new slice sorted ascending by date with running balances
// filled in as the cumulative sum of (inflow - outflow). The input slice is
// never mutated. When hasBalance is true the rows already carry a
// source-provided Running Balance column and only the sort is applied.
func Prepare(txs []Transaction, hasBalance bool) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	if hasBalance {
		return out
	}

	balance := 0.0
	for i := range out {
		balance += out[i].Inflow - out[i].Outflow
		out[i].RunningBalance = balance
	}
	return out
}
