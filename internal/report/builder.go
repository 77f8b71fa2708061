// Package report turns a prepared transaction ledger into the deterministic
// plain-text cash-flow report consumed verbatim by the downstream analysis
// agents, plus the numeric aggregates used to build it.
package report

import (
	"time"

	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/ledger"
)

// topPartyCount caps the customer and vendor rankings.
const topPartyCount = 10

// PartyTotal is one ranked counterparty with its aggregate amount and, for
// customers, the per-status split of that amount.
type PartyTotal struct {
	Party   string  `json:"party"`
	Amount  float64 `json:"amount"`
	Paid    float64 `json:"paid"`
	Pending float64 `json:"pending"`
	Overdue float64 `json:"overdue"`
}

// AgingItem is one transaction in an aging detail listing. Days is anchored
// to report-generation time, not data-load time: regenerating the report
// tomorrow yields larger values for the same dataset. That freshness is
// intentional.
type AgingItem struct {
	Party  string    `json:"party"`
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
	Days   int       `json:"days"`
}

// AgingSummary aggregates an aging subset (overdue receivables or pending
// payables). Mean is meaningful only when Count > 0.
type AgingSummary struct {
	Total float64     `json:"total"`
	Count int         `json:"count"`
	Mean  float64     `json:"mean"`
	Items []AgingItem `json:"items"`
}

// Aggregates are the numbers behind the rendered report, exposed for tests
// and for API consumers that want structure instead of text.
type Aggregates struct {
	GeneratedAt time.Time `json:"generated_at"`

	CurrentBalance   float64   `json:"current_balance"`
	AsOf             time.Time `json:"as_of"`
	TransactionCount int       `json:"transaction_count"`

	TotalInflow    float64                          `json:"total_inflow"`
	InflowByStatus map[ledger.PaymentStatus]float64 `json:"inflow_by_status"`
	TopCustomers   []PartyTotal                     `json:"top_customers"`

	TotalOutflow    float64                          `json:"total_outflow"`
	OutflowByStatus map[ledger.PaymentStatus]float64 `json:"outflow_by_status"`
	TopVendors      []PartyTotal                     `json:"top_vendors"`

	OverdueReceivables AgingSummary `json:"overdue_receivables"`
	PendingPayables    AgingSummary `json:"pending_payables"`

	NetCashFlow   float64 `json:"net_cash_flow"`
	DateSpanDays  int     `json:"date_span_days"`
	DailyBurnRate float64 `json:"daily_burn_rate"`

	// RunwayDays is valid only when RunwayIndefinite is false. A burn rate
	// at or below zero means net cash generation, reported as indefinite
	// rather than as a negative or infinite number.
	RunwayDays       float64 `json:"runway_days"`
	RunwayIndefinite bool    `json:"runway_indefinite"`

	// WorkingCapitalRatio is valid only when HasWorkingCapitalRatio is
	// true; with zero total outflow the ratio is undefined, not infinite.
	WorkingCapitalRatio    float64 `json:"working_capital_ratio"`
	HasWorkingCapitalRatio bool    `json:"has_working_capital_ratio"`
}

// Builder produces cash-flow reports. The zero value is not usable; call
// NewBuilder. The clock is injectable so tests can pin generation time.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder anchored to the wall clock.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// NewBuilderWithClock returns a Builder using the given clock for the
// "as of" fallback and all aging computations.
func NewBuilderWithClock(now func() time.Time) *Builder {
	return &Builder{now: now}
}

// Build renders the six-section report for a prepared ledger and returns it
// together with the aggregates it was built from. The input must already be
// sorted ascending by date with running balances populated (ledger.Prepare);
// it is read, never mutated. An empty ledger is valid and produces a report
// with zero totals.
func (b *Builder) Build(txs []ledger.Transaction) (string, *Aggregates) {
	agg := b.Summarize(txs)
	return Render(agg), agg
}

// Summarize computes the report aggregates without rendering text.
func (b *Builder) Summarize(txs []ledger.Transaction) *Aggregates {
	now := b.now()

	agg := &Aggregates{
		GeneratedAt:      now,
		AsOf:             now,
		TransactionCount: len(txs),
		InflowByStatus:   make(map[ledger.PaymentStatus]float64),
		OutflowByStatus:  make(map[ledger.PaymentStatus]float64),
	}

	if len(txs) > 0 {
		last := txs[len(txs)-1]
		agg.CurrentBalance = last.RunningBalance
		agg.AsOf = last.Date
	}

	inflows := filter(txs, func(tx ledger.Transaction) bool { return tx.Inflow > 0 })
	outflows := filter(txs, func(tx ledger.Transaction) bool { return tx.Outflow > 0 })

	agg.TotalInflow = sumAmounts(inflows, inflowAmount)
	agg.TotalOutflow = sumAmounts(outflows, outflowAmount)
	agg.NetCashFlow = agg.TotalInflow - agg.TotalOutflow

	_, agg.InflowByStatus = sumByKey(inflows, byStatus, inflowAmount)
	_, agg.OutflowByStatus = sumByKey(outflows, byStatus, outflowAmount)

	agg.TopCustomers = topParties(inflows, inflowAmount, true)
	agg.TopVendors = topParties(outflows, outflowAmount, false)

	agg.OverdueReceivables = summarizeAging(inflows, ledger.StatusOverdue, inflowAmount, now)
	agg.PendingPayables = summarizeAging(outflows, ledger.StatusPending, outflowAmount, now)

	b.summarizeMetrics(txs, agg)

	return agg
}

// summarizeMetrics fills in burn rate, runway and the working-capital ratio.
func (b *Builder) summarizeMetrics(txs []ledger.Transaction, agg *Aggregates) {
	if len(txs) > 1 {
		// txs are sorted ascending, so the span is last minus first,
		// floored at one day so single-day datasets don't divide by zero.
		span := int(txs[len(txs)-1].Date.Sub(txs[0].Date).Hours() / 24)
		if span < 1 {
			span = 1
		}
		agg.DateSpanDays = span
		agg.DailyBurnRate = (agg.TotalOutflow - agg.TotalInflow) / float64(span)
	}

	if agg.DailyBurnRate > 0 {
		agg.RunwayDays = agg.CurrentBalance / agg.DailyBurnRate
	} else {
		agg.RunwayIndefinite = true
	}

	if agg.TotalOutflow > 0 {
		agg.WorkingCapitalRatio = agg.TotalInflow / agg.TotalOutflow
		agg.HasWorkingCapitalRatio = true
	}
}

// topParties ranks counterparties by summed amount descending, keeping the
// first-seen order for exact ties. withStatusSplit additionally computes the
// Paid/Pending/Overdue split for each ranked party.
func topParties(txs []ledger.Transaction, amount func(ledger.Transaction) float64, withStatusSplit bool) []PartyTotal {
	parties, totals := sumByKey(txs, byParty, amount)
	ranked := rankTop(parties, totals, topPartyCount)

	var byPartyStatus map[partyStatus]float64
	if withStatusSplit {
		_, byPartyStatus = sumByKey(txs, func(tx ledger.Transaction) partyStatus {
			return partyStatus{tx.PartyName, tx.Status}
		}, amount)
	}

	out := make([]PartyTotal, 0, len(ranked))
	for _, party := range ranked {
		pt := PartyTotal{Party: party, Amount: totals[party]}
		if withStatusSplit {
			pt.Paid = byPartyStatus[partyStatus{party, ledger.StatusPaid}]
			pt.Pending = byPartyStatus[partyStatus{party, ledger.StatusPending}]
			pt.Overdue = byPartyStatus[partyStatus{party, ledger.StatusOverdue}]
		}
		out = append(out, pt)
	}
	return out
}

type partyStatus struct {
	party  string
	status ledger.PaymentStatus
}

// summarizeAging collects the rows matching status, totaling them and
// computing whole days elapsed between now and each transaction date.
func summarizeAging(txs []ledger.Transaction, status ledger.PaymentStatus, amount func(ledger.Transaction) float64, now time.Time) AgingSummary {
	var s AgingSummary
	for _, tx := range txs {
		if tx.Status != status {
			continue
		}
		amt := amount(tx)
		s.Items = append(s.Items, AgingItem{
			Party:  tx.PartyName,
			Amount: amt,
			Date:   tx.Date,
			Days:   wholeDays(now.Sub(tx.Date)),
		})
		s.Total += amt
		s.Count++
	}
	if s.Count > 0 {
		s.Mean = s.Total / float64(s.Count)
	}
	return s
}

func wholeDays(d time.Duration) int {
	return int(d.Hours() / 24)
}

func byParty(tx ledger.Transaction) string                { return tx.PartyName }
func byStatus(tx ledger.Transaction) ledger.PaymentStatus { return tx.Status }
func inflowAmount(tx ledger.Transaction) float64          { return tx.Inflow }
func outflowAmount(tx ledger.Transaction) float64         { return tx.Outflow }

func filter(txs []ledger.Transaction, keep func(ledger.Transaction) bool) []ledger.Transaction {
	var out []ledger.Transaction
	for _, tx := range txs {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func sumAmounts(txs []ledger.Transaction, amount func(ledger.Transaction) float64) float64 {
	total := 0.0
	for _, tx := range txs {
		total += amount(tx)
	}
	return total
}
