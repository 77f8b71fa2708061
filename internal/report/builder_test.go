package report

import (
	"strings"
	"testing"
	"time"

	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/ledger"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixedClock(s string) func() time.Time {
	t := date(s)
	return func() time.Time { return t }
}

func inflow(day, party string, amount float64, status ledger.PaymentStatus) ledger.Transaction {
	return ledger.Transaction{Date: date(day), PartyName: party, Inflow: amount, Status: status}
}

func outflow(day, party string, amount float64, status ledger.PaymentStatus) ledger.Transaction {
	return ledger.Transaction{Date: date(day), PartyName: party, Outflow: amount, Status: status}
}

func almostEqual(a, b float64) bool {
	diff := a - b
	return diff < 1e-9 && diff > -1e-9
}

func TestBuildExampleScenario(t *testing.T) {
	txs := ledger.Prepare([]ledger.Transaction{
		inflow("2025-01-01", "Acme", 1000, ledger.StatusPaid),
		outflow("2025-01-02", "Acme", 400, ledger.StatusPending),
		inflow("2025-01-03", "Beta", 500, ledger.StatusOverdue),
	}, false)

	b := NewBuilderWithClock(fixedClock("2025-01-10"))
	text, agg := b.Build(txs)

	if !almostEqual(agg.TotalInflow, 1500) {
		t.Errorf("TotalInflow = %v, want 1500", agg.TotalInflow)
	}
	if !almostEqual(agg.TotalOutflow, 400) {
		t.Errorf("TotalOutflow = %v, want 400", agg.TotalOutflow)
	}
	if !almostEqual(agg.NetCashFlow, 1100) {
		t.Errorf("NetCashFlow = %v, want 1100", agg.NetCashFlow)
	}
	if !almostEqual(agg.CurrentBalance, 1100) {
		t.Errorf("CurrentBalance = %v, want 1100", agg.CurrentBalance)
	}
	if agg.TransactionCount != 3 {
		t.Errorf("TransactionCount = %d, want 3", agg.TransactionCount)
	}

	if len(agg.TopCustomers) == 0 || agg.TopCustomers[0].Party != "Acme" || !almostEqual(agg.TopCustomers[0].Amount, 1000) {
		t.Errorf("TopCustomers = %+v, want Acme at 1000 first", agg.TopCustomers)
	}

	od := agg.OverdueReceivables
	if od.Count != 1 || !almostEqual(od.Total, 500) || od.Items[0].Party != "Beta" {
		t.Errorf("OverdueReceivables = %+v, want exactly the Beta row at 500", od)
	}
	if od.Items[0].Days != 7 {
		t.Errorf("days overdue = %d, want 7", od.Items[0].Days)
	}

	// Net cash generation, so the runway branch must be indefinite.
	if !agg.RunwayIndefinite {
		t.Errorf("RunwayIndefinite = false, want true (burn rate %v)", agg.DailyBurnRate)
	}

	for _, want := range []string{
		"Current Cash Balance: $1,100.00",
		"As of Date: 2025-01-03",
		"Total Inflows: $1,500.00",
		"66.7%",
		"Beta",
		"Cash Runway: Positive cash generation (indefinite)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q\n%s", want, text)
		}
	}
}

func TestBuildEmptyLedger(t *testing.T) {
	b := NewBuilderWithClock(fixedClock("2025-06-15"))
	text, agg := b.Build(nil)

	if agg.TransactionCount != 0 || agg.CurrentBalance != 0 || agg.TotalInflow != 0 || agg.TotalOutflow != 0 {
		t.Errorf("empty ledger aggregates not zero: %+v", agg)
	}
	if !agg.AsOf.Equal(date("2025-06-15")) {
		t.Errorf("AsOf = %v, want clock time for empty ledger", agg.AsOf)
	}
	if !agg.RunwayIndefinite {
		t.Error("empty ledger must report indefinite runway")
	}
	if agg.HasWorkingCapitalRatio {
		t.Error("empty ledger must report undefined working-capital ratio")
	}

	// All six sections present even with nothing to report.
	for _, header := range []string{
		"CASH POSITION SNAPSHOT",
		"INFLOW ANALYSIS (Revenue)",
		"OUTFLOW ANALYSIS (Expenses)",
		"OVERDUE RECEIVABLES ANALYSIS",
		"PENDING PAYABLES ANALYSIS",
		"KEY FINANCIAL METRICS",
	} {
		if !strings.Contains(text, header) {
			t.Errorf("report missing section %q", header)
		}
	}
	for _, want := range []string{
		"Current Cash Balance: $0.00",
		"As of Date: 2025-06-15",
		"Working Capital Ratio: N/A",
		"Cash Runway: Positive cash generation (indefinite)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q\n%s", want, text)
		}
	}
}

func TestStatusBucketsPartitionTotals(t *testing.T) {
	txs := ledger.Prepare([]ledger.Transaction{
		inflow("2025-03-01", "A", 120.50, ledger.StatusPaid),
		inflow("2025-03-02", "B", 79.25, ledger.StatusPending),
		inflow("2025-03-03", "C", 300, ledger.StatusOverdue),
		inflow("2025-03-04", "A", 55.55, ledger.StatusPaid),
		outflow("2025-03-05", "D", 210.10, ledger.StatusPaid),
		outflow("2025-03-06", "E", 89.90, ledger.StatusPending),
	}, false)

	agg := NewBuilder().Summarize(txs)

	inSum := agg.InflowByStatus[ledger.StatusPaid] + agg.InflowByStatus[ledger.StatusPending] + agg.InflowByStatus[ledger.StatusOverdue]
	if !almostEqual(inSum, agg.TotalInflow) {
		t.Errorf("inflow buckets sum to %v, total is %v", inSum, agg.TotalInflow)
	}

	outSum := agg.OutflowByStatus[ledger.StatusPaid] + agg.OutflowByStatus[ledger.StatusPending] + agg.OutflowByStatus[ledger.StatusOverdue]
	if !almostEqual(outSum, agg.TotalOutflow) {
		t.Errorf("outflow buckets sum to %v, total is %v", outSum, agg.TotalOutflow)
	}
}

func TestTopCustomersRanking(t *testing.T) {
	base := []ledger.Transaction{
		inflow("2025-02-01", "Gamma", 300, ledger.StatusPaid),
		inflow("2025-02-02", "Alpha", 500, ledger.StatusPaid),
		inflow("2025-02-03", "Beta", 400, ledger.StatusPaid),
		inflow("2025-02-04", "Alpha", 100, ledger.StatusPending),
	}
	permuted := []ledger.Transaction{base[2], base[0], base[3], base[1]}

	wantOrder := []string{"Alpha", "Beta", "Gamma"}

	for name, input := range map[string][]ledger.Transaction{"original": base, "permuted": permuted} {
		agg := NewBuilder().Summarize(ledger.Prepare(input, false))
		if len(agg.TopCustomers) != len(wantOrder) {
			t.Fatalf("%s: got %d customers, want %d", name, len(agg.TopCustomers), len(wantOrder))
		}
		for i, want := range wantOrder {
			if agg.TopCustomers[i].Party != want {
				t.Errorf("%s: rank %d = %s, want %s", name, i+1, agg.TopCustomers[i].Party, want)
			}
		}
	}
}

func TestTopCustomersStatusSplit(t *testing.T) {
	txs := ledger.Prepare([]ledger.Transaction{
		inflow("2025-02-01", "Alpha", 500, ledger.StatusPaid),
		inflow("2025-02-02", "Alpha", 200, ledger.StatusPending),
		inflow("2025-02-03", "Alpha", 100, ledger.StatusOverdue),
	}, false)

	agg := NewBuilder().Summarize(txs)
	c := agg.TopCustomers[0]
	if !almostEqual(c.Paid, 500) || !almostEqual(c.Pending, 200) || !almostEqual(c.Overdue, 100) {
		t.Errorf("status split = paid %v pending %v overdue %v, want 500/200/100", c.Paid, c.Pending, c.Overdue)
	}
	if !almostEqual(c.Paid+c.Pending+c.Overdue, c.Amount) {
		t.Errorf("split does not add up to ranked amount %v", c.Amount)
	}
}

func TestTopRankingCutoffDropsTies(t *testing.T) {
	// Eleven parties; the 10th and 11th by first occurrence share a total.
	// Rank 11 never appears, even tied with rank 10.
	var txs []ledger.Transaction
	for i := 0; i < 9; i++ {
		txs = append(txs, inflow("2025-04-01", string(rune('A'+i)), float64(1000-i*10), ledger.StatusPaid))
	}
	txs = append(txs,
		inflow("2025-04-02", "Tied-First", 50, ledger.StatusPaid),
		inflow("2025-04-03", "Tied-Second", 50, ledger.StatusPaid),
	)

	agg := NewBuilder().Summarize(ledger.Prepare(txs, false))
	if len(agg.TopCustomers) != 10 {
		t.Fatalf("got %d ranked customers, want 10", len(agg.TopCustomers))
	}
	if got := agg.TopCustomers[9].Party; got != "Tied-First" {
		t.Errorf("rank 10 = %s, want Tied-First (stable first-seen tie-break)", got)
	}
	for _, c := range agg.TopCustomers {
		if c.Party == "Tied-Second" {
			t.Error("Tied-Second appears in top 10 despite ranking below the cutoff")
		}
	}
}

func TestRunwayBranches(t *testing.T) {
	tests := []struct {
		name           string
		txs            []ledger.Transaction
		wantIndefinite bool
	}{
		{
			name: "net burn yields finite runway",
			txs: []ledger.Transaction{
				inflow("2025-01-01", "A", 100, ledger.StatusPaid),
				outflow("2025-01-11", "B", 600, ledger.StatusPaid),
			},
			wantIndefinite: false,
		},
		{
			name: "net generation yields indefinite runway",
			txs: []ledger.Transaction{
				outflow("2025-01-01", "B", 100, ledger.StatusPaid),
				inflow("2025-01-11", "A", 600, ledger.StatusPaid),
			},
			wantIndefinite: true,
		},
		{
			name: "break-even yields indefinite runway",
			txs: []ledger.Transaction{
				inflow("2025-01-01", "A", 500, ledger.StatusPaid),
				outflow("2025-01-11", "B", 500, ledger.StatusPaid),
			},
			wantIndefinite: true,
		},
		{
			name:           "single row yields zero burn and indefinite runway",
			txs:            []ledger.Transaction{inflow("2025-01-01", "A", 500, ledger.StatusPaid)},
			wantIndefinite: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewBuilder().Summarize(ledger.Prepare(tt.txs, false))
			if agg.RunwayIndefinite != tt.wantIndefinite {
				t.Fatalf("RunwayIndefinite = %v, want %v (burn %v)", agg.RunwayIndefinite, tt.wantIndefinite, agg.DailyBurnRate)
			}
			if !tt.wantIndefinite {
				if agg.DailyBurnRate <= 0 {
					t.Fatalf("finite runway with burn rate %v", agg.DailyBurnRate)
				}
				want := agg.CurrentBalance / agg.DailyBurnRate
				if !almostEqual(agg.RunwayDays, want) {
					t.Errorf("RunwayDays = %v, want %v", agg.RunwayDays, want)
				}
				if agg.RunwayDays < 0 {
					t.Errorf("RunwayDays = %v, must never be negative", agg.RunwayDays)
				}
			}
		})
	}
}

func TestWorkingCapitalRatio(t *testing.T) {
	txs := ledger.Prepare([]ledger.Transaction{
		inflow("2025-01-01", "A", 150, ledger.StatusPaid),
		outflow("2025-01-02", "B", 50, ledger.StatusPaid),
	}, false)
	text, agg := NewBuilder().Build(txs)

	if !agg.HasWorkingCapitalRatio || !almostEqual(agg.WorkingCapitalRatio, 3) {
		t.Errorf("ratio = %v (defined=%v), want 3.00", agg.WorkingCapitalRatio, agg.HasWorkingCapitalRatio)
	}
	if !strings.Contains(text, "Working Capital Ratio: 3.00x") {
		t.Errorf("report missing 3.00x ratio line\n%s", text)
	}

	noOutflow := ledger.Prepare([]ledger.Transaction{
		inflow("2025-01-01", "A", 150, ledger.StatusPaid),
		inflow("2025-01-05", "B", 20, ledger.StatusPaid),
	}, false)
	text, agg = NewBuilder().Build(noOutflow)
	if agg.HasWorkingCapitalRatio {
		t.Error("ratio defined with zero outflow, want N/A")
	}
	if !strings.Contains(text, "Working Capital Ratio: N/A") {
		t.Errorf("report missing N/A ratio line\n%s", text)
	}
}

func TestDateSpanFlooredAtOneDay(t *testing.T) {
	txs := ledger.Prepare([]ledger.Transaction{
		inflow("2025-01-01", "A", 100, ledger.StatusPaid),
		outflow("2025-01-01", "B", 400, ledger.StatusPaid),
	}, false)
	agg := NewBuilder().Summarize(txs)

	if agg.DateSpanDays != 1 {
		t.Errorf("DateSpanDays = %d, want 1 for a single-day dataset", agg.DateSpanDays)
	}
	if !almostEqual(agg.DailyBurnRate, 300) {
		t.Errorf("DailyBurnRate = %v, want 300", agg.DailyBurnRate)
	}
}

func TestAgingFreshness(t *testing.T) {
	txs := ledger.Prepare([]ledger.Transaction{
		inflow("2025-01-01", "Beta", 500, ledger.StatusOverdue),
		outflow("2025-01-02", "Gamma", 200, ledger.StatusPending),
	}, false)

	first := NewBuilderWithClock(fixedClock("2025-01-10")).Summarize(txs)
	later := NewBuilderWithClock(fixedClock("2025-01-13")).Summarize(txs)

	if gotFirst, gotLater := first.OverdueReceivables.Items[0].Days, later.OverdueReceivables.Items[0].Days; gotLater != gotFirst+3 {
		t.Errorf("days overdue went %d -> %d across 3 elapsed days", gotFirst, gotLater)
	}
	if gotFirst, gotLater := first.PendingPayables.Items[0].Days, later.PendingPayables.Items[0].Days; gotLater != gotFirst+3 {
		t.Errorf("days outstanding went %d -> %d across 3 elapsed days", gotFirst, gotLater)
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	txs := ledger.Prepare([]ledger.Transaction{
		inflow("2025-01-01", "A", 100, ledger.StatusPaid),
		outflow("2025-01-02", "B", 40, ledger.StatusPending),
	}, false)
	snapshot := make([]ledger.Transaction, len(txs))
	copy(snapshot, txs)

	NewBuilder().Build(txs)

	for i := range txs {
		if txs[i] != snapshot[i] {
			t.Fatalf("transaction %d mutated by Build: %+v != %+v", i, txs[i], snapshot[i])
		}
	}
}
