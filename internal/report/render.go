package report

import (
	"fmt"
	"strings"

	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/ledger"
	"github.com/dustin/go-humanize"
)

const dateFormat = "2006-01-02"

var rule = strings.Repeat("=", 80)

// Render produces the plain-text report from precomputed aggregates. The six
// sections are always emitted in order; only their detail rows are elided
// when the underlying subset is empty. Downstream agents quote this text
// verbatim, so the layout is a presentation contract.
func Render(agg *Aggregates) string {
	var b strings.Builder
	w := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	section := func(title string) {
		w("")
		w(rule)
		w(title)
		w(rule)
	}

	// 1. Cash position snapshot
	section("CASH POSITION SNAPSHOT")
	w("Current Cash Balance: %s", money(agg.CurrentBalance))
	w("As of Date: %s", agg.AsOf.Format(dateFormat))
	w("Total Transactions Processed: %d", agg.TransactionCount)

	// 2. Inflow analysis
	section("INFLOW ANALYSIS (Revenue)")
	w("Total Inflows: %s", money(agg.TotalInflow))
	renderStatusSplit(w, agg.InflowByStatus, agg.TotalInflow)
	if len(agg.TopCustomers) > 0 {
		w("")
		w("Top 10 Customers by Revenue:")
		renderRanking(w, "Customer Name", agg.TopCustomers, agg.TotalInflow)
		w("")
		w("Top 10 Customers - Payment Status Breakdown:")
		w("%-40s %-15s %-15s %-15s", "Customer Name", "Paid", "Pending", "Overdue")
		w(strings.Repeat("-", 85))
		for _, c := range agg.TopCustomers {
			w("%-40s %s  %s  %s", c.Party, moneyCol(c.Paid), moneyCol(c.Pending), moneyCol(c.Overdue))
		}
	}

	// 3. Outflow analysis
	section("OUTFLOW ANALYSIS (Expenses)")
	w("Total Outflows: %s", money(agg.TotalOutflow))
	renderStatusSplit(w, agg.OutflowByStatus, agg.TotalOutflow)
	if len(agg.TopVendors) > 0 {
		w("")
		w("Top 10 Vendors by Payables:")
		renderRanking(w, "Vendor Name", agg.TopVendors, agg.TotalOutflow)
	}

	// 4. Overdue receivables
	section("OVERDUE RECEIVABLES ANALYSIS")
	w("Total Overdue Amount: %s", money(agg.OverdueReceivables.Total))
	w("Number of Overdue Invoices: %d", agg.OverdueReceivables.Count)
	if agg.OverdueReceivables.Count > 0 {
		w("Average Overdue Amount: %s", money(agg.OverdueReceivables.Mean))
		w("")
		w("Overdue Invoices Detail:")
		w("%-40s %-15s %-15s %-12s", "Customer Name", "Amount", "Date", "Days Overdue")
		w(strings.Repeat("-", 82))
		for _, item := range agg.OverdueReceivables.Items {
			w("%-40s %s  %-15s %10d days", item.Party, moneyCol(item.Amount), item.Date.Format(dateFormat), item.Days)
		}
	}

	// 5. Pending payables
	section("PENDING PAYABLES ANALYSIS")
	w("Total Pending Payables: %s", money(agg.PendingPayables.Total))
	w("Number of Pending Obligations: %d", agg.PendingPayables.Count)
	if agg.PendingPayables.Count > 0 {
		w("Average Pending Amount: %s", money(agg.PendingPayables.Mean))
		w("")
		w("Pending Payables Detail:")
		w("%-40s %-15s %-15s %-15s", "Vendor Name", "Amount", "Date", "Days Outstanding")
		w(strings.Repeat("-", 85))
		for _, item := range agg.PendingPayables.Items {
			w("%-40s %s  %-15s %13d days", item.Party, moneyCol(item.Amount), item.Date.Format(dateFormat), item.Days)
		}
	}

	// 6. Key financial metrics
	section("KEY FINANCIAL METRICS")
	w("Total Cash Inflows: %s", money(agg.TotalInflow))
	w("Total Cash Outflows: %s", money(agg.TotalOutflow))
	w("Net Cash Flow: %s", money(agg.NetCashFlow))
	w("Current Cash Balance: %s", money(agg.CurrentBalance))
	w("Daily Burn Rate: %s", money(agg.DailyBurnRate))
	if agg.RunwayIndefinite {
		w("Cash Runway: Positive cash generation (indefinite)")
	} else {
		w("Cash Runway: %.1f days", agg.RunwayDays)
	}
	if agg.HasWorkingCapitalRatio {
		w("Working Capital Ratio: %.2fx", agg.WorkingCapitalRatio)
	} else {
		w("Working Capital Ratio: N/A")
	}

	return b.String()
}

// renderStatusSplit emits the Paid/Pending/Overdue lines with percentages.
// Omitted entirely when the total is zero; there is nothing to percentage.
func renderStatusSplit(w func(string, ...interface{}), byStatus map[ledger.PaymentStatus]float64, total float64) {
	if total <= 0 {
		return
	}
	for _, status := range ledger.Statuses {
		amt := byStatus[status]
		w("  - %s: %s (%.1f%%)", status, money(amt), amt/total*100)
	}
}

func renderRanking(w func(string, ...interface{}), nameHeader string, parties []PartyTotal, total float64) {
	w("%-6s %-40s %-15s %-10s", "Rank", nameHeader, "Amount", "% of Total")
	w(strings.Repeat("-", 71))
	for i, p := range parties {
		pct := 0.0
		if total > 0 {
			pct = p.Amount / total * 100
		}
		w("%-6d %-40s %s  %7.1f%%", i+1, p.Party, moneyCol(p.Amount), pct)
	}
}

// money renders "$1,234.56" for inline totals.
func money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// moneyCol renders a right-aligned 12-wide money cell for tabular rows.
func moneyCol(v float64) string {
	return fmt.Sprintf("$%12s", humanize.FormatFloat("#,###.##", v))
}
