package helpers

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"datashare/internal/constants"
	"datashare/internal/models"
	"datashare/internal/pricing"
)

// FormatGB formats a token or data amount in gigabytes
func FormatGB(gb decimal.Decimal) string {
	return gb.StringFixed(2) + " GB"
}

// FormatMoney formats a currency amount
func FormatMoney(amount decimal.Decimal) string {
	return constants.CurrencySymbol + amount.StringFixed(2)
}

// FormatBalance formats an account's balance summary
func FormatBalance(summary *models.BalanceSummary) string {
	var sb strings.Builder
	sb.WriteString("<b>Your balance:</b>\n")
	sb.WriteString(fmt.Sprintf("Tokens: %s\n", FormatGB(summary.Tokens)))
	if summary.IsSharer {
		sb.WriteString(fmt.Sprintf("Sharing earnings: %s\n", FormatMoney(summary.Earnings)))
	}
	if !summary.Tokens.IsPositive() {
		sb.WriteString("\nBuy tokens to connect to a sharer.")
	}
	return sb.String()
}

// FormatPackages formats the price table
func FormatPackages(packages []pricing.Package) string {
	var sb strings.Builder
	sb.WriteString("<b>Token packages:</b>\n")
	for _, pkg := range packages {
		size := FormatGB(pkg.Tokens)
		if pkg.Unlimited {
			size = "unlimited"
		}
		sb.WriteString(fmt.Sprintf("%s: %s (%s)\n", pkg.Name, FormatMoney(pkg.Price), size))
	}
	return sb.String()
}

// FormatSessionLine formats a single session of a session list
func FormatSessionLine(session models.SharingSession) string {
	status := "waiting for buyer"
	switch {
	case !session.IsActive:
		status = "ended"
	case session.HasBuyer():
		status = "connected"
	}
	return fmt.Sprintf("<code>%s</code> | %s | %s\n", ShortID(session.SessionID), FormatGB(session.DataUsedGB()), status)
}

// FormatTransactions formats a list of ledger entries
func FormatTransactions(txns []models.Transaction) string {
	if len(txns) == 0 {
		return "No transactions yet."
	}

	var sb strings.Builder
	sb.WriteString("<b>Recent transactions:</b>\n")
	for _, txn := range txns {
		sb.WriteString(fmt.Sprintf("%s %s %s (+%s)\n",
			txn.CreatedAt.Format(constants.DateFormat),
			txn.Description,
			FormatMoney(txn.Amount),
			FormatGB(txn.Tokens)))
	}
	return sb.String()
}

// FormatOverviewReport formats the admin platform report
func FormatOverviewReport(overview *models.PlatformOverview) string {
	var sb strings.Builder
	sb.WriteString("<b>Platform Report:</b>\n")
	sb.WriteString(fmt.Sprintf("Total earnings: %s\n", FormatMoney(overview.Earnings.TotalEarnings)))
	sb.WriteString(fmt.Sprintf("Purchases: %d\n", overview.Earnings.TotalTransactions))
	sb.WriteString(fmt.Sprintf("Users: %d (sharers: %d)\n", overview.TotalUsers, overview.TotalSharers))
	sb.WriteString(fmt.Sprintf("Active sessions: %d\n", overview.ActiveSessions))
	sb.WriteString(fmt.Sprintf("Last updated: %s\n", overview.Earnings.LastUpdated.Format(constants.TimestampFormat)))

	if len(overview.RecentTransactions) == 0 {
		return sb.String()
	}

	sb.WriteString("<pre>\n")
	sb.WriteString("User              |  Amount | Tokens\n")
	sb.WriteString("------------------|---------|--------\n")
	for _, txn := range overview.RecentTransactions {
		sb.WriteString(FormatTableLine(fmt.Sprintf("user %d", txn.UserID), txn.Amount, txn.Tokens))
	}
	sb.WriteString("</pre>")
	return sb.String()
}

// FormatSharerBoard formats the admin sharer leaderboard
func FormatSharerBoard(stats []models.SharerStats, sortType models.SortType) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Top sharers</b> (%s)\n", sortType.GetSortName()))
	if len(stats) == 0 {
		sb.WriteString("No sharers yet.")
		return sb.String()
	}

	sb.WriteString("<pre>\n")
	for _, s := range stats {
		sb.WriteString(fmt.Sprintf("%-17s | %8s\n", TruncateEmail(MaskEmail(s.Email)), FormatMoney(s.Earnings)))
	}
	sb.WriteString("</pre>")
	return sb.String()
}

// FormatTableLine formats a single line of the transactions table
func FormatTableLine(label string, amount decimal.Decimal, tokens decimal.Decimal) string {
	return fmt.Sprintf("%-17s | %7s | %6s\n", TruncateEmail(label), amount.StringFixed(2), tokens.StringFixed(2))
}

// TruncateEmail shortens long labels to the table column width
func TruncateEmail(email string) string {
	if len(email) > constants.MaxEmailDisplayLength {
		return email[:constants.MaxEmailSuffixLength] + "..."
	}
	return email
}
