package helpers

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"datashare/internal/models"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", MaskEmail("john.doe@example.com"))
	assert.Equal(t, "a***@example.com", MaskEmail("ab@example.com"))
	assert.Equal(t, "not-an-email", MaskEmail("not-an-email"))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abcdefgh", ShortID("abcdefghijklmnop"))
	assert.Equal(t, "abc", ShortID("abc"))
}

func TestFormatBalance(t *testing.T) {
	out := FormatBalance(&models.BalanceSummary{Tokens: decimal.RequireFromString("1.5"), Earnings: decimal.RequireFromString("0.3"), IsSharer: true})
	assert.Contains(t, out, "1.50 GB")
	assert.Contains(t, out, "$0.30")

	out = FormatBalance(&models.BalanceSummary{Tokens: decimal.RequireFromString("-1")})
	assert.Contains(t, out, "Buy tokens")
	assert.NotContains(t, out, "earnings")
}

func TestFormatSessionLine(t *testing.T) {
	buyer := uint(2)
	session := models.SharingSession{SessionID: "abcdefghijkl", DataUsedMB: decimal.NewFromInt(512), IsActive: true, UserID: &buyer}
	assert.Equal(t, "<code>abcdefgh</code> | 0.50 GB | connected\n", FormatSessionLine(session))

	session.IsActive = false
	assert.Contains(t, FormatSessionLine(session), "ended")
}

func TestFormatOverviewReport(t *testing.T) {
	overview := &models.PlatformOverview{
		Earnings:     models.AdminEarnings{TotalEarnings: decimal.RequireFromString("2.6"), TotalTransactions: 1, LastUpdated: time.Now()},
		TotalUsers:   3,
		TotalSharers: 1,
		RecentTransactions: []models.Transaction{
			{UserID: 7, Amount: decimal.RequireFromString("6.5"), Tokens: decimal.NewFromInt(5)},
		},
	}

	out := FormatOverviewReport(overview)
	assert.Contains(t, out, "Total earnings: $2.60")
	assert.Contains(t, out, "Users: 3 (sharers: 1)")
	assert.Contains(t, out, "user 7            |    6.50 |   5.00")
}
