package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSortSharers(t *testing.T) {
	stats := []SharerStats{
		{UserID: 3, Email: "carol@example.com", Earnings: decimal.RequireFromString("1.5")},
		{UserID: 1, Email: "bob@example.com", Earnings: decimal.RequireFromString("4")},
		{UserID: 2, Email: "alice@example.com", Earnings: decimal.RequireFromString("1.5")},
	}

	SortSharers(stats, SortByEarnings)
	assert.Equal(t, []uint{1, 2, 3}, ids(stats))

	SortSharers(stats, SortByEmail)
	assert.Equal(t, []uint{2, 1, 3}, ids(stats))

	SortSharers(stats, SortByJoined)
	assert.Equal(t, []uint{1, 2, 3}, ids(stats))

	assert.Equal(t, SortByEarnings, SortByJoined.Next())
}

func TestSessionHelpers(t *testing.T) {
	session, err := NewSharingSession(5, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	assert.True(t, session.IsActive)
	assert.NotEqual(t, session.SessionID, session.ConnectionToken)
	assert.Len(t, session.SessionID, 43)
	assert.False(t, session.HasBuyer())
	assert.True(t, session.IsParticipant(5))
	assert.False(t, session.IsParticipant(6))

	buyer := uint(6)
	session.UserID = &buyer
	session.DataUsedMB = decimal.NewFromInt(1536)
	assert.True(t, session.IsParticipant(6))
	assert.True(t, session.DataUsedGB().Equal(decimal.RequireFromString("1.5")))
}

func ids(stats []SharerStats) []uint {
	result := make([]uint, 0, len(stats))
	for _, s := range stats {
		result = append(result, s.UserID)
	}
	return result
}
