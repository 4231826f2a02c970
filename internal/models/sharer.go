package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SortType selects the order of the sharer leaderboard
type SortType int

const (
	SortByEarnings SortType = iota // Highest earnings first
	SortByEmail                    // Alphabetical
	SortByJoined                   // Account creation order
)

// SharerStats is one row of the admin sharer leaderboard
type SharerStats struct {
	UserID   uint            `json:"user_id"`
	Email    string          `json:"email"`
	Earnings decimal.Decimal `json:"earnings"`
}

// GetSortName returns a readable name of the sort type
func (st SortType) GetSortName() string {
	switch st {
	case SortByEmail:
		return "🔤 By email"
	case SortByJoined:
		return "📅 By join date"
	default:
		return "💰 By earnings"
	}
}

// Next cycles to the following sort type
func (st SortType) Next() SortType {
	return (st + 1) % 3
}

// SortSharers sorts the leaderboard by the given type
func SortSharers(stats []SharerStats, sortType SortType) {
	sort.SliceStable(stats, func(i, j int) bool {
		switch sortType {
		case SortByEmail:
			return stats[i].Email < stats[j].Email
		case SortByJoined:
			return stats[i].UserID < stats[j].UserID
		default:
			if !stats[i].Earnings.Equal(stats[j].Earnings) {
				return stats[i].Earnings.GreaterThan(stats[j].Earnings)
			}
			return stats[i].UserID < stats[j].UserID
		}
	})
}
