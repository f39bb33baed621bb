package service

import (
	"context"
	"sort"

	"telegram-economy-bot/internal/model"
)

// LeaderboardEntry is one ranked account.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Wallet   int64  `json:"wallet"`
	Bank     int64  `json:"bank"`
	NetWorth int64  `json:"netWorth"`
}

// RankingService handles leaderboard queries.
type RankingService struct {
	engine *Engine
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(engine *Engine) *RankingService {
	return &RankingService{engine: engine}
}

// Leaderboard ranks accounts by wallet plus bank, highest first.
// A non-positive limit returns every account.
func (s *RankingService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	accounts, err := s.engine.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return rankAccounts(accounts, limit), nil
}

// RankOf returns the entry of one account. ok is false for unknown ids.
func (s *RankingService) RankOf(ctx context.Context, id string) (entry LeaderboardEntry, ok bool, err error) {
	board, err := s.Leaderboard(ctx, 0)
	if err != nil {
		return LeaderboardEntry{}, false, err
	}
	for _, e := range board {
		if e.ID == id {
			return e, true, nil
		}
	}
	return LeaderboardEntry{}, false, nil
}

// rankAccounts sorts by net worth descending, ties by id.
func rankAccounts(accounts []*model.Account, limit int) []LeaderboardEntry {
	sorted := make([]*model.Account, len(accounts))
	copy(sorted, accounts)
	sort.SliceStable(sorted, func(i, j int) bool {
		wi, wj := sorted[i].NetWorth(), sorted[j].NetWorth()
		if wi != wj {
			return wi > wj
		}
		return sorted[i].ID < sorted[j].ID
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	entries := make([]LeaderboardEntry, len(sorted))
	for i, a := range sorted {
		entries[i] = LeaderboardEntry{
			Rank:     i + 1,
			ID:       a.ID,
			Name:     a.Name,
			Wallet:   a.Wallet,
			Bank:     a.Bank,
			NetWorth: a.NetWorth(),
		}
	}
	return entries
}
