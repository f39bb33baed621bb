package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-economy-bot/internal/model"
)

func TestChallenges_FreshAccount(t *testing.T) {
	f := newFixture(t)
	svc := NewChallengeService(f.engine)

	got, err := svc.Challenges(f.ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	want := map[string]struct {
		resetAt time.Time
		tasks   int
	}{
		model.PeriodDaily:   {time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 3},
		model.PeriodWeekly:  {time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), 4},
		model.PeriodMonthly: {time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 5},
	}
	for _, c := range got {
		w := want[c.Period]
		assert.Equal(t, w.resetAt.UnixMilli(), c.ResetAt, c.Period)
		assert.Len(t, c.Tasks, w.tasks, c.Period)
		assert.False(t, c.Claimed)

		cfg := f.cat.Challenges.Periods[c.Period]
		assert.GreaterOrEqual(t, c.Reward, cfg.RewardMin)
		assert.LessOrEqual(t, c.Reward, cfg.RewardMax)

		seen := map[string]bool{}
		for _, task := range c.Tasks {
			assert.False(t, seen[task.Type], "task types are distinct")
			seen[task.Type] = true
			assert.Zero(t, task.Progress)
			assert.Zero(t, task.Target%cfg.TargetScale, "targets are scaled")
		}
	}
}

func TestChallenges_StableWithinPeriod(t *testing.T) {
	f := newFixture(t)
	svc := NewChallengeService(f.engine)

	first, err := svc.Challenges(f.ctx, "u1")
	require.NoError(t, err)
	f.clock.Advance(3 * time.Hour)
	second, err := svc.Challenges(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestChallenges_Rollover(t *testing.T) {
	f := newFixture(t)
	svc := NewChallengeService(f.engine)
	f.seed(t, "u1", func(a *model.Account) {
		a.Wallet = 1234
		a.Bank = 99
		for _, c := range a.Challenges() {
			for i := range c.Tasks {
				c.Tasks[i].Progress = c.Tasks[i].Target
			}
		}
		a.DailyChallenge.Claimed = true
	})
	weekly := f.account(t, "u1").WeeklyChallenge

	f.clock.Advance(10 * time.Hour) // 2024-03-15 01:30
	got, err := svc.Challenges(f.ctx, "u1")
	require.NoError(t, err)

	daily := got[0]
	assert.Equal(t, model.PeriodDaily, daily.Period)
	assert.False(t, daily.Claimed)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC).UnixMilli(), daily.ResetAt)
	for _, task := range daily.Tasks {
		assert.Zero(t, task.Progress)
	}
	assert.Equal(t, weekly, got[1], "weekly boundary not reached")

	a := f.account(t, "u1")
	assert.Equal(t, int64(1234), a.Wallet)
	assert.Equal(t, int64(99), a.Bank)
}

func TestChallenges_Claim(t *testing.T) {
	f := newFixture(t)
	svc := NewChallengeService(f.engine)
	f.seed(t, "u1", nil)

	_, err := svc.Claim(f.ctx, "u1", model.PeriodDaily)
	require.ErrorIs(t, err, ErrInsufficientResource)

	_, err = svc.Claim(f.ctx, "u1", "yearly")
	require.ErrorIs(t, err, ErrInvalidTarget)

	f.seed(t, "u1", func(a *model.Account) {
		for _, task := range a.DailyChallenge.Tasks {
			UpdateChallenge(a, task.Type, task.Target+100)
		}
	})
	reward := f.account(t, "u1").DailyChallenge.Reward

	out, err := svc.Claim(f.ctx, "u1", model.PeriodDaily)
	require.NoError(t, err)
	assert.Equal(t, reward, out.Reward)
	assert.Equal(t, reward, f.account(t, "u1").Wallet)

	_, err = svc.Claim(f.ctx, "u1", model.PeriodDaily)
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Equal(t, reward, f.account(t, "u1").Wallet, "reward paid at most once")
}

func TestUpdateChallenge_CapsAtTarget(t *testing.T) {
	a := model.NewAccount("u1", testStart)
	a.DailyChallenge.Tasks = []model.Task{{Type: "mine", Target: 3}, {Type: "fish", Target: 2}}
	a.WeeklyChallenge.Tasks = []model.Task{{Type: "mine", Target: 10}}

	UpdateChallenge(a, "mine", 5)
	assert.Equal(t, int64(3), a.DailyChallenge.Tasks[0].Progress)
	assert.Equal(t, int64(0), a.DailyChallenge.Tasks[1].Progress)
	assert.Equal(t, int64(5), a.WeeklyChallenge.Tasks[0].Progress)
	assert.False(t, a.DailyChallenge.IsCompleted())

	UpdateChallenge(a, "fish", 2)
	assert.True(t, a.DailyChallenge.IsCompleted())
}
