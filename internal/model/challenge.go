package model

// Challenge periods.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// Periods lists the challenge periods in display order.
var Periods = []string{PeriodDaily, PeriodWeekly, PeriodMonthly}

// Task is one progress counter inside a challenge.
type Task struct {
	Type     string `json:"type"`
	Progress int64  `json:"progress"`
	Target   int64  `json:"target"`
}

// Challenge is a bounded-period set of tasks with one claimable reward.
// ResetAt is the Unix millisecond boundary at which the instance regenerates.
type Challenge struct {
	Period  string `json:"period"`
	Tasks   []Task `json:"tasks"`
	Reward  int64  `json:"reward"`
	Claimed bool   `json:"claimed"`
	ResetAt int64  `json:"resetAt"`
}

// IsCompleted reports whether every task reached its target.
// An instance without tasks is never complete.
func (c *Challenge) IsCompleted() bool {
	if len(c.Tasks) == 0 {
		return false
	}
	for _, t := range c.Tasks {
		if t.Progress < t.Target {
			return false
		}
	}
	return true
}

// Advance adds amount to every task of the given type, capped at the target.
func (c *Challenge) Advance(taskType string, amount int64) {
	if amount <= 0 {
		return
	}
	for i := range c.Tasks {
		t := &c.Tasks[i]
		if t.Type != taskType {
			continue
		}
		t.Progress += amount
		if t.Progress > t.Target {
			t.Progress = t.Target
		}
	}
}
