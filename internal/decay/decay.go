// Package decay derives time-based state changes from stored timestamps and
// an explicit current time: pet needs, cooldown gates, crop readiness and
// property accrual. Nothing here reads the clock.
package decay

import (
	"math"
	"time"

	"telegram-economy-bot/internal/model"
)

// Pet decay tuning.
const (
	PetDecayInterval   = time.Hour
	HungerLossPerDay   = 100.0
	MoodLossPerTwoDays = 100.0
	HungryThreshold    = 30
	HungryMoodPerHour  = 5.0
	StarvingMinHours   = 2.0
	StarvingHPPerHour  = 0.02
	MaxNeed            = 100
)

// ApplyPetDecay brings pet up to date with now. It is a no-op when less
// than an hour has elapsed since the last update.
func ApplyPetDecay(pet *model.Pet, now time.Time) {
	elapsed := now.UnixMilli() - pet.LastUpdate
	if elapsed < PetDecayInterval.Milliseconds() {
		return
	}
	h := float64(elapsed) / float64(PetDecayInterval.Milliseconds())

	pet.Hunger = clamp(pet.Hunger-int(math.Floor(h*HungerLossPerDay/24)), 0, MaxNeed)
	pet.Mood = clamp(pet.Mood-int(math.Floor(h*MoodLossPerTwoDays/48)), 0, MaxNeed)

	if pet.Hunger < HungryThreshold {
		pet.Mood = clamp(pet.Mood-int(math.Floor(h*HungryMoodPerHour)), 0, MaxNeed)
	}

	if pet.MaxHP <= 0 {
		pet.MaxHP = model.DefaultPetStat
	}
	if pet.Hunger == 0 && h >= StarvingMinHours {
		pet.HP -= int(math.Floor(h * float64(pet.MaxHP) * StarvingHPPerHour))
	}
	pet.HP = clamp(pet.HP, 1, pet.MaxHP)

	pet.LastUpdate = now.UnixMilli()
}

// ClampPet forces pet stats back into their valid ranges.
func ClampPet(pet *model.Pet) {
	pet.Hunger = clamp(pet.Hunger, 0, MaxNeed)
	pet.Mood = clamp(pet.Mood, 0, MaxNeed)
	pet.HP = clamp(pet.HP, 1, pet.MaxHP)
}

// IsCooldownExpired reports whether the action key may run at now.
// A missing entry counts as expired.
func IsCooldownExpired(cooldowns map[string]int64, key string, now time.Time) bool {
	return now.UnixMilli() >= cooldowns[key]
}

// CooldownRemaining returns the time left before key expires, zero if expired.
func CooldownRemaining(cooldowns map[string]int64, key string, now time.Time) time.Duration {
	left := cooldowns[key] - now.UnixMilli()
	if left <= 0 {
		return 0
	}
	return time.Duration(left) * time.Millisecond
}

// SetCooldown records that key becomes available again after d.
func SetCooldown(cooldowns map[string]int64, key string, now time.Time, d time.Duration) {
	cooldowns[key] = now.Add(d).UnixMilli()
}

// PlotReady reports whether the crop in plot can be harvested.
func PlotReady(plot model.Plot, now time.Time) bool {
	return now.UnixMilli() >= plot.ReadyAt
}

// PartitionPlots splits plots into ready and growing, preserving order.
// next is the time until the earliest growing plot matures, zero if none.
func PartitionPlots(plots []model.Plot, now time.Time) (ready, growing []model.Plot, next time.Duration) {
	ready = []model.Plot{}
	growing = []model.Plot{}
	var earliest int64 = math.MaxInt64
	for _, p := range plots {
		if PlotReady(p, now) {
			ready = append(ready, p)
			continue
		}
		growing = append(growing, p)
		if p.ReadyAt < earliest {
			earliest = p.ReadyAt
		}
	}
	if len(growing) > 0 {
		next = time.Duration(earliest-now.UnixMilli()) * time.Millisecond
	}
	return ready, growing, next
}

// PlotRemaining returns the time until plot matures, zero if ready.
func PlotRemaining(plot model.Plot, now time.Time) time.Duration {
	left := plot.ReadyAt - now.UnixMilli()
	if left <= 0 {
		return 0
	}
	return time.Duration(left) * time.Millisecond
}

// PropertyDays returns the whole days elapsed since lastCollect, capped at maxDays.
func PropertyDays(lastCollect int64, now time.Time, maxDays int) int {
	elapsed := now.UnixMilli() - lastCollect
	if elapsed <= 0 {
		return 0
	}
	days := int(elapsed / (24 * time.Hour).Milliseconds())
	if maxDays > 0 && days > maxDays {
		days = maxDays
	}
	return days
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
