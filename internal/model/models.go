// Package model defines the persisted records of the economy engine.
package model

import (
	"encoding/json"
	"time"
)

// Defaults applied by EnsureDefaults to fields that are missing or zero.
const (
	DefaultMaxPlots = 4
	DefaultPetStat  = 100
)

// Tool is an equipped, durability-limited tool (pickaxe or fishing rod).
type Tool struct {
	Key           string `json:"key"`
	Tier          int    `json:"tier"`
	Durability    int    `json:"durability"`
	MaxDurability int    `json:"maxDurability"`
}

// Broken reports whether the tool has no durability left.
// A broken tool stays equipped until repaired.
func (t *Tool) Broken() bool {
	return t.Durability <= 0
}

// Tools holds the equipped tools. A nil slot means nothing equipped.
type Tools struct {
	Pickaxe *Tool `json:"pickaxe,omitempty"`
	Rod     *Tool `json:"rod,omitempty"`
}

// Plot is one planted farm slot.
type Plot struct {
	Seed      string `json:"seedKey"`
	PlantedAt int64  `json:"plantedAt"`
	ReadyAt   int64  `json:"readyAt"`
}

// Farm groups the plots of an account.
type Farm struct {
	Plots    []Plot `json:"plots"`
	MaxPlots int    `json:"maxPlots"`
}

// Pet is an adopted companion. Hunger and mood live in [0,100], HP in [1,MaxHP].
type Pet struct {
	Species    string `json:"species"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Exp        int    `json:"exp"`
	Hunger     int    `json:"hunger"`
	Mood       int    `json:"mood"`
	HP         int    `json:"hp"`
	MaxHP      int    `json:"maxHp"`
	Attack     int    `json:"attack"`
	Defense    int    `json:"defense"`
	LastUpdate int64  `json:"lastUpdate"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
}

// Skill tracks progression for one skill key.
type Skill struct {
	Level int `json:"level"`
	XP    int `json:"xp"`
}

// Property is the ownership state of one catalog property.
type Property struct {
	Owned       bool  `json:"owned"`
	LastCollect int64 `json:"lastCollect"`
}

// Account is the mutable per-player economic state.
type Account struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Wallet    int64  `json:"wallet"`
	Bank      int64  `json:"bank"`
	BankLevel int    `json:"bankLevel"`
	Job       string `json:"job,omitempty"`
	Energy    int64  `json:"energy"`

	Tools       Tools            `json:"tools"`
	Materials   map[string]int64 `json:"materials"`
	Inventory   map[string]int64 `json:"inventory"`
	Ingredients map[string]int64 `json:"ingredients"`
	CookedFood  map[string]int64 `json:"cookedFood"`

	Farm       Farm                `json:"farm"`
	Pets       []Pet               `json:"pets"`
	Cooldowns  map[string]int64    `json:"cooldowns"`
	Skills     map[string]Skill    `json:"skills"`
	Properties map[string]Property `json:"properties"`

	DailyChallenge   Challenge `json:"dailyChallenge"`
	WeeklyChallenge  Challenge `json:"weeklyChallenge"`
	MonthlyChallenge Challenge `json:"monthlyChallenge"`

	CreatedAt int64 `json:"createdAt"`

	// Version is the optimistic concurrency counter maintained by the store.
	Version int64 `json:"-"`
}

// NewAccount returns an account with zeroed currency and all defaults set.
func NewAccount(id string, now time.Time) *Account {
	a := &Account{ID: id, CreatedAt: now.UnixMilli()}
	a.EnsureDefaults()
	return a
}

// EnsureDefaults backfills missing fields without touching existing progress.
func (a *Account) EnsureDefaults() {
	if a.Materials == nil {
		a.Materials = make(map[string]int64)
	}
	if a.Inventory == nil {
		a.Inventory = make(map[string]int64)
	}
	if a.Ingredients == nil {
		a.Ingredients = make(map[string]int64)
	}
	if a.CookedFood == nil {
		a.CookedFood = make(map[string]int64)
	}
	if a.Cooldowns == nil {
		a.Cooldowns = make(map[string]int64)
	}
	if a.Skills == nil {
		a.Skills = make(map[string]Skill)
	}
	if a.Properties == nil {
		a.Properties = make(map[string]Property)
	}
	if a.Farm.MaxPlots <= 0 {
		a.Farm.MaxPlots = DefaultMaxPlots
	}
	if a.Farm.Plots == nil {
		a.Farm.Plots = []Plot{}
	}
	if a.Pets == nil {
		a.Pets = []Pet{}
	}
	for i := range a.Pets {
		p := &a.Pets[i]
		if p.MaxHP <= 0 {
			p.MaxHP = DefaultPetStat
		}
		if p.Level <= 0 {
			p.Level = 1
		}
	}
	a.DailyChallenge.Period = PeriodDaily
	a.WeeklyChallenge.Period = PeriodWeekly
	a.MonthlyChallenge.Period = PeriodMonthly
}

// Skill returns the skill state for key, level 1 when untouched.
func (a *Account) Skill(key string) Skill {
	s, ok := a.Skills[key]
	if !ok || s.Level < 1 {
		s.Level = 1
	}
	return s
}

// Challenges returns pointers to the three challenge instances.
func (a *Account) Challenges() []*Challenge {
	return []*Challenge{&a.DailyChallenge, &a.WeeklyChallenge, &a.MonthlyChallenge}
}

// Challenge returns the instance for the given period, or nil.
func (a *Account) Challenge(period string) *Challenge {
	switch period {
	case PeriodDaily:
		return &a.DailyChallenge
	case PeriodWeekly:
		return &a.WeeklyChallenge
	case PeriodMonthly:
		return &a.MonthlyChallenge
	}
	return nil
}

// Holdings returns the count map a listing of the given kind draws from.
func (a *Account) Holdings(kind ListingKind) map[string]int64 {
	switch kind {
	case KindItem:
		return a.Inventory
	case KindMaterial:
		return a.Materials
	}
	return nil
}

// NetWorth is wallet plus bank, used for leaderboards.
func (a *Account) NetWorth() int64 {
	return a.Wallet + a.Bank
}

// Clone returns a deep copy, including Version.
func (a *Account) Clone() *Account {
	raw, err := json.Marshal(a)
	if err != nil {
		panic(err)
	}
	var c Account
	if err := json.Unmarshal(raw, &c); err != nil {
		panic(err)
	}
	c.Version = a.Version
	c.EnsureDefaults()
	return &c
}
