// Package catalog holds the static economy definitions: shop items, tool
// tiers, jobs, seeds, recipes, prices, properties, pets, action tuning,
// skills, challenge templates and bank/market/farm settings.
//
// A Catalog is loaded once at startup and never mutated afterwards, so it
// is safe for concurrent readers.
package catalog

import (
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// Item types in the shop.
const (
	ItemTool    = "tool"
	ItemRepair  = "repair"
	ItemBoost   = "boost"
	ItemPetFood = "pet_food"
	ItemGoods   = "goods"
)

// Tool slots.
const (
	SlotPickaxe = "pickaxe"
	SlotRod     = "rod"
)

// Drop destinations.
const (
	IntoMaterials   = "materials"
	IntoIngredients = "ingredients"
	IntoInventory   = "inventory"
)

// Action keys resolved by the action pipeline.
const (
	ActionWork    = "work"
	ActionMine    = "mine"
	ActionFish    = "fish"
	ActionHunt    = "hunt"
	ActionExplore = "explore"
	ActionCrime   = "crime"
	ActionForge   = "forge"
	ActionCook    = "cook"
)

// Catalog is the immutable, validated economy definition.
type Catalog struct {
	Version           int                      `yaml:"version" json:"version"`
	ToolTiers         []ToolTier               `yaml:"tool_tiers" json:"toolTiers"`
	Shop              map[string]ShopItem      `yaml:"shop" json:"shop"`
	Jobs              map[string]Job           `yaml:"jobs" json:"jobCatalog"`
	Seeds             map[string]Seed          `yaml:"seeds" json:"seeds"`
	CookingRecipes    map[string]CookingRecipe `yaml:"cooking_recipes" json:"cookingRecipes"`
	Recipes           map[string]CraftRecipe   `yaml:"recipes" json:"recipes"`
	MaterialsPrices   map[string]int64         `yaml:"materials_prices" json:"materialsPrices"`
	Properties        map[string]PropertyDef   `yaml:"properties" json:"propertiesCatalog"`
	PropertiesMaxDays int                      `yaml:"properties_max_days" json:"propertiesMaxDays"`
	Pets              PetsConfig               `yaml:"pets" json:"pets"`
	Actions           map[string]ActionDef     `yaml:"actions" json:"actions"`
	Skills            SkillsConfig             `yaml:"skills" json:"skills"`
	Challenges        ChallengesConfig         `yaml:"challenges" json:"challenges"`
	Bank              BankConfig               `yaml:"bank" json:"bank"`
	Market            MarketConfig             `yaml:"market" json:"market"`
	Farm              FarmConfig               `yaml:"farm" json:"farm"`

	digest    string
	schedules map[string]cron.Schedule
}

// ToolTier maps a tool tier to its reward multiplier.
type ToolTier struct {
	Tier       int     `yaml:"tier" json:"tier"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

// ShopItem is anything purchasable with wallet currency.
type ShopItem struct {
	Name  string `yaml:"name" json:"name"`
	Type  string `yaml:"type" json:"type"`
	Price int64  `yaml:"price" json:"price"`

	// tool
	Slot       string `yaml:"slot,omitempty" json:"slot,omitempty"`
	Tier       int    `yaml:"tier,omitempty" json:"tier,omitempty"`
	Durability int    `yaml:"durability,omitempty" json:"durability,omitempty"`

	// repair
	Repair int `yaml:"repair,omitempty" json:"repair,omitempty"`

	// boost
	Boost       float64  `yaml:"boost,omitempty" json:"boost,omitempty"`
	BoostAction []string `yaml:"actions,omitempty" json:"actions,omitempty"`

	// pet_food
	Hunger int `yaml:"hunger,omitempty" json:"hunger,omitempty"`
	HP     int `yaml:"hp,omitempty" json:"hp,omitempty"`
}

// Job defines the work action's reward range.
type Job struct {
	Name     string `yaml:"name" json:"name"`
	MinLevel int    `yaml:"min_level" json:"minLevel"`
	Min      int64  `yaml:"min" json:"min"`
	Max      int64  `yaml:"max" json:"max"`
}

// Seed defines a plantable crop.
type Seed struct {
	Name     string        `yaml:"name" json:"name"`
	Cost     int64         `yaml:"cost" json:"cost"`
	GrowTime time.Duration `yaml:"grow_time" json:"growTime"`
	YieldKey string        `yaml:"yield_key" json:"yieldKey"`
	Yield    int64         `yaml:"yield" json:"yield"`
}

// CookingRecipe turns ingredients and gold into one cooked food.
type CookingRecipe struct {
	Name        string           `yaml:"name" json:"name"`
	Ingredients map[string]int64 `yaml:"ingredients" json:"ingredients"`
	Gold        int64            `yaml:"gold" json:"gold"`
	Energy      int64            `yaml:"energy" json:"energy"`
	SellPrice   int64            `yaml:"sell_price" json:"sellPrice"`
}

// CraftRecipe is a forge recipe producing inventory items from materials.
type CraftRecipe struct {
	Name      string           `yaml:"name" json:"name"`
	Materials map[string]int64 `yaml:"materials" json:"materials"`
	Gold      int64            `yaml:"gold" json:"gold"`
	Output    string           `yaml:"output" json:"output"`
	Quantity  int64            `yaml:"quantity" json:"quantity"`
}

// PropertyDef is a purchasable income source.
type PropertyDef struct {
	Name           string           `yaml:"name" json:"name"`
	Price          int64            `yaml:"price" json:"price"`
	Income         int64            `yaml:"income" json:"income"`
	Upkeep         int64            `yaml:"upkeep" json:"upkeep"`
	MaterialIncome map[string]int64 `yaml:"material_income,omitempty" json:"materialIncome,omitempty"`
}

// PetSpecies is an adoptable pet type.
type PetSpecies struct {
	Name    string `yaml:"name" json:"name"`
	Price   int64  `yaml:"price" json:"price"`
	MaxHP   int    `yaml:"max_hp" json:"maxHp"`
	Attack  int    `yaml:"attack" json:"attack"`
	Defense int    `yaml:"defense" json:"defense"`
}

// PetsConfig groups pet species and interaction tuning.
type PetsConfig struct {
	MaxOwned       int                   `yaml:"max_owned" json:"maxOwned"`
	ExpPerLevel    int                   `yaml:"exp_per_level" json:"expPerLevel"`
	PlayCooldown   time.Duration         `yaml:"play_cooldown" json:"playCooldown"`
	PlayMood       int                   `yaml:"play_mood" json:"playMood"`
	PlayExp        int                   `yaml:"play_exp" json:"playExp"`
	BattleCooldown time.Duration         `yaml:"battle_cooldown" json:"battleCooldown"`
	BattleExpWin   int                   `yaml:"battle_exp_win" json:"battleExpWin"`
	BattleExpLoss  int                   `yaml:"battle_exp_loss" json:"battleExpLoss"`
	LossHPPercent  int                   `yaml:"loss_hp_percent" json:"lossHpPercent"`
	Species        map[string]PetSpecies `yaml:"species" json:"species"`
}

// Drop is one entry of an action's drop table.
type Drop struct {
	Key     string  `yaml:"key" json:"key"`
	Into    string  `yaml:"into" json:"into"`
	Min     int64   `yaml:"min" json:"min"`
	Max     int64   `yaml:"max" json:"max"`
	Chance  float64 `yaml:"chance" json:"chance"`
	MinTier int     `yaml:"min_tier,omitempty" json:"minTier,omitempty"`
}

// ActionDef tunes one resolver action.
type ActionDef struct {
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`
	Min      int64         `yaml:"min,omitempty" json:"min,omitempty"`
	Max      int64         `yaml:"max,omitempty" json:"max,omitempty"`
	Tool     string        `yaml:"tool,omitempty" json:"tool,omitempty"`
	Skill    string        `yaml:"skill,omitempty" json:"skill,omitempty"`
	XP       int           `yaml:"xp,omitempty" json:"xp,omitempty"`
	Drops    []Drop        `yaml:"drops,omitempty" json:"drops,omitempty"`

	// crime
	SuccessChance float64 `yaml:"success_chance,omitempty" json:"successChance,omitempty"`
	FineMin       int64   `yaml:"fine_min,omitempty" json:"fineMin,omitempty"`
	FineMax       int64   `yaml:"fine_max,omitempty" json:"fineMax,omitempty"`
}

// SkillsConfig controls skill progression.
type SkillsConfig struct {
	XPPerLevel    int     `yaml:"xp_per_level" json:"xpPerLevel"`
	BonusPerLevel float64 `yaml:"bonus_per_level" json:"bonusPerLevel"`
	MaxLevel      int     `yaml:"max_level" json:"maxLevel"`
}

// TaskTemplate describes how challenge tasks of one type are generated.
type TaskTemplate struct {
	Type string `yaml:"type" json:"type"`
	Min  int64  `yaml:"min" json:"min"`
	Max  int64  `yaml:"max" json:"max"`
}

// ChallengePeriod tunes one challenge instance.
type ChallengePeriod struct {
	Schedule    string `yaml:"schedule" json:"schedule"`
	TaskCount   int    `yaml:"task_count" json:"taskCount"`
	TargetScale int64  `yaml:"target_scale" json:"targetScale"`
	RewardMin   int64  `yaml:"reward_min" json:"rewardMin"`
	RewardMax   int64  `yaml:"reward_max" json:"rewardMax"`
}

// ChallengesConfig groups task templates and per-period tuning.
type ChallengesConfig struct {
	Templates []TaskTemplate             `yaml:"templates" json:"templates"`
	Periods   map[string]ChallengePeriod `yaml:"periods" json:"periods"`
}

// BankConfig controls bank capacity and upgrade pricing.
type BankConfig struct {
	BaseCapacity    int64 `yaml:"base_capacity" json:"baseCapacity"`
	CapacityStep    int64 `yaml:"capacity_step" json:"capacityStep"`
	UpgradeBaseCost int64 `yaml:"upgrade_base_cost" json:"upgradeBaseCost"`
	UpgradeCostStep int64 `yaml:"upgrade_cost_step" json:"upgradeCostStep"`
	MaxLevel        int   `yaml:"max_level" json:"maxLevel"`
}

// MarketConfig controls the player market.
type MarketConfig struct {
	FeePercent         int64 `yaml:"fee_percent" json:"feePercent"`
	MaxActivePerSeller int   `yaml:"max_active_per_seller" json:"maxActivePerSeller"`
}

// FarmConfig controls farm sizing.
type FarmConfig struct {
	MaxPlots  int    `yaml:"max_plots" json:"maxPlots"`
	Skill     string `yaml:"skill" json:"skill"`
	XPPerPlot int    `yaml:"xp_per_plot" json:"xpPerPlot"`
}

// Digest is the sha256 of the source document.
func (c *Catalog) Digest() string {
	return c.digest
}

// TierMultiplier returns the reward multiplier for a tool tier, 1.0 when unknown.
func (c *Catalog) TierMultiplier(tier int) float64 {
	for _, t := range c.ToolTiers {
		if t.Tier == tier {
			return t.Multiplier
		}
	}
	return 1.0
}

// Schedule returns the parsed reset schedule of a challenge period.
func (c *Catalog) Schedule(period string) (cron.Schedule, bool) {
	s, ok := c.schedules[period]
	return s, ok
}

// BankCapacity is the maximum bank balance at the given level.
func (c *Catalog) BankCapacity(level int) int64 {
	return c.Bank.BaseCapacity + int64(level)*c.Bank.CapacityStep
}

// BankUpgradeCost is the price of going from level to level+1.
func (c *Catalog) BankUpgradeCost(level int) int64 {
	return c.Bank.UpgradeBaseCost + int64(level)*c.Bank.UpgradeCostStep
}

// MarketFee is floor(price*fee_percent/100), the part of a sale price
// destroyed by the market. It is split so the product never overflows.
func (c *Catalog) MarketFee(price int64) int64 {
	pct := c.Market.FeePercent
	return price/100*pct + price%100*pct/100
}

// Ingredient reports whether key can appear in an account's ingredients.
func (c *Catalog) Ingredient(key string) bool {
	for _, s := range c.Seeds {
		if s.YieldKey == key {
			return true
		}
	}
	for _, a := range c.Actions {
		for _, d := range a.Drops {
			if d.Into == IntoIngredients && d.Key == key {
				return true
			}
		}
	}
	return false
}

// Material reports whether key is a known material.
func (c *Catalog) Material(key string) bool {
	_, ok := c.MaterialsPrices[key]
	return ok
}

// Tradable reports whether key is an item that can be listed on the market.
func (c *Catalog) Tradable(key string) bool {
	if it, ok := c.Shop[key]; ok {
		return it.Type != ItemTool
	}
	for _, r := range c.Recipes {
		if r.Output == key {
			return true
		}
	}
	return false
}

// ShopKeys returns the shop item keys sorted by price then key.
func (c *Catalog) ShopKeys() []string {
	keys := make([]string, 0, len(c.Shop))
	for k := range c.Shop {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := c.Shop[keys[i]].Price, c.Shop[keys[j]].Price
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// SortedKeys returns the keys of any catalog map in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
