package catalog

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

//go:embed catalog.schema.json
var schemaJSON string

// ErrInvalidCatalog is wrapped by every validation failure.
var ErrInvalidCatalog = errors.New("invalid catalog")

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		compiledSchema, compileErr = jsonschema.CompileString("catalog.schema.json", schemaJSON)
	})
	return compiledSchema, compileErr
}

// Load reads and validates the catalog at path.
// An empty path loads the embedded default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Info().
		Str("path", path).
		Str("digest", c.Digest()).
		Int("version", c.Version).
		Msg("Catalog loaded")
	return c, nil
}

// Default returns the embedded default catalog.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// MustDefault is Default for tests and static initialization.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a YAML catalog document, validates it against the schema and
// the semantic rules, and returns the immutable result.
func Parse(raw []byte) (*Catalog, error) {
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	c.schedules = make(map[string]cron.Schedule, len(c.Challenges.Periods))
	for period, p := range c.Challenges.Periods {
		s, err := scheduleParser.Parse(p.Schedule)
		if err != nil {
			return nil, fmt.Errorf("%w: challenges.periods.%s.schedule: %v", ErrInvalidCatalog, period, err)
		}
		c.schedules[period] = s
	}

	sum := sha256.Sum256(raw)
	c.digest = hex.EncodeToString(sum[:])
	return &c, nil
}

// validateSchema checks the document shape. YAML is first normalized to
// JSON values so the schema sees the same types a JSON document would have.
func validateSchema(raw []byte) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("failed to compile catalog schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	d := json.NewDecoder(bytes.NewReader(js))
	d.UseNumber()
	var v any
	if err := d.Decode(&v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCatalog, fmt.Sprintf(format, args...))
}

// validate enforces the cross-reference rules the schema cannot express.
func (c *Catalog) validate() error {
	tiers := make(map[int]bool, len(c.ToolTiers))
	for _, t := range c.ToolTiers {
		if tiers[t.Tier] {
			return invalid("tool_tiers: duplicate tier %d", t.Tier)
		}
		if t.Multiplier <= 0 {
			return invalid("tool_tiers: tier %d multiplier must be positive", t.Tier)
		}
		tiers[t.Tier] = true
	}

	for key, it := range c.Shop {
		switch it.Type {
		case ItemTool:
			if it.Slot != SlotPickaxe && it.Slot != SlotRod {
				return invalid("shop.%s: unknown tool slot %q", key, it.Slot)
			}
			if !tiers[it.Tier] {
				return invalid("shop.%s: unknown tool tier %d", key, it.Tier)
			}
			if it.Durability <= 0 {
				return invalid("shop.%s: durability must be positive", key)
			}
		case ItemRepair:
			if it.Repair <= 0 {
				return invalid("shop.%s: repair must be positive", key)
			}
		case ItemBoost:
			for _, a := range it.BoostAction {
				if _, ok := c.Actions[a]; !ok {
					return invalid("shop.%s: boost references unknown action %q", key, a)
				}
			}
		}
	}

	for key, j := range c.Jobs {
		if j.Min > j.Max {
			return invalid("jobs.%s: min > max", key)
		}
	}

	for key, a := range c.Actions {
		if a.Min > a.Max {
			return invalid("actions.%s: min > max", key)
		}
		if a.Tool != "" && a.Tool != SlotPickaxe && a.Tool != SlotRod {
			return invalid("actions.%s: unknown tool slot %q", key, a.Tool)
		}
		if a.Tool != "" && len(a.Drops) == 0 {
			return invalid("actions.%s: tool action has an empty drop table", key)
		}
		for i, d := range a.Drops {
			if d.Min > d.Max {
				return invalid("actions.%s.drops[%d]: min > max", key, i)
			}
			if d.MinTier != 0 && !tiers[d.MinTier] {
				return invalid("actions.%s.drops[%d]: unknown tool tier %d", key, i, d.MinTier)
			}
			if d.Into == IntoMaterials && !c.Material(d.Key) {
				return invalid("actions.%s.drops[%d]: unknown material %q", key, i, d.Key)
			}
		}
	}
	if crime, ok := c.Actions[ActionCrime]; ok && crime.FineMin > crime.FineMax {
		return invalid("actions.crime: fine_min > fine_max")
	}

	for key, s := range c.Seeds {
		if s.GrowTime <= 0 || s.Yield <= 0 {
			return invalid("seeds.%s: grow_time and yield must be positive", key)
		}
	}

	for key, r := range c.CookingRecipes {
		if len(r.Ingredients) == 0 {
			return invalid("cooking_recipes.%s: no ingredients", key)
		}
		for ing := range r.Ingredients {
			if !c.Ingredient(ing) {
				return invalid("cooking_recipes.%s: unknown ingredient %q", key, ing)
			}
		}
	}

	for key, r := range c.Recipes {
		if len(r.Materials) == 0 {
			return invalid("recipes.%s: no materials", key)
		}
		for m := range r.Materials {
			if !c.Material(m) {
				return invalid("recipes.%s: unknown material %q", key, m)
			}
		}
		if r.Quantity <= 0 {
			return invalid("recipes.%s: quantity must be positive", key)
		}
	}

	for key, p := range c.Properties {
		for m := range p.MaterialIncome {
			if !c.Material(m) {
				return invalid("properties.%s: unknown material %q", key, m)
			}
		}
	}

	types := make(map[string]bool, len(c.Challenges.Templates))
	for _, t := range c.Challenges.Templates {
		if t.Min > t.Max {
			return invalid("challenges.templates.%s: min > max", t.Type)
		}
		types[t.Type] = true
	}
	for period, p := range c.Challenges.Periods {
		if p.TaskCount > len(types) {
			return invalid("challenges.periods.%s: task_count exceeds template count", period)
		}
		if p.RewardMin > p.RewardMax {
			return invalid("challenges.periods.%s: reward_min > reward_max", period)
		}
	}

	if c.Market.FeePercent < 0 || c.Market.FeePercent >= 100 {
		return invalid("market.fee_percent must be in [0,100)")
	}
	return nil
}
