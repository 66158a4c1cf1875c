// Package tuning holds the colony's balance constants. Defaults reproduce the
// reference behaviour; a tuning.yaml may override any subset of them.
package tuning

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int    `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	SnapshotEveryTicks uint64 `yaml:"snapshot_every_ticks" json:"snapshot_every_ticks"`

	Entities EntityTuning   `yaml:"entities" json:"entities"`
	Spawn    SpawnTuning    `yaml:"spawn" json:"spawn"`
	Corpses  CorpseTuning   `yaml:"corpses" json:"corpses"`
	Receiver ReceiverTuning `yaml:"receiver" json:"receiver"`
	Hungry   HungryTuning   `yaml:"hungry" json:"hungry"`
	Offline  OfflineTuning  `yaml:"offline" json:"offline"`

	BoredomThreshold   uint64    `yaml:"boredom_threshold" json:"boredom_threshold"`
	ResourceThresholds []float64 `yaml:"resource_thresholds" json:"resource_thresholds" jsonschema:"minItems=1"`
}

type EntityTuning struct {
	EatThreshold         float64 `yaml:"eat_threshold" json:"eat_threshold"`
	HungerGainFromEating float64 `yaml:"hunger_gain_from_eating" json:"hunger_gain_from_eating"`
	MaxHunger            float64 `yaml:"max_hunger" json:"max_hunger"`
	// FoodPerMeal is how much of the food resource one meal takes.
	FoodPerMeal float64 `yaml:"food_per_meal" json:"food_per_meal"`
}

type SpawnTuning struct {
	IntervalTicks uint64  `yaml:"interval_ticks" json:"interval_ticks"`
	CostNutrients float64 `yaml:"cost_nutrients" json:"cost_nutrients"`
	CostFungus    float64 `yaml:"cost_fungus" json:"cost_fungus"`
	MinResources  float64 `yaml:"min_resources" json:"min_resources"`
}

type CorpseTuning struct {
	ProcessingTicks        uint64  `yaml:"processing_ticks" json:"processing_ticks"`
	NutrientBoost          float64 `yaml:"nutrient_boost" json:"nutrient_boost"`
	BoostDurationTicks     uint64  `yaml:"boost_duration_ticks" json:"boost_duration_ticks"`
	ContaminationPerCorpse float64 `yaml:"contamination_per_corpse" json:"contamination_per_corpse"`
	BlightDurationTicks    uint64  `yaml:"blight_duration_ticks" json:"blight_duration_ticks"`
}

type ReceiverTuning struct {
	SummonCost                   float64 `yaml:"summon_cost" json:"summon_cost"`
	SummonCooldownTicks          uint64  `yaml:"summon_cooldown_ticks" json:"summon_cooldown_ticks"`
	SummonChance                 float64 `yaml:"summon_chance" json:"summon_chance" jsonschema:"minimum=0,maximum=1"`
	ListeningDrain               float64 `yaml:"listening_drain" json:"listening_drain"`
	MaintenanceIntervalTicks     uint64  `yaml:"maintenance_interval_ticks" json:"maintenance_interval_ticks"`
	MaintenanceCostStrangeMatter float64 `yaml:"maintenance_cost_strange_matter" json:"maintenance_cost_strange_matter"`
}

type HungryTuning struct {
	InfluenceConsume     float64 `yaml:"influence_consume" json:"influence_consume"`
	StrangeMatterProduce float64 `yaml:"strange_matter_produce" json:"strange_matter_produce"`
	HungerGain           float64 `yaml:"hunger_gain" json:"hunger_gain"`
}

type OfflineTuning struct {
	MaxTicks uint64 `yaml:"max_ticks" json:"max_ticks"`
	// MinTicks below which a gap is ignored.
	MinTicks     uint64  `yaml:"min_ticks" json:"min_ticks"`
	HungerFactor float64 `yaml:"hunger_factor" json:"hunger_factor"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         1,
		SnapshotEveryTicks: 600,
		Entities: EntityTuning{
			EatThreshold:         50,
			HungerGainFromEating: 30,
			MaxHunger:            100,
			FoodPerMeal:          1,
		},
		Spawn: SpawnTuning{
			IntervalTicks: 1800,
			CostNutrients: 10,
			CostFungus:    10,
			MinResources:  15,
		},
		Corpses: CorpseTuning{
			ProcessingTicks:        120,
			NutrientBoost:          0.1,
			BoostDurationTicks:     600,
			ContaminationPerCorpse: 0.01,
			BlightDurationTicks:    300,
		},
		Receiver: ReceiverTuning{
			SummonCost:                   2,
			SummonCooldownTicks:          600,
			SummonChance:                 0.3,
			ListeningDrain:               0.0005,
			MaintenanceIntervalTicks:     3600,
			MaintenanceCostStrangeMatter: 1,
		},
		Hungry: HungryTuning{
			InfluenceConsume:     0.1,
			StrangeMatterProduce: 0.05,
			HungerGain:           20,
		},
		Offline: OfflineTuning{
			MaxTicks:     3600,
			MinTicks:     10,
			HungerFactor: 0.5,
		},
		BoredomThreshold:   60,
		ResourceThresholds: []float64{10, 25, 50, 100, 250, 500, 1000},
	}
}

// Load reads path over the defaults, so omitted keys keep their default value.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// LoadOrDefault returns the defaults when path is empty.
func LoadOrDefault(path string) (Tuning, error) {
	if path == "" {
		return Defaults(), nil
	}
	return Load(path)
}

func (t Tuning) Validate() error {
	var errs []error
	positive := func(name string, v uint64) {
		if v == 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if t.TickRateHz <= 0 {
		errs = append(errs, errors.New("tick_rate_hz must be positive"))
	}
	positive("spawn.interval_ticks", t.Spawn.IntervalTicks)
	positive("corpses.processing_ticks", t.Corpses.ProcessingTicks)
	positive("corpses.blight_duration_ticks", t.Corpses.BlightDurationTicks)
	positive("receiver.summon_cooldown_ticks", t.Receiver.SummonCooldownTicks)
	positive("receiver.maintenance_interval_ticks", t.Receiver.MaintenanceIntervalTicks)
	positive("boredom_threshold", t.BoredomThreshold)
	positive("offline.max_ticks", t.Offline.MaxTicks)

	if t.Receiver.SummonChance < 0 || t.Receiver.SummonChance > 1 {
		errs = append(errs, fmt.Errorf("receiver.summon_chance %v outside [0,1]", t.Receiver.SummonChance))
	}
	if t.Offline.MinTicks > t.Offline.MaxTicks {
		errs = append(errs, errors.New("offline.min_ticks exceeds offline.max_ticks"))
	}
	if len(t.ResourceThresholds) == 0 {
		errs = append(errs, errors.New("resource_thresholds is empty"))
	} else if !sort.SliceIsSorted(t.ResourceThresholds, func(i, j int) bool {
		return t.ResourceThresholds[i] < t.ResourceThresholds[j]
	}) {
		errs = append(errs, errors.New("resource_thresholds must be ascending"))
	}
	return errors.Join(errs...)
}

// JSONSchema describes tuning.yaml for editors and validation.
func JSONSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	s := r.ReflectFromType(reflect.TypeOf(Tuning{}))
	if s == nil {
		return nil, errors.New("tuning: reflect schema")
	}
	s.Title = "Colony tuning"
	s.Description = "Balance constants for the colony tick engine. Omitted keys keep their defaults."
	return json.MarshalIndent(s, "", "  ")
}
