package health

import "planthealth-sim/internal/state"

// SymptomDelayDays is the day range a freshly spread disease stays hidden.
type SymptomDelayDays struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// DiseaseGlobal holds the disease-wide rate multipliers and limits.
type DiseaseGlobal struct {
	BaseDailyInfectionMultiplier float64          `yaml:"base_daily_infection_multiplier" json:"baseDailyInfectionMultiplier"`
	BaseRecoveryMultiplier       float64          `yaml:"base_recovery_multiplier" json:"baseRecoveryMultiplier"`
	MaxConcurrentDiseases        int              `yaml:"max_concurrent_diseases" json:"maxConcurrentDiseases"`
	SymptomDelayDays             SymptomDelayDays `yaml:"symptom_delay_days" json:"symptomDelayDays"`
}

// DiseasePhaseMultipliers scales disease rates for one growth phase.
type DiseasePhaseMultipliers struct {
	Infection    float64 `yaml:"infection" json:"infection"`
	Degeneration float64 `yaml:"degeneration" json:"degeneration"`
	Recovery     float64 `yaml:"recovery" json:"recovery"`
}

// DiseaseEfficacy holds optional treatment multipliers; nil means 1.
type DiseaseEfficacy struct {
	InfectionMultiplier    *float64 `yaml:"infection_multiplier,omitempty" json:"infectionMultiplier,omitempty"`
	DegenerationMultiplier *float64 `yaml:"degeneration_multiplier,omitempty" json:"degenerationMultiplier,omitempty"`
	RecoveryMultiplier     *float64 `yaml:"recovery_multiplier,omitempty" json:"recoveryMultiplier,omitempty"`
}

// DiseaseCaps bounds the effective daily disease rates.
type DiseaseCaps struct {
	MinDailyDegeneration float64 `yaml:"min_daily_degeneration" json:"minDailyDegeneration"`
	MaxDailyDegeneration float64 `yaml:"max_daily_degeneration" json:"maxDailyDegeneration"`
	MinDailyRecovery     float64 `yaml:"min_daily_recovery" json:"minDailyRecovery"`
	MaxDailyRecovery     float64 `yaml:"max_daily_recovery" json:"maxDailyRecovery"`
}

// DiseaseBalancing is the disease balancing blueprint.
type DiseaseBalancing struct {
	Global            DiseaseGlobal                               `yaml:"global" json:"global"`
	PhaseMultipliers  map[PhaseKey]DiseasePhaseMultipliers        `yaml:"phase_multipliers" json:"phaseMultipliers"`
	TreatmentEfficacy map[state.TreatmentCategory]DiseaseEfficacy `yaml:"treatment_efficacy" json:"treatmentEfficacy"`
	Caps              DiseaseCaps                                 `yaml:"caps" json:"caps"`
}

// PestGlobal holds the pest-wide rate multipliers and limits.
type PestGlobal struct {
	BaseDailyReproductionMultiplier float64 `yaml:"base_daily_reproduction_multiplier" json:"baseDailyReproductionMultiplier"`
	BaseDailyMortalityMultiplier    float64 `yaml:"base_daily_mortality_multiplier" json:"baseDailyMortalityMultiplier"`
	BaseDamageMultiplier            float64 `yaml:"base_damage_multiplier" json:"baseDamageMultiplier"`
	MaxConcurrentPests              int     `yaml:"max_concurrent_pests" json:"maxConcurrentPests"`
}

// PestPhaseMultipliers scales pest rates for one growth phase.
type PestPhaseMultipliers struct {
	Reproduction float64 `yaml:"reproduction" json:"reproduction"`
	Mortality    float64 `yaml:"mortality" json:"mortality"`
	Damage       float64 `yaml:"damage" json:"damage"`
}

// PestEfficacy holds optional control multipliers; nil means 1.
type PestEfficacy struct {
	ReproductionMultiplier *float64 `yaml:"reproduction_multiplier,omitempty" json:"reproductionMultiplier,omitempty"`
	MortalityMultiplier    *float64 `yaml:"mortality_multiplier,omitempty" json:"mortalityMultiplier,omitempty"`
	DamageMultiplier       *float64 `yaml:"damage_multiplier,omitempty" json:"damageMultiplier,omitempty"`
}

// PestCaps bounds the effective daily pest rates.
type PestCaps struct {
	MinDailyReproduction float64 `yaml:"min_daily_reproduction" json:"minDailyReproduction"`
	MaxDailyReproduction float64 `yaml:"max_daily_reproduction" json:"maxDailyReproduction"`
	MinDailyMortality    float64 `yaml:"min_daily_mortality" json:"minDailyMortality"`
	MaxDailyMortality    float64 `yaml:"max_daily_mortality" json:"maxDailyMortality"`
	MinDailyDamage       float64 `yaml:"min_daily_damage" json:"minDailyDamage"`
	MaxDailyDamage       float64 `yaml:"max_daily_damage" json:"maxDailyDamage"`
}

// PestBalancing is the pest balancing blueprint.
type PestBalancing struct {
	Global           PestGlobal                               `yaml:"global" json:"global"`
	PhaseMultipliers map[PhaseKey]PestPhaseMultipliers        `yaml:"phase_multipliers" json:"phaseMultipliers"`
	ControlEfficacy  map[state.TreatmentCategory]PestEfficacy `yaml:"control_efficacy" json:"controlEfficacy"`
	Caps             PestCaps                                 `yaml:"caps" json:"caps"`
}

// OptionEfficacy carries option-specific multiplier overrides.
type OptionEfficacy struct {
	Disease *DiseaseEfficacy `yaml:"disease,omitempty" json:"disease,omitempty"`
	Pest    *PestEfficacy    `yaml:"pest,omitempty" json:"pest,omitempty"`
}

// TreatmentOption is one entry of the treatment catalog.
type TreatmentOption struct {
	ID                      string                  `yaml:"id" json:"id"`
	Name                    string                  `yaml:"name" json:"name"`
	Category                state.TreatmentCategory `yaml:"category" json:"category"`
	Targets                 []state.HealthTarget    `yaml:"targets" json:"targets"`
	Efficacy                *OptionEfficacy         `yaml:"efficacy,omitempty" json:"efficacy,omitempty"`
	CooldownDays            *float64                `yaml:"cooldown_days,omitempty" json:"cooldownDays,omitempty"`
	EffectDurationDays      *float64                `yaml:"effect_duration_days,omitempty" json:"effectDurationDays,omitempty"`
	ReentryIntervalTicks    *int64                  `yaml:"reentry_interval_ticks,omitempty" json:"reentryIntervalTicks,omitempty"`
	PreHarvestIntervalTicks *int64                  `yaml:"pre_harvest_interval_ticks,omitempty" json:"preHarvestIntervalTicks,omitempty"`
}

// Supports reports whether the option can treat the given target kind.
func (o TreatmentOption) Supports(target state.HealthTarget) bool {
	for _, t := range o.Targets {
		if t == target {
			return true
		}
	}
	return false
}

// TreatmentCatalog is a read-only index of treatment options by id.
type TreatmentCatalog map[string]TreatmentOption

// NewTreatmentCatalog indexes options by id. Later duplicates win.
func NewTreatmentCatalog(options []TreatmentOption) TreatmentCatalog {
	c := make(TreatmentCatalog, len(options))
	for _, o := range options {
		c[o.ID] = o
	}
	return c
}

// Lookup returns the option with the given id.
func (c TreatmentCatalog) Lookup(id string) (TreatmentOption, bool) {
	o, ok := c[id]
	return o, ok
}

func factor(v *float64) float64 {
	if v == nil {
		return 1
	}
	return *v
}
