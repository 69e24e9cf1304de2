package state

// HealthTarget selects which kind of affliction a treatment addresses.
type HealthTarget string

const (
	TargetDisease HealthTarget = "disease"
	TargetPest    HealthTarget = "pest"
)

// TreatmentCategory groups treatment options for balancing lookups.
type TreatmentCategory string

const (
	CategoryCultural   TreatmentCategory = "cultural"
	CategoryBiological TreatmentCategory = "biological"
	CategoryMechanical TreatmentCategory = "mechanical"
	CategoryChemical   TreatmentCategory = "chemical"
	CategoryPhysical   TreatmentCategory = "physical"
)

// DiseaseTreatmentEffect is an active multiplicative effect on a disease.
type DiseaseTreatmentEffect struct {
	OptionID               string  `json:"optionId"`
	ExpiresTick            int64   `json:"expiresTick"`
	InfectionMultiplier    float64 `json:"infectionMultiplier"`
	DegenerationMultiplier float64 `json:"degenerationMultiplier"`
	RecoveryMultiplier     float64 `json:"recoveryMultiplier"`
}

// PestTreatmentEffect is an active multiplicative effect on a pest.
type PestTreatmentEffect struct {
	OptionID               string  `json:"optionId"`
	ExpiresTick            int64   `json:"expiresTick"`
	ReproductionMultiplier float64 `json:"reproductionMultiplier"`
	MortalityMultiplier    float64 `json:"mortalityMultiplier"`
	DamageMultiplier       float64 `json:"damageMultiplier"`
}

// DiseaseState is one pathogen instance on a plant.
type DiseaseState struct {
	ID                         string                   `json:"id"`
	PathogenID                 string                   `json:"pathogenId"`
	Severity                   float64                  `json:"severity"`
	Infection                  float64                  `json:"infection"`
	Detected                   bool                     `json:"detected"`
	DetectionTick              *int64                   `json:"detectionTick,omitempty"`
	SymptomTimerTicks          int64                    `json:"symptomTimerTicks"`
	SpreadCooldownTicks        int64                    `json:"spreadCooldownTicks"`
	LastSpreadTick             *int64                   `json:"lastSpreadTick,omitempty"`
	BaseInfectionRatePerDay    float64                  `json:"baseInfectionRatePerDay"`
	BaseRecoveryRatePerDay     float64                  `json:"baseRecoveryRatePerDay"`
	BaseDegenerationRatePerDay float64                  `json:"baseDegenerationRatePerDay"`
	PhaseOverride              string                   `json:"phaseOverride,omitempty"`
	ActiveTreatments           []DiseaseTreatmentEffect `json:"activeTreatments"`
}

// PestState is one pest infestation on a plant.
type PestState struct {
	ID                         string                `json:"id"`
	PestID                     string                `json:"pestId"`
	Population                 float64               `json:"population"`
	Damage                     float64               `json:"damage"`
	Detected                   bool                  `json:"detected"`
	DetectionTick              *int64                `json:"detectionTick,omitempty"`
	SymptomTimerTicks          int64                 `json:"symptomTimerTicks"`
	SpreadCooldownTicks        int64                 `json:"spreadCooldownTicks"`
	LastSpreadTick             *int64                `json:"lastSpreadTick,omitempty"`
	BaseReproductionRatePerDay float64               `json:"baseReproductionRatePerDay"`
	BaseMortalityRatePerDay    float64               `json:"baseMortalityRatePerDay"`
	BaseDamageRatePerDay       float64               `json:"baseDamageRatePerDay"`
	PhaseOverride              string                `json:"phaseOverride,omitempty"`
	ActiveTreatments           []PestTreatmentEffect `json:"activeTreatments"`
}

// PlantHealthState holds all afflictions of a single plant.
type PlantHealthState struct {
	Diseases []*DiseaseState `json:"diseases"`
	Pests    []*PestState    `json:"pests"`
}

// HasPathogen reports whether the plant already hosts the pathogen.
func (p *PlantHealthState) HasPathogen(pathogenID string) bool {
	for _, d := range p.Diseases {
		if d.PathogenID == pathogenID {
			return true
		}
	}
	return false
}

// HasPest reports whether the plant already hosts the pest.
func (p *PlantHealthState) HasPest(pestID string) bool {
	for _, ps := range p.Pests {
		if ps.PestID == pestID {
			return true
		}
	}
	return false
}

// PendingTreatmentApplication is a treatment queued for a future tick.
type PendingTreatmentApplication struct {
	OptionID                string       `json:"optionId"`
	Target                  HealthTarget `json:"target"`
	PlantIDs                []string     `json:"plantIds"`
	ScheduledTick           int64        `json:"scheduledTick"`
	DiseaseIDs              []string     `json:"diseaseIds,omitempty"`
	PestIDs                 []string     `json:"pestIds,omitempty"`
	ReentryIntervalTicks    *int64       `json:"reentryIntervalTicks,omitempty"`
	PreHarvestIntervalTicks *int64       `json:"preHarvestIntervalTicks,omitempty"`
}

// AppliedTreatmentRecord is the audit entry of a successful application.
type AppliedTreatmentRecord struct {
	OptionID                      string       `json:"optionId"`
	Target                        HealthTarget `json:"target"`
	PlantIDs                      []string     `json:"plantIds"`
	AppliedTick                   int64        `json:"appliedTick"`
	ReentryRestrictedUntilTick    *int64       `json:"reentryRestrictedUntilTick,omitempty"`
	PreHarvestRestrictedUntilTick *int64       `json:"preHarvestRestrictedUntilTick,omitempty"`
}

// ZoneHealthState is the health sub-tree of a zone.
type ZoneHealthState struct {
	PlantHealth                   map[string]*PlantHealthState  `json:"plantHealth"`
	PendingTreatments             []PendingTreatmentApplication `json:"pendingTreatments"`
	AppliedTreatments             []AppliedTreatmentRecord      `json:"appliedTreatments"`
	ReentryRestrictedUntilTick    *int64                        `json:"reentryRestrictedUntilTick,omitempty"`
	PreHarvestRestrictedUntilTick *int64                        `json:"preHarvestRestrictedUntilTick,omitempty"`
}

// NewZoneHealthState returns an empty zone health record.
func NewZoneHealthState() *ZoneHealthState {
	return &ZoneHealthState{PlantHealth: make(map[string]*PlantHealthState)}
}

// Tick returns a pointer to a copy of t, for optional tick fields.
func Tick(t int64) *int64 {
	return &t
}
