package domain

// Stage is a named step in a token's enrichment lifecycle.
// Stages run in a fixed order at fixed offsets from discovery.
type Stage string

const (
	StagePreScan Stage = "PRE_SCAN"
	StageInitial Stage = "INITIAL"
	StageMin2    Stage = "MIN_2"
	StageMin5    Stage = "MIN_5"
	StageMin10   Stage = "MIN_10"
	StageMin15   Stage = "MIN_15"
	StageMin30   Stage = "MIN_30"
	StageHour1   Stage = "HOUR_1"
	StageHour2   Stage = "HOUR_2"
	StageHour4   Stage = "HOUR_4"
	StageHour8   Stage = "HOUR_8"
	StageHour24  Stage = "HOUR_24"
)

// stageOrder lists stages in execution order.
var stageOrder = []Stage{
	StagePreScan,
	StageInitial,
	StageMin2,
	StageMin5,
	StageMin10,
	StageMin15,
	StageMin30,
	StageHour1,
	StageHour2,
	StageHour4,
	StageHour8,
	StageHour24,
}

// String returns the string representation of Stage.
func (s Stage) String() string {
	return string(s)
}

// IsValid checks if the stage is a known value.
func (s Stage) IsValid() bool {
	for _, st := range stageOrder {
		if s == st {
			return true
		}
	}
	return false
}

// Next returns the stage that follows s, or "" if s is the last stage
// (or unknown). Total over all valid stages.
func (s Stage) Next() Stage {
	for i, st := range stageOrder {
		if s == st {
			if i+1 < len(stageOrder) {
				return stageOrder[i+1]
			}
			return ""
		}
	}
	return ""
}

// Stages returns all stages in execution order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}
