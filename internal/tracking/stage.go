// Package tracking implements the checklist reconciliation core shared by
// the four stage stations: identifier normalization, column-key mapping,
// the sectioned checklist catalog, pending-snapshot buffering and the
// finalize-readiness state machine.
package tracking

import (
	"strings"

	"factory_portal_backend/platform/apperr"
)

// Stage identifies one of the four production processes.
type Stage string

const (
	// StagePaint tracks paint jobs, identified by a color token.
	StagePaint Stage = "pintura"
	// StageFrame tracks frame builds, identified by VIN.
	StageFrame Stage = "bastidor"
	// StagePreAssembly tracks pre-assembly, identified by VIN.
	StagePreAssembly Stage = "premontaje"
	// StageAssembly tracks final assembly, identified by VIN.
	StageAssembly Stage = "montaje"
)

// AllStages lists every stage in production order.
var AllStages = []Stage{StagePaint, StageFrame, StagePreAssembly, StageAssembly}

// ParseStage validates a raw stage token.
func ParseStage(raw string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range AllStages {
		if s == stage {
			return stage, nil
		}
	}
	return "", apperr.BadRequest("unknown stage")
}

// Code returns the uppercase stage code used in counter keys.
func (s Stage) Code() string {
	return strings.ToUpper(string(s))
}

// Profile carries the stage-specific parameters the reconciliation engine
// is instantiated with.
type Profile struct {
	// Stage is the production process this profile describes.
	Stage Stage
	// IdentifierKind selects VIN or color identifier handling.
	IdentifierKind Kind
	// DefaultSection is the section items without one are grouped under.
	DefaultSection string
	// AutoFinalize closes a resumed record immediately when it is already
	// complete instead of forcing a redundant confirmation.
	AutoFinalize bool
	// RequiresColor marks stages whose finalize needs the color aux field.
	RequiresColor bool
	// RequiresRAL marks stages whose finalize needs the RAL aux field.
	RequiresRAL bool
	// Upstream names the stage whose finalized record must pre-exist for
	// an identifier to be accepted; empty when the stage has no upstream.
	Upstream Stage
}

var profiles = map[Stage]Profile{
	StagePaint: {
		Stage:          StagePaint,
		IdentifierKind: KindColor,
		DefaultSection: "General",
	},
	StageFrame: {
		Stage:          StageFrame,
		IdentifierKind: KindVIN,
		DefaultSection: "General",
		RequiresColor:  true,
		RequiresRAL:    true,
	},
	StagePreAssembly: {
		Stage:          StagePreAssembly,
		IdentifierKind: KindVIN,
		DefaultSection: "Fase 1",
		Upstream:       StageFrame,
	},
	StageAssembly: {
		Stage:          StageAssembly,
		IdentifierKind: KindVIN,
		DefaultSection: "Fase 1",
		AutoFinalize:   true,
		RequiresColor:  true,
		Upstream:       StagePreAssembly,
	},
}

// ProfileFor returns the engine profile for a stage.
func ProfileFor(stage Stage) (Profile, error) {
	profile, ok := profiles[stage]
	if !ok {
		return Profile{}, apperr.BadRequest("unknown stage")
	}
	return profile, nil
}
