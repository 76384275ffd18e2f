package wizard

import (
	"fmt"
)

// Stage is one step of the authoring wizard, in strict order.
type Stage int

const (
	StageSetup Stage = iota
	StageProvinces
	StageTextAssociation
	StageAdjacencies
	StageVisualEditor
)

var stageNames = [...]string{
	StageSetup:           "setup",
	StageProvinces:       "provinces",
	StageTextAssociation: "textAssociation",
	StageAdjacencies:     "adjacencies",
	StageVisualEditor:    "visualEditor",
}

func (s Stage) Valid() bool {
	return s >= StageSetup && s <= StageVisualEditor
}

func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStage, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	st, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
