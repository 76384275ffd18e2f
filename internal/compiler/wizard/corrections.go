package wizard

import (
	"fmt"
	"strings"

	"variant-compiler/internal/compiler/geometry"
	"variant-compiler/internal/compiler/graph"
	"variant-compiler/internal/compiler/models"
)

// Op names a user correction. Every op belongs to exactly one stage.
type Op string

const (
	OpSetup Op = "setup"

	OpProvinceID           Op = "province.id"
	OpProvinceName         Op = "province.name"
	OpProvinceType         Op = "province.type"
	OpProvinceHomeNation   Op = "province.home_nation"
	OpProvinceSupplyCenter Op = "province.supply_center"
	OpProvinceStartingUnit Op = "province.starting_unit"
	OpProvincePath         Op = "province.path"
	OpProvinceExclude      Op = "province.exclude"
	OpProvinceInclude      Op = "province.include"
	OpCoastID              Op = "coast.id"
	OpCoastName            Op = "coast.name"
	OpCoastParent          Op = "coast.parent"

	OpLabelAssign Op = "label.assign"
	OpLabelReset  Op = "label.reset"

	OpEdgeAdd          Op = "edge.add"
	OpEdgeRemove       Op = "edge.remove"
	OpEdgeReset        Op = "edge.reset"
	OpIsolationConfirm Op = "isolation.confirm"

	OpAnchorUnit         Op = "anchor.unit"
	OpAnchorDislodged    Op = "anchor.dislodged"
	OpAnchorSupplyCenter Op = "anchor.supply_center"
)

var opStages = map[Op]Stage{
	OpSetup: StageSetup,

	OpProvinceID:           StageProvinces,
	OpProvinceName:         StageProvinces,
	OpProvinceType:         StageProvinces,
	OpProvinceHomeNation:   StageProvinces,
	OpProvinceSupplyCenter: StageProvinces,
	OpProvinceStartingUnit: StageProvinces,
	OpProvincePath:         StageProvinces,
	OpProvinceExclude:      StageProvinces,
	OpProvinceInclude:      StageProvinces,
	OpCoastID:              StageProvinces,
	OpCoastName:            StageProvinces,
	OpCoastParent:          StageProvinces,

	OpLabelAssign: StageTextAssociation,
	OpLabelReset:  StageTextAssociation,

	OpEdgeAdd:          StageAdjacencies,
	OpEdgeRemove:       StageAdjacencies,
	OpEdgeReset:        StageAdjacencies,
	OpIsolationConfirm: StageAdjacencies,

	OpAnchorUnit:         StageVisualEditor,
	OpAnchorDislodged:    StageVisualEditor,
	OpAnchorSupplyCenter: StageVisualEditor,
}

// Stage reports which stage accepts op.
func (op Op) Stage() (Stage, bool) {
	st, ok := opStages[op]
	return st, ok
}

// Correction is one user edit. Target and Other name provinces or coasts by
// element id or canonical id; Index names a text element.
type Correction struct {
	Op     Op                   `json:"op"`
	Target string               `json:"target,omitempty"`
	Other  string               `json:"other,omitempty"`
	Index  int                  `json:"index,omitempty"`
	Value  string               `json:"value,omitempty"`
	Flag   *bool                `json:"flag,omitempty"`
	Point  *models.Point        `json:"point,omitempty"`
	Unit   *models.StartingUnit `json:"unit,omitempty"`
	Setup  *Setup               `json:"setup,omitempty"`
}

func (c Correction) flag() bool {
	return c.Flag == nil || *c.Flag
}

// Step is one journaled session action: a navigation to Stage or an applied
// Correction. Replaying a journal over the same document rebuilds the session.
type Step struct {
	Stage      *Stage      `json:"stage,omitempty"`
	Correction *Correction `json:"correction,omitempty"`
}

func ptr[T any](v T) *T { return &v }

func (s *Session) record(step Step) {
	s.journal = append(s.journal, step)
}

// Journal returns the actions applied so far.
func (s *Session) Journal() []Step {
	return append([]Step(nil), s.journal...)
}

// Replay rebuilds a session from a journal.
func Replay(svg *models.ParsedSvg, opts Options, journal []Step) (*Session, error) {
	s := NewSession(svg, opts)
	for i, step := range journal {
		var err error
		switch {
		case step.Correction != nil:
			err = s.Apply(*step.Correction)
		case step.Stage != nil:
			err = s.GoTo(*step.Stage)
		}
		if err != nil {
			return nil, fmt.Errorf("replay step %d: %w", i, err)
		}
	}
	return s, nil
}

// ============================================================
// Apply
// ============================================================

// Apply validates c against the current stage and records it as an
// override. Failed corrections leave the session unchanged.
func (s *Session) Apply(c Correction) error {
	stage, ok := c.Op.Stage()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCorrection, c.Op)
	}
	if err := s.requireStage(stage); err != nil {
		return err
	}

	var err error
	switch stage {
	case StageSetup:
		err = s.applySetup(c)
	case StageProvinces:
		err = s.applyProvince(c)
		if err == nil {
			s.deriveProvinces()
		}
	case StageTextAssociation:
		err = s.applyLabel(c)
	case StageAdjacencies:
		err = s.applyEdge(c)
	case StageVisualEditor:
		err = s.applyAnchor(c)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", c.Op, err)
	}
	s.record(Step{Correction: ptr(c)})
	return nil
}

func (s *Session) applySetup(c Correction) error {
	if c.Setup == nil {
		return fmt.Errorf("%w: setup is required", ErrInvalidValue)
	}
	if c.Setup.SoloVictorySCCount < 0 {
		return fmt.Errorf("%w: soloVictorySCCount must not be negative", ErrInvalidValue)
	}
	setup := *c.Setup
	setup.Nations = append([]models.Nation(nil), c.Setup.Nations...)
	s.setup = setup
	return nil
}

// Setup returns the metadata and nations written so far.
func (s *Session) Setup() Setup {
	out := s.setup
	out.Nations = append([]models.Nation(nil), s.setup.Nations...)
	return out
}

func (s *Session) applyProvince(c Correction) error {
	switch c.Op {
	case OpCoastID, OpCoastName, OpCoastParent:
		return s.applyCoast(c)
	case OpProvinceInclude, OpProvinceExclude:
		p := s.anyProvince(c.Target)
		if p == nil {
			return fmt.Errorf("%w: %q", ErrUnknownElement, c.Target)
		}
		excluded := c.Op == OpProvinceExclude
		if p.excluded != excluded {
			p.excluded = excluded
			s.rev[p.key]++
		}
		return nil
	}

	p := s.province(c.Target)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownElement, c.Target)
	}
	switch c.Op {
	case OpProvinceID:
		id := strings.TrimSpace(c.Value)
		if id == "" {
			return fmt.Errorf("%w: id must not be empty", ErrInvalidValue)
		}
		p.id = Overridden(id)
	case OpProvinceName:
		p.name = Overridden(c.Value)
	case OpProvinceType:
		t := models.ProvinceType(c.Value)
		if !t.Valid() {
			return fmt.Errorf("%w: province type %q", ErrInvalidValue, c.Value)
		}
		if t != p.typ.Value {
			s.rev[p.key]++
		}
		p.typ = Overridden(t)
	case OpProvinceHomeNation:
		p.homeNation = c.Value
	case OpProvinceSupplyCenter:
		p.supplyCenter = c.flag()
	case OpProvinceStartingUnit:
		if c.Unit == nil {
			p.startingUnit = nil
			return nil
		}
		if !c.Unit.Type.Valid() {
			return fmt.Errorf("%w: unit type %q", ErrInvalidValue, c.Unit.Type)
		}
		unit := *c.Unit
		if co := s.coast(unit.CoastID); co != nil {
			unit.CoastID = co.key
		}
		p.startingUnit = &unit
	case OpProvincePath:
		if _, err := geometry.FromPath(c.Value); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		p.path = Overridden(c.Value)
		s.rev[p.key]++
	}
	return nil
}

func (s *Session) applyCoast(c Correction) error {
	co := s.coast(c.Target)
	if co == nil {
		return fmt.Errorf("%w: %q", ErrUnknownElement, c.Target)
	}
	switch c.Op {
	case OpCoastID:
		id := strings.TrimSpace(c.Value)
		if id == "" {
			return fmt.Errorf("%w: id must not be empty", ErrInvalidValue)
		}
		co.id = Overridden(id)
	case OpCoastName:
		co.name = Overridden(c.Value)
	case OpCoastParent:
		parent := c.Value
		if p := s.province(parent); p != nil {
			parent = p.key
		}
		if parent != co.parent.Value {
			s.rev[co.key]++
		}
		co.parent = Overridden(parent)
	}
	return nil
}

func (s *Session) applyLabel(c Correction) error {
	if c.Index < 0 || c.Index >= len(s.svg.TextElements) {
		return fmt.Errorf("%w: text index %d", ErrUnknownElement, c.Index)
	}
	switch c.Op {
	case OpLabelAssign:
		if c.Value == "" {
			s.labels[c.Index] = Overridden("")
			return nil
		}
		p := s.province(c.Value)
		if p == nil {
			return fmt.Errorf("%w: %q", ErrUnknownElement, c.Value)
		}
		s.labels[c.Index] = Overridden(p.key)
	case OpLabelReset:
		s.labels[c.Index] = Derived(s.assoc[c.Index].ProvinceID)
	}
	return nil
}

func (s *Session) applyEdge(c Correction) error {
	a, ok := s.shapeKey(c.Target)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownElement, c.Target)
	}
	if c.Op == OpIsolationConfirm {
		if c.flag() {
			s.isolated[a] = true
		} else {
			delete(s.isolated, a)
		}
		return nil
	}

	b, ok := s.shapeKey(c.Other)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownElement, c.Other)
	}
	if a == b {
		return fmt.Errorf("%w: %q cannot border itself", ErrInvalidValue, c.Target)
	}
	e := graph.NewEdge(a, b)
	switch c.Op {
	case OpEdgeAdd:
		s.diff.Add(e)
	case OpEdgeRemove:
		s.diff.Remove(e)
	case OpEdgeReset:
		s.diff.Reset(e)
	}
	return nil
}

func (s *Session) applyAnchor(c Correction) error {
	key, ok := s.shapeKey(c.Target)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownElement, c.Target)
	}
	if c.Point == nil {
		return fmt.Errorf("%w: point is required", ErrInvalidValue)
	}
	a := s.anchors[key]
	if a == nil {
		return fmt.Errorf("%w: %q has no anchors yet", ErrUnknownElement, c.Target)
	}
	switch c.Op {
	case OpAnchorUnit:
		a.unit = Overridden(*c.Point)
	case OpAnchorDislodged:
		a.dislodged = Overridden(*c.Point)
	case OpAnchorSupplyCenter:
		if _, isCoast := s.coastByKey[key]; isCoast {
			return fmt.Errorf("%w: named coasts have no supply center", ErrInvalidValue)
		}
		a.supplyCenter = Overridden(*c.Point)
	}
	return nil
}

// anyProvince resolves a reference including excluded provinces.
func (s *Session) anyProvince(ref string) *provinceDraft {
	if p, ok := s.byKey[ref]; ok {
		return p
	}
	for _, p := range s.provinces {
		if p.id.Value == ref {
			return p
		}
	}
	return nil
}
