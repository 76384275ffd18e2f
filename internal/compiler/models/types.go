package models

// ============================================================
// Geometry primitives
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dimensions are expressed in source SVG user units.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ============================================================
// Extraction output
// ============================================================

type ProvincePath struct {
	ElementID string `json:"elementId"`
	PathData  string `json:"pathData"`
	Fill      string `json:"fill,omitempty"`
	Label     string `json:"label,omitempty"` // inkscape:label or <title>
}

type CoastPath struct {
	ElementID       string `json:"elementId"`
	PathData        string `json:"pathData"`
	Fill            string `json:"fill,omitempty"`
	Label           string `json:"label,omitempty"`
	ParentElementID string `json:"parentElementId,omitempty"`
}

type TextElement struct {
	Content  string            `json:"content"`
	X        float64           `json:"x"`
	Y        float64           `json:"y"`
	Rotation *float64          `json:"rotation,omitempty"`
	Styles   map[string]string `json:"styles,omitempty"`
}

type DecorativeElement struct {
	ElementID string `json:"elementId,omitempty"`
	Tag       string `json:"tag"`
	Markup    string `json:"markup"`
}

// ParsedSvg is produced once per uploaded document and never mutated.
type ParsedSvg struct {
	Dimensions         Dimensions          `json:"dimensions"`
	ProvincePaths      []ProvincePath      `json:"provincePaths"`
	CoastPaths         []CoastPath         `json:"coastPaths"`
	TextElements       []TextElement       `json:"textElements"`
	DecorativeElements []DecorativeElement `json:"decorativeElements"`
}

// ============================================================
// Variant entities
// ============================================================

type ProvinceType string

const (
	ProvinceLand        ProvinceType = "land"
	ProvinceSea         ProvinceType = "sea"
	ProvinceCoastal     ProvinceType = "coastal"
	ProvinceNamedCoasts ProvinceType = "namedCoasts"
)

func (t ProvinceType) Valid() bool {
	switch t {
	case ProvinceLand, ProvinceSea, ProvinceCoastal, ProvinceNamedCoasts:
		return true
	}
	return false
}

// Water reports whether fleets can occupy the province directly.
func (t ProvinceType) Water() bool {
	return t == ProvinceSea || t == ProvinceCoastal || t == ProvinceNamedCoasts
}

type UnitType string

const (
	UnitArmy  UnitType = "army"
	UnitFleet UnitType = "fleet"
)

func (u UnitType) Valid() bool {
	return u == UnitArmy || u == UnitFleet
}

type LabelSource string

const (
	LabelSourceSVG       LabelSource = "svg"
	LabelSourceGenerated LabelSource = "generated"
)

type Label struct {
	Text     string            `json:"text"`
	Position Point             `json:"position"`
	Rotation *float64          `json:"rotation,omitempty"`
	Source   LabelSource       `json:"source"`
	Styles   map[string]string `json:"styles,omitempty"`
}

type StartingUnit struct {
	Type    UnitType `json:"type"`
	CoastID string   `json:"coastId,omitempty"`
}

type Nation struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Province struct {
	ID                    string        `json:"id"`
	ElementID             string        `json:"elementId"`
	Name                  string        `json:"name"`
	Type                  ProvinceType  `json:"type"`
	Path                  string        `json:"path"`
	HomeNation            string        `json:"homeNation,omitempty"`
	SupplyCenter          bool          `json:"supplyCenter"`
	StartingUnit          *StartingUnit `json:"startingUnit,omitempty"`
	Adjacencies           []string      `json:"adjacencies"`
	Labels                []Label       `json:"labels"`
	UnitPosition          Point         `json:"unitPosition"`
	DislodgedUnitPosition Point         `json:"dislodgedUnitPosition"`
	SupplyCenterPosition  *Point        `json:"supplyCenterPosition,omitempty"`
}

type NamedCoast struct {
	ID                    string   `json:"id"`
	ElementID             string   `json:"elementId"`
	Name                  string   `json:"name"`
	ParentID              string   `json:"parentId"`
	Path                  string   `json:"path"`
	Adjacencies           []string `json:"adjacencies"`
	UnitPosition          Point    `json:"unitPosition"`
	DislodgedUnitPosition Point    `json:"dislodgedUnitPosition"`
}

type Metadata struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	Author             string `json:"author"`
	Version            string `json:"version"`
	SoloVictorySCCount int    `json:"soloVictorySCCount"`
}

// VariantDefinition is the terminal artifact handed to renderers and the rules engine.
type VariantDefinition struct {
	Metadata
	Nations            []Nation            `json:"nations"`
	Provinces          []Province          `json:"provinces"`
	NamedCoasts        []NamedCoast        `json:"namedCoasts"`
	DecorativeElements []DecorativeElement `json:"decorativeElements"`
	Dimensions         Dimensions          `json:"dimensions"`
}

// Clone returns a deep copy so exported definitions stay immutable.
func (d *VariantDefinition) Clone() *VariantDefinition {
	if d == nil {
		return nil
	}
	out := &VariantDefinition{
		Metadata:           d.Metadata,
		Nations:            append([]Nation{}, d.Nations...),
		Provinces:          make([]Province, len(d.Provinces)),
		NamedCoasts:        make([]NamedCoast, len(d.NamedCoasts)),
		DecorativeElements: append([]DecorativeElement{}, d.DecorativeElements...),
		Dimensions:         d.Dimensions,
	}
	for i, p := range d.Provinces {
		p.Adjacencies = append([]string{}, p.Adjacencies...)
		labels := make([]Label, len(p.Labels))
		for j, l := range p.Labels {
			labels[j] = l.clone()
		}
		p.Labels = labels
		if p.StartingUnit != nil {
			u := *p.StartingUnit
			p.StartingUnit = &u
		}
		if p.SupplyCenterPosition != nil {
			pos := *p.SupplyCenterPosition
			p.SupplyCenterPosition = &pos
		}
		out.Provinces[i] = p
	}
	for i, c := range d.NamedCoasts {
		c.Adjacencies = append([]string{}, c.Adjacencies...)
		out.NamedCoasts[i] = c
	}
	return out
}

func (l Label) clone() Label {
	if l.Rotation != nil {
		r := *l.Rotation
		l.Rotation = &r
	}
	if l.Styles != nil {
		styles := make(map[string]string, len(l.Styles))
		for k, v := range l.Styles {
			styles[k] = v
		}
		l.Styles = styles
	}
	return l
}
