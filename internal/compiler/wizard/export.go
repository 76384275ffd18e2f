package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"variant-compiler/internal/compiler/models"
)

// ============================================================
// Assembly
// ============================================================

// Draft assembles the current state into a definition without running the
// export gate. Fields owned by stages not yet entered are left empty.
func (s *Session) Draft() *models.VariantDefinition {
	return s.assemble()
}

func (s *Session) assemble() *models.VariantDefinition {
	def := &models.VariantDefinition{
		Metadata:           s.setup.Metadata,
		Nations:            append([]models.Nation{}, s.setup.Nations...),
		Provinces:          []models.Province{},
		NamedCoasts:        []models.NamedCoast{},
		DecorativeElements: append([]models.DecorativeElement{}, s.svg.DecorativeElements...),
		Dimensions:         s.svg.Dimensions,
	}
	if !s.entered[StageProvinces] {
		return def
	}

	var adj map[string][]string
	if s.entered[StageAdjacencies] {
		adj = s.adjacency().Map()
	}
	owned := s.labelsByOwner()

	for _, p := range s.includedProvinces() {
		prov := models.Province{
			ID:           p.id.Value,
			ElementID:    p.source.ElementID,
			Name:         p.name.Value,
			Type:         p.typ.Value,
			Path:         p.path.Value,
			HomeNation:   p.homeNation,
			SupplyCenter: p.supplyCenter,
			Adjacencies:  s.canonicalAll(adj[p.key]),
			Labels:       []models.Label{},
		}
		if p.startingUnit != nil {
			unit := *p.startingUnit
			if unit.CoastID != "" {
				unit.CoastID = s.canonical(unit.CoastID)
			}
			prov.StartingUnit = &unit
		}
		if a := s.anchors[p.key]; a != nil && s.entered[StageVisualEditor] {
			prov.UnitPosition = a.unit.Value
			prov.DislodgedUnitPosition = a.dislodged.Value
			if p.supplyCenter {
				pos := a.supplyCenter.Value
				prov.SupplyCenterPosition = &pos
			}
		}
		if s.entered[StageTextAssociation] {
			prov.Labels = s.provinceLabels(p, owned[p.key], prov.UnitPosition)
		}
		def.Provinces = append(def.Provinces, prov)
	}

	for _, c := range s.includedCoasts() {
		coast := models.NamedCoast{
			ID:          c.id.Value,
			ElementID:   c.source.ElementID,
			Name:        c.name.Value,
			ParentID:    c.parent.Value,
			Path:        c.source.PathData,
			Adjacencies: s.canonicalAll(adj[c.key]),
		}
		if p := s.province(c.parent.Value); p != nil {
			coast.ParentID = p.id.Value
		}
		if a := s.anchors[c.key]; a != nil && s.entered[StageVisualEditor] {
			coast.UnitPosition = a.unit.Value
			coast.DislodgedUnitPosition = a.dislodged.Value
		}
		def.NamedCoasts = append(def.NamedCoasts, coast)
	}
	return def
}

func (s *Session) canonicalAll(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.canonical(k))
	}
	sort.Strings(out)
	return out
}

// labelsByOwner groups text indexes by owning province key, in text order.
func (s *Session) labelsByOwner() map[string][]int {
	out := make(map[string][]int)
	for i := range s.svg.TextElements {
		if owner := s.labels[i].Value; owner != "" {
			out[owner] = append(out[owner], i)
		}
	}
	return out
}

// provinceLabels converts owned text elements to labels. A province with no
// text of its own gets one generated label carrying its name.
func (s *Session) provinceLabels(p *provinceDraft, texts []int, anchor models.Point) []models.Label {
	out := make([]models.Label, 0, len(texts))
	for _, i := range texts {
		te := s.svg.TextElements[i]
		l := models.Label{
			Text:     te.Content,
			Position: models.Point{X: te.X, Y: te.Y},
			Source:   models.LabelSourceSVG,
		}
		if te.Rotation != nil {
			r := *te.Rotation
			l.Rotation = &r
		}
		if len(te.Styles) > 0 {
			l.Styles = make(map[string]string, len(te.Styles))
			for k, v := range te.Styles {
				l.Styles[k] = v
			}
		}
		out = append(out, l)
	}
	if len(out) == 0 && p.name.Value != "" {
		pos := anchor
		if pos == (models.Point{}) {
			pos = p.polygon.InteriorPoint()
		}
		out = append(out, models.Label{Text: p.name.Value, Position: pos, Source: models.LabelSourceGenerated})
	}
	return out
}

// ============================================================
// Export gate
// ============================================================

// Export runs the export gate over up-to-date derivations. The draft state
// itself is not modified. On success the returned definition is an
// independent copy; later edits do not touch it.
func (s *Session) Export() (*models.VariantDefinition, error) {
	c := s.settled()
	if issues := c.issues(); len(issues) > 0 {
		return nil, issues[0]
	}
	def := c.assemble()
	s.exported = def.Clone()
	return def, nil
}

// Issues lists everything currently blocking export, in gate order.
func (s *Session) Issues() []*ExportError {
	return s.settled().issues()
}

// issues runs the gate over s as it stands.
func (s *Session) issues() []*ExportError {
	if s.reached < StageVisualEditor {
		next := s.reached + 1
		return []*ExportError{exportErrorf(CodeStageIncomplete, next, next.String(),
			"stage %s has not been reached", next)}
	}
	def := s.assemble()

	var issues []*ExportError
	issues = append(issues, validateSetup(s.setup)...)
	issues = append(issues, definitionIssues(def)...)
	issues = append(issues, s.labelIssues()...)
	issues = append(issues, s.isolationIssues(def)...)
	return issues
}

func validateSetup(setup Setup) []*ExportError {
	var issues []*ExportError
	if strings.TrimSpace(setup.Name) == "" {
		issues = append(issues, exportErrorf(CodeInvalidSetup, StageSetup, "name", "variant name is required"))
	}
	seen := make(map[string]bool, len(setup.Nations))
	for i, n := range setup.Nations {
		switch {
		case strings.TrimSpace(n.ID) == "":
			issues = append(issues, exportErrorf(CodeInvalidSetup, StageSetup, fmt.Sprintf("nations[%d]", i),
				"nation id is required"))
		case seen[n.ID]:
			issues = append(issues, exportErrorf(CodeInvalidSetup, StageSetup, n.ID, "duplicate nation id"))
		}
		seen[n.ID] = true
	}
	return issues
}

// ValidateDefinition checks id uniqueness and referential closure of a
// definition. It returns the first problem found, in a fixed order.
func ValidateDefinition(def *models.VariantDefinition) error {
	if issues := definitionIssues(def); len(issues) > 0 {
		return issues[0]
	}
	return nil
}

func definitionIssues(def *models.VariantDefinition) []*ExportError {
	var issues []*ExportError

	ids := make(map[string]int)
	for _, p := range def.Provinces {
		if p.ID == "" {
			issues = append(issues, exportErrorf(CodeEmptyID, StageProvinces, p.ElementID,
				"province has an empty id"))
		}
		ids[p.ID]++
	}
	coasts := make(map[string]bool)
	for _, c := range def.NamedCoasts {
		if c.ID == "" {
			issues = append(issues, exportErrorf(CodeEmptyID, StageProvinces, c.ElementID,
				"named coast has an empty id"))
		}
		ids[c.ID]++
		coasts[c.ID] = true
	}
	reported := make(map[string]bool)
	checkDup := func(id string) {
		if id != "" && ids[id] > 1 && !reported[id] {
			reported[id] = true
			issues = append(issues, exportErrorf(CodeDuplicateID, StageProvinces, id,
				"id is used by %d provinces or coasts", ids[id]))
		}
	}
	for _, p := range def.Provinces {
		checkDup(p.ID)
	}
	for _, c := range def.NamedCoasts {
		checkDup(c.ID)
	}

	nations := make(map[string]bool, len(def.Nations))
	for _, n := range def.Nations {
		nations[n.ID] = true
	}
	provinces := make(map[string]bool, len(def.Provinces))
	for _, p := range def.Provinces {
		provinces[p.ID] = true
	}
	dangling := func(stage Stage, ref, format string, args ...any) {
		issues = append(issues, exportErrorf(CodeDanglingReference, stage, ref, format, args...))
	}

	for _, p := range def.Provinces {
		for _, n := range p.Adjacencies {
			if ids[n] == 0 {
				dangling(StageAdjacencies, n, "province %s borders unknown id", p.ID)
			}
		}
		if p.HomeNation != "" && !nations[p.HomeNation] {
			dangling(StageProvinces, p.HomeNation, "province %s names unknown home nation", p.ID)
		}
		if u := p.StartingUnit; u != nil && u.CoastID != "" && !coasts[u.CoastID] {
			dangling(StageProvinces, u.CoastID, "province %s starts a unit on unknown coast", p.ID)
		}
	}
	for _, c := range def.NamedCoasts {
		if !provinces[c.ParentID] {
			dangling(StageProvinces, c.ParentID, "named coast %s names unknown parent", c.ID)
		}
		for _, n := range c.Adjacencies {
			if ids[n] == 0 {
				dangling(StageAdjacencies, n, "named coast %s borders unknown id", c.ID)
			}
		}
	}
	return issues
}

// labelIssues reports text left without an owner that the user has not
// explicitly confirmed as unassociated.
func (s *Session) labelIssues() []*ExportError {
	var issues []*ExportError
	for i, te := range s.svg.TextElements {
		f := s.labels[i]
		if f.Value == "" && !f.IsOverridden() {
			issues = append(issues, exportErrorf(CodeUnresolvedLabel, StageTextAssociation,
				fmt.Sprintf("text[%d]", i), "label %q has no province", te.Content))
		}
	}
	return issues
}

func (s *Session) isolationIssues(def *models.VariantDefinition) []*ExportError {
	var issues []*ExportError
	check := func(key, id string, adj []string) {
		if len(adj) == 0 && !s.isolated[key] {
			issues = append(issues, exportErrorf(CodeUnconfirmedIsolation, StageAdjacencies, id,
				"%s has no adjacencies", id))
		}
	}
	for i, p := range s.includedProvinces() {
		check(p.key, def.Provinces[i].ID, def.Provinces[i].Adjacencies)
	}
	for i, c := range s.includedCoasts() {
		check(c.key, def.NamedCoasts[i].ID, def.NamedCoasts[i].Adjacencies)
	}
	return issues
}

// AsExportError unwraps err into an *ExportError.
func AsExportError(err error) (*ExportError, bool) {
	var ee *ExportError
	ok := errors.As(err, &ee)
	return ee, ok
}
