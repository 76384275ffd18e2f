package wizard

import (
	"fmt"
	"maps"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"variant-compiler/internal/compiler/classify"
	"variant-compiler/internal/compiler/geometry"
	"variant-compiler/internal/compiler/graph"
	"variant-compiler/internal/compiler/labels"
	"variant-compiler/internal/compiler/mapper"
	"variant-compiler/internal/compiler/models"
)

// ============================================================
// Variant Assembler
// ============================================================

const (
	anchorOffsetFraction = 0.008 // of the map diagonal
	minAnchorOffset      = 2.0
)

type Options struct {
	IDs        *mapper.IDMapper
	Classifier classify.Classifier
	Associator *labels.Associator
	Builder    *graph.GraphBuilder
}

func (o Options) withDefaults() Options {
	if o.IDs == nil {
		o.IDs = mapper.MustIDMapper(nil)
	}
	if o.Classifier == nil {
		o.Classifier = classify.NewStyleClassifier()
	}
	if o.Associator == nil {
		o.Associator = labels.New(0)
	}
	if o.Builder == nil {
		o.Builder = graph.NewGraphBuilder(graph.DefaultOptions())
	}
	return o
}

// Setup is the metadata and nation list written by the Setup stage.
type Setup struct {
	models.Metadata
	Nations []models.Nation `json:"nations"`
}

type provinceDraft struct {
	source   models.ProvincePath
	key      string
	excluded bool

	path         Field[string]
	id           Field[string]
	name         Field[string]
	typ          Field[models.ProvinceType]
	homeNation   string
	supplyCenter bool
	startingUnit *models.StartingUnit

	polygon     *geometry.Polygon
	polygonPath string
}

type coastDraft struct {
	source   models.CoastPath
	key      string
	excluded bool

	id     Field[string]
	name   Field[string]
	parent Field[string] // reference to the parent province, resolved by key or id

	polygon *geometry.Polygon
}

type anchorDraft struct {
	rev          int // geometry revision the overrides were made against
	unit         Field[models.Point]
	dislodged    Field[models.Point]
	supplyCenter Field[models.Point]
}

// Session is one authoring run over a parsed document. Drafts are keyed by
// source element id, so canonical-id edits never orphan downstream edits.
// A Session is not safe for concurrent use.
type Session struct {
	opts Options
	svg  *models.ParsedSvg

	stage   Stage
	reached Stage
	entered map[Stage]bool

	setup Setup

	provinces  []*provinceDraft
	coasts     []*coastDraft
	byKey      map[string]*provinceDraft
	coastByKey map[string]*coastDraft
	rev        map[string]int

	labels  map[int]Field[string]
	assoc   map[int]labels.Association
	anchors map[string]*anchorDraft

	baseline *graph.Adjacency
	diff     *graph.Diff
	adjRevs  map[string]int
	isolated map[string]bool

	journal  []Step
	exported *models.VariantDefinition
}

// NewSession starts a wizard over svg at the Setup stage.
func NewSession(svg *models.ParsedSvg, opts Options) *Session {
	s := &Session{
		opts:       opts.withDefaults(),
		svg:        svg,
		stage:      StageSetup,
		entered:    map[Stage]bool{StageSetup: true},
		byKey:      make(map[string]*provinceDraft),
		coastByKey: make(map[string]*coastDraft),
		rev:        make(map[string]int),
		labels:     make(map[int]Field[string]),
		anchors:    make(map[string]*anchorDraft),
		diff:       graph.NewDiff(),
		isolated:   make(map[string]bool),
	}
	taken := make(map[string]int)
	for _, p := range svg.ProvincePaths {
		d := &provinceDraft{source: p, key: uniqueKey(taken, p.ElementID), path: Derived(p.PathData)}
		s.provinces = append(s.provinces, d)
		s.byKey[d.key] = d
	}
	for _, c := range svg.CoastPaths {
		d := &coastDraft{source: c, key: uniqueKey(taken, c.ElementID)}
		d.polygon = polygonOf(c.PathData)
		s.coasts = append(s.coasts, d)
		s.coastByKey[d.key] = d
	}
	return s
}

// uniqueKey disambiguates repeated element ids so every draft has its own key.
func uniqueKey(taken map[string]int, id string) string {
	taken[id]++
	if n := taken[id]; n > 1 {
		return fmt.Sprintf("%s~%d", id, n)
	}
	return id
}

func polygonOf(d string) *geometry.Polygon {
	poly, err := geometry.FromPath(d)
	if err != nil {
		return geometry.NewPolygon(nil)
	}
	return poly
}

func (s *Session) Stage() Stage   { return s.stage }
func (s *Session) Reached() Stage { return s.reached }

// Exported returns the last exported definition, if any.
func (s *Session) Exported() *models.VariantDefinition {
	return s.exported.Clone()
}

// ============================================================
// Navigation
// ============================================================

// Next moves one stage forward and derives that stage's defaults.
func (s *Session) Next() error {
	if err := s.next(); err != nil {
		return err
	}
	s.record(Step{Stage: ptr(s.stage)})
	return nil
}

// Back moves one stage backward. Nothing downstream is discarded.
func (s *Session) Back() error {
	if s.stage == StageSetup {
		return ErrFirstStage
	}
	s.stage--
	s.record(Step{Stage: ptr(s.stage)})
	return nil
}

// GoTo jumps to stage. Forward jumps pass through, and derive, every
// intermediate stage.
func (s *Session) GoTo(stage Stage) error {
	if !stage.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownStage, int(stage))
	}
	for s.stage < stage {
		if err := s.next(); err != nil {
			return err
		}
	}
	if stage < s.stage {
		s.stage = stage
	}
	s.record(Step{Stage: ptr(stage)})
	return nil
}

func (s *Session) next() error {
	if s.stage == StageVisualEditor {
		return ErrLastStage
	}
	s.stage++
	if s.stage > s.reached {
		s.reached = s.stage
	}
	s.enter(s.stage)
	return nil
}

func (s *Session) enter(stage Stage) {
	s.entered[stage] = true
	switch stage {
	case StageProvinces:
		s.deriveProvinces()
	case StageTextAssociation:
		s.deriveLabels()
	case StageAdjacencies:
		s.deriveAdjacencies()
	case StageVisualEditor:
		s.deriveAnchors()
	}
}

// refresh re-runs every derivation that has run before, in stage order.
func (s *Session) refresh() {
	for st := StageProvinces; st <= s.reached; st++ {
		if s.entered[st] {
			s.enter(st)
		}
	}
}

// settled returns a copy of s with every derivation brought up to date.
// Derivations only mutate a session inside journaled steps; reads that need
// fresh downstream results go through the copy.
func (s *Session) settled() *Session {
	c := s.fork()
	c.refresh()
	return c
}

// fork deep-copies the mutable draft state. Parsed geometry is shared.
func (s *Session) fork() *Session {
	c := *s
	c.entered = maps.Clone(s.entered)
	c.rev = maps.Clone(s.rev)
	c.labels = maps.Clone(s.labels)
	c.assoc = maps.Clone(s.assoc)
	c.adjRevs = maps.Clone(s.adjRevs)
	c.isolated = maps.Clone(s.isolated)
	c.diff = s.diff.Clone()
	c.journal = nil
	c.exported = nil

	c.provinces = make([]*provinceDraft, 0, len(s.provinces))
	c.byKey = make(map[string]*provinceDraft, len(s.byKey))
	for _, p := range s.provinces {
		cp := *p
		if p.startingUnit != nil {
			unit := *p.startingUnit
			cp.startingUnit = &unit
		}
		c.provinces = append(c.provinces, &cp)
		c.byKey[cp.key] = &cp
	}
	c.coasts = make([]*coastDraft, 0, len(s.coasts))
	c.coastByKey = make(map[string]*coastDraft, len(s.coastByKey))
	for _, co := range s.coasts {
		cc := *co
		c.coasts = append(c.coasts, &cc)
		c.coastByKey[cc.key] = &cc
	}
	c.anchors = make(map[string]*anchorDraft, len(s.anchors))
	for k, a := range s.anchors {
		ca := *a
		c.anchors[k] = &ca
	}
	return &c
}

func (s *Session) requireStage(stage Stage) error {
	if s.stage != stage {
		return fmt.Errorf("%w: needs %s, session is at %s", ErrWrongStage, stage, s.stage)
	}
	return nil
}

// ============================================================
// Provinces stage
// ============================================================

func (s *Session) deriveProvinces() {
	ids := s.opts.IDs

	for _, p := range s.provinces {
		p.id = p.id.Rederive(ids.MappedID(p.source.ElementID))
		p.name = p.name.Rederive(displayName(p.source.Label, p.id.Value))
		if p.polygon == nil || p.polygonPath != p.path.Value {
			p.polygon = polygonOf(p.path.Value)
			p.polygonPath = p.path.Value
		}
	}
	for _, c := range s.coasts {
		c.id = c.id.Rederive(ids.MappedID(c.source.ElementID))
		c.name = c.name.Rederive(displayName(c.source.Label, c.id.Value))
		c.parent = c.parent.Rederive(s.defaultCoastParent(c))
	}

	s.classifyProvinces()
}

// defaultCoastParent finds the province a coast names by element id or by
// canonical id; unresolvable references are kept as the mapped id.
func (s *Session) defaultCoastParent(c *coastDraft) string {
	raw := c.source.ParentElementID
	if raw == "" {
		return ""
	}
	if p, ok := s.byKey[raw]; ok {
		return p.key
	}
	mapped := s.opts.IDs.MappedID(raw)
	for _, p := range s.provinces {
		if p.id.Value == mapped {
			return p.key
		}
	}
	return mapped
}

func (s *Session) classifyProvinces() {
	cls := s.opts.Classifier
	withCoasts := make(map[string]bool)
	for _, c := range s.coasts {
		if c.excluded {
			continue
		}
		if p := s.province(c.parent.Value); p != nil {
			withCoasts[p.key] = true
		}
	}

	inputs := make(map[string]classify.Input, len(s.provinces))
	var seas []*provinceDraft
	for _, p := range s.includedProvinces() {
		in := classify.Input{
			ElementID:      p.source.ElementID,
			Label:          p.source.Label,
			Fill:           p.source.Fill,
			HasNamedCoasts: withCoasts[p.key],
		}
		inputs[p.key] = in
		sea := cls.IsSea(in)
		if p.typ.IsOverridden() {
			sea = p.typ.Value == models.ProvinceSea
		}
		if sea {
			seas = append(seas, p)
		}
	}

	seaBounds := make([]geometry.Rect, len(seas))
	for i, sea := range seas {
		seaBounds[i] = sea.polygon.Bounds()
	}
	index := geometry.NewIndex(seaBounds, 0)
	reach := s.opts.Builder.Options().Tolerance

	for _, p := range s.includedProvinces() {
		in := inputs[p.key]
		for _, i := range index.Query(p.polygon.Bounds().Expand(reach)) {
			if seas[i] != p && s.opts.Builder.Touching(p.polygon, seas[i].polygon) {
				in.TouchesSea = true
				break
			}
		}
		p.typ = p.typ.Rederive(cls.Classify(in))
	}
}

// displayName prefers the authored label, else title-cases the id.
func displayName(label, id string) string {
	if label = strings.TrimSpace(label); label != "" {
		return label
	}
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || unicode.IsSpace(r)
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// ============================================================
// Text Association stage
// ============================================================

func (s *Session) deriveLabels() {
	var targets []labels.Target
	for _, p := range s.includedProvinces() {
		targets = append(targets, labels.Target{ID: p.key, Polygon: p.polygon})
	}

	// Overrides pointing at provinces that no longer exist fall back to
	// derivation; every other override is kept.
	pinned := make(map[int]bool)
	for i, f := range s.labels {
		if !f.IsOverridden() {
			continue
		}
		if f.Value == "" || s.province(f.Value) != nil {
			pinned[i] = true
			continue
		}
		s.labels[i] = Derived("")
	}

	texts := s.svg.TextElements
	if s.assoc == nil {
		s.assoc = s.opts.Associator.Associate(texts, targets)
	} else {
		s.assoc = s.opts.Associator.Reassociate(texts, targets, s.assoc, nil)
	}
	for i := range texts {
		if pinned[i] {
			continue
		}
		s.labels[i] = s.labels[i].Rederive(s.assoc[i].ProvinceID)
	}
}

// ============================================================
// Adjacencies stage
// ============================================================

func (s *Session) shapes() []graph.Shape {
	var out []graph.Shape
	for _, p := range s.includedProvinces() {
		out = append(out, graph.Shape{ID: p.key, Type: p.typ.Value, Polygon: p.polygon})
	}
	for _, c := range s.includedCoasts() {
		parent := ""
		if p := s.province(c.parent.Value); p != nil {
			parent = p.key
		}
		out = append(out, graph.Shape{ID: c.key, Coast: true, ParentID: parent, Polygon: c.polygon})
	}
	return out
}

func (s *Session) deriveAdjacencies() {
	shapes := s.shapes()

	current := make(map[string]int, len(shapes))
	for _, sh := range shapes {
		current[sh.ID] = s.rev[sh.ID]
	}

	if s.adjRevs != nil {
		changed := make(map[string]bool)
		for id, r := range s.adjRevs {
			if now, ok := current[id]; !ok || now != r {
				changed[id] = true
			}
		}
		for id := range current {
			if _, ok := s.adjRevs[id]; !ok {
				changed[id] = true
			}
		}
		s.diff.Forget(changed)
		for id := range changed {
			delete(s.isolated, id)
		}
	}

	s.baseline = s.opts.Builder.Derive(shapes)
	s.adjRevs = current
}

// adjacency is the baseline with user overrides replayed.
func (s *Session) adjacency() *graph.Adjacency {
	if s.baseline == nil {
		return graph.NewAdjacency()
	}
	return s.diff.Apply(s.baseline)
}

// ============================================================
// Visual Editor stage
// ============================================================

func (s *Session) anchorOffset() float64 {
	d := math.Hypot(s.svg.Dimensions.Width, s.svg.Dimensions.Height)
	return math.Max(d*anchorOffsetFraction, minAnchorOffset)
}

func (s *Session) deriveAnchors() {
	off := s.anchorOffset()
	place := func(key string, poly *geometry.Polygon) {
		a := s.anchors[key]
		if a == nil || a.rev != s.rev[key] {
			a = &anchorDraft{rev: s.rev[key]}
			s.anchors[key] = a
		}
		unit := poly.InteriorPoint()
		a.unit = a.unit.Rederive(unit)
		a.dislodged = a.dislodged.Rederive(nudge(poly, a.unit.Value, off, off))
		a.supplyCenter = a.supplyCenter.Rederive(nudge(poly, a.unit.Value, 0, 2*off))
	}
	for _, p := range s.includedProvinces() {
		place(p.key, p.polygon)
	}
	for _, c := range s.includedCoasts() {
		place(c.key, c.polygon)
	}
}

// nudge offsets from, staying inside poly when the offset point would leave it.
func nudge(poly *geometry.Polygon, from models.Point, dx, dy float64) models.Point {
	to := models.Point{X: from.X + dx, Y: from.Y + dy}
	if poly.Empty() || poly.Contains(to) {
		return to
	}
	return from
}

// ============================================================
// Lookup
// ============================================================

func (s *Session) includedProvinces() []*provinceDraft {
	var out []*provinceDraft
	for _, p := range s.provinces {
		if !p.excluded {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) includedCoasts() []*coastDraft {
	var out []*coastDraft
	for _, c := range s.coasts {
		if !c.excluded {
			out = append(out, c)
		}
	}
	return out
}

// province resolves a reference (element key, then canonical id) to an
// included province.
func (s *Session) province(ref string) *provinceDraft {
	if ref == "" {
		return nil
	}
	if p, ok := s.byKey[ref]; ok {
		if p.excluded {
			return nil
		}
		return p
	}
	for _, p := range s.provinces {
		if !p.excluded && p.id.Value == ref {
			return p
		}
	}
	return nil
}

// coast resolves a reference to an included named coast.
func (s *Session) coast(ref string) *coastDraft {
	if ref == "" {
		return nil
	}
	if c, ok := s.coastByKey[ref]; ok {
		if c.excluded {
			return nil
		}
		return c
	}
	for _, c := range s.coasts {
		if !c.excluded && c.id.Value == ref {
			return c
		}
	}
	return nil
}

// shapeKey resolves a province or coast reference to its draft key.
func (s *Session) shapeKey(ref string) (string, bool) {
	if p := s.province(ref); p != nil {
		return p.key, true
	}
	if c := s.coast(ref); c != nil {
		return c.key, true
	}
	return "", false
}

// canonical maps a draft key to its current canonical id.
func (s *Session) canonical(key string) string {
	if p, ok := s.byKey[key]; ok {
		return p.id.Value
	}
	if c, ok := s.coastByKey[key]; ok {
		return c.id.Value
	}
	return key
}
