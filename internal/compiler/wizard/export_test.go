package wizard

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"variant-compiler/internal/compiler/labels"
	"variant-compiler/internal/compiler/models"
	"variant-compiler/internal/compiler/parser"
)

func requireExportCode(t *testing.T, s *Session, code ErrorCode, ref string) *ExportError {
	t.Helper()
	_, err := s.Export()
	ee, ok := AsExportError(err)
	require.True(t, ok, "want export error, got %v", err)
	assert.Equal(t, code, ee.Code)
	assert.Equal(t, ref, ee.Ref)
	return ee
}

// resolveFixture settles the two open items of the fixture map: the
// unowned "Lost" label and the isolated island.
func resolveFixture(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.GoTo(StageTextAssociation))
	mustApply(t, s, Correction{Op: OpLabelAssign, Index: 2, Value: ""})
	require.NoError(t, s.GoTo(StageAdjacencies))
	mustApply(t, s, Correction{Op: OpIsolationConfirm, Target: "isl"})
	require.NoError(t, s.GoTo(StageVisualEditor))
}

func TestExportRequiresEveryStage(t *testing.T) {
	s := newFixtureSession(t)
	require.NoError(t, s.GoTo(StageAdjacencies))

	ee := requireExportCode(t, s, CodeStageIncomplete, "visualEditor")
	assert.Equal(t, StageVisualEditor, ee.Stage)
	assert.Nil(t, s.Exported())
}

func TestExportGateOrder(t *testing.T) {
	s := newFixtureSession(t)
	require.NoError(t, s.GoTo(StageVisualEditor))

	issues := s.Issues()
	require.Len(t, issues, 2)
	assert.Equal(t, CodeUnresolvedLabel, issues[0].Code)
	assert.Equal(t, "text[2]", issues[0].Ref)
	assert.Equal(t, StageTextAssociation, issues[0].Stage)
	assert.Equal(t, CodeUnconfirmedIsolation, issues[1].Code)
	assert.Equal(t, "isl", issues[1].Ref)

	requireExportCode(t, s, CodeUnresolvedLabel, "text[2]")

	require.NoError(t, s.GoTo(StageTextAssociation))
	mustApply(t, s, Correction{Op: OpLabelAssign, Index: 2, Value: ""})
	require.NoError(t, s.GoTo(StageVisualEditor))
	requireExportCode(t, s, CodeUnconfirmedIsolation, "isl")

	require.NoError(t, s.GoTo(StageAdjacencies))
	mustApply(t, s, Correction{Op: OpIsolationConfirm, Target: "isl"})
	require.NoError(t, s.GoTo(StageVisualEditor))

	def, err := s.Export()
	require.NoError(t, err)
	assert.Len(t, def.Provinces, 6)
	assert.Empty(t, s.View().Issues)
}

func TestExportRequiresValidSetup(t *testing.T) {
	s := NewSession(fixtureMap(), fixtureOptions())
	mustApply(t, s, Correction{Op: OpSetup, Setup: &Setup{
		Metadata: models.Metadata{Name: "  "},
		Nations:  []models.Nation{{ID: "fra"}, {ID: "fra"}, {ID: ""}},
	}})
	resolveFixture(t, s)

	issues := s.Issues()
	require.GreaterOrEqual(t, len(issues), 3)
	assert.Equal(t, "name", issues[0].Ref)
	assert.Equal(t, "fra", issues[1].Ref)
	assert.Equal(t, "nations[2]", issues[2].Ref)
	for _, is := range issues[:3] {
		assert.Equal(t, CodeInvalidSetup, is.Code)
		assert.Equal(t, StageSetup, is.Stage)
	}

	err := s.Apply(Correction{Op: OpSetup})
	assert.ErrorIs(t, err, ErrWrongStage)
}

func TestExportNamesFirstDanglingReference(t *testing.T) {
	s := newFixtureSession(t)
	require.NoError(t, s.GoTo(StageProvinces))
	mustApply(t, s,
		Correction{Op: OpProvinceHomeNation, Target: "par", Value: "ger"},
		Correction{Op: OpProvinceHomeNation, Target: "bre", Value: "ita"},
	)
	resolveFixture(t, s)

	ee := requireExportCode(t, s, CodeDanglingReference, "ger")
	assert.Equal(t, StageProvinces, ee.Stage)

	require.NoError(t, s.GoTo(StageProvinces))
	mustApply(t, s, Correction{Op: OpProvinceHomeNation, Target: "par", Value: "fra"})
	require.NoError(t, s.GoTo(StageVisualEditor))
	requireExportCode(t, s, CodeDanglingReference, "ita")

	require.NoError(t, s.GoTo(StageProvinces))
	mustApply(t, s, Correction{Op: OpProvinceHomeNation, Target: "bre", Value: ""})
	require.NoError(t, s.GoTo(StageVisualEditor))
	_, err := s.Export()
	require.NoError(t, err)
}

func TestExportDanglingCoastParent(t *testing.T) {
	s := newFixtureSession(t)
	require.NoError(t, s.GoTo(StageProvinces))
	mustApply(t, s, Correction{Op: OpCoastParent, Target: "bur_c", Value: "nowhere"})
	resolveFixture(t, s)

	requireExportCode(t, s, CodeDanglingReference, "nowhere")

	require.NoError(t, s.GoTo(StageProvinces))
	mustApply(t, s, Correction{Op: OpCoastParent, Target: "bur_c", Value: "bur"})
	require.NoError(t, s.GoTo(StageVisualEditor))
	_, err := s.Export()
	assert.NoError(t, err)
}

func TestExportDuplicateIDs(t *testing.T) {
	s := newFixtureSession(t)
	require.NoError(t, s.GoTo(StageProvinces))
	mustApply(t, s, Correction{Op: OpProvinceID, Target: "bre", Value: "par"})
	resolveFixture(t, s)

	ee := requireExportCode(t, s, CodeDuplicateID, "par")
	assert.Equal(t, StageProvinces, ee.Stage)
}

func TestExportedDefinition(t *testing.T) {
	s := newFixtureSession(t)
	require.NoError(t, s.GoTo(StageProvinces))
	mustApply(t, s,
		Correction{Op: OpProvinceHomeNation, Target: "bur", Value: "fra"},
		Correction{Op: OpProvinceSupplyCenter, Target: "bur"},
		Correction{Op: OpProvinceStartingUnit, Target: "bur", Unit: &models.StartingUnit{Type: models.UnitFleet, CoastID: "bur_c"}},
		Correction{Op: OpCoastID, Target: "bur_c", Value: "bur_nc"},
		Correction{Op: OpCoastName, Target: "bur_nc", Value: "Burgundy (north coast)"},
	)
	resolveFixture(t, s)

	def, err := s.Export()
	require.NoError(t, err)

	bur := findProvince(t, def, "bur")
	assert.Equal(t, "fra", bur.HomeNation)
	assert.True(t, bur.SupplyCenter)
	require.NotNil(t, bur.StartingUnit)
	assert.Equal(t, models.StartingUnit{Type: models.UnitFleet, CoastID: "bur_nc"}, *bur.StartingUnit)
	require.NotNil(t, bur.SupplyCenterPosition)

	coast := findCoast(t, def, "bur_nc")
	assert.Equal(t, "Burgundy (north coast)", coast.Name)
	assert.Equal(t, "bur", coast.ParentID)
	assert.Equal(t, []string{"bur", "bur_nc", "gas"}, findProvince(t, def, "mao").Adjacencies)

	assert.Equal(t, 3, def.SoloVictorySCCount)
	assert.Equal(t, models.Dimensions{Width: 200, Height: 100}, def.Dimensions)
	assert.NoError(t, ValidateDefinition(def))

	// The exported copy is independent of later edits.
	def.Provinces[0].Name = "changed"
	require.NoError(t, s.GoTo(StageProvinces))
	mustApply(t, s, Correction{Op: OpProvinceName, Target: "par", Value: "Lutetia"})
	assert.Equal(t, "Paris", s.Exported().Provinces[0].Name)
}

func TestExportIsIdempotent(t *testing.T) {
	s := newFixtureSession(t)
	resolveFixture(t, s)

	first, err := s.Export()
	require.NoError(t, err)
	second, err := s.Export()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	again := NewSession(fixtureMap(), fixtureOptions())
	mustApply(t, again, Correction{Op: OpSetup, Setup: fixtureSetup()})
	resolveFixture(t, again)
	third, err := again.Export()
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestExportedAdjacencyIsSymmetric(t *testing.T) {
	s := newFixtureSession(t)
	require.NoError(t, s.GoTo(StageAdjacencies))
	mustApply(t, s,
		Correction{Op: OpEdgeAdd, Target: "isl", Other: "mao"},
		Correction{Op: OpEdgeRemove, Target: "gas", Other: "bre"},
	)
	require.NoError(t, s.GoTo(StageTextAssociation))
	mustApply(t, s, Correction{Op: OpLabelAssign, Index: 2, Value: "isl"})
	require.NoError(t, s.GoTo(StageVisualEditor))

	def, err := s.Export()
	require.NoError(t, err)

	neighbours := make(map[string]map[string]bool)
	for _, p := range def.Provinces {
		neighbours[p.ID] = toSet(p.Adjacencies)
	}
	for _, c := range def.NamedCoasts {
		neighbours[c.ID] = toSet(c.Adjacencies)
	}
	for a, ns := range neighbours {
		for b := range ns {
			assert.True(t, neighbours[b][a], "%s-%s is one-sided", a, b)
		}
	}
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func TestValidateDefinition(t *testing.T) {
	def := &models.VariantDefinition{
		Provinces: []models.Province{
			{ID: "a", Adjacencies: []string{"b_c"}},
			{ID: "", ElementID: "path-3"},
		},
		NamedCoasts: []models.NamedCoast{{ID: "b_c", ParentID: "b", Adjacencies: []string{"a"}}},
	}
	ee, ok := AsExportError(ValidateDefinition(def))
	require.True(t, ok)
	assert.Equal(t, CodeEmptyID, ee.Code)
	assert.Equal(t, "path-3", ee.Ref)

	def.Provinces[1].ID = "c"
	ee, ok = AsExportError(ValidateDefinition(def))
	require.True(t, ok)
	assert.Equal(t, CodeDanglingReference, ee.Code)
	assert.Equal(t, "b", ee.Ref)

	def.NamedCoasts[0].ParentID = "c"
	assert.NoError(t, ValidateDefinition(def))
}

// ============================================================
// Journal
// ============================================================

func TestJournalReplay(t *testing.T) {
	s := newFixtureSession(t)
	require.NoError(t, s.GoTo(StageProvinces))
	mustApply(t, s,
		Correction{Op: OpProvinceName, Target: "par", Value: "Lutetia"},
		Correction{Op: OpProvinceType, Target: "bre", Value: string(models.ProvinceCoastal)},
	)
	require.Error(t, s.Apply(Correction{Op: OpProvinceType, Target: "bre", Value: "swamp"}))
	require.NoError(t, s.Next())
	require.NoError(t, s.Next())
	mustApply(t, s, Correction{Op: OpEdgeAdd, Target: "par", Other: "gas"})
	require.NoError(t, s.Back())
	mustApply(t, s, Correction{Op: OpLabelAssign, Index: 2, Value: "isl"})

	journal := s.Journal()
	for _, step := range journal {
		if step.Correction != nil {
			assert.NotEqual(t, "swamp", step.Correction.Value, "failed corrections are not journaled")
		}
	}

	// The journal is what gets persisted, so go through JSON.
	raw, err := json.Marshal(journal)
	require.NoError(t, err)
	var decoded []Step
	require.NoError(t, json.Unmarshal(raw, &decoded))

	restored, err := Replay(fixtureMap(), fixtureOptions(), decoded)
	require.NoError(t, err)
	assert.Equal(t, s.Stage(), restored.Stage())
	assert.Equal(t, s.Reached(), restored.Reached())
	assert.Equal(t, s.View(), restored.View())
}

func TestReadsLeaveSessionUntouched(t *testing.T) {
	svg := &models.ParsedSvg{
		Dimensions: models.Dimensions{Width: 40, Height: 120},
		ProvincePaths: []models.ProvincePath{
			{ElementID: "a", PathData: "M0,0 L10,0 L10,10 L0,10 Z"},
			{ElementID: "b", PathData: "M30,0 L40,0 L40,10 L30,10 Z"},
		},
		TextElements: []models.TextElement{{Content: "T", X: 5, Y: 5}},
	}
	opts := Options{Associator: labels.New(100)}
	moveA := func(y float64) Correction {
		return Correction{Op: OpProvincePath, Target: "a",
			Value: fmt.Sprintf("M0,%[1]g L10,%[1]g L10,%[2]g L0,%[2]g Z", y, y+10)}
	}

	s := NewSession(svg, opts)
	require.NoError(t, s.GoTo(StageVisualEditor))
	require.NoError(t, s.GoTo(StageProvinces))
	mustApply(t, s, moveA(100))

	// With a far away, reading through the stale downstream stages would
	// hand the label to b if reads re-derived in place.
	journal := s.Journal()
	assert.Equal(t, "b", s.View().Labels[0].Owner.Value)
	assert.NotEmpty(t, s.Issues())
	_, err := s.Export()
	require.Error(t, err)
	assert.Equal(t, journal, s.Journal())
	assert.Equal(t, "a", s.labels[0].Value)

	mustApply(t, s, moveA(15))
	require.NoError(t, s.GoTo(StageVisualEditor))

	restored, err := Replay(svg, opts, s.Journal())
	require.NoError(t, err)
	assert.Equal(t, "a", s.labels[0].Value)
	assert.Equal(t, s.labels, restored.labels)
	assert.Equal(t, s.assoc, restored.assoc)
	assert.Equal(t, s.View(), restored.View())
}

func TestReplayReportsBadStep(t *testing.T) {
	journal := []Step{{Correction: &Correction{Op: OpProvinceName, Target: "par", Value: "x"}}}
	_, err := Replay(fixtureMap(), fixtureOptions(), journal)
	assert.ErrorIs(t, err, ErrWrongStage)
	assert.Contains(t, err.Error(), "replay step 0")
}

// ============================================================
// Corrections
// ============================================================

func TestApplyRejections(t *testing.T) {
	s := newFixtureSession(t)

	cases := []struct {
		name string
		c    Correction
		want error
	}{
		{"unknown op", Correction{Op: "province.colour"}, ErrUnknownCorrection},
		{"wrong stage", Correction{Op: OpProvinceName, Target: "par", Value: "x"}, ErrWrongStage},
		{"negative sc count", Correction{Op: OpSetup, Setup: &Setup{Metadata: models.Metadata{SoloVictorySCCount: -1}}}, ErrInvalidValue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Apply(tc.c), tc.want)
		})
	}

	require.NoError(t, s.Next())
	provinceCases := []struct {
		name string
		c    Correction
		want error
	}{
		{"unknown province", Correction{Op: OpProvinceName, Target: "zzz", Value: "x"}, ErrUnknownElement},
		{"empty id", Correction{Op: OpProvinceID, Target: "par", Value: "  "}, ErrInvalidValue},
		{"bad type", Correction{Op: OpProvinceType, Target: "par", Value: "swamp"}, ErrInvalidValue},
		{"bad unit", Correction{Op: OpProvinceStartingUnit, Target: "par", Unit: &models.StartingUnit{Type: "cavalry"}}, ErrInvalidValue},
		{"unknown coast", Correction{Op: OpCoastName, Target: "zzz", Value: "x"}, ErrUnknownElement},
		{"empty coast id", Correction{Op: OpCoastID, Target: "bur_c"}, ErrInvalidValue},
	}
	for _, tc := range provinceCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Apply(tc.c), tc.want)
		})
	}

	require.NoError(t, s.Next())
	assert.ErrorIs(t, s.Apply(Correction{Op: OpLabelAssign, Index: 7}), ErrUnknownElement)
	assert.ErrorIs(t, s.Apply(Correction{Op: OpLabelAssign, Index: 0, Value: "zzz"}), ErrUnknownElement)
}

func TestSupplyCenterFlag(t *testing.T) {
	s := newFixtureSession(t)
	require.NoError(t, s.Next())

	mustApply(t, s, Correction{Op: OpProvinceSupplyCenter, Target: "par"})
	assert.True(t, findProvince(t, s.Draft(), "par").SupplyCenter)

	off := false
	mustApply(t, s, Correction{Op: OpProvinceSupplyCenter, Target: "par", Flag: &off})
	assert.False(t, findProvince(t, s.Draft(), "par").SupplyCenter)

	mustApply(t, s,
		Correction{Op: OpProvinceStartingUnit, Target: "par", Unit: &models.StartingUnit{Type: models.UnitArmy}},
		Correction{Op: OpProvinceStartingUnit, Target: "par"},
	)
	assert.Nil(t, findProvince(t, s.Draft(), "par").StartingUnit)
}

func TestStageText(t *testing.T) {
	for st := StageSetup; st <= StageVisualEditor; st++ {
		b, err := st.MarshalText()
		require.NoError(t, err)
		var back Stage
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, st, back)
	}
	_, err := ParseStage("review")
	assert.ErrorIs(t, err, ErrUnknownStage)
	assert.Equal(t, "Stage(7)", Stage(7).String())
}

func TestFieldRederive(t *testing.T) {
	f := Derived("a").Rederive("b")
	assert.Equal(t, Derived("b"), f)

	o := Overridden("x").Rederive("b")
	assert.Equal(t, Overridden("x"), o)
}

// ============================================================
// Compile
// ============================================================

func TestCompileParsed(t *testing.T) {
	def, err := CompileParsed(fixtureMap(), *fixtureSetup(), []Correction{
		{Op: OpIsolationConfirm, Target: "isl"},
		{Op: OpProvinceHomeNation, Target: "par", Value: "fra"},
		{Op: OpLabelAssign, Index: 2, Value: ""},
	}, fixtureOptions())
	require.NoError(t, err)
	assert.Equal(t, "fra", findProvince(t, def, "par").HomeNation)
	assert.Equal(t, "Fixture", def.Name)
}

func TestCompileParsedFailures(t *testing.T) {
	_, err := CompileParsed(fixtureMap(), *fixtureSetup(), nil, fixtureOptions())
	ee, ok := AsExportError(err)
	require.True(t, ok)
	assert.Equal(t, CodeUnresolvedLabel, ee.Code)

	_, err = CompileParsed(fixtureMap(), *fixtureSetup(), []Correction{{Op: OpSetup}}, fixtureOptions())
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = CompileParsed(fixtureMap(), *fixtureSetup(), []Correction{{Op: "nope"}}, fixtureOptions())
	assert.ErrorIs(t, err, ErrUnknownCorrection)
}

func TestCompileFromSVG(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50">
  <g id="provinces">
    <path id="west" d="M0,0 L50,0 L50,50 L0,50 Z"/>
    <path id="east" d="M50,0 L100,0 L100,50 L50,50 Z"/>
  </g>
  <g id="labels"><text x="20" y="25">West</text><text x="70" y="25">East</text></g>
</svg>`
	def, err := Compile(CompileRequest{
		SVG:   svg,
		Setup: Setup{Metadata: models.Metadata{Name: "Two"}, Nations: []models.Nation{{ID: "w"}}},
	}, Options{})
	require.NoError(t, err)
	require.Len(t, def.Provinces, 2)
	assert.Equal(t, []string{"east"}, def.Provinces[0].Adjacencies)
	assert.Equal(t, "West", def.Provinces[0].Labels[0].Text)
	assert.Equal(t, models.Dimensions{Width: 100, Height: 50}, def.Dimensions)

	_, err = Compile(CompileRequest{SVG: `<html/>`}, Options{})
	var verr *parser.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, parser.CodeNotSVG, verr.Code)
}
