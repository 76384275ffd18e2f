package wizard

import (
	"sort"

	"variant-compiler/internal/compiler/graph"
	"variant-compiler/internal/compiler/labels"
	"variant-compiler/internal/compiler/models"
)

// View is a read-only snapshot of a session for callers that render the
// wizard. Keys are element ids, disambiguated with a ~n suffix on repeats.
type View struct {
	Stage         Stage                     `json:"stage"`
	Reached       Stage                     `json:"reached"`
	Setup         Setup                     `json:"setup"`
	ProvinceCount int                       `json:"provinceCount"`
	Provinces     []ProvinceView            `json:"provinces"`
	Coasts        []CoastView               `json:"coasts"`
	Labels        []LabelView               `json:"labels"`
	AddedEdges    []graph.Edge              `json:"addedEdges"`
	RemovedEdges  []graph.Edge              `json:"removedEdges"`
	Isolated      []string                  `json:"isolated"`
	Issues        []*ExportError            `json:"issues"`
	Draft         *models.VariantDefinition `json:"draft"`
}

type ProvinceView struct {
	Key          string                     `json:"key"`
	ElementID    string                     `json:"elementId"`
	Excluded     bool                       `json:"excluded"`
	ID           Field[string]              `json:"id"`
	Name         Field[string]              `json:"name"`
	Type         Field[models.ProvinceType] `json:"type"`
	PathEdited   bool                       `json:"pathEdited"`
	HomeNation   string                     `json:"homeNation,omitempty"`
	SupplyCenter bool                       `json:"supplyCenter"`
	StartingUnit *models.StartingUnit       `json:"startingUnit,omitempty"`
}

type CoastView struct {
	Key       string        `json:"key"`
	ElementID string        `json:"elementId"`
	ID        Field[string] `json:"id"`
	Name      Field[string] `json:"name"`
	Parent    Field[string] `json:"parent"`
}

type LabelView struct {
	Index   int           `json:"index"`
	Content string        `json:"content"`
	Owner   Field[string] `json:"owner"`
	Method  labels.Method `json:"method"`
}

// View snapshots the session with derivations brought up to date. It never
// changes the session. Issues are only computed once every stage has been
// reached.
func (s *Session) View() View {
	return s.settled().view()
}

func (s *Session) view() View {
	v := View{
		Stage:         s.stage,
		Reached:       s.reached,
		Setup:         s.Setup(),
		ProvinceCount: len(s.svg.ProvincePaths),
		Provinces:     make([]ProvinceView, 0, len(s.provinces)),
		Coasts:        make([]CoastView, 0, len(s.coasts)),
		Labels:        []LabelView{},
		Isolated:      []string{},
		Issues:        []*ExportError{},
	}
	if s.reached == StageVisualEditor {
		if issues := s.issues(); issues != nil {
			v.Issues = issues
		}
	}
	for _, p := range s.provinces {
		v.Provinces = append(v.Provinces, ProvinceView{
			Key:          p.key,
			ElementID:    p.source.ElementID,
			Excluded:     p.excluded,
			ID:           p.id,
			Name:         p.name,
			Type:         p.typ,
			PathEdited:   p.path.IsOverridden(),
			HomeNation:   p.homeNation,
			SupplyCenter: p.supplyCenter,
			StartingUnit: p.startingUnit,
		})
	}
	for _, c := range s.coasts {
		v.Coasts = append(v.Coasts, CoastView{Key: c.key, ElementID: c.source.ElementID, ID: c.id, Name: c.name, Parent: c.parent})
	}
	if s.entered[StageTextAssociation] {
		for i, te := range s.svg.TextElements {
			method := s.assoc[i].Method
			if method == "" {
				method = labels.MethodNone
			}
			v.Labels = append(v.Labels, LabelView{Index: i, Content: te.Content, Owner: s.labels[i], Method: method})
		}
	}
	v.AddedEdges, v.RemovedEdges = s.diff.Sorted()
	v.Isolated = sortedKeys(s.isolated)
	v.Draft = s.assemble()
	return v
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, ok := range m {
		if ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
