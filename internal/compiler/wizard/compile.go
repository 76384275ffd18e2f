package wizard

import (
	"fmt"
	"strings"

	"variant-compiler/internal/compiler/models"
	"variant-compiler/internal/compiler/parser"
)

// CompileRequest drives the whole wizard without interaction. Corrections
// are applied in order within the stage that owns them.
type CompileRequest struct {
	SVG         string       `json:"svg"`
	Setup       Setup        `json:"setup"`
	Corrections []Correction `json:"corrections"`
}

// Compile validates and parses req.SVG, walks every stage applying the
// matching corrections, and exports. Document problems come back as
// *parser.ValidationError or *parser.StructuralError, gate failures as
// *ExportError.
func Compile(req CompileRequest, opts Options) (*models.VariantDefinition, error) {
	parsed, err := parser.ParseSVG(strings.NewReader(req.SVG))
	if err != nil {
		return nil, err
	}
	return CompileParsed(parsed, req.Setup, req.Corrections, opts)
}

// CompileParsed is Compile for an already extracted document.
func CompileParsed(parsed *models.ParsedSvg, setup Setup, corrections []Correction, opts Options) (*models.VariantDefinition, error) {
	byStage := make(map[Stage][]Correction)
	for i, c := range corrections {
		st, ok := c.Op.Stage()
		if !ok {
			return nil, fmt.Errorf("correction %d: %w: %q", i, ErrUnknownCorrection, c.Op)
		}
		if st == StageSetup {
			return nil, fmt.Errorf("correction %d: %w: setup is passed separately", i, ErrInvalidValue)
		}
		byStage[st] = append(byStage[st], c)
	}

	s := NewSession(parsed, opts)
	if err := s.Apply(Correction{Op: OpSetup, Setup: &setup}); err != nil {
		return nil, err
	}
	for st := StageProvinces; st <= StageVisualEditor; st++ {
		if err := s.GoTo(st); err != nil {
			return nil, err
		}
		for _, c := range byStage[st] {
			if err := s.Apply(c); err != nil {
				return nil, err
			}
		}
	}
	return s.Export()
}
