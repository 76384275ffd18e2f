package service

import (
	"fmt"
	"log"

	"variant-compiler/internal/common/config"
	"variant-compiler/internal/compiler/classify"
	"variant-compiler/internal/compiler/graph"
	"variant-compiler/internal/compiler/labels"
	"variant-compiler/internal/compiler/mapper"
	"variant-compiler/internal/compiler/wizard"
)

// NewOptions builds the compiler pipeline from configuration, loading the
// id mapping table when one is configured.
func NewOptions(cfg *config.Config) (wizard.Options, error) {
	ids, err := mapper.LoadIDMapperFile(cfg.IDMappingPath)
	if err != nil {
		return wizard.Options{}, fmt.Errorf("id mapping: %w", err)
	}
	if cfg.IDMappingPath != "" {
		log.Printf("[COMPILER] Loaded %d id mappings from %s", ids.Len(), cfg.IDMappingPath)
	}

	return wizard.Options{
		IDs:        ids,
		Classifier: classify.NewStyleClassifier(),
		Associator: labels.New(cfg.Compiler.LabelSearchRadius),
		Builder: graph.NewGraphBuilder(graph.Options{
			MinSharedLength: cfg.Compiler.AdjacencyMinShared,
			Tolerance:       cfg.Compiler.AdjacencyTolerance,
			Snap:            cfg.Compiler.AdjacencySnap,
		}),
	}, nil
}
