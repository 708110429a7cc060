package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/turtacn/WinWin-Intelligence/internal/domain/entity"
	"github.com/turtacn/WinWin-Intelligence/internal/domain/hypergraph"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
)

// GraphDocument is the JSON document consumed by the optimize command:
// stakeholder profiles plus the deals joining them.
type GraphDocument struct {
	Entities []entity.Profile           `json:"entities"`
	Deals    []hypergraph.DealHyperedge `json:"deals"`
}

// BuildGraph materializes a validated hypergraph from a document.  Stake
// components are resolved through valuator as each deal is added.
func BuildGraph(ctx context.Context, doc GraphDocument, valuator entity.Valuator, logger logging.Logger) (*hypergraph.DealHypergraph, error) {
	g, err := hypergraph.NewHypergraph(hypergraph.HypergraphConfig{
		Valuator: valuator,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	for _, profile := range doc.Entities {
		if err := g.AddEntity(profile); err != nil {
			return nil, err
		}
	}
	for _, deal := range doc.Deals {
		if err := g.AddDeal(ctx, deal); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// readDocument decodes a JSON document from path, or from stdin when path
// is "-".
func readDocument(path string, out interface{}) error {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, errors.CodeInvalidParam, "opening input document")
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return errors.Wrap(err, errors.CodeInvalidParam, "decoding input document")
	}
	return nil
}
