// Package graphexport mirrors a deal hypergraph into Neo4j so analysts can
// explore entity/deal topology with graph queries.  Export is optional
// supporting infrastructure: the engine never reads the store back.
package graphexport

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/WinWin-Intelligence/internal/domain/hypergraph"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
)

// Store persists hypergraph snapshots.
type Store interface {
	// Export upserts every entity, deal, participation and dependency of g.
	// Idempotent: re-exporting the same graph rewrites the same nodes.
	Export(ctx context.Context, g *hypergraph.DealHypergraph) error

	// Close releases the underlying driver.
	Close(ctx context.Context) error
}

// StoreConfig carries Neo4j connection parameters.
type StoreConfig struct {
	// URI is the bolt/neo4j endpoint, e.g. "neo4j://localhost:7687".
	URI      string `mapstructure:"uri" json:"uri"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
	Database string `mapstructure:"database" json:"database"`
}

type neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   logging.Logger
}

// NewStore connects a Store to Neo4j.
func NewStore(cfg StoreConfig, log logging.Logger) (Store, error) {
	if cfg.URI == "" {
		return nil, errors.InvalidParam("graph export requires a neo4j URI")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExportFailed, "creating neo4j driver")
	}
	return &neo4jStore{driver: driver, database: cfg.Database, logger: log.Named("graphexport")}, nil
}

func (s *neo4jStore) Export(ctx context.Context, g *hypergraph.DealHypergraph) error {
	if g == nil {
		return errors.InvalidParam("export requires a graph")
	}
	statements := BuildStatements(g)

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		for _, stmt := range statements {
			if _, err := tx.Run(ctx, stmt.Query, stmt.Params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeExportFailed, "writing hypergraph to neo4j")
	}

	s.logger.Info("hypergraph exported",
		logging.Int("entities", g.EntityCount()),
		logging.Int("deals", g.DealCount()),
		logging.Int("statements", len(statements)))
	return nil
}

func (s *neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// Statement builders
// ─────────────────────────────────────────────────────────────────────────────

// Statement is one parameterized cypher write.
type Statement struct {
	Query  string
	Params map[string]interface{}
}

// BuildStatements renders the full MERGE sequence for g: entities first,
// then deals, then participation and dependency relationships.  Pure; unit
// tests exercise it without a live database.
func BuildStatements(g *hypergraph.DealHypergraph) []Statement {
	var out []Statement

	for _, id := range g.EntityIDs() {
		node := g.Entity(id)
		out = append(out, Statement{
			Query: `MERGE (e:Entity {id: $id})
SET e.name = $name, e.type = $type, e.time_preference = $timePreference, e.risk_preference = $riskPreference`,
			Params: map[string]interface{}{
				"id":             node.Profile.EntityID.String(),
				"name":           node.Profile.Name,
				"type":           node.Profile.Type.String(),
				"timePreference": node.Profile.TimePreference,
				"riskPreference": node.Profile.RiskPreference,
			},
		})
	}

	for _, id := range g.DealIDs() {
		deal := g.Deal(id)
		out = append(out, Statement{
			Query: `MERGE (d:Deal {id: $id})
SET d.aggregate_value = $aggregateValue, d.success_probability = $successProbability`,
			Params: map[string]interface{}{
				"id":                 deal.DealID.String(),
				"aggregateValue":     deal.AggregateValue(),
				"successProbability": deal.Risk.SuccessProbability,
			},
		})

		for _, p := range deal.Participants {
			out = append(out, Statement{
				Query: `MATCH (e:Entity {id: $entityID}), (d:Deal {id: $dealID})
MERGE (e)-[r:PARTICIPATES_IN]->(d)
SET r.value = $value`,
				Params: map[string]interface{}{
					"entityID": p.String(),
					"dealID":   deal.DealID.String(),
					"value":    deal.ResolvedValue(p),
				},
			})
		}

		for _, dep := range deal.Dependencies {
			out = append(out, Statement{
				Query: `MATCH (d:Deal {id: $dealID}), (dep:Deal {id: $depID})
MERGE (d)-[:DEPENDS_ON]->(dep)`,
				Params: map[string]interface{}{
					"dealID": deal.DealID.String(),
					"depID":  dep.String(),
				},
			})
		}
	}

	return out
}
