package graph

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// MaxCypherRows caps the rows returned by ExecuteCypher.
const MaxCypherRows = 200

var writeClause = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|LOAD\s+CSV|CALL\s+dbms|CALL\s+apoc)\b`)

// ErrWriteQuery is returned for Cypher that would modify the graph.
var ErrWriteQuery = errors.New("only read-only cypher is allowed")

// CheckReadOnly rejects queries containing write clauses.
func CheckReadOnly(query string) error {
	if writeClause.MatchString(query) {
		return ErrWriteQuery
	}
	return nil
}

// ExecuteCypher runs a read-only Cypher query and returns at most
// MaxCypherRows rows with driver types converted to plain maps.
func (c *Neo4jClient) ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error) {
	if err := CheckReadOnly(query); err != nil {
		return nil, err
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.dbName,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}

		results := []map[string]any{}
		for res.Next(ctx) && len(results) < MaxCypherRows {
			record := res.Record()
			rowMap := make(map[string]any, len(record.Keys))
			for i, key := range record.Keys {
				rowMap[key] = convertNeo4jValue(record.Values[i])
			}
			results = append(results, rowMap)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return results, nil
	})
	if err != nil {
		return nil, fmt.Errorf("cypher execution failed: %w", err)
	}

	return result.([]map[string]any), nil
}

// convertNeo4jValue converts Neo4j types to Go native types.
func convertNeo4jValue(val any) any {
	switch v := val.(type) {
	case neo4j.Node:
		return map[string]any{
			"labels":     v.Labels,
			"properties": v.Props,
			"id":         v.ElementId,
		}
	case neo4j.Relationship:
		return map[string]any{
			"type":       v.Type,
			"properties": v.Props,
			"startNode":  v.StartElementId,
			"endNode":    v.EndElementId,
		}
	case neo4j.Path:
		nodes := make([]any, len(v.Nodes))
		for i, n := range v.Nodes {
			nodes[i] = convertNeo4jValue(n)
		}
		rels := make([]any, len(v.Relationships))
		for i, r := range v.Relationships {
			rels[i] = convertNeo4jValue(r)
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = convertNeo4jValue(item)
		}
		return result
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, item := range v {
			result[k] = convertNeo4jValue(item)
		}
		return result
	default:
		return v
	}
}
