package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sitewatch/internal/database/graph"

	"github.com/google/generative-ai-go/genai"
)

// ModelConfig defines configuration for a Gemini model.
type ModelConfig struct {
	Name        string
	Temperature float32
	TopP        float32
	TopK        int32
}

// AvailableModels defines the available Gemini models and their configurations.
var AvailableModels = map[string]ModelConfig{
	"flash": {
		Name:        "gemini-flash-latest",
		Temperature: 0.7,
		TopP:        0.95,
		TopK:        40,
	},
	"pro": {
		Name:        "gemini-pro-latest",
		Temperature: 0.7,
		TopP:        0.95,
		TopK:        40,
	},
	"flash-2": {
		Name:        "gemini-2.0-flash",
		Temperature: 0.7,
		TopP:        0.95,
		TopK:        40,
	},
	"experimental": {
		Name:        "gemini-2.0-flash-exp",
		Temperature: 0.7,
		TopP:        0.95,
		TopK:        40,
	},
}

// GraphSchema describes the graph written by graph.BuildPassStatements.
const GraphSchema = `Graph Schema:
- Nodes: Pass, Site, Device, Incident
- Relationships:
  - (Site)-[:HAS_DEVICE]->(Device)
  - (Device)-[:UPLINKS_VIA]->(Device)  // the gateway (domain GW-A or GW-M) a device reports through
  - (Incident)-[:RAISED_ON]->(Device)
  - (Incident)-[:CAUSED_BY]->(Device)  // offline gateway behind a cascaded incident

Pass properties: run_id, evaluated_at, hostname, device_count, incident_count
Site properties: site_id, name, address, risk (0-100), level ("Cao", "Trung bình", "Thấp"), offline_count, out_of_range_count, explanation
Device properties: device_id, site_id, domain (GW-A, GW-M, FACP, UPS, Fan, Pump, Door, Generator, Camera), online, updated_at
Incident properties: code (e.g. "TECH.OFFLINE.GW-M", "TECH.CASCADE.GW-M.UPS-01"), kind, domain, site_id, detail, severity ("high", "medium"), at, is_cascade`

// FallbackCypher summarises every site when a generated query fails.
const FallbackCypher = `
	MATCH (s:Site)
	OPTIONAL MATCH (s)-[:HAS_DEVICE]->(d:Device)<-[:RAISED_ON]-(i:Incident)
	OPTIONAL MATCH (i)-[:CAUSED_BY]->(g:Device)
	WITH s,
		 collect(DISTINCT {code: i.code, kind: i.kind, detail: i.detail}) AS incidents,
		 collect(DISTINCT g.device_id) AS root_causes
	RETURN s.site_id AS site,
		   s.name AS name,
		   s.risk AS risk,
		   s.level AS level,
		   s.explanation AS explanation,
		   root_causes,
		   incidents[0..10] AS incidents
	ORDER BY s.risk DESC
	LIMIT 5
`

// GraphRAGEngine handles retrieval augmented generation using graph structures.
type GraphRAGEngine struct {
	neo4jClient  graph.GraphClient
	geminiClient *genai.Client
	modelName    string
	config       ModelConfig
}

// ResolveModel maps a key of AvailableModels to its config. Any other
// non-empty value is taken as a raw model name with the flash settings.
func ResolveModel(modelKey string) ModelConfig {
	if modelKey == "" {
		return AvailableModels["flash"]
	}
	if config, ok := AvailableModels[modelKey]; ok {
		return config
	}
	config := AvailableModels["flash"]
	config.Name = modelKey
	return config
}

// NewGraphRAGEngine constructs a new engine backed by the provided graph client.
func NewGraphRAGEngine(neo4j graph.GraphClient, gemini *genai.Client, modelKey string) *GraphRAGEngine {
	config := ResolveModel(modelKey)

	return &GraphRAGEngine{
		neo4jClient:  neo4j,
		geminiClient: gemini,
		modelName:    config.Name,
		config:       config,
	}
}

// getModel returns a configured GenerativeModel instance.
func (e *GraphRAGEngine) getModel() *genai.GenerativeModel {
	model := e.geminiClient.GenerativeModel(e.modelName)
	model.SetTemperature(e.config.Temperature)
	model.SetTopP(e.config.TopP)
	model.SetTopK(e.config.TopK)
	return model
}

// Query answers question from the current pass graph.
func (e *GraphRAGEngine) Query(ctx context.Context, question string) (string, error) {
	// Step 1: Generate Cypher query using Gemini
	cypher, err := e.generateCypher(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to generate cypher: %w", err)
	}

	// Step 2: Execute query on Neo4j to retrieve relevant subgraph
	graphData, err := e.neo4jClient.ExecuteCypher(ctx, cypher)
	if err != nil || len(graphData) == 0 {
		// Fall back to a per-site summary with root causes
		graphData, err = e.neo4jClient.ExecuteCypher(ctx, FallbackCypher)
		if err != nil {
			return "", fmt.Errorf("failed to execute graph query: %w", err)
		}
	}

	// Step 3: Synthesize answer using Gemini with the graph context
	answer, err := e.synthesizeAnswer(ctx, question, graphData)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize answer: %w", err)
	}

	return answer, nil
}

// generateCypher uses Gemini to convert a natural language question into a Cypher query.
func (e *GraphRAGEngine) generateCypher(ctx context.Context, question string) (string, error) {
	model := e.getModel()

	prompt := fmt.Sprintf(`You are a Neo4j Cypher query expert. Convert the following question into a read-only Cypher query for a fire-alarm site monitoring graph.

%s

Question: %s

Return ONLY the Cypher query, no explanation. Never write to the graph. Limit results to 10.`, GraphSchema, question)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	cypher := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	// Clean up markdown code blocks if present
	cypher = cleanCypherQuery(cypher)
	if err := graph.CheckReadOnly(cypher); err != nil {
		return "", err
	}

	return cypher, nil
}

// synthesizeAnswer uses Gemini to generate a natural language answer from graph data.
func (e *GraphRAGEngine) synthesizeAnswer(ctx context.Context, question string, graphData []map[string]any) (string, error) {
	model := e.getModel()

	// Convert graph data to JSON for context
	graphJSON, err := json.MarshalIndent(graphData, "", "  ")
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`You are a fire-safety operations expert. Answer the following question based on the graph database results.
Incident kinds are Vietnamese: "Mất kết nối" (disconnected), "Cửa mở" (door open), "Vượt ngưỡng" (out of range).

Question: %s

Graph Data (from Neo4j):
%s

Provide a clear, concise answer explaining:
1. What the data shows
2. Root causes if applicable (offline gateways explain cascaded incidents)
3. Site risk and impact
4. Recommended actions if relevant

If the graph data is empty or insufficient, say so clearly.`, question, string(graphJSON))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "Unable to generate response from the available data.", nil
	}

	answer := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return answer, nil
}

// cleanCypherQuery removes markdown code blocks from Cypher queries.
func cleanCypherQuery(query string) string {
	// Remove ```cypher and ``` markers
	query = strings.TrimSpace(query)
	query = strings.TrimPrefix(query, "```cypher")
	query = strings.TrimPrefix(query, "```")
	query = strings.TrimSuffix(query, "```")
	return strings.TrimSpace(query)
}
