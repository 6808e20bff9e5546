package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: mcp-client <server-command> [<args>]")
		fmt.Fprintln(os.Stderr, "Example: mcp-client ./sitewatch-mcp")
		os.Exit(2)
	}

	ctx := context.Background()

	// Start the server as a subprocess
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stderr = os.Stderr
	transport := &mcp.CommandTransport{Command: cmd}

	// Create MCP client
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "sitewatch-client",
		Version: "1.0.0",
	}, nil)

	// Connect to the server
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer session.Close()

	fmt.Println("Connected to Sitewatch MCP Server!")
	fmt.Println("Available commands:")
	fmt.Println("  /tools                     - List available tools")
	fmt.Println("  /sites [min_risk]          - Site overview")
	fmt.Println("  /incidents [site] [query]  - List incidents")
	fmt.Println("  /devices <site|device>     - Device snapshots")
	fmt.Println("  /sql <select>              - Query the incident index")
	fmt.Println("  /graph <cypher>            - Execute read-only Cypher")
	fmt.Println("  /exit                      - Exit the client")
	fmt.Println("  <question>                 - Ask a question using GraphRAG")
	fmt.Println()

	// Interactive REPL
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch {
		case input == "/exit":
			fmt.Println("Goodbye!")
			return

		case input == "/tools":
			listTools(ctx, session)

		case strings.HasPrefix(input, "/sites"):
			parts := strings.Fields(input)
			args := map[string]any{}
			if len(parts) > 1 {
				n, err := strconv.Atoi(parts[1])
				if err != nil {
					fmt.Println("min_risk must be a number")
					continue
				}
				args["min_risk"] = n
			}
			callTool(ctx, session, "get_site_overview", args)

		case strings.HasPrefix(input, "/incidents"):
			parts := strings.Fields(input)
			args := map[string]any{}
			if len(parts) > 1 {
				args["site_id"] = parts[1]
			}
			if len(parts) > 2 {
				args["query"] = strings.Join(parts[2:], " ")
			}
			callTool(ctx, session, "list_incidents", args)

		case strings.HasPrefix(input, "/devices "):
			id := strings.TrimSpace(strings.TrimPrefix(input, "/devices "))
			key := "device_id"
			if strings.HasPrefix(strings.ToUpper(id), "SITE-") {
				key = "site_id"
			}
			callTool(ctx, session, "get_device_snapshots", map[string]any{key: id})

		case strings.HasPrefix(input, "/sql "):
			callTool(ctx, session, "query_incident_index", map[string]any{
				"sql": strings.TrimPrefix(input, "/sql "),
			})

		case strings.HasPrefix(input, "/graph "):
			cypher := strings.TrimPrefix(input, "/graph ")
			callTool(ctx, session, "query_graph", map[string]any{
				"cypher": cypher,
			})

		default:
			// Treat as a question for ask_sitewatch
			callTool(ctx, session, "ask_sitewatch", map[string]any{
				"question": input,
			})
		}
	}

	if err := scanner.Err(); err != nil {
		log.Printf("Scanner error: %v", err)
	}
}

func listTools(ctx context.Context, session *mcp.ClientSession) {
	fmt.Println("Available Tools:")
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			log.Printf("Error listing tools: %v", err)
			return
		}
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}
	fmt.Println()
}

func callTool(ctx context.Context, session *mcp.ClientSession, toolName string, args map[string]any) {
	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		log.Printf("Error calling tool: %v", err)
		return
	}

	printResult(result)
}

func printResult(result *mcp.CallToolResult) {
	if result.IsError {
		fmt.Printf("❌ Error: ")
	} else {
		fmt.Printf("✅ Result: ")
	}

	if result.StructuredContent != nil && !result.IsError {
		if jsonData, err := json.MarshalIndent(result.StructuredContent, "", "  "); err == nil {
			fmt.Println(string(jsonData))
			fmt.Println()
			return
		}
	}

	for _, content := range result.Content {
		switch v := content.(type) {
		case *mcp.TextContent:
			fmt.Println(v.Text)
		default:
			// Try JSON marshaling for other types
			jsonData, err := json.MarshalIndent(content, "", "  ")
			if err != nil {
				fmt.Printf("%+v\n", content)
			} else {
				fmt.Println(string(jsonData))
			}
		}
	}
	fmt.Println()
}
