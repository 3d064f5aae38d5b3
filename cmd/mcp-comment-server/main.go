// mcp-comment-server exposes the run's tracking comment to the agent CLI as
// an MCP tool over stdio, so the agent can report progress in place.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	requiredEnv := []string{"GITHUB_TOKEN", "REPO_OWNER", "REPO_NAME", "JUNIE_COMMENT_ID"}
	for _, env := range requiredEnv {
		if os.Getenv(env) == "" {
			log.Fatalf("[MCP Comment Server] Missing required environment variable: %s", env)
		}
	}

	log.Println("[MCP Comment Server] Starting GitHub comment MCP server")
	log.Printf("[MCP Comment Server] Repository: %s/%s", os.Getenv("REPO_OWNER"), os.Getenv("REPO_NAME"))
	log.Printf("[MCP Comment Server] Comment ID: %s", os.Getenv("JUNIE_COMMENT_ID"))

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "github-comment-server",
		Version: "v1.0.0",
	}, nil)

	tool := &mcp.Tool{
		Name:        "update_junie_comment",
		Description: "Update the Junie progress comment with the latest status (works for both issue and PR comments)",
	}
	mcp.AddTool(server, tool, HandleUpdateComment)
	log.Println("[MCP Comment Server] Registered tool: update_junie_comment")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("[MCP Comment Server] Received shutdown signal")
		cancel()
	}()

	log.Println("[MCP Comment Server] Starting on stdio transport...")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("[MCP Comment Server] Server error: %v", err)
	}
	log.Println("[MCP Comment Server] Server stopped gracefully")
}
