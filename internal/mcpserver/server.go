package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all FraudLens tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("fraudlens", "1.0.0")
	client := NewFraudLensClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolScoreTransaction, h.HandleScoreTransaction)
	s.AddTool(ToolScoreBatch, h.HandleScoreBatch)
	s.AddTool(ToolGetAssessment, h.HandleGetAssessment)
	s.AddTool(ToolGetBatch, h.HandleGetBatch)
	s.AddTool(ToolGetModelMetrics, h.HandleGetModelMetrics)
	s.AddTool(ToolRetrainModel, h.HandleRetrainModel)
	s.AddTool(ToolGetFraudSummary, h.HandleGetFraudSummary)

	return s
}
