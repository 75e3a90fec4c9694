package capture

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/SinesysTech/captura/kit"
	"github.com/SinesysTech/captura/tribunal"
)

// RegisterMCP registers all capture tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerStartCapture(srv)
	s.registerCaptureStatus(srv)
	s.registerRawLogs(srv)
	s.registerListSchedules(srv)
	s.registerTriggerSchedule(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (s *Service) registerStartCapture(srv *mcp.Server) {
	type req struct {
		OperatorID    string   `json:"operator_id"`
		CredentialIDs []string `json:"credential_ids"`
		Kind          string   `json:"kind"`
	}

	tool := &mcp.Tool{
		Name:        "capture_start",
		Description: "Start a capture run over the given credentials, sequentially per court",
		InputSchema: inputSchema(map[string]any{
			"operator_id":    map[string]any{"type": "string", "description": "Operator ID owning the credentials"},
			"credential_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Credential IDs to sweep"},
			"kind":           map[string]any{"type": "string", "description": "Capture kind: docket-listing, hearings, pending-filings"},
		}, []string{"operator_id", "credential_ids"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		var filters []tribunal.CaptureRequest
		if p.Kind != "" {
			filters = []tribunal.CaptureRequest{{Kind: tribunal.CaptureKind(p.Kind)}}
		}
		runID, err := s.StartRun(ctx, p.OperatorID, p.CredentialIDs, filters)
		if err != nil {
			return nil, err
		}
		return map[string]string{"run_id": runID}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (s *Service) registerCaptureStatus(srv *mcp.Server) {
	type req struct {
		RunID string `json:"run_id"`
	}

	tool := &mcp.Tool{
		Name:        "capture_status",
		Description: "Get the summary of a capture run, including per-credential results",
		InputSchema: inputSchema(map[string]any{
			"run_id": map[string]any{"type": "string", "description": "Run ID"},
		}, []string{"run_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		run, err := s.Run(ctx, p.RunID)
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, fmt.Errorf("run %s not found", p.RunID)
		}
		return run, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (s *Service) registerRawLogs(srv *mcp.Server) {
	type req struct {
		RunID string `json:"run_id"`
	}

	tool := &mcp.Tool{
		Name:        "capture_raw_logs",
		Description: "Get the append-only forensic rows of a capture run",
		InputSchema: inputSchema(map[string]any{
			"run_id": map[string]any{"type": "string", "description": "Run ID"},
		}, []string{"run_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.RawLogs(ctx, p.RunID)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (s *Service) registerListSchedules(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "capture_list_schedules",
		Description: "List all recurring capture schedules",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Schedules(ctx)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (s *Service) registerTriggerSchedule(srv *mcp.Server) {
	type req struct {
		ScheduleID string `json:"schedule_id"`
	}

	tool := &mcp.Tool{
		Name:        "capture_trigger_schedule",
		Description: "Fire a schedule immediately, bypassing its due time",
		InputSchema: inputSchema(map[string]any{
			"schedule_id": map[string]any{"type": "string", "description": "Schedule ID"},
		}, []string{"schedule_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		runID, err := s.TriggerSchedule(ctx, p.ScheduleID)
		if err != nil {
			return nil, err
		}
		return map[string]string{"run_id": runID}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func decodeInto[T any](r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var p T
	if len(r.Params.Arguments) > 0 {
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
	}
	return &kit.MCPDecodeResult{Request: &p}, nil
}
