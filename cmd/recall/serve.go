package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/victoriahouse/recall/convlog"
	"github.com/victoriahouse/recall/databank"
	"github.com/victoriahouse/recall/memory"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the memory store as an MCP server",
	Long: "serve runs a Model Context Protocol server over stdio (default) or\n" +
		"HTTP (SSE at /sse, streamable at /mcp) so assistants can read and\n" +
		"write memory through tools.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		server := buildMCPServer(app)
		cfg := app.Config.Serve

		switch strings.ToLower(cfg.Transport) {
		case "", "stdio":
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		case "http", "sse", "streamable":
		default:
			return fmt.Errorf("unsupported serve.transport: %s", cfg.Transport)
		}

		mux := http.NewServeMux()
		if cfg.Transport == "sse" || cfg.Transport == "http" {
			mux.Handle("/sse", mcp.NewSSEHandler(func(*http.Request) *mcp.Server { return server }, nil))
		}
		if cfg.Transport == "streamable" || cfg.Transport == "http" {
			mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil))
		}
		fmt.Printf("mcp server listening on http://%s\n", cfg.Addr)
		return http.ListenAndServe(cfg.Addr, mux)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type rememberInput struct {
	ID         string            `json:"id,omitempty"`
	Content    string            `json:"content"`
	Type       string            `json:"type,omitempty"`
	TenantID   string            `json:"tenant_id,omitempty"`
	PersonaID  string            `json:"persona_id,omitempty"`
	ProjectID  string            `json:"project_id,omitempty"`
	ContactID  string            `json:"contact_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Importance float64           `json:"importance,omitempty"`
	TTLSeconds int64             `json:"ttl_seconds,omitempty"`
}

type rememberOutput struct {
	ID string `json:"id"`
}

type searchInput struct {
	Query     string `json:"query"`
	TenantID  string `json:"tenant_id,omitempty"`
	PersonaID string `json:"persona_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	ContactID string `json:"contact_id,omitempty"`
	Type      string `json:"type,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type idInput struct {
	ID string `json:"id"`
}

type forgetOutput struct {
	Removed bool `json:"removed"`
}

type pinInput struct {
	ID     string `json:"id"`
	Pinned bool   `json:"pinned"`
}

type addEntryInput struct {
	BankID         string `json:"bank_id"`
	Content        string `json:"content"`
	Title          string `json:"title,omitempty"`
	Category       string `json:"category,omitempty"`
	AttachmentPath string `json:"attachment_path,omitempty"`
}

type bankInput struct {
	BankID string `json:"bank_id"`
}

type appendMessageInput struct {
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
}

type listMessagesInput struct {
	ConversationID string `json:"conversation_id"`
	Limit          int    `json:"limit,omitempty"`
}

func buildMCPServer(app *App) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "recall", Version: "1.0.0"}, &mcp.ServerOptions{
		Instructions: "Unified memory store. Use memory_search to retrieve, memory_remember to store; data banks hold curated notes with attachments.",
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_remember",
		Description: "Store or update a memory item",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in rememberInput) (*mcp.CallToolResult, rememberOutput, error) {
		item := memory.Item{
			ID:         in.ID,
			Content:    in.Content,
			Type:       in.Type,
			TenantID:   in.TenantID,
			PersonaID:  in.PersonaID,
			ProjectID:  in.ProjectID,
			ContactID:  in.ContactID,
			Metadata:   in.Metadata,
			Importance: in.Importance,
		}
		if in.TTLSeconds > 0 {
			ttl := in.TTLSeconds
			item.TTLSeconds = &ttl
		}
		saved, err := app.Memory.Upsert(ctx, item)
		if err != nil {
			return nil, rememberOutput{}, err
		}
		return nil, rememberOutput{ID: saved.ID}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_search",
		Description: "Search memory items; an empty query lists the most recent",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in searchInput) (*mcp.CallToolResult, []memory.SearchResult, error) {
		results, err := app.Memory.Search(ctx, memory.SearchRequest{
			Query:     in.Query,
			TenantID:  in.TenantID,
			PersonaID: in.PersonaID,
			ProjectID: in.ProjectID,
			ContactID: in.ContactID,
			Type:      in.Type,
			Limit:     in.Limit,
		})
		if err != nil {
			return nil, nil, err
		}
		for _, r := range results {
			if err := app.Memory.Touch(ctx, r.ID); err != nil {
				return nil, nil, err
			}
		}
		return nil, results, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_get",
		Description: "Fetch one memory item by id",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in idInput) (*mcp.CallToolResult, memory.Item, error) {
		item, ok, err := app.Memory.Get(ctx, in.ID)
		if err != nil {
			return nil, memory.Item{}, err
		}
		if !ok {
			return nil, memory.Item{}, fmt.Errorf("memory item %s not found", in.ID)
		}
		if err := app.Memory.Touch(ctx, in.ID); err != nil {
			return nil, memory.Item{}, err
		}
		return nil, item, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_forget",
		Description: "Delete a memory item",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in idInput) (*mcp.CallToolResult, forgetOutput, error) {
		removed, err := app.Memory.Delete(ctx, in.ID)
		if err != nil {
			return nil, forgetOutput{}, err
		}
		return nil, forgetOutput{Removed: removed}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_pin",
		Description: "Pin or unpin a memory item",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in pinInput) (*mcp.CallToolResult, forgetOutput, error) {
		if err := app.Memory.Pin(ctx, in.ID, in.Pinned); err != nil {
			return nil, forgetOutput{}, err
		}
		return nil, forgetOutput{Removed: false}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_sweep",
		Description: "Remove unpinned items whose TTL has elapsed",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, map[string]int, error) {
		removed, err := app.Memory.SweepExpired(ctx, time.Now())
		if err != nil {
			return nil, nil, err
		}
		return nil, map[string]int{"removed": removed}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_stats",
		Description: "Memory store statistics",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, memory.Stats, error) {
		st, err := app.Memory.Stats(ctx)
		return nil, st, err
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bank_list",
		Description: "List data banks",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, []databank.Bank, error) {
		banks, err := app.Banks.ListBanks(ctx)
		return nil, banks, err
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bank_get",
		Description: "Fetch a data bank with its entries",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in bankInput) (*mcp.CallToolResult, databank.Bank, error) {
		bank, ok, err := app.Banks.GetBank(ctx, in.BankID)
		if err != nil {
			return nil, databank.Bank{}, err
		}
		if !ok {
			return nil, databank.Bank{}, fmt.Errorf("data bank %s not found", in.BankID)
		}
		return nil, bank, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bank_add_entry",
		Description: "Add an entry to a data bank, optionally attaching a file",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in addEntryInput) (*mcp.CallToolResult, databank.Entry, error) {
		entry, err := app.Banks.AddEntry(ctx, in.BankID, databank.Entry{
			Title:              in.Title,
			Content:            in.Content,
			Category:           in.Category,
			AttachmentTempPath: in.AttachmentPath,
		})
		return nil, entry, err
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "conversation_append",
		Description: "Append a message to a conversation log",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in appendMessageInput) (*mcp.CallToolResult, convlog.Message, error) {
		msg, err := app.ConvLog.Append(ctx, convlog.Message{
			ConversationID: in.ConversationID,
			Role:           in.Role,
			Content:        in.Content,
		})
		return nil, msg, err
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "conversation_list",
		Description: "List a conversation's messages oldest first",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in listMessagesInput) (*mcp.CallToolResult, []convlog.Message, error) {
		msgs, err := app.ConvLog.List(ctx, in.ConversationID, in.Limit)
		return nil, msgs, err
	})

	return server
}
