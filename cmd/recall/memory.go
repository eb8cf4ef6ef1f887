package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/victoriahouse/recall/memory"
)

var (
	memType       string
	memTenant     string
	memPersona    string
	memProject    string
	memContact    string
	memImportance float64
	memTTL        int64
	memID         string
	memLimit      int
)

var rememberCmd = &cobra.Command{
	Use:   "remember <content>",
	Short: "Store or update a memory item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		item := memory.Item{
			ID:         memID,
			Type:       memType,
			Content:    args[0],
			TenantID:   memTenant,
			PersonaID:  memPersona,
			ProjectID:  memProject,
			ContactID:  memContact,
			Importance: memImportance,
		}
		if memTTL > 0 {
			ttl := memTTL
			item.TTLSeconds = &ttl
		}
		saved, err := app.Memory.Upsert(cmd.Context(), item)
		if err != nil {
			return err
		}
		fmt.Println(saved.ID)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search memory; no query lists the most recent items",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		results, err := app.Memory.Search(cmd.Context(), memory.SearchRequest{
			Query:     query,
			TenantID:  memTenant,
			PersonaID: memPersona,
			ProjectID: memProject,
			ContactID: memContact,
			Type:      memType,
			Limit:     memLimit,
		})
		if err != nil {
			return err
		}
		for _, r := range results {
			if err := app.Memory.Touch(cmd.Context(), r.ID); err != nil {
				return err
			}
		}
		return yaml.NewEncoder(os.Stdout).Encode(results)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one memory item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		item, ok, err := app.Memory.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("memory item %s not found", args[0])
		}
		if err := app.Memory.Touch(cmd.Context(), item.ID); err != nil {
			return err
		}
		return yaml.NewEncoder(os.Stdout).Encode(item)
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <id>",
	Short: "Delete a memory item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		removed, err := app.Memory.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("memory item %s not found", args[0])
		}
		fmt.Println("forgotten", args[0])
		return nil
	},
}

var pinCmd = &cobra.Command{
	Use:   "pin <id>",
	Short: "Pin a memory item so retention never removes it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPinned(cmd, args[0], true)
	},
}

var unpinCmd = &cobra.Command{
	Use:   "unpin <id>",
	Short: "Unpin a memory item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPinned(cmd, args[0], false)
	},
}

func setPinned(cmd *cobra.Command, id string, pinned bool) error {
	app, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	return app.Memory.Pin(cmd.Context(), id, pinned)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove unpinned items whose TTL has elapsed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		removed, err := app.Memory.SweepExpired(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("removed %d expired items\n", removed)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory store statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		st, err := app.Memory.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return yaml.NewEncoder(os.Stdout).Encode(st)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{rememberCmd, searchCmd} {
		cmd.Flags().StringVar(&memTenant, "tenant", "", "tenant scope")
		cmd.Flags().StringVar(&memPersona, "persona", "", "persona scope")
		cmd.Flags().StringVar(&memProject, "project", "", "project scope")
		cmd.Flags().StringVar(&memContact, "contact", "", "contact scope")
		cmd.Flags().StringVar(&memType, "type", "", "item type tag")
	}
	rememberCmd.Flags().StringVar(&memID, "id", "", "item id (update an existing item)")
	rememberCmd.Flags().Float64Var(&memImportance, "importance", 1.0, "item importance")
	rememberCmd.Flags().Int64Var(&memTTL, "ttl", 0, "time to live in seconds (0 = never expires)")
	searchCmd.Flags().IntVar(&memLimit, "limit", 10, "maximum results")

	rootCmd.AddCommand(rememberCmd, searchCmd, getCmd, forgetCmd, pinCmd, unpinCmd, sweepCmd, statsCmd)
}
