package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/victoriahouse/recall/databank"
)

var (
	bankDescription string
	entryTitle      string
	entryCategory   string
	entryTags       []string
	entryAttachment string
)

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Manage data banks of curated entries",
}

var bankCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a data bank",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		bank, err := app.Banks.CreateOrReplaceBank(cmd.Context(), databank.Bank{
			Name:        args[0],
			Description: bankDescription,
		})
		if err != nil {
			return err
		}
		fmt.Println(bank.ID)
		return nil
	},
}

var bankListCmd = &cobra.Command{
	Use:   "list",
	Short: "List data banks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		banks, err := app.Banks.ListBanks(cmd.Context())
		if err != nil {
			return err
		}
		for _, b := range banks {
			fmt.Printf("%s\t%s\t%d entries\n", b.ID, b.Name, len(b.Entries))
		}
		return nil
	},
}

var bankShowCmd = &cobra.Command{
	Use:   "show <bank-id>",
	Short: "Show a bank with its entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		bank, ok, err := app.Banks.GetBank(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("data bank %s not found", args[0])
		}
		return yaml.NewEncoder(os.Stdout).Encode(bank)
	},
}

var bankAddCmd = &cobra.Command{
	Use:   "add <bank-id> <content>",
	Short: "Add an entry, optionally attaching a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		entry := databank.Entry{
			Title:              entryTitle,
			Content:            args[1],
			Category:           entryCategory,
			Tags:               entryTags,
			AttachmentTempPath: entryAttachment,
		}
		saved, err := app.Banks.AddEntry(cmd.Context(), args[0], entry)
		if err != nil {
			return err
		}
		fmt.Println(saved.ID)
		return nil
	},
}

var bankRmEntryCmd = &cobra.Command{
	Use:   "rm-entry <bank-id> <entry-id>",
	Short: "Delete an entry and its attachment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		removed, err := app.Banks.DeleteEntry(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("entry %s not found in bank %s", args[1], args[0])
		}
		return nil
	},
}

var bankRmCmd = &cobra.Command{
	Use:   "rm <bank-id>",
	Short: "Delete a bank and its attachment folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		removed, err := app.Banks.DeleteBank(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("data bank %s not found", args[0])
		}
		return nil
	},
}

func init() {
	bankCreateCmd.Flags().StringVar(&bankDescription, "description", "", "bank description")
	bankAddCmd.Flags().StringVar(&entryTitle, "title", "", "entry title (derived from content when empty)")
	bankAddCmd.Flags().StringVar(&entryCategory, "category", "", "entry category")
	bankAddCmd.Flags().StringSliceVar(&entryTags, "tag", nil, "entry tag (repeatable)")
	bankAddCmd.Flags().StringVar(&entryAttachment, "attach", "", "file to copy into the bank as an attachment")

	bankCmd.AddCommand(bankCreateCmd, bankListCmd, bankShowCmd, bankAddCmd, bankRmEntryCmd, bankRmCmd)
	rootCmd.AddCommand(bankCmd)
}
