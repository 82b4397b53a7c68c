package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tpcload/internal/admin"
	"github.com/JonMunkholm/tpcload/internal/core"
	"github.com/JonMunkholm/tpcload/internal/store"
)

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the registered tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TABLE\tFIELDS\tPRIMARY KEY")
			for _, s := range core.All() {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name(), len(s.FieldSpecs), strings.Join(s.Info.PrimaryKey, ","))
			}
			return tw.Flush()
		},
	}
}

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count [table]...",
		Short: "Print row counts (all tables by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			tables := args
			if len(tables) == 0 {
				tables = admin.LoadOrder(core.Names())
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range tables {
				n, err := app.Service.TableCount(cmd.Context(), t)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\n", t, n)
			}
			return tw.Flush()
		},
	}
}

func newTruncateCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "truncate <table>... | --all",
		Short: "Delete every row of the given tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return withCode(exitUsage, fmt.Errorf("name tables or pass --all, not both"))
			}

			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			tables := args
			if all {
				tables = core.Names()
			}
			if err := admin.ResetAll(cmd.Context(), app.Service, tables); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "truncated %s\n", strings.Join(admin.LoadOrder(tables), ", "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Truncate every registered table")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print CREATE TABLE statements for the configured driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			driver := strings.ToLower(os.Getenv("DB_DRIVER"))
			if driver == "" {
				driver = "postgres"
			}
			stmts, err := store.DDL(driver, core.All())
			if err != nil {
				return withCode(exitUsage, err)
			}
			for _, s := range stmts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", s)
			}
			return nil
		},
	}
}
