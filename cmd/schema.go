package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"klunkaz/pkg/config"
	"klunkaz/pkg/db"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the database schema",
}

var schemaApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply pkg/db/schema.sql (or SCHEMA_PATH) to DATABASE_URL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		dbCfg := cfg.Database
		dbCfg.ApplySchema = false

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		pool, err := db.Connect(ctx, dbCfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.ApplySchema(ctx, pool, dbCfg.SchemaPath); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		log.Println("Schema is up to date")
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaApplyCmd)
}
