package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/practisage/medassist/config"
	"github.com/practisage/medassist/internal/ingest"
	"github.com/practisage/medassist/internal/tagging"
	"github.com/practisage/medassist/internal/vectorstore"
	"github.com/practisage/medassist/provider"
)

func ingestCMD() *cobra.Command {
	var cfgPath string
	var dataDir string

	var cmd = &cobra.Command{
		Use:       "ingest [generate|show]",
		Short:     "Rebuild the knowledge base or list its records",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"generate", "show"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := cmd.Context()

			llm, err := provider.NewProvider(provider.OpenAI, cfg.Providers.OpenAI)
			if err != nil {
				return err
			}
			store, err := vectorstore.NewQdrantStore(cfg.Qdrant)
			if err != nil {
				return err
			}
			logger := log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
			tags := tagging.NewGenerator(llm, cfg.Providers.OpenAI.TaggingModel, logger)
			ing := ingest.NewIngestor(store, llm, tags, cfg, logger)

			switch args[0] {
			case "generate":
				if dataDir == "" {
					dataDir = cfg.Ingest.DataDir
				}
				if err := ing.Rebuild(ctx); err != nil {
					return fmt.Errorf("rebuilding collection: %w", err)
				}
				report, err := ing.Run(ctx, dataDir)
				if err != nil {
					return err
				}
				for _, s := range report.Skipped {
					if s.ChunkIndex < 0 {
						fmt.Printf("skipped document %s: %s\n", s.SourceFile, s.Reason)
					} else {
						fmt.Printf("skipped chunk %d of %s: %s\n", s.ChunkIndex, s.SourceFile, s.Reason)
					}
				}
				fmt.Printf("ingested %d record(s), skipped %d\n", report.Succeeded, len(report.Skipped))
			case "show":
				points, err := ing.List(ctx)
				if err != nil {
					return err
				}
				for _, p := range points {
					m := p.Payload.Metadata
					fmt.Printf("[%d] %s/%s chunk %d/%d\n", p.ID, m.Procedure, m.Type, m.ChunkIndex, m.TotalChunks)
					fmt.Printf("  consistent: %s\n", strings.Join(m.ConsistentTags, ", "))
					fmt.Printf("  specific:   %s\n", strings.Join(m.SpecificTags, ", "))
					fmt.Printf("  %s\n", p.Payload.Text)
				}
				fmt.Printf("total records: %d\n", len(points))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "markdown source directory (default from config)")
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return cmd
}
