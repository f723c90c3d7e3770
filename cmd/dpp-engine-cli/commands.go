package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dpp-comply/dpp-engine/internal/assistant"
	"github.com/dpp-comply/dpp-engine/internal/compliance"
	"github.com/dpp-comply/dpp-engine/internal/corpus"
	"github.com/dpp-comply/dpp-engine/internal/insight"
	"github.com/dpp-comply/dpp-engine/internal/llm"
	"github.com/dpp-comply/dpp-engine/internal/passport"
	"github.com/dpp-comply/dpp-engine/internal/standardize"
	"github.com/dpp-comply/dpp-engine/internal/storage"
)

const version = "0.1.0"

const commandTimeout = 30 * time.Second

// engine bundles the dependencies shared by the subcommands.
type engine struct {
	db          *sql.DB
	passports   *storage.PassportRepository
	submissions *storage.RawSubmissionRepository
	entries     []corpus.Entry
	completer   llm.Completer
}

func openEngine(ctx context.Context) (*engine, error) {
	entries, err := corpus.Load(cfg.Corpus.Dir)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	var completer llm.Completer
	if cfg.AssistEnabled() {
		completer = llm.NewClient(llm.Config{
			APIKey:      cfg.Assist.OpenAI.APIKey,
			Model:       cfg.Assist.OpenAI.Model,
			BaseURL:     cfg.Assist.OpenAI.BaseURL,
			Temperature: cfg.Assist.OpenAI.Temperature,
			Timeout:     cfg.Assist.OpenAI.Timeout,
		})
	}

	return &engine{
		db:          db,
		passports:   storage.NewPassportRepository(db),
		submissions: storage.NewRawSubmissionRepository(db),
		entries:     entries,
		completer:   completer,
	}, nil
}

func (e *engine) Close() {
	e.db.Close()
}

func (e *engine) standardizer() *standardize.Standardizer {
	s := standardize.New(logger, e.entries)
	if e.completer != nil {
		s = s.WithCompleter(e.completer, cfg.Assist.OpenAI.Timeout)
	}
	return s
}

func (e *engine) generator() *insight.Generator {
	g := insight.New(logger)
	if e.completer != nil {
		g = g.WithCompleter(e.completer, cfg.Assist.OpenAI.Timeout)
	}
	return g
}

func (e *engine) assistant() *assistant.Assistant {
	a := assistant.New(logger)
	if e.completer != nil {
		a = a.WithCompleter(e.completer, cfg.Assist.OpenAI.Timeout)
	}
	return a
}

func (e *engine) loadPassport(ctx context.Context, productID string) (*passport.DigitalProductPassport, error) {
	rec, err := e.passports.GetByID(ctx, productID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("DPP not found: %s", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("load passport: %w", err)
	}

	var dpp passport.DigitalProductPassport
	if err := json.Unmarshal(rec.Document, &dpp); err != nil {
		return nil, fmt.Errorf("decode stored passport: %w", err)
	}
	return &dpp, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newProcessCmd creates the process subcommand.
func newProcessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <raw.json>",
		Short: "Process a raw supplier submission into a standardized passport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read submission: %w", err)
			}
			var raw map[string]any
			if err := json.Unmarshal(payload, &raw); err != nil {
				return fmt.Errorf("parse submission: %w", err)
			}

			eng, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.submissions.Save(ctx, &storage.RawSubmission{Payload: payload}); err != nil {
				return fmt.Errorf("store submission: %w", err)
			}

			dpp, err := eng.standardizer().Standardize(ctx, raw)
			if err != nil {
				return fmt.Errorf("standardize: %w", err)
			}

			document, err := json.Marshal(dpp)
			if err != nil {
				return fmt.Errorf("encode passport: %w", err)
			}
			if err := eng.passports.Save(ctx, &storage.PassportRecord{
				ProductID:   dpp.ProductID,
				ProductName: dpp.ProductName,
				Document:    document,
			}); err != nil {
				return fmt.Errorf("store passport: %w", err)
			}

			if outputJSON {
				return printJSON(dpp)
			}

			ui := NewUI(outputJSON, false)
			ui.Success("Processed %s", dpp.ProductID)
			ui.KeyValue("product_name", dpp.ProductName)
			ui.KeyValue("manufacturer", dpp.Manufacturer)
			ui.KeyValue("materials", len(dpp.MaterialsComposition))
			ui.KeyValue("recycled_content", fmt.Sprintf("%.1f%%", dpp.RecycledContentPercentage))
			ui.KeyValue("co2_footprint", fmt.Sprintf("%.2f kg", dpp.CO2FootprintKg))
			return nil
		},
	}
}

// newGetCmd creates the get subcommand.
func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <product-id>",
		Short: "Fetch a stored Digital Product Passport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			eng, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			dpp, err := eng.loadPassport(ctx, args[0])
			if err != nil {
				return err
			}

			if outputJSON {
				return printJSON(dpp)
			}

			ui := NewUI(outputJSON, false)
			ui.Section("Digital Product Passport")
			ui.KeyValue("product_id", dpp.ProductID)
			ui.KeyValue("product_name", dpp.ProductName)
			ui.KeyValue("manufacturer", dpp.Manufacturer)
			for _, m := range dpp.MaterialsComposition {
				ui.KeyValue("material", fmt.Sprintf("%s %v%%", m.Name, m.Percentage))
			}
			ui.KeyValue("recycled_content", fmt.Sprintf("%.1f%%", dpp.RecycledContentPercentage))
			ui.KeyValue("co2_footprint", fmt.Sprintf("%.2f kg", dpp.CO2FootprintKg))
			ui.KeyValue("repair_score", dpp.RepairScore)
			ui.KeyValue("compliance_status", dpp.ComplianceStatus)
			ui.KeyValue("references", strings.Join(dpp.ESPRArticleReferences, ", "))
			return nil
		},
	}
}

// newReportCmd creates the report subcommand.
func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <product-id>",
		Short: "Run a compliance report against a stored passport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			eng, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			dpp, err := eng.loadPassport(ctx, args[0])
			if err != nil {
				return err
			}

			report := compliance.Evaluate(dpp)
			if outputJSON {
				return printJSON(report)
			}

			ui := NewUI(outputJSON, false)
			ui.Section("Compliance Report")
			ui.KeyValue("product_id", report.ProductID)
			ui.KeyValue("status", report.Status)
			if len(report.Issues) > 0 {
				ui.Warning("Issues:")
				ui.List(report.Issues)
			}
			if len(report.Warnings) > 0 {
				ui.Info("Warnings:")
				ui.List(report.Warnings)
			}
			if len(report.Issues) == 0 && len(report.Warnings) == 0 {
				ui.Success("No issues detected")
			}
			return nil
		},
	}
}

// newInsightsCmd creates the insights subcommand.
func newInsightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insights <product-id>",
		Short: "Generate sustainability insights for a stored passport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			eng, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			dpp, err := eng.loadPassport(ctx, args[0])
			if err != nil {
				return err
			}

			out := eng.generator().Generate(ctx, dpp)
			if outputJSON {
				return printJSON(out)
			}

			ui := NewUI(outputJSON, false)
			ui.Section("Insights")
			ui.KeyValue("score", fmt.Sprintf("%.0f/100", out.Score))
			ui.Newline()
			fmt.Println(out.Summary)
			return nil
		},
	}
}

// newAskCmd creates the ask subcommand.
func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <product-id> <question...>",
		Short: "Ask a question about a stored passport",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			eng, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			dpp, err := eng.loadPassport(ctx, args[0])
			if err != nil {
				return err
			}

			question := strings.Join(args[1:], " ")
			answer := eng.assistant().Answer(ctx, dpp, question)

			if outputJSON {
				return printJSON(map[string]string{
					"product_id": args[0],
					"question":   question,
					"answer":     answer,
				})
			}

			fmt.Println(answer)
			return nil
		},
	}
}

// newCorpusCmd creates the corpus subcommand.
func newCorpusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "corpus",
		Short: "List the loaded regulatory reference corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := corpus.Load(cfg.Corpus.Dir)
			if err != nil {
				return fmt.Errorf("load corpus: %w", err)
			}

			if outputJSON {
				return printJSON(entries)
			}

			ui := NewUI(outputJSON, false)
			ui.Section("Regulatory Corpus")
			for _, e := range entries {
				text := strings.TrimSpace(e.Text)
				if len(text) > 60 {
					text = text[:60] + "..."
				}
				ui.KeyValue(e.ID, text)
			}
			return nil
		},
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputJSON {
				return printJSON(map[string]string{"version": version})
			}
			fmt.Println("dpp-engine-cli " + version)
			return nil
		},
	}
}
