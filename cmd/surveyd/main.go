package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/zorasurvey/surveyd/internal/handler"
	"github.com/zorasurvey/surveyd/internal/llm"
	"github.com/zorasurvey/surveyd/internal/model"
	"github.com/zorasurvey/surveyd/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "surveyd",
		Short: "Survey collection and aggregation server",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), seedCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `surveyd --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the survey API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "", "Database connection string (required, or set SURVEYD_DB)")
	f.String("survey-config", "", "Survey definition JSON imported on startup when no active config exists")
	f.String("admin-password", "", "Initial admin password (or set SURVEYD_ADMIN_PASSWORD)")
	f.String("openai-url", "", "OpenAI-compatible API base URL for AI summaries")
	f.String("openai-key", "", "API key for AI summaries (feature disabled when empty)")
	f.String("openai-model", "gpt-4o-mini", "Model name for AI summaries")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all submissions as CSV",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "", "Database connection string (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import a survey definition JSON file as the active config",
		RunE:  runSeed,
	}
	f := cmd.Flags()
	f.String("db", "", "Database connection string (required)")
	f.StringP("file", "f", "", "Survey definition JSON file (required)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SURVEYD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("surveyd")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/surveyd")
	v.AddConfigPath("/etc/surveyd")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func openStore(v *viper.Viper) (*store.Store, error) {
	dsn := v.GetString("db")
	if dsn == "" {
		return nil, fmt.Errorf("database connection string is required: set --db flag or SURVEYD_DB env var")
	}
	db, err := store.New(dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	// The server cannot serve anything without its store; a missing
	// connection string is fatal.
	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := seedAdminPassword(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin password: %w", err)
	}

	if path := v.GetString("survey-config"); path != "" {
		if err := importSurveyConfig(db, path, false); err != nil {
			return fmt.Errorf("import survey config: %w", err)
		}
	}

	if err := db.CleanupExpiredTokens(); err != nil {
		slog.Warn("cleanup expired tokens", "error", err)
	}

	llmClient := llm.New(
		v.GetString("openai-url"),
		v.GetString("openai-key"),
		v.GetString("openai-model"),
	)
	if llmClient.Enabled() {
		if err := llmClient.Ping(context.Background()); err != nil {
			slog.Warn("AI summary endpoint unreachable, summaries will fail until it recovers", "error", err)
		} else {
			slog.Info("AI summary enabled", "model", v.GetString("openai-model"))
		}
	} else {
		slog.Info("AI summary disabled: no API key configured")
	}

	h := handler.New(db, llmClient)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(handler.CORS)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server", "addr", addr, "db", v.GetString("db"))
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.ExportRows()
	if err != nil {
		return fmt.Errorf("export submissions: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := store.WriteCSV(w, rows); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}
	slog.Info("exported submissions", "rows", len(rows))
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	return importSurveyConfig(db, v.GetString("file"), true)
}

// surveyConfigFile is the on-disk survey definition format.
type surveyConfigFile struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Sections    []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Color    string `json:"color"`
		Problems []struct {
			ID           int64    `json:"id"`
			Title        string   `json:"title"`
			QuestionType string   `json:"questionType"`
			Options      []string `json:"options"`
		} `json:"problems"`
	} `json:"sections"`
}

// importSurveyConfig loads a survey definition file into a new active
// config. On startup (force=false) an unchanged file is skipped: the file's
// sha256 is tracked in metadata so restarts do not pile up duplicate
// configs.
func importSurveyConfig(db *store.Store, path string, force bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	hash := sha256sum(data)
	if !force {
		storedHash, err := db.GetMetadata(store.MetaConfigImportHash)
		if err != nil {
			return fmt.Errorf("check import status: %w", err)
		}
		if storedHash == hash {
			slog.Info("survey config unchanged, skipping import", "path", path)
			return nil
		}
	}

	var file surveyConfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if file.Title == "" || len(file.Sections) == 0 {
		return fmt.Errorf("%s: survey config needs a title and at least one section", path)
	}

	now := time.Now().UTC()
	cfg := model.Config{
		ID:          "config-" + uuid.NewString(),
		Title:       file.Title,
		Description: file.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.CreateConfig(cfg); err != nil {
		return fmt.Errorf("create config: %w", err)
	}

	for i, sec := range file.Sections {
		sectionID := sec.ID
		if sectionID == "" {
			sectionID = uuid.NewString()
		}
		err := db.CreateSection(model.Section{
			ID:           sectionID,
			ConfigID:     cfg.ID,
			Name:         sec.Name,
			Color:        sec.Color,
			DisplayOrder: i,
		})
		if err != nil {
			return fmt.Errorf("create section %q: %w", sec.Name, err)
		}
		for j, p := range sec.Problems {
			_, err := db.CreateProblem(model.Problem{
				ID:           p.ID,
				SectionID:    sectionID,
				Title:        p.Title,
				QuestionType: model.QuestionType(p.QuestionType),
				Options:      p.Options,
				DisplayOrder: j,
			})
			if err != nil {
				return fmt.Errorf("create problem %q: %w", p.Title, err)
			}
		}
		slog.Info("imported section", "name", sec.Name, "problems", len(sec.Problems))
	}

	if err := db.SetMetadata(store.MetaConfigImportHash, hash); err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	slog.Info("imported survey config", "path", path, "config_id", cfg.ID, "sections", len(file.Sections))
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func seedAdminPassword(db *store.Store, password string) error {
	existing, err := db.GetMetadata(store.MetaAdminPasswordHash)
	if err != nil {
		return err
	}
	if existing != "" {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required on first run: set --admin-password flag or SURVEYD_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := db.SetMetadata(store.MetaAdminPasswordHash, string(hash)); err != nil {
		return err
	}

	slog.Info("seeded admin password")
	return nil
}
