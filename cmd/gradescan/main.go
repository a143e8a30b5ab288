package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gradescan/gradescan/internal/eval"
	"github.com/gradescan/gradescan/internal/handler"
	"github.com/gradescan/gradescan/internal/keyparse"
	"github.com/gradescan/gradescan/internal/llm"
	"github.com/gradescan/gradescan/internal/ocr"
	"github.com/gradescan/gradescan/internal/pipeline"
	"github.com/gradescan/gradescan/internal/report"
	"github.com/gradescan/gradescan/internal/storage"
	"github.com/gradescan/gradescan/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gradescan",
		Short: "Automated answer-sheet grading pipeline",
	}

	grade := gradeCmd()
	root.AddCommand(grade, extractKeyCmd(), serveCmd(), exportCmd())

	// Make "grade" the default when no subcommand is given.
	root.RunE = grade.RunE

	// Register grade flags on root so bare `gradescan --key ...` still works.
	root.Flags().AddFlagSet(grade.Flags())

	return root
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade every answer sheet in a folder against an answer key",
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.StringP("key", "k", "", "Path to the answer key PDF (required)")
	f.StringP("sheets", "s", "sheets", "Folder containing scanned answer sheets")
	f.StringP("out", "o", "results", "Folder for per-student and consolidated reports")
	f.String("data", ".", "Base directory for sheet and report storage")
	f.String("db", "gradescan.db", "SQLite results database path (empty to disable)")
	addOCRFlags(f)
	addLLMFlags(f)
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func extractKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract-key",
		Short: "Parse an answer key PDF and print the structured key as JSON",
		RunE:  runExtractKey,
	}
	f := cmd.Flags()
	f.StringP("key", "k", "", "Path to the answer key PDF (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve grading over HTTP for a fixed answer key",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("key", "k", "", "Path to the answer key PDF (required)")
	addOCRFlags(f)
	addLLMFlags(f)
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export consolidated results from a past grading run",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "gradescan.db", "SQLite results database path")
	f.Int64("run", 0, "Run ID to export (0 = latest)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("format", "csv", "Output format (csv, xlsx)")
	addLogFlags(f)
	return cmd
}

func addOCRFlags(f *pflag.FlagSet) {
	f.String("ocr", "azure", "Text recognizer (azure, tesseract)")
	f.String("azure-key", "", "Azure Computer Vision API key")
	f.String("azure-endpoint", "", "Azure Computer Vision endpoint URL")
	f.String("ocr-lang", "eng", "Tesseract language")
}

func addLLMFlags(f *pflag.FlagSet) {
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Int("llm-retries", 0, "Retries of the batched grading call before heuristic fallback")
	f.Bool("heuristic-only", false, "Skip the LLM and score free-text answers with the keyword heuristic")
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
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

	v.SetEnvPrefix("GRADESCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("gradescan")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/gradescan")
	v.AddConfigPath("/etc/gradescan")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func buildRecognizer(v *viper.Viper) (ocr.Recognizer, error) {
	switch strings.ToLower(v.GetString("ocr")) {
	case "tesseract":
		t := ocr.NewTesseract()
		t.Lang = v.GetString("ocr-lang")
		return t, nil
	case "azure":
		key := v.GetString("azure-key")
		endpoint := v.GetString("azure-endpoint")
		if key == "" || endpoint == "" {
			return nil, fmt.Errorf("azure OCR requires --azure-key and --azure-endpoint")
		}
		return ocr.NewAzureClient(key, endpoint), nil
	default:
		return nil, fmt.Errorf("unknown recognizer %q", v.GetString("ocr"))
	}
}

func buildEngine(ctx context.Context, v *viper.Viper) *eval.Engine {
	if v.GetBool("heuristic-only") {
		slog.Info("LLM grading disabled, using keyword heuristic")
		return eval.New(nil)
	}

	client := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if err := client.Ping(ctx); err != nil {
		// Not fatal: every grading call degrades to the heuristic.
		slog.Warn("LLM health check failed, grading will fall back to heuristic", "error", err)
	} else {
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}
	return eval.New(client, eval.WithRetries(v.GetInt("llm-retries")))
}

func runGrade(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	answerKey, err := keyparse.ParseFile(v.GetString("key"))
	if err != nil {
		return err
	}
	slog.Info("answer key extracted",
		"questions", answerKey.Metadata.TotalQuestions,
		"total_marks", answerKey.Metadata.TotalMarks,
	)

	blobs, err := storage.NewFSStore(v.GetString("data"))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	recognizer, err := buildRecognizer(v)
	if err != nil {
		return err
	}

	proc := &pipeline.Processor{
		Key:        answerKey,
		Blobs:      blobs,
		Recognizer: recognizer,
		Engine:     buildEngine(ctx, v),
		OutPrefix:  v.GetString("out"),
	}

	if dbPath := v.GetString("db"); dbPath != "" {
		db, err := store.New(dbPath)
		if err != nil {
			return fmt.Errorf("open results database: %w", err)
		}
		defer db.Close()

		runID, err := db.CreateRun(v.GetString("key"), answerKey.Metadata.TotalMarks)
		if err != nil {
			return fmt.Errorf("create run: %w", err)
		}
		proc.Results = db
		proc.RunID = runID
	}

	// Keep the extracted key alongside the reports for reference.
	if err := writeKeyJSON(blobs, v.GetString("out"), answerKey); err != nil {
		slog.Warn("could not save extracted answer key", "error", err)
	}

	results, err := proc.Run(ctx, v.GetString("sheets"))
	if err != nil {
		return err
	}
	slog.Info("run complete", "sheets_graded", len(results))
	return nil
}

func writeKeyJSON(blobs storage.BlobStore, outPrefix string, key any) error {
	data, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return err
	}
	_, err = blobs.Put(outPrefix+"/extracted_answer_key.json", strings.NewReader(string(data)+"\n"))
	return err
}

func runExtractKey(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	answerKey, err := keyparse.ParseFile(v.GetString("key"))
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(answerKey, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal answer key: %w", err)
	}

	w, closeFn, err := openOutput(v.GetString("output"))
	if err != nil {
		return err
	}
	defer closeFn()

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	answerKey, err := keyparse.ParseFile(v.GetString("key"))
	if err != nil {
		return err
	}

	recognizer, err := buildRecognizer(v)
	if err != nil {
		return err
	}

	h := handler.New(answerKey, recognizer, buildEngine(ctx, v))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"questions", answerKey.Metadata.TotalQuestions,
		"total_marks", answerKey.Metadata.TotalMarks,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open results database: %w", err)
	}
	defer db.Close()

	runID := v.GetInt64("run")
	if runID == 0 {
		runID, err = db.LatestRunID()
		if err != nil {
			return fmt.Errorf("find latest run: %w", err)
		}
		if runID == 0 {
			return fmt.Errorf("no grading runs recorded")
		}
	}

	results, err := db.ExportRun(runID)
	if err != nil {
		return fmt.Errorf("export run %d: %w", runID, err)
	}

	w, closeFn, err := openOutput(v.GetString("output"))
	if err != nil {
		return err
	}
	defer closeFn()

	switch strings.ToLower(v.GetString("format")) {
	case "xlsx":
		return report.WriteConsolidatedXLSX(w, results)
	case "csv":
		return report.WriteConsolidatedCSV(w, results)
	default:
		return fmt.Errorf("unknown format %q", v.GetString("format"))
	}
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
