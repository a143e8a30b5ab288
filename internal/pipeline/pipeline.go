// Package pipeline runs the end-to-end grading flow: one answer sheet
// at a time is read from storage, recognized, parsed, scored, and
// reported before the next begins.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/gradescan/gradescan/internal/eval"
	"github.com/gradescan/gradescan/internal/model"
	"github.com/gradescan/gradescan/internal/ocr"
	"github.com/gradescan/gradescan/internal/report"
	"github.com/gradescan/gradescan/internal/storage"
	"github.com/gradescan/gradescan/internal/store"
	"github.com/gradescan/gradescan/internal/submission"
)

// sheetExts are the answer-sheet file types routed through OCR.
// Plain-text sheets are read as-is, mainly for local runs and tests.
var sheetExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".tiff": true, ".bmp": true, ".pdf": true,
}

// Processor grades every sheet under a storage prefix against one
// answer key. The key is read-only and shared across sheets.
type Processor struct {
	Key        *model.AnswerKey
	Blobs      storage.BlobStore
	Recognizer ocr.Recognizer
	Engine     *eval.Engine

	// Results is optional; when set, every evaluation is persisted
	// under RunID.
	Results *store.Store
	RunID   int64

	// OutPrefix is where per-student and consolidated reports are
	// written in the blob store.
	OutPrefix string
}

// Run grades all sheets under sheetsPrefix sequentially. A failing
// sheet is logged and skipped; the run continues with the next one.
func (p *Processor) Run(ctx context.Context, sheetsPrefix string) ([]*model.Evaluation, error) {
	keys, err := p.Blobs.List(sheetsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list answer sheets: %w", err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no answer sheets found under %q", sheetsPrefix)
	}

	var results []*model.Evaluation
	for _, key := range keys {
		ev, err := p.processSheet(ctx, key)
		if err != nil {
			slog.Error("sheet skipped", "sheet", key, "error", err)
			continue
		}
		results = append(results, ev)
		slog.Info("sheet graded",
			"sheet", key,
			"student", ev.StudentID,
			"score", ev.Summary.TotalScore,
			"possible", ev.Summary.TotalPossible,
			"percentage", ev.Summary.Percentage,
		)
	}

	if len(results) > 0 {
		if err := p.writeConsolidated(results); err != nil {
			slog.Error("consolidated report failed", "error", err)
		}
	}
	return results, nil
}

func (p *Processor) processSheet(ctx context.Context, key string) (*model.Evaluation, error) {
	base := path.Base(key)
	ext := strings.ToLower(path.Ext(base))
	studentID := strings.TrimSuffix(base, path.Ext(base))

	var text string
	switch {
	case sheetExts[ext]:
		data, err := p.readBlob(key)
		if err != nil {
			return nil, err
		}
		text, err = p.Recognizer.Recognize(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("recognize text: %w", err)
		}
	case ext == ".txt":
		data, err := p.readBlob(key)
		if err != nil {
			return nil, err
		}
		text = string(data)
	default:
		return nil, fmt.Errorf("unsupported sheet type %q", ext)
	}

	answers := submission.Parse(text)
	slog.Debug("answers extracted", "sheet", key, "count", len(answers))

	ev := p.Engine.Evaluate(ctx, p.Key, answers)
	ev.StudentID = studentID

	if err := p.writeReports(ev); err != nil {
		return nil, err
	}
	if p.Results != nil {
		if err := p.Results.SaveEvaluation(p.RunID, ev); err != nil {
			return nil, fmt.Errorf("persist evaluation: %w", err)
		}
	}
	return ev, nil
}

func (p *Processor) readBlob(key string) ([]byte, error) {
	rc, err := p.Blobs.Get(key)
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (p *Processor) writeReports(ev *model.Evaluation) error {
	var jsonBuf bytes.Buffer
	if err := report.WriteJSON(&jsonBuf, ev); err != nil {
		return err
	}
	if _, err := p.Blobs.Put(path.Join(p.OutPrefix, ev.StudentID+"_evaluation.json"), &jsonBuf); err != nil {
		return fmt.Errorf("write JSON report: %w", err)
	}

	var csvBuf bytes.Buffer
	if err := report.WriteCSV(&csvBuf, ev); err != nil {
		return err
	}
	if _, err := p.Blobs.Put(path.Join(p.OutPrefix, ev.StudentID+"_evaluation.csv"), &csvBuf); err != nil {
		return fmt.Errorf("write CSV report: %w", err)
	}
	return nil
}

func (p *Processor) writeConsolidated(results []*model.Evaluation) error {
	var csvBuf bytes.Buffer
	if err := report.WriteConsolidatedCSV(&csvBuf, results); err != nil {
		return err
	}
	if _, err := p.Blobs.Put(path.Join(p.OutPrefix, "consolidated_results.csv"), &csvBuf); err != nil {
		return err
	}

	var xlsxBuf bytes.Buffer
	if err := report.WriteConsolidatedXLSX(&xlsxBuf, results); err != nil {
		return err
	}
	_, err := p.Blobs.Put(path.Join(p.OutPrefix, "consolidated_results.xlsx"), &xlsxBuf)
	return err
}
