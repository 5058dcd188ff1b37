// Package export writes generated records as datasets for classifier and
// chat model training.
package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/distill/config"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/logger"
)

// Record is one generated question or conversation in its serialized form
type Record map[string]any

// Export formats
const (
	FormatJSON     = "json"
	FormatJSONL    = "jsonl"
	FormatCSV      = "csv"
	FormatAlpaca   = "alpaca"
	FormatShareGPT = "sharegpt"
)

// Mode selects how conversation records become training samples
type Mode string

const (
	// ModeIntentClassification emits one sample per labeled user turn
	ModeIntentClassification Mode = "intent-classification"
	// ModeConversation emits one sample per conversation
	ModeConversation Mode = "conversation"
)

// DefaultInstruction is the Alpaca instruction when no system prompt is given
const DefaultInstruction = "Classify the intent of the following user query."

// Options controls an export
type Options struct {
	Format       string
	SystemPrompt string // Alpaca instruction override, ShareGPT system message
	Mode         Mode   // "" = intent-classification
	Logger       *zap.SugaredLogger
}

// ParseMode validates a conversation export mode
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeIntentClassification:
		return ModeIntentClassification, nil
	case ModeConversation:
		return ModeConversation, nil
	default:
		return "", errors.WithHint(
			errors.Mark(errors.Newf("unknown export mode %q", s), errors.ErrUnsupportedFormat),
			"use intent-classification or conversation")
	}
}

// Export writes records to path in opts.Format and returns the number of
// samples written. Parent directories are created as needed.
func Export(records []Record, path string, opts Options) (int, error) {
	log := logger.OrNop(opts.Logger)
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), config.DefaultDirPermissions); err != nil {
		return 0, errors.Wrapf(err, "failed to create directory for %s", path)
	}

	var n int
	switch opts.Format {
	case FormatJSON:
		n, err = len(records), WriteJSON(path, records)
	case FormatJSONL:
		n, err = len(records), WriteJSONL(path, records)
	case FormatCSV:
		if len(records) == 0 {
			log.Warnw("No results to export", logger.FieldFile, path)
			return 0, nil
		}
		n, err = len(records), writeCSV(path, records)
	case FormatAlpaca:
		samples := ToAlpaca(records, opts.SystemPrompt, mode)
		n, err = len(samples), WriteJSON(path, samples)
	case FormatShareGPT:
		samples := ToShareGPT(records, opts.SystemPrompt, mode)
		n, err = len(samples), WriteJSON(path, samples)
	default:
		return 0, errors.WithHint(
			errors.Mark(errors.Newf("unsupported export format: %s", opts.Format), errors.ErrUnsupportedFormat),
			"use one of: json, jsonl, csv, alpaca, sharegpt")
	}
	if err != nil {
		return 0, err
	}

	log.Infow("Exported samples", logger.FieldCount, n, logger.FieldFormat, opts.Format, logger.FieldFile, path)
	return n, nil
}

// Split divides records at int(len*ratio) into train and test sets
func Split(records []Record, ratio float64) (train, test []Record) {
	idx := int(float64(len(records)) * ratio)
	idx = min(max(idx, 0), len(records))
	return records[:idx], records[idx:]
}

// SplitPaths derives "<name>_train<ext>" and "<name>_test<ext>" from path
func SplitPaths(path string) (train, test string) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + "_train" + ext, base + "_test" + ext
}

// WriteJSON writes v as indented JSON without escaping non-ASCII or HTML characters
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	if err := os.WriteFile(path, buf.Bytes(), config.DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// WriteJSONL writes one JSON document per line
func WriteJSONL[T any](path string, items []T) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, item := range items {
		if err := enc.Encode(item); err != nil {
			return errors.Wrapf(err, "failed to encode record %d", i+1)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return f.Close()
}

// ToRecords converts typed results into records through their JSON form
func ToRecords[T any](items []T) ([]Record, error) {
	records := make([]Record, len(items))
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode record %d", i+1)
		}
		if err := json.Unmarshal(data, &records[i]); err != nil {
			return nil, errors.Wrapf(err, "record %d is not a JSON object", i+1)
		}
	}
	return records, nil
}

// Load reads records from a .jsonl file (one object per line) or a JSON array
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	if strings.HasSuffix(path, ".jsonl") {
		var records []Record
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			text := bytes.TrimSpace(scanner.Bytes())
			if len(text) == 0 {
				continue
			}
			var r Record
			if err := json.Unmarshal(text, &r); err != nil {
				return nil, errors.Wrapf(err, "%s:%d: invalid JSON", path, line)
			}
			records = append(records, r)
		}
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		return records, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, "%s is not a JSON array of objects", path)
	}
	return records, nil
}
