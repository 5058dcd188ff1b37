package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"slices"
	"strconv"

	"github.com/teranos/distill/errors"
)

// columnOrder fixes the leading CSV columns for known record shapes
var columnOrder = []string{
	"question", "intent", "intent_number", "intent_full_name", "intent_path",
	"intent_numbered_path", "intent_hierarchy", "question_index",
	"is_variation", "original_question", "variation_index",
	"conversation_id", "primary_intent", "primary_intent_number", "primary_intent_path",
	"all_intents", "num_turns", "transition_points", "turns",
	"name", "number", "full_name", "path", "numbered_path", "level",
	"timestamp",
}

// Columns returns the CSV header for r: known fields first, the rest sorted
func Columns(r Record) []string {
	var cols []string
	for _, k := range columnOrder {
		if _, ok := r[k]; ok {
			cols = append(cols, k)
		}
	}
	var rest []string
	for k := range r {
		if !slices.Contains(columnOrder, k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(cols, rest...)
}

// writeCSV takes its header from the first record. Lists and objects are
// written as JSON strings.
func writeCSV(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	cols := Columns(records[0])
	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return errors.Wrap(err, "failed to write CSV header")
	}
	row := make([]string, len(cols))
	for i, r := range records {
		for j, c := range cols {
			cell, err := csvCell(r[c])
			if err != nil {
				return errors.Wrapf(err, "record %d field %s", i+1, c)
			}
			row[j] = cell
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write record %d", i+1)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return f.Close()
}

func csvCell(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return "", err
		}
		return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
	}
}
