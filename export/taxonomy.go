package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/teranos/distill/config"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/taxonomy"
)

// WriteTaxonomy saves the tree as nested JSON, or as an indented outline
// when path ends in .txt.
func WriteTaxonomy(path string, root *taxonomy.Node) error {
	if err := os.MkdirAll(filepath.Dir(path), config.DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		text := taxonomy.ExportText(root) + "\n"
		if err := os.WriteFile(path, []byte(text), config.DefaultFilePermissions); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
		return nil
	}
	return WriteJSON(path, root.ToMapping())
}

// WriteFlatTaxonomy saves one entry per node in pre-order, as CSV when path
// ends in .csv and as a JSON array otherwise.
func WriteFlatTaxonomy(path string, root *taxonomy.Node) error {
	if err := os.MkdirAll(filepath.Dir(path), config.DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	entries := taxonomy.Flatten(root)
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return WriteJSON(path, entries)
	}
	records, err := ToRecords(entries)
	if err != nil {
		return err
	}
	return writeCSV(path, records)
}
