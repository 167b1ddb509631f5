// Package export renders run artifacts: the CSV batches attached to
// handoff emails.
package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"time"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/errors"
)

// ContentType is the MIME type of every artifact this package writes.
const ContentType = "text/csv"

// OwnerRow is one lead in an owner-research batch: identity plus the
// postal address the researcher starts from.
type OwnerRow struct {
	ID      string
	Address string
	City    string
	State   string
	Zipcode string
}

var ownerHeader = []string{"id", "address", "city", "state", "zipcode"}

// OwnerFilename names a batch by its export date.
func OwnerFilename(now time.Time) string {
	return "find_owner_leads_" + now.Format("01_02_2006") + ".csv"
}

// RenderOwnerCSV renders the batch to CSV bytes, header first.
func RenderOwnerCSV(rows []OwnerRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ownerHeader); err != nil {
		return nil, errors.Wrap(err, "writing csv header")
	}
	for _, row := range rows {
		if err := w.Write([]string{row.ID, row.Address, row.City, row.State, row.Zipcode}); err != nil {
			return nil, errors.Wrap(err, "writing csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "flushing csv")
	}
	return buf.Bytes(), nil
}

// SaveOwnerCSV renders the batch and writes it under dir, creating the
// directory when needed. Returns the written path and the file content,
// so callers attach exactly the bytes they persisted.
func SaveOwnerCSV(dir string, rows []OwnerRow, now time.Time) (string, []byte, error) {
	content, err := RenderOwnerCSV(rows)
	if err != nil {
		return "", nil, err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
		return "", nil, errors.Wrapf(err, "creating export dir %s", dir)
	}
	path := filepath.Join(dir, OwnerFilename(now))
	if err := os.WriteFile(path, content, config.DefaultFilePermissions); err != nil {
		return "", nil, errors.Wrapf(err, "writing %s", path)
	}
	return path, content, nil
}
