// Package export serializes analysis batches into the search-index bulk
// format and computes run summary statistics.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gitpulse/gitpulse/internal/extract"
)

// BulkFileName is the bulk export artifact written into the output directory.
const BulkFileName = "commits-bulk.json"

// filePerm is the permission for written export artifacts.
const filePerm = 0o644

// indexAction is the action line preceding each document in the bulk stream.
type indexAction struct {
	Index indexTarget `json:"index"`
}

// indexTarget names the destination index and the explicit document id.
type indexTarget struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// DocumentID returns the stable, idempotent re-upload key for a record.
func DocumentID(record extract.CommitRecord) string {
	return record.Repository + "_" + record.CommitID
}

// WriteBulk streams newline-delimited action/document pairs for every record.
// The upload itself is an external collaborator; this only produces the file
// it consumes.
func WriteBulk(w io.Writer, records []extract.CommitRecord, indexName string) error {
	encoder := json.NewEncoder(w)

	for _, record := range records {
		action := indexAction{Index: indexTarget{Index: indexName, ID: DocumentID(record)}}

		err := encoder.Encode(action)
		if err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}

		err = encoder.Encode(record)
		if err != nil {
			return fmt.Errorf("encode bulk document: %w", err)
		}
	}

	return nil
}

// WriteBulkFile writes the bulk stream into outputDir and returns the path.
func WriteBulkFile(outputDir string, records []extract.CommitRecord, indexName string) (string, error) {
	path := filepath.Join(outputDir, BulkFileName)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return "", fmt.Errorf("create bulk file: %w", err)
	}
	defer file.Close()

	err = WriteBulk(file, records, indexName)
	if err != nil {
		return "", err
	}

	return path, nil
}
