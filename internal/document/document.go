// Package document reads and writes the content file that holds the named
// blocks. A Document is read in full, checked against its configured
// encoding before anything parses it, and written back in full with an
// atomic replace.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"azkartool/internal/fsutil"
	"azkartool/internal/logging"
)

// ErrStale means the file changed on disk between Read and Write.
var ErrStale = errors.New("document changed on disk since it was read")

// Document is the decoded content of one file.
type Document struct {
	Path     string
	Text     string
	Encoding Encoding // concrete encoding; utf-16 is resolved to le/be
	BOM      bool
	Hash     string // hex SHA-256 of the raw bytes
	Mode     fs.FileMode
	Size     int64
}

// WriteResult describes a completed Write.
type WriteResult struct {
	Path      string
	Bytes     int
	OldHash   string
	NewHash   string
	Unchanged bool
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Read loads path and decodes it with enc.
func Read(path string, enc Encoding) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("document %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	text, resolved, bom, err := Decode(data, enc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc := &Document{
		Path:     path,
		Text:     text,
		Encoding: resolved,
		BOM:      bom,
		Hash:     hashBytes(data),
		Mode:     info.Mode().Perm(),
		Size:     int64(len(data)),
	}
	logging.DocumentDebug("read %s: %d bytes, encoding=%s bom=%v sha256=%s", path, len(data), resolved, bom, doc.Hash[:12])
	return doc, nil
}

// Write replaces the file with text in the Document's encoding. It refuses
// when the file on disk no longer matches what Read saw, and does nothing
// when text equals the current content.
func (d *Document) Write(text string) (*WriteResult, error) {
	res := &WriteResult{Path: d.Path, OldHash: d.Hash, NewHash: d.Hash}
	if text == d.Text {
		res.Unchanged = true
		return res, nil
	}

	current, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, fmt.Errorf("re-read document: %w", err)
	}
	if hashBytes(current) != d.Hash {
		logging.DocumentWarn("%s changed on disk since it was read, not writing", d.Path)
		return nil, fmt.Errorf("%s: %w", d.Path, ErrStale)
	}

	data, err := Encode(text, d.Encoding, d.BOM)
	if err != nil {
		return nil, err
	}
	if err := fsutil.WriteFileAtomic(d.Path, data, d.Mode); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}

	d.Text = text
	d.Hash = hashBytes(data)
	d.Size = int64(len(data))
	res.Bytes = len(data)
	res.NewHash = d.Hash
	logging.Document("wrote %s: %d bytes sha256=%s", d.Path, len(data), d.Hash[:12])
	return res, nil
}
