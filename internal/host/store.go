package host

import (
	"database/sql"
	"os"

	"github.com/rs/zerolog"

	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/errors"
	"github.com/superdoc-dev/docbridge/internal/journal"
)

// LoadDocument reads a document blob from disk. A missing or empty file is a
// fresh empty document, matching live-session behavior.
func LoadDocument(path string) (*docmodel.Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) || (err == nil && len(data) == 0) {
		return docmodel.New(), nil
	}
	if err != nil {
		return nil, errors.NewOperationFailed("load", err)
	}
	doc, err := docmodel.Import(data)
	if err != nil {
		return nil, errors.NewOperationFailed("load", err)
	}
	return doc, nil
}

// FileSaver persists a session document straight to its file, recording a
// revision when a journal is attached. It backs the engine's forced save for
// callers that run commands without a live editor session.
type FileSaver struct {
	Doc  *docmodel.Document
	Path string
	DB   *sql.DB
	Log  zerolog.Logger
}

func (s *FileSaver) SaveNow() error {
	data, err := s.Doc.Export()
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(s.Path, data); err != nil {
		return err
	}
	if s.DB != nil {
		if _, err := journal.RecordRevision(s.DB, s.Path, data); err != nil {
			s.Log.Warn().Err(err).Str("doc", s.Path).Msg("revision record failed")
		}
	}
	return nil
}
