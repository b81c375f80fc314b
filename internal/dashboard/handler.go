package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/logbookone/logbook/internal/interchange"
	"github.com/logbookone/logbook/internal/portability"
	"github.com/logbookone/logbook/internal/types"
)

// ExportCompleteData describes a finished export
type ExportCompleteData struct {
	Format     string    `json:"format"`
	Filename   string    `json:"filename"`
	Bytes      int       `json:"bytes"`
	Clients    int       `json:"clients"`
	Entries    int       `json:"entries"`
	ExportedAt time.Time `json:"exported_at"`
}

// ImportCompleteData describes a finished import
type ImportCompleteData struct {
	Format  string        `json:"format"`
	Summary types.Summary `json:"summary"`
}

// OperationFailedData describes a failed export or import
type OperationFailedData struct {
	Operation portability.Op `json:"operation"`
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
}

func newMessage(typ MessageType, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s data: %w", typ, err)
	}
	return Message{Type: typ, Timestamp: time.Now().UTC(), Data: raw}, nil
}

func (s *Server) announce(typ MessageType, data any) {
	msg, err := newMessage(typ, data)
	if err != nil {
		s.logger.Print(err)
		return
	}
	s.Broadcast(msg)
}

func (s *Server) announceFailure(op portability.Op, err error) {
	s.announce(MessageTypeOperationFailed, failure(op, err))
}

func failure(op portability.Op, err error) OperationFailedData {
	return OperationFailedData{
		Operation: op,
		Error:     err.Error(),
		Message:   types.UserMessage(err),
		Retryable: types.IsRetryable(err),
	}
}

type exportResult struct {
	art *portability.Artifact
	err error
}

// handleExport streams an export as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f := interchange.FormatJSON
	if raw := r.URL.Query().Get("format"); raw != "" {
		parsed, err := interchange.ParseFormat(raw)
		if err != nil {
			writeError(w, portability.OpExport, err)
			return
		}
		f = parsed
	}

	s.exportMu.Lock()
	defer s.exportMu.Unlock()

	done := make(chan exportResult, 1)
	err := s.engine.ExportAsync(r.Context(), f, func(art *portability.Artifact, err error) {
		if err != nil {
			s.announceFailure(portability.OpExport, err)
		} else {
			s.announce(MessageTypeExportComplete, ExportCompleteData{
				Format:     art.Format.String(),
				Filename:   art.Filename,
				Bytes:      len(art.Data),
				Clients:    art.Clients,
				Entries:    art.Entries,
				ExportedAt: art.ExportedAt,
			})
		}
		done <- exportResult{art, err}
	})
	if err != nil {
		writeError(w, portability.OpExport, err)
		return
	}

	res := <-done
	if res.err != nil {
		writeError(w, portability.OpExport, res.err)
		return
	}

	w.Header().Set("Content-Type", res.art.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.art.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.art.Data)
}

type importResult struct {
	summary *types.Summary
	err     error
}

// handleImport imports the request body. The format comes from the format
// query parameter, else the filename parameter's extension, else the
// Content-Type.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	f, err := requestFormat(r)
	if err != nil {
		writeError(w, portability.OpImport, err)
		return
	}

	s.importMu.Lock()
	defer s.importMu.Unlock()

	body := http.MaxBytesReader(w, r.Body, s.maxBytes)
	src := portability.ReaderSource("upload"+f.Extension(), body, 0)

	done := make(chan importResult, 1)
	err = s.engine.ImportAsync(r.Context(), src, f, func(summary *types.Summary, err error) {
		if err != nil {
			s.announceFailure(portability.OpImport, err)
		} else {
			s.announce(MessageTypeImportComplete, ImportCompleteData{Format: f.String(), Summary: *summary})
		}
		done <- importResult{summary, err}
	})
	if err != nil {
		writeError(w, portability.OpImport, err)
		return
	}

	res := <-done
	if res.err != nil {
		writeError(w, portability.OpImport, res.err)
		return
	}
	writeJSON(w, http.StatusOK, res.summary)
}

func requestFormat(r *http.Request) (interchange.Format, error) {
	q := r.URL.Query()
	if raw := q.Get("format"); raw != "" {
		return interchange.ParseFormat(raw)
	}
	if name := q.Get("filename"); name != "" {
		return interchange.FormatFromPath(name)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == interchange.FormatJSON.MIMEType():
		return interchange.FormatJSON, nil
	case mediaType == interchange.FormatCSV.MIMEType():
		return interchange.FormatCSV, nil
	case strings.TrimSpace(mediaType) == "":
		return "", fmt.Errorf("%w: no format given", types.ErrUnknownFormat)
	default:
		return "", fmt.Errorf("%w: %s", types.ErrUnknownFormat, mediaType)
	}
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, types.ErrOperationInProgress):
		return http.StatusConflict
	case errors.Is(err, types.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotRecognizedFormat), errors.Is(err, types.ErrFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrAccess):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, op portability.Op, err error) {
	writeJSON(w, statusFor(err), failure(op, err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
