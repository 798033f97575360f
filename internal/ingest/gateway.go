// Package ingest streams a single-file multipart upload to a temporary file
// while enforcing type and size limits.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"intakeflow/internal/pkg/apperr"
	"intakeflow/internal/pkg/logger"
)

const (
	DefaultFieldName = "file"
	maxFieldBytes    = 64 << 10
	chunkSize        = 32 << 10
)

type Options struct {
	FieldName        string
	MaxFileSize      int64
	AllowedMimeTypes map[string]bool
	TempDir          string
	// A declared Content-Length of at least TruncMinDeclared combined with at
	// most TruncMaxReceived file bytes is treated as a truncated upload.
	TruncMinDeclared int64
	TruncMaxReceived int64
}

// Upload is a file part fully materialized on disk.
type Upload struct {
	TempPath string
	Filename string
	MimeType string
	Size     int64
	Hash     string
	Fields   map[string]string
}

// Cleanup removes the temp file. It is safe to call more than once.
func (u *Upload) Cleanup() {
	if u == nil || u.TempPath == "" {
		return
	}
	_ = os.Remove(u.TempPath)
}

// Open reopens the materialized temp file for reading.
func (u *Upload) Open() (*os.File, error) {
	return os.Open(u.TempPath)
}

type Gateway struct {
	opts Options
	log  *logger.Logger
}

func NewGateway(opts Options, log *logger.Logger) *Gateway {
	if opts.FieldName == "" {
		opts.FieldName = DefaultFieldName
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Gateway{opts: opts, log: log.With("component", "IngestGateway")}
}

// diskSize reports the on-disk size of a written temp file.
var diskSize = func(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Receive consumes the request body in a single pass. On success exactly one
// temp file exists and belongs to the caller; on any error none is left behind.
func (g *Gateway) Receive(r *http.Request) (*Upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apperr.Validation(apperr.CodeValidation, "request must be multipart/form-data")
	}

	fields := make(map[string]string)
	var up *Upload

	fail := func(err error) (*Upload, error) {
		up.Cleanup()
		return nil, err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			received := int64(0)
			if up != nil {
				received = up.Size
			}
			g.log.Warn("Multipart stream ended unexpectedly", "error", err, "received", received, "content_length", r.ContentLength)
			if r.ContentLength > 0 && received < r.ContentLength {
				return fail(truncatedError(r.ContentLength, received))
			}
			return fail(apperr.Validation(apperr.CodeValidation, "malformed multipart body"))
		}

		name := part.FormName()
		if part.FileName() == "" {
			if name != "" {
				if _, seen := fields[name]; !seen {
					v, readErr := io.ReadAll(io.LimitReader(part, maxFieldBytes))
					if readErr != nil {
						_ = part.Close()
						return fail(apperr.Validation(apperr.CodeValidation, "malformed multipart body"))
					}
					fields[name] = strings.TrimSpace(string(v))
				}
			}
			drain(part)
			continue
		}

		if name != g.opts.FieldName || up != nil {
			drain(part)
			continue
		}

		mimeType := partMimeType(part)
		if !g.opts.AllowedMimeTypes[mimeType] {
			drain(part)
			return fail(apperr.Validation(apperr.CodeInvalidMimeType, fmt.Sprintf("file type %q is not allowed", mimeType)))
		}

		up, err = g.writePart(part, mimeType)
		_ = part.Close()
		if err != nil {
			return nil, err
		}
	}

	if up == nil {
		return nil, apperr.Validation(apperr.CodeNoFile, "no file provided in field \""+g.opts.FieldName+"\"")
	}
	if r.ContentLength >= g.opts.TruncMinDeclared && g.opts.TruncMinDeclared > 0 && up.Size <= g.opts.TruncMaxReceived {
		g.log.Warn("Upload looks truncated", "content_length", r.ContentLength, "received", up.Size)
		return fail(truncatedError(r.ContentLength, up.Size))
	}
	if up.Size == 0 {
		return fail(apperr.Validation(apperr.CodeValidation, "file is empty"))
	}

	up.Fields = fields
	return up, nil
}

func (g *Gateway) writePart(part *multipart.Part, mimeType string) (*Upload, error) {
	tmp, err := os.CreateTemp(g.opts.TempDir, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	up := &Upload{
		TempPath: tmp.Name(),
		Filename: part.FileName(),
		MimeType: mimeType,
	}
	abort := func(err error) (*Upload, error) {
		_ = tmp.Close()
		up.Cleanup()
		return nil, err
	}

	h := sha256.New()
	if err := g.copyCounted(tmp, h, part, &up.Size); err != nil {
		return abort(err)
	}
	if err := tmp.Sync(); err != nil {
		return abort(fmt.Errorf("sync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		up.Cleanup()
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	onDisk, err := diskSize(up.TempPath)
	if err != nil {
		up.Cleanup()
		return nil, fmt.Errorf("stat temp file: %w", err)
	}
	if onDisk != up.Size {
		g.log.Error("Upload size mismatch", "streamed", up.Size, "on_disk", onDisk, "filename", up.Filename)
		up.Cleanup()
		return nil, apperr.Validation(apperr.CodeUploadCorrupted,
			fmt.Sprintf("upload corrupted: received %d bytes but stored %d", up.Size, onDisk))
	}

	up.Hash = hex.EncodeToString(h.Sum(nil))
	return up, nil
}

func (g *Gateway) copyCounted(dst io.Writer, h hash.Hash, src io.Reader, counter *int64) error {
	buf := make([]byte, chunkSize)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			*counter += int64(n)
			if g.opts.MaxFileSize > 0 && *counter > g.opts.MaxFileSize {
				return apperr.TooLarge(fmt.Sprintf("file exceeds maximum size of %d bytes", g.opts.MaxFileSize))
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				return fmt.Errorf("write temp file: %w", err)
			}
			_, _ = h.Write(buf[:n])
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return apperr.Validation(apperr.CodeUploadTruncated, "upload stream interrupted: "+readErr.Error())
		}
	}
}

func partMimeType(part *multipart.Part) string {
	raw := part.Header.Get("Content-Type")
	if raw == "" {
		return "application/octet-stream"
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(raw, ";")[0]))
	}
	return strings.ToLower(mt)
}

func drain(part *multipart.Part) {
	_, _ = io.Copy(io.Discard, part)
	_ = part.Close()
}

func truncatedError(declared, received int64) error {
	return apperr.Validation(apperr.CodeUploadTruncated, fmt.Sprintf(
		"upload truncated: request declared %d bytes but only %d file bytes arrived; "+
			"check the body size limit of any reverse proxy in front of the API (for nginx, client_max_body_size)",
		declared, received))
}
