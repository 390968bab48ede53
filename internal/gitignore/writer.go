package gitignore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/rs/zerolog"

	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/logging"
)

// ErrInvalidTarget is returned for an operation whose target is not a
// .gitignore file
var ErrInvalidTarget = errors.New("target is not a .gitignore file")

// Result describes an applied operation
type Result struct {
	Operation Operation
	// Created is true when the file did not exist before the operation
	Created bool
	// BytesWritten counts the separator and the template content
	BytesWritten int64
}

// Writer applies operations to files of a project filesystem
type Writer struct {
	fs       billy.Filesystem
	provider Provider
	logger   zerolog.Logger
}

// NewWriter creates a writer fetching template content from provider
func NewWriter(fs billy.Filesystem, provider Provider) *Writer {
	return &Writer{
		fs:       fs,
		provider: provider,
		logger:   logging.GetLogger("writer"),
	}
}

// Apply writes the template of op into its target.
//
// Overwrite and an append to a missing file leave exactly the template
// content. An append to an existing file keeps its bytes and adds a newline
// followed by the template content. The template is fetched before the
// target is opened, so a failed download leaves the target untouched. When
// writing fails after the file was created, the file is removed again.
func (w *Writer) Apply(ctx context.Context, op Operation) (*Result, error) {
	if path.Base(op.Target) != FileName {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, op.Target)
	}
	if op.Type != Append && op.Type != Overwrite {
		return nil, fmt.Errorf("unsupported operation %s", op.Type)
	}

	content, err := FetchContent(ctx, w.provider, op.Template)
	if err != nil {
		return nil, fmt.Errorf("failed to download template %s: %w", op.Template.Name, err)
	}

	existed, err := w.exists(op.Target)
	if err != nil {
		return nil, err
	}

	appending := op.Type == Append && existed

	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appending {
		flag = os.O_WRONLY
	}

	file, err := w.fs.OpenFile(op.Target, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", op.Target, err)
	}

	result := &Result{Operation: op, Created: !existed}

	n, err := w.write(file, op.Target, content, appending)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", op.Target, closeErr)
	}

	if err != nil {
		if result.Created {
			w.rollback(op.Target)
		}
		return nil, err
	}

	result.BytesWritten = n
	w.logger.Debug().
		Str("template", op.Template.Name).
		Str("target", op.Target).
		Stringer("operation", op.Type).
		Bool("created", result.Created).
		Int64("bytes", n).
		Msg("Applied template")

	return result, nil
}

func (w *Writer) write(file billy.File, target string, content []byte, appending bool) (int64, error) {
	var written int64

	if appending {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			return 0, fmt.Errorf("failed to seek to the end of %s: %w", target, err)
		}
		n, err := file.Write([]byte{'\n'})
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("failed to write %s: %w", target, err)
		}
	}

	n, err := file.Write(content)
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("failed to write %s: %w", target, err)
	}

	return written, nil
}

func (w *Writer) exists(target string) (bool, error) {
	_, err := w.fs.Stat(target)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat %s: %w", target, err)
	}
}

func (w *Writer) rollback(target string) {
	if err := w.fs.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn().Err(err).Str("target", target).Msg("Failed to remove partially written file")
		return
	}
	w.logger.Debug().Str("target", target).Msg("Removed partially written file")
}
