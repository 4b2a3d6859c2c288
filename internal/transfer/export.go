package transfer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/makernet/portage/internal/logger"
)

// FileInfo describes one local file being exported
type FileInfo struct {
	Name    string
	RelPath string
	Size    int64
	// Fingerprint is the git blob hash of the file's bytes, used as the
	// provider's idempotency key
	Fingerprint string
}

// FileTicket is the provider's handle for one file creation. An empty
// UploadURL means the provider already holds content with the same
// fingerprint: the byte upload is skipped but the file is still registered.
type FileTicket struct {
	ID        string
	UploadURL string
}

// ExportTarget supplies the remote operations of the export direction.
// CreateFolder is a no-op for providers that create parent references
// implicitly on file creation. Commit represents the single terminal
// finalize for the whole batch and is invoked once, after all files.
type ExportTarget interface {
	CreateFolder(ctx context.Context, relPath string) error
	CreateFile(ctx context.Context, info FileInfo) (FileTicket, error)
	UploadContent(ctx context.Context, ticket FileTicket, localPath string) error
	FinalizeFile(ctx context.Context, ticket FileTicket, info FileInfo) error
	Commit(ctx context.Context) error
}

// Export mirrors the local tree under rootPath into the remote destination.
// Directories are visited before their contents; git metadata directories
// are not exported.
func (e *Engine) Export(ctx context.Context, dst ExportTarget, rootPath string, progress ProgressRecorder) error {
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == rootPath {
			return nil
		}

		rel, err := filepath.Rel(rootPath, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return dst.CreateFolder(ctx, rel)
		}

		return e.exportFile(ctx, dst, path, rel, progress)
	})
	if err != nil {
		return err
	}
	return dst.Commit(ctx)
}

func (e *Engine) exportFile(ctx context.Context, dst ExportTarget, path, relPath string, progress ProgressRecorder) error {
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}
	fingerprint, err := BlobFingerprint(path)
	if err != nil {
		return err
	}

	info := FileInfo{
		Name:        filepath.Base(path),
		RelPath:     relPath,
		Size:        stat.Size(),
		Fingerprint: fingerprint,
	}

	ticket, err := dst.CreateFile(ctx, info)
	if err != nil {
		return err
	}

	if ticket.UploadURL == "" {
		// Content with this fingerprint was already uploaded
		logger.Debugf("skipping upload for %s, content already present", relPath)
	} else if err := dst.UploadContent(ctx, ticket, path); err != nil {
		return err
	}

	if err := dst.FinalizeFile(ctx, ticket, info); err != nil {
		return err
	}
	return progress.IncrementExported(ctx)
}

// BlobFingerprint computes the git blob hash of the file's bytes. The same
// fingerprint a git-backed provider derives itself, so it doubles as the
// idempotency key for detecting already-uploaded content.
func BlobFingerprint(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return plumbing.ComputeHash(plumbing.BlobObject, data).String(), nil
}
