package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/makernet/portage/internal/logger"
)

// Entry is one child of a remote folder as reported by an ImportSource
type Entry struct {
	ID   string
	Name string
	Kind NodeKind
}

// ImportSource supplies the remote operations of the import direction.
// ListChildren returns one page of a folder's children together with the
// continuation token for the next page ("" when the listing is complete);
// the engine follows continuations itself.
type ImportSource interface {
	ListChildren(ctx context.Context, folderID, pageToken string) (entries []Entry, nextPage string, err error)
	FetchFile(ctx context.Context, fileID, localPath string) error
}

// Engine runs the remote-tree sync algorithm shared by every adapter.
// Parallelism bounds concurrent sibling file transfers; values below 2 keep
// the transfer strictly sequential. Correctness does not depend on it.
type Engine struct {
	Parallelism int
}

// Import mirrors the remote tree rooted at rootID into rootPath.
//
// The algorithm runs in three passes: a breadth-first tree build that
// de-duplicates folders by remote id and records the file total, a
// materialize pass creating every directory parent-before-child, and a
// transfer pass fetching every file while committing one progress update
// per file.
func (e *Engine) Import(ctx context.Context, src ImportSource, rootID, rootPath string, progress ProgressRecorder) (*Tree, error) {
	tree, err := e.buildTree(ctx, src, rootID)
	if err != nil {
		return nil, err
	}

	if err := progress.SetTotalItems(ctx, tree.FileCount()); err != nil {
		return nil, fmt.Errorf("failed to record total items: %w", err)
	}

	if err := materialize(tree, rootPath); err != nil {
		return nil, err
	}

	if err := e.transferIn(ctx, src, tree, rootPath, progress); err != nil {
		return nil, err
	}
	return tree, nil
}

// buildTree walks the remote store breadth-first. Only unvisited remote ids
// are queued, which both prevents cycles and bounds the walk to the number
// of distinct ids.
func (e *Engine) buildTree(ctx context.Context, src ImportSource, rootID string) (*Tree, error) {
	tree := NewTree(rootID)
	queue := []*Node{tree.Root}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		folder := queue[0]
		queue = queue[1:]

		pageToken := ""
		for {
			entries, nextPage, err := src.ListChildren(ctx, folder.RemoteID, pageToken)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				node, seen := tree.register(folder, entry)
				if seen {
					continue
				}
				if node.Kind == KindFolder {
					queue = append(queue, node)
				}
			}
			if nextPage == "" {
				break
			}
			pageToken = nextPage
		}
	}
	return tree, nil
}

// materialize creates every folder's local directory, parents before
// children, so file transfers can assume their target directory exists.
func materialize(tree *Tree, rootPath string) error {
	var err error
	tree.Walk(func(n *Node) {
		if err != nil || n.Kind != KindFolder {
			return
		}
		if mkErr := os.MkdirAll(localPath(rootPath, n), 0o755); mkErr != nil {
			err = fmt.Errorf("failed to create directory for %s: %w", n.RelPath, mkErr)
		}
	})
	return err
}

func (e *Engine) transferIn(ctx context.Context, src ImportSource, tree *Tree, rootPath string, progress ProgressRecorder) error {
	group, groupCtx := errgroup.WithContext(ctx)
	limit := e.Parallelism
	if limit < 1 {
		limit = 1
	}
	group.SetLimit(limit)

	tree.Walk(func(n *Node) {
		if n.Kind != KindFile {
			return
		}
		node := n
		group.Go(func() error {
			if err := src.FetchFile(groupCtx, node.RemoteID, localPath(rootPath, node)); err != nil {
				return err
			}
			logger.Debugf("fetched file %s", node.RelPath)
			return progress.IncrementImported(groupCtx)
		})
	})
	return group.Wait()
}

func localPath(rootPath string, n *Node) string {
	if n.RelPath == "" {
		return rootPath
	}
	return filepath.Join(rootPath, filepath.FromSlash(n.RelPath))
}
