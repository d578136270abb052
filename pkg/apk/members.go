package apk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sdejongh/apkdiff/pkg/compare"
	"github.com/sdejongh/apkdiff/pkg/container"
	"github.com/sdejongh/apkdiff/pkg/logging"
	"github.com/sdejongh/apkdiff/pkg/models"
	"github.com/sdejongh/apkdiff/pkg/storage"
	"github.com/sdejongh/apkdiff/pkg/workspace"
)

func filterMembers(members, patterns []string) []string {
	return storage.FilterExcluded(members, patterns)
}

// compareMembers compares the members present on both sides, at most
// MaxWorkers at a time. The returned nodes follow the order of names and
// identical members are left out. The only error is a nested
// workspace.ErrAcquire.
func (c *Comparator) compareMembers(ctx context.Context, dispatch compare.Comparator, ca, cb *container.Container, names []string) ([]*models.Difference, error) {
	results := make([]*models.Difference, len(names))
	errs := make([]error, len(names))

	sem := make(chan struct{}, c.opts.MaxWorkers)
	var wg sync.WaitGroup

	for i, name := range names {
		if ctx.Err() != nil {
			break
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(slot int, name string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[slot], errs[slot] = c.compareMember(ctx, dispatch, ca, cb, name)
		}(i, name)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	nodes := make([]*models.Difference, 0, len(results))
	for _, node := range results {
		if node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// compareMember records errors and panics of the nested comparison on the
// member's node. Only workspace.ErrAcquire is returned.
func (c *Comparator) compareMember(ctx context.Context, dispatch compare.Comparator, ca, cb *container.Container, name string) (node *models.Difference, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(ctx, "member comparison panicked", fmt.Errorf("%v", r), logging.Fields{"member": name})
			node, err = failedMember(name, fmt.Sprintf("Comparison panicked: %v", r)), nil
		}
	}()

	pathA, err := ca.Materialize(name)
	if err != nil {
		return failedMember(name, fmt.Sprintf("Comparison failed: %v", err)), nil
	}
	pathB, err := cb.Materialize(name)
	if err != nil {
		return failedMember(name, fmt.Sprintf("Comparison failed: %v", err)), nil
	}

	diff, err := dispatch.Compare(ctx, compare.NewFile(pathA, name), compare.NewFile(pathB, name))
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		if errors.Is(err, workspace.ErrAcquire) {
			return nil, err
		}
		c.logger.Warn(ctx, "member comparison failed", logging.Fields{"member": name, "error": err.Error()})
		return failedMember(name, fmt.Sprintf("Comparison failed: %v", err)), nil
	}
	if diff == nil {
		return nil, nil
	}
	// Member nodes are labelled by relative path rather than workspace path
	diff.Source1, diff.Source2 = name, name
	return diff, nil
}

func failedMember(name, comment string) *models.Difference {
	node := models.NewDifference(name, name)
	node.AddComment(comment)
	return node
}
