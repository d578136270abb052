package batch

import (
	"context"
	"fmt"
	"strings"

	"github.com/sdejongh/apkdiff/pkg/container"
	"github.com/sdejongh/apkdiff/pkg/format"
	"github.com/sdejongh/apkdiff/pkg/storage"
)

// Pair is one package present under the same relative path on both sides
type Pair struct {
	Name  string
	Left  string
	Right string
}

// Pairing is the result of matching two directory trees
type Pairing struct {
	Pairs     []Pair
	OnlyLeft  []string
	OnlyRight []string
}

// PairDirectories matches the packages of two trees by relative path.
// Only files with the package extension are considered; exclude patterns
// apply to the relative paths.
func PairDirectories(ctx context.Context, left, right storage.Backend, exclude []string) (*Pairing, error) {
	leftNames, err := packages(ctx, left, exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to scan left directory: %w", err)
	}
	rightNames, err := packages(ctx, right, exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to scan right directory: %w", err)
	}

	onlyLeft, onlyRight, both := container.Diff(leftNames, rightNames)
	pairing := &Pairing{OnlyLeft: onlyLeft, OnlyRight: onlyRight}
	for _, name := range both {
		l, err := left.Stat(ctx, name)
		if err != nil {
			return nil, err
		}
		r, err := right.Stat(ctx, name)
		if err != nil {
			return nil, err
		}
		pairing.Pairs = append(pairing.Pairs, Pair{Name: name, Left: l.Path, Right: r.Path})
	}
	return pairing, nil
}

func packages(ctx context.Context, b storage.Backend, exclude []string) ([]string, error) {
	members, err := b.Members(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range storage.FilterExcluded(members, exclude) {
		if strings.HasSuffix(m, format.Extension) {
			out = append(out, m)
		}
	}
	return out, nil
}
