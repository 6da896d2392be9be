package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/seqtools/degbrowser/internal/errors"
	"github.com/seqtools/degbrowser/internal/validation"
)

// StageResult summarizes a staging run.
type StageResult struct {
	Copied  int
	Skipped int
}

// Stage copies primary/ and secondary/ TSV files from an analysis output
// directory into the results root, creating category subdirectories as
// needed. This is the deployment-preparation step: hosting platforms serve
// from a data directory bundled next to the binary rather than from the
// analysis tree.
//
// Files that already exist at the destination with the same size are
// skipped. A missing source directory is an error.
func Stage(src, dst string) (*StageResult, error) {
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", errors.ErrSourceDirMissing, src)
	}

	res := &StageResult{}
	for _, cat := range validation.Categories {
		srcDir := filepath.Join(src, cat)
		if _, err := os.Stat(srcDir); err != nil {
			// Category directories are individually optional.
			continue
		}

		dstDir := filepath.Join(dst, cat)
		if err := os.MkdirAll(dstDir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dstDir, err)
		}

		matches, err := filepath.Glob(filepath.Join(srcDir, "*.tsv"))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", srcDir, err)
		}

		for _, path := range matches {
			target := filepath.Join(dstDir, filepath.Base(path))
			if sameSize(path, target) {
				res.Skipped++
				continue
			}
			if err := copyFile(path, target); err != nil {
				return nil, err
			}
			res.Copied++
		}
	}
	return res, nil
}

func sameSize(src, dst string) bool {
	si, err := os.Stat(src)
	if err != nil {
		return false
	}
	di, err := os.Stat(dst)
	if err != nil {
		return false
	}
	return si.Size() == di.Size()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.CreateTemp(filepath.Dir(dst), ".stage-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", dst, err)
	}
	tmp := out.Name()

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename to %s: %w", dst, err)
	}
	return nil
}
