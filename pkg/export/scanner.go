package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/houston-tools/unityFileTools/pkg/archive"
)

// Scan walks root and returns the paths of every UnityFS archive below it,
// sorted. Files are recognized by their magic, not their name. A root that
// is itself an archive is returned alone.
func Scan(root string) ([]string, error) {
	var paths []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !info.Mode().IsRegular() || info.Size() < int64(len(archive.Magic)) {
			return nil
		}

		ok, err := isArchive(path)
		if err != nil {
			return fmt.Errorf("probe %s: %w", path, err)
		}
		if ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(paths)
	return paths, nil
}

func isArchive(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var magic [len(archive.Magic)]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return string(magic[:]) == archive.Magic, nil
}
