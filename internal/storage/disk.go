package storage

import (
	"os"
	"path/filepath"
)

// Usage is the size of a set of generated outputs.
type Usage struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// DiskUsage sums the regular files under the given paths. Each path may be a
// file or a directory. Missing paths and empty strings are skipped.
func DiskUsage(paths ...string) (Usage, error) {
	var u Usage
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Usage{}, err
		}
		if !info.IsDir() {
			u.Files++
			u.Bytes += info.Size()
			continue
		}
		err = filepath.Walk(p, func(_ string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.Mode().IsRegular() {
				u.Files++
				u.Bytes += fi.Size()
			}
			return nil
		})
		if err != nil {
			return Usage{}, err
		}
	}
	return u, nil
}
