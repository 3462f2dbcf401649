package lifecycle

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash"
	"hash/adler32"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// fingerprint returns the hex SHA-1 of the canonical serialization of the
// create request. Two specs that would produce behaviorally identical
// containers yield identical fingerprints; any semantically relevant field
// missing from createRequest is a correctness bug, not a hash tweak.
func fingerprint(req *createRequest) (string, error) {
	canonical, err := canonicalJSON(req)
	if err != nil {
		return "", fmt.Errorf("canonicalize create request: %w", err)
	}
	return fmt.Sprintf("%x", sha1.Sum(canonical)), nil
}

// canonicalJSON produces a key-sorted serialization: marshalling, decoding
// into generic maps and re-marshalling sorts all object keys, so the result
// is independent of struct field order and map iteration order.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// hashCopiedFiles checksums every staged file's destination path, unix mode
// bits and byte content. Entries are sorted by destination path and
// directories are walked in lexical order, so the result is independent of
// declaration and filesystem ordering.
func hashCopiedFiles(files []CopyFile) (uint32, error) {
	sorted := make([]CopyFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DestPath < sorted[j].DestPath })

	sum := adler32.New()
	for _, f := range sorted {
		if _, err := sum.Write([]byte(f.DestPath)); err != nil {
			return 0, err
		}
		if err := checksumPath(f.SourcePath, sum); err != nil {
			return 0, fmt.Errorf("checksum %s: %w", f.SourcePath, err)
		}
	}
	return sum.Sum32(), nil
}

func checksumPath(path string, sum hash.Hash32) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := writeMode(sum, info.Mode()); err != nil {
		return err
	}
	if !info.IsDir() {
		return checksumFileContent(path, sum)
	}
	return filepath.WalkDir(path, func(entry string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry == path {
			return nil
		}
		entryInfo, err := d.Info()
		if err != nil {
			return err
		}
		if err := writeMode(sum, entryInfo.Mode()); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		return checksumFileContent(entry, sum)
	})
}

func writeMode(sum hash.Hash32, mode fs.FileMode) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(mode.Perm()))
	_, err := sum.Write(buf[:])
	return err
}

func checksumFileContent(path string, sum hash.Hash32) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(sum, f)
	return err
}
