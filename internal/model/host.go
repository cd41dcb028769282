package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

// HostId identifies the machine that performed an indexing attempt, used to
// scope the reconciliation loop's local-vs-remote count comparison.
type HostId string

// ComputeHostId derives a stable HostId from the machine's hostname: a
// lowercase hex SHA-256 digest truncated to 16 characters.
func ComputeHostId() (HostId, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to read hostname: %w", err)
	}
	sum := sha256.Sum256([]byte(name))
	return HostId(hex.EncodeToString(sum[:])[:16]), nil
}

// StorageRoot is an absolute path to one configured task-storage directory.
type StorageRoot string

// String implements fmt.Stringer.
func (s StorageRoot) String() string {
	return string(s)
}
