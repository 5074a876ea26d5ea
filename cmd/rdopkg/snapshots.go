package main

import (
	"fmt"
	"strings"

	rerrors "github.com/jcapiitao/rdopkg/internal/errors"
	"github.com/jcapiitao/rdopkg/internal/journal"
)

// resolveSnapshotID expands a unique ID prefix, as printed by history
func resolveSnapshotID(list func() ([]journal.Snapshot, error), prefix string) (string, error) {
	snaps, err := list()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, s := range snaps {
		if s.ID == prefix {
			return s.ID, nil
		}
		if strings.HasPrefix(s.ID, prefix) {
			matches = append(matches, s.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", rerrors.SnapshotNotFound(prefix)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("snapshot prefix %q is ambiguous (%d matches)", prefix, len(matches))
}
