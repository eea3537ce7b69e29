package bios

import (
	"context"
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/go-tangra/go-tangra-bios/internal/scedump"
)

// DiffAgainstBackup returns a unified diff from the backup to a fresh
// export. An empty string means nothing changed.
func (s *Service) DiffAgainstBackup(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.backupAvailable {
		return "", ErrNoBackup
	}
	data, err := os.ReadFile(s.paths.Backup)
	if err != nil {
		return "", fmt.Errorf("read backup: %w", err)
	}
	current, err := s.export(ctx)
	if err != nil {
		return "", err
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(scedump.DecodeText(data)),
		B:        difflib.SplitLines(current),
		FromFile: "backup",
		ToFile:   "current",
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff settings: %w", err)
	}
	return out, nil
}
