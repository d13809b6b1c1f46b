// Ops is the offline backup tool for the taskdeck data directory.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskdeck/internal/ops"
)

func main() {
	root := &cobra.Command{
		Use:           "taskdeck-ops",
		Short:         "Backup and restore the taskdeck data directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newBackupCmd(), newRestoreCmd(), newDrillCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive the data directory to a tar.gz",
	}
	dataDir := cmd.Flags().String("data-dir", "data", "path to data directory")
	out := cmd.Flags().String("out", "", "output archive path (.tar.gz)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if *out == "" {
			ts := time.Now().UTC().Format("20060102T150405Z")
			*out = filepath.Join("backups", "taskdeck-"+ts+".tar.gz")
		}
		if err := ops.ArchiveDataDir(*dataDir, *out); err != nil {
			return err
		}
		fmt.Println(*out)
		return nil
	}
	return cmd
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Extract a backup archive into a target directory",
	}
	archive := cmd.Flags().String("archive", "", "input backup archive (.tar.gz)")
	target := cmd.Flags().String("target-dir", "data-restored", "restore target directory")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if *archive == "" {
			return fmt.Errorf("archive is required")
		}
		return ops.UnarchiveDataDir(*archive, *target)
	}
	return cmd
}

// drill backs up, restores and verifies digests match, so the backup path
// is known-good before it is needed.
func newDrillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drill",
		Short: "Backup, restore and verify a round trip",
	}
	dataDir := cmd.Flags().String("data-dir", "data", "path to data directory")
	workDir := cmd.Flags().String("work-dir", os.TempDir(), "temporary workspace for drill artifacts")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(*workDir, 0o755); err != nil {
			return err
		}
		ts := time.Now().UTC().Format("20060102T150405Z")
		archive := filepath.Join(*workDir, "taskdeck-drill-"+ts+".tar.gz")
		restoreDir := filepath.Join(*workDir, "taskdeck-drill-restore-"+ts)

		if err := ops.ArchiveDataDir(*dataDir, archive); err != nil {
			return err
		}
		if err := ops.UnarchiveDataDir(archive, restoreDir); err != nil {
			return err
		}

		srcDigest, err := dirDigest(*dataDir)
		if err != nil {
			return err
		}
		restoreDigest, err := dirDigest(restoreDir)
		if err != nil {
			return err
		}
		if srcDigest != restoreDigest {
			return fmt.Errorf("digest mismatch after restore: src=%s restored=%s", srcDigest, restoreDigest)
		}

		fmt.Println("backup:", archive)
		fmt.Println("restored:", restoreDir)
		fmt.Println("digest:", srcDigest)
		return nil
	}
	return cmd
}

func dirDigest(root string) (string, error) {
	root = filepath.Clean(root)
	entries := []string{}
	if err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		// Staging files are excluded from archives, so exclude them from
		// the digest as well.
		if strings.HasSuffix(d.Name(), ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, filepath.ToSlash(rel))
		return nil
	}); err != nil {
		return "", err
	}
	sort.Strings(entries)

	h := sha256.New()
	for _, rel := range entries {
		_, _ = io.WriteString(h, rel)
		_, _ = io.WriteString(h, "\n")
		b, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return "", err
		}
		if _, err := h.Write(b); err != nil {
			return "", err
		}
		_, _ = io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
