package ops

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestArchiveUnarchiveDataDir_RoundTrip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	files := map[string]string{
		"taskdeck_tasks.json": `[{"id":"a","type":"basic","title":"Buy milk"}]`,
		"users.json":          `{"users":{"alice":{"id":"u1","username":"alice"}}}`,
	}
	for rel, content := range files {
		path := filepath.Join(src, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir parent %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	if err := ArchiveDataDir(src, archive); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if _, err := os.Stat(archive); err != nil {
		t.Fatalf("archive missing: %v", err)
	}

	restoreDir := filepath.Join(t.TempDir(), "restore")
	if err := UnarchiveDataDir(archive, restoreDir); err != nil {
		t.Fatalf("unarchive failed: %v", err)
	}

	got := map[string]string{}
	err := filepath.WalkDir(restoreDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(restoreDir, path)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		got[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walk restore dir: %v", err)
	}

	if !reflect.DeepEqual(files, got) {
		t.Fatalf("restored files mismatch:\nwant=%v\ngot=%v", files, got)
	}
}

func TestArchiveDataDir_SkipsStagingFiles(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("mkdir src: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "taskdeck_tasks.json"), []byte("[]"), 0o644); err != nil {
		t.Fatalf("write tasks: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "taskdeck_tasks.json.tmp"), []byte("half-written"), 0o644); err != nil {
		t.Fatalf("write tmp: %v", err)
	}

	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	if err := ArchiveDataDir(src, archive); err != nil {
		t.Fatalf("archive failed: %v", err)
	}

	restoreDir := filepath.Join(t.TempDir(), "restore")
	if err := UnarchiveDataDir(archive, restoreDir); err != nil {
		t.Fatalf("unarchive failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(restoreDir, "taskdeck_tasks.json")); err != nil {
		t.Fatalf("tasks file missing after restore: %v", err)
	}
	if _, err := os.Stat(filepath.Join(restoreDir, "taskdeck_tasks.json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("staging file should not be archived: %v", err)
	}
}

func TestArchiveDataDir_SkipsSymlinks(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("mkdir src: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "real.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write real.json: %v", err)
	}
	if err := os.Symlink("/etc/hosts", filepath.Join(src, "hosts")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	if err := ArchiveDataDir(src, archive); err != nil {
		t.Fatalf("archive failed: %v", err)
	}

	restoreDir := filepath.Join(t.TempDir(), "restore")
	if err := UnarchiveDataDir(archive, restoreDir); err != nil {
		t.Fatalf("unarchive failed: %v", err)
	}
	if _, err := os.Lstat(filepath.Join(restoreDir, "hosts")); !os.IsNotExist(err) {
		t.Fatalf("symlink should not survive the round trip: %v", err)
	}
	if _, err := os.Stat(filepath.Join(restoreDir, "real.json")); err != nil {
		t.Fatalf("regular file missing after restore: %v", err)
	}
}

func TestUnarchiveDataDir_RejectsPathTraversal(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "bad.tar.gz")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{
		Name:     "../escape.txt",
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len("bad")),
	}); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := tw.Write([]byte("bad")); err != nil {
		t.Fatalf("write body: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	if err := UnarchiveDataDir(archive, filepath.Join(t.TempDir(), "out")); err == nil {
		t.Fatalf("expected unarchive to reject path traversal archive")
	}
}

func TestArchiveDataDir_RequiresExistingDir(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	if err := ArchiveDataDir(filepath.Join(t.TempDir(), "missing"), archive); err == nil {
		t.Fatalf("expected error for missing source dir")
	}
}
