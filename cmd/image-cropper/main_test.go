package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/menta2k/image-cropper/internal/utils"
)

func TestCollectInputsGivesDistinctOutputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a/photo.jpg", "b/photo.png", "photo.webp", "notes.txt"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	single := filepath.Join(dir, "a", "photo.jpg")
	inputs, err := collectInputs([]string{dir, single, "", "https://example.com/photo.jpg"})
	if err != nil {
		t.Fatalf("collectInputs() error = %v", err)
	}
	if len(inputs) != 4 {
		t.Fatalf("collectInputs() = %v, want 3 files and 1 URL", inputs)
	}

	names := utils.UniqueBaseNames(inputs)
	crops := map[string]bool{}
	for _, in := range inputs {
		crop := utils.OutputFilename(in, names[in], "out", "", "_cropped", "jpg")
		report := strings.TrimSuffix(crop, filepath.Ext(crop)) + ".json"
		if crops[crop] || crops[report] {
			t.Errorf("output for %s collides: %s", in, crop)
		}
		crops[crop] = true
		crops[report] = true
	}
}

func TestParsePair(t *testing.T) {
	p, err := parsePair(" 0.25, 1 ")
	if err != nil || p.X != 0.25 || p.Y != 1 {
		t.Errorf("parsePair() = %v, %v", p, err)
	}
	if _, err := parsePair("0.5"); err == nil {
		t.Error("expected error for missing y")
	}
}
