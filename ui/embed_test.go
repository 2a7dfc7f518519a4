package ui

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"
)

var assetRef = regexp.MustCompile(`(?:src|href)="/(assets/[^"]+)"`)

func TestDistFS_IndexReferencesEmbeddedAssets(t *testing.T) {
	files, err := DistFS()
	if err != nil {
		t.Fatalf("DistFS: %v", err)
	}

	index, err := fs.ReadFile(files, "index.html")
	if err != nil {
		t.Fatalf("index.html not embedded: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(index)), "<!DOCTYPE html>") {
		t.Error("index.html does not start with a doctype")
	}

	refs := assetRef.FindAllStringSubmatch(string(index), -1)
	if len(refs) == 0 {
		t.Fatal("index.html references no assets")
	}
	for _, ref := range refs {
		data, err := fs.ReadFile(files, ref[1])
		if err != nil {
			t.Errorf("%s referenced by index.html is not embedded: %v", ref[1], err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", ref[1])
		}
	}
}

func TestDistFS_AppCallsCatalogAPI(t *testing.T) {
	files, err := DistFS()
	if err != nil {
		t.Fatalf("DistFS: %v", err)
	}
	app, err := fs.ReadFile(files, "assets/app.js")
	if err != nil {
		t.Fatalf("app.js not embedded: %v", err)
	}
	for _, route := range []string{"/api/login", "/api/me", "/api/catalogs"} {
		if !strings.Contains(string(app), route) {
			t.Errorf("app.js never calls %s", route)
		}
	}
}
