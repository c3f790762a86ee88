package ignore

import "testing"

func TestShouldIgnoreDefaults(t *testing.T) {
	m := New(t.TempDir(), nil, nil)
	cases := map[string]bool{
		".git":         true,
		".git/config":  true,
		"node_modules": true,
		"a.tmp":        true,
		".DS_Store":    true,
		"README.md":    false,
		"src/main.go":  false,
	}
	for path, want := range cases {
		if got := m.ShouldIgnore(path); got != want {
			t.Errorf("ShouldIgnore(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestIsArtifactPrefixMatch(t *testing.T) {
	m := New(t.TempDir(), nil, []string{"build", "dist/assets"})

	if !m.IsArtifact("build") {
		t.Error("expected build to be an artifact directory")
	}
	if !m.IsArtifact("build/output.bin") {
		t.Error("expected build/output.bin to be under the artifact prefix")
	}
	if !m.IsArtifact("dist/assets/logo.png") {
		t.Error("expected dist/assets/logo.png to be under the artifact prefix")
	}
	if m.IsArtifact("src/main.go") {
		t.Error("src/main.go should not be an artifact")
	}
}

func TestConfiguredExcludesAppend(t *testing.T) {
	m := New(t.TempDir(), []string{"*.secret"}, nil)
	if !m.ShouldIgnore("creds.secret") {
		t.Error("expected configured exclude pattern to apply")
	}
}
