package cmd_test

import (
	"path/filepath"
	"testing"

	"github.com/roamline/roamline-server/cmd"
)

var requiredFlags = []string{
	"--jwt.secret", "changeme",
	"--http.backend_url", "http://localhost:8081",
	"--http.frontend_url", "http://localhost:8082",
	"--mapbox.secret_token", "dummy",
	"--mapbox.public_token", "dummy",
}

func TestDefault(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	baseCmd := cmd.NewCommand("testing", "default")
	// Avoid port conflict
	baseCmd.SetArgs(append([]string{
		"--http.port", "8084",
		"--http.metrics.port", "8085",
		"--persistence.database.database", filepath.Join(tmp, "roamline.db"),
		"--persistence.uploads.filesystem_options.directory", tmp,
	}, requiredFlags...))
	err := baseCmd.Execute()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
