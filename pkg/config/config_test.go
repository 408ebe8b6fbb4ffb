package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "alpha")
	s := sample{Port: 80}
	if err := Load(writeFile(t, "name: ${SAMPLE_NAME}\n"), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "alpha" || s.Port != 80 {
		t.Errorf("s = %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	s := sample{}
	if err := Load(writeFile(t, "name: x\n"), &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadOptional_Missing(t *testing.T) {
	s := sample{Port: 1}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &s)
	if err != nil || found {
		t.Errorf("found = %v, err = %v", found, err)
	}
	s = sample{}
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Error("defaults must still be validated")
	}
}
