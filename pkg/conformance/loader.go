package conformance

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultDir holds the suites shipped with the package.
const DefaultDir = "testdata"

// LoadedCase is a case together with its suite and source file.
type LoadedCase struct {
	File  string
	Suite string
	Case  Case
}

// LoadDir walks dir and loads every .yaml file in it.
func LoadDir(dir string) ([]LoadedCase, error) {
	var loaded []LoadedCase
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}
		cases, err := LoadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		for i := range cases {
			cases[i].File = rel
		}
		loaded = append(loaded, cases...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

// LoadFile parses one suite file. Unknown keys are rejected so a typo in an
// expectation cannot silently disable a check.
func LoadFile(path string) ([]LoadedCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	suite, err := parseSuite(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cases := make([]LoadedCase, 0, len(suite.Tests))
	for _, c := range suite.Tests {
		cases = append(cases, LoadedCase{File: path, Suite: suite.Name, Case: c})
	}
	return cases, nil
}

func parseSuite(data []byte) (*Suite, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var suite Suite
	if err := dec.Decode(&suite); err != nil {
		return nil, err
	}
	if suite.Name == "" {
		return nil, fmt.Errorf("suite has no name")
	}
	for i, c := range suite.Tests {
		if c.Name == "" {
			return nil, fmt.Errorf("test %d has no name", i)
		}
	}
	return &suite, nil
}
