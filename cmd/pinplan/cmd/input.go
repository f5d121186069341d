package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenTraceLab/pinplan/pkg/board"
	"github.com/OpenTraceLab/pinplan/pkg/requirement"
)

func loadBoard(path string) (*board.Board, error) {
	if path == "" {
		return nil, fmt.Errorf("--board is required")
	}
	b, err := board.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load board: %w", err)
	}
	return b, nil
}

// loadRequirements reads a .json requirement list (bare array or
// {"requirements": [...]}) or a requirement DSL file.
func loadRequirements(path string) ([]requirement.Requirement, error) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		parser, err := requirement.NewParser()
		if err != nil {
			return nil, fmt.Errorf("failed to create parser: %w", err)
		}
		reqs, err := parser.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse requirements: %w", err)
		}
		return reqs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read requirements: %w", err)
	}
	var list requirement.List
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		err = json.Unmarshal(data, &list)
	} else {
		var doc struct {
			Requirements requirement.List `json:"requirements"`
		}
		err = json.Unmarshal(data, &doc)
		list = doc.Requirements
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse requirements: %w", err)
	}
	return list, nil
}
