package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"reelsmith/internal/timeline"
	"reelsmith/internal/workflow"
)

// planDocument is the offline input for plan and frame: scenes whose audio
// and captions are already resolved.
type planDocument struct {
	FPS    int                    `yaml:"fps"`
	Config timeline.RenderConfig  `yaml:"config"`
	Scenes []timeline.SceneRecord `yaml:"scenes"`
}

// readDocument reads path, or stdin when path is "-". YAML is a superset of
// JSON so both formats decode.
func readDocument(in io.Reader, path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("input path is required (use - for stdin)")
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func readSubmitRequest(in io.Reader, path string) (workflow.SubmitRequest, error) {
	var req workflow.SubmitRequest
	if err := readDocument(in, path, &req); err != nil {
		return workflow.SubmitRequest{}, err
	}
	return req, nil
}

func readPlanDocument(in io.Reader, path string) (planDocument, error) {
	var doc planDocument
	if err := readDocument(in, path, &doc); err != nil {
		return planDocument{}, err
	}
	if len(doc.Scenes) == 0 {
		return planDocument{}, fmt.Errorf("%s: no scenes", path)
	}
	return doc, nil
}
