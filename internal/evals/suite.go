package evals

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jlov7/Switchboard/pkg/switchboard"
)

// Task is one routed action in an eval suite. Request mirrors the body of
// POST /route; Expect is an optional CEL expression over {status, outcome,
// payload} that decides whether the observed result passes.
type Task struct {
	Name    string         `yaml:"name" json:"name"`
	Request map[string]any `yaml:"request" json:"request"`
	Expect  string         `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// ActionRequest converts the raw request mapping into the typed client
// request.
func (t Task) ActionRequest() (switchboard.ActionRequest, error) {
	var req switchboard.ActionRequest
	raw, err := json.Marshal(t.Request)
	if err != nil {
		return req, fmt.Errorf("failed to encode request: %w", err)
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("failed to decode request: %w", err)
	}
	return req, nil
}

type suiteFile struct {
	Tasks []Task `yaml:"tasks"`
}

// LoadSuite reads a YAML suite file with a top-level tasks list.
func LoadSuite(path string) ([]Task, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite %s: %w", path, err)
	}

	var suite suiteFile
	if err := yaml.Unmarshal(raw, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse suite %s: %w", path, err)
	}

	if err := validateTasks(suite.Tasks); err != nil {
		return nil, fmt.Errorf("suite %s: %w", path, err)
	}
	return suite.Tasks, nil
}

// LoadDataset reads extra tasks to append to a suite. YAML files use the
// suite format; anything else is treated as JSONL with one task per line.
func LoadDataset(path string) ([]Task, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return LoadSuite(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer file.Close()

	var tasks []Task
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var task Task
		if err := json.Unmarshal([]byte(text), &task); err != nil {
			return nil, fmt.Errorf("dataset %s line %d: %w", path, line, err)
		}
		tasks = append(tasks, task)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}

	if err := validateTasks(tasks); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return tasks, nil
}

func validateTasks(tasks []Task) error {
	for i, task := range tasks {
		if task.Name == "" {
			return fmt.Errorf("task %d: name is required", i)
		}
		if len(task.Request) == 0 {
			return fmt.Errorf("task %q: request is required", task.Name)
		}
	}
	return nil
}
