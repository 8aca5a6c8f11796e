package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cemetery-go/internal/cemetery"
)

// alertsFile is the wrapped form of an import file. A bare list of alerts
// is accepted as well.
type alertsFile struct {
	Alerts []*cemetery.ZombieAlert `json:"alerts" yaml:"alerts"`
}

// ReadAlertsFile decodes the alerts handed over by an external matcher.
// Files ending in .yaml or .yml are YAML; anything else is JSON.
func ReadAlertsFile(path string) ([]*cemetery.ZombieAlert, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading alerts file: %w", cemetery.ErrIO, err)
	}

	var alerts []*cemetery.ZombieAlert
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		alerts, err = decodeYAMLAlerts(data)
	default:
		alerts, err = decodeJSONAlerts(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", cemetery.ErrParse, path, err)
	}
	return alerts, nil
}

func decodeJSONAlerts(data []byte) ([]*cemetery.ZombieAlert, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var alerts []*cemetery.ZombieAlert
		if err := json.Unmarshal(trimmed, &alerts); err != nil {
			return nil, err
		}
		return alerts, nil
	}
	var file alertsFile
	if err := json.Unmarshal(trimmed, &file); err != nil {
		return nil, err
	}
	return file.Alerts, nil
}

func decodeYAMLAlerts(data []byte) ([]*cemetery.ZombieAlert, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var alerts []*cemetery.ZombieAlert
		if err := root.Decode(&alerts); err != nil {
			return nil, err
		}
		return alerts, nil
	}
	var file alertsFile
	if err := root.Decode(&file); err != nil {
		return nil, err
	}
	return file.Alerts, nil
}
