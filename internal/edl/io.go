package edl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Decode parses a list from JSON. Unknown tools are rejected so a typo in an
// agent payload surfaces before compilation.
func Decode(r io.Reader) (List, error) {
	var list List
	dec := json.NewDecoder(r)
	if err := dec.Decode(&list); err != nil {
		return List{}, fmt.Errorf("decode edit decision list: %w", err)
	}
	if err := list.checkTools(); err != nil {
		return List{}, err
	}
	return list, nil
}

// Load reads a list from a JSON file.
func Load(path string) (List, error) {
	file, err := os.Open(path)
	if err != nil {
		return List{}, fmt.Errorf("open edit decision list: %w", err)
	}
	defer file.Close()
	return Decode(file)
}

// Save writes the list as indented JSON, replacing path atomically.
func Save(path string, list List) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode edit decision list: %w", err)
	}
	data = append(data, '\n')
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".edl-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write edit decision list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close edit decision list: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace edit decision list: %w", err)
	}
	return nil
}

func (l List) checkTools() error {
	var errs []error
	for i, d := range l.Decisions {
		if !d.Tool.Valid() {
			errs = append(errs, fmt.Errorf("decision %d: unknown tool %q", i, d.Tool))
			continue
		}
		if d.Type == "" {
			continue
		}
		if d.Tool.Kind() != d.Type {
			errs = append(errs, fmt.Errorf("decision %d: tool %q is not a %s tool", i, d.Tool, d.Type))
		}
	}
	return errors.Join(errs...)
}

// UnmarshalJSON fills Type from Tool when the payload omits it.
func (d *Decision) UnmarshalJSON(data []byte) error {
	type plain Decision
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Decision(raw)
	if d.Type == "" {
		d.Type = d.Tool.Kind()
	}
	return nil
}
