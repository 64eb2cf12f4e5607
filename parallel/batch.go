package parallel

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadBatch reads a JSON array of TaskDefinition objects from path.
func LoadBatch(path string) ([]TaskDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parallel: read batch file: %w", err)
	}

	var defs []TaskDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parallel: parse batch file: %w", err)
	}
	return defs, nil
}
