package file

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/denportal/wagate/internal/models"
)

// LoadRules reads the rule configuration once at startup. Order in the
// file is the evaluation order.
func LoadRules(path string) ([]models.Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules []models.Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return rules, nil
}
