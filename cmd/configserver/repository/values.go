package repository

import (
	"encoding/json"
	"fmt"

	"github.com/playforge/remoteconfig/common/models"
)

// jsonb columns carry tagged values and condition lists; pgx hands them back
// as []byte, so marshaling is explicit on both sides.

func marshalValue(v models.Value) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return raw, nil
}

func unmarshalValue(raw []byte, v *models.Value) error {
	if len(raw) == 0 {
		*v = models.Value{}
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}
	return nil
}

func marshalConditions(conds []models.TargetCondition) ([]byte, error) {
	if conds == nil {
		conds = []models.TargetCondition{}
	}
	raw, err := json.Marshal(conds)
	if err != nil {
		return nil, fmt.Errorf("marshal conditions: %w", err)
	}
	return raw, nil
}

func unmarshalConditions(raw []byte, conds *[]models.TargetCondition) error {
	if len(raw) == 0 {
		*conds = []models.TargetCondition{}
		return nil
	}
	if err := json.Unmarshal(raw, conds); err != nil {
		return fmt.Errorf("unmarshal conditions: %w", err)
	}
	return nil
}
