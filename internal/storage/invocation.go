package storage

import (
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/nexus/pkg/models"
)

func marshalInvocation(inv *models.InvocationMeta) (string, error) {
	b, err := json.Marshal(inv)
	if err != nil {
		return "", fmt.Errorf("marshal invocation: %w", err)
	}
	return string(b), nil
}

func unmarshalInvocation(raw string) (*models.InvocationMeta, error) {
	var inv models.InvocationMeta
	if err := json.Unmarshal([]byte(raw), &inv); err != nil {
		return nil, fmt.Errorf("unmarshal invocation: %w", err)
	}
	return &inv, nil
}
