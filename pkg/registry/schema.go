// pkg/registry/schema.go
package registry

import "credit-assessment/internal/finance"

// PolicyDocument is the on-disk form of a credit policy. Fields omitted from
// Policy keep the built-in defaults, so a document only needs to state what
// it changes.
type PolicyDocument struct {
	Version     string          `json:"version" yaml:"version"`
	LastUpdated string          `json:"lastUpdated" yaml:"last_updated"`
	Description string          `json:"description" yaml:"description"`
	Activate    bool            `json:"activate" yaml:"activate"`
	Policy      *finance.Policy `json:"policy" yaml:"policy"`
}
