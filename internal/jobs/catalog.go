package jobs

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

// Catalog is a caller's job list plus alias table, as loaded by the local tools.
type Catalog struct {
	Jobs    []entity.JobConfig `yaml:"jobs"`
	Aliases []entity.JobAlias  `yaml:"aliases"`
}

// LoadCatalog reads a YAML catalog.
// An empty path yields an empty catalog.
func LoadCatalog(path string) (Catalog, error) {
	var c Catalog
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, common.NewAppError(constants.ErrConfig, "read job catalog", err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, common.NewAppError(constants.ErrConfig, "parse job catalog "+path, err)
	}
	for _, a := range c.Aliases {
		if a.Alias == "" || a.JobID == "" {
			return c, common.NewAppError(constants.ErrConfig, "job catalog aliases need alias and job_id", common.ErrInvalidInput)
		}
	}
	return c, nil
}
