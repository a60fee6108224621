package vendors

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/* Registry manages vendor configuration from vendors.yaml
 * Provides in-memory lookup for fast access on the delivery path
 */

// Config represents the structure of vendors.yaml
type Config struct {
	Vendors []VendorConfig `yaml:"vendors"`
}

// VendorConfig represents a single vendor in the YAML file
type VendorConfig struct {
	VendorID      string `yaml:"vendor_id"`
	SigningSecret string `yaml:"signing_secret"`
	MaxAttempts   int    `yaml:"max_attempts"`
}

// Registry holds the loaded vendors
type Registry struct {
	vendors map[string]*Vendor
}

// NewRegistry creates an empty vendor registry
func NewRegistry() *Registry {
	return &Registry{
		vendors: make(map[string]*Vendor),
	}
}

// Load reads and parses the vendors.yaml file
func (r *Registry) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading vendors file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing vendors YAML: %w", err)
	}

	for _, vc := range config.Vendors {
		vendor := &Vendor{
			VendorID:      vc.VendorID,
			SigningSecret: vc.SigningSecret,
			MaxAttempts:   vc.MaxAttempts,
		}

		if err := vendor.Validate(); err != nil {
			return fmt.Errorf("validating vendor: %w", err)
		}

		if _, exists := r.vendors[vendor.VendorID]; exists {
			return fmt.Errorf("duplicate vendor_id: %s", vendor.VendorID)
		}
		r.vendors[vendor.VendorID] = vendor
	}

	return nil
}

// Get returns a vendor by ID
func (r *Registry) Get(vendorID string) (*Vendor, error) {
	vendor, ok := r.vendors[vendorID]
	if !ok {
		return nil, fmt.Errorf("vendor not found: %s", vendorID)
	}
	return vendor, nil
}

// Secret returns the signing secret for a vendor, empty when the vendor
// is unknown or has no secret configured
func (r *Registry) Secret(vendorID string) string {
	vendor, ok := r.vendors[vendorID]
	if !ok {
		return ""
	}
	return vendor.SigningSecret
}

// List returns all loaded vendors
func (r *Registry) List() []*Vendor {
	all := make([]*Vendor, 0, len(r.vendors))
	for _, v := range r.vendors {
		all = append(all, v)
	}
	return all
}
