package vendors

import "fmt"

/* Vendor holds the delivery settings this engine needs about a vendor.
 * Account management lives elsewhere; this is only the slice of vendor
 * data the delivery path reads: the shared signing secret and optional
 * per-vendor overrides.
 */
type Vendor struct {
	VendorID      string
	SigningSecret string // empty means attempts go out unsigned
	MaxAttempts   int    // 0 means use the engine default
}

// Validate checks if the vendor entry is usable
func (v *Vendor) Validate() error {
	if v.VendorID == "" {
		return fmt.Errorf("vendor_id cannot be empty")
	}
	if v.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts cannot be negative for vendor %s", v.VendorID)
	}
	return nil
}
