package main

import (
	"fmt"
	"os"

	"github.com/marcelsud/webhook-courier/vendors"
)

/* validate-vendors - Standalone CLI tool to validate vendors.yaml
 * Usage: go run cmd/validate-vendors/main.go [vendors.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	vendorsFile := "vendors.yaml"
	if len(os.Args) > 1 {
		vendorsFile = os.Args[1]
	}

	fmt.Printf("Validating vendors file: %s\n\n", vendorsFile)

	registry := vendors.NewRegistry()
	if err := registry.Load(vendorsFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	loaded := registry.List()
	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d vendor(s):\n", len(loaded))

	for i, vendor := range loaded {
		fmt.Printf("\n%d. Vendor: %s\n", i+1, vendor.VendorID)
		if vendor.SigningSecret != "" {
			fmt.Printf("   Signing:      enabled\n")
		} else {
			fmt.Printf("   Signing:      disabled (no secret)\n")
		}
		if vendor.MaxAttempts > 0 {
			fmt.Printf("   Max Attempts: %d\n", vendor.MaxAttempts)
		} else {
			fmt.Printf("   Max Attempts: engine default\n")
		}
	}
}
