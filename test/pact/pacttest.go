//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// The order engine consumes the carrier tracking API and is itself consumed
// by the storefront.
const (
	EngineName     = "order-engine"
	CarrierName    = "carrier-tracking-api"
	StorefrontName = "storefront"

	StateShipmentInTransit = "shipment 1Z999 is out for delivery"
	StateShipmentMissing   = "no shipment 1Z000"
	StateOrderExists       = "buyer pact-buyer owns order pact-order-1"
	StateOrderMissing      = "no order pact-missing"
	StateCatalogSeeded     = "product pact-tee has stock"
)

const (
	CarrierSlug     = "ups"
	KnownShipment   = "1Z999"
	MissingShipment = "1Z000"
	CarrierAPIKey   = "pact-carrier-key"

	BuyerID        = "pact-buyer"
	ExistingOrder  = "pact-order-1"
	MissingOrder   = "pact-missing"
	ProductID      = "pact-tee"
	JWTSecret      = "pact-jwt-secret"
	exampleAddress = "1 Contract Way"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for a consumer/provider pair.
func PactFile(t testing.TB, consumer, provider string) string {
	t.Helper()
	return filepath.Join(PactDir(t), consumer+"-"+provider+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleAddress is the delivery address used by storefront interactions.
func ExampleAddress() map[string]any {
	return map[string]any{
		"fullName":   "Pact Buyer",
		"line1":      exampleAddress,
		"city":       "Springfield",
		"postalCode": "12345",
		"country":    "US",
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
