package billing

import (
	"regexp"
	"testing"
	"time"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

func TestOnSiteSplit(t *testing.T) {
	initial := InitialAmount(200, models.ServiceOnSite)
	final := FinalAmount(200, models.ServiceOnSite)
	if initial != 100.00 || final != 100.00 {
		t.Fatalf("expected 100/100 split, got %.2f/%.2f", initial, final)
	}
}

func TestOnSiteSplitOddCent(t *testing.T) {
	initial := InitialAmount(100.01, models.ServiceOnSite)
	final := FinalAmount(100.01, models.ServiceOnSite)
	if Cents(initial)+Cents(final) != 10001 {
		t.Fatalf("split must add up to the estimate, got %.2f + %.2f", initial, final)
	}
	if final < initial {
		t.Fatalf("odd cent should land on the final payment")
	}
}

func TestRemoteIsSinglePayment(t *testing.T) {
	if got := InitialAmount(149.99, models.ServiceRemote); got != 149.99 {
		t.Fatalf("expected full amount, got %.2f", got)
	}
	if got := FinalAmount(149.99, models.ServiceRemote); got != 0 {
		t.Fatalf("expected no final payment, got %.2f", got)
	}
}

func TestComputeTotals(t *testing.T) {
	tot := ComputeTotals(100, 0.075)
	if tot.Subtotal != 100 || tot.Tax != 7.5 || tot.Total != 107.5 {
		t.Fatalf("unexpected totals %+v", tot)
	}
	if tot := ComputeTotals(59.99, 0); tot.Total != 59.99 || tot.Tax != 0 {
		t.Fatalf("unexpected zero-tax totals %+v", tot)
	}
}

func TestFallbackInvoiceNumber(t *testing.T) {
	now := time.UnixMilli(1760000000123)
	got := FallbackInvoiceNumber(now)
	if got != "INV-1760000000123" {
		t.Fatalf("unexpected invoice number %s", got)
	}
	if !regexp.MustCompile(`^INV-\d+$`).MatchString(got) {
		t.Fatalf("invoice number %s does not match INV-<millis>", got)
	}
}

func TestVehicleInfo(t *testing.T) {
	tk := models.Ticket{VehicleYear: 2019, VehicleMake: "Toyota", VehicleModel: "Corolla", VIN: "1HGBH41JXMN109186"}
	if got := VehicleInfo(tk); got != "2019 Toyota Corolla (VIN 1HGBH41JXMN109186)" {
		t.Fatalf("unexpected vehicle info %q", got)
	}
	if got := VehicleInfo(models.Ticket{}); got != "" {
		t.Fatalf("expected empty vehicle info, got %q", got)
	}
}
