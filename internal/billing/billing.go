package billing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

// Cents converts a decimal amount to integer cents, rounding half away from zero.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func Amount(cents int64) float64 {
	return float64(cents) / 100
}

// InitialAmount is what the customer pays before work starts. On-site jobs
// split the estimate in two; an odd cent goes to the final payment.
func InitialAmount(estimate float64, serviceType string) float64 {
	total := Cents(estimate)
	if serviceType == models.ServiceOnSite {
		return Amount(total / 2)
	}
	return Amount(total)
}

// FinalAmount is the remainder due before an on-site job can be completed.
func FinalAmount(estimate float64, serviceType string) float64 {
	if serviceType != models.ServiceOnSite {
		return 0
	}
	total := Cents(estimate)
	return Amount(total - total/2)
}

// SameAmount compares two decimal amounts at cent precision.
func SameAmount(a, b float64) bool {
	return Cents(a) == Cents(b)
}

type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

func ComputeTotals(subtotal float64, taxRate float64) Totals {
	sub := Cents(subtotal)
	tax := int64(math.Round(float64(sub) * taxRate))
	return Totals{
		Subtotal: Amount(sub),
		Tax:      Amount(tax),
		Total:    Amount(sub + tax),
	}
}

func FallbackInvoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-%d", now.UnixMilli())
}

func VehicleInfo(t models.Ticket) string {
	parts := []string{}
	if t.VehicleYear > 0 {
		parts = append(parts, fmt.Sprint(t.VehicleYear))
	}
	if s := strings.TrimSpace(t.VehicleMake); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(t.VehicleModel); s != "" {
		parts = append(parts, s)
	}
	info := strings.Join(parts, " ")
	if t.VIN != "" {
		if info == "" {
			return "VIN " + t.VIN
		}
		info += " (VIN " + t.VIN + ")"
	}
	return info
}

// ServiceDescription is the invoice line for a ticket payment stage.
func ServiceDescription(t models.Ticket, kind string) string {
	service := "Remote diagnostics"
	if t.OnSite() {
		service = "On-site service"
	}
	switch kind {
	case models.PaymentInitial:
		if t.OnSite() {
			return fmt.Sprintf("%s: initial 50%% payment for %q", service, t.Title)
		}
		return fmt.Sprintf("%s: payment for %q", service, t.Title)
	case models.PaymentFinal:
		return fmt.Sprintf("%s: final 50%% payment for %q", service, t.Title)
	default:
		return service
	}
}
