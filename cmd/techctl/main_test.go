package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/auth"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/view"
)

func TestRunVIN(t *testing.T) {
	var out bytes.Buffer
	if err := runVIN([]string{"1hgcm82633a004352"}, &out); err != nil {
		t.Fatalf("vin: %v", err)
	}
	if !strings.Contains(out.String(), "ok\t1HGCM82633A004352") {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	err := runVIN([]string{"1HGCM82633A004352", "short"}, &out)
	if !errors.Is(err, errInvalidVIN) {
		t.Fatalf("expected invalid VIN error, got %v", err)
	}
	if !strings.Contains(out.String(), "short\tinvalid\tVIN must be exactly 17 characters") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRunToken(t *testing.T) {
	var out bytes.Buffer
	err := runToken([]string{"--user", "tech-1", "--role", "technician", "--secret", "s3cret", "--issuer", "techsupport-pro", "--ttl", "1h"}, &out)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	claims, err := auth.New("s3cret", "techsupport-pro").Validate(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "tech-1" || claims.Role != models.RoleTechnician {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if err := runToken([]string{"--user", "u", "--role", "root", "--secret", "s"}, &out); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"bogus"}, &out, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}

func TestQueueFor(t *testing.T) {
	tech := models.Profile{ID: "tech", Role: models.RoleTechnician}
	filter, keep, poll := queueFor(tech)
	if filter != "assigned_technician_id=eq.tech" || poll != view.TechnicianPollInterval {
		t.Fatalf("unexpected technician queue %q %v", filter, poll)
	}
	assigned := "tech"
	active := models.Ticket{AssignedTechnicianID: &assigned, Status: models.StatusInProgress}
	if !keep(active) {
		t.Fatalf("active assignment should stay")
	}
	active.Status = models.StatusResolved
	if keep(active) {
		t.Fatalf("resolved ticket should leave the technician queue")
	}

	filter, keep, poll = queueFor(models.Profile{ID: "a", Role: models.RoleAdmin})
	if filter != "" || keep != nil || poll != view.AdminPollInterval {
		t.Fatalf("admins watch everything")
	}
	filter, _, poll = queueFor(models.Profile{ID: "c", Role: models.RoleCustomer})
	if filter != "customer_id=eq.c" || poll != view.CustomerPollInterval {
		t.Fatalf("unexpected customer queue %q %v", filter, poll)
	}
}

func TestPrintChat(t *testing.T) {
	var out bytes.Buffer
	sender := "cust"
	url := "http://files.test/storage/ticket-attachments/t1/a.png"
	printChat(&out, []models.Ticket{{ID: "t1", Title: "Brakes", Status: models.StatusInProgress}}, []models.TicketMessage{
		{ID: "m1", Message: "Technician assigned", MessageType: models.MessageSystem, CreatedAt: time.Now()},
		{ID: "m2", SenderID: &sender, Message: "photo", MessageType: models.MessageImage, MediaURL: &url, CreatedAt: time.Now()},
	})
	got := out.String()
	if !strings.Contains(got, "Brakes  in_progress (t1)") || !strings.Contains(got, "system") || !strings.Contains(got, "[image "+url+"]") {
		t.Fatalf("unexpected output %q", got)
	}
}
