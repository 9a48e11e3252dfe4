package service

import (
	"testing"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

func technician(id, techStatus, status string) models.Profile {
	return models.Profile{ID: id, Role: models.RoleTechnician, Status: status, TechnicianStatus: strPtr(techStatus)}
}

func TestFilterEligibleTechnicians(t *testing.T) {
	techs := []models.Profile{
		technician("t1", models.TechnicianApproved, models.ProfileActive),
		technician("t2", models.TechnicianPending, models.ProfileActive),
		technician("t3", models.TechnicianApproved, models.ProfileBlocked),
	}
	eligible, res := FilterEligibleTechnicians(techs)
	if len(eligible) != 1 || eligible[0].ID != "t1" {
		t.Fatalf("expected only t1 eligible, got %+v", eligible)
	}
	if len(res.Stages) != 3 || res.Stages[1].Count != 2 || res.Stages[2].Count != 1 {
		t.Fatalf("unexpected stages %+v", res.Stages)
	}
}

func TestFilterEligibleTechniciansReasons(t *testing.T) {
	_, res := FilterEligibleTechnicians([]models.Profile{technician("t1", models.TechnicianRejected, models.ProfileActive)})
	if res.ReasonCode != "NONE_APPROVED" {
		t.Fatalf("expected NONE_APPROVED, got %s", res.ReasonCode)
	}
	_, res = FilterEligibleTechnicians([]models.Profile{technician("t1", models.TechnicianApproved, models.ProfileBlocked)})
	if res.ReasonCode != "ALL_BLOCKED" {
		t.Fatalf("expected ALL_BLOCKED, got %s", res.ReasonCode)
	}
}

func TestRankCandidatesDeterministic(t *testing.T) {
	build := func() []Candidate {
		return []Candidate{
			{Technician: models.Profile{ID: "a"}, Load: 5},
			{Technician: models.Profile{ID: "b"}, Load: 1},
			{Technician: models.Profile{ID: "c"}, Load: 1},
		}
	}
	first := RankCandidates("ticket-1", build())
	second := RankCandidates("ticket-1", build())
	for i := range first {
		if first[i].Technician.ID != second[i].Technician.ID {
			t.Fatalf("expected deterministic order, got %v vs %v", first, second)
		}
	}
	if first[2].Technician.ID != "a" {
		t.Fatalf("expected the busiest technician last, got %s", first[2].Technician.ID)
	}
}

func TestRankCandidatesPrefersLowerLoad(t *testing.T) {
	ranked := RankCandidates("ticket-99", []Candidate{
		{Technician: models.Profile{ID: "a"}, Load: 5},
		{Technician: models.Profile{ID: "b"}, Load: 1},
		{Technician: models.Profile{ID: "c"}, Load: 3},
	})
	if ranked[0].Technician.ID != "b" {
		t.Fatalf("expected least loaded first, got %s", ranked[0].Technician.ID)
	}
}
