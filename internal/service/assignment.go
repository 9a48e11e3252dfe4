package service

import (
	"context"
	"hash/fnv"
	"sort"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

type Candidate struct {
	Technician models.Profile `json:"technician"`
	Load       int            `json:"load"`
}

type EligibilityStage struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Suggestion struct {
	Candidates []Candidate        `json:"candidates"`
	Stages     []EligibilityStage `json:"stages"`
	ReasonCode string             `json:"reason_code,omitempty"`
	ReasonText string             `json:"reason_text,omitempty"`
}

func eligibleTechnician(p models.Profile) bool {
	return p.Role == models.RoleTechnician &&
		p.TechnicianStatus != nil && *p.TechnicianStatus == models.TechnicianApproved &&
		!p.Blocked()
}

// FilterEligibleTechnicians narrows technician profiles stage by stage and
// records how many survive each one.
func FilterEligibleTechnicians(techs []models.Profile) ([]models.Profile, Suggestion) {
	var res Suggestion
	res.Stages = append(res.Stages, EligibilityStage{Name: "technicians", Count: len(techs)})
	if len(techs) == 0 {
		res.ReasonCode = "NO_TECHNICIANS"
		res.ReasonText = "No technician accounts exist"
		return nil, res
	}

	approved := filterProfiles(techs, func(p models.Profile) bool {
		return p.TechnicianStatus != nil && *p.TechnicianStatus == models.TechnicianApproved
	})
	res.Stages = append(res.Stages, EligibilityStage{Name: "approved", Count: len(approved)})
	if len(approved) == 0 {
		res.ReasonCode = "NONE_APPROVED"
		res.ReasonText = "No approved technicians"
		return nil, res
	}

	active := filterProfiles(approved, func(p models.Profile) bool { return !p.Blocked() })
	res.Stages = append(res.Stages, EligibilityStage{Name: "active", Count: len(active)})
	if len(active) == 0 {
		res.ReasonCode = "ALL_BLOCKED"
		res.ReasonText = "All approved technicians are blocked"
		return nil, res
	}
	return active, res
}

// RankCandidates orders by current load. Equal loads are ordered by a hash of
// the ticket and technician ids so the same ticket always gets the same order.
func RankCandidates(ticketID string, candidates []Candidate) []Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Load != candidates[j].Load {
			return candidates[i].Load < candidates[j].Load
		}
		hi := tieBreak(ticketID, candidates[i].Technician.ID)
		hj := tieBreak(ticketID, candidates[j].Technician.ID)
		if hi != hj {
			return hi < hj
		}
		return candidates[i].Technician.ID < candidates[j].Technician.ID
	})
	return candidates
}

func tieBreak(ticketID, technicianID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(ticketID + ":" + technicianID))
	return h.Sum64()
}

func (s *Service) SuggestTechnicians(ctx context.Context, admin models.Profile, ticketID string) (Suggestion, error) {
	if !admin.IsAdmin() {
		return Suggestion{}, ErrForbidden
	}
	if _, err := s.loadTicket(ctx, ticketID); err != nil {
		return Suggestion{}, err
	}
	techs, err := s.Store.ListProfiles(ctx, models.RoleTechnician)
	if err != nil {
		return Suggestion{}, err
	}
	eligible, res := FilterEligibleTechnicians(techs)
	if len(eligible) == 0 {
		return res, nil
	}
	loads, err := s.Store.TechnicianLoads(ctx)
	if err != nil {
		return Suggestion{}, err
	}
	candidates := make([]Candidate, 0, len(eligible))
	for _, p := range eligible {
		candidates = append(candidates, Candidate{Technician: p, Load: loads[p.ID]})
	}
	res.Candidates = RankCandidates(ticketID, candidates)
	return res, nil
}

func filterProfiles(profiles []models.Profile, keep func(models.Profile) bool) []models.Profile {
	out := make([]models.Profile, 0, len(profiles))
	for _, p := range profiles {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
