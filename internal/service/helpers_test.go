package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/notify"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/service/servicetest"
)

var _ Store = (*servicetest.Store)(nil)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

// newTestService wires a Service with a fixed clock and sequential ids.
func newTestService(store *servicetest.Store) (*Service, *recordingNotifier) {
	n := &recordingNotifier{}
	var seq atomic.Int64
	return &Service{
		Store:    store,
		Notifier: n,
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return testNow },
		NewID: func() string {
			return fmt.Sprintf("id-%d", seq.Add(1))
		},
		Validate: validator.New(),
	}, n
}

var (
	testAdmin    = models.Profile{ID: "admin", Role: models.RoleAdmin, Status: models.ProfileActive}
	testCustomer = models.Profile{ID: "cust", Role: models.RoleCustomer, Status: models.ProfileActive}
	testTech     = models.Profile{ID: "tech", Role: models.RoleTechnician, Status: models.ProfileActive, TechnicianStatus: strPtr(models.TechnicianApproved)}
)

func seedProfiles(store *servicetest.Store) {
	for _, p := range []models.Profile{testAdmin, testCustomer, testTech} {
		store.Profiles[p.ID] = p
	}
}
