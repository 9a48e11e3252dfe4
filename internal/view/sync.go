package view

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/realtime"
)

// Patcher applies one change event to local state.
type Patcher interface {
	Apply(ev realtime.Event) error
}

// Sync drives a view: a full load at start, incremental patches per event,
// and a full reload on RESYNC, on a partial row, on a patch failure, and on
// every poll tick.
type Sync struct {
	Load     func(ctx context.Context) error
	Patchers map[string]Patcher
	Interval time.Duration
	// OnChange runs after every successful load or patch.
	OnChange func()
	Logger   zerolog.Logger
}

// Run consumes events until ctx is cancelled or every event channel closes.
func (s *Sync) Run(ctx context.Context, events ...<-chan realtime.Event) error {
	if err := s.reload(ctx); err != nil {
		return err
	}

	interval := s.Interval
	if interval <= 0 {
		interval = TicketDetailPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	merged := fanIn(ctx, events)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.reload(ctx); err != nil {
				s.Logger.Warn().Err(err).Msg("poll reload failed")
			}
		case ev, ok := <-merged:
			if !ok {
				return nil
			}
			s.handle(ctx, ev)
		}
	}
}

// fanIn merges event channels into one that closes once all inputs close.
// With no inputs the result never delivers, leaving only the poll ticker.
func fanIn(ctx context.Context, chans []<-chan realtime.Event) <-chan realtime.Event {
	if len(chans) == 0 {
		return nil
	}
	out := make(chan realtime.Event)
	var wg sync.WaitGroup
	for _, ch := range chans {
		wg.Add(1)
		go func(ch <-chan realtime.Event) {
			defer wg.Done()
			for ev := range ch {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func (s *Sync) handle(ctx context.Context, ev realtime.Event) {
	if ev.Type == realtime.EventResync {
		if err := s.reload(ctx); err != nil {
			s.Logger.Warn().Err(err).Msg("resync reload failed")
		}
		return
	}
	p, ok := s.Patchers[ev.Table]
	if !ok {
		return
	}
	if ev.Partial {
		if err := s.reload(ctx); err != nil {
			s.Logger.Warn().Err(err).Str("table", ev.Table).Msg("reload for partial row failed")
		}
		return
	}
	if err := p.Apply(ev); err != nil {
		s.Logger.Warn().Err(err).Str("table", ev.Table).Msg("patch failed, reloading")
		if err := s.reload(ctx); err != nil {
			s.Logger.Warn().Err(err).Msg("reload failed")
		}
		return
	}
	if s.OnChange != nil {
		s.OnChange()
	}
}

func (s *Sync) reload(ctx context.Context) error {
	if s.Load == nil {
		return nil
	}
	if err := s.Load(ctx); err != nil {
		return err
	}
	if s.OnChange != nil {
		s.OnChange()
	}
	return nil
}
