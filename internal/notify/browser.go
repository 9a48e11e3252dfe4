package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/realtime"
)

// PushTable is the pseudo-table browser sessions subscribe to for
// notifications, filtered by user_id.
const PushTable = "push"

type Publisher interface {
	Publish(e realtime.Event)
}

// Browser hands notifications to the user's open WebSocket sessions. A user
// with no open session simply misses the push; the stored notification row
// remains.
type Browser struct {
	Hub Publisher
}

func (b Browser) Name() string { return "browser" }

// RequestPermission is granted server-side; the browser prompts on its own.
func (b Browser) RequestPermission(ctx context.Context, userID string) (bool, error) {
	return true, nil
}

func (b Browser) Schedule(ctx context.Context, n Notification) error {
	record, err := json.Marshal(n)
	if err != nil {
		return err
	}
	b.Hub.Publish(realtime.Event{
		Table:           PushTable,
		Type:            realtime.EventPush,
		Record:          record,
		CommitTimestamp: time.Now().UTC(),
	})
	return nil
}
