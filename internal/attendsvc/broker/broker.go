package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/device"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/service"
	"github.com/ndvlabs/attendance-services/internal/comm"
	log "github.com/sirupsen/logrus"
)

const (
	// CommandTopic carries sync/correction/fold commands, usually from
	// the scheduler service.
	CommandTopic = "attendance.service"
	// EventTopic carries progress and outcome events for dashboards.
	EventTopic = "attendance.events"
)

type Broker struct {
	Conn              *nats.Conn
	SyncService       *service.SyncService
	CorrectionService *service.CorrectionService
	ManualService     *service.ManualPunchService
}

func NewBroker(nc *nats.Conn, syncService *service.SyncService,
	correctionService *service.CorrectionService, manualService *service.ManualPunchService) *Broker {
	return &Broker{
		Conn:              nc,
		SyncService:       syncService,
		CorrectionService: correctionService,
		ManualService:     manualService,
	}
}

// SubscribeCommands consumes scheduler commands from the command topic.
func (b *Broker) SubscribeCommands() (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(CommandTopic, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.Message{}
	err := json.Unmarshal(msgNat.Data, &msg)
	if err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	switch msg.Type {
	case "sync-window":
		cmd := comm.SyncWindowCmd{}
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			log.Errorf("Error %s", err)
			return
		}

		// runs inline on the subscription: the scheduler publishes
		// run-correction right behind sync-window, and corrections must
		// see the punches this sync ingests
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		window := device.SyncWindow{Start: cmd.Start, End: cmd.End}
		summary, err := b.SyncService.SyncWindow(ctx, window)
		if err != nil {
			log.Errorf("Error [SyncService.SyncWindow] %s", err)
			b.publishEvent("sync-summary", comm.SyncSummary{Status: "error", Message: err.Error()})
			return
		}

		b.publishEvent("sync-summary", comm.SyncSummary{
			RunID:   summary.RunID,
			Total:   summary.Total,
			Synced:  summary.Synced,
			Skipped: summary.Skipped,
			Status:  "success",
		})

	case "run-correction":
		cmd := comm.CorrectionCmd{}
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			log.Errorf("Error %s", err)
			return
		}

		date, err := time.Parse("2006-01-02", cmd.Date)
		if err != nil {
			log.Errorf("Error: invalid correction date %q: %s", cmd.Date, err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		res := b.CorrectionService.Correct(ctx, cmd.Employee, date)
		b.publishEvent("correction-outcome", comm.CorrectionOutcome{
			Employee: cmd.Employee,
			Date:     cmd.Date,
			Status:   res.Status,
			Message:  res.Message,
		})

	case "fold-manual":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		res := b.ManualService.FoldAll(ctx)
		log.Infof("fold-manual: %s (%s)", res.Status, res.Message)

	default:
		log.Warnf("unknown command received: %s", msg.Type)
	}
}

// PublishProgress is wired into SyncService.Progress so page-by-page
// sync progress reaches the ws dashboards.
func (b *Broker) PublishProgress(runID string, percent int, message string) {
	b.publishEvent("sync-progress", comm.SyncProgress{
		RunID:   runID,
		Percent: percent,
		Message: message,
	})
}

func (b *Broker) publishEvent(msgType string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("Error marshaling %s event: %s", msgType, err)
		return
	}

	payload, err := json.Marshal(comm.Message{Type: msgType, Data: data})
	if err != nil {
		log.Errorf("Error marshaling %s envelope: %s", msgType, err)
		return
	}

	if err := b.Conn.Publish(EventTopic, payload); err != nil {
		log.Errorf("Error publishing to topic %s: %s", EventTopic, err)
	}
}
