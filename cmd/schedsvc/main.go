package main

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	config "github.com/ndvlabs/attendance-services/configs"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/broker"
	"github.com/ndvlabs/attendance-services/internal/comm"
	natscli "github.com/ndvlabs/attendance-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "sched"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

// schedsvc drives the daily recovery cycle: it re-ingests the last two
// full days (re-running the window is how missed days are recovered)
// and asks for corrections for the configured employees. Which day to
// correct is decided here, never inside the correction engine.
func main() {
	n, err := natscli.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer n.Conn.Close()
	log.Infof("NATS connected at %s", n.Url)

	employees := correctionEmployees()
	if len(employees) == 0 {
		log.Warn("CORRECTION_EMPLOYEES is empty, no corrections will be requested")
	}

	runRecoveryCycle(n, employees)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		runRecoveryCycle(n, employees)
	}
}

func runRecoveryCycle(n *natscli.Nats, employees []string) {
	today := time.Now()
	yesterday := today.AddDate(0, 0, -1)
	dayBefore := today.AddDate(0, 0, -2)

	start := time.Date(dayBefore.Year(), dayBefore.Month(), dayBefore.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 23, 59, 59, 0, time.UTC)

	publish(n, "sync-window", comm.SyncWindowCmd{Start: start, End: end})
	log.Infof("requested attendance sync for window %s to %s",
		start.Format("2006-01-02 15:04:05"), end.Format("2006-01-02 15:04:05"))

	for _, employee := range employees {
		for _, target := range []time.Time{yesterday, dayBefore} {
			publish(n, "run-correction", comm.CorrectionCmd{
				Employee: employee,
				Date:     target.Format("2006-01-02"),
			})
		}
		log.Infof("requested corrections for employee %s", employee)
	}
}

func publish(n *natscli.Nats, msgType string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("Error marshaling %s command: %v", msgType, err)
		return
	}

	payload, err := json.Marshal(comm.Message{Type: msgType, Data: data})
	if err != nil {
		log.Errorf("Error marshaling %s envelope: %v", msgType, err)
		return
	}

	if err := n.Conn.Publish(broker.CommandTopic, payload); err != nil {
		log.Errorf("Error publishing %s command: %v", msgType, err)
	}
}

func correctionEmployees() []string {
	raw := os.Getenv("CORRECTION_EMPLOYEES")

	var employees []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			employees = append(employees, trimmed)
		}
	}
	return employees
}
