package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ndvlabs/attendance-services/internal/attendsvc/device"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/models"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/service"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/store"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/ws"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const windowTimeLayout = "2006-01-02 15:04:05"

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	upgrader  websocket.Upgrader

	sync       *service.SyncService
	correction *service.CorrectionService
	manual     *service.ManualPunchService
	reports    *service.ReportService
	runs       *store.SyncRunStore
	employees  *store.EmployeeStore
	ws         *ws.Ws
}

func NewHandler(syncSvc *service.SyncService, correctionSvc *service.CorrectionService,
	manualSvc *service.ManualPunchService, reportSvc *service.ReportService,
	runs *store.SyncRunStore, employees *store.EmployeeStore, hub *ws.Ws) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sync:       syncSvc,
		correction: correctionSvc,
		manual:     manualSvc,
		reports:    reportSvc,
		runs:       runs,
		employees:  employees,
		ws:         hub,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "attendance service is running at port " + os.Getenv("ATTEND_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}

// SyncHandler runs one ingestion attempt over an explicit window.
func (h *Handler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDateAndTime string `json:"start_date_and_time"`
		EndDateAndTime   string `json:"end_date_and_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid request body"})
		return
	}

	start, err := time.Parse(windowTimeLayout, req.StartDateAndTime)
	if err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid start_date_and_time"})
		return
	}
	end, err := time.Parse(windowTimeLayout, req.EndDateAndTime)
	if err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid end_date_and_time"})
		return
	}

	summary, err := h.sync.SyncWindow(r.Context(), device.SyncWindow{Start: start, End: end})
	if err != nil {
		if errors.Is(err, service.ErrTooManyRecords) {
			h.CreateResponse(w, Response{Code: 422, Error: err.Error()})
			return
		}
		h.CreateResponse(w, Response{Code: 502, Error: err.Error()})
		return
	}

	if summary.Total == 0 {
		h.CreateResponse(w, Response{
			Message: "no attendance records found for the given time period",
			Code:    200,
			Data:    summary,
		})
		return
	}

	h.CreateResponse(w, Response{
		Message: strconv.Itoa(summary.Synced) + " attendance records synced successfully, " +
			strconv.Itoa(summary.Skipped) + " duplicate punches skipped",
		Code: 200,
		Data: summary,
	})
}

// CorrectionHandler runs the correction state machine for one
// employee-day. The target date is always caller-supplied.
func (h *Handler) CorrectionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Employee string `json:"employee"`
		Date     string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid request body"})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid date, expected YYYY-MM-DD"})
		return
	}

	res := h.correction.Correct(r.Context(), req.Employee, date)
	h.CreateResponse(w, Response{Message: res.Message, Code: 200, Data: res})
}

func (h *Handler) AddManualPunchHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Employee  string `json:"employee"`
		PunchDate string `json:"punch_date"`
		PunchTime string `json:"punch_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid request body"})
		return
	}

	date, err := time.Parse("2006-01-02", req.PunchDate)
	if err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid punch_date, expected YYYY-MM-DD"})
		return
	}

	// drop fractional seconds if any
	raw := strings.SplitN(req.PunchTime, ".", 2)[0]
	clock, err := models.ParseClock(raw)
	if err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid punch_time, expected HH:MM:SS"})
		return
	}

	res := h.manual.Add(r.Context(), req.Employee, date, clock)
	h.CreateResponse(w, Response{Message: res.Message, Code: 200, Data: res})
}

func (h *Handler) DeleteManualPunchHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid manual punch id"})
		return
	}

	res := h.manual.Remove(r.Context(), id)
	h.CreateResponse(w, Response{Message: res.Message, Code: 200, Data: res})
}

// FoldManualPunchesHandler re-runs the normalization pass over every
// pending manual punch request.
func (h *Handler) FoldManualPunchesHandler(w http.ResponseWriter, r *http.Request) {
	res := h.manual.FoldAll(r.Context())
	h.CreateResponse(w, Response{Message: res.Message, Code: 200, Data: res})
}

func (h *Handler) LedgerHandler(w http.ResponseWriter, r *http.Request) {
	employeeNo := chi.URLParam(r, "employeeNo")

	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid date, expected YYYY-MM-DD"})
		return
	}

	day, err := h.reports.Ledger(r.Context(), employeeNo, date)
	if err != nil {
		h.CreateResponse(w, Response{Code: 500, Error: err.Error()})
		return
	}
	if day == nil {
		h.CreateResponse(w, Response{Code: 404, Error: "no attendance ledger for employee and date"})
		return
	}

	h.CreateResponse(w, Response{Code: 200, Data: day})
}

func (h *Handler) LedgerRangeHandler(w http.ResponseWriter, r *http.Request) {
	employeeNo := chi.URLParam(r, "employeeNo")

	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid from date, expected YYYY-MM-DD"})
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid to date, expected YYYY-MM-DD"})
		return
	}

	days, err := h.reports.LedgerRange(r.Context(), employeeNo, from, to)
	if err != nil {
		h.CreateResponse(w, Response{Code: 500, Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Code: 200, Data: days})
}

func (h *Handler) DailyReportHandler(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "please select a date"})
		return
	}

	report, err := h.reports.Daily(r.Context(), date)
	if err != nil {
		h.CreateResponse(w, Response{Code: 500, Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Code: 200, Data: report})
}

func (h *Handler) MonthlyReportHandler(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "please select month and year"})
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "please select month and year"})
		return
	}

	report, err := h.reports.Monthly(r.Context(), year, month, r.URL.Query().Get("employee"))
	if err != nil {
		h.CreateResponse(w, Response{Code: 500, Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Code: 200, Data: report})
}

func (h *Handler) ManualPunchReportHandler(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid from date, expected YYYY-MM-DD"})
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid to date, expected YYYY-MM-DD"})
		return
	}

	rows, err := h.reports.ManualPunches(r.Context(), from, to)
	if err != nil {
		h.CreateResponse(w, Response{Code: 500, Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Code: 200, Data: rows})
}

// UpsertEmployeeHandler maintains the employee/device identity mapping
// the ingestion and correction paths resolve through.
func (h *Handler) UpsertEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	var req models.Employee
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid request body"})
		return
	}

	if req.Employee == "" || req.DeviceNo == "" {
		h.CreateResponse(w, Response{Code: 400, Error: "employee and device_no are required"})
		return
	}
	if req.Status == "" {
		req.Status = "Active"
	}

	if err := h.employees.Upsert(r.Context(), req); err != nil {
		h.CreateResponse(w, Response{Code: 500, Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{
		Message: "employee mapping saved for " + req.Employee,
		Code:    200,
	})
}

func (h *Handler) ListEmployeesHandler(w http.ResponseWriter, r *http.Request) {
	employees, err := h.employees.ListActive(r.Context())
	if err != nil {
		h.CreateResponse(w, Response{Code: 500, Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Code: 200, Data: employees})
}

func (h *Handler) SyncRunsHandler(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.RecentRuns(r.Context(), 50)
	if err != nil {
		h.CreateResponse(w, Response{Code: 500, Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Code: 200, Data: runs})
}

// HandleWebSocket upgrades dashboard clients that want live sync
// progress. Clients only listen.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		http.Error(w, "Failed to upgrade to WebSocket", http.StatusInternalServerError)
		return
	}

	socketId := uuid.New().String()
	h.ws.StoreConnection(socketId, conn)

	log.Infof("New WebSocket connection established: %s", socketId)

	go h.drainConnection(conn, socketId)
}

func (h *Handler) drainConnection(conn *websocket.Conn, socketId string) {
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		conn.Close()
		h.ws.HandleDisconnect(socketId)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			} else {
				log.Infof("WebSocket connection closed normally for socket: %s", socketId)
			}
			return
		}
	}
}
