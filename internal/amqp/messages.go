package amqp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledgerplan/internal/core"
)

// ReportRequestMessage asks a worker to run a catalog report.
type ReportRequestMessage struct {
	ID        string      `json:"id"`
	Report    string      `json:"report"`
	Period    string      `json:"period"`
	Filter    core.Filter `json:"filter"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewReportRequestMessage creates a request with a fresh ID
func NewReportRequestMessage(report, period string, filter core.Filter) *ReportRequestMessage {
	return &ReportRequestMessage{
		ID:        uuid.NewString(),
		Report:    report,
		Period:    period,
		Filter:    filter,
		Timestamp: time.Now(),
	}
}

// Validate checks the fields a worker needs before running the report.
func (m *ReportRequestMessage) Validate() error {
	if strings.TrimSpace(m.Report) == "" {
		return fmt.Errorf("report is required")
	}
	if _, err := core.ParsePeriod(m.Period); err != nil {
		return err
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ReportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportRequestMessageFromJSON decodes and validates a request.
func ReportRequestMessageFromJSON(data []byte) (*ReportRequestMessage, error) {
	var msg ReportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReportResultMessage carries either a reconciliation or the error that
// prevented it.
type ReportResultMessage struct {
	RequestID string               `json:"requestId"`
	Report    string               `json:"report"`
	Period    string               `json:"period"`
	Result    *core.Reconciliation `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// NewReportResultMessage builds the reply to req.
func NewReportResultMessage(req *ReportRequestMessage, result *core.Reconciliation, err error) *ReportResultMessage {
	msg := &ReportResultMessage{
		RequestID: req.ID,
		Report:    req.Report,
		Period:    req.Period,
		Result:    result,
		Timestamp: time.Now(),
	}
	if err != nil {
		msg.Result = nil
		msg.Error = err.Error()
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *ReportResultMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportResultMessageFromJSON decodes a result message.
func ReportResultMessageFromJSON(data []byte) (*ReportResultMessage, error) {
	var msg ReportResultMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
