package app

import (
	"time"

	"github.com/fiffu/bountywatch/lib"
	"github.com/fiffu/bountywatch/lib/models"
	"github.com/fiffu/bountywatch/lib/poller"
)

type AckView struct {
	Outcome   string           `json:"outcome"`
	Message   string           `json:"message"`
	Locations []string         `json:"locations,omitempty"`
	Report    *CycleReportView `json:"report,omitempty"`
}

type TenantConfigView struct {
	TenantID      string  `json:"tenant_id"`
	DestinationID string  `json:"destination_id"`
	PingGroupID   *string `json:"ping_group_id"`
}

type CycleReportView struct {
	CycleID      string `json:"cycle_id"`
	StartedAt    string `json:"started_at"`
	Fetched      int    `json:"fetched"`
	Dropped      int    `json:"dropped"`
	AlreadySeen  int    `json:"already_seen"`
	New          int    `json:"new"`
	Sent         int    `json:"sent"`
	Failed       int    `json:"failed"`
	Skipped      int    `json:"skipped"`
	Aborted      string `json:"aborted,omitempty"`
	ElapsedMsecs int64  `json:"elapsed_msecs"`
}

func (view AckView) From(ack lib.Ack) AckView {
	v := AckView{
		Outcome:   string(ack.Outcome),
		Message:   ack.Message,
		Locations: ack.Locations,
	}
	if ack.Report != nil {
		report := CycleReportView{}.From(ack.Report)
		v.Report = &report
	}
	return v
}

func (view TenantConfigView) From(entity *models.TenantConfig) TenantConfigView {
	v := TenantConfigView{
		TenantID:      entity.TenantID,
		DestinationID: entity.DestinationID,
	}
	if entity.PingGroupID.Valid {
		v.PingGroupID = &entity.PingGroupID.String
	}
	return v
}

func (view CycleReportView) From(report *poller.CycleReport) CycleReportView {
	return CycleReportView{
		CycleID:      report.CycleID,
		StartedAt:    isoformat(report.StartedAt),
		Fetched:      report.Fetched,
		Dropped:      report.Dropped,
		AlreadySeen:  report.AlreadySeen,
		New:          report.New,
		Sent:         report.Sent,
		Failed:       report.Failed,
		Skipped:      report.Skipped,
		Aborted:      string(report.Aborted),
		ElapsedMsecs: report.Elapsed.Milliseconds(),
	}
}

func isoformat(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
