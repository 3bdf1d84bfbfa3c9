// Package audit persists the append-only activity log every state transition
// emits, mirroring each record to the process logger.
package audit

import (
	"github.com/sirupsen/logrus"

	"github.com/feedpilot/feedpilot-backend/internal/model"
	"github.com/feedpilot/feedpilot-backend/internal/repository"
)

type Recorder struct {
	Logs   repository.LogRepositoryInterface
	Logger *logrus.Logger
}

func NewRecorder(logs repository.LogRepositoryInterface, logger *logrus.Logger) *Recorder {
	return &Recorder{Logs: logs, Logger: logger}
}

func (r *Recorder) Info(campaignID int, postID *int, msg string, metadata map[string]any) {
	r.record(model.SeverityInfo, campaignID, postID, msg, metadata)
}

func (r *Recorder) Warning(campaignID int, postID *int, msg string, metadata map[string]any) {
	r.record(model.SeverityWarning, campaignID, postID, msg, metadata)
}

func (r *Recorder) Error(campaignID int, postID *int, msg string, metadata map[string]any) {
	r.record(model.SeverityError, campaignID, postID, msg, metadata)
}

func (r *Recorder) record(severity string, campaignID int, postID *int, msg string, metadata map[string]any) {
	entry := r.Logger.WithFields(logrus.Fields{
		"campaign_id": campaignID,
	})
	if postID != nil {
		entry = entry.WithField("post_id", *postID)
	}
	for k, v := range metadata {
		entry = entry.WithField(k, v)
	}

	switch severity {
	case model.SeverityError:
		entry.Error(msg)
	case model.SeverityWarning:
		entry.Warn(msg)
	default:
		entry.Info(msg)
	}

	if r.Logs == nil {
		return
	}
	err := r.Logs.Create(&model.LogEntry{
		CampaignID: campaignID,
		PostID:     postID,
		Severity:   severity,
		Message:    msg,
		Metadata:   metadata,
	})
	if err != nil {
		r.Logger.WithError(err).Warn("Failed to persist activity log entry")
	}
}
