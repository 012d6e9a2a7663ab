package notify

import (
	"github.com/formflow/platform/internal/models"
	"gorm.io/gorm"
)

const (
	KindStepAssigned       = "step_assigned"
	KindStepDelegated      = "step_delegated"
	KindSubmissionApproved = "submission_approved"
	KindSubmissionRejected = "submission_rejected"
)

// Push records one in-app notification. Callers treat failures as
// log-and-continue; a lost notification never blocks a workflow action.
func Push(db *gorm.DB, userID uint, kind, message string, submissionID uint, stepID *uint) error {
	n := models.Notification{
		UserID:       userID,
		Kind:         kind,
		Message:      message,
		SubmissionID: submissionID,
		StepID:       stepID,
	}
	return db.Create(&n).Error
}

// PushAll fans one message out to every listed user.
func PushAll(db *gorm.DB, userIDs []uint, kind, message string, submissionID uint, stepID *uint) error {
	for _, id := range userIDs {
		if err := Push(db, id, kind, message, submissionID, stepID); err != nil {
			return err
		}
	}
	return nil
}

// MarkRead flags a notification read, scoped to its owner.
func MarkRead(db *gorm.DB, notificationID, userID uint) (bool, error) {
	result := db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true)
	return result.RowsAffected > 0, result.Error
}
