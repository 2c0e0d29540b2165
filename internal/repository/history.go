package repository

import (
	"mirrorwatch/internal/db"
	"mirrorwatch/internal/model"
)

// stderr beyond this is cut off before it is stored
const maxStoredStderr = 4096

type HistoryRepository struct{}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

func (r *HistoryRepository) Save(result model.SyncResult) error {
	status := model.StatusSuccess
	errMsg := ""
	if result.Err != nil {
		status = model.StatusFailed
		errMsg = result.Err.Error()
	}

	stderr := result.Stderr
	if len(stderr) > maxStoredStderr {
		stderr = stderr[len(stderr)-maxStoredStderr:]
	}

	history := model.History{
		Status:     status,
		Reason:     result.Request.Reason,
		Source:     result.Request.Source,
		Target:     result.Request.Target,
		FullCopy:   result.Request.FullCopy,
		ExitCode:   result.ExitCode,
		DurationMs: result.Duration.Milliseconds(),
		ErrMsg:     errMsg,
		Stderr:     stderr,
		StartedAt:  result.StartedAt,
	}

	return db.DB.Create(&history).Error
}

type Stats struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
}

func (r *HistoryRepository) GetStats() (Stats, error) {
	var stats Stats
	if err := db.DB.Model(&model.History{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	if err := db.DB.Model(&model.History{}).
		Where("status = ?", model.StatusSuccess).
		Count(&stats.Success).Error; err != nil {
		return stats, err
	}

	stats.Failed = stats.Total - stats.Success
	return stats, nil
}

func (r *HistoryRepository) GetRecent(limit int) ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Order("started_at desc").
		Limit(limit).
		Find(&histories)

	return histories, result.Error
}

func (r *HistoryRepository) GetFailed() ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Where("status = ?", model.StatusFailed).
		Order("started_at desc").
		Find(&histories)

	return histories, result.Error
}
