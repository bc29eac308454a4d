package service

import (
	"context"
	"fmt"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/repository"
	"newsreel_backend/internal/util"
	"newsreel_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ReportService struct {
	DB         *gorm.DB
	ReportRepo *repository.ReportRepository
}

func NewReportService(db *gorm.DB, reportRepo *repository.ReportRepository) *ReportService {
	return &ReportService{DB: db, ReportRepo: reportRepo}
}

type ReportRequest struct {
	User   *uint `json:"user"`
	Post   *uint `json:"post"`
	Reply  *uint `json:"reply"`
	Review *uint `json:"review"`
}

// reportTargets 目标字段与对应表
var reportTargets = []struct {
	field string
	model interface{}
}{
	{"user", &model.User{}},
	{"post", &model.Post{}},
	{"reply", &model.Reply{}},
	{"review", &model.Review{}},
}

// Create 四个目标恰好填一个，且目标必须存在
func (s *ReportService) Create(ctx context.Context, reporterID uint, req ReportRequest) (*model.Report, error) {
	report := &model.Report{
		UserID:       req.User,
		PostID:       req.Post,
		ReplyID:      req.Reply,
		ReviewID:     req.Review,
		ReportedByID: util.UintPtr(reporterID),
	}
	if report.TargetCount() != 1 {
		return nil, util.ErrReportTargetMissing
	}

	ids := []*uint{req.User, req.Post, req.Reply, req.Review}
	for i, t := range reportTargets {
		if ids[i] == nil {
			continue
		}
		var n int64
		if err := s.DB.Model(t.model).Where("id = ?", *ids[i]).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, util.FieldError(t.field, fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *ids[i]))
		}
	}

	if err := s.ReportRepo.Create(report); err != nil {
		return nil, err
	}
	logger.Log.Info("report created", zap.Uint("report_id", report.ID), zap.Uint("reported_by", reporterID))
	return report, nil
}
