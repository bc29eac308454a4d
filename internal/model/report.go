package model

import "time"

// Report 举报记录，四个目标字段中恰好一个非空
type Report struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       *uint     `gorm:"index" json:"user"`
	PostID       *uint     `gorm:"index" json:"post"`
	ReplyID      *uint     `gorm:"index" json:"reply"`
	ReviewID     *uint     `gorm:"index" json:"review"`
	ReportedByID *uint     `gorm:"index" json:"reported_by"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Report) TableName() string {
	return "reports"
}

// TargetCount 非空目标的个数
func (r *Report) TargetCount() int {
	n := 0
	for _, p := range []*uint{r.UserID, r.PostID, r.ReplyID, r.ReviewID} {
		if p != nil {
			n++
		}
	}
	return n
}
