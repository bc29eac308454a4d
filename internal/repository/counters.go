package repository

import (
	"gorm.io/gorm"
)

// 计数列名，只允许使用这里的常量拼接 SQL
const (
	ColPosts       = "posts"
	ColOwnReviews  = "own_reviews"
	ColReviews     = "reviews"
	ColComments    = "comments"
	ColSubscribers = "subscribers"
	ColUpvotes     = "upvotes"
	ColVotes       = "votes"
	keyID          = "id"
	keyPostID      = "post_id"
)

// bumpCounter 原子地执行 col = col + delta；减量在数据库内截断到 0
func bumpCounter(db *gorm.DB, table interface{}, keyColumn string, id uint, column string, delta int) error {
	if delta == 0 {
		return nil
	}
	q := db.Model(table).Where(keyColumn+" = ?", id)
	if delta > 0 {
		return q.UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
	}
	n := -delta
	return q.UpdateColumn(column, gorm.Expr("CASE WHEN "+column+" >= ? THEN "+column+" - ? ELSE 0 END", n, n)).Error
}

func offsetOf(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
