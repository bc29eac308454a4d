package util

import (
	"strconv"
	"strings"

	"github.com/gosimple/slug"
)

// TitleSlug 标题型帖子：slug-id
func TitleSlug(base string, id uint) string {
	return withID(base, id)
}

// QuestionSlug 投票帖：question id
func QuestionSlug(question string, id uint) string {
	return withID(question, id)
}

// AuthorSlug 梗图与转发：username type id
func AuthorSlug(username, postType string, id uint) string {
	return withID(username+" "+postType, id)
}

// withID 先截断内容部分再拼 id，保证 id 后缀始终保留
func withID(base string, id uint) string {
	suffix := strconv.FormatUint(uint64(id), 10)
	s := strings.TrimRight(Truncate(slug.Make(base), MaxSlugLength-len(suffix)-1), "-")
	if s == "" {
		return suffix
	}
	return s + "-" + suffix
}

// Truncate slug 列限长
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
