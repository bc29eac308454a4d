package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeImage       = "image/"
	MimeOctetStream = "application/octet-stream"
	MaxImageSize    = 10 << 20
)

const (
	MaxPageSize     = 100
	MaxSlugLength   = 100
	RelatedPostsMax = 3
	PhoneCodeLength = 6
)

// 上传目录
const (
	DirMemes    = "posts/memes"
	DirArticles = "posts/articles"
	DirAvatars  = "users/avatars"
)

var (
	AllowedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
)
