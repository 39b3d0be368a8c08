package models

// AccessType 图片/文件夹可见性
type AccessType string

const (
	AccessPublic  AccessType = "public"
	AccessPrivate AccessType = "private"
	AccessShared  AccessType = "shared"
)

// Valid 是否为合法取值
func (a AccessType) Valid() bool {
	switch a {
	case AccessPublic, AccessPrivate, AccessShared:
		return true
	}
	return false
}

// ParseAccessType 空字符串返回 fallback，非法值返回 false
func ParseAccessType(s string, fallback AccessType) (AccessType, bool) {
	if s == "" {
		return fallback, true
	}
	a := AccessType(s)
	return a, a.Valid()
}
