package model

// User 用户表，对应表 users
type User struct {
	ID           uint   `gorm:"primaryKey"                         json:"id"`
	Serial       string `gorm:"type:varchar(40);not null;uniqueIndex" json:"serial"`
	FullName     string `gorm:"type:varchar(200);not null;default:''" json:"full_name"`
	PasswordHash string `gorm:"type:varchar(255);not null"         json:"-"`
	IsStaff      bool   `gorm:"not null;default:false"             json:"is_staff"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
