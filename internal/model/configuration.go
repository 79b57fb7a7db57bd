package model

import "time"

// Configuration 已保存的配置项，对应表 configurations
// Value 为 JSON 编码，(namespace, key) 唯一
type Configuration struct {
	ID        uint      `gorm:"primaryKey"                        json:"id"`
	Namespace string    `gorm:"type:varchar(40);not null"         json:"namespace"`
	Key       string    `gorm:"type:varchar(40);not null"         json:"key"`
	Value     string    `gorm:"type:text;not null"                json:"value"`
	ActorID   *uint     `gorm:"column:actor_id"                   json:"actor_id,omitempty"`
	Date      time.Time `gorm:"not null"                          json:"date"`
}

// TableName 指定表名
func (Configuration) TableName() string { return "configurations" }
