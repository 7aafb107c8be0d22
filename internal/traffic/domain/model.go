package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TrafficLog is one storefront page hit.
type TrafficLog struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Path      string       `json:"path" gorm:"type:text;not null"`
	Referrer  string       `json:"referrer" gorm:"type:text"`
	UserAgent string       `json:"user_agent" gorm:"type:text"`
	IPAddress string       `json:"ip_address" gorm:"column:ip_address;type:text"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;index"`
}

func (TrafficLog) TableName() string { return "traffic_logs" }

type Count struct {
	Key   string `json:"key"`
	Total int64  `json:"total"`
}
