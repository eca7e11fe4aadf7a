package models

import "time"

// Message 是一条已广播的聊天消息。按自增 ID 排序即得到全局顺序，
// 加上 room_id 过滤即得到房间内顺序。
type Message struct {
	ID         uint      `gorm:"primaryKey"`
	RoomID     string    `gorm:"index:idx_msg_room_id;size:128;not null"`
	Author     string    `gorm:"size:128;not null"`
	Text       string    `gorm:"type:text"`
	ProfilePic string    `gorm:"type:text"`
	Timestamp  string    `gorm:"size:64"`
	CreatedAt  time.Time
}
