package service

import (
	"chatterbox/internal/models"

	"gorm.io/gorm"
)

// MessageService 持久化已广播的聊天消息，供新加入的客户端回看。
type MessageService struct {
	db *gorm.DB
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// MessageDTO 是对外输出的消息数据，字段名与 websocket 上的 chat 事件一致。
type MessageDTO struct {
	Type       string `json:"type"`
	ID         uint   `json:"id"`
	ChatboxID  string `json:"chatboxId"`
	Name       string `json:"name"`
	Text       string `json:"text"`
	ProfilePic string `json:"profilePic,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Append 写入一条消息，实现 session.History。
func (s *MessageService) Append(msg *models.Message) error {
	return s.db.Create(msg).Error
}

// ListByRoom 分页查询指定房间的消息，按 id 升序返回。
func (s *MessageService) ListByRoom(roomID string, limit int, beforeID uint) ([]MessageDTO, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := s.db.Where("room_id = ?", roomID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var msgs []models.Message
	if err := q.Order("id desc").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}

	// 反转为升序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageDTO{
			Type:       "chat",
			ID:         m.ID,
			ChatboxID:  m.RoomID,
			Name:       m.Author,
			Text:       m.Text,
			ProfilePic: m.ProfilePic,
			Timestamp:  m.Timestamp,
		})
	}
	return out, nil
}

func (s *MessageService) Count() (int64, error) {
	var n int64
	err := s.db.Model(&models.Message{}).Count(&n).Error
	return n, err
}
