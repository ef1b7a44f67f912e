package model

import (
	"time"

	"gorm.io/gorm"
)

// 好友请求状态
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
)

// DirectoryEntry 用户名目录条目，handle → uid 的唯一映射
type DirectoryEntry struct {
	Handle    string    `gorm:"primaryKey;type:varchar(50)" json:"handle"`
	UID       string    `gorm:"type:varchar(36);not null;index" json:"uid"`
	Email     string    `gorm:"type:varchar(100)" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (DirectoryEntry) TableName() string {
	return "usernames"
}

// User 用户资料
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Username  string    `gorm:"type:varchar(50);uniqueIndex" json:"username"`
	Password  string    `gorm:"type:varchar(100)" json:"-"`
	Email     string    `gorm:"type:varchar(100)" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Friendship 好友关系的单侧记录。一段好友关系总是成对出现：
// A 名下一条指向 B，B 名下一条指向 A，且在同一事务内写入。
type Friendship struct {
	UserID         string    `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	FriendID       string    `gorm:"primaryKey;type:varchar(36)" json:"friend_id"`
	FriendUsername string    `gorm:"type:varchar(50);not null" json:"friend_username"`
	AddedAt        time.Time `json:"added_at"`
}

// TableName 指定表名
func (Friendship) TableName() string {
	return "friendships"
}

// FriendRequest 好友请求。ID 由有序对确定（fromUID__toUID），
// 同一有序对最多一条记录；状态 pending/accepted/rejected。
type FriendRequest struct {
	ID           string     `gorm:"primaryKey;type:varchar(80)" json:"id"`
	FromUID      string     `gorm:"type:varchar(36);not null;index" json:"from_uid"`
	FromUsername string     `gorm:"type:varchar(50);not null" json:"from_username"`
	ToUID        string     `gorm:"type:varchar(36);not null;index" json:"to_uid"`
	ToUsername   string     `gorm:"type:varchar(50);not null" json:"to_username"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	RespondedAt  *time.Time `json:"responded_at,omitempty"`
}

// TableName 指定表名
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// Channel 单聊会话。ID 为排序后的成员ID拼接（uidA__uidB），
// 双方无论谁发起都会解析到同一个会话。
type Channel struct {
	ID        string    `gorm:"primaryKey;type:varchar(80)" json:"id"`
	MemberA   string    `gorm:"type:varchar(36);not null;index" json:"member_a"`
	MemberB   string    `gorm:"type:varchar(36);not null;index" json:"member_b"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Channel) TableName() string {
	return "chats"
}

// Message 会话消息。只追加；CreatedAt 由服务端写入时分配，
// 保证双方看到一致的全序。Seq 为插入序，用于同一时间戳时的排序。
type Message struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChannelID      string    `gorm:"type:varchar(80);not null;index" json:"channel_id"`
	AuthorUID      string    `gorm:"type:varchar(36);not null;index" json:"author_uid"`
	AuthorUsername string    `gorm:"type:varchar(50);not null" json:"author_username"`
	Content        string    `gorm:"type:text" json:"content"`
	Seq            int64     `gorm:"not null;index" json:"seq"`
	CreatedAt      time.Time `json:"created_at"`
}

// SetupDatabase 初始化数据库表结构
func SetupDatabase(db *gorm.DB) error {
	// 自动迁移表结构
	return db.AutoMigrate(
		&DirectoryEntry{},
		&User{},
		&Friendship{},
		&FriendRequest{},
		&Channel{},
		&Message{},
	)
}
