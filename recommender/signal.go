package recommender

// Signal 是一次推荐请求携带的用户信号，只有下面三种实现。
type Signal interface {
	signal()
}

// LikedItems 冷启动：用户在外部目录中喜欢的条目 id
type LikedItems struct {
	ExternalIDs []string
}

// PreferenceText 冷启动：自由文本的类型与关键词偏好
type PreferenceText struct {
	Genres   []string
	Keywords []string
}

// KnownUser 有评分历史的用户
type KnownUser struct {
	UserID int64
}

func (LikedItems) signal()     {}
func (PreferenceText) signal() {}
func (KnownUser) signal()      {}
