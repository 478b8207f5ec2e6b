package model

// InboundEvent 消息通道投递的入站事件，只保留处理需要的字段。
type InboundEvent struct {
	Text    string
	UserID  string
	Channel string
	BotID   string // 非空表示来自机器人身份，直接丢弃
	Mention bool   // 是否为 @机器人 的提及事件
}

// FromBot 自环防护：机器人自己的消息不进入处理流程。
func (e InboundEvent) FromBot() bool {
	return e.BotID != ""
}
