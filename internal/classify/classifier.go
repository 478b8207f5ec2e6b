package classify

import "strings"

// Intent 入站消息的识别结果。
type Intent string

const (
	IntentCheckIn      Intent = "check_in"
	IntentNote         Intent = "note"
	IntentShowNotes    Intent = "show_notes"
	IntentUnrecognized Intent = "unrecognized"
)

// Fallback 未命中任何规则时的处理方式。
type Fallback string

const (
	FallbackIgnore    Fallback = "ignore"     // 静默丢弃
	FallbackUsageHint Fallback = "usage_hint" // 回复用法提示
)

// Rule 有序规则表中的一行：任一关键词命中即产出对应意图。
type Rule struct {
	Keywords    []string
	Intent      Intent
	MentionOnly bool // 仅对 @机器人 的提及事件生效
}

// Classifier 按顺序匹配规则，首个命中生效。
type Classifier struct {
	rules    []Rule
	fallback Fallback
}

func New(rules []Rule, fallback Fallback) *Classifier {
	return &Classifier{rules: rules, fallback: fallback}
}

// VariantCheckIn 打卡机器人规则集。
func VariantCheckIn() *Classifier {
	return New([]Rule{
		{Keywords: []string{"checkin", "check in"}, Intent: IntentCheckIn},
	}, FallbackUsageHint)
}

// VariantNotes 记事机器人规则集。
func VariantNotes() *Classifier {
	return New([]Rule{
		{Keywords: []string{"log this", "note this"}, Intent: IntentNote},
		{Keywords: []string{"show notes"}, Intent: IntentShowNotes, MentionOnly: true},
	}, FallbackIgnore)
}

// ForVariant 根据启动配置选择规则集。
func ForVariant(variant string) *Classifier {
	if strings.EqualFold(variant, "notes") {
		return VariantNotes()
	}
	return VariantCheckIn()
}

// Classify 大小写不敏感的子串匹配，mention 标记事件是否提及机器人。
func (c *Classifier) Classify(text string, mention bool) Intent {
	lowered := strings.ToLower(text)

	for _, rule := range c.rules {
		if rule.MentionOnly && !mention {
			continue
		}
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, kw) {
				return rule.Intent
			}
		}
	}

	return IntentUnrecognized
}

func (c *Classifier) Fallback() Fallback {
	return c.fallback
}
